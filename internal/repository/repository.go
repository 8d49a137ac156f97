package repository

import (
	"context"
	"errors"

	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/metrics"
	"github.com/sports-newsroom-api/internal/models"
)

var (
	// ErrNotFound signals a missing article, comment or alarm id.
	ErrNotFound = errors.New("not found")
	// ErrWriteFailed wraps every failed store write; the mutation did not persist.
	ErrWriteFailed = errors.New("store write failed")
)

// Persisted keys shared with the browser client.
const (
	KeyArticles             = "saved_files"
	KeyAlarms               = "alarm_list"
	KeyHasNewAlarm          = "hasNewAlarm"
	KeyHasNewDashboardAlert = "hasNewDashboardAlert"
	KeyEditSubject          = "edit_subject"
	KeyEditContent          = "edit_content"
	KeyEditTags             = "edit_tags"
	KeyEditCaptions         = "edit_captions"
	KeyEditFiles            = "edit_files"
	KeyEditFile             = "edit_file"
	KeyEditFileName         = "edit_fileName"
	KeyEditImage            = "edit_image"
)

// CommentsKey is the per-article comment list key.
func CommentsKey(articleID int64) string {
	return "comments_" + formatID(articleID)
}

// ArticleRepository defines the operations on the saved_files collection
type ArticleRepository interface {
	List(ctx context.Context) ([]models.Article, error)
	GetByID(ctx context.Context, id int64) (*models.Article, error)
	Create(ctx context.Context, draft *models.ArticleDraft) (*models.Article, error)
	Update(ctx context.Context, id int64, patch *models.ArticlePatch) (*models.Article, error)
	IncrementViews(ctx context.Context, id int64) (*models.Article, error)
	AddReaction(ctx context.Context, id int64, kind string) (*models.Article, error)
	Delete(ctx context.Context, id int64) error
}

// CommentRepository defines the operations on per-article comment lists
type CommentRepository interface {
	List(ctx context.Context, articleID int64) ([]models.Comment, error)
	Add(ctx context.Context, articleID int64, author, text string) (*models.Comment, error)
	Delete(ctx context.Context, articleID, commentID int64) error
}

// AlarmRepository defines the operations on alarm_list and the two indicator flags
type AlarmRepository interface {
	List(ctx context.Context) ([]models.Alarm, error)
	Add(ctx context.Context, message string) (*models.Alarm, error)
	Delete(ctx context.Context, id int64) error
	Flags(ctx context.Context) (models.AlarmFlags, error)
	SetFlags(ctx context.Context, hasNewAlarm, hasNewDashboardAlert *bool) error
}

// DraftRepository defines the operations on the edit_* keys
type DraftRepository interface {
	Get(ctx context.Context) (*models.Draft, error)
	SaveSubmission(ctx context.Context, draft *models.Draft) error
	SaveGenerated(ctx context.Context, result *models.DraftResult) error
	ApplyEdit(ctx context.Context, edit *models.DraftEdit) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article ArticleRepository
	Comment CommentRepository
	Alarm   AlarmRepository
	Draft   DraftRepository
}

// New creates all repositories on the given durable store
func New(store kv.Store, m *metrics.Metrics) *Repositories {
	blobs := newBlobStore(store, m)
	clock := NewIDClock()
	return &Repositories{
		Article: newArticleRepo(blobs, clock),
		Comment: newCommentRepo(blobs, clock),
		Alarm:   newAlarmRepo(blobs, clock),
		Draft:   newDraftRepo(blobs),
	}
}
