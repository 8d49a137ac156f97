package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/validation"
)

var (
	// ErrAlreadyRequested is returned when a draft generation is already
	// pending or done for the session.
	ErrAlreadyRequested = errors.New("draft generation already requested")
	// ErrNoUploads is returned when a submission has no file set to hand over.
	ErrNoUploads = errors.New("no uploaded files")
)

// InvalidError carries field-level validation failures.
type InvalidError struct {
	Errors []validation.ValidationError
}

func (e *InvalidError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, v := range e.Errors {
		parts = append(parts, v.Field+": "+v.Message)
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

func invalid(errs []validation.ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	return &InvalidError{Errors: errs}
}

// ArticleService defines the operations on the published feed
type ArticleService interface {
	List(ctx context.Context) ([]models.Article, error)
	Get(ctx context.Context, id int64) (*models.Article, error)
	Update(ctx context.Context, id int64, patch *models.ArticlePatch) (*models.Article, error)
	Delete(ctx context.Context, id int64) error
	Visit(ctx context.Context, id int64) (*models.Article, error)
	Open(ctx context.Context, id int64) (*models.Article, error)
	React(ctx context.Context, sessionID string, id int64, kind string) (*models.Article, bool, error)
	Download(ctx context.Context, id int64) (string, []byte, error)
	Dashboard(ctx context.Context, limit int) (*models.Dashboard, error)
	ListComments(ctx context.Context, id int64) ([]models.Comment, error)
	AddComment(ctx context.Context, id int64, author, text string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id, commentID int64) error
}

// AlarmService defines the operations on notifications
type AlarmService interface {
	Visit(ctx context.Context) ([]models.Alarm, error)
	Flags(ctx context.Context) (models.AlarmFlags, error)
	Create(ctx context.Context, message string) (*models.Alarm, error)
	Delete(ctx context.Context, id int64) error
}

// DraftService defines the editor to publish flow
type DraftService interface {
	Get(ctx context.Context) (*models.Draft, error)
	Submit(ctx context.Context, sessionID, ingestID string, req *models.SubmitRequest) (*models.Draft, error)
	Generate(ctx context.Context, sessionID, topic string) (*models.Draft, error)
	Update(ctx context.Context, edit *models.DraftEdit) (*models.Draft, error)
	Publish(ctx context.Context, req *models.PublishRequest) (*models.Article, error)
}

// IngestService defines the operations on editor ingest sessions
type IngestService interface {
	Open(ctx context.Context) (string, error)
	AddFiles(ctx context.Context, id string, files []ingest.UploadedFile) (ingest.Result, error)
	Preload(ctx context.Context, id string, descs []ingest.Descriptor) (ingest.Result, error)
	Replace(ctx context.Context, id string, descs []ingest.Descriptor) (ingest.Result, error)
	ToggleExpansion(ctx context.Context, id, name string) (bool, error)
	Preview(ctx context.Context, id string) (*ingest.Snapshot, error)
	VisibleRows(ctx context.Context, id, name string) ([][]string, error)
	Reset(ctx context.Context, id string) error
	Close(ctx context.Context, id string) error
	Blob(ctx context.Context, ref string) (ingest.Blob, bool)
}

// Services holds all service interfaces
type Services struct {
	Article ArticleService
	Alarm   AlarmService
	Draft   DraftService
	Ingest  IngestService
}

// NewServices creates all services. sessions is the per-browser-session tier;
// keys written through it are scoped by session id.
func NewServices(repos *repository.Repositories, sessions kv.Store, manager *ingest.Manager, gen generator.Generator, log zerolog.Logger) *Services {
	v := validation.NewValidator()
	return &Services{
		Article: newArticleService(repos, sessions, v, log),
		Alarm:   newAlarmService(repos.Alarm, log),
		Draft:   newDraftService(repos, sessions, manager, gen, v, log),
		Ingest:  newIngestService(manager, v, log),
	}
}

// sessionStore returns the session tier view for one browser session.
func sessionStore(sessions kv.Store, sessionID string) kv.Store {
	return kv.Scoped(sessions, "session:"+sessionID+":")
}
