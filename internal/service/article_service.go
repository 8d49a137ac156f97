package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/validation"
)

// DefaultDashboardLimit is the length of the top and recent lists.
const DefaultDashboardLimit = 5

// articleService is the concrete implementation of ArticleService
type articleService struct {
	repos     *repository.Repositories
	sessions  kv.Store
	validator *validation.Validator
	log       zerolog.Logger

	// serializes the flag check and the increment of React
	reactMu sync.Mutex
}

func newArticleService(repos *repository.Repositories, sessions kv.Store, v *validation.Validator, log zerolog.Logger) *articleService {
	return &articleService{
		repos:     repos,
		sessions:  sessions,
		validator: v,
		log:       log.With().Str("service", "article").Logger(),
	}
}

func (s *articleService) List(ctx context.Context) ([]models.Article, error) {
	return s.repos.Article.List(ctx)
}

func (s *articleService) Get(ctx context.Context, id int64) (*models.Article, error) {
	return s.repos.Article.GetByID(ctx, id)
}

// Update edits title, content, fullContent, image or tags
func (s *articleService) Update(ctx context.Context, id int64, patch *models.ArticlePatch) (*models.Article, error) {
	if err := invalid(s.validator.ValidateArticlePatch(patch)); err != nil {
		return nil, err
	}
	article, err := s.repos.Article.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("article_id", id).Msg("Article updated")
	return article, nil
}

// Delete removes the article only; its comments stay under comments_<id>
func (s *articleService) Delete(ctx context.Context, id int64) error {
	if err := s.repos.Article.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("article_id", id).Msg("Article deleted")
	return nil
}

// Visit counts one view. Every visit counts, including reloads.
func (s *articleService) Visit(ctx context.Context, id int64) (*models.Article, error) {
	return s.repos.Article.IncrementViews(ctx, id)
}

// Open counts a view and loads the article into the draft editor.
func (s *articleService) Open(ctx context.Context, id int64) (*models.Article, error) {
	article, err := s.repos.Article.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}
	edit := &models.DraftEdit{Subject: &article.Title, Content: &article.Content}
	if err := s.repos.Draft.ApplyEdit(ctx, edit); err != nil {
		return nil, err
	}
	s.log.Info().Int64("article_id", id).Msg("Article opened in editor")
	return article, nil
}

// React adds one reaction of kind, at most once per browser session. The
// returned bool reports whether this call counted.
func (s *articleService) React(ctx context.Context, sessionID string, id int64, kind string) (*models.Article, bool, error) {
	if err := invalid(s.validator.ValidateReactionKind(kind)); err != nil {
		return nil, false, err
	}

	s.reactMu.Lock()
	defer s.reactMu.Unlock()

	store := sessionStore(s.sessions, sessionID)
	flag := reactionFlagKey(id, kind)

	done, _, err := store.Get(ctx, flag)
	if err != nil {
		return nil, false, fmt.Errorf("read session flag: %w", err)
	}
	if done == "true" {
		article, err := s.repos.Article.GetByID(ctx, id)
		return article, false, err
	}

	// Claim the guard before counting
	if err := store.Set(ctx, flag, "true"); err != nil {
		return nil, false, fmt.Errorf("set session flag: %w", err)
	}

	article, err := s.repos.Article.AddReaction(ctx, id, kind)
	if err != nil {
		if derr := store.Delete(context.WithoutCancel(ctx), flag); derr != nil {
			s.log.Error().Err(derr).Int64("article_id", id).Str("kind", kind).Msg("Failed to reset reaction flag")
		}
		return nil, false, err
	}

	s.log.Info().Int64("article_id", id).Str("kind", kind).Int("count", article.Reactions[kind]).Msg("Reaction added")
	return article, true, nil
}

func reactionFlagKey(id int64, kind string) string {
	return fmt.Sprintf("reaction_%d_%s", id, kind)
}

// Download returns the article body as a text file named after its title.
func (s *articleService) Download(ctx context.Context, id int64) (string, []byte, error) {
	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	title := article.Title
	if title == "" {
		title = "untitled"
	}
	return title + ".txt", []byte(article.Content), nil
}

// Dashboard summarises the feed and clears the dashboard alert flag.
func (s *articleService) Dashboard(ctx context.Context, limit int) (*models.Dashboard, error) {
	if limit <= 0 {
		limit = DefaultDashboardLimit
	}

	articles, err := s.repos.Article.List(ctx)
	if err != nil {
		return nil, err
	}
	flags, err := s.repos.Alarm.Flags(ctx)
	if err != nil {
		return nil, err
	}

	d := &models.Dashboard{
		TotalArticles: len(articles),
		HasNewAlert:   flags.HasNewDashboardAlert,
	}
	for _, a := range articles {
		d.TotalViews += a.Views
		d.TotalLikes += a.Reactions[models.ReactionLike]
	}

	recent := append([]models.Article{}, articles...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].ID > recent[j].ID })
	d.RecentArticles = head(recent, limit)

	top := append([]models.Article{}, articles...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Views > top[j].Views })
	d.TopArticles = head(top, limit)

	if flags.HasNewDashboardAlert {
		off := false
		if err := s.repos.Alarm.SetFlags(ctx, nil, &off); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func head(articles []models.Article, n int) []models.Article {
	if len(articles) > n {
		return articles[:n]
	}
	return articles
}

func (s *articleService) ListComments(ctx context.Context, id int64) ([]models.Comment, error) {
	return s.repos.Comment.List(ctx, id)
}

// AddComment prepends a comment to an existing article
func (s *articleService) AddComment(ctx context.Context, id int64, author, text string) (*models.Comment, error) {
	if err := invalid(s.validator.ValidateComment(text)); err != nil {
		return nil, err
	}
	if _, err := s.repos.Article.GetByID(ctx, id); err != nil {
		return nil, err
	}
	comment, err := s.repos.Comment.Add(ctx, id, author, text)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("article_id", id).Int64("comment_id", comment.ID).Msg("Comment added")
	return comment, nil
}

func (s *articleService) DeleteComment(ctx context.Context, id, commentID int64) error {
	return s.repos.Comment.Delete(ctx, id, commentID)
}
