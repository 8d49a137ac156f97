package repository

import (
	"context"

	"github.com/sports-newsroom-api/internal/models"
)

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	blobs *blobStore
	clock *IDClock
}

// newArticleRepo creates a new article repository
func newArticleRepo(blobs *blobStore, clock *IDClock) ArticleRepository {
	return &articleRepo{blobs: blobs, clock: clock}
}

func (r *articleRepo) load(ctx context.Context) ([]models.Article, error) {
	var articles []models.Article
	if err := r.blobs.readJSON(ctx, KeyArticles, &articles); err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []models.Article{}
	}
	return articles, nil
}

func (r *articleRepo) save(ctx context.Context, articles []models.Article) error {
	return r.blobs.writeJSON(ctx, KeyArticles, KeyArticles, articles)
}

// List returns the whole collection, newest first
func (r *articleRepo) List(ctx context.Context) ([]models.Article, error) {
	return r.load(ctx)
}

// GetByID returns ErrNotFound when no article has the id
func (r *articleRepo) GetByID(ctx context.Context, id int64) (*models.Article, error) {
	articles, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOfArticle(articles, id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	return &articles[idx], nil
}

// Create assigns an id, zeroes the counters and prepends the article
func (r *articleRepo) Create(ctx context.Context, draft *models.ArticleDraft) (*models.Article, error) {
	unlock := r.blobs.lock(KeyArticles)
	defer unlock()

	articles, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, a := range articles {
		if a.ID > maxID {
			maxID = a.ID
		}
	}

	article := models.Article{
		ID:          r.clock.Next(maxID),
		Title:       draft.Title,
		Content:     draft.Content,
		FullContent: draft.FullContent,
		Date:        draft.Date,
		Reporter:    draft.Reporter,
		Department:  draft.Department,
		Email:       draft.Email,
		Image:       draft.Image,
		Tags:        append([]string{}, draft.Tags...),
		Views:       0,
		Reactions:   map[string]int{models.ReactionLike: 0},
	}

	articles = append([]models.Article{article}, articles...)
	if err := r.save(ctx, articles); err != nil {
		return nil, err
	}
	return &article, nil
}

// Update applies field edits to one article
func (r *articleRepo) Update(ctx context.Context, id int64, patch *models.ArticlePatch) (*models.Article, error) {
	return r.mutate(ctx, id, func(a *models.Article) {
		patch.Apply(a)
		a.ApplyDefaults()
	})
}

// IncrementViews adds one view; there is no upper bound and no de-duplication
func (r *articleRepo) IncrementViews(ctx context.Context, id int64) (*models.Article, error) {
	return r.mutate(ctx, id, func(a *models.Article) {
		a.Views++
	})
}

// AddReaction adds one reaction of the given kind
func (r *articleRepo) AddReaction(ctx context.Context, id int64, kind string) (*models.Article, error) {
	return r.mutate(ctx, id, func(a *models.Article) {
		a.Reactions[kind]++
	})
}

// Delete removes the article. Its comments_<id> list is left in place.
func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	unlock := r.blobs.lock(KeyArticles)
	defer unlock()

	articles, err := r.load(ctx)
	if err != nil {
		return err
	}
	idx := indexOfArticle(articles, id)
	if idx < 0 {
		return ErrNotFound
	}
	articles = append(articles[:idx], articles[idx+1:]...)
	return r.save(ctx, articles)
}

// mutate runs a read-modify-write of the full collection for a single record
func (r *articleRepo) mutate(ctx context.Context, id int64, fn func(a *models.Article)) (*models.Article, error) {
	unlock := r.blobs.lock(KeyArticles)
	defer unlock()

	articles, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	idx := indexOfArticle(articles, id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	fn(&articles[idx])
	if err := r.save(ctx, articles); err != nil {
		return nil, err
	}
	updated := articles[idx]
	return &updated, nil
}

func indexOfArticle(articles []models.Article, id int64) int {
	for i := range articles {
		if articles[i].ID == id {
			return i
		}
	}
	return -1
}
