package repository

import (
	"context"
	"time"

	"github.com/sports-newsroom-api/internal/models"
)

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	blobs *blobStore
	clock *IDClock
}

// newCommentRepo creates a new comment repository
func newCommentRepo(blobs *blobStore, clock *IDClock) CommentRepository {
	return &commentRepo{blobs: blobs, clock: clock}
}

// load decodes the list. Comments stored without an id (the legacy string
// form) get fresh ids; the returned bool reports whether any were assigned.
func (r *commentRepo) load(ctx context.Context, key string) ([]models.Comment, bool, error) {
	var comments []models.Comment
	if err := r.blobs.readJSON(ctx, key, &comments); err != nil {
		return nil, false, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	var maxID int64
	for _, c := range comments {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	assigned := false
	for i := range comments {
		if comments[i].ID == 0 {
			comments[i].ID = r.clock.Next(maxID)
			assigned = true
		}
	}
	return comments, assigned, nil
}

// List returns the article's comments, newest first. Ids assigned to legacy
// comments are written back so later deletes can address them.
func (r *commentRepo) List(ctx context.Context, articleID int64) ([]models.Comment, error) {
	key := CommentsKey(articleID)
	unlock := r.blobs.lock(key)
	defer unlock()

	comments, assigned, err := r.load(ctx, key)
	if err != nil {
		return nil, err
	}
	if assigned {
		if err := r.blobs.writeJSON(ctx, "comments", key, comments); err != nil {
			return nil, err
		}
	}
	return comments, nil
}

// Add prepends a comment. The article id is not checked against saved_files.
func (r *commentRepo) Add(ctx context.Context, articleID int64, author, text string) (*models.Comment, error) {
	key := CommentsKey(articleID)
	unlock := r.blobs.lock(key)
	defer unlock()

	comments, _, err := r.load(ctx, key)
	if err != nil {
		return nil, err
	}

	var maxID int64
	for _, c := range comments {
		if c.ID > maxID {
			maxID = c.ID
		}
	}
	if author == "" {
		author = models.AnonymousAuthor
	}

	comment := models.Comment{
		ID:     r.clock.Next(maxID),
		Author: author,
		Text:   text,
		Time:   time.Now().Format(time.RFC3339),
	}
	comments = append([]models.Comment{comment}, comments...)
	if err := r.blobs.writeJSON(ctx, "comments", key, comments); err != nil {
		return nil, err
	}
	return &comment, nil
}

// Delete removes one comment and rewrites the list
func (r *commentRepo) Delete(ctx context.Context, articleID, commentID int64) error {
	key := CommentsKey(articleID)
	unlock := r.blobs.lock(key)
	defer unlock()

	comments, _, err := r.load(ctx, key)
	if err != nil {
		return err
	}

	for i, c := range comments {
		if c.ID == commentID {
			kept := append(comments[:i:i], comments[i+1:]...)
			return r.blobs.writeJSON(ctx, "comments", key, kept)
		}
	}
	return ErrNotFound
}
