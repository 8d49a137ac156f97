package repository

import (
	"context"

	"github.com/sports-newsroom-api/internal/models"
)

const familyDraft = "draft"

// draftRepo is the concrete implementation of DraftRepository. Text fields are
// stored as raw strings, lists and maps as JSON, matching what the editor page reads.
type draftRepo struct {
	blobs *blobStore
}

// newDraftRepo creates a new draft repository
func newDraftRepo(blobs *blobStore) DraftRepository {
	return &draftRepo{blobs: blobs}
}

// Get assembles the draft from the edit_* keys. Missing keys yield zero values.
func (r *draftRepo) Get(ctx context.Context) (*models.Draft, error) {
	d := &models.Draft{}
	var err error

	raws := []struct {
		key  string
		dest *string
	}{
		{KeyEditSubject, &d.Subject},
		{KeyEditContent, &d.Content},
		{KeyEditFileName, &d.FileName},
		{KeyEditFile, &d.File},
		{KeyEditImage, &d.Image},
	}
	for _, f := range raws {
		if *f.dest, err = r.blobs.readRaw(ctx, f.key); err != nil {
			return nil, err
		}
	}

	if err := r.blobs.readJSON(ctx, KeyEditTags, &d.Tags); err != nil {
		return nil, err
	}
	if err := r.blobs.readJSON(ctx, KeyEditCaptions, &d.Captions); err != nil {
		return nil, err
	}
	if err := r.blobs.readJSON(ctx, KeyEditFiles, &d.Files); err != nil {
		return nil, err
	}

	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.Captions == nil {
		d.Captions = map[string]string{}
	}
	if d.Files == nil {
		d.Files = []string{}
	}
	return d, nil
}

// SaveSubmission stores the subject, tags and file set handed over by the editor.
// Any previously generated content and captions are cleared.
func (r *draftRepo) SaveSubmission(ctx context.Context, d *models.Draft) error {
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	files := d.Files
	if files == nil {
		files = []string{}
	}

	if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditSubject, d.Subject); err != nil {
		return err
	}
	if err := r.blobs.writeJSON(ctx, familyDraft, KeyEditTags, tags); err != nil {
		return err
	}
	if err := r.blobs.writeJSON(ctx, familyDraft, KeyEditFiles, files); err != nil {
		return err
	}
	if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditFileName, d.FileName); err != nil {
		return err
	}
	if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditFile, d.File); err != nil {
		return err
	}
	if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditContent, d.Content); err != nil {
		return err
	}
	captions := d.Captions
	if captions == nil {
		captions = map[string]string{}
	}
	return r.blobs.writeJSON(ctx, familyDraft, KeyEditCaptions, captions)
}

// SaveGenerated stores a generator result. An empty title keeps the submitted subject.
func (r *draftRepo) SaveGenerated(ctx context.Context, result *models.DraftResult) error {
	edit := &models.DraftEdit{Content: &result.Content}
	if result.Title != "" {
		edit.Subject = &result.Title
	}
	if result.Tags != nil {
		edit.Tags = &result.Tags
	}
	captions := result.Captions
	if captions == nil {
		captions = map[string]string{}
	}
	edit.Captions = &captions
	return r.ApplyEdit(ctx, edit)
}

// ApplyEdit writes the non-nil fields.
func (r *draftRepo) ApplyEdit(ctx context.Context, edit *models.DraftEdit) error {
	if edit.Subject != nil {
		if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditSubject, *edit.Subject); err != nil {
			return err
		}
	}
	if edit.Content != nil {
		if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditContent, *edit.Content); err != nil {
			return err
		}
	}
	if edit.Image != nil {
		if err := r.blobs.writeRaw(ctx, familyDraft, KeyEditImage, *edit.Image); err != nil {
			return err
		}
	}
	if edit.Tags != nil {
		if err := r.blobs.writeJSON(ctx, familyDraft, KeyEditTags, *edit.Tags); err != nil {
			return err
		}
	}
	if edit.Captions != nil {
		if err := r.blobs.writeJSON(ctx, familyDraft, KeyEditCaptions, *edit.Captions); err != nil {
			return err
		}
	}
	return nil
}
