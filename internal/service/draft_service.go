package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/validation"
)

// keyDraftRequested is the session-tier one-shot guard for generation.
const keyDraftRequested = "draft_requested"

// draftService is the concrete implementation of DraftService
type draftService struct {
	repos     *repository.Repositories
	sessions  kv.Store
	manager   *ingest.Manager
	generator generator.Generator
	validator *validation.Validator
	log       zerolog.Logger
	now       func() time.Time

	// guards the check-and-set of the generation flag
	flagMu sync.Mutex
}

func newDraftService(repos *repository.Repositories, sessions kv.Store, manager *ingest.Manager, gen generator.Generator, v *validation.Validator, log zerolog.Logger) *draftService {
	return &draftService{
		repos:     repos,
		sessions:  sessions,
		manager:   manager,
		generator: gen,
		validator: v,
		log:       log.With().Str("service", "draft").Logger(),
		now:       time.Now,
	}
}

func (s *draftService) Get(ctx context.Context) (*models.Draft, error) {
	return s.repos.Draft.Get(ctx)
}

// Submit hands the ingest session's file set over to the draft keys. The first
// file is kept as a data URL; the generation guard is cleared for a new request.
func (s *draftService) Submit(ctx context.Context, sessionID, ingestID string, req *models.SubmitRequest) (*models.Draft, error) {
	session, err := s.manager.Get(ingestID)
	if err != nil {
		return nil, err
	}

	uploads := session.Uploads()
	if err := invalid(s.validator.ValidateSubmission(req.Subject, len(uploads))); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(uploads))
	for _, f := range uploads {
		names = append(names, f.Name)
	}
	first, dataURL, _ := session.FirstFilePayload()

	draft := &models.Draft{
		Subject:  strings.TrimSpace(req.Subject),
		Tags:     req.Tags,
		Files:    names,
		FileName: first.Name,
		File:     dataURL,
	}
	if err := s.repos.Draft.SaveSubmission(ctx, draft); err != nil {
		return nil, err
	}
	if err := sessionStore(s.sessions, sessionID).Delete(ctx, keyDraftRequested); err != nil {
		return nil, fmt.Errorf("clear generation flag: %w", err)
	}

	s.log.Info().
		Str("subject", draft.Subject).
		Int("files", len(names)).
		Str("first_file", first.Name).
		Msg("Draft submitted")

	return s.repos.Draft.Get(ctx)
}

// Generate calls the remote generator once per submission. A failure clears
// the guard so the user can retry; nothing is retried automatically.
func (s *draftService) Generate(ctx context.Context, sessionID, topic string) (*models.Draft, error) {
	store := sessionStore(s.sessions, sessionID)
	if err := s.acquire(ctx, store); err != nil {
		return nil, err
	}

	result, err := s.generate(ctx, topic)
	if err != nil {
		s.release(ctx, store)
		s.log.Error().Err(err).Msg("Draft generation failed")
		return nil, err
	}

	if err := s.repos.Draft.SaveGenerated(ctx, result); err != nil {
		s.release(ctx, store)
		s.log.Error().Err(err).Msg("Failed to save generated draft")
		return nil, err
	}
	return s.repos.Draft.Get(ctx)
}

// release clears the generation flag. It outlives the request context so a
// cancelled request still leaves the user able to retry.
func (s *draftService) release(ctx context.Context, store kv.Store) {
	if err := store.Delete(context.WithoutCancel(ctx), keyDraftRequested); err != nil {
		s.log.Error().Err(err).Msg("Failed to reset generation flag")
	}
}

func (s *draftService) acquire(ctx context.Context, store kv.Store) error {
	s.flagMu.Lock()
	defer s.flagMu.Unlock()

	v, _, err := store.Get(ctx, keyDraftRequested)
	if err != nil {
		return fmt.Errorf("read generation flag: %w", err)
	}
	if v == "true" {
		return ErrAlreadyRequested
	}
	if err := store.Set(ctx, keyDraftRequested, "true"); err != nil {
		return fmt.Errorf("set generation flag: %w", err)
	}
	return nil
}

func (s *draftService) generate(ctx context.Context, topic string) (*models.DraftResult, error) {
	draft, err := s.repos.Draft.Get(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(topic) == "" {
		topic = draft.Subject
	}

	var file *models.FilePayload
	if draft.File != "" {
		file, err = decodeDataURL(draft.FileName, draft.File)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", generator.ErrGeneration, err)
		}
	}
	return s.generator.GenerateDraft(ctx, topic, file)
}

// Update applies user edits to the draft.
func (s *draftService) Update(ctx context.Context, edit *models.DraftEdit) (*models.Draft, error) {
	if err := s.repos.Draft.ApplyEdit(ctx, edit); err != nil {
		return nil, err
	}
	return s.repos.Draft.Get(ctx)
}

// Publish creates an article from the draft and the reporter metadata.
func (s *draftService) Publish(ctx context.Context, req *models.PublishRequest) (*models.Article, error) {
	draft, err := s.repos.Draft.Get(ctx)
	if err != nil {
		return nil, err
	}

	date := req.Date
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	image := req.Image
	if image == "" {
		image = draft.Image
	}

	ad := &models.ArticleDraft{
		Title:       draft.Subject,
		Content:     draft.Content,
		FullContent: req.FullContent,
		Date:        date,
		Reporter:    req.Reporter,
		Department:  req.Department,
		Email:       req.Email,
		Image:       image,
		Tags:        draft.Tags,
	}
	if err := invalid(s.validator.ValidateArticleDraft(ad)); err != nil {
		return nil, err
	}

	article, err := s.repos.Article.Create(ctx, ad)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("article_id", article.ID).Str("title", article.Title).Msg("Article published")
	return article, nil
}

var errInvalidDataURL = errors.New("invalid data url")

// decodeDataURL parses "data:<mime>;base64,<payload>".
func decodeDataURL(name, dataURL string) (*models.FilePayload, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, errInvalidDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, errInvalidDataURL
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, errInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidDataURL, err)
	}
	return &models.FilePayload{Name: name, Type: mimeType, Data: data}, nil
}
