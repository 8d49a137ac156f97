package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/validation"
)

// ingestService is the concrete implementation of IngestService
type ingestService struct {
	manager   *ingest.Manager
	validator *validation.Validator
	log       zerolog.Logger
}

func newIngestService(manager *ingest.Manager, v *validation.Validator, log zerolog.Logger) *ingestService {
	return &ingestService{
		manager:   manager,
		validator: v,
		log:       log.With().Str("service", "ingest").Logger(),
	}
}

func (s *ingestService) Open(ctx context.Context) (string, error) {
	return s.manager.Create().ID(), nil
}

func (s *ingestService) AddFiles(ctx context.Context, id string, files []ingest.UploadedFile) (ingest.Result, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return ingest.Result{}, err
	}
	return session.AddFiles(ctx, files)
}

// Preload runs the one-shot remote preload for the session
func (s *ingestService) Preload(ctx context.Context, id string, descs []ingest.Descriptor) (ingest.Result, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return ingest.Result{}, err
	}
	if err := s.validateDescriptors(descs); err != nil {
		return ingest.Result{}, err
	}
	return session.Preload(ctx, descs)
}

// Replace swaps the whole file set for a new remote one
func (s *ingestService) Replace(ctx context.Context, id string, descs []ingest.Descriptor) (ingest.Result, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return ingest.Result{}, err
	}
	if err := s.validateDescriptors(descs); err != nil {
		return ingest.Result{}, err
	}
	s.log.Info().Str("ingest_session", id).Int("files", len(descs)).Msg("Replacing file set")
	return session.ReplacePreload(ctx, descs)
}

func (s *ingestService) validateDescriptors(descs []ingest.Descriptor) error {
	var errs []validation.ValidationError
	for _, d := range descs {
		errs = append(errs, s.validator.ValidateDescriptor(d.URL, d.Name)...)
	}
	return invalid(errs)
}

func (s *ingestService) ToggleExpansion(ctx context.Context, id, name string) (bool, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return false, err
	}
	return session.ToggleExpansion(name), nil
}

func (s *ingestService) Preview(ctx context.Context, id string) (*ingest.Snapshot, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

func (s *ingestService) VisibleRows(ctx context.Context, id, name string) ([][]string, error) {
	session, err := s.manager.Get(id)
	if err != nil {
		return nil, err
	}
	return session.VisibleRows(name), nil
}

func (s *ingestService) Reset(ctx context.Context, id string) error {
	session, err := s.manager.Get(id)
	if err != nil {
		return err
	}
	session.Reset()
	return nil
}

func (s *ingestService) Close(ctx context.Context, id string) error {
	return s.manager.Close(id)
}

func (s *ingestService) Blob(ctx context.Context, ref string) (ingest.Blob, bool) {
	return s.manager.Blob(ref)
}
