package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/mocks"
	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/service"
)

type testEnv struct {
	services *service.Services
	repos    *repository.Repositories
	durable  kv.Store
	sessions kv.Store
	gen      *mocks.MockGenerator
	fetcher  *mocks.MockFetcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStores(t, kv.NewMemoryStore(0), kv.NewMemoryStore(0))
}

func newTestEnvWithStores(t *testing.T, durable, sessions kv.Store) *testEnv {
	t.Helper()
	repos := repository.New(durable, nil)
	gen := mocks.NewMockGenerator(&models.DraftResult{
		Title:    "Bears walk it off",
		Content:  "Doosan won 5-4 in the ninth.",
		Tags:     []string{"KBO", "Doosan"},
		Captions: map[string]string{"hero.png": "The winning swing"},
	})
	fetcher := mocks.NewMockFetcher()
	manager := ingest.NewManager(ingest.Options{DecodeWorkers: 2}, fetcher, nil, zerolog.Nop())

	return &testEnv{
		services: service.NewServices(repos, sessions, manager, gen, zerolog.Nop()),
		repos:    repos,
		durable:  durable,
		sessions: sessions,
		gen:      gen,
		fetcher:  fetcher,
	}
}

func matchFiles() []ingest.UploadedFile {
	csv := []byte("inning,team,runs\n9,Doosan,2\n")
	png := []byte("\x89PNG\r\n\x1a\nfake")
	return []ingest.UploadedFile{
		{Name: "box.csv", Size: int64(len(csv)), Type: "text/csv", LastModified: 1, Data: csv},
		{Name: "hero.png", Size: int64(len(png)), Type: "image/png", LastModified: 1, Data: png},
	}
}

func (e *testEnv) submit(t *testing.T, sessionID string) *models.Draft {
	t.Helper()
	ctx := context.Background()
	ingestID, _ := e.services.Ingest.Open(ctx)
	if _, err := e.services.Ingest.AddFiles(ctx, ingestID, matchFiles()); err != nil {
		t.Fatalf("AddFiles failed: %v", err)
	}
	draft, err := e.services.Draft.Submit(ctx, sessionID, ingestID, &models.SubmitRequest{Subject: "Bears vs Twins", Tags: []string{"KBO"}})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	return draft
}

func TestArticleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft := env.submit(t, "s1")
	if len(draft.Files) != 2 || draft.FileName != "box.csv" {
		t.Errorf("Unexpected submitted draft %+v", draft)
	}
	if !strings.HasPrefix(draft.File, "data:text/csv;base64,") {
		t.Errorf("Expected first file as data URL, got %q", draft.File)
	}

	draft, err := env.services.Draft.Generate(ctx, "s1", "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if env.gen.Topics[0] != "Bears vs Twins" {
		t.Errorf("Empty topic should fall back to subject, got %q", env.gen.Topics[0])
	}
	if p := env.gen.Payloads[0]; p == nil || p.Name != "box.csv" || !strings.HasPrefix(string(p.Data), "inning") {
		t.Errorf("Expected first file payload, got %+v", p)
	}
	if draft.Subject != "Bears walk it off" || draft.Captions["hero.png"] != "The winning swing" {
		t.Errorf("Unexpected generated draft %+v", draft)
	}

	edited := "Doosan won 5-4 after a ninth-inning rally."
	if _, err := env.services.Draft.Update(ctx, &models.DraftEdit{Content: &edited}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	article, err := env.services.Draft.Publish(ctx, &models.PublishRequest{Reporter: "Kim", Email: "kim@example.com"})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if article.Views != 0 || article.Reactions[models.ReactionLike] != 0 || article.Content != edited {
		t.Errorf("Unexpected published article %+v", article)
	}
	if len(article.Date) != len("2006-01-02") {
		t.Errorf("Expected default date, got %q", article.Date)
	}

	env.services.Article.Visit(ctx, article.ID)
	visited, _ := env.services.Article.Visit(ctx, article.ID)
	if visited.Views != 2 {
		t.Errorf("Expected 2 views, got %d", visited.Views)
	}

	liked, counted, err := env.services.Article.React(ctx, "s1", article.ID, models.ReactionLike)
	if err != nil || !counted || liked.Reactions[models.ReactionLike] != 1 {
		t.Fatalf("Expected first like to count, got %+v %v %v", liked, counted, err)
	}
	liked, counted, _ = env.services.Article.React(ctx, "s1", article.ID, models.ReactionLike)
	if counted || liked.Reactions[models.ReactionLike] != 1 {
		t.Errorf("Second like in the same session must be a no-op, got %d", liked.Reactions[models.ReactionLike])
	}
	liked, counted, _ = env.services.Article.React(ctx, "s2", article.ID, models.ReactionLike)
	if !counted || liked.Reactions[models.ReactionLike] != 2 {
		t.Errorf("Like from another session should count, got %d", liked.Reactions[models.ReactionLike])
	}

	if _, err := env.services.Article.AddComment(ctx, article.ID, "", "Great recap"); err != nil {
		t.Fatalf("AddComment failed: %v", err)
	}
	comments, _ := env.services.Article.ListComments(ctx, article.ID)
	if len(comments) != 1 || comments[0].Author != models.AnonymousAuthor {
		t.Errorf("Unexpected comments %+v", comments)
	}

	if err := env.services.Article.Delete(ctx, article.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := env.services.Article.Get(ctx, article.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDraftService_GenerateIsOneShot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.submit(t, "s1")

	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); !errors.Is(err, service.ErrAlreadyRequested) {
		t.Errorf("Expected ErrAlreadyRequested, got %v", err)
	}
	if env.gen.Calls != 1 {
		t.Errorf("Expected 1 generator call, got %d", env.gen.Calls)
	}

	// A new submission clears the guard
	env.submit(t, "s1")
	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); err != nil {
		t.Errorf("Expected generate after resubmit to run, got %v", err)
	}
}

func TestDraftService_GenerateFailureAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.submit(t, "s1")

	env.gen.Err = fmt.Errorf("%w: upstream timeout", generator.ErrGeneration)
	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); !errors.Is(err, generator.ErrGeneration) {
		t.Fatalf("Expected generation error, got %v", err)
	}
	if env.gen.Calls != 1 {
		t.Errorf("Failure must not be retried automatically, got %d calls", env.gen.Calls)
	}

	env.gen.Err = nil
	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); err != nil {
		t.Errorf("Expected manual retry to succeed, got %v", err)
	}
}

func TestDraftService_CancelledGenerationAllowsRetry(t *testing.T) {
	sessions := mocks.NewMockStore(kv.NewMemoryStore(0))
	env := newTestEnvWithStores(t, kv.NewMemoryStore(0), sessions)
	env.submit(t, "s1")

	ctx, cancel := context.WithCancel(context.Background())
	env.gen.OnCall = cancel
	env.gen.Err = context.Canceled
	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}

	env.gen.OnCall = nil
	env.gen.Err = nil
	if _, err := env.services.Draft.Generate(context.Background(), "s1", "topic"); err != nil {
		t.Errorf("Expected retry after a cancelled request to run, got %v", err)
	}
}

func TestDraftService_SaveFailureAllowsRetry(t *testing.T) {
	durable := mocks.NewMockStore(kv.NewMemoryStore(0))
	env := newTestEnvWithStores(t, durable, kv.NewMemoryStore(0))
	ctx := context.Background()
	env.submit(t, "s1")

	durable.Fail(repository.KeyEditContent, errors.New("disk full"))
	if _, err := env.services.Draft.Generate(ctx, "s1", "topic"); !errors.Is(err, repository.ErrWriteFailed) {
		t.Fatalf("Expected ErrWriteFailed, got %v", err)
	}

	delete(durable.FailSet, repository.KeyEditContent)
	draft, err := env.services.Draft.Generate(ctx, "s1", "topic")
	if err != nil {
		t.Fatalf("Expected retry after a failed save to run, got %v", err)
	}
	if draft.Content != "Doosan won 5-4 in the ninth." {
		t.Errorf("Expected generated content saved, got %q", draft.Content)
	}
	if env.gen.Calls != 2 {
		t.Errorf("Expected 2 generator calls, got %d", env.gen.Calls)
	}
}

func TestArticleService_ReactFlagWriteFailure(t *testing.T) {
	sessions := mocks.NewMockStore(kv.NewMemoryStore(0))
	env := newTestEnvWithStores(t, kv.NewMemoryStore(0), sessions)
	ctx := context.Background()
	a, _ := env.repos.Article.Create(ctx, &models.ArticleDraft{Title: "Derby", Content: "Body"})

	sessions.Fail(fmt.Sprintf("reaction_%d_like", a.ID), errors.New("connection reset"))
	for i := 0; i < 2; i++ {
		if _, counted, err := env.services.Article.React(ctx, "s1", a.ID, "like"); err == nil || counted {
			t.Errorf("Call %d: expected failure without counting, got counted=%v err=%v", i, counted, err)
		}
	}

	stored, _ := env.repos.Article.GetByID(ctx, a.ID)
	if stored.Reactions[models.ReactionLike] != 0 {
		t.Errorf("Expected no likes counted, got %d", stored.Reactions[models.ReactionLike])
	}
}

func TestArticleService_ReactReleasesFlagOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, _, err := env.services.Article.React(ctx, "s1", 404, "like"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if v, ok, _ := env.sessions.Get(ctx, "session:s1:reaction_404_like"); ok {
		t.Errorf("Expected flag released after failed reaction, got %q", v)
	}
}

func TestDraftService_SubmitRequiresFilesAndSubject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ingestID, _ := env.services.Ingest.Open(ctx)

	_, err := env.services.Draft.Submit(ctx, "s1", ingestID, &models.SubmitRequest{Subject: " "})
	var invalid *service.InvalidError
	if !errors.As(err, &invalid) || len(invalid.Errors) != 2 {
		t.Fatalf("Expected 2 validation errors, got %v", err)
	}

	if _, err := env.services.Draft.Submit(ctx, "s1", "missing", &models.SubmitRequest{Subject: "x"}); !errors.Is(err, ingest.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestDraftService_PublishQuotaExceeded(t *testing.T) {
	durable := kv.NewMemoryStore(64)
	repos := repository.New(durable, nil)
	manager := ingest.NewManager(ingest.Options{DecodeWorkers: 1}, nil, nil, zerolog.Nop())
	services := service.NewServices(repos, kv.NewMemoryStore(0), manager, mocks.NewMockGenerator(nil), zerolog.Nop())
	ctx := context.Background()

	title, content := "Title", strings.Repeat("long body ", 10)
	services.Draft.Update(ctx, &models.DraftEdit{Subject: &title})
	durable.Set(ctx, repository.KeyEditContent, content[:60])

	_, err := services.Draft.Publish(ctx, &models.PublishRequest{Reporter: "Kim"})
	if !errors.Is(err, repository.ErrWriteFailed) || !errors.Is(err, kv.ErrQuotaExceeded) {
		t.Fatalf("Expected quota write failure, got %v", err)
	}
	if list, _ := services.Article.List(ctx); len(list) != 0 {
		t.Errorf("Failed publish must not persist, got %d articles", len(list))
	}
}

func TestArticleService_OpenLoadsDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.repos.Article.Create(ctx, &models.ArticleDraft{Title: "Old story", Content: "Old body"})

	opened, err := env.services.Article.Open(ctx, a.ID)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened.Views != 1 {
		t.Errorf("Expected 1 view, got %d", opened.Views)
	}
	draft, _ := env.services.Draft.Get(ctx)
	if draft.Subject != "Old story" || draft.Content != "Old body" {
		t.Errorf("Expected draft loaded from article, got %+v", draft)
	}
}

func TestArticleService_Download(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.repos.Article.Create(ctx, &models.ArticleDraft{Content: "body"})

	name, body, err := env.services.Article.Download(ctx, a.ID)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	if name != "untitled.txt" || string(body) != "body" {
		t.Errorf("Unexpected download %s %q", name, body)
	}
}

func TestArticleService_CommentValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.services.Article.AddComment(ctx, 42, "Lee", "hello"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing article, got %v", err)
	}
	a, _ := env.repos.Article.Create(ctx, &models.ArticleDraft{Title: "T", Content: "C"})
	var invalid *service.InvalidError
	if _, err := env.services.Article.AddComment(ctx, a.ID, "Lee", ""); !errors.As(err, &invalid) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestAlarmFlags(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.services.Alarm.Create(ctx, "New article published"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	flags, _ := env.services.Alarm.Flags(ctx)
	if !flags.HasNewAlarm || !flags.HasNewDashboardAlert {
		t.Errorf("Expected both flags set, got %+v", flags)
	}

	d, err := env.services.Article.Dashboard(ctx, 0)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !d.HasNewAlert {
		t.Error("Dashboard should report the pending alert")
	}
	flags, _ = env.services.Alarm.Flags(ctx)
	if !flags.HasNewAlarm || flags.HasNewDashboardAlert {
		t.Errorf("Dashboard should clear only its own flag, got %+v", flags)
	}

	alarms, _ := env.services.Alarm.Visit(ctx)
	if len(alarms) != 1 {
		t.Errorf("Expected 1 alarm, got %d", len(alarms))
	}
	flags, _ = env.services.Alarm.Flags(ctx)
	if flags.HasNewAlarm || flags.HasNewDashboardAlert {
		t.Errorf("Visit should clear both flags, got %+v", flags)
	}
}

func TestArticleService_Dashboard(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a, _ := env.repos.Article.Create(ctx, &models.ArticleDraft{Title: "popular", Content: "c"})
	env.repos.Article.Create(ctx, &models.ArticleDraft{Title: "fresh", Content: "c"})
	env.services.Article.Visit(ctx, a.ID)
	env.services.Article.Visit(ctx, a.ID)
	env.services.Article.React(ctx, "s1", a.ID, models.ReactionLike)

	d, err := env.services.Article.Dashboard(ctx, 1)
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if d.TotalArticles != 2 || d.TotalViews != 2 || d.TotalLikes != 1 {
		t.Errorf("Unexpected totals %+v", d)
	}
	if len(d.TopArticles) != 1 || d.TopArticles[0].Title != "popular" {
		t.Errorf("Unexpected top articles %+v", d.TopArticles)
	}
	if len(d.RecentArticles) != 1 || d.RecentArticles[0].Title != "fresh" {
		t.Errorf("Unexpected recent articles %+v", d.RecentArticles)
	}
}

func TestIngestService_PreloadValidatesDescriptors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id, _ := env.services.Ingest.Open(ctx)

	_, err := env.services.Ingest.Preload(ctx, id, []ingest.Descriptor{{URL: "not a url", Name: "a.csv"}})
	var invalid *service.InvalidError
	if !errors.As(err, &invalid) {
		t.Errorf("Expected validation error, got %v", err)
	}
	if env.fetcher.Calls != 0 {
		t.Error("Invalid descriptors must not be fetched")
	}

	env.fetcher.Files["https://cdn.example.com/box.csv"] = matchFiles()[0]
	res, err := env.services.Ingest.Preload(ctx, id, []ingest.Descriptor{{URL: "https://cdn.example.com/box.csv", Name: "box.csv"}})
	if err != nil || res.Added != 1 {
		t.Fatalf("Expected preload to ingest, got %+v %v", res, err)
	}
	rows, _ := env.services.Ingest.VisibleRows(ctx, id, "box.csv")
	if len(rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(rows))
	}
}
