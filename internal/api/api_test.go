package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sports-newsroom-api/internal/api"
	"github.com/sports-newsroom-api/internal/config"
	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/metrics"
	"github.com/sports-newsroom-api/internal/mocks"
	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/service"
)

type testMocks struct {
	article *mocks.MockArticleService
	alarm   *mocks.MockAlarmService
	draft   *mocks.MockDraftService
	ingest  *mocks.MockIngestService
}

func setupTestRouter() (*gin.Engine, *testMocks) {
	gin.SetMode(gin.TestMode)

	m := &testMocks{
		article: mocks.NewMockArticleService(),
		alarm:   mocks.NewMockAlarmService(),
		draft:   mocks.NewMockDraftService(),
		ingest:  mocks.NewMockIngestService(),
	}
	services := &service.Services{
		Article: m.article,
		Alarm:   m.alarm,
		Draft:   m.draft,
		Ingest:  m.ingest,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Ingest: config.IngestConfig{MaxUploadSize: 1024},
	}

	router := api.NewRouter(services, cfg, metrics.New(), zerolog.Nop())
	return router, m
}

func doJSON(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter()

	w := doJSON(router, "GET", "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "sports-newsroom-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupTestRouter()
	doJSON(router, "GET", "/v1/articles", nil, nil)

	w := doJSON(router, "GET", "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("Expected request counter in metrics output")
	}
}

func TestSessionHeader(t *testing.T) {
	router, _ := setupTestRouter()

	w := doJSON(router, "GET", "/v1/articles", nil, nil)
	issued := w.Header().Get("X-Session-ID")
	if issued == "" {
		t.Fatal("Expected a session id to be issued")
	}

	w = doJSON(router, "GET", "/v1/articles", nil, map[string]string{"X-Session-ID": issued})
	if got := w.Header().Get("X-Session-ID"); got != issued {
		t.Errorf("Expected session id echoed, got %s", got)
	}

	w = doJSON(router, "GET", "/v1/articles", nil, map[string]string{"X-Session-ID": "bogus"})
	if got := w.Header().Get("X-Session-ID"); got == "bogus" || got == "" {
		t.Errorf("Expected malformed session id replaced, got %q", got)
	}
}

func TestArticleEndpoints(t *testing.T) {
	router, m := setupTestRouter()
	m.article.Add(models.Article{ID: 10, Title: "Derby", Content: "Body"})

	w := doJSON(router, "GET", "/v1/articles/10", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/v1/articles/99", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/v1/articles/abc", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}

	w = doJSON(router, "POST", "/v1/articles/10/views", nil, nil)
	var article models.Article
	json.Unmarshal(w.Body.Bytes(), &article)
	if article.Views != 1 {
		t.Errorf("Expected 1 view, got %d", article.Views)
	}

	w = doJSON(router, "GET", "/v1/articles/10/download", nil, nil)
	if w.Code != http.StatusOK || w.Body.String() != "Body" {
		t.Errorf("Unexpected download %d %q", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Header().Get("Content-Disposition"), "Derby.txt") {
		t.Errorf("Unexpected Content-Disposition %q", w.Header().Get("Content-Disposition"))
	}

	w = doJSON(router, "DELETE", "/v1/articles/10", nil, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
}

func TestReactionOncePerSession(t *testing.T) {
	router, m := setupTestRouter()
	m.article.Add(models.Article{ID: 10, Title: "Derby"})
	session := map[string]string{"X-Session-ID": "550e8400-e29b-41d4-a716-446655440000"}

	for i, wantCounted := range []bool{true, false} {
		w := doJSON(router, "POST", "/v1/articles/10/reactions/like", nil, session)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		var response struct {
			Article models.Article `json:"article"`
			Counted bool           `json:"counted"`
		}
		json.Unmarshal(w.Body.Bytes(), &response)
		if response.Counted != wantCounted {
			t.Errorf("Call %d: expected counted=%v", i, wantCounted)
		}
		if response.Article.Reactions["like"] != 1 {
			t.Errorf("Call %d: expected 1 like, got %d", i, response.Article.Reactions["like"])
		}
	}
}

func TestCommentEndpoints(t *testing.T) {
	router, m := setupTestRouter()
	m.article.Add(models.Article{ID: 10})

	w := doJSON(router, "POST", "/v1/articles/10/comments", map[string]string{"text": "Nice"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var comment models.Comment
	json.Unmarshal(w.Body.Bytes(), &comment)
	if comment.Author != models.AnonymousAuthor {
		t.Errorf("Expected anonymous author, got %q", comment.Author)
	}

	w = doJSON(router, "DELETE", fmt.Sprintf("/v1/articles/10/comments/%d", comment.ID), nil, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	w = doJSON(router, "DELETE", fmt.Sprintf("/v1/articles/10/comments/%d", comment.ID), nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", &service.InvalidError{}, http.StatusBadRequest},
		{"quota", fmt.Errorf("%w: saved_files: %w", repository.ErrWriteFailed, kv.ErrQuotaExceeded), http.StatusInsufficientStorage},
		{"write failure", fmt.Errorf("%w: saved_files: disk", repository.ErrWriteFailed), http.StatusInternalServerError},
		{"generation", fmt.Errorf("%w: status 503", generator.ErrGeneration), http.StatusBadGateway},
		{"already requested", service.ErrAlreadyRequested, http.StatusConflict},
		{"closed session", ingest.ErrSessionClosed, http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, m := setupTestRouter()
			m.draft.PublishFunc = func(_ context.Context, _ *models.PublishRequest) (*models.Article, error) {
				return nil, tt.err
			}
			w := doJSON(router, "POST", "/v1/drafts/publish", map[string]string{"reporter": "Kim"}, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestAlarmEndpoints(t *testing.T) {
	router, m := setupTestRouter()

	w := doJSON(router, "POST", "/v1/alarms", map[string]string{"message": "Published"}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}

	w = doJSON(router, "GET", "/v1/alarms/flags", nil, nil)
	var flags models.AlarmFlags
	json.Unmarshal(w.Body.Bytes(), &flags)
	if !flags.HasNewAlarm {
		t.Error("Expected new alarm flag")
	}

	doJSON(router, "GET", "/v1/alarms", nil, nil)
	if m.alarm.VisitCalls != 1 || m.alarm.FlagsValue.HasNewAlarm {
		t.Error("Listing alarms should mark them seen")
	}
}

func newUploadRequest(t *testing.T, path string, files map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		part.Write([]byte(content))
		writer.WriteField("lastModified", "1700000000000")
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestIngestEndpoints(t *testing.T) {
	router, m := setupTestRouter()

	w := doJSON(router, "POST", "/v1/ingest/sessions", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	var opened struct {
		ID string `json:"id"`
	}
	json.Unmarshal(w.Body.Bytes(), &opened)

	req := newUploadRequest(t, "/v1/ingest/sessions/"+opened.ID+"/files", map[string]string{"box.csv": "a,b\n1,2\n"})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	added := m.ingest.Added[opened.ID]
	if len(added) != 1 || added[0].Name != "box.csv" || added[0].LastModified != 1700000000000 {
		t.Errorf("Unexpected uploaded files %+v", added)
	}

	req = newUploadRequest(t, "/v1/ingest/sessions/"+opened.ID+"/files", map[string]string{"big.csv": strings.Repeat("x", 2048)})
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for oversized file, got %d", w.Code)
	}

	w = doJSON(router, "POST", "/v1/ingest/sessions/"+opened.ID+"/expansion", map[string]string{"name": "box.csv"}, nil)
	var toggled struct {
		Expanded bool `json:"expanded"`
	}
	json.Unmarshal(w.Body.Bytes(), &toggled)
	if !toggled.Expanded {
		t.Error("Expected expanded after toggle")
	}

	w = doJSON(router, "GET", "/v1/ingest/sessions/unknown/preview", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	w = doJSON(router, "DELETE", "/v1/ingest/sessions/"+opened.ID, nil, nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
}

func TestBlobEndpoint(t *testing.T) {
	router, m := setupTestRouter()
	m.ingest.Blobs["blob:abc"] = ingest.Blob{Type: "image/png", Data: []byte("png")}

	w := doJSON(router, "GET", "/v1/blobs/blob:abc", nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Unexpected blob response %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected nosniff on blob responses")
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("Expected a content security policy on blob responses")
	}
	if w.Header().Get("Content-Disposition") != "" {
		t.Errorf("Raster images should render inline, got %q", w.Header().Get("Content-Disposition"))
	}

	m.ingest.Blobs["blob:svg"] = ingest.Blob{Type: "image/svg+xml", Data: []byte("<svg onload=alert(1)/>")}
	w = doJSON(router, "GET", "/v1/blobs/blob:svg", nil, nil)
	if w.Header().Get("Content-Disposition") != "attachment" {
		t.Errorf("Expected SVG served as attachment, got %q", w.Header().Get("Content-Disposition"))
	}

	w = doJSON(router, "GET", "/v1/blobs/blob:gone", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestDraftGenerateConflict(t *testing.T) {
	router, m := setupTestRouter()
	calls := 0
	m.draft.GenerateFunc = func(_ context.Context, _, _ string) (*models.Draft, error) {
		calls++
		if calls > 1 {
			return nil, service.ErrAlreadyRequested
		}
		return &models.Draft{Content: "ok"}, nil
	}

	if w := doJSON(router, "POST", "/v1/drafts/generate", map[string]string{"topic": "t"}, nil); w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w := doJSON(router, "POST", "/v1/drafts/generate", nil, nil); w.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", w.Code)
	}
}
