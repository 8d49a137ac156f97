package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sports-newsroom-api/internal/generator"
	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/models"
)

// MockGenerator is a mock implementation of generator.Generator
type MockGenerator struct {
	mu       sync.Mutex
	Result   *models.DraftResult
	Err      error
	Calls    int
	Topics   []string
	Payloads []*models.FilePayload
	// OnCall runs inside GenerateDraft before the result is returned
	OnCall func()
}

// Verify interface compliance
var _ generator.Generator = (*MockGenerator)(nil)

func NewMockGenerator(result *models.DraftResult) *MockGenerator {
	return &MockGenerator{Result: result}
}

func (m *MockGenerator) GenerateDraft(ctx context.Context, topic string, file *models.FilePayload) (*models.DraftResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Topics = append(m.Topics, topic)
	m.Payloads = append(m.Payloads, file)
	if m.OnCall != nil {
		m.OnCall()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	r := *m.Result
	return &r, nil
}

// MockFetcher is a mock implementation of ingest.Fetcher serving files by URL
type MockFetcher struct {
	mu    sync.Mutex
	Files map[string]ingest.UploadedFile
	Calls int
}

// Verify interface compliance
var _ ingest.Fetcher = (*MockFetcher)(nil)

func NewMockFetcher() *MockFetcher {
	return &MockFetcher{Files: make(map[string]ingest.UploadedFile)}
}

func (m *MockFetcher) Fetch(ctx context.Context, d ingest.Descriptor) (ingest.UploadedFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	f, ok := m.Files[d.URL]
	if !ok {
		return ingest.UploadedFile{}, fmt.Errorf("HTTP 404 for %s", d.URL)
	}
	if d.Name != "" {
		f.Name = d.Name
	}
	return f, nil
}

// MockStore wraps a kv.Store, honours context cancellation like a network
// backend would, and fails writes to keys listed in FailSet.
type MockStore struct {
	kv.Store

	mu      sync.Mutex
	FailSet map[string]error
}

// Verify interface compliance
var _ kv.Store = (*MockStore)(nil)

func NewMockStore(store kv.Store) *MockStore {
	return &MockStore{Store: store, FailSet: make(map[string]error)}
}

// Fail makes every later Set of key return err.
func (m *MockStore) Fail(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailSet[key] = err
}

func (m *MockStore) failure(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for suffix, err := range m.FailSet {
		if key == suffix || strings.HasSuffix(key, ":"+suffix) {
			return err
		}
	}
	return nil
}

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	return m.Store.Get(ctx, key)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.failure(key); err != nil {
		return err
	}
	return m.Store.Set(ctx, key, value)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Store.Delete(ctx, key)
}
