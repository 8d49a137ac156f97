package mocks

import (
	"context"
	"sort"

	"github.com/sports-newsroom-api/internal/ingest"
	"github.com/sports-newsroom-api/internal/models"
	"github.com/sports-newsroom-api/internal/repository"
	"github.com/sports-newsroom-api/internal/service"
)

// MockArticleService is a mock implementation of ArticleService
type MockArticleService struct {
	Articles  map[int64]*models.Article
	Comments  map[int64][]models.Comment
	Reacted   map[string]bool
	NextID    int64
	Err       error
	UpdateErr error
}

// Verify interface compliance
var _ service.ArticleService = (*MockArticleService)(nil)

func NewMockArticleService() *MockArticleService {
	return &MockArticleService{
		Articles: make(map[int64]*models.Article),
		Comments: make(map[int64][]models.Comment),
		Reacted:  make(map[string]bool),
		NextID:   1,
	}
}

// Add seeds an article
func (m *MockArticleService) Add(a models.Article) *models.Article {
	a.ApplyDefaults()
	m.Articles[a.ID] = &a
	return &a
}

func (m *MockArticleService) get(id int64) (*models.Article, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := m.Articles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *MockArticleService) List(ctx context.Context) ([]models.Article, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	list := make([]models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (m *MockArticleService) Get(ctx context.Context, id int64) (*models.Article, error) {
	return m.get(id)
}

func (m *MockArticleService) Update(ctx context.Context, id int64, patch *models.ArticlePatch) (*models.Article, error) {
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	a, err := m.get(id)
	if err != nil {
		return nil, err
	}
	patch.Apply(a)
	return a, nil
}

func (m *MockArticleService) Delete(ctx context.Context, id int64) error {
	if _, err := m.get(id); err != nil {
		return err
	}
	delete(m.Articles, id)
	return nil
}

func (m *MockArticleService) Visit(ctx context.Context, id int64) (*models.Article, error) {
	a, err := m.get(id)
	if err != nil {
		return nil, err
	}
	a.Views++
	return a, nil
}

func (m *MockArticleService) Open(ctx context.Context, id int64) (*models.Article, error) {
	return m.Visit(ctx, id)
}

func (m *MockArticleService) React(ctx context.Context, sessionID string, id int64, kind string) (*models.Article, bool, error) {
	a, err := m.get(id)
	if err != nil {
		return nil, false, err
	}
	key := sessionID + "|" + kind
	if m.Reacted[key] {
		return a, false, nil
	}
	m.Reacted[key] = true
	a.Reactions[kind]++
	return a, true, nil
}

func (m *MockArticleService) Download(ctx context.Context, id int64) (string, []byte, error) {
	a, err := m.get(id)
	if err != nil {
		return "", nil, err
	}
	return a.Title + ".txt", []byte(a.Content), nil
}

func (m *MockArticleService) Dashboard(ctx context.Context, limit int) (*models.Dashboard, error) {
	list, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return &models.Dashboard{TotalArticles: len(list), RecentArticles: list, TopArticles: list}, nil
}

func (m *MockArticleService) ListComments(ctx context.Context, id int64) ([]models.Comment, error) {
	return m.Comments[id], nil
}

func (m *MockArticleService) AddComment(ctx context.Context, id int64, author, text string) (*models.Comment, error) {
	if _, err := m.get(id); err != nil {
		return nil, err
	}
	if author == "" {
		author = models.AnonymousAuthor
	}
	c := models.Comment{ID: m.NextID, Author: author, Text: text}
	m.NextID++
	m.Comments[id] = append([]models.Comment{c}, m.Comments[id]...)
	return &c, nil
}

func (m *MockArticleService) DeleteComment(ctx context.Context, id, commentID int64) error {
	for i, c := range m.Comments[id] {
		if c.ID == commentID {
			m.Comments[id] = append(m.Comments[id][:i], m.Comments[id][i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// MockAlarmService is a mock implementation of AlarmService
type MockAlarmService struct {
	Alarms      []models.Alarm
	FlagsValue  models.AlarmFlags
	VisitCalls  int
	CreateError error
}

// Verify interface compliance
var _ service.AlarmService = (*MockAlarmService)(nil)

func NewMockAlarmService() *MockAlarmService {
	return &MockAlarmService{Alarms: make([]models.Alarm, 0)}
}

func (m *MockAlarmService) Visit(ctx context.Context) ([]models.Alarm, error) {
	m.VisitCalls++
	m.FlagsValue = models.AlarmFlags{}
	return m.Alarms, nil
}

func (m *MockAlarmService) Flags(ctx context.Context) (models.AlarmFlags, error) {
	return m.FlagsValue, nil
}

func (m *MockAlarmService) Create(ctx context.Context, message string) (*models.Alarm, error) {
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	a := models.Alarm{ID: int64(len(m.Alarms) + 1), Message: message}
	m.Alarms = append([]models.Alarm{a}, m.Alarms...)
	m.FlagsValue = models.AlarmFlags{HasNewAlarm: true, HasNewDashboardAlert: true}
	return &a, nil
}

func (m *MockAlarmService) Delete(ctx context.Context, id int64) error {
	for i, a := range m.Alarms {
		if a.ID == id {
			m.Alarms = append(m.Alarms[:i], m.Alarms[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

// MockDraftService is a mock implementation of DraftService
type MockDraftService struct {
	Draft        models.Draft
	SubmitFunc   func(ctx context.Context, sessionID, ingestID string, req *models.SubmitRequest) (*models.Draft, error)
	GenerateFunc func(ctx context.Context, sessionID, topic string) (*models.Draft, error)
	PublishFunc  func(ctx context.Context, req *models.PublishRequest) (*models.Article, error)
}

// Verify interface compliance
var _ service.DraftService = (*MockDraftService)(nil)

func NewMockDraftService() *MockDraftService {
	return &MockDraftService{}
}

func (m *MockDraftService) Get(ctx context.Context) (*models.Draft, error) {
	d := m.Draft
	return &d, nil
}

func (m *MockDraftService) Submit(ctx context.Context, sessionID, ingestID string, req *models.SubmitRequest) (*models.Draft, error) {
	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, sessionID, ingestID, req)
	}
	m.Draft.Subject = req.Subject
	m.Draft.Tags = req.Tags
	return m.Get(ctx)
}

func (m *MockDraftService) Generate(ctx context.Context, sessionID, topic string) (*models.Draft, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, sessionID, topic)
	}
	m.Draft.Content = "generated: " + topic
	return m.Get(ctx)
}

func (m *MockDraftService) Update(ctx context.Context, edit *models.DraftEdit) (*models.Draft, error) {
	if edit.Subject != nil {
		m.Draft.Subject = *edit.Subject
	}
	if edit.Content != nil {
		m.Draft.Content = *edit.Content
	}
	return m.Get(ctx)
}

func (m *MockDraftService) Publish(ctx context.Context, req *models.PublishRequest) (*models.Article, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, req)
	}
	return &models.Article{ID: 1, Title: m.Draft.Subject, Content: m.Draft.Content, Date: req.Date}, nil
}

// MockIngestService is a mock implementation of IngestService
type MockIngestService struct {
	Sessions map[string]*ingest.Snapshot
	Blobs    map[string]ingest.Blob
	Added    map[string][]ingest.UploadedFile
	Err      error
}

// Verify interface compliance
var _ service.IngestService = (*MockIngestService)(nil)

func NewMockIngestService() *MockIngestService {
	return &MockIngestService{
		Sessions: make(map[string]*ingest.Snapshot),
		Blobs:    make(map[string]ingest.Blob),
		Added:    make(map[string][]ingest.UploadedFile),
	}
}

func (m *MockIngestService) session(id string) (*ingest.Snapshot, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, ingest.ErrSessionNotFound
	}
	return s, nil
}

func (m *MockIngestService) Open(ctx context.Context) (string, error) {
	id := "session-" + string(rune('a'+len(m.Sessions)))
	m.Sessions[id] = &ingest.Snapshot{Expanded: map[string]bool{}}
	return id, nil
}

func (m *MockIngestService) AddFiles(ctx context.Context, id string, files []ingest.UploadedFile) (ingest.Result, error) {
	s, err := m.session(id)
	if err != nil {
		return ingest.Result{}, err
	}
	m.Added[id] = append(m.Added[id], files...)
	for _, f := range files {
		s.Uploads = append(s.Uploads, ingest.UploadSummary{Name: f.Name, Size: f.Size, Type: f.Type, LastModified: f.LastModified})
	}
	return ingest.Result{Added: len(files), Uploads: len(s.Uploads)}, nil
}

func (m *MockIngestService) Preload(ctx context.Context, id string, descs []ingest.Descriptor) (ingest.Result, error) {
	if _, err := m.session(id); err != nil {
		return ingest.Result{}, err
	}
	return ingest.Result{Added: len(descs)}, nil
}

func (m *MockIngestService) Replace(ctx context.Context, id string, descs []ingest.Descriptor) (ingest.Result, error) {
	return m.Preload(ctx, id, descs)
}

func (m *MockIngestService) ToggleExpansion(ctx context.Context, id, name string) (bool, error) {
	s, err := m.session(id)
	if err != nil {
		return false, err
	}
	s.Expanded[name] = !s.Expanded[name]
	return s.Expanded[name], nil
}

func (m *MockIngestService) Preview(ctx context.Context, id string) (*ingest.Snapshot, error) {
	return m.session(id)
}

func (m *MockIngestService) VisibleRows(ctx context.Context, id, name string) ([][]string, error) {
	s, err := m.session(id)
	if err != nil {
		return nil, err
	}
	return s.VisibleRows(name, ingest.DefaultPreviewRows), nil
}

func (m *MockIngestService) Reset(ctx context.Context, id string) error {
	s, err := m.session(id)
	if err != nil {
		return err
	}
	*s = ingest.Snapshot{Expanded: map[string]bool{}}
	return nil
}

func (m *MockIngestService) Close(ctx context.Context, id string) error {
	if _, err := m.session(id); err != nil {
		return err
	}
	delete(m.Sessions, id)
	return nil
}

func (m *MockIngestService) Blob(ctx context.Context, ref string) (ingest.Blob, bool) {
	b, ok := m.Blobs[ref]
	return b, ok
}
