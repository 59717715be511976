package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"

	"autopress/internal/models"
	"autopress/internal/store"
)

// --- Mock embedding provider ---

type mockEmbedder struct {
	mock.Mock
}

func (m *mockEmbedder) Name() string                 { return "mock" }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Status() store.ProviderStatus { return store.ProviderStatusActive }

func (m *mockEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	vecs, _ := args.Get(0).([][]float32)
	return vecs, args.Error(1)
}

// --- Table embedder: fixed vector per text ---

type tableEmbedder struct {
	vectors map[string][]float32
	calls   atomic.Int32
}

func (e *tableEmbedder) Name() string                 { return "table" }
func (e *tableEmbedder) ModelName() string            { return "table" }
func (e *tableEmbedder) Status() store.ProviderStatus { return store.ProviderStatusActive }

func (e *tableEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

// --- Fake CMS ---

type fakeCMS struct {
	mu sync.Mutex

	categories []models.CategoryRecord
	tags       []models.TagRecord
	nextID     int64
	postID     int64

	listErr           error
	createCategoryErr error
	createTagErr      error
	createPostErr     error
	categoryDelay     time.Duration

	// events records completed creates in order, as "category:<name>" or "tag:<name>".
	events            []string
	createdCategories []models.Category
	createdTags       []models.Tag
	posts             []models.PublishablePost
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{nextID: 100, postID: 1}
}

func (f *fakeCMS) ListCategories(ctx context.Context) ([]models.CategoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.CategoryRecord(nil), f.categories...), nil
}

func (f *fakeCMS) ListTags(ctx context.Context) ([]models.TagRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.TagRecord(nil), f.tags...), nil
}

func (f *fakeCMS) CreateCategory(ctx context.Context, cat models.Category) (*models.CategoryRecord, error) {
	time.Sleep(f.categoryDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createCategoryErr != nil {
		return nil, f.createCategoryErr
	}
	f.nextID++
	f.createdCategories = append(f.createdCategories, cat)
	f.events = append(f.events, "category:"+cat.Name)
	rec := models.CategoryRecord{ID: f.nextID, Category: cat}
	f.categories = append(f.categories, rec)
	return &rec, nil
}

func (f *fakeCMS) CreateTag(ctx context.Context, tag models.Tag) (*models.TagRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createTagErr != nil {
		return nil, f.createTagErr
	}
	f.nextID++
	f.createdTags = append(f.createdTags, tag)
	f.events = append(f.events, "tag:"+tag.Name)
	rec := models.TagRecord{ID: f.nextID, Tag: tag}
	f.tags = append(f.tags, rec)
	return &rec, nil
}

func (f *fakeCMS) CreatePost(ctx context.Context, post models.PublishablePost) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createPostErr != nil {
		return 0, f.createPostErr
	}
	f.posts = append(f.posts, post)
	return f.postID, nil
}

// --- Fake draft producer ---

type fakeProducer struct {
	draft   models.Draft
	err     error
	prompts []string
}

func (p *fakeProducer) Produce(ctx context.Context, brief string) (models.Draft, error) {
	p.prompts = append(p.prompts, brief)
	return p.draft, p.err
}

// --- In-memory run store ---

type memoryRunStore struct {
	mu    sync.Mutex
	saves []models.PublishRun
}

func (m *memoryRunStore) SaveRun(ctx context.Context, run *models.PublishRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, *run)
	return nil
}

func (m *memoryRunStore) GetRun(ctx context.Context, id string) (*models.PublishRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saves) - 1; i >= 0; i-- {
		if m.saves[i].ID.String() == id {
			run := m.saves[i]
			return &run, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memoryRunStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.PublishRun, error) {
	return nil, nil
}
