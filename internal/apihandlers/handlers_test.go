package apihandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autopress/internal/models"
	"autopress/internal/store"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, draft models.Draft) models.PublishResult {
	args := m.Called(ctx, draft)
	return args.Get(0).(models.PublishResult)
}

func (m *mockPublisher) PublishBrief(ctx context.Context, brief models.Brief, runID uuid.UUID, trigger string) (models.PublishRun, models.PublishResult) {
	args := m.Called(ctx, brief, runID, trigger)
	run := args.Get(0).(models.PublishRun)
	run.ID = runID
	return run, args.Get(1).(models.PublishResult)
}

type fakeTaxonomy struct {
	cats []models.CategoryRecord
	tags []models.TagRecord
	err  error
}

func (f *fakeTaxonomy) ListCategories(context.Context) ([]models.CategoryRecord, error) {
	return f.cats, f.err
}

func (f *fakeTaxonomy) ListTags(context.Context) ([]models.TagRecord, error) { return f.tags, f.err }

// exactResolver matches only identical names.
type exactResolver struct{}

func (exactResolver) Threshold() float64 { return 0.6 }

func (exactResolver) Resolve(_ context.Context, proposed string, existing []string, threshold float64) (models.SimilarityMatch, bool, error) {
	best := models.SimilarityMatch{Index: -1}
	for i, name := range existing {
		if name == proposed {
			best = models.SimilarityMatch{Index: i, Name: name, Score: 1}
		}
	}
	return best, best.Index >= 0 && best.Score >= threshold, nil
}

type fakeRuns struct {
	runs map[string]*models.PublishRun
}

func (f *fakeRuns) SaveRun(_ context.Context, run *models.PublishRun) error {
	f.runs[run.ID.String()] = run
	return nil
}

func (f *fakeRuns) GetRun(_ context.Context, id string) (*models.PublishRun, error) {
	run, ok := f.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return run, nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit, offset int) ([]*models.PublishRun, error) {
	var out []*models.PublishRun
	for _, r := range f.runs {
		out = append(out, r)
	}
	return out, nil
}

type fakeJobs struct {
	runID string
	err   error
	got   models.Brief
}

func (f *fakeJobs) EnqueuePublishBrief(_ context.Context, brief models.Brief, trigger string) (string, error) {
	f.got = brief
	return f.runID, f.err
}

func setupRouter(h *APIHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(h)
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) APIError {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestPublishHandler_Success(t *testing.T) {
	pub := new(mockPublisher)
	postID := int64(42)
	pub.On("PublishBrief", mock.Anything, models.Brief{Title: "Go tips", Keyword: "go"}, mock.AnythingOfType("uuid.UUID"), models.TriggerAPI).
		Return(models.PublishRun{Status: models.RunStatusSucceeded}, models.PublishResult{
			Success:  true,
			PostID:   &postID,
			Taxonomy: []models.TaxonomyOutcome{{Kind: models.KindCategory, Name: "Go", ID: 7}},
		})

	r := setupRouter(&APIHandler{Publisher: pub})
	w := doJSON(t, r, http.MethodPost, "/api/v1/publish", PublishRequest{Title: "Go tips", Keyword: "go"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Data PublishResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(42), resp.Data.PostID)
	assert.Equal(t, models.RunStatusSucceeded, resp.Data.Status)
	_, err := uuid.Parse(resp.Data.RunID)
	assert.NoError(t, err)
	require.Len(t, resp.Data.Taxonomy, 1)
	assert.Equal(t, int64(7), resp.Data.Taxonomy[0].ID)
	pub.AssertExpectations(t)
}

func TestPublishHandler_MissingTitle(t *testing.T) {
	r := setupRouter(&APIHandler{Publisher: new(mockPublisher)})
	w := doJSON(t, r, http.MethodPost, "/api/v1/publish", PublishRequest{Idea: "no title"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", decodeError(t, w).Code)
}

func TestPublishHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"partial taxonomy", &models.PartialTaxonomyFailure{Failed: []models.TaxonomyOutcome{{Name: "x"}}, Err: errors.New("boom")}, http.StatusBadGateway, "taxonomy_failed"},
		{"auth", &models.AuthError{Op: "create post", Status: 401, Err: errors.New("denied")}, http.StatusBadGateway, "cms_auth_failed"},
		{"generation", &models.GenerationError{Reason: "empty", Err: models.ErrEmptyDraft}, http.StatusBadGateway, "generation_failed"},
		{"cms rejected", &models.ValidationError{Op: "create post", Status: 400, Body: "bad"}, http.StatusUnprocessableEntity, "cms_rejected"},
		{"unknown", errors.New("weird"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := new(mockPublisher)
			pub.On("PublishBrief", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(models.PublishRun{Status: models.RunStatusFailed}, models.PublishResult{Err: tt.err})

			r := setupRouter(&APIHandler{Publisher: pub})
			w := doJSON(t, r, http.MethodPost, "/api/v1/publish", PublishRequest{Title: "t"})

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decodeError(t, w).Code)
		})
	}
}

func TestPublishHandler_Async(t *testing.T) {
	jobs := &fakeJobs{runID: "11111111-2222-3333-4444-555555555555"}
	r := setupRouter(&APIHandler{Publisher: new(mockPublisher), Jobs: jobs})

	w := doJSON(t, r, http.MethodPost, "/api/v1/publish?async=true", PublishRequest{Title: "Queued", Idea: "later"})

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"data":{"run_id":"11111111-2222-3333-4444-555555555555","status":"queued"}}`, w.Body.String())
	assert.Equal(t, "Queued", jobs.got.Title)
}

func TestPublishHandler_AsyncWithoutQueue(t *testing.T) {
	r := setupRouter(&APIHandler{Publisher: new(mockPublisher)})
	w := doJSON(t, r, http.MethodPost, "/api/v1/publish?async=1", PublishRequest{Title: "Queued"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPublishDraftHandler(t *testing.T) {
	pub := new(mockPublisher)
	postID := int64(9)
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(d models.Draft) bool { return d.Title == "Ready" })).
		Return(models.PublishResult{Success: true, PostID: &postID})

	r := setupRouter(&APIHandler{Publisher: pub})
	w := doJSON(t, r, http.MethodPost, "/api/v1/posts", models.Draft{Title: "Ready", Content: "<p>x</p>", Slug: "ready"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"data":{"post_id":9,"taxonomy":null}}`, w.Body.String())
}

func TestResolveHandler(t *testing.T) {
	tax := &fakeTaxonomy{
		cats: []models.CategoryRecord{{ID: 3, Category: models.Category{Name: "Tech"}}, {ID: 4, Category: models.Category{Name: "Travel"}}},
	}
	r := setupRouter(&APIHandler{Taxonomy: tax, Resolver: exactResolver{}})

	w := doJSON(t, r, http.MethodPost, "/api/v1/resolve", ResolveRequest{Name: "Travel", Kind: "category"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data ResolveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Matched)
	assert.Equal(t, int64(4), resp.Data.ID)
	assert.Equal(t, 0.6, resp.Data.Threshold)

	w = doJSON(t, r, http.MethodPost, "/api/v1/resolve", ResolveRequest{Name: "Food", Kind: "category"})
	require.Equal(t, http.StatusOK, w.Code)
	var miss struct {
		Data ResolveResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &miss))
	assert.False(t, miss.Data.Matched)
	assert.Zero(t, miss.Data.ID)
}

func TestResolveHandler_Validation(t *testing.T) {
	r := setupRouter(&APIHandler{Taxonomy: &fakeTaxonomy{}, Resolver: exactResolver{}})

	w := doJSON(t, r, http.MethodPost, "/api/v1/resolve", ResolveRequest{Name: "x", Kind: "author"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	too := 2.0
	w = doJSON(t, r, http.MethodPost, "/api/v1/resolve", ResolveRequest{Name: "x", Kind: "tag", Threshold: &too})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListCategories_TransportError(t *testing.T) {
	tax := &fakeTaxonomy{err: &models.TransportError{Op: "list categories", Err: fmt.Errorf("dial tcp: refused")}}
	r := setupRouter(&APIHandler{Taxonomy: tax})

	w := doJSON(t, r, http.MethodGet, "/api/v1/categories", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "cms_unreachable", decodeError(t, w).Code)
}

func TestRunsHandlers(t *testing.T) {
	id := uuid.New()
	runs := &fakeRuns{runs: map[string]*models.PublishRun{
		id.String(): {ID: id, BriefTitle: "Hello", Status: models.RunStatusSucceeded, Trigger: models.TriggerCLI},
	}}
	r := setupRouter(&APIHandler{Runs: runs})

	w := doJSON(t, r, http.MethodGet, "/api/v1/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"brief_title":"Hello"`)

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), id.String())

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	r := setupRouter(&APIHandler{})
	w := doJSON(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
