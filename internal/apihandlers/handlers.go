package apihandlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"autopress/internal/app"
	"autopress/internal/models"
	"autopress/internal/store"
)

// Publisher runs drafts and briefs through the publish pipeline.
type Publisher interface {
	Publish(ctx context.Context, draft models.Draft) models.PublishResult
	PublishBrief(ctx context.Context, brief models.Brief, runID uuid.UUID, trigger string) (models.PublishRun, models.PublishResult)
}

// Taxonomy lists the CMS categories and tags.
type Taxonomy interface {
	ListCategories(ctx context.Context) ([]models.CategoryRecord, error)
	ListTags(ctx context.Context) ([]models.TagRecord, error)
}

// Resolver matches a name against existing names.
type Resolver interface {
	Resolve(ctx context.Context, proposed string, existing []string, threshold float64) (models.SimilarityMatch, bool, error)
	Threshold() float64
}

// Enqueuer queues briefs for the worker.
type Enqueuer interface {
	EnqueuePublishBrief(ctx context.Context, brief models.Brief, trigger string) (string, error)
}

type APIHandler struct {
	Publisher Publisher
	Taxonomy  Taxonomy
	Resolver  Resolver
	Runs      store.RunStore
	Jobs      Enqueuer // nil disables async publishing
}

func NewAPIHandler(a *app.App) *APIHandler {
	h := &APIHandler{
		Publisher: a.PublishService,
		Taxonomy:  a.Gateway,
		Resolver:  a.Resolver,
		Runs:      a.RunStore,
	}
	if a.JobClient != nil {
		h.Jobs = a.JobClient
	}
	return h
}

// PublishRequest is the body of POST /api/v1/publish.
type PublishRequest struct {
	Title   string `json:"title"`
	Keyword string `json:"keyword"`
	Idea    string `json:"idea"`
	Extra   string `json:"extra"`
}

func (r PublishRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 300)),
	)
}

func (r PublishRequest) brief() models.Brief {
	return models.Brief{Title: r.Title, Keyword: r.Keyword, Idea: r.Idea, Extra: r.Extra}
}

// PublishResponse is returned for synchronous publishes.
type PublishResponse struct {
	RunID    string                   `json:"run_id"`
	PostID   int64                    `json:"post_id"`
	Status   string                   `json:"status"`
	Taxonomy []models.TaxonomyOutcome `json:"taxonomy"`
}

// PublishHandler generates and publishes a post from a brief. With
// ?async=true the brief is queued and 202 is returned with the run id.
func (h *APIHandler) PublishHandler(c *gin.Context) {
	var req PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		BadRequest(c, err.Error())
		return
	}

	if async, _ := strconv.ParseBool(c.DefaultQuery("async", "false")); async {
		if h.Jobs == nil {
			Unavailable(c, "background publishing is not configured")
			return
		}
		runID, err := h.Jobs.EnqueuePublishBrief(c.Request.Context(), req.brief(), models.TriggerAPI)
		if err != nil {
			Internal(c, fmt.Sprintf("failed to queue brief: %v", err))
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"run_id": runID, "status": models.RunStatusQueued}})
		return
	}

	run, res := h.Publisher.PublishBrief(c.Request.Context(), req.brief(), uuid.New(), models.TriggerAPI)
	if !res.Success {
		log.WithField("run_id", run.ID).Warnf("API publish failed: %v", res.Err)
		FromError(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": PublishResponse{
		RunID:    run.ID.String(),
		PostID:   *res.PostID,
		Status:   run.Status,
		Taxonomy: res.Taxonomy,
	}})
}

// PublishDraftHandler publishes a ready-made draft without generation.
func (h *APIHandler) PublishDraftHandler(c *gin.Context) {
	var draft models.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	res := h.Publisher.Publish(c.Request.Context(), draft)
	if !res.Success {
		FromError(c, res.Err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"post_id": *res.PostID, "taxonomy": res.Taxonomy}})
}

// ResolveRequest is the body of POST /api/v1/resolve.
type ResolveRequest struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	Threshold *float64 `json:"threshold,omitempty"`
}

func (r ResolveRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Kind, validation.Required, validation.In(string(models.KindCategory), string(models.KindTag))),
		validation.Field(&r.Threshold, validation.Min(-1.0), validation.Max(1.0)),
	)
}

// ResolveResponse reports the best match for a name.
type ResolveResponse struct {
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Matched   bool    `json:"matched"`
	ID        int64   `json:"id,omitempty"`
	MatchName string  `json:"match_name,omitempty"`
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
}

// ResolveHandler is a dry run of taxonomy resolution; nothing is created.
func (h *APIHandler) ResolveHandler(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	var names []string
	var ids []int64
	if req.Kind == string(models.KindCategory) {
		cats, err := h.Taxonomy.ListCategories(ctx)
		if err != nil {
			FromError(c, err)
			return
		}
		for _, cat := range cats {
			names, ids = append(names, cat.Name), append(ids, cat.ID)
		}
	} else {
		tags, err := h.Taxonomy.ListTags(ctx)
		if err != nil {
			FromError(c, err)
			return
		}
		for _, tag := range tags {
			names, ids = append(names, tag.Name), append(ids, tag.ID)
		}
	}

	threshold := h.Resolver.Threshold()
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	match, ok, err := h.Resolver.Resolve(ctx, req.Name, names, threshold)
	if err != nil {
		FromError(c, err)
		return
	}

	resp := ResolveResponse{Name: req.Name, Kind: req.Kind, Matched: ok, Score: match.Score, Threshold: threshold}
	if match.Index >= 0 && match.Index < len(ids) {
		resp.MatchName = match.Name
		if ok {
			resp.ID = ids[match.Index]
		}
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (h *APIHandler) ListCategoriesHandler(c *gin.Context) {
	cats, err := h.Taxonomy.ListCategories(c.Request.Context())
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cats})
}

func (h *APIHandler) ListTagsHandler(c *gin.Context) {
	tags, err := h.Taxonomy.ListTags(c.Request.Context())
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tags})
}

// ListRunsHandler pages through the run ledger.
func (h *APIHandler) ListRunsHandler(c *gin.Context) {
	limit, offset, err := parsePaging(c)
	if err != nil {
		BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	runs, err := h.Runs.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": runs})
}

func (h *APIHandler) GetRunHandler(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		BadRequest(c, "Invalid run id")
		return
	}
	run, err := h.Runs.GetRun(c.Request.Context(), id)
	if err != nil {
		FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

func parsePaging(c *gin.Context) (int, int, error) {
	limit, offset := 20, 0
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			return 0, 0, fmt.Errorf("invalid limit: %s", l)
		}
		limit = parsed
	}
	if o := c.Query("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			return 0, 0, fmt.Errorf("invalid offset: %s", o)
		}
		offset = parsed
	}
	return limit, offset, nil
}

// NewRouter registers every route on a fresh gin engine.
func NewRouter(h *APIHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.POST("/publish", h.PublishHandler)
		v1.POST("/posts", h.PublishDraftHandler)
		v1.POST("/resolve", h.ResolveHandler)
		v1.GET("/categories", h.ListCategoriesHandler)
		v1.GET("/tags", h.ListTagsHandler)

		runs := v1.Group("/runs")
		{
			runs.GET("", h.ListRunsHandler)
			runs.GET("/:id", h.GetRunHandler)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}
