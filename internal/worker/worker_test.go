package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"autopress/internal/models"
	"autopress/internal/schedule"
	"autopress/internal/tasks"
)

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) EnqueuePublishBrief(ctx context.Context, brief models.Brief, trigger string) (string, error) {
	args := m.Called(ctx, brief, trigger)
	return args.String(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishBrief(ctx context.Context, brief models.Brief, runID uuid.UUID, trigger string) (models.PublishRun, models.PublishResult) {
	args := m.Called(ctx, brief, runID, trigger)
	return args.Get(0).(models.PublishRun), args.Get(1).(models.PublishResult)
}

func staticPlan(entries ...schedule.PlanEntry) PlanLoader {
	return func() (*schedule.Plan, error) { return &schedule.Plan{Entries: entries}, nil }
}

func planTask(t *testing.T, date string) *asynq.Task {
	task, err := tasks.NewPlanCheckTask(date)
	require.NoError(t, err)
	return task
}

func TestHandlePlanCheck_EnqueuesDueEntries(t *testing.T) {
	enq := &mockEnqueuer{}
	enq.On("EnqueuePublishBrief", mock.Anything, mock.MatchedBy(func(b models.Brief) bool { return b.Title == "Today" }), models.TriggerScheduled).
		Return("run-1", nil).Once()

	h := HandlePlanCheck(PlanDeps{
		Load: staticPlan(
			schedule.PlanEntry{Date: "2025-11-12", Title: "Today", Keyword: "k", Idea: "i"},
			schedule.PlanEntry{Date: "2025-11-13", Title: "Tomorrow"},
		),
		Enqueuer: enq,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC) },
	})

	require.NoError(t, h(context.Background(), planTask(t, "")))
	enq.AssertExpectations(t)
}

func TestHandlePlanCheck_ExplicitDate(t *testing.T) {
	enq := &mockEnqueuer{}
	enq.On("EnqueuePublishBrief", mock.Anything, mock.Anything, models.TriggerScheduled).Return("run-2", nil).Once()

	h := HandlePlanCheck(PlanDeps{
		Load:     staticPlan(schedule.PlanEntry{Date: "2025-11-13", Title: "Tomorrow"}),
		Enqueuer: enq,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC) },
	})

	require.NoError(t, h(context.Background(), planTask(t, "2025-11-13")))
	enq.AssertExpectations(t)
}

func TestHandlePlanCheck_NothingDue(t *testing.T) {
	enq := &mockEnqueuer{}
	h := HandlePlanCheck(PlanDeps{
		Load:     staticPlan(schedule.PlanEntry{Date: "2025-01-01", Title: "Old"}),
		Enqueuer: enq,
		Location: time.UTC,
	})

	require.NoError(t, h(context.Background(), planTask(t, "2025-11-12")))
	enq.AssertNotCalled(t, "EnqueuePublishBrief", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandlePlanCheck_ContinuesAfterEnqueueFailure(t *testing.T) {
	enq := &mockEnqueuer{}
	enq.On("EnqueuePublishBrief", mock.Anything, mock.MatchedBy(func(b models.Brief) bool { return b.Title == "A" }), models.TriggerScheduled).
		Return("", errors.New("redis down")).Once()
	enq.On("EnqueuePublishBrief", mock.Anything, mock.MatchedBy(func(b models.Brief) bool { return b.Title == "B" }), models.TriggerScheduled).
		Return("run-b", nil).Once()

	h := HandlePlanCheck(PlanDeps{
		Load: staticPlan(
			schedule.PlanEntry{Date: "2025-11-12", Title: "A"},
			schedule.PlanEntry{Date: "2025-11-12", Title: "B"},
		),
		Enqueuer: enq,
		Location: time.UTC,
	})

	err := h(context.Background(), planTask(t, "2025-11-12"))
	assert.EqualError(t, err, "redis down")
	enq.AssertExpectations(t)
}

func TestHandlePlanCheck_LoadFailure(t *testing.T) {
	h := HandlePlanCheck(PlanDeps{
		Load:     func() (*schedule.Plan, error) { return nil, errors.New("no such file") },
		Enqueuer: &mockEnqueuer{},
	})
	err := h(context.Background(), planTask(t, ""))
	assert.ErrorContains(t, err, "no such file")
}

func TestHandlePlanCheck_BadPayload(t *testing.T) {
	h := HandlePlanCheck(PlanDeps{Load: staticPlan(), Enqueuer: &mockEnqueuer{}})
	err := h(context.Background(), asynq.NewTask(tasks.TypePlanCheck, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandlePublishBrief(t *testing.T) {
	runID := uuid.New()
	brief := models.Brief{Title: "Hello", Keyword: "k"}
	postID := int64(77)

	pub := &mockPublisher{}
	pub.On("PublishBrief", mock.Anything, brief, runID, models.TriggerScheduled).
		Return(models.PublishRun{ID: runID}, models.PublishResult{Success: true, PostID: &postID}).Once()

	task, err := tasks.NewPublishBriefTask(tasks.PublishBriefPayload{RunID: runID, Brief: brief, Trigger: models.TriggerScheduled})
	require.NoError(t, err)

	require.NoError(t, HandlePublishBrief(pub)(context.Background(), task))
	pub.AssertExpectations(t)
}

func TestHandlePublishBrief_FailureIsReturned(t *testing.T) {
	runID := uuid.New()
	cause := &models.DependencyError{Dependency: "generation", Err: errors.New("quota")}

	pub := &mockPublisher{}
	pub.On("PublishBrief", mock.Anything, mock.Anything, runID, models.TriggerCLI).
		Return(models.PublishRun{ID: runID}, models.PublishResult{Err: cause}).Once()

	payload, err := json.Marshal(tasks.PublishBriefPayload{RunID: runID, Brief: models.Brief{Title: "X"}, Trigger: models.TriggerCLI})
	require.NoError(t, err)

	err = HandlePublishBrief(pub)(context.Background(), asynq.NewTask(tasks.TypePublishBrief, payload))
	var de *models.DependencyError
	assert.True(t, errors.As(err, &de))
}
