// Package worker holds the asynq task handlers for scheduled publishing.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"autopress/internal/models"
	"autopress/internal/schedule"
	"autopress/internal/tasks"
)

// BriefPublisher runs one brief through generation and publishing.
type BriefPublisher interface {
	PublishBrief(ctx context.Context, brief models.Brief, runID uuid.UUID, trigger string) (models.PublishRun, models.PublishResult)
}

// BriefEnqueuer queues a brief for publishing.
type BriefEnqueuer interface {
	EnqueuePublishBrief(ctx context.Context, brief models.Brief, trigger string) (string, error)
}

// PlanLoader returns the current content plan.
type PlanLoader func() (*schedule.Plan, error)

// PlanDeps are the dependencies of the plan check handler.
type PlanDeps struct {
	Load     PlanLoader
	Enqueuer BriefEnqueuer
	Location *time.Location
	Now      func() time.Time
}

// HandlePlanCheck enqueues one publish task per plan entry due on the
// requested day.
func HandlePlanCheck(deps PlanDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p tasks.PlanCheckPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %w: %w", tasks.TypePlanCheck, err, asynq.SkipRetry)
		}

		loc := deps.Location
		if loc == nil {
			loc = time.Local
		}
		now := time.Now
		if deps.Now != nil {
			now = deps.Now
		}
		day := now().In(loc)
		if p.Date != "" {
			d, err := schedule.ParseDate(p.Date, loc)
			if err != nil {
				return fmt.Errorf("plan check date: %w: %w", err, asynq.SkipRetry)
			}
			day = d
		}

		plan, err := deps.Load()
		if err != nil {
			return fmt.Errorf("load content plan: %w", err)
		}
		due := plan.Due(day, loc)
		if len(due) == 0 {
			log.Infof("No plan entries for %s", day.Format(schedule.DateLayout))
			return nil
		}

		log.Infof("%d plan entries due on %s", len(due), day.Format(schedule.DateLayout))
		var firstErr error
		for _, e := range due {
			runID, err := deps.Enqueuer.EnqueuePublishBrief(ctx, e.Brief(), models.TriggerScheduled)
			if err != nil {
				log.Errorf("Failed to enqueue %q: %v", e.Title, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			log.WithFields(log.Fields{"run_id": runID, "title": e.Title}).Info("Queued scheduled publish")
		}
		return firstErr
	}
}

// HandlePublishBrief runs the brief carried by the task. A failed publish is
// returned to asynq so the task is recorded as failed; publish tasks are
// enqueued without retries.
func HandlePublishBrief(pub BriefPublisher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p tasks.PublishBriefPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode %s payload: %w: %w", tasks.TypePublishBrief, err, asynq.SkipRetry)
		}
		if p.RunID == uuid.Nil {
			p.RunID = uuid.New()
		}
		trigger := p.Trigger
		if trigger == "" {
			trigger = models.TriggerScheduled
		}

		run, res := pub.PublishBrief(ctx, p.Brief, p.RunID, trigger)
		fields := log.Fields{"run_id": run.ID, "title": p.Brief.Title, "trigger": trigger}
		if !res.Success {
			log.WithFields(fields).Errorf("Publish failed: %v", res.Err)
			return fmt.Errorf("publish %q: %w", p.Brief.Title, res.Err)
		}
		log.WithFields(fields).Infof("Published post %d", *res.PostID)
		return nil
	}
}

// Deps are everything the worker server needs.
type Deps struct {
	Plan      PlanDeps
	Publisher BriefPublisher
}

// NewServeMux registers both task handlers.
func NewServeMux(deps Deps) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePlanCheck, HandlePlanCheck(deps.Plan))
	mux.HandleFunc(tasks.TypePublishBrief, HandlePublishBrief(deps.Publisher))
	return mux
}

// NewServer builds the asynq server with the configured concurrency and
// queue priorities.
func NewServer(opt asynq.RedisConnOpt, concurrency int, queues map[string]int) *asynq.Server {
	return asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			id, _ := asynq.GetTaskID(ctx)
			log.WithFields(log.Fields{"task_id": id, "type": task.Type()}).Errorf("Task failed: %v", err)
		}),
	})
}
