package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"

	"autopress/internal/models"
	"autopress/internal/tasks"
)

// Ensure AsynqJobClient implements JobClient
var _ JobClient = (*AsynqJobClient)(nil)

// AsynqJobClient enqueues publish and plan tasks and records queued runs in
// the RunStore.
type AsynqJobClient struct {
	client   *asynq.Client
	runStore RunStore
}

func NewAsynqJobClient(opt asynq.RedisConnOpt, rs RunStore) (*AsynqJobClient, error) {
	if rs == nil {
		return nil, fmt.Errorf("RunStore cannot be nil for AsynqJobClient")
	}
	return &AsynqJobClient{client: asynq.NewClient(opt), runStore: rs}, nil
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue enqueues a task as is.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("AsynqJobClient internal client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		log.Errorf("Failed to enqueue task type '%s': %v", task.Type(), err)
		return nil, err
	}
	log.Debugf("Enqueued task type '%s' id=%s queue=%s", task.Type(), info.ID, info.Queue)
	return info, nil
}

// EnqueuePublishBrief queues a brief and records the run as queued. A failure
// to record is logged; the task is already enqueued at that point.
func (jc *AsynqJobClient) EnqueuePublishBrief(ctx context.Context, brief models.Brief, trigger string) (string, error) {
	runID := uuid.New()
	task, err := tasks.NewPublishBriefTask(tasks.PublishBriefPayload{RunID: runID, Brief: brief, Trigger: trigger})
	if err != nil {
		return "", err
	}
	info, err := jc.Enqueue(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue publish for %q: %w", brief.Title, err)
	}

	run := &models.PublishRun{
		ID:         runID,
		BriefTitle: brief.Title,
		Status:     models.RunStatusQueued,
		Trigger:    trigger,
		StartedAt:  time.Now(),
	}
	if err := jc.runStore.SaveRun(ctx, run); err != nil {
		log.Errorf("Failed to record queued run %s: %v", info.ID, err)
	}
	return runID.String(), nil
}

// EnqueuePlanCheck queues a content plan scan for date (YYYY-MM-DD, empty
// for today).
func (jc *AsynqJobClient) EnqueuePlanCheck(ctx context.Context, date string) error {
	task, err := tasks.NewPlanCheckTask(date)
	if err != nil {
		return err
	}
	if _, err := jc.Enqueue(ctx, task); err != nil {
		return fmt.Errorf("enqueue plan check: %w", err)
	}
	return nil
}
