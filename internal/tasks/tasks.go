package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"autopress/internal/models"
)

// Defines constants for task types used in Asynq.
const (
	// TypePlanCheck scans the content plan for entries due today.
	TypePlanCheck = "plan:check"
	// TypePublishBrief generates and publishes one brief.
	TypePublishBrief = "publish:brief"
)

// Queue names.
const (
	QueuePublish = "publish"
	QueueDefault = "default"
)

// PublishBriefPayload is the payload of a TypePublishBrief task.
type PublishBriefPayload struct {
	RunID   uuid.UUID    `json:"run_id"`
	Brief   models.Brief `json:"brief"`
	Trigger string       `json:"trigger"`
}

// PlanCheckPayload is the payload of a TypePlanCheck task. An empty Date
// means "today" in the scheduler's time zone.
type PlanCheckPayload struct {
	Date string `json:"date,omitempty"`
}

// NewPublishBriefTask builds a publish task. The run id doubles as the asynq
// task id so a run is never enqueued twice.
func NewPublishBriefTask(p PublishBriefPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", TypePublishBrief, err)
	}
	return asynq.NewTask(TypePublishBrief, b,
		asynq.TaskID(p.RunID.String()),
		asynq.Queue(QueuePublish),
		asynq.MaxRetry(0),
	), nil
}

// NewPlanCheckTask builds a plan check task.
func NewPlanCheckTask(date string) (*asynq.Task, error) {
	b, err := json.Marshal(PlanCheckPayload{Date: date})
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", TypePlanCheck, err)
	}
	return asynq.NewTask(TypePlanCheck, b, asynq.Queue(QueueDefault), asynq.MaxRetry(0)), nil
}
