package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"autopress/internal/models"
)

// --- Provider Status (defined here so services and app share it) ---

type ProviderStatus int

const (
	ProviderStatusUnknown  ProviderStatus = iota // Default zero value
	ProviderStatusActive                         // Provider is operational
	ProviderStatusInactive                       // Provider is temporarily unavailable
	ProviderStatusDisabled                       // Provider is not configured
)

func (s ProviderStatus) String() string {
	switch s {
	case ProviderStatusActive:
		return "active"
	case ProviderStatusInactive:
		return "inactive"
	case ProviderStatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// --- Job Client ---

type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	// EnqueuePublishBrief queues a brief for publishing and returns the run id.
	EnqueuePublishBrief(ctx context.Context, brief models.Brief, trigger string) (string, error)
	EnqueuePlanCheck(ctx context.Context, date string) error
	Close() error
}

// --- Run Store ---

// RunStore is the publish run ledger.
type RunStore interface {
	// SaveRun inserts the run or updates the existing row with the same id.
	SaveRun(ctx context.Context, run *models.PublishRun) error
	GetRun(ctx context.Context, id string) (*models.PublishRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.PublishRun, error)
}

// --- Embedding Service ---

type EmbeddingService interface {
	// GenerateEmbeddings returns one vector per input text, in input order.
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
	Name() string
	Status() ProviderStatus
}

// --- Cost Tracking Store ---

type CostTrackingStore interface {
	RecordUsage(ctx context.Context, log *models.AIUsageLog) error
	ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error)
	ListUsageForRun(ctx context.Context, runID uuid.UUID) ([]*models.AIUsageLog, error)
	GetUsageSummary(ctx context.Context) (totalCost float64, totalInputTokens, totalOutputTokens int64, err error)
}
