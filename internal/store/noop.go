package store

import (
	"context"

	"github.com/google/uuid"

	"autopress/internal/models"
)

// NoopRunStore discards runs. It is used when no database is configured.
type NoopRunStore struct{}

func (NoopRunStore) SaveRun(ctx context.Context, run *models.PublishRun) error { return nil }

func (NoopRunStore) GetRun(ctx context.Context, id string) (*models.PublishRun, error) {
	return nil, ErrDisabled
}

func (NoopRunStore) ListRuns(ctx context.Context, limit, offset int) ([]*models.PublishRun, error) {
	return []*models.PublishRun{}, nil
}

// NoopCostTrackingStore discards usage logs.
type NoopCostTrackingStore struct{}

func (NoopCostTrackingStore) RecordUsage(ctx context.Context, log *models.AIUsageLog) error {
	return nil
}

func (NoopCostTrackingStore) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	return []*models.AIUsageLog{}, nil
}

func (NoopCostTrackingStore) ListUsageForRun(ctx context.Context, runID uuid.UUID) ([]*models.AIUsageLog, error) {
	return []*models.AIUsageLog{}, nil
}

func (NoopCostTrackingStore) GetUsageSummary(ctx context.Context) (float64, int64, int64, error) {
	return 0, 0, 0, nil
}

var (
	_ RunStore          = NoopRunStore{}
	_ CostTrackingStore = NoopCostTrackingStore{}
)
