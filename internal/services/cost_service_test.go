package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopress/internal/models"
	"autopress/internal/store"
)

type usageLedger struct {
	store.NoopCostTrackingStore
	logs []*models.AIUsageLog
	err  error
}

func (u *usageLedger) ListUsageForRun(_ context.Context, runID uuid.UUID) ([]*models.AIUsageLog, error) {
	if u.err != nil {
		return nil, u.err
	}
	var out []*models.AIUsageLog
	for _, l := range u.logs {
		if l.RelatedRunID != nil && *l.RelatedRunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func TestCostService_ForRunSplitsByService(t *testing.T) {
	run, other := uuid.New(), uuid.New()
	ledger := &usageLedger{logs: []*models.AIUsageLog{
		{ServiceType: models.ServiceTypeEmbedding, InputTokens: 10, Cost: 0.01, RelatedRunID: &run},
		{ServiceType: models.ServiceTypeGeneration, InputTokens: 100, OutputTokens: 400, Cost: 0.5, RelatedRunID: &run},
		{ServiceType: models.ServiceTypeEmbedding, InputTokens: 5, Cost: 0.02, RelatedRunID: &run},
		{ServiceType: models.ServiceTypeGeneration, InputTokens: 1, Cost: 9, RelatedRunID: &other},
		{ServiceType: models.ServiceTypeGeneration, InputTokens: 1, Cost: 9},
	}}

	rc, err := NewCostService(ledger).ForRun(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, run, rc.RunID)
	assert.Len(t, rc.Logs, 3)
	assert.Equal(t, 3, rc.Total.Calls)
	assert.Equal(t, int64(115), rc.Total.InputTokens)
	assert.Equal(t, int64(400), rc.Total.OutputTokens)
	assert.InDelta(t, 0.53, rc.Total.Cost, 1e-9)

	assert.Equal(t, []string{models.ServiceTypeEmbedding, models.ServiceTypeGeneration}, rc.ServiceTypes())
	emb := rc.ByService[models.ServiceTypeEmbedding]
	assert.Equal(t, 2, emb.Calls)
	assert.InDelta(t, 0.03, emb.Cost, 1e-9)
	assert.Equal(t, 1, rc.ByService[models.ServiceTypeGeneration].Calls)
}

func TestCostService_ForRunWithoutUsage(t *testing.T) {
	rc, err := NewCostService(&usageLedger{}).ForRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, UsageTotals{}, rc.Total)
	assert.Empty(t, rc.ServiceTypes())
}

func TestCostService_ForRunStoreError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewCostService(&usageLedger{err: boom}).ForRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, boom)
}
