package costtracker

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autopress/internal/config"
	"autopress/internal/models"
)

type memoryUsage struct {
	logs []*models.AIUsageLog
}

func (m *memoryUsage) RecordUsage(_ context.Context, l *models.AIUsageLog) error {
	m.logs = append(m.logs, l)
	return nil
}

func (m *memoryUsage) ListUsage(context.Context, int, int) ([]*models.AIUsageLog, error) {
	return m.logs, nil
}

func (m *memoryUsage) ListUsageForRun(_ context.Context, runID uuid.UUID) ([]*models.AIUsageLog, error) {
	var out []*models.AIUsageLog
	for _, l := range m.logs {
		if l.RelatedRunID != nil && *l.RelatedRunID == runID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryUsage) GetUsageSummary(context.Context) (float64, int64, int64, error) {
	var cost float64
	var in, out int64
	for _, l := range m.logs {
		cost += l.Cost
		in += int64(l.InputTokens)
		out += int64(l.OutputTokens)
	}
	return cost, in, out, nil
}

func TestPrice(t *testing.T) {
	pricing := map[string]config.PricingInfo{
		"gpt-4o-mini": {InputPerToken: 0.000001, OutputPerToken: 0.000002},
	}
	cost, ok := Price(pricing, "gpt-4o-mini", 1000, 500)
	require.True(t, ok)
	assert.InDelta(t, 0.002, cost, 1e-12)

	_, ok = Price(pricing, "unknown", 1, 1)
	assert.False(t, ok)
}

func TestRecordCost_LinksRun(t *testing.T) {
	st := &memoryUsage{}
	tracker := New(st)
	runID := uuid.New()

	ctx := WithRunID(context.Background(), runID)
	require.NoError(t, tracker.RecordCost(ctx, CostEvent{
		Operation: models.ServiceTypeGeneration, Provider: "openai", Model: "gpt-4o-mini",
		InputTokens: 10, OutputTokens: 20, AmountUSD: 0.5,
	}))
	require.NoError(t, tracker.RecordCost(context.Background(), CostEvent{
		Operation: models.ServiceTypeEmbedding, Provider: "openai", AmountUSD: 0.25,
	}))

	require.Len(t, st.logs, 2)
	require.NotNil(t, st.logs[0].RelatedRunID)
	assert.Equal(t, runID, *st.logs[0].RelatedRunID)
	assert.Nil(t, st.logs[1].RelatedRunID)

	total, err := tracker.TotalCost(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.75, total, 1e-12)
}

func TestNew_NilStoreIsNoop(t *testing.T) {
	tracker := New(nil)
	assert.NoError(t, tracker.RecordCost(context.Background(), CostEvent{AmountUSD: 1}))
	total, err := tracker.TotalCost(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}
