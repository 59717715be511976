package costtracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"autopress/internal/config"
	"autopress/internal/models"
	"autopress/internal/store"
)

// CostEvent represents a single AI usage event and its cost.
type CostEvent struct {
	Operation    string // models.ServiceTypeEmbedding or models.ServiceTypeGeneration
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	AmountUSD    float64
}

// CostTracker provides methods to record and report costs.
type CostTracker interface {
	RecordCost(ctx context.Context, event CostEvent) error
	TotalCost(ctx context.Context) (float64, error)
}

type runIDKey struct{}

// WithRunID tags ctx so usage recorded under it is linked to a publish run.
func WithRunID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id stored by WithRunID.
func RunIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(runIDKey{}).(uuid.UUID)
	return id, ok
}

// Price computes the cost of a call from per-token pricing. ok is false when
// the model has no pricing entry.
func Price(pricing map[string]config.PricingInfo, model string, inputTokens, outputTokens int) (cost float64, ok bool) {
	p, ok := pricing[model]
	if !ok {
		return 0, false
	}
	return float64(inputTokens)*p.InputPerToken + float64(outputTokens)*p.OutputPerToken, true
}

// New returns a tracker writing usage logs to st. A nil store yields a no-op tracker.
func New(st store.CostTrackingStore) CostTracker {
	if st == nil {
		return &noopCostTracker{}
	}
	return &storeCostTracker{store: st}
}

type storeCostTracker struct {
	store store.CostTrackingStore
}

func (t *storeCostTracker) RecordCost(ctx context.Context, event CostEvent) error {
	entry := &models.AIUsageLog{
		Timestamp:    time.Now(),
		ProviderName: event.Provider,
		ServiceType:  event.Operation,
		ModelName:    event.Model,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		Cost:         event.AmountUSD,
	}
	if id, ok := RunIDFrom(ctx); ok {
		entry.RelatedRunID = &id
	}
	if err := t.store.RecordUsage(ctx, entry); err != nil {
		return err
	}
	log.Debugf("Recorded AI usage: Provider=%s, Service=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
		entry.ProviderName, entry.ServiceType, entry.ModelName, entry.InputTokens, entry.OutputTokens, entry.Cost)
	return nil
}

func (t *storeCostTracker) TotalCost(ctx context.Context) (float64, error) {
	total, _, _, err := t.store.GetUsageSummary(ctx)
	return total, err
}

type noopCostTracker struct{}

func (n *noopCostTracker) RecordCost(ctx context.Context, event CostEvent) error { return nil }
func (n *noopCostTracker) TotalCost(ctx context.Context) (float64, error)        { return 0, nil }
