package services

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"autopress/internal/models"
	"autopress/internal/store"
)

// UsageTotals is the summed token usage and cost of a set of AI calls.
type UsageTotals struct {
	Calls        int
	InputTokens  int64
	OutputTokens int64
	Cost         float64
}

func (t *UsageTotals) add(l *models.AIUsageLog) {
	t.Calls++
	t.InputTokens += int64(l.InputTokens)
	t.OutputTokens += int64(l.OutputTokens)
	t.Cost += l.Cost
}

// RunCost is the AI spend attributed to one publish run.
type RunCost struct {
	RunID     uuid.UUID
	Total     UsageTotals
	ByService map[string]UsageTotals
	Logs      []*models.AIUsageLog
}

// ServiceTypes returns the service types present in ByService, sorted.
func (c *RunCost) ServiceTypes() []string {
	return slices.Sorted(maps.Keys(c.ByService))
}

// CostService reports AI spend from the usage ledger, overall and per run.
type CostService struct {
	usage store.CostTrackingStore
}

func NewCostService(usage store.CostTrackingStore) *CostService {
	return &CostService{usage: usage}
}

// Recent returns a page of usage logs, newest first.
func (s *CostService) Recent(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	logs, err := s.usage.ListUsage(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing usage: %w", err)
	}
	return logs, nil
}

// Overall sums every recorded call. Calls is left zero; the ledger summary
// does not count rows.
func (s *CostService) Overall(ctx context.Context) (UsageTotals, error) {
	cost, in, out, err := s.usage.GetUsageSummary(ctx)
	if err != nil {
		return UsageTotals{}, fmt.Errorf("summarizing usage: %w", err)
	}
	return UsageTotals{InputTokens: in, OutputTokens: out, Cost: cost}, nil
}

// ForRun aggregates the calls a publish run made, split by service type.
// A run with no recorded usage yields zero totals, not an error.
func (s *CostService) ForRun(ctx context.Context, runID uuid.UUID) (*RunCost, error) {
	logs, err := s.usage.ListUsageForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("listing usage for run %s: %w", runID, err)
	}
	rc := &RunCost{RunID: runID, ByService: make(map[string]UsageTotals), Logs: logs}
	for _, l := range logs {
		rc.Total.add(l)
		t := rc.ByService[l.ServiceType]
		t.add(l)
		rc.ByService[l.ServiceType] = t
	}
	return rc, nil
}
