package primary

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"autopress/internal/models"
	"autopress/internal/store"
)

const runColumns = `id, brief_title, slug, post_id, status, success, error, trigger, started_at, finished_at`

// SaveRun inserts a run, or updates the mutable columns of an existing one.
// brief_title, trigger and started_at keep their first recorded values.
func (s *StoreImpl) SaveRun(ctx context.Context, run *models.PublishRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	query := `
		INSERT INTO publish_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			slug        = EXCLUDED.slug,
			post_id     = EXCLUDED.post_id,
			status      = EXCLUDED.status,
			success     = EXCLUDED.success,
			error       = EXCLUDED.error,
			finished_at = EXCLUDED.finished_at
	`
	_, err := s.db.Exec(ctx, query,
		run.ID,
		run.BriefTitle,
		run.Slug,
		run.PostID,
		run.Status,
		run.Success,
		run.Error,
		run.Trigger,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save publish run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun fetches a run by id.
func (s *StoreImpl) GetRun(ctx context.Context, id string) (*models.PublishRun, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	rows, err := s.db.Query(ctx, `SELECT `+runColumns+` FROM publish_runs WHERE id = $1`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish run %s: %w", id, err)
	}
	run, err := pgx.CollectOneRow[*models.PublishRun](rows, scanRun)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs first.
func (s *StoreImpl) ListRuns(ctx context.Context, limit, offset int) ([]*models.PublishRun, error) {
	query := `SELECT ` + runColumns + ` FROM publish_runs ORDER BY started_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish_runs: %w", err)
	}
	return pgx.CollectRows[*models.PublishRun](rows, scanRun)
}

func scanRun(row pgx.CollectableRow) (*models.PublishRun, error) {
	var run models.PublishRun
	err := row.Scan(
		&run.ID,
		&run.BriefTitle,
		&run.Slug,
		&run.PostID,
		&run.Status,
		&run.Success,
		&run.Error,
		&run.Trigger,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan publish run: %w", err)
	}
	return &run, nil
}
