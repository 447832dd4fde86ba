package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/attendance-metrics-go/internal/domain/recalculation"
	"github.com/cmlabs-hris/attendance-metrics-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// RecalculationProgressRepository implements recalculation.ProgressStore on Postgres
type RecalculationProgressRepository struct {
	db *database.DB
}

func NewRecalculationProgressRepository(db *database.DB) *RecalculationProgressRepository {
	return &RecalculationProgressRepository{db: db}
}

var _ recalculation.ProgressStore = (*RecalculationProgressRepository)(nil)

// Migrate creates the checkpoint table.
func (r *RecalculationProgressRepository) Migrate(ctx context.Context) error {
	q := GetQuerier(ctx, r.db)

	query := `
		CREATE TABLE IF NOT EXISTS recalculation_progress (
			process_id TEXT        PRIMARY KEY,
			status     TEXT        NOT NULL,
			start_date DATE        NOT NULL,
			end_date   DATE        NOT NULL,
			state      JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_recalculation_progress_updated_at
			ON recalculation_progress (updated_at DESC);
	`
	if _, err := q.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create recalculation_progress: %w", err)
	}
	return nil
}

// Save implements recalculation.ProgressStore.
func (r *RecalculationProgressRepository) Save(ctx context.Context, progress *recalculation.Progress) error {
	q := GetQuerier(ctx, r.db)

	state, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode recalculation progress: %w", err)
	}

	query := `
		INSERT INTO recalculation_progress (process_id, status, start_date, end_date, state, updated_at)
		VALUES ($1, $2, $3::date, $4::date, $5, $6)
		ON CONFLICT (process_id) DO UPDATE SET
			status     = EXCLUDED.status,
			start_date = EXCLUDED.start_date,
			end_date   = EXCLUDED.end_date,
			state      = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`

	_, err = q.Exec(ctx, query,
		progress.ProcessID,
		string(progress.Status),
		progress.StartDate,
		progress.EndDate,
		state,
		progress.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recalculation progress: %w", err)
	}
	return nil
}

// Load implements recalculation.ProgressStore.
func (r *RecalculationProgressRepository) Load(ctx context.Context, processID string) (*recalculation.Progress, error) {
	q := GetQuerier(ctx, r.db)

	var state []byte
	err := q.QueryRow(ctx, `SELECT state FROM recalculation_progress WHERE process_id = $1`, processID).Scan(&state)
	return decodeProgress(state, err)
}

// Latest implements recalculation.ProgressStore.
func (r *RecalculationProgressRepository) Latest(ctx context.Context) (*recalculation.Progress, error) {
	q := GetQuerier(ctx, r.db)

	var state []byte
	err := q.QueryRow(ctx, `
		SELECT state FROM recalculation_progress
		ORDER BY updated_at DESC, process_id DESC
		LIMIT 1
	`).Scan(&state)
	return decodeProgress(state, err)
}

func decodeProgress(state []byte, err error) (*recalculation.Progress, error) {
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recalculation.ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to load recalculation progress: %w", err)
	}

	var progress recalculation.Progress
	if err := json.Unmarshal(state, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode recalculation progress: %w", err)
	}
	return &progress, nil
}
