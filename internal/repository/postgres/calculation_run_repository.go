package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

const defaultRunListLimit = 20

const calculationRunColumns = `id, calculation_date, status, started_at, completed_at,
	total_products, products_processed, recommendations_generated, recovered_batches,
	execution_time_seconds, memory_usage_mb, error_count, error_message`

type calculationRunRepository struct {
	db *DB
}

func NewCalculationRunRepository(db *DB) *calculationRunRepository {
	return &calculationRunRepository{db: db}
}

// CreateRun inserts a run in its running state and sets run.ID.
func (r *calculationRunRepository) CreateRun(ctx context.Context, run *domain.CalculationRun) error {
	query := r.db.Rebind(`
		INSERT INTO calculation_runs (
			calculation_date, status, started_at, total_products, products_processed
		) VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowContext(
		ctx, query,
		dayParam(run.CalculationDate), string(run.Status), run.StartedAt.UTC(),
		run.TotalProducts, run.ProductsProcessed,
	).Scan(&run.ID)
	if err != nil {
		return classifyErr(fmt.Errorf("failed to create calculation run: %w", err))
	}
	return nil
}

func (r *calculationRunRepository) UpdateProgress(ctx context.Context, runID int64, processed, total int) error {
	query := r.db.Rebind(`
		UPDATE calculation_runs
		SET products_processed = ?, total_products = ?
		WHERE id = ?
	`)

	res, err := r.db.ExecContext(ctx, query, processed, total, runID)
	if err != nil {
		return classifyErr(fmt.Errorf("failed to update run progress: %w", err))
	}
	return requireRow(res, runID)
}

// FinalizeRun writes the terminal status and metrics.
func (r *calculationRunRepository) FinalizeRun(ctx context.Context, run *domain.CalculationRun) error {
	query := r.db.Rebind(`
		UPDATE calculation_runs
		SET status = ?, completed_at = ?, total_products = ?, products_processed = ?,
		    recommendations_generated = ?, recovered_batches = ?, execution_time_seconds = ?,
		    memory_usage_mb = ?, error_count = ?, error_message = ?
		WHERE id = ?
	`)

	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC()
	}

	res, err := r.db.ExecContext(
		ctx, query,
		string(run.Status), completedAt, run.TotalProducts, run.ProductsProcessed,
		run.RecommendationsGenerated, run.RecoveredBatches, run.ExecutionTimeSeconds,
		run.MemoryUsageMB, run.ErrorCount, run.ErrorMessage,
		run.ID,
	)
	if err != nil {
		return classifyErr(fmt.Errorf("failed to finalize calculation run: %w", err))
	}
	return requireRow(res, run.ID)
}

// GetLatestRun returns nil when no run has been recorded.
func (r *calculationRunRepository) GetLatestRun(ctx context.Context) (*domain.CalculationRun, error) {
	var run domain.CalculationRun
	err := r.db.GetContext(ctx, &run, `
		SELECT `+calculationRunColumns+`
		FROM calculation_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyErr(fmt.Errorf("failed to get latest run: %w", err))
	}
	return &run, nil
}

func (r *calculationRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}

	runs := []domain.CalculationRun{}
	query := r.db.Rebind(`
		SELECT ` + calculationRunColumns + `
		FROM calculation_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, classifyErr(fmt.Errorf("failed to list runs: %w", err))
	}
	return runs, nil
}

func requireRow(res sql.Result, runID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("calculation run %d not found", runID)
	}
	return nil
}
