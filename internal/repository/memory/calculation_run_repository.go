package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// CalculationRunRepository keeps calculation runs in memory. Writes fail on
// a done context, like the SQL repository.
type CalculationRunRepository struct {
	mu     sync.Mutex
	runs   []*domain.CalculationRun
	nextID int64

	CreateErr   error
	ProgressErr error
	FinalizeErr error

	// ProgressTicks records every processed count passed to UpdateProgress.
	ProgressTicks []int
	// Finalizations counts FinalizeRun calls, including failed ones.
	Finalizations int
}

func NewCalculationRunRepository() *CalculationRunRepository {
	return &CalculationRunRepository{}
}

func (r *CalculationRunRepository) CreateRun(ctx context.Context, run *domain.CalculationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.nextID++
	run.ID = r.nextID
	stored := *run
	r.runs = append(r.runs, &stored)
	return nil
}

func (r *CalculationRunRepository) UpdateProgress(ctx context.Context, runID int64, processed, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	r.ProgressTicks = append(r.ProgressTicks, processed)
	if r.ProgressErr != nil {
		return r.ProgressErr
	}
	run := r.find(runID)
	if run == nil {
		return errors.New("calculation run not found")
	}
	run.ProductsProcessed = processed
	run.TotalProducts = total
	return nil
}

func (r *CalculationRunRepository) FinalizeRun(ctx context.Context, run *domain.CalculationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Finalizations++
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.FinalizeErr != nil {
		return r.FinalizeErr
	}
	stored := r.find(run.ID)
	if stored == nil {
		return errors.New("calculation run not found")
	}
	*stored = *run
	return nil
}

func (r *CalculationRunRepository) GetLatestRun(ctx context.Context) (*domain.CalculationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.runs) == 0 {
		return nil, nil
	}
	latest := *r.runs[len(r.runs)-1]
	return &latest, nil
}

func (r *CalculationRunRepository) ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.CalculationRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, *r.runs[i])
	}
	return out, nil
}

func (r *CalculationRunRepository) find(id int64) *domain.CalculationRun {
	for _, run := range r.runs {
		if run.ID == id {
			return run
		}
	}
	return nil
}
