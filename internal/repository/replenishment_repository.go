package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// RecommendationRepository persists and reads back recommendations keyed by
// (product_id, calculation_date).
type RecommendationRepository interface {
	SaveRecommendations(ctx context.Context, recs []domain.Recommendation) (int, error)
	ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error)
	CountRecommendations(ctx context.Context, filter domain.RecommendationFilter) (int, error)
	GetLatestCalculationDate(ctx context.Context) (*time.Time, error)
}

// CalculationRunRepository stores the audit trail of calculation runs.
type CalculationRunRepository interface {
	CreateRun(ctx context.Context, run *domain.CalculationRun) error
	UpdateProgress(ctx context.Context, runID int64, processed, total int) error
	FinalizeRun(ctx context.Context, run *domain.CalculationRun) error
	GetLatestRun(ctx context.Context) (*domain.CalculationRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error)
}
