package replenishment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/rs/zerolog/log"
)

// Engine computes, persists and audits replenishment recommendations.
type Engine struct {
	sales  SalesSignalProvider
	policy StockPolicyEngine
	store  repository.RecommendationRepository
	runs   repository.CalculationRunRepository
	cfg    Config

	now   func() time.Time
	sleep func(time.Duration)
}

// NewEngine wires the engine. runs may be nil, in which case no audit trail is kept.
func NewEngine(
	sales SalesSignalProvider,
	policy StockPolicyEngine,
	store repository.RecommendationRepository,
	runs repository.CalculationRunRepository,
	cfg Config,
) *Engine {
	return &Engine{
		sales:  sales,
		policy: policy,
		store:  store,
		runs:   runs,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Today returns the calculation date a run started now would use.
func (e *Engine) Today() time.Time {
	return domain.CalculationDay(e.now())
}

// GenerateSingleRecommendation computes the recommendation for one product.
// It returns nil without error when the product is unknown or its ADS is
// below the configured threshold.
func (e *Engine) GenerateSingleRecommendation(ctx context.Context, productID int64, date time.Time) (*domain.Recommendation, error) {
	info, err := e.sales.GetProductInfo(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product info %d: %w", productID, err)
	}
	if info == nil {
		if e.cfg.Debug {
			log.Debug().Int64("product_id", productID).Msg("replenishment: product not found, skipping")
		}
		return nil, nil
	}

	ads, err := e.sales.CalculateADS(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("ads %d: %w", productID, err)
	}
	if ads < e.cfg.MinADSThreshold {
		if e.cfg.Debug {
			log.Debug().
				Int64("product_id", productID).
				Float64("ads", ads).
				Float64("threshold", e.cfg.MinADSThreshold).
				Msg("replenishment: ads below threshold, skipping")
		}
		return nil, nil
	}

	stock, err := e.policy.CalculateCompleteRecommendation(ctx, productID, ads)
	if err != nil {
		return nil, fmt.Errorf("stock policy %d: %w", productID, err)
	}

	name := info.Name
	if name == "" {
		name = "Unknown"
	}

	return &domain.Recommendation{
		ProductID:           productID,
		ProductName:         name,
		SKU:                 info.SKU,
		ADS:                 ads,
		CurrentStock:        stock.CurrentStock,
		TargetStock:         stock.TargetStock,
		RecommendedQuantity: stock.RecommendedQuantity,
		CalculationDate:     date,
	}, nil
}

// GenerateRecommendations runs a full calculation over productIDs, or over all
// active products when productIDs is empty, and persists the result.
// progress may be nil.
func (e *Engine) GenerateRecommendations(ctx context.Context, productIDs []int64, progress domain.ProgressFunc) ([]domain.Recommendation, error) {
	started := e.now()
	mem := newMemTracker()
	date := domain.CalculationDay(started)

	run := e.openRun(ctx, date, started)
	stats := &runStats{}

	recs, err := e.generate(ctx, productIDs, date, run, stats, mem, progress)

	e.finalizeRun(ctx, run, stats, len(recs), started, mem, err)

	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (e *Engine) generate(
	ctx context.Context,
	productIDs []int64,
	date time.Time,
	run *domain.CalculationRun,
	stats *runStats,
	mem *memTracker,
	progress domain.ProgressFunc,
) ([]domain.Recommendation, error) {
	ids, err := e.resolveProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	stats.total = len(ids)

	log.Info().
		Int("products", len(ids)).
		Int("batch_size", e.cfg.BatchSize).
		Str("date", date.Format("2006-01-02")).
		Msg("replenishment: starting calculation")

	recs, err := e.runBatches(ctx, ids, date, stats, func(processed int) {
		mem.sample()
		e.reportProgress(ctx, run, processed, len(ids), progress)
	})
	if err != nil {
		return nil, err
	}

	saved, err := e.store.SaveRecommendations(ctx, recs)
	if err != nil {
		return nil, fmt.Errorf("save recommendations: %w", err)
	}

	log.Info().
		Int("generated", len(recs)).
		Int("saved", saved).
		Int("recovered_batches", stats.recoveredBatches).
		Int("errors", stats.errors).
		Msg("replenishment: calculation finished")

	return recs, nil
}

func (e *Engine) resolveProducts(ctx context.Context, productIDs []int64) ([]int64, error) {
	if len(productIDs) > 0 {
		return productIDs, nil
	}

	ids, err := e.sales.GetActiveProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve active products: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrNoProducts
	}
	return ids, nil
}

// GenerateWeeklyReport runs a fresh calculation over all active products and
// assembles the actionable subset and summary.
func (e *Engine) GenerateWeeklyReport(ctx context.Context) (*domain.WeeklyReport, error) {
	recs, err := e.GenerateRecommendations(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("generate weekly report: %w", err)
	}

	actionable := make([]domain.Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.IsActionable() {
			actionable = append(actionable, rec)
		}
	}
	sort.SliceStable(actionable, func(i, j int) bool {
		return actionable[i].RecommendedQuantity > actionable[j].RecommendedQuantity
	})

	generatedAt := e.now()
	return &domain.WeeklyReport{
		Date:               domain.CalculationDay(generatedAt),
		GeneratedAt:        generatedAt,
		Summary:            GenerateSummary(recs),
		Actionable:         actionable,
		AllRecommendations: recs,
	}, nil
}

// IsBatchFailure reports whether err must escape per-item containment.
func IsBatchFailure(err error) bool {
	return errors.Is(err, domain.ErrResourceUnavailable)
}
