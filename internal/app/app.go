// Package app assembles the replenishment service from configuration.
package app

import (
	"fmt"

	"github.com/andresuchdata/autopo-py/replenishment/internal/cache"
	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/events"
	"github.com/andresuchdata/autopo-py/replenishment/internal/policy"
	"github.com/andresuchdata/autopo-py/replenishment/internal/replenishment"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository/postgres"
	"github.com/andresuchdata/autopo-py/replenishment/internal/service"
	"github.com/andresuchdata/autopo-py/replenishment/internal/storage"
	"github.com/rs/zerolog/log"
)

// App holds the wired service and the resources that must be released.
type App struct {
	Service   *service.ReplenishmentService
	publisher events.Publisher
}

// New wires repositories, policy, engine and the optional cache, report
// archive and event publisher around db.
func New(db *postgres.DB, cfg *config.Config) (*App, error) {
	sales := postgres.NewSalesSignalRepository(db, cfg.Policy.SalesLookbackDays)
	stockPolicy := policy.NewEngine(postgres.NewInventoryRepository(db), policy.ParamsFrom(cfg.Policy))
	store := postgres.NewRecommendationRepository(db)
	runs := postgres.NewCalculationRunRepository(db)

	engine := replenishment.NewEngine(sales, stockPolicy, store, runs, replenishment.ConfigFrom(cfg.Replenishment))

	queryCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("recommendation cache unavailable, continuing without cache")
		queryCache = cache.NewNoopRecommendationCache()
	}

	archive, err := storage.NewReportArchive(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("report archive: %w", err)
	}

	publisher, err := events.NewPublisher(cfg.Events)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}

	svc := service.NewReplenishmentService(engine, replenishment.NewQueryLayer(store), runs, queryCache, archive, publisher)
	return &App{Service: svc, publisher: publisher}, nil
}

// Close releases the event publisher.
func (a *App) Close() error {
	if a.publisher == nil {
		return nil
	}
	return a.publisher.Close()
}
