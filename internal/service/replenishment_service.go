package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/cache"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/events"
	"github.com/andresuchdata/autopo-py/replenishment/internal/replenishment"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
	"github.com/andresuchdata/autopo-py/replenishment/internal/storage"
	"github.com/rs/zerolog/log"
)

const defaultRunsLimit = 20

type ReplenishmentService struct {
	engine    *replenishment.Engine
	query     *replenishment.QueryLayer
	runs      repository.CalculationRunRepository
	cache     cache.RecommendationCache
	archive   storage.ReportArchive
	publisher events.Publisher
	now       func() time.Time
}

// NewReplenishmentService wires the facade. runs may be nil; nil cache,
// archive and publisher fall back to no-op implementations.
func NewReplenishmentService(
	engine *replenishment.Engine,
	query *replenishment.QueryLayer,
	runs repository.CalculationRunRepository,
	cacheImpl cache.RecommendationCache,
	archive storage.ReportArchive,
	publisher events.Publisher,
) *ReplenishmentService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopRecommendationCache()
	}
	if archive == nil {
		archive = storage.NewNoopReportArchive()
	}
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &ReplenishmentService{
		engine:    engine,
		query:     query,
		runs:      runs,
		cache:     cacheImpl,
		archive:   archive,
		publisher: publisher,
		now:       time.Now,
	}
}

// GenerateRecommendations runs a calculation and, on success, drops cached
// query results and announces the run.
func (s *ReplenishmentService) GenerateRecommendations(ctx context.Context, productIDs []int64, progress domain.ProgressFunc) ([]domain.Recommendation, error) {
	date := s.engine.Today()
	recs, err := s.engine.GenerateRecommendations(ctx, productIDs, progress)
	if err != nil {
		return nil, err
	}
	s.afterRun(ctx, date, recs)
	return recs, nil
}

// GenerateWeeklyReport runs a full calculation, archives the report and
// returns it with its archive key. The key is empty when archiving is
// disabled or failed.
func (s *ReplenishmentService) GenerateWeeklyReport(ctx context.Context) (*domain.WeeklyReport, string, error) {
	date := s.engine.Today()
	report, err := s.engine.GenerateWeeklyReport(ctx)
	if err != nil {
		return nil, "", err
	}
	s.afterRun(ctx, date, report.AllRecommendations)

	key, err := s.archive.ArchiveWeeklyReport(ctx, report)
	if err != nil {
		log.Warn().Err(err).Msg("replenishment: weekly report archive failed")
		return report, "", nil
	}
	if key != "" {
		log.Info().Str("key", key).Msg("replenishment: weekly report archived")
	}
	return report, key, nil
}

func (s *ReplenishmentService) afterRun(ctx context.Context, date time.Time, recs []domain.Recommendation) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("replenishment: cache invalidation failed")
	}

	var run *domain.CalculationRun
	if s.runs != nil {
		latest, err := s.runs.GetLatestRun(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("replenishment: could not load finished run")
		} else {
			run = latest
		}
	}

	event := events.NewRunCompletedEvent(run, date, recs, s.now())
	if err := s.publisher.PublishRunCompleted(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_id", event.EventID).Msg("replenishment: run event publish failed")
	}
}

func (s *ReplenishmentService) GetRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.DecoratedRecommendation, error) {
	return cached(ctx, s.cache, cache.BuildQueryKey("list", filter), func() ([]domain.DecoratedRecommendation, error) {
		return s.query.GetRecommendations(ctx, filter)
	})
}

func (s *ReplenishmentService) GetRecommendationsPaginated(ctx context.Context, page, perPage int, filter domain.RecommendationFilter) (*domain.PaginatedRecommendations, error) {
	key := cache.BuildQueryKey("paginated", filter, "page="+strconv.Itoa(page), "per_page="+strconv.Itoa(perPage))
	return cached(ctx, s.cache, key, func() (*domain.PaginatedRecommendations, error) {
		return s.query.GetRecommendationsPaginated(ctx, page, perPage, filter)
	})
}

func (s *ReplenishmentService) SearchRecommendations(ctx context.Context, term string, filter domain.RecommendationFilter) ([]domain.DecoratedRecommendation, error) {
	filter.Search = term
	return cached(ctx, s.cache, cache.BuildQueryKey("search", filter), func() ([]domain.DecoratedRecommendation, error) {
		return s.query.SearchRecommendations(ctx, term, filter)
	})
}

func (s *ReplenishmentService) GetTopActionable(ctx context.Context, n int) ([]domain.DecoratedRecommendation, error) {
	return cached(ctx, s.cache, cache.BuildQueryKey("top", domain.RecommendationFilter{Limit: n}), func() ([]domain.DecoratedRecommendation, error) {
		return s.query.GetTopActionable(ctx, n)
	})
}

func (s *ReplenishmentService) GetByADS(ctx context.Context, limit int) ([]domain.DecoratedRecommendation, error) {
	return cached(ctx, s.cache, cache.BuildQueryKey("ads", domain.RecommendationFilter{Limit: limit}), func() ([]domain.DecoratedRecommendation, error) {
		return s.query.GetByADS(ctx, limit)
	})
}

// GetSummary aggregates the recommendations matching filter.
func (s *ReplenishmentService) GetSummary(ctx context.Context, filter domain.RecommendationFilter) (domain.RecommendationSummary, error) {
	filter.Limit, filter.Offset = 0, 0
	return cached(ctx, s.cache, cache.BuildQueryKey("summary", filter), func() (domain.RecommendationSummary, error) {
		decorated, err := s.query.GetRecommendations(ctx, filter)
		if err != nil {
			return domain.RecommendationSummary{}, err
		}
		recs := make([]domain.Recommendation, len(decorated))
		for i, d := range decorated {
			recs[i] = d.Recommendation
		}
		return replenishment.GenerateSummary(recs), nil
	})
}

// GetLatestRun returns nil when no audit trail is kept or no run exists.
func (s *ReplenishmentService) GetLatestRun(ctx context.Context) (*domain.CalculationRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	return s.runs.GetLatestRun(ctx)
}

func (s *ReplenishmentService) ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error) {
	if s.runs == nil {
		return []domain.CalculationRun{}, nil
	}
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	return s.runs.ListRuns(ctx, limit)
}

func (s *ReplenishmentService) ListArchivedReports(ctx context.Context) ([]string, error) {
	return s.archive.ListWeeklyReports(ctx)
}

func (s *ReplenishmentService) GetArchivedReport(ctx context.Context, date string) (*domain.WeeklyReport, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("invalid report date %q: %w", date, err)
	}
	return s.archive.GetWeeklyReport(ctx, date)
}

// cached is a read-through lookup. Cache errors are logged and bypassed.
func cached[T any](ctx context.Context, c cache.RecommendationCache, key string, load func() (T, error)) (T, error) {
	var out T
	if ok, err := c.Get(ctx, key, &out); err == nil && ok {
		return out, nil
	} else if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("replenishment: cache get failed")
	}

	out, err := load()
	if err != nil {
		return out, err
	}

	if err := c.Set(ctx, key, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("replenishment: cache set failed")
	}
	return out, nil
}
