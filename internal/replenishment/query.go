package replenishment

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/andresuchdata/autopo-py/replenishment/internal/repository"
)

const (
	maxPerPage      = 1000
	defaultTopLimit = 10
)

// QueryLayer serves filtered, sorted and paginated views over persisted
// recommendations, decorated with stock status and priority.
type QueryLayer struct {
	store repository.RecommendationRepository
}

func NewQueryLayer(store repository.RecommendationRepository) *QueryLayer {
	return &QueryLayer{store: store}
}

// GetRecommendations returns the decorated rows matching filter. Without an
// explicit calculation date the most recent stored date is used.
func (q *QueryLayer) GetRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.DecoratedRecommendation, error) {
	filter, ok, err := q.resolveFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []domain.DecoratedRecommendation{}, nil
	}

	recs, err := q.store.ListRecommendations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return decorateAll(recs), nil
}

// SearchRecommendations matches product name or SKU by case-insensitive
// substring on the latest calculation date, largest orders first.
func (q *QueryLayer) SearchRecommendations(ctx context.Context, term string, filter domain.RecommendationFilter) ([]domain.DecoratedRecommendation, error) {
	filter.Search = strings.TrimSpace(term)
	filter.CalculationDate = nil
	filter.SortBy = "recommended_quantity"
	filter.SortOrder = "DESC"
	return q.GetRecommendations(ctx, filter)
}

// GetRecommendationsPaginated returns one page plus pagination metadata.
func (q *QueryLayer) GetRecommendationsPaginated(ctx context.Context, page, perPage int, filter domain.RecommendationFilter) (*domain.PaginatedRecommendations, error) {
	filter, ok, err := q.resolveFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	total := 0
	if ok {
		total, err = q.store.CountRecommendations(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("count recommendations: %w", err)
		}
	}

	pagination, offset := Paginate(page, perPage, total)

	data := []domain.DecoratedRecommendation{}
	if ok && total > 0 {
		filter.Limit = pagination.PerPage
		filter.Offset = offset
		recs, err := q.store.ListRecommendations(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("list recommendations: %w", err)
		}
		data = decorateAll(recs)
	}

	return &domain.PaginatedRecommendations{Data: data, Pagination: pagination}, nil
}

// GetByADS lists the fastest-selling products first.
func (q *QueryLayer) GetByADS(ctx context.Context, limit int) ([]domain.DecoratedRecommendation, error) {
	return q.GetRecommendations(ctx, domain.RecommendationFilter{
		SortBy:    "ads",
		SortOrder: "DESC",
		Limit:     limit,
	})
}

// GetActionable lists products that need an order, largest quantity first.
func (q *QueryLayer) GetActionable(ctx context.Context, limit int) ([]domain.DecoratedRecommendation, error) {
	return q.GetRecommendations(ctx, domain.RecommendationFilter{
		ActionableOnly: true,
		SortBy:         "recommended_quantity",
		SortOrder:      "DESC",
		Limit:          limit,
	})
}

// GetTopActionable returns the n largest actionable orders.
func (q *QueryLayer) GetTopActionable(ctx context.Context, n int) ([]domain.DecoratedRecommendation, error) {
	if n <= 0 {
		n = defaultTopLimit
	}
	return q.GetActionable(ctx, n)
}

// resolveFilter normalises sorting and fills in the latest calculation date.
// ok is false when nothing has been stored yet.
func (q *QueryLayer) resolveFilter(ctx context.Context, filter domain.RecommendationFilter) (domain.RecommendationFilter, bool, error) {
	filter.SortBy = domain.NormalizeSortField(filter.SortBy)
	filter.SortOrder = domain.NormalizeSortOrder(filter.SortOrder)
	if filter.Limit < 0 {
		filter.Limit = 0
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	if filter.CalculationDate != nil {
		day := domain.CalculationDay(*filter.CalculationDate)
		filter.CalculationDate = &day
		return filter, true, nil
	}

	latest, err := q.store.GetLatestCalculationDate(ctx)
	if err != nil {
		return filter, false, fmt.Errorf("latest calculation date: %w", err)
	}
	if latest == nil {
		return filter, false, nil
	}
	day := domain.CalculationDay(*latest)
	filter.CalculationDate = &day
	return filter, true, nil
}

// Paginate clamps page and perPage and derives the offset and metadata.
func Paginate(page, perPage, total int) (domain.Pagination, int) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = 1
	case perPage > maxPerPage:
		perPage = maxPerPage
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	return domain.Pagination{
		CurrentPage: page,
		PerPage:     perPage,
		TotalItems:  total,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1,
	}, (page - 1) * perPage
}
