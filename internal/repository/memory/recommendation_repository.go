// Package memory provides in-process implementations of the repository
// interfaces. They mirror the SQL semantics closely enough for service and
// handler tests.
package memory

import (
	"cmp"
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

type recommendationKey struct {
	productID int64
	date      string
}

// RecommendationRepository stores recommendations keyed by product and day.
type RecommendationRepository struct {
	mu    sync.RWMutex
	rows  map[recommendationKey]domain.Recommendation
	order []recommendationKey

	// FailProducts makes saving these product ids fail row by row.
	FailProducts map[int64]bool
	// SaveErr makes the whole save fail.
	SaveErr error
	// SaveCalls counts non-empty saves.
	SaveCalls int
}

func NewRecommendationRepository() *RecommendationRepository {
	return &RecommendationRepository{
		rows:         make(map[recommendationKey]domain.Recommendation),
		FailProducts: make(map[int64]bool),
	}
}

func keyOf(rec domain.Recommendation) recommendationKey {
	return recommendationKey{productID: rec.ProductID, date: dayString(rec.CalculationDate)}
}

func dayString(t time.Time) string {
	return domain.CalculationDay(t).Format("2006-01-02")
}

func (r *RecommendationRepository) SaveRecommendations(ctx context.Context, recs []domain.Recommendation) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.SaveCalls++
	if r.SaveErr != nil {
		return 0, r.SaveErr
	}

	saved := 0
	for _, rec := range recs {
		if r.FailProducts[rec.ProductID] {
			continue
		}
		rec.CalculationDate = domain.CalculationDay(rec.CalculationDate)
		key := keyOf(rec)
		if _, exists := r.rows[key]; !exists {
			r.order = append(r.order, key)
		}
		r.rows[key] = rec
		saved++
	}
	return saved, nil
}

func (r *RecommendationRepository) ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(filter)
	sortRecommendations(matched, domain.NormalizeSortField(filter.SortBy), domain.NormalizeSortOrder(filter.SortOrder))

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Recommendation{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *RecommendationRepository) CountRecommendations(ctx context.Context, filter domain.RecommendationFilter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.match(filter)), nil
}

func (r *RecommendationRepository) GetLatestCalculationDate(ctx context.Context) (*time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *time.Time
	for _, rec := range r.rows {
		d := rec.CalculationDate
		if latest == nil || d.After(*latest) {
			latest = &d
		}
	}
	return latest, nil
}

// Len returns the number of stored rows.
func (r *RecommendationRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

// Get returns the stored row for a product and day.
func (r *RecommendationRepository) Get(productID int64, date time.Time) (domain.Recommendation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.rows[recommendationKey{productID: productID, date: dayString(date)}]
	if !ok {
		return domain.Recommendation{}, errors.New("recommendation not found")
	}
	return rec, nil
}

func (r *RecommendationRepository) match(filter domain.RecommendationFilter) []domain.Recommendation {
	var ids map[int64]bool
	if len(filter.ProductIDs) > 0 {
		ids = make(map[int64]bool, len(filter.ProductIDs))
		for _, id := range filter.ProductIDs {
			ids[id] = true
		}
	}
	term := strings.ToLower(strings.TrimSpace(filter.Search))

	out := make([]domain.Recommendation, 0, len(r.order))
	for _, key := range r.order {
		rec := r.rows[key]
		if filter.CalculationDate != nil && key.date != dayString(*filter.CalculationDate) {
			continue
		}
		if filter.MinADS != nil && rec.ADS < *filter.MinADS {
			continue
		}
		if filter.MinRecommendedQuantity != nil && rec.RecommendedQuantity < *filter.MinRecommendedQuantity {
			continue
		}
		if ids != nil && !ids[rec.ProductID] {
			continue
		}
		if filter.ActionableOnly && rec.RecommendedQuantity <= 0 {
			continue
		}
		if term != "" {
			sku := ""
			if rec.SKU != nil {
				sku = strings.ToLower(*rec.SKU)
			}
			if !strings.Contains(strings.ToLower(rec.ProductName), term) && !strings.Contains(sku, term) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func sortRecommendations(recs []domain.Recommendation, field, order string) {
	compare := func(a, b domain.Recommendation) int {
		switch field {
		case "product_id":
			return cmp.Compare(a.ProductID, b.ProductID)
		case "product_name":
			return cmp.Compare(a.ProductName, b.ProductName)
		case "sku":
			return cmp.Compare(deref(a.SKU), deref(b.SKU))
		case "ads":
			return cmp.Compare(a.ADS, b.ADS)
		case "current_stock":
			return cmp.Compare(a.CurrentStock, b.CurrentStock)
		case "target_stock":
			return cmp.Compare(a.TargetStock, b.TargetStock)
		case "calculation_date":
			return a.CalculationDate.Compare(b.CalculationDate)
		default:
			return cmp.Compare(a.RecommendedQuantity, b.RecommendedQuantity)
		}
	}

	sort.SliceStable(recs, func(i, j int) bool {
		c := compare(recs[i], recs[j])
		if c == 0 {
			return recs[i].ProductID < recs[j].ProductID
		}
		if order == "ASC" {
			return c < 0
		}
		return c > 0
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
