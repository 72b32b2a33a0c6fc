package replenishment

import (
	"math"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// StockStatusFor classifies a recommendation. The first matching rule wins:
// nothing to order, no stock, below 30% of target, below 60% of target.
func StockStatusFor(rec domain.Recommendation) domain.StockStatus {
	switch {
	case rec.RecommendedQuantity <= 0:
		return domain.StockStatusSufficient
	case rec.CurrentStock <= 0:
		return domain.StockStatusOutOfStock
	// integer form of current < 0.3*target and current < 0.6*target
	case rec.CurrentStock*10 < rec.TargetStock*3:
		return domain.StockStatusCritical
	case rec.CurrentStock*10 < rec.TargetStock*6:
		return domain.StockStatusLow
	default:
		return domain.StockStatusModerate
	}
}

// PriorityFor scores a recommendation from 1 (can wait) to 10 (order now).
func PriorityFor(rec domain.Recommendation) int {
	priority := int(math.Min(5, math.Ceil(rec.ADS/2)))

	if rec.CurrentStock <= 0 {
		priority += 3
	}

	switch {
	case rec.RecommendedQuantity > 50:
		priority += 2
	case rec.RecommendedQuantity > 20:
		priority++
	}

	return max(1, min(10, priority))
}

// Decorate attaches the derived fields to a stored recommendation.
func Decorate(rec domain.Recommendation) domain.DecoratedRecommendation {
	return domain.DecoratedRecommendation{
		Recommendation: rec,
		IsActionable:   rec.IsActionable(),
		StockStatus:    StockStatusFor(rec),
		Priority:       PriorityFor(rec),
	}
}

func decorateAll(recs []domain.Recommendation) []domain.DecoratedRecommendation {
	out := make([]domain.DecoratedRecommendation, len(recs))
	for i, rec := range recs {
		out[i] = Decorate(rec)
	}
	return out
}
