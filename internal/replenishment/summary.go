package replenishment

import (
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/shopspring/decimal"
)

// GenerateSummary aggregates a recommendation set. An empty set yields zeros.
func GenerateSummary(recs []domain.Recommendation) domain.RecommendationSummary {
	summary := domain.RecommendationSummary{TotalProducts: len(recs)}
	if len(recs) == 0 {
		return summary
	}

	adsSum := decimal.Zero
	for _, rec := range recs {
		if rec.IsActionable() {
			summary.ActionableCount++
			summary.TotalRecommendedQuantity += rec.RecommendedQuantity
		} else {
			summary.SufficientCount++
		}
		adsSum = adsSum.Add(decimal.NewFromFloat(rec.ADS))
	}

	total := decimal.NewFromInt(int64(len(recs)))
	summary.AverageADS = adsSum.Div(total).Round(2).InexactFloat64()
	summary.ActionablePercentage = decimal.NewFromInt(int64(summary.ActionableCount)).
		Mul(decimal.NewFromInt(100)).
		Div(total).
		Round(1).
		InexactFloat64()

	return summary
}
