package replenishment

import (
	"testing"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

func TestGenerateSummary(t *testing.T) {
	tests := []struct {
		name string
		recs []domain.Recommendation
		want domain.RecommendationSummary
	}{
		{
			name: "empty set",
			want: domain.RecommendationSummary{},
		},
		{
			name: "mixed set",
			recs: []domain.Recommendation{
				{ProductID: 1, ADS: 1, RecommendedQuantity: 10},
				{ProductID: 2, ADS: 2, RecommendedQuantity: 0},
				{ProductID: 3, ADS: 2.33, RecommendedQuantity: 5},
			},
			want: domain.RecommendationSummary{
				TotalProducts:            3,
				ActionableCount:          2,
				SufficientCount:          1,
				TotalRecommendedQuantity: 15,
				AverageADS:               1.78,
				ActionablePercentage:     66.7,
			},
		},
		{
			name: "nothing actionable",
			recs: []domain.Recommendation{
				{ProductID: 1, ADS: 0.5},
				{ProductID: 2, ADS: 0.25},
			},
			want: domain.RecommendationSummary{
				TotalProducts:   2,
				SufficientCount: 2,
				AverageADS:      0.38,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateSummary(tt.recs); got != tt.want {
				t.Errorf("GenerateSummary = %+v, want %+v", got, tt.want)
			}
		})
	}
}
