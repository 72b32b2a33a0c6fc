package domain

import "time"

// RecommendationSummary aggregates a recommendation set.
type RecommendationSummary struct {
	TotalProducts            int     `json:"total_products"`
	ActionableCount          int     `json:"actionable_count"`
	SufficientCount          int     `json:"sufficient_count"`
	TotalRecommendedQuantity int     `json:"total_recommended_quantity"`
	AverageADS               float64 `json:"average_ads"`
	ActionablePercentage     float64 `json:"actionable_percentage"`
}

// WeeklyReport is the assembled output of a weekly replenishment run.
type WeeklyReport struct {
	Date               time.Time             `json:"date"`
	GeneratedAt        time.Time             `json:"generated_at"`
	Summary            RecommendationSummary `json:"summary"`
	Actionable         []Recommendation      `json:"actionable_recommendations"`
	AllRecommendations []Recommendation      `json:"all_recommendations"`
}
