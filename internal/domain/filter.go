package domain

import "time"

// RecommendationFilter is the recognised filter set for recommendation queries.
// Zero values mean "not filtered".
type RecommendationFilter struct {
	CalculationDate        *time.Time
	MinADS                 *float64
	MinRecommendedQuantity *int
	ProductIDs             []int64
	ActionableOnly         bool
	Search                 string
	SortBy                 string
	SortOrder              string
	Limit                  int
	Offset                 int
}

// Pagination is the metadata returned with a paginated recommendation page.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PerPage     int  `json:"per_page"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNextPage bool `json:"has_next_page"`
	HasPrevPage bool `json:"has_prev_page"`
}

type PaginatedRecommendations struct {
	Data       []DecoratedRecommendation `json:"data"`
	Pagination Pagination                `json:"pagination"`
}
