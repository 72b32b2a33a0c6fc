package replenishment

import (
	"context"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// SalesSignalProvider turns order history into an average-daily-sales figure
// and enumerates the products worth evaluating.
type SalesSignalProvider interface {
	GetActiveProducts(ctx context.Context) ([]int64, error)
	// GetProductInfo returns nil when the product is unknown.
	GetProductInfo(ctx context.Context, productID int64) (*domain.ProductInfo, error)
	CalculateADS(ctx context.Context, productID int64) (float64, error)
}

// StockPolicyEngine turns a product's ADS into target stock and order quantity.
type StockPolicyEngine interface {
	CalculateCompleteRecommendation(ctx context.Context, productID int64, ads float64) (*domain.StockRecommendation, error)
}
