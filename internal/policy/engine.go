package policy

import (
	"context"
	"fmt"
	"math"

	"github.com/andresuchdata/autopo-py/replenishment/internal/config"
	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// StockReader loads the inventory position of a product.
type StockReader interface {
	GetStockLevel(ctx context.Context, productID int64) (*domain.StockLevel, error)
}

// Params are the days-of-cover inputs of the replenishment policy.
type Params struct {
	LeadTimeDays float64
	SafetyDays   float64
	ReviewDays   float64
}

func ParamsFrom(cfg config.PolicyConfig) Params {
	return Params{
		LeadTimeDays: cfg.LeadTimeDays,
		SafetyDays:   cfg.SafetyDays,
		ReviewDays:   cfg.ReviewDays,
	}
}

// Engine turns average daily sales and the current inventory position into
// a target stock and an order quantity.
type Engine struct {
	stock  StockReader
	params Params
}

func NewEngine(stock StockReader, params Params) *Engine {
	return &Engine{stock: stock, params: params}
}

// Metrics are the intermediate values of one policy evaluation.
type Metrics struct {
	SafetyStock  int
	ReorderPoint int
	TargetStock  int
	Reorder      bool
	Quantity     int
}

// CalculateCompleteRecommendation loads the stock level of productID and
// applies the policy to it.
func (e *Engine) CalculateCompleteRecommendation(ctx context.Context, productID int64, ads float64) (*domain.StockRecommendation, error) {
	level, err := e.stock.GetStockLevel(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("stock level: %w", err)
	}

	m := e.Calculate(ads, *level)
	return &domain.StockRecommendation{
		CurrentStock:        max(level.OnHand, 0),
		TargetStock:         m.TargetStock,
		RecommendedQuantity: m.Quantity,
	}, nil
}

// Calculate applies the policy to one stock level.
func (e *Engine) Calculate(ads float64, level domain.StockLevel) Metrics {
	var m Metrics
	ads = math.Max(0, ads)

	leadTime := e.params.LeadTimeDays
	if level.LeadTimeDays > 0 {
		leadTime = level.LeadTimeDays
	}
	onHand := math.Max(0, float64(level.OnHand))
	onOrder := math.Max(0, float64(level.OnOrder))

	// 1. Safety stock covers SafetyDays of demand
	m.SafetyStock = ceilInt(ads * e.params.SafetyDays)

	// 2. Reorder point = demand over the lead time + safety stock
	m.ReorderPoint = ceilInt(ads*leadTime) + m.SafetyStock

	// 3. Target covers lead time and the review period on top of safety stock
	m.TargetStock = ceilInt(ads*(leadTime+e.params.ReviewDays)) + m.SafetyStock

	// 4. Reorder when on-hand stock has fallen to the reorder point
	m.Reorder = ads > 0 && onHand <= float64(m.ReorderPoint)
	if !m.Reorder {
		return m
	}

	// 5. Order up to target, net of what is already on order
	m.Quantity = ceilInt(float64(m.TargetStock) - onHand - onOrder)

	// 6. Enforce minimum order
	if m.Quantity > 0 && m.Quantity < level.MinOrderQty {
		m.Quantity = level.MinOrderQty
	}
	return m
}

func ceilInt(v float64) int {
	return int(math.Ceil(math.Max(0, v)))
}
