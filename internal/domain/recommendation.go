package domain

import (
	"strings"
	"time"
)

// StockStatus is the query-time category derived from stock levels.
type StockStatus string

const (
	StockStatusSufficient StockStatus = "sufficient"
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusCritical   StockStatus = "critical"
	StockStatusLow        StockStatus = "low"
	StockStatusModerate   StockStatus = "moderate"
)

// Recommendation is the per-product reorder suggestion for a calculation date.
type Recommendation struct {
	ProductID           int64     `json:"product_id" db:"product_id"`
	ProductName         string    `json:"product_name" db:"product_name"`
	SKU                 *string   `json:"sku" db:"sku"`
	ADS                 float64   `json:"ads" db:"ads"`
	CurrentStock        int       `json:"current_stock" db:"current_stock"`
	TargetStock         int       `json:"target_stock" db:"target_stock"`
	RecommendedQuantity int       `json:"recommended_quantity" db:"recommended_quantity"`
	CalculationDate     time.Time `json:"calculation_date" db:"calculation_date"`
}

// IsActionable reports whether an order should be placed.
func (r Recommendation) IsActionable() bool {
	return r.RecommendedQuantity > 0
}

// DecoratedRecommendation carries the fields computed at read time.
type DecoratedRecommendation struct {
	Recommendation
	IsActionable bool        `json:"is_actionable"`
	StockStatus  StockStatus `json:"stock_status"`
	Priority     int         `json:"priority"`
}

// ProductInfo is the identity returned by the sales signal provider.
type ProductInfo struct {
	Name string  `json:"name" db:"name"`
	SKU  *string `json:"sku" db:"sku"`
}

// StockRecommendation is the output of the stock policy for one product.
type StockRecommendation struct {
	CurrentStock        int `json:"current_stock"`
	TargetStock         int `json:"target_stock"`
	RecommendedQuantity int `json:"recommended_quantity"`
}

// StockLevel is the inventory position and per-product policy overrides.
type StockLevel struct {
	OnHand       int     `db:"on_hand"`
	OnOrder      int     `db:"on_order"`
	LeadTimeDays float64 `db:"lead_time_days"`
	MinOrderQty  int     `db:"min_order_qty"`
}

// ProgressFunc is invoked synchronously after each batch.
type ProgressFunc func(processed, total int, percent float64)

// CalculationDay truncates t to its UTC calendar day.
func CalculationDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DefaultSortField is used whenever sort_by is outside the allow-list.
const DefaultSortField = "recommended_quantity"

var sortableFields = map[string]struct{}{
	"product_id":           {},
	"product_name":         {},
	"sku":                  {},
	"ads":                  {},
	"current_stock":        {},
	"target_stock":         {},
	"recommended_quantity": {},
	"calculation_date":     {},
}

// NormalizeSortField maps anything outside the allow-list to recommended_quantity.
func NormalizeSortField(field string) string {
	field = strings.ToLower(strings.TrimSpace(field))
	if _, ok := sortableFields[field]; ok {
		return field
	}
	return DefaultSortField
}

// NormalizeSortOrder honours ASC only; everything else is DESC.
func NormalizeSortOrder(order string) string {
	if strings.EqualFold(strings.TrimSpace(order), "ASC") {
		return "ASC"
	}
	return "DESC"
}
