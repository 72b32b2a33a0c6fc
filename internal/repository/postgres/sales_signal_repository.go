package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

const defaultLookbackDays = 30

// salesSignalRepository derives product identity and average daily sales
// from the products and sales_order_items tables.
type salesSignalRepository struct {
	db           *DB
	lookbackDays int
	now          func() time.Time
}

func NewSalesSignalRepository(db *DB, lookbackDays int) *salesSignalRepository {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	return &salesSignalRepository{db: db, lookbackDays: lookbackDays, now: time.Now}
}

func (r *salesSignalRepository) windowStart() time.Time {
	return domain.CalculationDay(r.now()).AddDate(0, 0, -r.lookbackDays)
}

// GetActiveProducts lists active products that sold at least once inside the
// lookback window, ordered by id.
func (r *salesSignalRepository) GetActiveProducts(ctx context.Context) ([]int64, error) {
	query := r.db.Rebind(`
		SELECT p.id
		FROM products p
		WHERE p.is_active = TRUE
		  AND EXISTS (
			SELECT 1 FROM sales_order_items s
			WHERE s.product_id = p.id
			  AND s.status <> 'cancelled'
			  AND s.ordered_at >= ?
		  )
		ORDER BY p.id
	`)

	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, r.windowStart()); err != nil {
		return nil, classifyErr(fmt.Errorf("failed to list active products: %w", err))
	}
	return ids, nil
}

// GetProductInfo returns nil when the product does not exist.
func (r *salesSignalRepository) GetProductInfo(ctx context.Context, productID int64) (*domain.ProductInfo, error) {
	var row struct {
		Name sql.NullString `db:"name"`
		SKU  sql.NullString `db:"sku"`
	}
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT name, sku FROM products WHERE id = ?`), productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyErr(fmt.Errorf("failed to get product %d: %w", productID, err))
	}

	info := &domain.ProductInfo{Name: row.Name.String}
	if row.SKU.Valid {
		sku := row.SKU.String
		info.SKU = &sku
	}
	return info, nil
}

// CalculateADS is units sold in the lookback window divided by its length.
func (r *salesSignalRepository) CalculateADS(ctx context.Context, productID int64) (float64, error) {
	query := r.db.Rebind(`
		SELECT COALESCE(SUM(quantity), 0)
		FROM sales_order_items
		WHERE product_id = ?
		  AND status <> 'cancelled'
		  AND ordered_at >= ?
	`)

	var units float64
	if err := r.db.GetContext(ctx, &units, query, productID, r.windowStart()); err != nil {
		return 0, classifyErr(fmt.Errorf("failed to sum sales for product %d: %w", productID, err))
	}
	return units / float64(r.lookbackDays), nil
}
