package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

type inventoryRepository struct {
	db *DB
}

func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

// GetStockLevel returns on-hand and on-order units with the product's lead
// time and minimum order overrides. A product without an inventory row has
// zero stock.
func (r *inventoryRepository) GetStockLevel(ctx context.Context, productID int64) (*domain.StockLevel, error) {
	query := r.db.Rebind(`
		SELECT
			COALESCE(i.on_hand, 0) AS on_hand,
			COALESCE(i.on_order, 0) AS on_order,
			COALESCE(p.lead_time_days, 0) AS lead_time_days,
			COALESCE(p.min_order_qty, 0) AS min_order_qty
		FROM products p
		LEFT JOIN inventory_levels i ON i.product_id = p.id
		WHERE p.id = ?
	`)

	var level domain.StockLevel
	err := r.db.GetContext(ctx, &level, query, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no stock record for product %d", productID)
	}
	if err != nil {
		return nil, classifyErr(fmt.Errorf("failed to get stock level for product %d: %w", productID, err))
	}
	return &level, nil
}
