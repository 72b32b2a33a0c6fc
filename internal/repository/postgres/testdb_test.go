package postgres

import (
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	name TEXT,
	sku TEXT,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	lead_time_days REAL,
	min_order_qty INTEGER
);

CREATE TABLE inventory_levels (
	product_id INTEGER PRIMARY KEY REFERENCES products(id),
	on_hand INTEGER NOT NULL DEFAULT 0,
	on_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE sales_order_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL REFERENCES products(id),
	quantity INTEGER NOT NULL,
	status TEXT NOT NULL DEFAULT 'completed',
	ordered_at TIMESTAMP NOT NULL
);

CREATE TABLE replenishment_recommendations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id INTEGER NOT NULL,
	product_name TEXT NOT NULL,
	sku TEXT,
	ads REAL NOT NULL CHECK (ads >= 0),
	current_stock INTEGER NOT NULL CHECK (current_stock >= 0),
	target_stock INTEGER NOT NULL,
	recommended_quantity INTEGER NOT NULL,
	calculation_date DATE NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (product_id, calculation_date)
);

CREATE TABLE calculation_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	calculation_date DATE NOT NULL,
	status TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	total_products INTEGER NOT NULL DEFAULT 0,
	products_processed INTEGER NOT NULL DEFAULT 0,
	recommendations_generated INTEGER NOT NULL DEFAULT 0,
	recovered_batches INTEGER NOT NULL DEFAULT 0,
	execution_time_seconds REAL NOT NULL DEFAULT 0,
	memory_usage_mb REAL NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
);
`

// newTestDB opens a fresh in-memory sqlite database with the replenishment
// tables. A single connection keeps every query on the same database.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return Wrap(db, 1)
}
