package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const recommendationColumns = `product_id, product_name, sku, ads, current_stock,
	target_stock, recommended_quantity, calculation_date`

const upsertRecommendationQuery = `
	INSERT INTO replenishment_recommendations (
		product_id, product_name, sku, ads, current_stock,
		target_stock, recommended_quantity, calculation_date
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (product_id, calculation_date)
	DO UPDATE SET
		product_name = EXCLUDED.product_name,
		sku = EXCLUDED.sku,
		ads = EXCLUDED.ads,
		current_stock = EXCLUDED.current_stock,
		target_stock = EXCLUDED.target_stock,
		recommended_quantity = EXCLUDED.recommended_quantity,
		updated_at = CURRENT_TIMESTAMP
`

type recommendationRepository struct {
	db *DB
}

func NewRecommendationRepository(db *DB) *recommendationRepository {
	return &recommendationRepository{db: db}
}

// SaveRecommendations upserts every row keyed on (product_id, calculation_date).
// A row the database rejects is rolled back to its savepoint and skipped;
// the returned count only includes rows that were written.
func (r *recommendationRepository) SaveRecommendations(ctx context.Context, recs []domain.Recommendation) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}

	saved := 0
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(upsertRecommendationQuery))
		if err != nil {
			return classifyErr(fmt.Errorf("failed to prepare statement: %w", err))
		}
		defer stmt.Close()

		for _, rec := range recs {
			if _, err := tx.ExecContext(ctx, "SAVEPOINT recommendation_row"); err != nil {
				return classifyErr(fmt.Errorf("savepoint: %w", err))
			}

			_, err := stmt.ExecContext(
				ctx,
				rec.ProductID,
				rec.ProductName,
				rec.SKU,
				rec.ADS,
				rec.CurrentStock,
				rec.TargetStock,
				rec.RecommendedQuantity,
				dayParam(rec.CalculationDate),
			)
			if err != nil {
				log.Error().
					Err(err).
					Int64("product_id", rec.ProductID).
					Msg("failed to save recommendation, skipping row")
				if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT recommendation_row"); rbErr != nil {
					return classifyErr(fmt.Errorf("rollback to savepoint: %w", rbErr))
				}
				continue
			}

			if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT recommendation_row"); err != nil {
				return classifyErr(fmt.Errorf("release savepoint: %w", err))
			}
			saved++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Debug().Int("saved", saved).Int("total", len(recs)).Msg("recommendations persisted")
	return saved, nil
}

func (r *recommendationRepository) ListRecommendations(ctx context.Context, filter domain.RecommendationFilter) ([]domain.Recommendation, error) {
	preds, err := buildRecommendationPredicates(filter)
	if err != nil {
		return nil, err
	}
	where, args := joinPredicates(preds)
	page, pageArgs := buildPageClause(filter)

	query := `SELECT ` + recommendationColumns + ` FROM replenishment_recommendations` +
		where + buildOrderClause(filter) + page
	args = append(args, pageArgs...)

	var rows []recommendationRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, classifyErr(fmt.Errorf("failed to list recommendations: %w", err))
	}

	recs := make([]domain.Recommendation, len(rows))
	for i, row := range rows {
		recs[i] = row.toDomain()
	}
	return recs, nil
}

func (r *recommendationRepository) CountRecommendations(ctx context.Context, filter domain.RecommendationFilter) (int, error) {
	preds, err := buildRecommendationPredicates(filter)
	if err != nil {
		return 0, err
	}
	where, args := joinPredicates(preds)

	var total int
	query := `SELECT COUNT(*) FROM replenishment_recommendations` + where
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(query), args...); err != nil {
		return 0, classifyErr(fmt.Errorf("failed to count recommendations: %w", err))
	}
	return total, nil
}

// GetLatestCalculationDate returns nil when nothing has been persisted yet.
func (r *recommendationRepository) GetLatestCalculationDate(ctx context.Context) (*time.Time, error) {
	var latest time.Time
	err := r.db.GetContext(ctx, &latest, `
		SELECT calculation_date
		FROM replenishment_recommendations
		ORDER BY calculation_date DESC
		LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyErr(fmt.Errorf("failed to get latest calculation date: %w", err))
	}

	day := domain.CalculationDay(latest)
	return &day, nil
}

type recommendationRow struct {
	ProductID           int64          `db:"product_id"`
	ProductName         string         `db:"product_name"`
	SKU                 sql.NullString `db:"sku"`
	ADS                 float64        `db:"ads"`
	CurrentStock        int            `db:"current_stock"`
	TargetStock         int            `db:"target_stock"`
	RecommendedQuantity int            `db:"recommended_quantity"`
	CalculationDate     time.Time      `db:"calculation_date"`
}

func (row recommendationRow) toDomain() domain.Recommendation {
	rec := domain.Recommendation{
		ProductID:           row.ProductID,
		ProductName:         row.ProductName,
		ADS:                 row.ADS,
		CurrentStock:        row.CurrentStock,
		TargetStock:         row.TargetStock,
		RecommendedQuantity: row.RecommendedQuantity,
		CalculationDate:     domain.CalculationDay(row.CalculationDate),
	}
	if row.SKU.Valid {
		sku := row.SKU.String
		rec.SKU = &sku
	}
	return rec
}
