package postgres

import (
	"fmt"
	"math"
	"strings"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/jmoiron/sqlx"
)

// predicate is one WHERE condition with its bound values, written with '?'
// bind vars and rebound for the driver at the end.
type predicate struct {
	clause string
	args   []interface{}
}

// buildRecommendationPredicates turns the recognised filter set into an
// ordered list of predicates. Limit, offset and sorting are handled apart.
func buildRecommendationPredicates(filter domain.RecommendationFilter) ([]predicate, error) {
	var preds []predicate

	if filter.CalculationDate != nil {
		preds = append(preds, predicate{"calculation_date = ?", []interface{}{dayParam(*filter.CalculationDate)}})
	}

	if filter.MinADS != nil {
		preds = append(preds, predicate{"ads >= ?", []interface{}{*filter.MinADS}})
	}

	if filter.MinRecommendedQuantity != nil {
		preds = append(preds, predicate{"recommended_quantity >= ?", []interface{}{*filter.MinRecommendedQuantity}})
	}

	if len(filter.ProductIDs) > 0 {
		clause, args, err := sqlx.In("product_id IN (?)", filter.ProductIDs)
		if err != nil {
			return nil, fmt.Errorf("expand product ids: %w", err)
		}
		preds = append(preds, predicate{clause, args})
	}

	if filter.ActionableOnly {
		preds = append(preds, predicate{"recommended_quantity > 0", nil})
	}

	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		preds = append(preds, predicate{
			`(LOWER(product_name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(sku, '')) LIKE ? ESCAPE '\')`,
			[]interface{}{pattern, pattern},
		})
	}

	return preds, nil
}

func joinPredicates(preds []predicate) (string, []interface{}) {
	if len(preds) == 0 {
		return "", nil
	}

	clauses := make([]string, len(preds))
	var args []interface{}
	for i, p := range preds {
		clauses[i] = p.clause
		args = append(args, p.args...)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// buildOrderClause only ever interpolates names from the sort allow-list.
func buildOrderClause(filter domain.RecommendationFilter) string {
	field := domain.NormalizeSortField(filter.SortBy)
	order := domain.NormalizeSortOrder(filter.SortOrder)
	return fmt.Sprintf(" ORDER BY %s %s, product_id ASC", field, order)
}

func buildPageClause(filter domain.RecommendationFilter) (string, []interface{}) {
	switch {
	case filter.Limit > 0:
		return " LIMIT ? OFFSET ?", []interface{}{filter.Limit, max(filter.Offset, 0)}
	case filter.Offset > 0:
		return " LIMIT ? OFFSET ?", []interface{}{math.MaxInt32, filter.Offset}
	default:
		return "", nil
	}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
