package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
)

// classifyErr tags connection-level failures so callers can tell a broken
// shared resource from a bad row.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	// context errors stay untagged: a cancelled run stops, it does not retry
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return fmt.Errorf("%w: %v", domain.ErrResourceUnavailable, err)
	}
	return err
}

// dayParam binds a calendar day the same way for every driver.
func dayParam(t time.Time) string {
	return domain.CalculationDay(t).Format("2006-01-02")
}
