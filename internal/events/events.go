package events

import (
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/google/uuid"
)

const EventTypeRunCompleted = "replenishment.run.completed"

// RunCompletedEvent is published once per finished calculation run.
type RunCompletedEvent struct {
	EventID                  string           `json:"event_id"`
	EventType                string           `json:"event_type"`
	RunID                    int64            `json:"run_id,omitempty"`
	CalculationDate          string           `json:"calculation_date"`
	Status                   domain.RunStatus `json:"status"`
	RecommendationsGenerated int              `json:"recommendations_generated"`
	ActionableCount          int              `json:"actionable_count"`
	TotalRecommendedQuantity int              `json:"total_recommended_quantity"`
	ErrorCount               int              `json:"error_count"`
	OccurredAt               time.Time        `json:"occurred_at"`
}

// NewRunCompletedEvent builds the event for run. run may be nil when no
// audit record was kept; status then reflects only whether recs exist.
func NewRunCompletedEvent(run *domain.CalculationRun, date time.Time, recs []domain.Recommendation, now time.Time) RunCompletedEvent {
	event := RunCompletedEvent{
		EventID:                  uuid.NewString(),
		EventType:                EventTypeRunCompleted,
		CalculationDate:          date.UTC().Format("2006-01-02"),
		Status:                   domain.RunStatusSuccess,
		RecommendationsGenerated: len(recs),
		OccurredAt:               now.UTC(),
	}

	for _, rec := range recs {
		if rec.IsActionable() {
			event.ActionableCount++
			event.TotalRecommendedQuantity += rec.RecommendedQuantity
		}
	}

	if run != nil {
		event.RunID = run.ID
		event.Status = run.Status
		event.ErrorCount = run.ErrorCount
	}
	return event
}
