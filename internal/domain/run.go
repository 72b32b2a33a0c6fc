package domain

import "time"

// RunStatus is the lifecycle state of a calculation run.
type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusSuccess RunStatus = "success"
	RunStatusPartial RunStatus = "partial"
	RunStatusError   RunStatus = "error"
)

// CalculationRun is the audit record of one generateRecommendations call.
type CalculationRun struct {
	ID                       int64      `json:"id" db:"id"`
	CalculationDate          time.Time  `json:"calculation_date" db:"calculation_date"`
	Status                   RunStatus  `json:"status" db:"status"`
	StartedAt                time.Time  `json:"started_at" db:"started_at"`
	CompletedAt              *time.Time `json:"completed_at" db:"completed_at"`
	TotalProducts            int        `json:"total_products" db:"total_products"`
	ProductsProcessed        int        `json:"products_processed" db:"products_processed"`
	RecommendationsGenerated int        `json:"recommendations_generated" db:"recommendations_generated"`
	RecoveredBatches         int        `json:"recovered_batches" db:"recovered_batches"`
	ExecutionTimeSeconds     float64    `json:"execution_time_seconds" db:"execution_time_seconds"`
	MemoryUsageMB            float64    `json:"memory_usage_mb" db:"memory_usage_mb"`
	ErrorCount               int        `json:"error_count" db:"error_count"`
	ErrorMessage             *string    `json:"error_message" db:"error_message"`
}
