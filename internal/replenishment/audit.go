package replenishment

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/rs/zerolog/log"
)

const auditWriteTimeout = 5 * time.Second

// auditContext detaches audit writes from the caller's cancellation so a run
// that was cancelled is still recorded with its terminal status.
func auditContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
}

// openRun records the start of a run. Failures are logged and the run
// proceeds without an audit record.
func (e *Engine) openRun(ctx context.Context, date, started time.Time) *domain.CalculationRun {
	if e.runs == nil {
		return nil
	}

	run := &domain.CalculationRun{
		CalculationDate: date,
		Status:          domain.RunStatusRunning,
		StartedAt:       started,
	}
	actx, cancel := auditContext(ctx)
	defer cancel()
	if err := e.runs.CreateRun(actx, run); err != nil {
		log.Warn().Err(err).Msg("replenishment: could not create calculation run, continuing without audit")
		return nil
	}
	return run
}

func (e *Engine) reportProgress(ctx context.Context, run *domain.CalculationRun, processed, total int, progress domain.ProgressFunc) {
	percent := 0.0
	if total > 0 {
		percent = math.Round(float64(processed)/float64(total)*1000) / 10
	}

	log.Info().
		Int("processed", processed).
		Int("total", total).
		Float64("percent", percent).
		Msg("replenishment: progress")

	if progress != nil {
		progress(processed, total, percent)
	}

	if run == nil {
		return
	}
	run.ProductsProcessed = processed
	run.TotalProducts = total
	actx, cancel := auditContext(ctx)
	defer cancel()
	if err := e.runs.UpdateProgress(actx, run.ID, processed, total); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("replenishment: progress update failed")
	}
}

// finalizeRun writes the terminal status and metrics exactly once.
func (e *Engine) finalizeRun(
	ctx context.Context,
	run *domain.CalculationRun,
	stats *runStats,
	generated int,
	started time.Time,
	mem *memTracker,
	runErr error,
) {
	elapsed := e.now().Sub(started).Seconds()
	memMB := mem.deltaMB()

	status := domain.RunStatusSuccess
	switch {
	case runErr != nil:
		status = domain.RunStatusError
	case stats.recoveredBatches > 0:
		status = domain.RunStatusPartial
	}

	event := log.Info()
	if runErr != nil {
		event = log.Error().Err(runErr)
	}
	event.
		Str("status", string(status)).
		Float64("execution_time_seconds", elapsed).
		Float64("memory_usage_mb", memMB).
		Int("error_count", stats.errors).
		Msg("replenishment: run finished")

	if run == nil {
		return
	}

	completed := e.now()
	run.Status = status
	run.CompletedAt = &completed
	run.TotalProducts = stats.total
	run.ProductsProcessed = stats.processed
	run.RecommendationsGenerated = generated
	run.RecoveredBatches = stats.recoveredBatches
	run.ExecutionTimeSeconds = roundTo(elapsed, 3)
	run.MemoryUsageMB = memMB
	run.ErrorCount = stats.errors
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorMessage = &msg
		run.ErrorCount++
	}

	actx, cancel := auditContext(ctx)
	defer cancel()
	if err := e.runs.FinalizeRun(actx, run); err != nil {
		log.Warn().Err(err).Int64("run_id", run.ID).Msg("replenishment: could not finalize calculation run")
	}
}

// memTracker samples heap usage to approximate the peak delta of a run.
type memTracker struct {
	baseline uint64
	peak     uint64
}

func newMemTracker() *memTracker {
	alloc := heapAlloc()
	return &memTracker{baseline: alloc, peak: alloc}
}

func (m *memTracker) sample() {
	if alloc := heapAlloc(); alloc > m.peak {
		m.peak = alloc
	}
}

func (m *memTracker) deltaMB() float64 {
	m.sample()
	if m.peak <= m.baseline {
		return 0
	}
	return roundTo(float64(m.peak-m.baseline)/(1024*1024), 2)
}

func heapAlloc() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
