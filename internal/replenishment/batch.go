package replenishment

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/autopo-py/replenishment/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type runStats struct {
	total            int
	processed        int
	errors           int
	recoveredBatches int
}

type itemResult struct {
	rec *domain.Recommendation
	err error
}

// runBatches partitions ids into contiguous batches and processes them in
// order. afterBatch receives the cumulative number of processed ids.
func (e *Engine) runBatches(
	ctx context.Context,
	ids []int64,
	date time.Time,
	stats *runStats,
	afterBatch func(processed int),
) ([]domain.Recommendation, error) {
	out := make([]domain.Recommendation, 0, len(ids))
	batchCount := (len(ids) + e.cfg.BatchSize - 1) / e.cfg.BatchSize

	for start, n := 0, 0; start < len(ids); start, n = start+e.cfg.BatchSize, n+1 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", n+1, batchCount, err)
		}

		end := min(start+e.cfg.BatchSize, len(ids))
		batch := ids[start:end]

		recs, failed, err := e.processBatch(ctx, batch, date)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("batch %d/%d: %w", n+1, batchCount, ctxErr)
		}
		if err != nil {
			if !e.cfg.ErrorRecovery {
				return nil, fmt.Errorf("batch %d/%d: %w", n+1, batchCount, err)
			}

			log.Warn().
				Err(err).
				Int("batch", n+1).
				Int("size", len(batch)).
				Msg("replenishment: batch failed, recovering items individually")

			var dropped int
			recs, dropped, err = e.recoverBatch(ctx, batch, date)
			if err != nil {
				return nil, fmt.Errorf("batch %d/%d recovery: %w", n+1, batchCount, err)
			}
			failed = dropped
			stats.errors++
			stats.recoveredBatches++
		}

		out = append(out, recs...)
		stats.errors += failed
		stats.processed += len(batch)

		if e.cfg.Debug {
			log.Debug().
				Int("batch", n+1).
				Int("of", batchCount).
				Int("recommendations", len(recs)).
				Int("item_errors", failed).
				Msg("replenishment: batch done")
		}

		if afterBatch != nil {
			afterBatch(stats.processed)
		}
	}

	return out, nil
}

// processBatch computes every id of a batch. Item failures are logged and
// counted; a batch-level failure stops the batch and is returned.
func (e *Engine) processBatch(ctx context.Context, ids []int64, date time.Time) ([]domain.Recommendation, int, error) {
	results := make([]itemResult, len(ids))
	var aborted atomic.Bool

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if aborted.Load() {
				return nil
			}
			rec, err := e.safeGenerate(ctx, id, date)
			if IsBatchFailure(err) {
				aborted.Store(true)
				return err
			}
			results[i] = itemResult{rec: rec, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	recs := make([]domain.Recommendation, 0, len(ids))
	failed := 0
	for i, res := range results {
		if res.err != nil {
			failed++
			log.Error().Err(res.err).Int64("product_id", ids[i]).Msg("replenishment: item failed")
			continue
		}
		if res.rec != nil {
			recs = append(recs, *res.rec)
		}
	}
	return recs, failed, nil
}

// recoverBatch retries every id of a failed batch on its own, up to
// MaxRetries attempts with a fixed delay between them. Ids that exhaust their
// attempts are dropped and counted. Only cancellation of ctx is returned as
// an error.
func (e *Engine) recoverBatch(ctx context.Context, ids []int64, date time.Time) ([]domain.Recommendation, int, error) {
	recs := make([]domain.Recommendation, 0, len(ids))
	dropped := 0

	for _, id := range ids {
		for attempt := 1; attempt <= e.cfg.MaxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, dropped, err
			}

			rec, err := e.safeGenerate(ctx, id, date)
			if err == nil {
				if rec != nil {
					recs = append(recs, *rec)
				}
				break
			}

			if attempt == e.cfg.MaxRetries {
				dropped++
				log.Error().
					Err(err).
					Int64("product_id", id).
					Int("attempts", attempt).
					Msg("replenishment: recovery exhausted, dropping product")
				break
			}

			log.Warn().
				Err(err).
				Int64("product_id", id).
				Int("attempt", attempt).
				Int("max_retries", e.cfg.MaxRetries).
				Msg("replenishment: recovery attempt failed, retrying")
			e.sleep(e.cfg.RetryDelay)
		}
	}

	log.Info().
		Int("recovered", len(recs)).
		Int("dropped", dropped).
		Int("batch_size", len(ids)).
		Msg("replenishment: batch recovery finished")

	return recs, dropped, nil
}

// safeGenerate turns a panic in a collaborator into a batch-level failure.
func (e *Engine) safeGenerate(ctx context.Context, id int64, date time.Time) (rec *domain.Recommendation, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = fmt.Errorf("%w: panic computing product %d: %v", domain.ErrResourceUnavailable, id, r)
		}
	}()
	return e.GenerateSingleRecommendation(ctx, id, date)
}
