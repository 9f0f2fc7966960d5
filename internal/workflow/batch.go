// internal/workflow/batch.go
package workflow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/svccheck/api/schemas"
)

// RunBatch performs independent lookups concurrently, each in its own
// session. Concurrency and start rate come from the batch configuration.
// Results are returned in request order.
func (d *Driver) RunBatch(ctx context.Context, reqs []schemas.QueryRequest) []schemas.QueryResult {
	results := make([]schemas.QueryResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	limit := d.batch.Concurrency
	if limit <= 0 {
		limit = 1
	}
	var limiter *rate.Limiter
	if d.batch.RatePerSecond > 0 {
		burst := d.batch.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(d.batch.RatePerSecond), burst)
	}

	d.logger.Info("Starting batch lookup.",
		zap.Int("requests", len(reqs)),
		zap.Int("concurrency", limit),
		zap.Float64("rate_per_second", d.batch.RatePerSecond))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					results[i] = schemas.ErrorResult(fmt.Sprintf("lookup not started: %v", err))
					return nil
				}
			}
			results[i] = d.Run(gctx, req)
			return nil
		})
	}
	// Lookups report failures through their results; the group never errors.
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if !res.Succeeded() {
			failed++
		}
	}
	d.logger.Info("Batch lookup finished.", zap.Int("requests", len(reqs)), zap.Int("failed", failed))
	return results
}
