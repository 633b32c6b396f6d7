// internal/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/vector-priority/internal/pipeline/priority"
)

// Orchestrator coordinates running a DateRunner over a batch of analysis
// dates. Dates are independent snapshots with no shared mutable state, so
// they may be processed in parallel; results are handed to the sink
// sequentially in the original date order, which keeps the output
// deterministic regardless of parallelism.
type Orchestrator struct {
	runner   DateRunner
	sink     Sink
	parallel int
}

// NewOrchestrator creates a new Orchestrator. parallel values below 1 run
// the batch sequentially.
func NewOrchestrator(runner DateRunner, sink Sink, parallel int) *Orchestrator {
	if parallel < 1 {
		parallel = 1
	}
	return &Orchestrator{runner: runner, sink: sink, parallel: parallel}
}

// Run processes every date and returns a per-date status list. A failed or
// skipped date never aborts the batch; only a context cancellation or a
// sink write error stops the run early.
func (o *Orchestrator) Run(ctx context.Context, dates []time.Time) ([]DateStatus, error) {
	results := make([]*priority.Result, len(dates))
	statuses := make([]DateStatus, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallel)

	for i, date := range dates {
		i, date := i, date
		g.Go(func() error {
			started := time.Now()
			status := DateStatus{Date: date}

			result, err := o.runner.Run(gctx, date)
			switch {
			case err == nil:
				status.Status = StatusCompleted
			case errors.Is(err, priority.ErrDateSkipped):
				status.Status = StatusSkipped
				status.Error = err.Error()
				log.Warn().Str("date", date.Format("02-01-2006")).Err(err).Msg("skipping date")
			case errors.Is(err, priority.ErrManualOverride):
				// Stage 4 failed; the deployment table still stands.
				status.Status = StatusDegraded
				status.Error = err.Error()
				log.Error().Str("date", date.Format("02-01-2006")).Err(err).
					Msg("manual override failed, emitting deployment table only")
			case gctx.Err() != nil:
				// Record the aborted slot so the final status log never
				// shows a zero-valued entry.
				status.Status = StatusFailed
				status.Error = err.Error()
				status.Duration = time.Since(started)
				statuses[i] = status
				return gctx.Err()
			default:
				status.Status = StatusFailed
				status.Error = err.Error()
				log.Error().Str("date", date.Format("02-01-2006")).Err(err).Msg("date failed")
			}

			if result != nil {
				status.Rows = len(result.Final())
			}
			status.Duration = time.Since(started)
			results[i] = result
			statuses[i] = status
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return statuses, err
	}

	// Single writer: flush results in input order.
	for i, result := range results {
		if result == nil || o.sink == nil {
			continue
		}
		if err := o.sink.WriteDate(result); err != nil {
			return statuses, fmt.Errorf("failed to write result for %s: %w",
				statuses[i].Date.Format("02-01-2006"), err)
		}
	}

	return statuses, nil
}
