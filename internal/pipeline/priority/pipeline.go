// internal/pipeline/priority/pipeline.go
package priority

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/domain"
	"github.com/andresuchdata/vector-priority/internal/feeds"
)

// ErrDateSkipped marks a date whose required stage-1 feeds are absent or
// whose demand batch came out empty. The batch run logs it and continues.
var ErrDateSkipped = errors.New("date skipped")

// ErrManualOverride marks a failure of the manual override stage. It is
// fatal for that stage only: the deployment-reconciled result is preserved
// on the run result.
var ErrManualOverride = errors.New("manual override stage failed")

// Result is the full output for one analysis date.
type Result struct {
	Date       time.Time
	Deployment []domain.SKURecord
	Hybrid     []domain.SKURecord
	Summary    domain.Summary
}

// Final returns the table to emit: the hybrid table when the manual stage
// ran, the deployment table otherwise.
func (r *Result) Final() []domain.SKURecord {
	if r.Hybrid != nil {
		return r.Hybrid
	}
	return r.Deployment
}

// Pipeline runs the four chained scoring stages for single dates. It is
// stateless across runs: each date loads its full input snapshot, transforms
// it in strict sequence, and keeps nothing afterwards.
type Pipeline struct {
	cfg    *config.Config
	source feeds.Source

	inventory  *InventoryScorer
	demand     *DemandScorer
	revenue    *RevenueAnnotator
	deployment *DeploymentReconciler
	manual     *ManualSynthesizer
}

// New creates a pipeline bound to a config and feed source.
func New(cfg *config.Config, source feeds.Source) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		source:     source,
		inventory:  NewInventoryScorer(cfg),
		demand:     NewDemandScorer(cfg),
		revenue:    NewRevenueAnnotator(cfg),
		deployment: NewDeploymentReconciler(cfg),
		manual:     NewManualSynthesizer(cfg),
	}
}

// Name returns the pipeline identifier used in logs.
func (p *Pipeline) Name() string {
	return "priority"
}

// Run executes all stages for one date.
//
// Failure semantics follow the feed taxonomy: missing stage-1 feeds skip
// the date (ErrDateSkipped); a missing deployment feed degrades the stage;
// missing price/cure feeds fall back to defaults; a missing or malformed
// manual feed fails stage 4 only (ErrManualOverride), leaving the
// deployment result on the returned value.
func (p *Pipeline) Run(ctx context.Context, date time.Time) (*Result, error) {
	logger := log.With().Str("pipeline", p.Name()).Str("date", date.Format("02-01-2006")).Logger()

	replenishment, err := p.source.Replenishment(date)
	if err != nil {
		return nil, skipOn(err, "replenishment")
	}
	buffer, err := p.source.BufferStatus(date)
	if err != nil {
		return nil, skipOn(err, "buffer status")
	}
	backlog, err := p.source.Backlog(date)
	if err != nil {
		return nil, skipOn(err, "backlog")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inventoryScores := p.inventory.Score(buffer)
	records := p.demand.Score(replenishment, backlog, buffer, inventoryScores)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no actionable demand in batch", ErrDateSkipped)
	}
	logger.Info().Int("skus", len(records)).Msg("demand batch scored")

	prices, err := p.source.Prices()
	if err != nil {
		if !errors.Is(err, feeds.ErrMissing) {
			return nil, err
		}
		logger.Warn().Msg("price feed missing, using default ASP")
	}
	cureTimes, err := p.source.CureTimes()
	if err != nil {
		if !errors.Is(err, feeds.ErrMissing) {
			return nil, err
		}
		logger.Warn().Msg("cure time feed missing, using default cure time")
	}
	records = p.revenue.Annotate(records, prices, cureTimes)
	records = p.demand.Consolidate(records)

	deployment, err := p.source.Deployment(date)
	if err != nil {
		if !errors.Is(err, feeds.ErrMissing) {
			return nil, err
		}
		logger.Warn().Msg("deployment feed missing, proceeding without machine data")
		deployment = nil
	}
	records = p.deployment.Reconcile(records, deployment)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Date: date, Deployment: records}

	overrides, err := p.source.ManualOverrides()
	if err != nil {
		result.Summary = summarize(result.Final())
		return result, fmt.Errorf("%w: %v", ErrManualOverride, err)
	}
	result.Hybrid = p.manual.Merge(cloneRecords(records), overrides)

	result.Summary = summarize(result.Final())
	logSummary(logger, result.Summary)
	return result, nil
}

func skipOn(err error, feed string) error {
	if errors.Is(err, feeds.ErrMissing) {
		return fmt.Errorf("%w: %s feed: %v", ErrDateSkipped, feed, err)
	}
	return err
}

func cloneRecords(records []domain.SKURecord) []domain.SKURecord {
	out := make([]domain.SKURecord, len(records))
	copy(out, records)
	return out
}

// summarize derives the per-date counters from the final table.
func summarize(records []domain.SKURecord) domain.Summary {
	var s domain.Summary
	s.TotalSKUs = len(records)
	for i := range records {
		rec := &records[i]
		if rec.IsGhostSKU {
			s.GhostSKUs++
		}
		if rec.CriticalGap {
			s.CriticalGaps++
		}
		if rec.ExcessProduction {
			s.ExcessProduction++
		}
		if rec.MouldAlert {
			s.MouldAlerts++
		}
		if rec.Source == domain.SourceManual {
			s.ManualEntries++
		} else if rec.Penetration > 100 {
			s.OverstockRows++
		}
		if rec.MachineCount > 0 {
			s.InProduction++
		} else {
			s.NotInProduction++
		}
	}
	return s
}

func logSummary(logger zerolog.Logger, s domain.Summary) {
	logger.Info().
		Int("total_skus", s.TotalSKUs).
		Int("ghost_skus", s.GhostSKUs).
		Int("critical_gaps", s.CriticalGaps).
		Int("excess_production", s.ExcessProduction).
		Int("mould_alerts", s.MouldAlerts).
		Int("manual_entries", s.ManualEntries).
		Int("overstock_rows", s.OverstockRows).
		Int("in_production", s.InProduction).
		Int("not_in_production", s.NotInProduction).
		Msg("analysis complete")
}
