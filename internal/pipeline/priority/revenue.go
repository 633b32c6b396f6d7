// internal/pipeline/priority/revenue.go
package priority

import (
	"math"

	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/domain"
)

// RevenueAnnotator attaches price and throughput-derived revenue potential
// to scored records. This stage never fails the pipeline: missing price or
// cure-time data falls back to configured defaults.
type RevenueAnnotator struct {
	cfg *config.Config
}

// NewRevenueAnnotator creates a revenue annotator bound to the run config.
func NewRevenueAnnotator(cfg *config.Config) *RevenueAnnotator {
	return &RevenueAnnotator{cfg: cfg}
}

// Annotate fills ASP, cure time, daily throughput, revenue potential and the
// batch-relative price score on every record. prices and cureTimes may be
// nil when their feeds were absent.
func (a *RevenueAnnotator) Annotate(records []domain.SKURecord, prices, cureTimes map[string]float64) []domain.SKURecord {
	r := a.cfg.Revenue
	for i := range records {
		rec := &records[i]

		rec.ASP = r.DefaultASP
		if asp, ok := prices[rec.SKUCode]; ok {
			rec.ASP = asp
		}

		// A zero or negative cure time would blow up the throughput
		// division; such feed values fall back to the default.
		cure := r.DefaultCureTime
		if ct, ok := cureTimes[rec.SKUCode]; ok && ct > 0 {
			cure = ct
		}
		rec.CureTime = cure + r.CureTimeBuffer

		rec.DailyThroughput = int(math.Ceil((r.MinutesPerDay / rec.CureTime) * r.EfficiencyFactor))
		rec.RevenuePotential = rec.ASP * float64(rec.DailyThroughput)
	}

	maxRevenue := maxOf(records, func(r *domain.SKURecord) float64 { return r.RevenuePotential })
	for i := range records {
		records[i].PriceScore = normalize(records[i].RevenuePotential, maxRevenue)
	}

	return records
}
