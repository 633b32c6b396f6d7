// internal/pipeline/priority/demand.go
package priority

import (
	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/domain"
)

// DemandScorer merges the replenishment and backlog demand feeds into one
// scored working set. All normalization is batch-relative: every component
// is divided by its maximum over the current batch, so recomputing with a
// different SKU set changes every score. Downstream rank thresholds depend
// on this semantics; do not make the scores absolute.
type DemandScorer struct {
	cfg *config.Config
}

// NewDemandScorer creates a demand scorer bound to the run config.
func NewDemandScorer(cfg *config.Config) *DemandScorer {
	return &DemandScorer{cfg: cfg}
}

// Score builds the active demand set: backlog rows first, then
// replenishment rows with policy-adjusted targets, rows with no actionable
// shortfall dropped, demand components normalized and blended into
// DemandScore, and the inventory score joined and normalized.
func (s *DemandScorer) Score(
	replenishment []domain.DemandRow,
	backlog []domain.DemandRow,
	buffer []domain.InventoryLine,
	inventoryScores map[string]float64,
) []domain.SKURecord {
	topSKU := topSKUIndex(buffer)

	working := make([]domain.DemandRow, 0, len(backlog)+len(replenishment))
	working = append(working, backlog...)
	for _, row := range replenishment {
		row.AdjustedTarget = row.VirtualNorm
		if row.Market == domain.MarketRE {
			row.AdjustedTarget = row.VirtualNorm * s.cfg.Plant.REAdjustmentFactor
		}
		row.Requirement = row.AdjustedTarget - row.Stock
		if row.Requirement < 0 {
			row.Requirement = 0
		}
		// Penetration always measures depletion against the full virtual
		// norm, regardless of the adjusted target.
		if row.VirtualNorm != 0 {
			row.Penetration = (row.VirtualNorm - row.Stock) / row.VirtualNorm * 100
		}
		row.TopSKU = topSKU[locationKey{row.SKUCode, row.LocationCode}]
		working = append(working, row)
	}

	records := make([]domain.SKURecord, 0, len(working))
	for _, row := range working {
		if row.Requirement == 0 {
			continue
		}
		rec := domain.SKURecord{
			SKUCode:        row.SKUCode,
			Description:    row.Description,
			Size:           domain.SizeFromSKU(row.SKUCode),
			Market:         row.Market,
			Norm:           row.Norm,
			VirtualNorm:    row.VirtualNorm,
			AdjustedTarget: row.AdjustedTarget,
			Stock:          row.Stock,
			Requirement:    row.Requirement,
			Penetration:    row.Penetration,
			TopSKU:         row.TopSKU,
			MarketWeight:   s.cfg.Scoring.MarketWeight(string(row.Market)),
			Source:         domain.SourceAutomated,
		}
		if row.TopSKU {
			rec.TopSKUFlag = 1
		}
		rec.InventoryScore = inventoryScores[row.SKUCode]
		records = append(records, rec)
	}

	maxPenetration := maxOf(records, func(r *domain.SKURecord) float64 { return r.Penetration })
	maxRequirement := maxOf(records, func(r *domain.SKURecord) float64 { return r.Requirement })
	maxInventory := maxOf(records, func(r *domain.SKURecord) float64 { return r.InventoryScore })

	w := s.cfg.Scoring
	for i := range records {
		rec := &records[i]
		rec.NormPenetration = normalize(rec.Penetration, maxPenetration)
		rec.NormRequirement = normalize(rec.Requirement, maxRequirement)
		rec.NormInventoryScore = normalize(rec.InventoryScore, maxInventory)
		rec.DemandScore = rec.MarketWeight*w.MarketWeightage +
			rec.NormPenetration*w.PenetrationWeightage +
			rec.NormRequirement*w.RequirementWeightage +
			rec.TopSKUFlag*w.TopSKUWeightage
	}

	return records
}

// Consolidate blends demand, inventory and price components into the
// composite score and assigns the consolidated competition rank. The price
// term drops out entirely when its weight is 0. Records come back sorted by
// rank, most urgent first.
func (s *DemandScorer) Consolidate(records []domain.SKURecord) []domain.SKURecord {
	w := s.cfg.Scoring
	for i := range records {
		rec := &records[i]
		rec.CompositeScore = rec.DemandScore*w.DemandPriority +
			rec.NormInventoryScore*w.InventoryPriority +
			rec.PriceScore*w.PricePriority
	}

	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = records[i].CompositeScore
	}
	ranks := competitionRanks(scores)
	for i := range records {
		records[i].ConsolidatedRank = ranks[i]
	}

	sortByScoreDesc(records, func(r *domain.SKURecord) float64 { return r.CompositeScore })
	return records
}

type locationKey struct {
	SKUCode      string
	LocationCode string
}

// topSKUIndex maps (SKU, location) to the buffer report's Top SKU flag.
func topSKUIndex(buffer []domain.InventoryLine) map[locationKey]bool {
	index := make(map[locationKey]bool, len(buffer))
	for _, line := range buffer {
		if line.TopSKU {
			index[locationKey{line.SKUCode, line.LocationCode}] = true
		}
	}
	return index
}

func maxOf(records []domain.SKURecord, field func(*domain.SKURecord) float64) float64 {
	max := 0.0
	for i := range records {
		if v := field(&records[i]); v > max {
			max = v
		}
	}
	return max
}

// normalize divides by the batch maximum; a non-positive maximum means the
// whole component is flat and contributes nothing.
func normalize(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return v / max
}
