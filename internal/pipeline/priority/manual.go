// internal/pipeline/priority/manual.go
package priority

import (
	"sort"

	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/domain"
)

// ManualSynthesizer splices the manager-supplied override list into the
// deployment-reconciled set. Manual entries fully supersede automated
// scoring for their SKUs — no blending — and always occupy the top of the
// final ranking.
type ManualSynthesizer struct {
	cfg *config.Config
}

// NewManualSynthesizer creates a manual synthesizer bound to the run config.
func NewManualSynthesizer(cfg *config.Config) *ManualSynthesizer {
	return &ManualSynthesizer{cfg: cfg}
}

// Merge produces the final hybrid table: manual rows on top, surviving
// automated rows re-ranked after the manual block, the overstock demotion
// applied, and a dense FinalRank over the whole table.
//
// An empty override list passes the automated set through unchanged apart
// from source tagging and a trivial FinalRank.
func (m *ManualSynthesizer) Merge(automated []domain.SKURecord, overrides []domain.ManualOverride) []domain.SKURecord {
	if len(overrides) == 0 {
		for i := range automated {
			automated[i].Source = domain.SourceAutomated
			automated[i].VectorRequirement = automated[i].Requirement
			automated[i].StrategicPriorityScore = automated[i].CompositeScore
			automated[i].FinalRank = i + 1
		}
		return automated
	}

	// Automated requirement per SKU, captured before supersession so the
	// final table can show the prior value next to the override.
	vectorRequirement := make(map[string]float64, len(automated))
	deploymentBySKU := make(map[string]domain.DeploymentRecord, len(automated))
	for i := range automated {
		rec := &automated[i]
		if _, seen := vectorRequirement[rec.SKUCode]; !seen {
			vectorRequirement[rec.SKUCode] = rec.Requirement
			deploymentBySKU[rec.SKUCode] = domain.DeploymentRecord{
				SKUCode:        rec.SKUCode,
				MachineCount:   rec.MachineCount,
				AvgMouldHealth: rec.AvgMouldHealth,
			}
		}
	}

	ranked := m.rankManualBlock(overrides)

	hybrid := reconcile(automated, ranked, reconcileRule[domain.ManualOverride]{
		Key: func(o domain.ManualOverride) string { return o.SKUCode },
		Synthesize: func(o domain.ManualOverride, _ float64) domain.SKURecord {
			return m.manualRecord(o, vectorRequirement[o.SKUCode], deploymentBySKU[o.SKUCode])
		},
	})

	// Partition back out: reconcile keeps surviving automated rows first,
	// synthesized manual rows after. Manual ranks 1..n are already set;
	// offset the automated block behind them.
	manualCount := 0
	for i := range hybrid {
		if hybrid[i].Source == domain.SourceManual {
			manualCount++
		}
	}
	autoPos, manualPos := 0, 0
	for i := range hybrid {
		rec := &hybrid[i]
		if rec.Source == domain.SourceManual {
			// Synthesized rows come out in block order; the manual
			// block occupies ranks 1..n.
			manualPos++
			rec.ManualRank = manualPos
			rec.ProxyRank = manualPos
			rec.StrategicPriorityScore = rec.ManualPriorityScore
			continue
		}
		rec.Source = domain.SourceAutomated
		rec.VectorRequirement = rec.Requirement
		rec.CPTRequirement = 0
		rec.ProxyRank = autoPos + manualCount + 1
		rec.StrategicPriorityScore = rec.CompositeScore
		autoPos++
	}

	hybrid = m.demoteOverstock(hybrid)

	for i := range hybrid {
		hybrid[i].FinalRank = i + 1
	}
	return hybrid
}

// ManualRank gives overrides their internal block order: boosted score
// descending, quantity descending as the tiebreak.
func (m *ManualSynthesizer) rankManualBlock(overrides []domain.ManualOverride) []domain.ManualOverride {
	ranked := make([]domain.ManualOverride, len(overrides))
	copy(ranked, overrides)
	sort.SliceStable(ranked, func(a, b int) bool {
		sa := m.boostScore(ranked[a])
		sb := m.boostScore(ranked[b])
		if sa != sb {
			return sa > sb
		}
		return ranked[a].Quantity > ranked[b].Quantity
	})
	return ranked
}

// boostScore is guaranteed to exceed any automated composite score: the
// base alone sits above the weighted-sum ceiling.
func (m *ManualSynthesizer) boostScore(o domain.ManualOverride) float64 {
	return m.cfg.Manual.BoostBase + float64(o.HighestPriority)*m.cfg.Manual.BoostMultiplier
}

func (m *ManualSynthesizer) manualRecord(o domain.ManualOverride, vectorReq float64, deploy domain.DeploymentRecord) domain.SKURecord {
	rec := domain.SKURecord{
		SKUCode:             o.SKUCode,
		Description:         o.Description,
		Size:                domain.SizeFromSKU(o.SKUCode),
		Market:              o.Market,
		Requirement:         o.Quantity,
		VectorRequirement:   vectorReq,
		CPTRequirement:      o.Quantity,
		HighestPriority:     o.HighestPriority,
		ManualPriorityScore: m.boostScore(o),
		MachineCount:        deploy.MachineCount,
		AvgMouldHealth:      deploy.AvgMouldHealth,
		Source:              domain.SourceManual,
	}
	rec.CriticalGap = rec.MachineCount == 0
	rec.MouldAlert = rec.AvgMouldHealth > m.cfg.Deploy.MouldLifeThreshold
	return rec
}

// demoteOverstock partitions the table into normal and overstock rows
// (Penetration > 100, manual rows immune), penalizes the overstock scores,
// and orders normal-by-score-descending then overstock-by-penetration-
// ascending: the least overstocked SKU comes back into rotation first.
func (m *ManualSynthesizer) demoteOverstock(hybrid []domain.SKURecord) []domain.SKURecord {
	normal := make([]domain.SKURecord, 0, len(hybrid))
	overstock := make([]domain.SKURecord, 0)

	for i := range hybrid {
		rec := hybrid[i]
		if rec.Penetration > 100 && rec.Source != domain.SourceManual {
			rec.StrategicPriorityScore *= m.cfg.Manual.OverstockPenaltyFactor
			overstock = append(overstock, rec)
			continue
		}
		normal = append(normal, rec)
	}

	sortByScoreDesc(normal, func(r *domain.SKURecord) float64 { return r.StrategicPriorityScore })
	sort.SliceStable(overstock, func(a, b int) bool {
		return overstock[a].Penetration < overstock[b].Penetration
	})

	return append(normal, overstock...)
}

// ManualCount reports how many manual-source rows a hybrid table carries.
func ManualCount(hybrid []domain.SKURecord) int {
	n := 0
	for i := range hybrid {
		if hybrid[i].Source == domain.SourceManual {
			n++
		}
	}
	return n
}
