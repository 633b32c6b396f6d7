// internal/pipeline/priority/deployment.go
package priority

import (
	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/domain"
)

// DeploymentReconciler joins the scored demand set against live machine
// occupancy, detects ghost production, and computes the deployment-adjusted
// proxy score and rank plus the gap/alert flags.
type DeploymentReconciler struct {
	cfg *config.Config
}

// NewDeploymentReconciler creates a deployment reconciler bound to the run
// config.
func NewDeploymentReconciler(cfg *config.Config) *DeploymentReconciler {
	return &DeploymentReconciler{cfg: cfg}
}

// Reconcile merges deployment records onto the demand set. A nil or empty
// deployment feed degrades gracefully: every record keeps MachineCount 0
// and ghost detection is skipped; the stage is never fatal.
func (d *DeploymentReconciler) Reconcile(records []domain.SKURecord, deployment []domain.DeploymentRecord) []domain.SKURecord {
	if len(deployment) > 0 {
		records = reconcile(records, deployment, reconcileRule[domain.DeploymentRecord]{
			Key: func(r domain.DeploymentRecord) string { return r.SKUCode },
			Match: func(rec *domain.SKURecord, r domain.DeploymentRecord) {
				rec.MachineCount = r.MachineCount
				rec.AvgMouldHealth = r.AvgMouldHealth
			},
			ScoreFloor: minCompositeScore,
			Synthesize: d.ghostRecord,
		})
	}

	for i := range records {
		rec := &records[i]
		rec.ProxyScore = rec.CompositeScore * d.penaltyFactor(rec.MachineCount)
	}

	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = records[i].ProxyScore
	}
	ranks := competitionRanks(scores)
	for i := range records {
		records[i].ProxyRank = ranks[i]
	}

	for i := range records {
		d.applyFlags(&records[i])
	}

	sortByScoreDesc(records, func(r *domain.SKURecord) float64 { return r.ProxyScore })
	return records
}

// penaltyFactor linearly discounts urgency per running machine, floored at
// zero so the proxy score never goes negative.
func (d *DeploymentReconciler) penaltyFactor(machineCount int) float64 {
	factor := 1 - float64(machineCount)*d.cfg.Deploy.MachineCountPenalty
	if factor < 0 {
		factor = 0
	}
	return factor
}

// ghostRecord synthesizes a full record for a SKU that machines are running
// with no matching demand. All demand fields stay zeroed; the score sits at
// half the batch minimum so a ghost can never outrank a real demand row
// while staying visible in the output.
func (d *DeploymentReconciler) ghostRecord(r domain.DeploymentRecord, floor float64) domain.SKURecord {
	return domain.SKURecord{
		SKUCode:        r.SKUCode,
		Size:           domain.SizeFromSKU(r.SKUCode),
		Market:         domain.Market(d.cfg.Deploy.GhostMarket),
		MachineCount:   r.MachineCount,
		AvgMouldHealth: r.AvgMouldHealth,
		CompositeScore: floor * 0.5,
		IsGhostSKU:     true,
		Source:         domain.SourceAutomated,
	}
}

// applyFlags sets the gap-analysis flags. Ghost rows carry no consolidated
// rank (zero), so the rank-based flags stay false for them; only the mould
// alert applies.
func (d *DeploymentReconciler) applyFlags(rec *domain.SKURecord) {
	c := d.cfg.Deploy
	rec.CriticalGap = rec.ConsolidatedRank > 0 &&
		rec.ConsolidatedRank <= c.CriticalGapRank &&
		rec.MachineCount == 0
	rec.ExcessProduction = rec.ConsolidatedRank > c.ExcessProductionRank &&
		rec.MachineCount > c.ExcessMachineCount
	rec.MouldAlert = rec.AvgMouldHealth > c.MouldLifeThreshold
}
