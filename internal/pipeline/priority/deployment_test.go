package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vector-priority/internal/domain"
)

func TestReconcileMachinePenalty(t *testing.T) {
	r := NewDeploymentReconciler(testConfig())

	records := []domain.SKURecord{
		{SKUCode: "IDLE", CompositeScore: 1.0, ConsolidatedRank: 1},
		{SKUCode: "BUSY", CompositeScore: 1.0, ConsolidatedRank: 1},
	}
	deployment := []domain.DeploymentRecord{
		{SKUCode: "BUSY", MachineCount: 3, AvgMouldHealth: 0.4},
	}

	out := r.Reconcile(records, deployment)
	require.Len(t, out, 2)

	idle := findRecord(t, out, "IDLE")
	busy := findRecord(t, out, "BUSY")
	assert.InDelta(t, 1.0, idle.ProxyScore, 1e-9)
	// 1 - 3*0.05 = 0.85
	assert.InDelta(t, 0.85, busy.ProxyScore, 1e-9)
	assert.Equal(t, 3, busy.MachineCount)
	assert.Less(t, busy.ProxyScore, idle.ProxyScore)
}

func TestReconcilePenaltyFloorsAtZero(t *testing.T) {
	r := NewDeploymentReconciler(testConfig())

	records := []domain.SKURecord{
		{SKUCode: "SATURATED", CompositeScore: 1.0, ConsolidatedRank: 1},
	}
	deployment := []domain.DeploymentRecord{
		{SKUCode: "SATURATED", MachineCount: 40},
	}

	out := r.Reconcile(records, deployment)
	assert.InDelta(t, 0.0, out[0].ProxyScore, 1e-9)
}

func TestReconcileSynthesizesGhosts(t *testing.T) {
	r := NewDeploymentReconciler(testConfig())

	records := []domain.SKURecord{
		{SKUCode: "REAL1", CompositeScore: 0.8, ConsolidatedRank: 1},
		{SKUCode: "REAL2", CompositeScore: 0.4, ConsolidatedRank: 2},
	}
	deployment := []domain.DeploymentRecord{
		{SKUCode: "PHANTOM000141", MachineCount: 2, AvgMouldHealth: 0.95},
	}

	out := r.Reconcile(records, deployment)
	require.Len(t, out, 3)

	ghost := findRecord(t, out, "PHANTOM000141")
	assert.True(t, ghost.IsGhostSKU)
	assert.Equal(t, domain.Market("GHOST"), ghost.Market)
	// Half the batch minimum composite, then the 2-machine penalty.
	assert.InDelta(t, 0.2, ghost.CompositeScore, 1e-9)
	assert.InDelta(t, 0.2*0.9, ghost.ProxyScore, 1e-9)
	assert.Equal(t, 0, ghost.ConsolidatedRank)

	// Ghosts never trip the rank-based flags, only the mould alert.
	assert.False(t, ghost.CriticalGap)
	assert.False(t, ghost.ExcessProduction)
	assert.True(t, ghost.MouldAlert)

	// Ghost sorts below every real demand row.
	assert.Equal(t, "PHANTOM000141", out[2].SKUCode)
}

func TestReconcileFlags(t *testing.T) {
	cfg := testConfig()
	r := NewDeploymentReconciler(cfg)

	records := []domain.SKURecord{
		{SKUCode: "GAP", CompositeScore: 0.9, ConsolidatedRank: 10},
		{SKUCode: "COVERED", CompositeScore: 0.8, ConsolidatedRank: 12},
		{SKUCode: "EXCESS", CompositeScore: 0.1, ConsolidatedRank: 250},
	}
	deployment := []domain.DeploymentRecord{
		{SKUCode: "COVERED", MachineCount: 1, AvgMouldHealth: 0.95},
		{SKUCode: "EXCESS", MachineCount: 3, AvgMouldHealth: 0.2},
	}

	out := r.Reconcile(records, deployment)

	gap := findRecord(t, out, "GAP")
	assert.True(t, gap.CriticalGap)
	assert.False(t, gap.ExcessProduction)
	assert.False(t, gap.MouldAlert)

	covered := findRecord(t, out, "COVERED")
	assert.False(t, covered.CriticalGap)
	assert.False(t, covered.ExcessProduction)
	assert.True(t, covered.MouldAlert)

	excess := findRecord(t, out, "EXCESS")
	assert.False(t, excess.CriticalGap)
	assert.True(t, excess.ExcessProduction)
}

func TestReconcileMissingFeedDegradesGracefully(t *testing.T) {
	r := NewDeploymentReconciler(testConfig())

	records := []domain.SKURecord{
		{SKUCode: "A", CompositeScore: 0.9, ConsolidatedRank: 1},
		{SKUCode: "B", CompositeScore: 0.5, ConsolidatedRank: 2},
	}

	out := r.Reconcile(records, nil)
	require.Len(t, out, 2)
	for i := range out {
		assert.Equal(t, 0, out[i].MachineCount)
		assert.False(t, out[i].IsGhostSKU)
		assert.InDelta(t, out[i].CompositeScore, out[i].ProxyScore, 1e-9)
	}
	// Every top-ranked uncovered SKU still flags a critical gap.
	assert.True(t, out[0].CriticalGap)
}
