package priority

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vector-priority/internal/domain"
)

func TestMergeEmptyOverridesPassesThrough(t *testing.T) {
	m := NewManualSynthesizer(testConfig())

	automated := []domain.SKURecord{
		{SKUCode: "A", Requirement: 40, CompositeScore: 0.9},
		{SKUCode: "B", Requirement: 10, CompositeScore: 0.5},
	}

	out := m.Merge(automated, nil)
	require.Len(t, out, 2)
	assert.Equal(t, "A", out[0].SKUCode)
	assert.Equal(t, 1, out[0].FinalRank)
	assert.Equal(t, 2, out[1].FinalRank)
	assert.Equal(t, domain.SourceAutomated, out[0].Source)
	assert.InDelta(t, 40.0, out[0].VectorRequirement, 1e-9)
	// The strategic score is the composite score even when no overrides
	// exist, so the hybrid output never reports zeros.
	assert.InDelta(t, 0.9, out[0].StrategicPriorityScore, 1e-9)
	assert.InDelta(t, 0.5, out[1].StrategicPriorityScore, 1e-9)
}

func TestMergeBoostScore(t *testing.T) {
	m := NewManualSynthesizer(testConfig())

	out := m.Merge(nil, []domain.ManualOverride{
		{SKUCode: "M1", Quantity: 100, HighestPriority: 1},
	})
	require.Len(t, out, 1)
	// base 10 + priority 1 * multiplier 1
	assert.InDelta(t, 11.0, out[0].ManualPriorityScore, 1e-9)
	assert.InDelta(t, 11.0, out[0].StrategicPriorityScore, 1e-9)
}

func TestMergeManualSupersedesAutomated(t *testing.T) {
	m := NewManualSynthesizer(testConfig())

	automated := []domain.SKURecord{
		{SKUCode: "SHARED", Requirement: 40, CompositeScore: 0.9, MachineCount: 2, AvgMouldHealth: 0.95},
		{SKUCode: "AUTO", Requirement: 10, CompositeScore: 0.5},
	}
	overrides := []domain.ManualOverride{
		{SKUCode: "SHARED", Description: "override", Market: domain.MarketOE, Quantity: 75, HighestPriority: 3},
	}

	out := m.Merge(automated, overrides)
	require.Len(t, out, 2)

	// Exactly one row per SKU survives.
	shared := findRecord(t, out, "SHARED")
	assert.Equal(t, domain.SourceManual, shared.Source)
	assert.InDelta(t, 75.0, shared.Requirement, 1e-9)
	assert.InDelta(t, 75.0, shared.CPTRequirement, 1e-9)
	// The automated requirement is preserved for provenance.
	assert.InDelta(t, 40.0, shared.VectorRequirement, 1e-9)
	// Deployment context carries over from the superseded row.
	assert.Equal(t, 2, shared.MachineCount)
	assert.True(t, shared.MouldAlert)
	assert.False(t, shared.CriticalGap)

	auto := findRecord(t, out, "AUTO")
	assert.Equal(t, domain.SourceAutomated, auto.Source)
	assert.InDelta(t, 0.0, auto.CPTRequirement, 1e-9)
	assert.InDelta(t, 10.0, auto.VectorRequirement, 1e-9)
}

func TestMergeManualBlockOrdering(t *testing.T) {
	m := NewManualSynthesizer(testConfig())

	overrides := []domain.ManualOverride{
		{SKUCode: "LOWPRI", Quantity: 10, HighestPriority: 1},
		{SKUCode: "HIGHPRI", Quantity: 10, HighestPriority: 5},
		{SKUCode: "BIGQTY", Quantity: 80, HighestPriority: 1},
	}
	automated := []domain.SKURecord{
		{SKUCode: "AUTO", Requirement: 10, CompositeScore: 0.5, Penetration: 40},
	}

	out := m.Merge(automated, overrides)
	require.Len(t, out, 4)

	// Boost score descending, quantity as tiebreak, automated row last.
	assert.Equal(t, "HIGHPRI", out[0].SKUCode)
	assert.Equal(t, "BIGQTY", out[1].SKUCode)
	assert.Equal(t, "LOWPRI", out[2].SKUCode)
	assert.Equal(t, "AUTO", out[3].SKUCode)

	assert.Equal(t, 1, out[0].ManualRank)
	assert.Equal(t, 2, out[1].ManualRank)
	assert.Equal(t, 3, out[2].ManualRank)
	assert.Equal(t, 4, out[3].ProxyRank)

	// FinalRank is dense over the whole table.
	for i := range out {
		assert.Equal(t, i+1, out[i].FinalRank)
	}
}

func TestMergeOverstockDemotion(t *testing.T) {
	m := NewManualSynthesizer(testConfig())

	automated := []domain.SKURecord{
		{SKUCode: "HEALTHY", Requirement: 10, CompositeScore: 0.3, Penetration: 60},
		{SKUCode: "OVER150", Requirement: 5, CompositeScore: 0.9, Penetration: 150},
		{SKUCode: "OVER120", Requirement: 5, CompositeScore: 0.8, Penetration: 120},
	}

	out := m.Merge(automated, []domain.ManualOverride{
		{SKUCode: "MANUAL", Quantity: 20, HighestPriority: 2},
	})
	require.Len(t, out, 4)

	// Overstocked automated rows sink below everything else despite their
	// higher composite scores, ordered least-overstocked first.
	assert.Equal(t, "MANUAL", out[0].SKUCode)
	assert.Equal(t, "HEALTHY", out[1].SKUCode)
	assert.Equal(t, "OVER120", out[2].SKUCode)
	assert.Equal(t, "OVER150", out[3].SKUCode)

	// The stock penalty factor zeroes the demoted scores.
	assert.InDelta(t, 0.0, out[2].StrategicPriorityScore, 1e-9)
	assert.InDelta(t, 0.0, out[3].StrategicPriorityScore, 1e-9)
}

func TestMergeManualRowsImmuneToOverstockDemotion(t *testing.T) {
	m := NewManualSynthesizer(testConfig())

	// Manual override for a SKU the automated stage already flagged as
	// overstocked: the manual row still lands on top.
	automated := []domain.SKURecord{
		{SKUCode: "OVERSTOCKED", Requirement: 5, CompositeScore: 0.9, Penetration: 180},
		{SKUCode: "AUTO", Requirement: 10, CompositeScore: 0.5, Penetration: 50},
	}
	out := m.Merge(automated, []domain.ManualOverride{
		{SKUCode: "OVERSTOCKED", Quantity: 30, HighestPriority: 1},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "OVERSTOCKED", out[0].SKUCode)
	assert.Equal(t, domain.SourceManual, out[0].Source)
	assert.InDelta(t, 11.0, out[0].StrategicPriorityScore, 1e-9)
}

func TestManualCount(t *testing.T) {
	hybrid := []domain.SKURecord{
		{Source: domain.SourceManual},
		{Source: domain.SourceAutomated},
		{Source: domain.SourceManual},
	}
	assert.Equal(t, 2, ManualCount(hybrid))
}
