package priority

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/vector-priority/internal/domain"
	"github.com/andresuchdata/vector-priority/internal/feeds"
)

// fakeSource serves canned feed data and simulates missing or broken feeds.
type fakeSource struct {
	replenishment []domain.DemandRow
	buffer        []domain.InventoryLine
	backlog       []domain.DemandRow
	deployment    []domain.DeploymentRecord
	prices        map[string]float64
	cureTimes     map[string]float64
	overrides     []domain.ManualOverride

	missing map[string]bool
	broken  map[string]bool
}

func (f *fakeSource) feedErr(name string) error {
	if f.missing[name] {
		return fmt.Errorf("%w: %s", feeds.ErrMissing, name)
	}
	if f.broken[name] {
		return fmt.Errorf("%w: %s", feeds.ErrInvalid, name)
	}
	return nil
}

func (f *fakeSource) Replenishment(time.Time) ([]domain.DemandRow, error) {
	return f.replenishment, f.feedErr("replenishment")
}

func (f *fakeSource) BufferStatus(time.Time) ([]domain.InventoryLine, error) {
	return f.buffer, f.feedErr("buffer")
}

func (f *fakeSource) Backlog(time.Time) ([]domain.DemandRow, error) {
	return f.backlog, f.feedErr("backlog")
}

func (f *fakeSource) Deployment(time.Time) ([]domain.DeploymentRecord, error) {
	return f.deployment, f.feedErr("deployment")
}

func (f *fakeSource) Prices() (map[string]float64, error) {
	return f.prices, f.feedErr("prices")
}

func (f *fakeSource) CureTimes() (map[string]float64, error) {
	return f.cureTimes, f.feedErr("cureTimes")
}

func (f *fakeSource) ManualOverrides() ([]domain.ManualOverride, error) {
	return f.overrides, f.feedErr("manual")
}

func fullSource() *fakeSource {
	return &fakeSource{
		replenishment: []domain.DemandRow{
			{SKUCode: "SKU000000011A", LocationCode: "1300_OE10", Market: domain.MarketOE, VirtualNorm: 100, Stock: 10, HasNorm: true},
			{SKUCode: "SKU000000022A", LocationCode: "1300_FG10", Market: domain.MarketRE, VirtualNorm: 80, Stock: 20, HasNorm: true},
		},
		buffer: []domain.InventoryLine{
			{SKUCode: "SKU000000011A", LocationCode: "1300_OE10", LocationType: "JIT", Color: domain.ColorBlack, TopSKU: true},
		},
		backlog: []domain.DemandRow{
			{SKUCode: "SKU000000033A", Market: domain.MarketEXP, Requirement: 40, Penetration: 30, TopSKU: true},
		},
		deployment: []domain.DeploymentRecord{
			{SKUCode: "SKU000000011A", MachineCount: 1, AvgMouldHealth: 0.3},
			{SKUCode: "GHOST00000441", MachineCount: 2, AvgMouldHealth: 0.95},
		},
		prices:    map[string]float64{"SKU000000011A": 4500},
		cureTimes: map[string]float64{"SKU000000011A": 20},
		overrides: []domain.ManualOverride{
			{SKUCode: "SKU000000099A", Description: "launch batch", Market: domain.MarketOE, Quantity: 60, HighestPriority: 2},
		},
		missing: map[string]bool{},
		broken:  map[string]bool{},
	}
}

func testDate() time.Time {
	return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
}

func TestPipelineRunFullSnapshot(t *testing.T) {
	p := New(testConfig(), fullSource())

	result, err := p.Run(context.Background(), testDate())
	require.NoError(t, err)
	require.NotNil(t, result)

	// 3 demand rows + 1 ghost in the deployment table.
	assert.Len(t, result.Deployment, 4)
	// Plus the manual override in the hybrid table.
	require.Len(t, result.Hybrid, 5)

	// Manual row leads the final ranking.
	final := result.Final()
	assert.Equal(t, "SKU000000099A", final[0].SKUCode)
	assert.Equal(t, 1, final[0].FinalRank)

	ghost := findRecord(t, final, "GHOST00000441")
	assert.True(t, ghost.IsGhostSKU)

	assert.Equal(t, 5, result.Summary.TotalSKUs)
	assert.Equal(t, 1, result.Summary.GhostSKUs)
	assert.Equal(t, 1, result.Summary.ManualEntries)
	assert.Equal(t, 1, result.Summary.MouldAlerts)
	assert.Equal(t, 2, result.Summary.InProduction)
}

func TestPipelineRunIsIdempotent(t *testing.T) {
	p := New(testConfig(), fullSource())

	first, err := p.Run(context.Background(), testDate())
	require.NoError(t, err)
	second, err := p.Run(context.Background(), testDate())
	require.NoError(t, err)

	require.Equal(t, len(first.Hybrid), len(second.Hybrid))
	for i := range first.Hybrid {
		assert.Equal(t, first.Hybrid[i].SKUCode, second.Hybrid[i].SKUCode)
		assert.InDelta(t, first.Hybrid[i].StrategicPriorityScore, second.Hybrid[i].StrategicPriorityScore, 1e-9)
		assert.Equal(t, first.Hybrid[i].FinalRank, second.Hybrid[i].FinalRank)
	}
	assert.Equal(t, first.Summary, second.Summary)
}

func TestPipelineSkipsDateOnMissingStageOneFeed(t *testing.T) {
	for _, feed := range []string{"replenishment", "buffer", "backlog"} {
		t.Run(feed, func(t *testing.T) {
			src := fullSource()
			src.missing[feed] = true
			p := New(testConfig(), src)

			result, err := p.Run(context.Background(), testDate())
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ErrDateSkipped)
		})
	}
}

func TestPipelineSkipsDateOnEmptyBatch(t *testing.T) {
	src := fullSource()
	src.replenishment = nil
	src.backlog = nil
	p := New(testConfig(), src)

	result, err := p.Run(context.Background(), testDate())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrDateSkipped)
}

func TestPipelineDegradesOnMissingOptionalFeeds(t *testing.T) {
	src := fullSource()
	src.missing["prices"] = true
	src.missing["cureTimes"] = true
	src.missing["deployment"] = true
	src.prices = nil
	src.cureTimes = nil
	src.deployment = nil
	p := New(testConfig(), src)

	result, err := p.Run(context.Background(), testDate())
	require.NoError(t, err)

	// No ghosts without deployment data, and every SKU falls back to the
	// default ASP.
	assert.Equal(t, 0, result.Summary.GhostSKUs)
	for i := range result.Deployment {
		assert.InDelta(t, 3000.0, result.Deployment[i].ASP, 1e-9)
		assert.Equal(t, 0, result.Deployment[i].MachineCount)
	}
}

func TestPipelineManualStageFailurePreservesDeployment(t *testing.T) {
	src := fullSource()
	src.broken["manual"] = true
	p := New(testConfig(), src)

	result, err := p.Run(context.Background(), testDate())
	require.NotNil(t, result)
	assert.ErrorIs(t, err, ErrManualOverride)

	assert.Nil(t, result.Hybrid)
	assert.Len(t, result.Deployment, 4)
	// Final falls back to the deployment table.
	assert.Len(t, result.Final(), 4)
	assert.Equal(t, 0, result.Summary.ManualEntries)
}

func TestPipelineRespectsContextCancellation(t *testing.T) {
	p := New(testConfig(), fullSource())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, testDate())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}
