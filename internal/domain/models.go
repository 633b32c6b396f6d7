// internal/domain/models.go
package domain

import "strconv"

// Market identifies the demand channel a SKU observation belongs to.
type Market string

const (
	MarketOE  Market = "OE"  // original equipment
	MarketST  Market = "ST"  // state transport
	MarketEXP Market = "EXP" // export backlog
	MarketRE  Market = "RE"  // replacement
)

// Source tags where a final priority row came from.
type Source string

const (
	SourceManual    Source = "Manual"
	SourceAutomated Source = "Automated"
)

// InventoryColor is the on-hand buffer color of a stocking location.
// Only Black and Red contribute to the inventory risk score.
type InventoryColor string

const (
	ColorBlack InventoryColor = "Black"
	ColorRed   InventoryColor = "Red"
)

// InventoryLine is one buffer-status observation: a SKU at a location type
// flagged with a stockout-risk color.
type InventoryLine struct {
	SKUCode      string
	LocationCode string
	LocationType string
	Color        InventoryColor
	TopSKU       bool
}

// DemandRow is a raw demand observation before scoring, from either the
// replenishment feed (with a virtual norm) or the backlog feed (requirement
// and penetration precomputed, no norm).
type DemandRow struct {
	SKUCode      string
	Description  string
	LocationCode string
	Market       Market
	Norm         float64
	VirtualNorm  float64
	Stock        float64

	// AdjustedTarget is the policy-adjusted buffer target. Only meaningful
	// when HasNorm is true; backlog rows carry requirement directly.
	AdjustedTarget float64
	HasNorm        bool

	Requirement float64
	Penetration float64
	TopSKU      bool
}

// DeploymentRecord summarizes live machine occupancy for one SKU.
type DeploymentRecord struct {
	SKUCode        string
	MachineCount   int
	AvgMouldHealth float64
}

// ManualOverride is one row of the manager-supplied override list.
type ManualOverride struct {
	SKUCode         string
	Description     string
	Market          Market
	Quantity        float64
	HighestPriority int
}

// SKURecord is one fully scored row of the priority table. Fields are filled
// in stage order; zero is the sentinel for anything a stage could not
// populate, so unmatched rows sink in later sorts instead of corrupting
// arithmetic.
type SKURecord struct {
	SKUCode     string
	Description string
	Size        int
	Market      Market

	// Targets
	Norm           float64
	VirtualNorm    float64
	AdjustedTarget float64

	// Demand signals
	Stock             float64
	Requirement       float64
	VectorRequirement float64
	CPTRequirement    float64
	Penetration       float64
	NormPenetration   float64
	NormRequirement   float64

	// Attributes
	TopSKU       bool
	TopSKUFlag   float64
	MarketWeight float64

	// Inventory signals
	InventoryScore     float64
	NormInventoryScore float64

	// Deployment
	MachineCount     int
	AvgMouldHealth   float64
	ProxyScore       float64
	ProxyRank        int
	CriticalGap      bool
	ExcessProduction bool
	MouldAlert       bool
	IsGhostSKU       bool

	// Revenue & efficiency
	ASP              float64
	CureTime         float64
	DailyThroughput  int
	RevenuePotential float64
	PriceScore       float64

	// Scoring & ranking
	DemandScore      float64
	CompositeScore   float64
	ConsolidatedRank int

	// Manual override block
	HighestPriority     int
	ManualPriorityScore float64
	ManualRank          int

	// Final merged table
	Source                 Source
	StrategicPriorityScore float64
	FinalRank              int
}

// Summary holds the per-date counters reported alongside the output table.
type Summary struct {
	TotalSKUs        int
	GhostSKUs        int
	CriticalGaps     int
	ExcessProduction int
	MouldAlerts      int
	ManualEntries    int
	OverstockRows    int
	InProduction     int
	NotInProduction  int
}

// SizeFromSKU extracts the two-character size class encoded at a fixed
// offset of the SKU code. The identifier scheme is fixed-width; treat the
// result as an opaque attribute. Codes too short or non-numeric yield 0.
func SizeFromSKU(code string) int {
	if len(code) < 10 {
		return 0
	}
	n, err := strconv.Atoi(code[8:10])
	if err != nil {
		return 0
	}
	return n
}
