package priority

import (
	"github.com/andresuchdata/vector-priority/internal/config"
)

// testConfig returns the stock configuration the plant runs with, built
// directly so tests stay independent of environment variables.
func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			DataDir:    "./data",
			OutputFile: "report.xlsx",
			LogLevel:   "info",
			Parallel:   1,
		},
		Plant: config.PlantConfig{
			LocationPrefix:     "1300",
			PlantCode:          "1300",
			REAdjustmentFactor: 0.5,
		},
		Scoring: config.ScoringConfig{
			MarketWeights:        map[string]float64{"OE": 4, "ST": 3, "EXP": 2, "RE": 1},
			LocationWeights:      map[string]float64{"JIT": 5, "Depot": 4, "Depot Mobility": 3, "Feeder": 2, "PWH": 1},
			BlackFactor:          1.0,
			RedFactor:            0.5,
			MarketWeightage:      0.25,
			PenetrationWeightage: 0.35,
			RequirementWeightage: 0.30,
			TopSKUWeightage:      0.10,
			DemandPriority:       0.4,
			InventoryPriority:    0.3,
			PricePriority:        0.3,
		},
		Revenue: config.RevenueConfig{
			EfficiencyFactor: 0.9,
			DefaultASP:       3000,
			DefaultCureTime:  15,
			CureTimeBuffer:   2.5,
			MinutesPerDay:    1440,
		},
		Deploy: config.DeployConfig{
			MachineCountPenalty:  0.05,
			MouldLifeThreshold:   0.9,
			CriticalGapRank:      50,
			ExcessProductionRank: 200,
			ExcessMachineCount:   2,
			GhostMarket:          "GHOST",
		},
		Manual: config.ManualConfig{
			BoostBase:              10.0,
			BoostMultiplier:        1.0,
			OverstockPenaltyFactor: 0.0,
		},
	}
}
