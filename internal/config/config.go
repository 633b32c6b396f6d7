// internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full, immutable configuration for one run. It is built once
// and threaded explicitly through every pipeline stage; stages never reach
// back into viper.
type Config struct {
	App     AppConfig
	Plant   PlantConfig
	Scoring ScoringConfig
	Revenue RevenueConfig
	Deploy  DeployConfig
	Manual  ManualConfig
	Storage StorageConfig
}

type AppConfig struct {
	DataDir    string
	OutputFile string
	LogLevel   string
	Parallel   int
}

type PlantConfig struct {
	// LocationPrefix selects the plant's own location codes in the
	// replenishment feed; PlantCode filters the backlog feed.
	LocationPrefix string
	PlantCode      string

	// REAdjustmentFactor scales the virtual norm target for the RE market.
	REAdjustmentFactor float64
}

type ScoringConfig struct {
	MarketWeights   map[string]float64
	LocationWeights map[string]float64

	// Inventory color factors (Black/Red stockout severity).
	BlackFactor float64
	RedFactor   float64

	// Demand score component weights.
	MarketWeightage      float64
	PenetrationWeightage float64
	RequirementWeightage float64
	TopSKUWeightage      float64

	// Consolidated score component weights. PricePriority may be 0 for
	// pure demand+inventory scoring.
	DemandPriority    float64
	InventoryPriority float64
	PricePriority     float64
}

// MarketWeight returns the weight for a market. The lookup is
// case-insensitive: viper lowercases nested map keys when they come from a
// config file, while the feeds carry upper-case market codes.
func (s ScoringConfig) MarketWeight(market string) float64 {
	w, _ := weightFor(s.MarketWeights, market)
	return w
}

// LocationWeight returns the weight for a location type, matching the key
// case-insensitively for the same reason as MarketWeight.
func (s ScoringConfig) LocationWeight(locationType string) float64 {
	w, _ := weightFor(s.LocationWeights, locationType)
	return w
}

func weightFor(weights map[string]float64, key string) (float64, bool) {
	if w, ok := weights[key]; ok {
		return w, true
	}
	for k, w := range weights {
		if strings.EqualFold(k, key) {
			return w, true
		}
	}
	return 0, false
}

type RevenueConfig struct {
	EfficiencyFactor float64
	DefaultASP       float64
	DefaultCureTime  float64
	CureTimeBuffer   float64
	MinutesPerDay    float64
}

type DeployConfig struct {
	MachineCountPenalty  float64
	MouldLifeThreshold   float64
	CriticalGapRank      int
	ExcessProductionRank int
	ExcessMachineCount   int
	GhostMarket          string
}

type ManualConfig struct {
	BoostBase              float64
	BoostMultiplier        float64
	OverstockPenaltyFactor float64
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_DATA_DIR", "./data")
	v.SetDefault("APP_OUTPUT_FILE", "final_hybrid_deployment_report.xlsx")
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_PARALLEL", 1)

	v.SetDefault("PLANT_LOCATION_PREFIX", "1300")
	v.SetDefault("PLANT_CODE", "1300")
	v.SetDefault("PLANT_RE_ADJUSTMENT_FACTOR", 0.5)

	v.SetDefault("MARKET_WEIGHTS", map[string]float64{
		"OE": 4, "ST": 3, "EXP": 2, "RE": 1,
	})
	v.SetDefault("LOCATION_WEIGHTS", map[string]float64{
		"JIT": 5, "Depot": 4, "Depot Mobility": 3, "Feeder": 2, "PWH": 1,
	})
	v.SetDefault("INVENTORY_BLACK_FACTOR", 1.0)
	v.SetDefault("INVENTORY_RED_FACTOR", 0.5)

	v.SetDefault("SCORING_MARKET_WEIGHTAGE", 0.25)
	v.SetDefault("SCORING_PENETRATION_WEIGHTAGE", 0.35)
	v.SetDefault("SCORING_REQUIREMENT_WEIGHTAGE", 0.30)
	v.SetDefault("SCORING_TOP_SKU_WEIGHTAGE", 0.10)

	v.SetDefault("CONSOLIDATED_DEMAND_PRIORITY", 0.4)
	v.SetDefault("CONSOLIDATED_INVENTORY_PRIORITY", 0.3)
	v.SetDefault("CONSOLIDATED_PRICE_PRIORITY", 0.3)

	v.SetDefault("EFFICIENCY_FACTOR", 0.9)
	v.SetDefault("DEFAULT_ASP", 3000.0)
	v.SetDefault("DEFAULT_CURE_TIME", 15.0)
	v.SetDefault("CURE_TIME_BUFFER", 2.5)
	v.SetDefault("MINUTES_PER_DAY", 1440.0)

	v.SetDefault("MACHINE_COUNT_PENALTY", 0.05)
	v.SetDefault("MOULD_LIFE_THRESHOLD", 0.9)
	v.SetDefault("CRITICAL_GAP_RANK", 50)
	v.SetDefault("EXCESS_PRODUCTION_RANK", 200)
	v.SetDefault("EXCESS_MACHINE_COUNT", 2)
	v.SetDefault("GHOST_SKU_MARKET", "GHOST")

	v.SetDefault("BOOST_BASE", 10.0)
	v.SetDefault("BOOST_MULTIPLIER", 1.0)
	v.SetDefault("OVERSTOCK_PENALTY_FACTOR", 0.0)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_PREFIX", "feeds")
	v.SetDefault("STORAGE_USE_SSL", true)
}

// Load builds the configuration from defaults, an optional config file and
// environment variables, then validates it. Configuration is a precondition
// for every downstream computation: any validation failure aborts the run.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			DataDir:    v.GetString("APP_DATA_DIR"),
			OutputFile: v.GetString("APP_OUTPUT_FILE"),
			LogLevel:   v.GetString("APP_LOG_LEVEL"),
			Parallel:   v.GetInt("APP_PARALLEL"),
		},
		Plant: PlantConfig{
			LocationPrefix:     v.GetString("PLANT_LOCATION_PREFIX"),
			PlantCode:          v.GetString("PLANT_CODE"),
			REAdjustmentFactor: v.GetFloat64("PLANT_RE_ADJUSTMENT_FACTOR"),
		},
		Scoring: ScoringConfig{
			MarketWeights:        toFloatMap(v.GetStringMap("MARKET_WEIGHTS")),
			LocationWeights:      toFloatMap(v.GetStringMap("LOCATION_WEIGHTS")),
			BlackFactor:          v.GetFloat64("INVENTORY_BLACK_FACTOR"),
			RedFactor:            v.GetFloat64("INVENTORY_RED_FACTOR"),
			MarketWeightage:      v.GetFloat64("SCORING_MARKET_WEIGHTAGE"),
			PenetrationWeightage: v.GetFloat64("SCORING_PENETRATION_WEIGHTAGE"),
			RequirementWeightage: v.GetFloat64("SCORING_REQUIREMENT_WEIGHTAGE"),
			TopSKUWeightage:      v.GetFloat64("SCORING_TOP_SKU_WEIGHTAGE"),
			DemandPriority:       v.GetFloat64("CONSOLIDATED_DEMAND_PRIORITY"),
			InventoryPriority:    v.GetFloat64("CONSOLIDATED_INVENTORY_PRIORITY"),
			PricePriority:        v.GetFloat64("CONSOLIDATED_PRICE_PRIORITY"),
		},
		Revenue: RevenueConfig{
			EfficiencyFactor: v.GetFloat64("EFFICIENCY_FACTOR"),
			DefaultASP:       v.GetFloat64("DEFAULT_ASP"),
			DefaultCureTime:  v.GetFloat64("DEFAULT_CURE_TIME"),
			CureTimeBuffer:   v.GetFloat64("CURE_TIME_BUFFER"),
			MinutesPerDay:    v.GetFloat64("MINUTES_PER_DAY"),
		},
		Deploy: DeployConfig{
			MachineCountPenalty:  v.GetFloat64("MACHINE_COUNT_PENALTY"),
			MouldLifeThreshold:   v.GetFloat64("MOULD_LIFE_THRESHOLD"),
			CriticalGapRank:      v.GetInt("CRITICAL_GAP_RANK"),
			ExcessProductionRank: v.GetInt("EXCESS_PRODUCTION_RANK"),
			ExcessMachineCount:   v.GetInt("EXCESS_MACHINE_COUNT"),
			GhostMarket:          v.GetString("GHOST_SKU_MARKET"),
		},
		Manual: ManualConfig{
			BoostBase:              v.GetFloat64("BOOST_BASE"),
			BoostMultiplier:        v.GetFloat64("BOOST_MULTIPLIER"),
			OverstockPenaltyFactor: v.GetFloat64("OVERSTOCK_PENALTY_FACTOR"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// toFloatMap coerces viper's generic string map into float weights. Viper
// lowercases nested map keys (for defaults and config files alike), so keys
// are only trimmed here; feed values resolve through the case-insensitive
// MarketWeight/LocationWeight accessors.
func toFloatMap(in map[string]interface{}) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, raw := range in {
		key := strings.TrimSpace(k)
		switch n := raw.(type) {
		case float64:
			out[key] = n
		case int:
			out[key] = float64(n)
		case int64:
			out[key] = float64(n)
		}
	}
	return out
}

// Validate checks that every parameter the scoring core depends on is present
// and usable.
func (c *Config) Validate() error {
	if c.App.DataDir == "" {
		return fmt.Errorf("config: APP_DATA_DIR must not be empty")
	}
	if c.App.Parallel < 1 {
		return fmt.Errorf("config: APP_PARALLEL must be >= 1, got %d", c.App.Parallel)
	}
	if len(c.Scoring.MarketWeights) == 0 {
		return fmt.Errorf("config: MARKET_WEIGHTS must not be empty")
	}
	for _, market := range []string{"OE", "ST", "EXP", "RE"} {
		if _, ok := weightFor(c.Scoring.MarketWeights, market); !ok {
			return fmt.Errorf("config: MARKET_WEIGHTS is missing market %s", market)
		}
	}
	if len(c.Scoring.LocationWeights) == 0 {
		return fmt.Errorf("config: LOCATION_WEIGHTS must not be empty")
	}
	for name, w := range map[string]float64{
		"SCORING_MARKET_WEIGHTAGE":        c.Scoring.MarketWeightage,
		"SCORING_PENETRATION_WEIGHTAGE":   c.Scoring.PenetrationWeightage,
		"SCORING_REQUIREMENT_WEIGHTAGE":   c.Scoring.RequirementWeightage,
		"SCORING_TOP_SKU_WEIGHTAGE":       c.Scoring.TopSKUWeightage,
		"CONSOLIDATED_DEMAND_PRIORITY":    c.Scoring.DemandPriority,
		"CONSOLIDATED_INVENTORY_PRIORITY": c.Scoring.InventoryPriority,
		"CONSOLIDATED_PRICE_PRIORITY":     c.Scoring.PricePriority,
	} {
		if w < 0 {
			return fmt.Errorf("config: %s must not be negative, got %v", name, w)
		}
	}
	if c.Revenue.DefaultCureTime+c.Revenue.CureTimeBuffer <= 0 {
		return fmt.Errorf("config: DEFAULT_CURE_TIME + CURE_TIME_BUFFER must be positive")
	}
	if c.Revenue.MinutesPerDay <= 0 {
		return fmt.Errorf("config: MINUTES_PER_DAY must be positive, got %v", c.Revenue.MinutesPerDay)
	}
	if c.Deploy.MachineCountPenalty < 0 {
		return fmt.Errorf("config: MACHINE_COUNT_PENALTY must not be negative, got %v", c.Deploy.MachineCountPenalty)
	}
	if c.Deploy.CriticalGapRank <= 0 || c.Deploy.ExcessProductionRank <= 0 {
		return fmt.Errorf("config: gap rank thresholds must be positive")
	}
	if c.Manual.BoostBase <= 1 {
		// Automated composite scores are bounded by the sum of the
		// consolidated weights; the boost base must sit above that.
		return fmt.Errorf("config: BOOST_BASE must exceed the maximum automated score, got %v", c.Manual.BoostBase)
	}
	if c.Manual.OverstockPenaltyFactor < 0 {
		return fmt.Errorf("config: OVERSTOCK_PENALTY_FACTOR must not be negative, got %v", c.Manual.OverstockPenaltyFactor)
	}
	return nil
}
