// internal/pipeline/priority/inventory.go
package priority

import (
	"github.com/andresuchdata/vector-priority/internal/config"
	"github.com/andresuchdata/vector-priority/internal/domain"
)

// InventoryScorer turns raw buffer-status lines into one inventory-risk
// score per SKU: a location-weighted, color-weighted count of Black and Red
// stocking points.
type InventoryScorer struct {
	cfg *config.Config
}

// NewInventoryScorer creates an inventory scorer bound to the run config.
func NewInventoryScorer(cfg *config.Config) *InventoryScorer {
	return &InventoryScorer{cfg: cfg}
}

// Score aggregates buffer lines per SKU. Only Black and Red lines count;
// location types with no configured weight contribute zero.
func (s *InventoryScorer) Score(lines []domain.InventoryLine) map[string]float64 {
	scores := make(map[string]float64)
	for _, line := range lines {
		var factor float64
		switch line.Color {
		case domain.ColorBlack:
			factor = s.cfg.Scoring.BlackFactor
		case domain.ColorRed:
			factor = s.cfg.Scoring.RedFactor
		default:
			continue
		}
		weight := s.cfg.Scoring.LocationWeight(line.LocationType)
		scores[line.SKUCode] += weight * factor
	}
	return scores
}
