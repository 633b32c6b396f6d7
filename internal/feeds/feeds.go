// internal/feeds/feeds.go
package feeds

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andresuchdata/vector-priority/internal/domain"
)

// ErrMissing marks a feed file that is absent for the requested date.
// Callers decide whether that skips the date (stage 1 feeds), degrades the
// stage (deployment), or falls back to defaults (prices, cure times).
var ErrMissing = errors.New("feed file missing")

// ErrInvalid marks a feed that is present but structurally unusable, e.g.
// the manual override list missing required columns. The operator must fix
// the input; this is never recovered silently.
var ErrInvalid = errors.New("feed file invalid")

// Source provides the point-in-time input snapshot for one analysis date.
// All loaders are read-only and side-effect free; malformed numeric cells
// are coerced to 0, never raised.
type Source interface {
	// Replenishment returns buffer-replenishment order rows (BOR),
	// restricted to the plant's own location codes.
	Replenishment(date time.Time) ([]domain.DemandRow, error)

	// BufferStatus returns per-location buffer color rows (BPR),
	// including the Top SKU flag per (SKU, location).
	BufferStatus(date time.Time) ([]domain.InventoryLine, error)

	// Backlog returns production-order backlog rows (BMR), restricted to
	// the plant code and tagged Market=EXP.
	Backlog(date time.Time) ([]domain.DemandRow, error)

	// Deployment returns per-SKU machine occupancy aggregated from the
	// daily mould report.
	Deployment(date time.Time) ([]domain.DeploymentRecord, error)

	// Prices returns the mean ASP per material at the plant.
	Prices() (map[string]float64, error)

	// CureTimes returns the maximum known cure time per SKU.
	CureTimes() (map[string]float64, error)

	// ManualOverrides returns the manager-supplied override list.
	ManualOverrides() ([]domain.ManualOverride, error)
}

// FSSource reads feed snapshots from a local data directory laid out the way
// the reporting exports deliver them:
//
//	<root>/Vectordata/BOR/BORColorBandwiseReport__DD-MM-YYYY.csv
//	<root>/Vectordata/BPR/BufferPenetrationReport__DD-MM-YYYY.csv
//	<root>/Vectordata/BMR/Prod_OverAll_BMReport__DD_MM_YYYY.xlsx
//	<root>/Vectordata/Daily Mould Report/DDMMYYYY MouldDetails.csv
//	<root>/DISPATCH1.csv
//	<root>/curing_cycletime.csv
//	<root>/manual_frontend_demand.xlsx
type FSSource struct {
	Root           string
	LocationPrefix string
	PlantCode      string
}

// NewFSSource creates a filesystem-backed feed source rooted at dataDir.
func NewFSSource(dataDir, locationPrefix, plantCode string) *FSSource {
	return &FSSource{
		Root:           dataDir,
		LocationPrefix: locationPrefix,
		PlantCode:      plantCode,
	}
}

func (s *FSSource) replenishmentPath(date time.Time) string {
	return filepath.Join(s.Root, "Vectordata", "BOR",
		fmt.Sprintf("BORColorBandwiseReport__%s.csv", date.Format("02-01-2006")))
}

func (s *FSSource) bufferStatusPath(date time.Time) string {
	return filepath.Join(s.Root, "Vectordata", "BPR",
		fmt.Sprintf("BufferPenetrationReport__%s.csv", date.Format("02-01-2006")))
}

func (s *FSSource) backlogPath(date time.Time) string {
	return filepath.Join(s.Root, "Vectordata", "BMR",
		fmt.Sprintf("Prod_OverAll_BMReport__%s.xlsx", date.Format("02_01_2006")))
}

func (s *FSSource) deploymentPath(date time.Time) string {
	return filepath.Join(s.Root, "Vectordata", "Daily Mould Report",
		fmt.Sprintf("%s MouldDetails.csv", date.Format("02012006")))
}

func (s *FSSource) pricesPath() string {
	return filepath.Join(s.Root, "DISPATCH1.csv")
}

func (s *FSSource) cureTimesPath() string {
	return filepath.Join(s.Root, "curing_cycletime.csv")
}

func (s *FSSource) manualPath() string {
	return filepath.Join(s.Root, "manual_frontend_demand.xlsx")
}

// statFeed maps a missing file onto ErrMissing so callers can branch on it.
func statFeed(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return fmt.Errorf("cannot stat feed %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalid, path)
	}
	return nil
}

// marketFromLocationCode maps the location-code suffix token onto a market.
// Unknown tokens are kept as literal market strings (e.g. EXP-coded
// locations handled elsewhere).
func marketFromLocationCode(locationCode string) domain.Market {
	token := suffixToken(locationCode)
	switch token {
	case "FG10":
		return domain.MarketRE
	case "OE10":
		return domain.MarketOE
	case "ST10":
		return domain.MarketST
	default:
		return domain.Market(token)
	}
}

// suffixToken returns the second underscore-delimited token of a location
// code, e.g. "1300_FG10" -> "FG10".
func suffixToken(locationCode string) string {
	parts := strings.Split(locationCode, "_")
	if len(parts) < 2 {
		return locationCode
	}
	return parts[1]
}
