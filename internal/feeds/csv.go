// internal/feeds/csv.go
package feeds

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/vector-priority/internal/domain"
)

// csvTable is a parsed CSV file with header-name column access.
type csvTable struct {
	header  []string
	records [][]string
}

func readCSV(path string) (*csvTable, error) {
	if err := statFeed(path); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open feed %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no header row", ErrInvalid, path)
	}

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read feed %s: %w", path, err)
		}
		records = append(records, record)
	}

	return &csvTable{header: header, records: records}, nil
}

// colIndex finds the first header matching any of the given names after
// normalization (trim, lowercase, collapse separators).
func (t *csvTable) colIndex(names ...string) int {
	targets := make(map[string]struct{}, len(names))
	for _, name := range names {
		targets[normalizeColumnName(name)] = struct{}{}
	}
	for i, h := range t.header {
		if _, ok := targets[normalizeColumnName(h)]; ok {
			return i
		}
	}
	return -1
}

func normalizeColumnName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, ".", "")
	return strings.Join(strings.Fields(s), " ")
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// cellFloat coerces a numeric cell to float64. Empty or malformed values
// become 0 — individual data-quality gaps never fail the pipeline.
func cellFloat(record []string, idx int) float64 {
	v := cell(record, idx)
	if v == "" {
		return 0
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

// Replenishment loads the buffer-replenishment order report (BOR) and keeps
// only the plant's own location codes. Markets come from the location-code
// suffix token.
func (s *FSSource) Replenishment(date time.Time) ([]domain.DemandRow, error) {
	path := s.replenishmentPath(date)
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idxLocation := table.colIndex("Location Code")
	idxSKU := table.colIndex("SKUCode", "SKU Code")
	idxDesc := table.colIndex("SKU Description")
	idxNorm := table.colIndex("Norm")
	idxVirtualNorm := table.colIndex("Virtual Norm")
	idxStock := table.colIndex("Stock")

	if idxLocation < 0 || idxSKU < 0 {
		return nil, fmt.Errorf("%w: %s lacks Location Code / SKUCode columns", ErrInvalid, path)
	}

	rows := make([]domain.DemandRow, 0, len(table.records))
	for _, record := range table.records {
		locationCode := cell(record, idxLocation)
		if !strings.HasPrefix(locationCode, s.LocationPrefix) {
			continue
		}
		sku := cell(record, idxSKU)
		if sku == "" {
			continue
		}
		rows = append(rows, domain.DemandRow{
			SKUCode:      sku,
			Description:  cell(record, idxDesc),
			LocationCode: locationCode,
			Market:       marketFromLocationCode(locationCode),
			Norm:         cellFloat(record, idxNorm),
			VirtualNorm:  cellFloat(record, idxVirtualNorm),
			Stock:        cellFloat(record, idxStock),
			HasNorm:      true,
		})
	}

	return rows, nil
}

// BufferStatus loads the buffer penetration report (BPR): one line per
// (SKU, location) with its on-hand color and Top SKU flag. The historical
// export spells "depot" inconsistently; normalize it.
func (s *FSSource) BufferStatus(date time.Time) ([]domain.InventoryLine, error) {
	path := s.bufferStatusPath(date)
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idxSKU := table.colIndex("SKUCode", "SKU Code")
	idxLocation := table.colIndex("Location Code")
	idxLocationType := table.colIndex("Location Type")
	idxColor := table.colIndex("On hand Inv. Color", "On hand Inv Color")
	idxTopSKU := table.colIndex("Top SKU")

	if idxSKU < 0 {
		return nil, fmt.Errorf("%w: %s lacks a SKUCode column", ErrInvalid, path)
	}

	lines := make([]domain.InventoryLine, 0, len(table.records))
	for _, record := range table.records {
		sku := cell(record, idxSKU)
		if sku == "" {
			continue
		}
		locationType := cell(record, idxLocationType)
		if locationType == "depot" {
			locationType = "Depot"
		}
		lines = append(lines, domain.InventoryLine{
			SKUCode:      sku,
			LocationCode: cell(record, idxLocation),
			LocationType: locationType,
			Color:        domain.InventoryColor(cell(record, idxColor)),
			TopSKU:       strings.EqualFold(cell(record, idxTopSKU), "T"),
		})
	}

	return lines, nil
}

// Deployment loads the daily mould report and aggregates it per SKU:
// distinct work centers become the machine count, and MouldLife/TargetLife
// ratios are averaged into mould health.
func (s *FSSource) Deployment(date time.Time) ([]domain.DeploymentRecord, error) {
	path := s.deploymentPath(date)
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idxSKU := table.colIndex("Sapcode", "Sap Code")
	idxWC := table.colIndex("WCNAME", "WC Name")
	idxMouldLife := table.colIndex("Mould life")
	idxTargetLife := table.colIndex("Target life")

	if idxSKU < 0 || idxWC < 0 {
		return nil, fmt.Errorf("%w: %s lacks Sapcode / WCNAME columns", ErrInvalid, path)
	}

	type agg struct {
		machines    map[string]struct{}
		healthSum   float64
		healthCount int
	}
	bySKU := make(map[string]*agg)
	var order []string

	for _, record := range table.records {
		sku := cell(record, idxSKU)
		if sku == "" {
			continue
		}
		a, ok := bySKU[sku]
		if !ok {
			a = &agg{machines: make(map[string]struct{})}
			bySKU[sku] = a
			order = append(order, sku)
		}
		// RH/LH sides share a WCNAME; count the physical machine once.
		if wc := cell(record, idxWC); wc != "" {
			a.machines[wc] = struct{}{}
		}
		target := cellFloat(record, idxTargetLife)
		if target > 0 {
			a.healthSum += cellFloat(record, idxMouldLife) / target
			a.healthCount++
		}
	}

	records := make([]domain.DeploymentRecord, 0, len(order))
	for _, sku := range order {
		a := bySKU[sku]
		health := 0.0
		if a.healthCount > 0 {
			health = a.healthSum / float64(a.healthCount)
		}
		records = append(records, domain.DeploymentRecord{
			SKUCode:        sku,
			MachineCount:   len(a.machines),
			AvgMouldHealth: health,
		})
	}

	return records, nil
}

// Prices loads the dispatch transactions and returns the mean unit price
// (amount / quantity) per material for the plant.
func (s *FSSource) Prices() (map[string]float64, error) {
	path := s.pricesPath()
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idxPlant := table.colIndex("Plant")
	idxMaterial := table.colIndex("Material")
	idxAmount := table.colIndex("Amt.in loc.cur.", "Amount")
	idxQty := table.colIndex("Quantity")

	type acc struct {
		sum   float64
		count int
	}
	byMaterial := make(map[string]*acc)

	for _, record := range table.records {
		if cell(record, idxPlant) != s.PlantCode {
			continue
		}
		material := cell(record, idxMaterial)
		if material == "" {
			continue
		}
		qty := cellFloat(record, idxQty)
		if qty == 0 {
			continue
		}
		a, ok := byMaterial[material]
		if !ok {
			a = &acc{}
			byMaterial[material] = a
		}
		a.sum += cellFloat(record, idxAmount) / qty
		a.count++
	}

	asp := make(map[string]float64, len(byMaterial))
	for material, a := range byMaterial {
		asp[material] = a.sum / float64(a.count)
	}

	return asp, nil
}

// CureTimes loads the curing cycle-time list. Duplicate SKUs resolve to the
// maximum known cure time.
func (s *FSSource) CureTimes() (map[string]float64, error) {
	path := s.cureTimesPath()
	table, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	idxSKU := table.colIndex("SKUCode", "SKU Code")
	idxCure := table.colIndex("Cure Time")
	if idxSKU < 0 || idxCure < 0 {
		return nil, fmt.Errorf("%w: %s lacks SKUCode / Cure Time columns", ErrInvalid, path)
	}

	cure := make(map[string]float64)
	for _, record := range table.records {
		sku := cell(record, idxSKU)
		if sku == "" {
			continue
		}
		ct := cellFloat(record, idxCure)
		if existing, ok := cure[sku]; !ok || ct > existing {
			cure[sku] = ct
		}
	}

	return cure, nil
}
