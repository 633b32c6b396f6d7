// internal/feeds/xlsx.go
package feeds

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vector-priority/internal/domain"
)

// readXLSX reads the first sheet of an XLSX file into rows of strings.
func readXLSX(path string) ([][]string, error) {
	if err := statFeed(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx file %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: xlsx file %s has no sheets", ErrInvalid, path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
	}

	return rows, nil
}

// xlsxTable wraps sheet rows with the same header-index access as csvTable.
func xlsxTable(rows [][]string, headerRow int) *csvTable {
	t := &csvTable{}
	if headerRow < len(rows) {
		t.header = rows[headerRow]
		t.records = rows[headerRow+1:]
	}
	return t
}

// Backlog loads the production-order backlog workbook (BMR). The export
// carries a merged title line above the real header, so the header sits on
// the second sheet row. Rows are filtered to the plant code; every backlog
// row is an export order with the Top SKU flag set, and carries its
// requirement and penetration precomputed (no virtual norm).
func (s *FSSource) Backlog(date time.Time) ([]domain.DemandRow, error) {
	path := s.backlogPath(date)
	rows, err := readXLSX(path)
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrInvalid, path)
	}

	table := xlsxTable(rows, 1)
	idxPlant := table.colIndex("Plant Code")
	idxSKU := table.colIndex("Item Code")
	idxDesc := table.colIndex("Item Description", "SKU Description")
	idxPending := table.colIndex("Pending CCR Qty", "Pending Qty")
	idxBPP := table.colIndex("BPP")

	if idxPlant < 0 || idxSKU < 0 {
		return nil, fmt.Errorf("%w: %s lacks Plant Code / Item Code columns", ErrInvalid, path)
	}

	out := make([]domain.DemandRow, 0, len(table.records))
	for _, record := range table.records {
		if cell(record, idxPlant) != s.PlantCode {
			continue
		}
		sku := cell(record, idxSKU)
		if sku == "" {
			continue
		}
		out = append(out, domain.DemandRow{
			SKUCode:     sku,
			Description: cell(record, idxDesc),
			Market:      domain.MarketEXP,
			Requirement: cellFloat(record, idxPending),
			Penetration: cellFloat(record, idxBPP),
			TopSKU:      true,
			HasNorm:     false,
		})
	}

	return out, nil
}

// ManualOverrides loads and validates the manager-supplied override list.
// A missing file or missing required columns is an input the operator must
// fix; both surface as errors rather than degrading silently. A present but
// empty list is valid and yields zero overrides.
func (s *FSSource) ManualOverrides() ([]domain.ManualOverride, error) {
	path := s.manualPath()
	rows, err := readXLSX(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrInvalid, path)
	}

	table := xlsxTable(rows, 0)
	idxSKU := table.colIndex("SKU Code", "SKUCode")
	idxDesc := table.colIndex("SKU Description")
	idxMarket := table.colIndex("Market")
	idxQty := table.colIndex("Quantity")
	idxHP := table.colIndex("Highest Priority")

	required := []struct {
		name string
		idx  int
	}{
		{"SKU Code", idxSKU},
		{"Market", idxMarket},
		{"Quantity", idxQty},
		{"Highest Priority", idxHP},
	}
	var missing []string
	for _, col := range required {
		if col.idx < 0 {
			missing = append(missing, col.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s is missing required columns: %s",
			ErrInvalid, path, strings.Join(missing, ", "))
	}

	out := make([]domain.ManualOverride, 0, len(table.records))
	for _, record := range table.records {
		sku := cell(record, idxSKU)
		if sku == "" {
			continue
		}
		hp, _ := strconv.Atoi(cell(record, idxHP))
		out = append(out, domain.ManualOverride{
			SKUCode:         sku,
			Description:     cell(record, idxDesc),
			Market:          domain.Market(cell(record, idxMarket)),
			Quantity:        cellFloat(record, idxQty),
			HighestPriority: hp,
		})
	}

	return out, nil
}
