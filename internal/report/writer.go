// internal/report/writer.go
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/vector-priority/internal/domain"
	"github.com/andresuchdata/vector-priority/internal/pipeline/priority"
)

// Writer emits one workbook per run, with one sheet per analysis date named
// DDMMYYYY. Columns follow a fixed left-to-right narrative: identification,
// targets, demand signals, attributes, inventory, deployment and gap flags,
// revenue, then scoring and rank. Hybrid-only columns (final rank, source,
// manual scores) appear only when the manual stage ran.
type Writer struct {
	path  string
	f     *excelize.File
	first bool
}

// NewWriter creates a workbook writer targeting the given path. Nothing is
// written to disk until Save.
func NewWriter(path string) *Writer {
	return &Writer{path: path, f: excelize.NewFile(), first: true}
}

// WriteDate adds one sheet holding the date's final table.
func (w *Writer) WriteDate(result *priority.Result) error {
	sheet := result.Date.Format("02012006")

	if w.first {
		// Rename the workbook's default sheet instead of leaving it empty.
		defaultSheet := w.f.GetSheetName(0)
		if err := w.f.SetSheetName(defaultSheet, sheet); err != nil {
			return fmt.Errorf("failed to name sheet %s: %w", sheet, err)
		}
		w.first = false
	} else {
		if _, err := w.f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}
	}

	hybrid := result.Hybrid != nil
	columns := layout(hybrid)

	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col.name
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}

	records := result.Final()
	for i := range records {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = col.value(&records[i])
		}
		cellRef, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cellRef, &row); err != nil {
			return fmt.Errorf("failed to write row %d on %s: %w", i+2, sheet, err)
		}
	}

	return nil
}

// Save writes the workbook to disk.
func (w *Writer) Save() error {
	if w.first {
		return fmt.Errorf("refusing to save empty report %s", w.path)
	}
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save report %s: %w", w.path, err)
	}
	return w.f.Close()
}

type column struct {
	name  string
	value func(*domain.SKURecord) interface{}
}

// layout returns the ordered output columns. The hybrid layout leads with
// the final production sequence and the source/override block.
func layout(hybrid bool) []column {
	var cols []column

	if hybrid {
		cols = append(cols,
			column{"Final Rank", func(r *domain.SKURecord) interface{} { return r.FinalRank }},
		)
	}

	cols = append(cols,
		// Identification
		column{"SKUCode", func(r *domain.SKURecord) interface{} { return r.SKUCode }},
		column{"SKU Description", func(r *domain.SKURecord) interface{} { return r.Description }},
		column{"size", func(r *domain.SKURecord) interface{} { return r.Size }},
	)

	if hybrid {
		cols = append(cols,
			column{"Source", func(r *domain.SKURecord) interface{} { return string(r.Source) }},
			column{"HighestPriority", func(r *domain.SKURecord) interface{} { return r.HighestPriority }},
			column{"ManualPriorityScore", func(r *domain.SKURecord) interface{} { return r.ManualPriorityScore }},
			column{"ManualRank", func(r *domain.SKURecord) interface{} { return r.ManualRank }},
			column{"StrategicPriorityScore", func(r *domain.SKURecord) interface{} { return r.StrategicPriorityScore }},
		)
	}

	cols = append(cols,
		// Targets
		column{"Market", func(r *domain.SKURecord) interface{} { return string(r.Market) }},
		column{"Norm", func(r *domain.SKURecord) interface{} { return r.Norm }},
		column{"Virtual Norm", func(r *domain.SKURecord) interface{} { return r.VirtualNorm }},
		column{"Adjusted_Target", func(r *domain.SKURecord) interface{} { return r.AdjustedTarget }},

		// Demand signals
		column{"Stock", func(r *domain.SKURecord) interface{} { return r.Stock }},
	)

	if hybrid {
		cols = append(cols,
			column{"Vector_Requirement", func(r *domain.SKURecord) interface{} { return r.VectorRequirement }},
			column{"CPT_Requirement", func(r *domain.SKURecord) interface{} { return r.CPTRequirement }},
		)
	}

	cols = append(cols,
		column{"Requirement", func(r *domain.SKURecord) interface{} { return r.Requirement }},
		column{"Penetration", func(r *domain.SKURecord) interface{} { return r.Penetration }},
		column{"NormPenetration", func(r *domain.SKURecord) interface{} { return r.NormPenetration }},
		column{"NormRequirement", func(r *domain.SKURecord) interface{} { return r.NormRequirement }},

		// Attributes
		column{"Top SKU", func(r *domain.SKURecord) interface{} { return topSKUMark(r) }},
		column{"TopSKUFlag", func(r *domain.SKURecord) interface{} { return r.TopSKUFlag }},
		column{"MarketWeight", func(r *domain.SKURecord) interface{} { return r.MarketWeight }},
		column{"priority", func(r *domain.SKURecord) interface{} { return priorityTuple(r) }},

		// Inventory signals
		column{"PriorityScore_Inventory", func(r *domain.SKURecord) interface{} { return r.InventoryScore }},
		column{"NormInventoryScore", func(r *domain.SKURecord) interface{} { return r.NormInventoryScore }},

		// Deployment metrics & gap flags
		column{"MachineCount", func(r *domain.SKURecord) interface{} { return r.MachineCount }},
		column{"AvgMouldHealth", func(r *domain.SKURecord) interface{} { return r.AvgMouldHealth }},
		column{"ProxyScore", func(r *domain.SKURecord) interface{} { return r.ProxyScore }},
		column{"ProxyRank", func(r *domain.SKURecord) interface{} { return r.ProxyRank }},
		column{"CriticalGap", func(r *domain.SKURecord) interface{} { return r.CriticalGap }},
		column{"ExcessProduction", func(r *domain.SKURecord) interface{} { return r.ExcessProduction }},
		column{"MouldAlert", func(r *domain.SKURecord) interface{} { return r.MouldAlert }},
		column{"IsGhostSKU", func(r *domain.SKURecord) interface{} { return r.IsGhostSKU }},

		// Revenue & efficiency
		column{"ASP", func(r *domain.SKURecord) interface{} { return r.ASP }},
		column{"Cure Time", func(r *domain.SKURecord) interface{} { return r.CureTime }},
		column{"daily_cure", func(r *domain.SKURecord) interface{} { return r.DailyThroughput }},
		column{"rev_pot", func(r *domain.SKURecord) interface{} { return r.RevenuePotential }},
		column{"price_priority", func(r *domain.SKURecord) interface{} { return r.PriceScore }},

		// Scoring & ranking
		column{"PriorityScore", func(r *domain.SKURecord) interface{} { return r.DemandScore }},
		column{"ConsolidatedPriorityScore", func(r *domain.SKURecord) interface{} { return r.CompositeScore }},
		column{"Rank_ConsolidatedPriorityScore", func(r *domain.SKURecord) interface{} { return r.ConsolidatedRank }},
	)

	return cols
}

func topSKUMark(r *domain.SKURecord) string {
	if r.TopSKU {
		return "T"
	}
	return ""
}

// priorityTuple renders the demand sort key the way the planners are used
// to reading it: a negated descending tuple.
func priorityTuple(r *domain.SKURecord) string {
	return fmt.Sprintf("(%g, %g, %g, %g)",
		-r.MarketWeight, -r.Penetration, -r.Requirement, -r.TopSKUFlag)
}
