package exporter

import (
	"github.com/xuri/excelize/v2"

	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// Sheet names, in workbook order.
const (
	SheetComparison      = "Table1_Analysis"
	SheetSectors         = "Table2_Analysis"
	SheetIndustries      = "Table3_Analysis"
	SheetSectorsByZip    = "Table4_Analysis"
	SheetIndustriesByZip = "Table5_Analysis"
	SheetTotalEconomy    = "TotalEconomy_Data"
	SheetMarineEconomy   = "MarineSectors_Data"
)

// SheetNames returns every sheet name in workbook order.
func SheetNames() []string {
	return []string{
		SheetComparison, SheetSectors, SheetIndustries, SheetSectorsByZip,
		SheetIndustriesByZip, SheetTotalEconomy, SheetMarineEconomy,
	}
}

// ColumnWidth sets the width of the columns From through To.
type ColumnWidth struct {
	From, To string
	Width    float64
}

// SheetLayout is the presentation of one worksheet. Sheets with a Title
// carry it merged across the table's columns in row 1 and start the table
// in row 2; sheets without one start in row 1.
type SheetLayout struct {
	Name   string
	Title  string
	Widths []ColumnWidth
}

var (
	comparisonLayout = SheetLayout{
		Name:  SheetComparison,
		Title: "Table 1 - Comparison of Total Economy and Marine Economy",
		Widths: []ColumnWidth{
			{"A", "A", 8}, {"B", "B", 20}, {"C", "C", 5}, {"D", "H", 15},
		},
	}
	sectorsLayout = SheetLayout{
		Name:  SheetSectors,
		Title: "Table 2 - Marine Economy by Sector",
		Widths: []ColumnWidth{
			{"A", "A", 5}, {"B", "B", 25}, {"C", "E", 15},
		},
	}
	industriesLayout = SheetLayout{
		Name:  SheetIndustries,
		Title: "Marine Economy by Industry",
		Widths: []ColumnWidth{
			{"A", "A", 5}, {"B", "B", 7}, {"C", "C", 45}, {"D", "D", 26}, {"E", "G", 15},
		},
	}
	sectorsByZipLayout = SheetLayout{
		Name:  SheetSectorsByZip,
		Title: "Marine Economy by Zip Code by Sector",
		Widths: []ColumnWidth{
			{"A", "A", 8}, {"B", "B", 25}, {"C", "C", 5}, {"D", "D", 26}, {"E", "G", 15},
		},
	}
	industriesByZipLayout = SheetLayout{
		Name:  SheetIndustriesByZip,
		Title: "Marine Economy by Zip Code by Industry",
		Widths: []ColumnWidth{
			{"A", "A", 8}, {"B", "B", 20}, {"C", "C", 5}, {"D", "D", 7}, {"E", "E", 45}, {"F", "F", 26}, {"G", "I", 15},
		},
	}
	totalEconomyLayout  = SheetLayout{Name: SheetTotalEconomy}
	marineEconomyLayout = SheetLayout{Name: SheetMarineEconomy}
)

func marineLayout(g domain.Grouping) SheetLayout {
	switch g {
	case domain.GroupBySector:
		return sectorsLayout
	case domain.GroupByIndustry:
		return industriesLayout
	case domain.GroupBySectorZip:
		return sectorsByZipLayout
	default:
		return industriesByZipLayout
	}
}

// sheetData is a laid-out table ready to be written.
type sheetData struct {
	layout  SheetLayout
	columns []string
	rows    [][]interface{}
}

// analysisSheets returns the five analysis tables in workbook order.
func analysisSheets(tables *domain.AnalysisTables) []sheetData {
	comparison := sheetData{layout: comparisonLayout, columns: domain.ComparisonColumns()}
	for _, r := range tables.Comparison {
		comparison.rows = append(comparison.rows, r.Values())
	}

	sheets := []sheetData{comparison}
	for _, t := range []domain.MarineTable{tables.Sectors, tables.Industries, tables.SectorsByZip, tables.IndustriesByZip} {
		s := sheetData{layout: marineLayout(t.Grouping), columns: t.Grouping.Columns()}
		for _, r := range t.Rows {
			s.rows = append(s.rows, r.Values(t.Grouping))
		}
		sheets = append(sheets, s)
	}
	return sheets
}

// dataSheets returns the two unrounded datasets.
func dataSheets(economy *domain.Economy) []sheetData {
	total := sheetData{layout: totalEconomyLayout, columns: domain.TotalEconomyColumns()}
	for _, r := range economy.Total {
		total.rows = append(total.rows, recordValues(r, false))
	}
	marine := sheetData{layout: marineEconomyLayout, columns: domain.MarineEconomyColumns()}
	for _, r := range economy.Marine {
		marine.rows = append(marine.rows, recordValues(r, true))
	}
	return []sheetData{total, marine}
}

// recordValues follows domain.TotalEconomyColumns, plus the sector for
// marine rows. A missing sector is written like any other missing value.
func recordValues(r domain.EnrichedRecord, marine bool) []interface{} {
	vals := []interface{}{
		r.Zipcode, r.GeoName, r.Year, r.NAICS, r.IndustryName,
		r.EstablishmentCount, r.SizeClassCode, r.SizeClass,
		r.Midpoint, r.EmploymentEstimate,
	}
	if marine {
		if r.HasSector() {
			vals = append(vals, r.MarineSector)
		} else {
			vals = append(vals, missing{})
		}
	}
	return vals
}

// missing marks a cell with no value.
type missing struct{}

func columnRange(w ColumnWidth) (int, int, error) {
	from, err := excelize.ColumnNameToNumber(w.From)
	if err != nil {
		return 0, 0, err
	}
	to, err := excelize.ColumnNameToNumber(w.To)
	if err != nil {
		return 0, 0, err
	}
	return from, to, nil
}
