package domain

// ComparisonRow is one row of the total-versus-marine comparison table.
type ComparisonRow struct {
	Zipcode                 string  `json:"zipcode"`
	GeoName                 string  `json:"geo_name"`
	Year                    string  `json:"year"`
	Establishments          float64 `json:"establishments"`
	EmploymentEstimate      float64 `json:"employment_estimate"`
	MarineEstablishments    float64 `json:"marine_establishments"`
	MarineEmployment        float64 `json:"marine_employment"`
	PercentMarineEmployment float64 `json:"percent_marine_employment"`
}

// IsStudyArea reports whether the row is the synthetic whole-study-area total.
func (r ComparisonRow) IsStudyArea() bool {
	return r.Zipcode == StudyAreaZipcode && r.GeoName == StudyAreaGeoName
}

// ComparisonColumns is the column order of the comparison table.
func ComparisonColumns() []string {
	return []string{
		ColZipcode, ColGeoName, ColYear, ColEstablishments, ColEmploymentEstimate,
		ColMarineEstablishments, ColMarineEmployment, ColPercentMarineEmployment,
	}
}

// Values returns the row's cells in ComparisonColumns order.
func (r ComparisonRow) Values() []interface{} {
	return []interface{}{
		r.Zipcode, r.GeoName, r.Year, r.Establishments, r.EmploymentEstimate,
		r.MarineEstablishments, r.MarineEmployment, r.PercentMarineEmployment,
	}
}

// Grouping names the key columns a MarineRow was aggregated on.
type Grouping int

const (
	GroupBySector Grouping = iota
	GroupByIndustry
	GroupBySectorZip
	GroupByIndustryZip
)

func (g Grouping) String() string {
	switch g {
	case GroupBySector:
		return "sector"
	case GroupByIndustry:
		return "industry"
	case GroupBySectorZip:
		return "sector_by_zip"
	case GroupByIndustryZip:
		return "industry_by_zip"
	default:
		return "unknown"
	}
}

// ByZip reports whether the grouping keeps the zip code dimension.
func (g Grouping) ByZip() bool {
	return g == GroupBySectorZip || g == GroupByIndustryZip
}

// ByIndustry reports whether the grouping keeps the industry dimension.
func (g Grouping) ByIndustry() bool {
	return g == GroupByIndustry || g == GroupByIndustryZip
}

// KeyColumns returns the grouping key columns in output order.
func (g Grouping) KeyColumns() []string {
	var cols []string
	if g.ByZip() {
		cols = append(cols, ColZipcode, ColGeoName)
	}
	cols = append(cols, ColYear)
	if g.ByIndustry() {
		cols = append(cols, ColNAICS, ColIndustryName)
	}
	return append(cols, ColMarineSector)
}

// Columns returns the full column order of a table with this grouping.
func (g Grouping) Columns() []string {
	return append(g.KeyColumns(), ColEstablishments, ColEmploymentEstimate, ColAverageEmployment)
}

// MarineRow is one row of a sector or industry table. Key fields outside
// the table's grouping are left empty.
type MarineRow struct {
	Zipcode            string  `json:"zipcode,omitempty"`
	GeoName            string  `json:"geo_name,omitempty"`
	Year               string  `json:"year"`
	NAICS              string  `json:"naics,omitempty"`
	IndustryName       string  `json:"industry_name,omitempty"`
	MarineSector       string  `json:"marine_sector"`
	Establishments     float64 `json:"establishments"`
	EmploymentEstimate float64 `json:"employment_estimate"`
	AverageEmployment  float64 `json:"average_employment"`
}

// Values returns the row's cells in g.Columns() order.
func (r MarineRow) Values(g Grouping) []interface{} {
	var vals []interface{}
	if g.ByZip() {
		vals = append(vals, r.Zipcode, r.GeoName)
	}
	vals = append(vals, r.Year)
	if g.ByIndustry() {
		vals = append(vals, r.NAICS, r.IndustryName)
	}
	return append(vals, r.MarineSector, r.Establishments, r.EmploymentEstimate, r.AverageEmployment)
}

// MarineTable is an aggregated marine table together with its grouping.
type MarineTable struct {
	Grouping Grouping    `json:"grouping"`
	Rows     []MarineRow `json:"rows"`
}

// AnalysisTables are the five analysis tables of a report.
type AnalysisTables struct {
	Comparison      []ComparisonRow `json:"comparison"`
	Sectors         MarineTable     `json:"sectors"`
	Industries      MarineTable     `json:"industries"`
	SectorsByZip    MarineTable     `json:"sectors_by_zip"`
	IndustriesByZip MarineTable     `json:"industries_by_zip"`
}
