package domain

import "unicode/utf8"

// Column labels of the stable external vocabulary shared by every table
// the pipeline produces.
const (
	ColZipcode                 = "Zipcode"
	ColGeoName                 = "GeoName"
	ColYear                    = "Year"
	ColNAICS                   = "NAICS"
	ColIndustryName            = "Industry Name"
	ColEstablishments          = "Establishments"
	ColSizeClassCode           = "Employment Size Class Code"
	ColSizeClass               = "Employment Size Class"
	ColMidpoint                = "Midpoint"
	ColEmploymentEstimate      = "Employment Estimate"
	ColMarineSector            = "Marine Sector"
	ColMarineEstablishments    = "Marine Establishments"
	ColMarineEmployment        = "Marine Employment"
	ColPercentMarineEmployment = "Percent Marine Employment"
	ColAverageEmployment       = "Average Employment"
)

// AllEstablishmentsSizeClass is the size-class code of the upstream
// "All establishments" rollup row.
const AllEstablishmentsSizeClass = "001"

// LeafIndustryCodeLength is the length of a leaf (most specific) industry code.
const LeafIndustryCodeLength = 6

// StudyAreaZipcode and StudyAreaGeoName identify the synthetic row that
// totals every zip code of the study area.
const (
	StudyAreaZipcode = "XXXXX"
	StudyAreaGeoName = "Total for Study Area"
)

// EstablishmentRecord is one row of the upstream establishment table, kept
// in its textual form. Establishments is not parsed here: the cleaner
// compares it as text and the enricher coerces it.
type EstablishmentRecord struct {
	Zipcode        string `json:"zipcode"`
	GeoName        string `json:"geo_name"`
	Year           string `json:"year"`
	NAICS          string `json:"naics"`
	IndustryName   string `json:"industry_name"`
	Establishments string `json:"establishments"`
	SizeClassCode  string `json:"size_class_code"`
	SizeClass      string `json:"size_class"`
}

// EstablishmentColumns is the column order of raw and cleaned tables.
func EstablishmentColumns() []string {
	return []string{
		ColZipcode, ColGeoName, ColYear, ColNAICS, ColIndustryName,
		ColEstablishments, ColSizeClassCode, ColSizeClass,
	}
}

// IsLeafIndustry reports whether the record carries a 6-character industry
// code. Characters are counted, not bytes.
func (r EstablishmentRecord) IsLeafIndustry() bool {
	return utf8.RuneCountInString(r.NAICS) == LeafIndustryCodeLength
}

// RawTable is the concatenation of every per-zip response in input order.
type RawTable []EstablishmentRecord

// CleanStats counts the rows each cleaner filter removed.
type CleanStats struct {
	Input               int `json:"input"`
	DroppedAllEstab     int `json:"dropped_all_establishments"`
	DroppedIndustryCode int `json:"dropped_industry_code"`
	DroppedZeroEstab    int `json:"dropped_zero_establishments"`
	Kept                int `json:"kept"`
}

// CleanResult is the cleaner's output: the filtered records and an audit of
// what was removed.
type CleanResult struct {
	Records []EstablishmentRecord `json:"records"`
	Stats   CleanStats            `json:"stats"`
}
