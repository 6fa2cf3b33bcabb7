package census

import (
	"strconv"
)

// Upstream variable names that do not depend on the dataset year.
const (
	varGeoTitle       = "GEO_TTL"
	varYear           = "YEAR"
	varSizeClass      = "EMPSZES"
	varSizeClassTitle = "EMPSZES_TTL"
	varEstablishments = "ESTAB"
	geographyZipcode  = "zipcode"
)

// zipHeaderLabels are the labels the API has used for the geography column.
var zipHeaderLabels = []string{"zipcode", "zip code"}

// vintage names the industry-code variables for a dataset year. ZBP moved
// from the 2012 to the 2017 industry classification with the 2017 release.
type vintage struct {
	Code  string
	Title string
}

var (
	naics2012 = vintage{Code: "NAICS2012", Title: "NAICS2012_TTL"}
	naics2017 = vintage{Code: "NAICS2017", Title: "NAICS2017_TTL"}
)

func vintageFor(year string) vintage {
	y, err := strconv.Atoi(year)
	if err == nil && y >= 2017 {
		return naics2017
	}
	return naics2012
}

// getVariables is the ordered get= list for a vintage.
func (v vintage) getVariables() []string {
	return []string{varGeoTitle, varYear, v.Title, varSizeClass, varSizeClassTitle, varEstablishments}
}
