package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/reference"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

var defaultMidpoints = []string{"2.5", "7", "14.5", "34.5", "74.5", "174.5", "374.5", "749.5", "1000"}

func rawRecord(zip, naics, sizeClass, estab string) domain.EstablishmentRecord {
	return domain.EstablishmentRecord{
		Zipcode:        zip,
		GeoName:        "ZIP " + zip,
		Year:           "2016",
		NAICS:          naics,
		IndustryName:   "Industry " + naics,
		Establishments: estab,
		SizeClassCode:  sizeClass,
		SizeClass:      "Size " + sizeClass,
	}
}

func newTestEnricher(t *testing.T) *Enricher {
	t.Helper()
	ref, err := reference.Load()
	require.NoError(t, err)
	mp, err := reference.NewMidpoints(defaultMidpoints)
	require.NoError(t, err)
	return NewEnricher(ref, mp, nil)
}
