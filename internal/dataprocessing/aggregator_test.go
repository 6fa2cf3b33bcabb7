package dataprocessing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

func runPipeline(t *testing.T, raw domain.RawTable) (*domain.Economy, *domain.AnalysisTables) {
	t.Helper()
	cleaned := Clean(raw)
	economy, err := newTestEnricher(t).Enrich(context.Background(), cleaned.Records)
	require.NoError(t, err)
	tables, err := NewAggregator("2016", nil).Aggregate(context.Background(), economy)
	require.NoError(t, err)
	return economy, tables
}

func TestAggregate_SingleZipScenario(t *testing.T) {
	_, tables := runPipeline(t, domain.RawTable{rawRecord("54880", "112511", "212", "3")})

	require.Len(t, tables.Comparison, 2)
	zipRow := tables.Comparison[0]
	assert.Equal(t, "54880", zipRow.Zipcode)
	assert.False(t, zipRow.IsStudyArea())

	study := tables.Comparison[1]
	assert.True(t, study.IsStudyArea())
	assert.Equal(t, domain.StudyAreaZipcode, study.Zipcode)
	assert.Equal(t, "Total for Study Area", study.GeoName)
	assert.Equal(t, "2016", study.Year)
	assert.Equal(t, 3.0, study.Establishments)
	assert.Equal(t, 7.5, study.EmploymentEstimate)
	assert.Equal(t, 3.0, study.MarineEstablishments)
	assert.Equal(t, 7.5, study.MarineEmployment)
	assert.Equal(t, 100.0, study.PercentMarineEmployment)

	require.Len(t, tables.Sectors.Rows, 1)
	sector := tables.Sectors.Rows[0]
	assert.Equal(t, "Living Resources", sector.MarineSector)
	assert.Equal(t, 2.5, sector.AverageEmployment)
	assert.Empty(t, sector.Zipcode)
	assert.Empty(t, sector.NAICS)

	require.Len(t, tables.IndustriesByZip.Rows, 1)
	ind := tables.IndustriesByZip.Rows[0]
	assert.Equal(t, "54880", ind.Zipcode)
	assert.Equal(t, "112511", ind.NAICS)
	assert.Equal(t, "Industry 112511", ind.IndustryName)
}

func TestAggregate_NonMarineAndZeroRowsAbsent(t *testing.T) {
	economy, tables := runPipeline(t, domain.RawTable{
		rawRecord("54880", "112511", "212", "3"),
		rawRecord("54880", "999999", "220", "5"),
		rawRecord("54880", "713930", "230", "0"),
	})

	require.Len(t, economy.Total, 2)
	for _, r := range economy.Marine {
		assert.NotEqual(t, "999999", r.NAICS)
		assert.NotEqual(t, "713930", r.NAICS)
	}
	for _, tbl := range []domain.MarineTable{tables.Industries, tables.IndustriesByZip} {
		for _, r := range tbl.Rows {
			assert.NotEqual(t, "999999", r.NAICS)
			assert.NotEqual(t, "713930", r.NAICS)
		}
	}

	study := tables.Comparison[len(tables.Comparison)-1]
	assert.Equal(t, 8.0, study.Establishments)
	assert.Equal(t, 42.5, study.EmploymentEstimate)
	assert.Equal(t, 3.0, study.MarineEstablishments)
	assert.Equal(t, 7.5, study.MarineEmployment)
	assert.Equal(t, 17.6, study.PercentMarineEmployment)
}

func TestAggregate_ZipWithoutMarineRows(t *testing.T) {
	_, tables := runPipeline(t, domain.RawTable{
		rawRecord("55807", "999999", "212", "4"),
		rawRecord("54880", "112511", "212", "3"),
	})

	require.Len(t, tables.Comparison, 2)
	assert.Equal(t, "54880", tables.Comparison[0].Zipcode)
	for _, r := range tables.Comparison {
		assert.NotEqual(t, "55807", r.Zipcode)
	}

	// The study-area row still sums every total row.
	study := tables.Comparison[1]
	assert.True(t, study.IsStudyArea())
	assert.Equal(t, 7.0, study.Establishments)
	assert.Equal(t, 17.5, study.EmploymentEstimate)
	assert.Equal(t, 3.0, study.MarineEstablishments)
	assert.Equal(t, 7.5, study.MarineEmployment)
	assert.Equal(t, 42.9, study.PercentMarineEmployment)
}

func TestAggregate_NoMarineRows(t *testing.T) {
	_, tables := runPipeline(t, domain.RawTable{
		rawRecord("55807", "999999", "212", "4"),
		rawRecord("54880", "541110", "220", "2"),
	})

	assert.Empty(t, tables.Comparison)
	assert.Empty(t, tables.Sectors.Rows)
}

func TestAggregate_UndefinedRatiosStayNaN(t *testing.T) {
	_, tables := runPipeline(t, domain.RawTable{
		// No midpoint for this size class: employment is NaN and sums to zero.
		rawRecord("54880", "112511", "213", "3"),
		// "00" survives the textual zero filter and sums to zero establishments.
		rawRecord("55807", "713930", "212", "00"),
	})

	zip := tables.Comparison[0]
	assert.Equal(t, "54880", zip.Zipcode)
	assert.Equal(t, 3.0, zip.Establishments)
	assert.Equal(t, 0.0, zip.EmploymentEstimate)
	assert.True(t, math.IsNaN(zip.PercentMarineEmployment))

	var tourism domain.MarineRow
	for _, r := range tables.Sectors.Rows {
		if r.MarineSector == "Tourism and Recreation" {
			tourism = r
		}
	}
	assert.Equal(t, 0.0, tourism.Establishments)
	assert.True(t, math.IsNaN(tourism.AverageEmployment))
}

func TestAggregate_GroupsAreSorted(t *testing.T) {
	_, tables := runPipeline(t, domain.RawTable{
		rawRecord("55807", "713930", "212", "1"),
		rawRecord("54880", "483111", "212", "1"),
		rawRecord("55616", "112511", "212", "1"),
		rawRecord("54880", "112511", "220", "2"),
	})

	var zips []string
	for _, r := range tables.Comparison {
		zips = append(zips, r.Zipcode)
	}
	assert.Equal(t, []string{"54880", "55616", "55807", domain.StudyAreaZipcode}, zips)

	var sectors []string
	for _, r := range tables.Sectors.Rows {
		sectors = append(sectors, r.MarineSector)
	}
	assert.Equal(t, []string{"Living Resources", "Marine Transportation", "Tourism and Recreation"}, sectors)

	var industries []string
	for _, r := range tables.Industries.Rows {
		industries = append(industries, r.NAICS)
	}
	assert.Equal(t, []string{"112511", "483111", "713930"}, industries)

	lr := tables.Industries.Rows[0]
	assert.Equal(t, 3.0, lr.Establishments)
	assert.Equal(t, 16.5, lr.EmploymentEstimate)
	assert.Equal(t, 5.5, lr.AverageEmployment)

	assert.Len(t, tables.SectorsByZip.Rows, 4)
	assert.Equal(t, domain.GroupBySectorZip, tables.SectorsByZip.Grouping)
}

func TestAggregate_MissingSectorRows(t *testing.T) {
	economy := &domain.Economy{
		Total: []domain.EnrichedRecord{
			{EstablishmentRecord: rawRecord("54880", "114111", "212", "2"), EstablishmentCount: 2, Midpoint: 2.5, EmploymentEstimate: 5},
		},
		Marine: []domain.EnrichedRecord{
			{EstablishmentRecord: rawRecord("54880", "114111", "212", "2"), EstablishmentCount: 2, Midpoint: 2.5, EmploymentEstimate: 5},
		},
	}

	tables, err := NewAggregator("2016", nil).Aggregate(context.Background(), economy)
	require.NoError(t, err)

	assert.Empty(t, tables.Sectors.Rows)
	assert.Empty(t, tables.IndustriesByZip.Rows)
	study := tables.Comparison[len(tables.Comparison)-1]
	assert.Equal(t, 5.0, study.MarineEmployment)
}

func TestAggregate_Conservation(t *testing.T) {
	raw := domain.RawTable{}
	zips := []string{"54880", "55807", "55811", "55806", "55804", "55616"}
	codes := []string{"112511", "336611", "483111", "713930", "722511", "999999", "541110", "237990"}
	sizes := []string{"212", "220", "230", "241", "242", "251", "252", "254", "260"}
	for i, zip := range zips {
		for j, code := range codes {
			size := sizes[(i+j)%len(sizes)]
			raw = append(raw, rawRecord(zip, code, size, []string{"1", "2", "3", "5", "8"}[(i*j)%5]))
		}
	}

	_, tables := runPipeline(t, raw)

	for _, r := range tables.Comparison {
		assert.LessOrEqual(t, r.MarineEstablishments, r.Establishments, r.Zipcode)
		assert.LessOrEqual(t, r.MarineEmployment, r.EmploymentEstimate, r.Zipcode)
		if !r.IsStudyArea() && r.EmploymentEstimate > 0 {
			assert.GreaterOrEqual(t, r.PercentMarineEmployment, 0.0)
			assert.LessOrEqual(t, r.PercentMarineEmployment, 100.0)
		}
	}

	// Sector totals add up to the study-area marine totals.
	var estab float64
	for _, r := range tables.Sectors.Rows {
		estab += r.Establishments
	}
	study := tables.Comparison[len(tables.Comparison)-1]
	assert.InDelta(t, study.MarineEstablishments, estab, 1e-9)
}

func TestAggregate_Deterministic(t *testing.T) {
	raw := domain.RawTable{
		rawRecord("55807", "713930", "212", "1"),
		rawRecord("54880", "483111", "251", "4"),
		rawRecord("54880", "999999", "220", "2"),
	}
	_, first := runPipeline(t, raw)
	_, second := runPipeline(t, raw)
	assert.Equal(t, first, second)
}

func TestAggregate_Errors(t *testing.T) {
	_, err := NewAggregator("2016", nil).Aggregate(context.Background(), nil)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewAggregator("2016", nil).Aggregate(ctx, &domain.Economy{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{7.5, 7.5},
		{2.25, 2.2},
		{33.3333, 33.3},
		{66.6666, 66.7},
		{100, 100},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round1(tt.in), "Round1(%v)", tt.in)
	}
	assert.True(t, math.IsNaN(Round1(math.NaN())))
}

func TestRatioAndPercent(t *testing.T) {
	assert.Equal(t, 2.5, Ratio(7.5, 3))
	assert.True(t, math.IsNaN(Ratio(7.5, 0)))
	assert.True(t, math.IsNaN(Ratio(0, 0)))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.True(t, math.IsNaN(Percent(1, 0)))
}
