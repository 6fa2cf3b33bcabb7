package dataprocessing

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/NOAA-OCM/LocalMarineEconomy/internal/errors"
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// Aggregator builds the analysis tables of a report.
type Aggregator struct {
	year   string
	logger *slog.Logger
}

// NewAggregator creates an aggregator. year labels the whole-study-area
// rows. A nil logger uses slog.Default().
func NewAggregator(year string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		year:   year,
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// Aggregate produces the comparison table and the four marine tables.
// Groups are ordered by their key columns; the study-area row comes last.
// Every numeric output is rounded to one decimal place.
func (a *Aggregator) Aggregate(ctx context.Context, economy *domain.Economy) (*domain.AnalysisTables, error) {
	if economy == nil {
		return nil, errors.NewAppValidationError("no economy to aggregate")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	a.logger.InfoContext(ctx, "creating analysis tables",
		slog.Int("total_rows", len(economy.Total)),
		slog.Int("marine_rows", len(economy.Marine)))

	// Marine rows without a sector cannot be placed in a sector grouping.
	sectored := make([]domain.EnrichedRecord, 0, len(economy.Marine))
	for _, r := range economy.Marine {
		if r.HasSector() {
			sectored = append(sectored, r)
		}
	}
	if skipped := len(economy.Marine) - len(sectored); skipped > 0 {
		a.logger.WarnContext(ctx, "marine rows without sector left out of sector and industry tables",
			slog.Int("rows", skipped))
	}

	tables := &domain.AnalysisTables{
		Comparison:      a.comparison(economy),
		Sectors:         marineTable(domain.GroupBySector, sectored),
		Industries:      marineTable(domain.GroupByIndustry, sectored),
		SectorsByZip:    marineTable(domain.GroupBySectorZip, sectored),
		IndustriesByZip: marineTable(domain.GroupByIndustryZip, sectored),
	}

	a.logger.InfoContext(ctx, "analysis tables created",
		slog.Int("comparison_rows", len(tables.Comparison)),
		slog.Int("sector_rows", len(tables.Sectors.Rows)),
		slog.Int("industry_rows", len(tables.Industries.Rows)),
		slog.Int("sector_zip_rows", len(tables.SectorsByZip.Rows)),
		slog.Int("industry_zip_rows", len(tables.IndustriesByZip.Rows)))

	return tables, nil
}

// comparison joins per-zip total sums with per-zip marine sums. Only zips
// present on both sides get a row, and the study-area row is added only
// when the study area has marine rows at all.
func (a *Aggregator) comparison(economy *domain.Economy) []domain.ComparisonRow {
	totals := newGroupSet()
	var totalAll sums
	for _, r := range economy.Total {
		totals.add([]string{r.Zipcode, r.GeoName, r.Year}, r)
		totalAll.add(r)
	}

	marine := newGroupSet()
	var marineAll sums
	for _, r := range economy.Marine {
		marine.add([]string{r.Zipcode, r.GeoName, r.Year}, r)
		marineAll.add(r)
	}

	rows := make([]domain.ComparisonRow, 0, marine.len()+1)
	for _, g := range totals.sorted() {
		mg, ok := marine.get(g.key)
		if !ok {
			continue
		}
		rows = append(rows, comparisonRow(g.key[0], g.key[1], g.key[2], g.sums, mg.sums))
	}
	if len(economy.Marine) > 0 {
		rows = append(rows, comparisonRow(domain.StudyAreaZipcode, domain.StudyAreaGeoName, a.year, totalAll, marineAll))
	}
	return rows
}

func comparisonRow(zip, geo, year string, total, marine sums) domain.ComparisonRow {
	return domain.ComparisonRow{
		Zipcode:                 zip,
		GeoName:                 geo,
		Year:                    year,
		Establishments:          Round1(total.establishments),
		EmploymentEstimate:      Round1(total.employment),
		MarineEstablishments:    Round1(marine.establishments),
		MarineEmployment:        Round1(marine.employment),
		PercentMarineEmployment: Round1(Percent(marine.employment, total.employment)),
	}
}

func marineTable(g domain.Grouping, records []domain.EnrichedRecord) domain.MarineTable {
	set := newGroupSet()
	for _, r := range records {
		set.add(groupKey(g, r), r)
	}

	rows := make([]domain.MarineRow, 0, set.len())
	for _, grp := range set.sorted() {
		row := grp.row
		if !g.ByZip() {
			row.Zipcode, row.GeoName = "", ""
		}
		if !g.ByIndustry() {
			row.NAICS, row.IndustryName = "", ""
		}
		row.Establishments = Round1(grp.establishments)
		row.EmploymentEstimate = Round1(grp.employment)
		row.AverageEmployment = Round1(Ratio(grp.employment, grp.establishments))
		rows = append(rows, row)
	}
	return domain.MarineTable{Grouping: g, Rows: rows}
}

// groupKey returns the values of g.KeyColumns() for r.
func groupKey(g domain.Grouping, r domain.EnrichedRecord) []string {
	var key []string
	if g.ByZip() {
		key = append(key, r.Zipcode, r.GeoName)
	}
	key = append(key, r.Year)
	if g.ByIndustry() {
		key = append(key, r.NAICS, r.IndustryName)
	}
	return append(key, r.MarineSector)
}

// sums accumulates establishment and employment totals, skipping NaN.
type sums struct {
	establishments float64
	employment     float64
}

func (s *sums) add(r domain.EnrichedRecord) {
	if !math.IsNaN(r.EstablishmentCount) {
		s.establishments += r.EstablishmentCount
	}
	if !math.IsNaN(r.EmploymentEstimate) {
		s.employment += r.EmploymentEstimate
	}
}

type group struct {
	key []string
	row domain.MarineRow
	sums
}

type groupSet struct {
	groups map[string]*group
}

func newGroupSet() *groupSet {
	return &groupSet{groups: make(map[string]*group)}
}

func (s *groupSet) add(key []string, r domain.EnrichedRecord) {
	id := strings.Join(key, "\x00")
	g, ok := s.groups[id]
	if !ok {
		g = &group{
			key: key,
			row: domain.MarineRow{
				Zipcode:      r.Zipcode,
				GeoName:      r.GeoName,
				Year:         r.Year,
				NAICS:        r.NAICS,
				IndustryName: r.IndustryName,
				MarineSector: r.MarineSector,
			},
		}
		s.groups[id] = g
	}
	g.add(r)
}

func (s *groupSet) get(key []string) (*group, bool) {
	g, ok := s.groups[strings.Join(key, "\x00")]
	return g, ok
}

func (s *groupSet) len() int {
	return len(s.groups)
}

// sorted orders groups lexicographically by key tuple.
func (s *groupSet) sorted() []*group {
	out := make([]*group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *group) int {
		return slices.Compare(a.key, b.key)
	})
	return out
}
