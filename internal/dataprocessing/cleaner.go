package dataprocessing

import (
	"github.com/NOAA-OCM/LocalMarineEconomy/pkg/contracts/domain"
)

// Clean filters the concatenated raw table. A row survives when its size
// class is not the all-establishments rollup, its industry code is a
// 6-character leaf, and its establishment count is not the literal "0".
// Row order is preserved and raw is not modified.
func Clean(raw domain.RawTable) domain.CleanResult {
	stats := domain.CleanStats{Input: len(raw)}
	kept := make([]domain.EstablishmentRecord, 0, len(raw))

	for _, rec := range raw {
		switch {
		case rec.SizeClassCode == domain.AllEstablishmentsSizeClass:
			stats.DroppedAllEstab++
		case !rec.IsLeafIndustry():
			stats.DroppedIndustryCode++
		case rec.Establishments == "0":
			stats.DroppedZeroEstab++
		default:
			kept = append(kept, rec)
		}
	}

	stats.Kept = len(kept)
	return domain.CleanResult{Records: kept, Stats: stats}
}
