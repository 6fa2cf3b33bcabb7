// Package reference supplies the static lookup tables joined onto the
// establishment data: employment size-class midpoints and the marine
// industry crosswalk. Both are immutable once loaded.
package reference

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed crosswalk.yaml
var embeddedCrosswalk []byte

// SizeClassCodes are the employment size classes the upstream source
// reports, smallest first. Configured midpoints align with them by position.
var SizeClassCodes = []string{"212", "220", "230", "241", "242", "251", "252", "254", "260"}

// Midpoints maps a size-class code to its representative employee count,
// still in textual form. The enricher coerces and reports bad values.
type Midpoints struct {
	values map[string]string
}

// NewMidpoints pairs values with SizeClassCodes by position.
func NewMidpoints(values []string) (Midpoints, error) {
	if len(values) != len(SizeClassCodes) {
		return Midpoints{}, fmt.Errorf("expected %d midpoints, got %d", len(SizeClassCodes), len(values))
	}
	m := Midpoints{values: make(map[string]string, len(values))}
	for i, code := range SizeClassCodes {
		m.values[code] = strings.TrimSpace(values[i])
	}
	return m, nil
}

// Lookup returns the midpoint text for a size-class code.
func (m Midpoints) Lookup(code string) (string, bool) {
	v, ok := m.values[code]
	return v, ok
}

// Len returns the number of size classes with a midpoint.
func (m Midpoints) Len() int {
	return len(m.values)
}

type crosswalkFile struct {
	Version          string            `yaml:"version"`
	Source           string            `yaml:"source"`
	Sectors          []string          `yaml:"sectors"`
	MarineIndustries []string          `yaml:"marine_industries"`
	SectorMap        map[string]string `yaml:"sector_map"`
}

// Data is the loaded marine crosswalk
type Data struct {
	Version string
	Source  string

	sectors   []string
	marine    []string
	marineSet map[string]struct{}
	sectorMap map[string]string
}

// Load parses the crosswalk compiled into the binary.
func Load() (*Data, error) {
	return Parse(embeddedCrosswalk)
}

// LoadFile parses a crosswalk from disk, for studies that track a newer
// ENOW revision than the built-in one.
func LoadFile(path string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read crosswalk: %w", err)
	}
	d, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and validates a crosswalk document. Codes must be six
// digits and every sector label must come from the document's vocabulary.
// The marine set and the sector map are not required to agree; see Unmapped.
func Parse(b []byte) (*Data, error) {
	var f crosswalkFile
	if err := yaml.UnmarshalStrict(b, &f); err != nil {
		return nil, fmt.Errorf("parse crosswalk: %w", err)
	}
	if f.Version == "" {
		return nil, fmt.Errorf("crosswalk has no version")
	}
	if len(f.Sectors) == 0 {
		return nil, fmt.Errorf("crosswalk %s has no sector vocabulary", f.Version)
	}
	if len(f.MarineIndustries) == 0 {
		return nil, fmt.Errorf("crosswalk %s has no marine industries", f.Version)
	}

	vocab := make(map[string]struct{}, len(f.Sectors))
	for _, s := range f.Sectors {
		vocab[s] = struct{}{}
	}

	d := &Data{
		Version:   f.Version,
		Source:    f.Source,
		sectors:   append([]string(nil), f.Sectors...),
		marineSet: make(map[string]struct{}, len(f.MarineIndustries)),
		sectorMap: make(map[string]string, len(f.SectorMap)),
	}

	for _, code := range f.MarineIndustries {
		if !isIndustryCode(code) {
			return nil, fmt.Errorf("marine industry %q is not a 6-digit code", code)
		}
		if _, dup := d.marineSet[code]; dup {
			return nil, fmt.Errorf("marine industry %s listed twice", code)
		}
		d.marineSet[code] = struct{}{}
		d.marine = append(d.marine, code)
	}

	for code, sector := range f.SectorMap {
		if !isIndustryCode(code) {
			return nil, fmt.Errorf("sector map key %q is not a 6-digit code", code)
		}
		if _, ok := vocab[sector]; !ok {
			return nil, fmt.Errorf("industry %s maps to unknown sector %q", code, sector)
		}
		d.sectorMap[code] = sector
	}

	return d, nil
}

func isIndustryCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsMarine reports whether an industry code belongs to the marine economy.
func (d *Data) IsMarine(code string) bool {
	_, ok := d.marineSet[code]
	return ok
}

// Sector returns the marine sector label of an industry code.
func (d *Data) Sector(code string) (string, bool) {
	s, ok := d.sectorMap[code]
	return s, ok
}

// MarineIndustries returns the marine industry codes in document order.
func (d *Data) MarineIndustries() []string {
	return append([]string(nil), d.marine...)
}

// Sectors returns the sector vocabulary.
func (d *Data) Sectors() []string {
	return append([]string(nil), d.sectors...)
}

// Unmapped returns, sorted, the marine industry codes with no sector.
func (d *Data) Unmapped() []string {
	var out []string
	for _, code := range d.marine {
		if _, ok := d.sectorMap[code]; !ok {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out
}
