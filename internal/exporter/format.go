package exporter

import (
	"math"
	"strconv"
)

// cellValue maps NaN, infinities and missing cells to the NaN label. An
// empty label leaves the cell blank.
func cellValue(v interface{}, nanLabel string) interface{} {
	switch x := v.(type) {
	case missing:
		return labelOrNil(nanLabel)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return labelOrNil(nanLabel)
		}
	}
	return v
}

func labelOrNil(label string) interface{} {
	if label == "" {
		return nil
	}
	return label
}

// formatCSV renders a cell for CSV output. Floats use the shortest
// representation that round-trips, so 7.5 stays 7.5 and 3 stays 3.
func formatCSV(v interface{}, nanLabel string) string {
	switch x := cellValue(v, nanLabel).(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
