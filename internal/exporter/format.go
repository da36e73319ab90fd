package exporter

import (
	"math"
	"strconv"
)

// DateLayout is how native observation dates are written
const DateLayout = "2006-01-02"

// formatFloat writes the shortest decimal that parses back to f. NaN is
// written as an empty cell.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatValues(values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = formatFloat(v)
	}
	return out
}
