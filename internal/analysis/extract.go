package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

// ExtractValue coerces a cell into a number. Numeric cells pass through;
// strings are reduced to their digits, '.' and '-' and parsed. Anything that
// still fails to parse yields 0. The result is always finite.
func ExtractValue(c dataset.Cell) float64 {
	if n, ok := c.Number(); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	}
	return ExtractString(c.String())
}

// ExtractString applies the extraction rule to raw text, e.g. "$1,234.56" -> 1234.56.
func ExtractString(s string) float64 {
	if s == "" {
		return 0
	}
	stripped := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	if stripped == "" {
		return 0
	}
	f, err := strconv.ParseFloat(stripped, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
