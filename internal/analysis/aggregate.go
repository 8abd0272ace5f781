package analysis

import (
	"math"
	"strings"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

// Operation names an aggregation.
type Operation string

const (
	OpSum     Operation = "sum"
	OpAverage Operation = "average"
	OpCount   Operation = "count"
	OpMax     Operation = "max"
	OpMin     Operation = "min"
	// OpCustom is accepted but only ever evaluates to the row count.
	OpCustom Operation = "custom"
)

// ParseOperation normalizes an operation name, ignoring case and surrounding
// space. Anything other than the six known names, aliases included, is OpSum.
func ParseOperation(s string) Operation {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpSum, OpAverage, OpCount, OpMax, OpMin, OpCustom:
		return op
	default:
		return OpSum
	}
}

// Aggregate combines the selected columns within each row, then reduces the
// per-row values across rows with the same operation.
func Aggregate(rows []dataset.Row, columns []string, op Operation) float64 {
	op = ParseOperation(string(op))
	if op == OpCustom {
		return float64(len(rows))
	}
	if len(rows) == 0 {
		return 0
	}
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = rowValue(r, columns, op)
	}
	return reduce(values, op)
}

func rowValue(r dataset.Row, columns []string, op Operation) float64 {
	var v float64
	switch op {
	case OpCount:
		for _, c := range columns {
			if !r.Get(c).IsEmpty() {
				v++
			}
		}
	case OpMax:
		for i, c := range columns {
			x := ExtractValue(r.Get(c))
			if i == 0 || x > v {
				v = x
			}
		}
	case OpMin:
		// Zero doubles as "unset": a real 0 is replaced by the next value.
		for _, c := range columns {
			x := ExtractValue(r.Get(c))
			if v == 0 {
				v = x
			} else {
				v = math.Min(v, x)
			}
		}
	default:
		for _, c := range columns {
			v += ExtractValue(r.Get(c))
		}
	}
	return v
}

func reduce(values []float64, op Operation) float64 {
	if len(values) == 0 {
		return 0
	}
	switch op {
	case OpAverage:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case OpCount:
		var n float64
		for _, v := range values {
			if v > 0 {
				n++
			}
		}
		return n
	case OpMax:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m
	case OpMin:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m
	default:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	}
}
