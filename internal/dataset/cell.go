package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CellKind tags the value held by a Cell.
type CellKind int

const (
	KindEmpty CellKind = iota
	KindString
	KindNumber
)

func (k CellKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a single spreadsheet value: a string, a number, or nothing.
// The zero value is an empty cell.
type Cell struct {
	kind CellKind
	str  string
	num  float64
}

// StringCell wraps a raw string. Callers that want blank strings treated
// as missing should use ParseCell instead.
func StringCell(s string) Cell { return Cell{kind: KindString, str: s} }

// NumberCell wraps a numeric value.
func NumberCell(f float64) Cell { return Cell{kind: KindNumber, num: f} }

// EmptyCell returns the empty cell.
func EmptyCell() Cell { return Cell{} }

// ParseCell builds a cell from text read out of a file. Whitespace-only text
// becomes Empty; everything else stays a string so that dirty input
// ("$1,200") reaches the value extractor untouched.
func ParseCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return EmptyCell()
	}
	return StringCell(s)
}

func (c Cell) Kind() CellKind { return c.kind }
func (c Cell) IsEmpty() bool  { return c.kind == KindEmpty }

// Number returns the numeric payload and whether the cell holds a number.
func (c Cell) Number() (float64, bool) {
	if c.kind != KindNumber {
		return 0, false
	}
	return c.num, true
}

// String renders the raw value. Empty cells render as "".
func (c Cell) String() string {
	switch c.kind {
	case KindString:
		return c.str
	case KindNumber:
		return strconv.FormatFloat(c.num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a JSON string, number, or null.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case KindString:
		return json.Marshal(c.str)
	case KindNumber:
		if math.IsNaN(c.num) || math.IsInf(c.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(c.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number, or null.
func (c *Cell) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*c = EmptyCell()
	case string:
		*c = StringCell(t)
	case float64:
		*c = NumberCell(t)
	case bool:
		*c = StringCell(strconv.FormatBool(t))
	default:
		*c = StringCell(string(b))
	}
	return nil
}
