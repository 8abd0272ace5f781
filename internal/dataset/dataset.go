// Package dataset holds the tabular data model produced by the file parsers
// and consumed by the analysis pipeline.
package dataset

import (
	"strconv"
	"strings"
)

// Row maps a column name to its cell. Missing columns are simply absent.
type Row map[string]Cell

// Get returns the cell for column, or an empty cell when the row has none.
func (r Row) Get(column string) Cell {
	if r == nil {
		return EmptyCell()
	}
	return r[column]
}

// Dataset is an ordered header list plus rows keyed by those headers.
type Dataset struct {
	Headers []string `json:"headers"`
	Rows    []Row    `json:"data"`
}

// New builds a Dataset from a header row and string records, the shape both
// CSV and XLSX readers produce. Blank headers get a positional name, duplicate
// headers get a numeric suffix so every row key stays addressable.
func New(header []string, records [][]string) *Dataset {
	headers := normalizeHeaders(header)
	ds := &Dataset{Headers: headers, Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i >= len(rec) {
				break
			}
			c := ParseCell(rec[i])
			if c.IsEmpty() {
				continue
			}
			row[h] = c
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// Empty reports whether there is nothing to chart: no headers or no rows.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Headers) == 0 || len(d.Rows) == 0
}

// Len returns the row count; nil-safe.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// Column returns the cells of one column in row order.
func (d *Dataset) Column(name string) []Cell {
	if d == nil {
		return nil
	}
	out := make([]Cell, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r.Get(name)
	}
	return out
}

// Head returns at most n leading rows.
func (d *Dataset) Head(n int) []Row {
	if d == nil || n <= 0 {
		return nil
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return d.Rows[:n]
}

// Combine concatenates datasets into a new one. Headers are the ordered union
// of all inputs; rows keep only their own columns, so the subset invariant
// holds for the result.
func Combine(sets ...*Dataset) *Dataset {
	out := &Dataset{}
	seen := map[string]bool{}
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, h := range s.Headers {
			if !seen[h] {
				seen[h] = true
				out.Headers = append(out.Headers, h)
			}
		}
	}
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, r := range s.Rows {
			cp := make(Row, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out.Rows = append(out.Rows, cp)
		}
	}
	return out
}

func normalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	used := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			name = "Column " + strconv.Itoa(i+1)
		}
		if n, ok := used[name]; ok {
			used[name] = n + 1
			name = name + " (" + strconv.Itoa(n+1) + ")"
		}
		used[name] = 1
		out[i] = name
	}
	return out
}
