package analysis

import (
	"runtime"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"golang.org/x/sync/errgroup"
)

// ColumnKind is the classifier's verdict for a column.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindOther       ColumnKind = "other"
)

const (
	numericRatioThreshold = 0.7
	maxCategoricalUnique  = 20
	profileSampleSize     = 5
)

// ColumnProfile summarizes one column. It is derived on demand and never stored.
type ColumnProfile struct {
	Name         string     `json:"name"`
	Total        int        `json:"total_count"`
	Unique       int        `json:"unique_count"`
	NumericCount int        `json:"numeric_count"`
	NumericRatio float64    `json:"numeric_ratio"`
	Average      float64    `json:"average"`
	Kind         ColumnKind `json:"type"`
	// Samples holds the raw values of the first rows, index-aligned across columns.
	Samples []string `json:"sample_values"`
}

// Classify profiles column over rows. A cell counts as numeric when its
// extracted value is greater than zero; uniqueness is measured on the raw
// text, not on extracted values.
func Classify(column string, rows []dataset.Row) ColumnProfile {
	p := ColumnProfile{Name: column, Total: len(rows)}
	distinct := make(map[string]struct{})
	var sum float64
	for i, r := range rows {
		c := r.Get(column)
		raw := c.String()
		distinct[raw] = struct{}{}
		if i < profileSampleSize {
			p.Samples = append(p.Samples, raw)
		}
		if v := ExtractValue(c); v > 0 {
			p.NumericCount++
			sum += v
		}
	}
	p.Unique = len(distinct)
	if p.Total > 0 {
		p.NumericRatio = float64(p.NumericCount) / float64(p.Total)
	}
	if p.NumericCount > 0 {
		p.Average = sum / float64(p.NumericCount)
	}
	switch {
	case p.NumericRatio > numericRatioThreshold:
		p.Kind = KindNumeric
	case p.Unique > 1 && p.Unique <= maxCategoricalUnique:
		p.Kind = KindCategorical
	default:
		p.Kind = KindOther
	}
	return p
}

// ClassifyAll profiles every header of ds, returning results in header order.
// Columns are independent, so they are classified concurrently.
func ClassifyAll(ds *dataset.Dataset) []ColumnProfile {
	if ds == nil || len(ds.Headers) == 0 {
		return nil
	}
	out := make([]ColumnProfile, len(ds.Headers))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, h := range ds.Headers {
		i, h := i, h
		g.Go(func() error {
			out[i] = Classify(h, ds.Rows)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ProfilesByKind filters profiles, preserving order.
func ProfilesByKind(profiles []ColumnProfile, kind ColumnKind) []ColumnProfile {
	var out []ColumnProfile
	for _, p := range profiles {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}
