package analysis

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

// Summary renders a compact, prompt-friendly description of a dataset:
// shape, per-column profile, and the first sampleRows rows as a table.
func Summary(name string, ds *dataset.Dataset, profiles []ColumnProfile, sampleRows int) string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", ds.Len()))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(profiles)))

	b.WriteString("[SCHEMA]\n")
	for _, p := range profiles {
		b.WriteString(fmt.Sprintf("- %s: %s (values %d, unique %d, numeric %d, numeric ratio %.2f)",
			safeName(p.Name), p.Kind, p.Total, p.Unique, p.NumericCount, p.NumericRatio))
		if p.Kind == KindNumeric {
			b.WriteString(fmt.Sprintf(" - mean %.4g", p.Average))
		}
		if len(p.Samples) > 0 {
			b.WriteString(" - e.g., ")
			for i, s := range p.Samples {
				if i > 0 {
					b.WriteString(" | ")
				}
				b.WriteString(safeVal(s))
			}
		}
		b.WriteString("\n")
	}

	head := ds.Head(sampleRows)
	if len(head) == 0 {
		return b.String()
	}
	b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
	b.WriteString("| ")
	for i, h := range ds.Headers {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(h))
	}
	b.WriteString(" |\n| ")
	for i := range ds.Headers {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range head {
		b.WriteString("| ")
		for i, h := range ds.Headers {
			if i > 0 {
				b.WriteString(" | ")
			}
			val := row.Get(h).String()
			if len(val) > 80 {
				val = val[:77] + "..."
			}
			b.WriteString(safeVal(val))
		}
		b.WriteString(" |\n")
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
