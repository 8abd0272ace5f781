package analysis

import "github.com/KaramelBytes/sheetdash/internal/dataset"

// TableRow is one dashboard table row: the dataset cells plus a synthetic id.
type TableRow map[string]any

// BuildTable reshapes rows into table rows keyed by header. Ids start at 1.
// limit <= 0 keeps every row.
func BuildTable(ds *dataset.Dataset, limit int) []TableRow {
	out := []TableRow{}
	if ds == nil {
		return out
	}
	rows := ds.Rows
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	for i, r := range rows {
		tr := make(TableRow, len(ds.Headers)+1)
		for _, h := range ds.Headers {
			tr[h] = r.Get(h)
		}
		tr["id"] = i + 1
		out = append(out, tr)
	}
	return out
}
