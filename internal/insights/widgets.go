package insights

import (
	"sort"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
)

// Normalize makes a model-produced payload safe to build widgets from:
// unknown widget types and column names are dropped, insights without a
// recommended widget get one, and a table widget is always present.
func (p *Payload) Normalize(headers []string) {
	if p == nil {
		return
	}
	if p.WidgetInsights == nil {
		p.WidgetInsights = map[string]WidgetInsight{}
	}
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for k, in := range p.WidgetInsights {
		if !known[in.SourceColumn] {
			in.SourceColumn = ""
		}
		if in.WidgetName == "" {
			in.WidgetName = k
		}
		p.WidgetInsights[k] = in
	}

	var out []RecommendedWidget
	used := map[string]bool{}
	hasTable := false
	for _, w := range p.RecommendedWidgets {
		t, ok := analysis.ParseWidgetType(string(w.Type))
		if !ok {
			continue
		}
		w.Type = t
		w.SourceColumns = filterColumns(w.SourceColumns, known)
		if w.InsightKey != "" {
			if _, ok := p.WidgetInsights[w.InsightKey]; !ok {
				w.InsightKey = ""
			}
		}
		if t == analysis.WidgetKPI && w.InsightKey == "" && len(w.SourceColumns) == 0 {
			continue
		}
		if t == analysis.WidgetTable {
			if hasTable {
				continue
			}
			hasTable = true
			if len(w.SourceColumns) == 0 {
				w.SourceColumns = append([]string(nil), headers...)
			}
		}
		if w.InsightKey != "" {
			used[w.InsightKey] = true
		}
		out = append(out, w)
	}

	keys := make([]string, 0, len(p.WidgetInsights))
	for k := range p.WidgetInsights {
		if !used[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var extra []RecommendedWidget
	for _, k := range keys {
		in := p.WidgetInsights[k]
		w := RecommendedWidget{Type: analysis.WidgetKPI, Title: in.WidgetName, InsightKey: k, Operation: string(analysis.OpSum)}
		if in.SourceColumn != "" {
			w.SourceColumns = []string{in.SourceColumn}
		}
		extra = append(extra, w)
	}
	out = append(extra, out...)
	if !hasChart(out) {
		out = append(out, chartWidgets(p.ChartRecommendations)...)
	}
	if !hasTable {
		out = append(out, tableWidget(headers))
	}
	p.RecommendedWidgets = out
}

func hasChart(ws []RecommendedWidget) bool {
	for _, w := range ws {
		if w.Type == analysis.WidgetBarChart || w.Type == analysis.WidgetPieChart {
			return true
		}
	}
	return false
}

func filterColumns(cols []string, known map[string]bool) []string {
	var out []string
	for _, c := range cols {
		if known[c] {
			out = append(out, c)
		}
	}
	return out
}
