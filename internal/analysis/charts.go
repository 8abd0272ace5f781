package analysis

import (
	"sort"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

const (
	unknownLabel      = "Unknown"
	fallbackChartRows = 5
)

// ChartPoint is one labelled value of a chart series.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ChartPayload carries the series for the dashboard's bar and pie charts.
type ChartPayload struct {
	BarChart []ChartPoint `json:"barChart"`
	PieChart []ChartPoint `json:"pieChart"`
}

// ChartSelection records which columns fed the chart and how.
type ChartSelection struct {
	CategoryColumn string       `json:"category_column"`
	ValueColumn    string       `json:"value_column"`
	Grouped        bool         `json:"grouped"`
	Series         []ChartPoint `json:"series"`
}

// SelectChart picks the best category/value pair and builds the series.
// Category columns rank by distinct values, value columns by mean. Without a
// usable pair it plots the first two headers for the first rows instead, so a
// dataset with rows and two columns never yields an empty chart.
func SelectChart(ds *dataset.Dataset) ChartSelection {
	if ds == nil || len(ds.Headers) == 0 {
		return ChartSelection{}
	}
	profiles := ClassifyAll(ds)
	return SelectChartFromProfiles(ds, profiles)
}

// SelectChartFromProfiles is SelectChart for callers that already classified ds.
func SelectChartFromProfiles(ds *dataset.Dataset, profiles []ColumnProfile) ChartSelection {
	if ds == nil || len(ds.Headers) == 0 {
		return ChartSelection{}
	}
	category, okCat := bestCategoryColumn(profiles)
	value, okVal := bestValueColumn(profiles)
	if okCat && okVal {
		return ChartSelection{
			CategoryColumn: category,
			ValueColumn:    value,
			Grouped:        true,
			Series:         GroupSum(ds.Rows, category, value),
		}
	}

	catCol := ds.Headers[0]
	valCol := catCol
	if len(ds.Headers) > 1 {
		valCol = ds.Headers[1]
	}
	sel := ChartSelection{CategoryColumn: catCol, ValueColumn: valCol, Series: []ChartPoint{}}
	for _, r := range ds.Head(fallbackChartRows) {
		sel.Series = append(sel.Series, ChartPoint{
			Name:  labelOf(r.Get(catCol)),
			Value: ExtractValue(r.Get(valCol)),
		})
	}
	return sel
}

// BuildCharts returns the chart payload for ds; bar and pie share one series.
func BuildCharts(ds *dataset.Dataset) ChartPayload {
	sel := SelectChart(ds)
	return sel.Payload()
}

// Payload emits the selection's series into both chart slots.
func (s ChartSelection) Payload() ChartPayload {
	series := s.Series
	if series == nil {
		series = []ChartPoint{}
	}
	bar := make([]ChartPoint, len(series))
	copy(bar, series)
	pie := make([]ChartPoint, len(series))
	copy(pie, series)
	return ChartPayload{BarChart: bar, PieChart: pie}
}

// GroupSum groups rows by the raw category value, in first-seen order, and
// sums the extracted value column per group.
func GroupSum(rows []dataset.Row, categoryColumn, valueColumn string) []ChartPoint {
	out := []ChartPoint{}
	index := map[string]int{}
	for _, r := range rows {
		label := labelOf(r.Get(categoryColumn))
		v := ExtractValue(r.Get(valueColumn))
		if i, ok := index[label]; ok {
			out[i].Value += v
			continue
		}
		index[label] = len(out)
		out = append(out, ChartPoint{Name: label, Value: v})
	}
	return out
}

func bestCategoryColumn(profiles []ColumnProfile) (string, bool) {
	cands := ProfilesByKind(profiles, KindCategorical)
	if len(cands) == 0 {
		return "", false
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Unique > cands[j].Unique })
	return cands[0].Name, true
}

func bestValueColumn(profiles []ColumnProfile) (string, bool) {
	var cands []ColumnProfile
	for _, p := range ProfilesByKind(profiles, KindNumeric) {
		if p.NumericCount > 0 {
			cands = append(cands, p)
		}
	}
	if len(cands) == 0 {
		return "", false
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Average > cands[j].Average })
	return cands[0].Name, true
}

func labelOf(c dataset.Cell) string {
	if c.IsEmpty() || c.String() == "" {
		return unknownLabel
	}
	return c.String()
}
