package insights

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

const (
	maxTotalKPIs   = 3
	maxUniqueKPIs  = 2
	maxCountPoints = 10
)

// Fallback builds a payload from column heuristics alone. It works from the
// same five-row sample a model would see, extrapolating totals to the full
// row count, and always yields at least one KPI and both chart slots.
func Fallback(ds *dataset.Dataset, profiles []analysis.ColumnProfile) *Payload {
	if ds == nil {
		ds = &dataset.Dataset{}
	}
	sample := ds.Head(sampleRows)
	numeric := analysis.ProfilesByKind(profiles, analysis.KindNumeric)
	categorical := analysis.ProfilesByKind(profiles, analysis.KindCategorical)

	p := &Payload{
		WidgetInsights: map[string]WidgetInsight{},
		Source:         SourceFallback,
		GeneratedAt:    time.Now().UTC(),
	}
	addKPI := func(key string, in WidgetInsight, op analysis.Operation) {
		in.WidgetType = string(analysis.WidgetKPI)
		if in.Trend == "" {
			in.Trend = "flat"
		}
		for base, n := key, 2; ; n++ {
			if _, taken := p.WidgetInsights[key]; !taken {
				break
			}
			key = fmt.Sprintf("%s_%d", base, n)
		}
		p.WidgetInsights[key] = in
		w := RecommendedWidget{Type: analysis.WidgetKPI, Title: in.WidgetName, Operation: string(op), InsightKey: key}
		if in.SourceColumn != "" {
			w.SourceColumns = []string{in.SourceColumn}
		}
		p.RecommendedWidgets = append(p.RecommendedWidgets, w)
	}

	for i, col := range numeric {
		if i == maxTotalKPIs {
			break
		}
		role := analysis.RoleOf(col.Name)
		total := extrapolatedTotal(sample, col.Name, ds.Len())
		addKPI("total_"+slug(col.Name), WidgetInsight{
			Value:        Number(total),
			DisplayValue: display(total, role, analysis.OpSum),
			Description:  describeTotal(col.Name, role, ds.Len()),
			SourceColumn: col.Name,
			WidgetName:   "Total " + col.Name,
		}, analysis.OpSum)
	}
	for i, col := range categorical {
		if i == maxUniqueKPIs {
			break
		}
		addKPI("unique_"+slug(col.Name), WidgetInsight{
			Value:        Number(col.Unique),
			DisplayValue: analysis.FormatValue(float64(col.Unique), analysis.OpCount),
			Description:  describeUnique(col.Name, analysis.RoleOf(col.Name), col.Unique),
			SourceColumn: col.Name,
			WidgetName:   "Unique " + col.Name,
		}, analysis.OpCount)
	}
	if len(numeric) > 0 {
		col := numeric[0]
		role := analysis.RoleOf(col.Name)
		avg := sampleMean(sample, col.Name)
		addKPI("average_"+slug(col.Name), WidgetInsight{
			Value:        Number(avg),
			DisplayValue: display(avg, role, analysis.OpAverage),
			Description:  fmt.Sprintf("Typical %s per record", strings.ToLower(col.Name)),
			SourceColumn: col.Name,
			WidgetName:   "Average " + col.Name,
		}, analysis.OpAverage)
	}
	if len(p.WidgetInsights) == 0 {
		n := float64(ds.Len())
		addKPI("total_records", WidgetInsight{
			Value:        Number(n),
			DisplayValue: analysis.FormatValue(n, analysis.OpCount),
			Description:  fmt.Sprintf("Rows in the dataset across %d columns", len(ds.Headers)),
			WidgetName:   "Total Records",
		}, analysis.OpCustom)
	}

	switch {
	case len(numeric) > 0 && len(categorical) > 0:
		bar := pairChart(sample, categorical[0].Name, numeric[0].Name)
		p.ChartRecommendations.BarChart = bar.asBar()
		pieCat, pieNum := categorical[0], numeric[0]
		if len(categorical) > 1 {
			pieCat = categorical[1]
		} else if len(numeric) > 1 {
			pieNum = numeric[1]
		}
		p.ChartRecommendations.PieChart = pairChart(sample, pieCat.Name, pieNum.Name).asPie()
	case len(numeric) > 0:
		col := numeric[0].Name
		total := extrapolatedTotal(sample, col, ds.Len())
		c := chartSpec{
			title:       "Total " + col,
			category:    col,
			value:       col,
			description: "Estimated total " + strings.ToLower(col),
			data:        []ChartDatum{{Name: Label("Total " + col), Value: Number(total)}},
		}
		p.ChartRecommendations.BarChart = c.asBar()
		p.ChartRecommendations.PieChart = c.asPie()
	default:
		c := recordCountChart(ds)
		p.ChartRecommendations.BarChart = c.asBar()
		p.ChartRecommendations.PieChart = c.asPie()
	}
	p.RecommendedWidgets = append(p.RecommendedWidgets, chartWidgets(p.ChartRecommendations)...)
	p.RecommendedWidgets = append(p.RecommendedWidgets, tableWidget(ds.Headers))
	return p
}

type chartSpec struct {
	title       string
	category    string
	value       string
	description string
	data        []ChartDatum
}

func (c chartSpec) asBar() *ChartRecommendation {
	return &ChartRecommendation{Title: c.title, XAxis: c.category, YAxis: c.value, Description: c.description, ChartData: c.data}
}

func (c chartSpec) asPie() *ChartRecommendation {
	return &ChartRecommendation{Title: c.title, CategoryColumn: c.category, ValueColumn: c.value, Description: c.description, ChartData: c.data}
}

// pairChart pairs the i-th sample value of the category column with the
// i-th sample value of the value column.
func pairChart(sample []dataset.Row, category, value string) chartSpec {
	data := make([]ChartDatum, 0, len(sample))
	for _, r := range sample {
		name := strings.TrimSpace(r.Get(category).String())
		if name == "" {
			name = "Unknown"
		}
		data = append(data, ChartDatum{Name: Label(name), Value: Number(analysis.ExtractValue(r.Get(value)))})
	}
	return chartSpec{
		title:       fmt.Sprintf("%s by %s", value, category),
		category:    category,
		value:       value,
		description: fmt.Sprintf("How %s is split across %s", strings.ToLower(value), strings.ToLower(category)),
		data:        data,
	}
}

func recordCountChart(ds *dataset.Dataset) chartSpec {
	c := chartSpec{title: "Records per Column", description: "Populated values in each column"}
	for i, h := range ds.Headers {
		if i == maxCountPoints {
			break
		}
		n := 0
		for _, cell := range ds.Column(h) {
			if !cell.IsEmpty() {
				n++
			}
		}
		c.data = append(c.data, ChartDatum{Name: Label(h), Value: Number(n)})
	}
	if len(c.data) == 0 {
		c.data = []ChartDatum{{Name: "Records", Value: Number(ds.Len())}}
	}
	return c
}

func chartWidgets(c ChartRecommendations) []RecommendedWidget {
	var out []RecommendedWidget
	add := func(t analysis.WidgetType, r *ChartRecommendation) {
		if r == nil {
			return
		}
		var cols []string
		for _, s := range []string{r.Category(), r.Measure()} {
			if s != "" {
				cols = append(cols, s)
			}
		}
		out = append(out, RecommendedWidget{Type: t, Title: r.Title, SourceColumns: cols, Operation: string(analysis.OpSum)})
	}
	add(analysis.WidgetBarChart, c.BarChart)
	add(analysis.WidgetPieChart, c.PieChart)
	return out
}

func tableWidget(headers []string) RecommendedWidget {
	return RecommendedWidget{Type: analysis.WidgetTable, Title: "Data Table", SourceColumns: append([]string(nil), headers...)}
}

func sampleMean(sample []dataset.Row, column string) float64 {
	if len(sample) == 0 {
		return 0
	}
	var sum float64
	for _, r := range sample {
		sum += analysis.ExtractValue(r.Get(column))
	}
	return sum / float64(len(sample))
}

func extrapolatedTotal(sample []dataset.Row, column string, rows int) float64 {
	return sampleMean(sample, column) * float64(rows)
}

func display(v float64, role analysis.Role, op analysis.Operation) string {
	s := analysis.FormatValue(v, op)
	switch role {
	case analysis.RoleCurrency:
		return "$" + s
	case analysis.RolePercent:
		return s + "%"
	}
	return s
}

func describeTotal(column string, role analysis.Role, rows int) string {
	name := strings.ToLower(column)
	switch role {
	case analysis.RoleCurrency:
		return fmt.Sprintf("Estimated total %s across %d records", name, rows)
	case analysis.RoleQuantity:
		return fmt.Sprintf("Estimated units of %s across %d records", name, rows)
	case analysis.RolePercent:
		return fmt.Sprintf("Combined %s across %d records", name, rows)
	}
	return fmt.Sprintf("Sum of %s across %d records", name, rows)
}

func describeUnique(column string, role analysis.Role, n int) string {
	name := strings.ToLower(column)
	switch role {
	case analysis.RoleDimension:
		return fmt.Sprintf("%d distinct %s groups", n, name)
	case analysis.RoleTime:
		return fmt.Sprintf("%d distinct %s periods", n, name)
	}
	return fmt.Sprintf("%d distinct values of %s", n, name)
}

// slug lower-cases s and joins runs of letters and digits with underscores.
func slug(s string) string {
	var b strings.Builder
	sep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if sep && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			sep = false
			continue
		}
		sep = true
	}
	if b.Len() == 0 {
		return "column"
	}
	return b.String()
}
