package analysis

import (
	"math"
	"strings"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WidgetType is the kind of dashboard widget.
type WidgetType string

const (
	WidgetKPI      WidgetType = "kpi"
	WidgetBarChart WidgetType = "bar_chart"
	WidgetPieChart WidgetType = "pie_chart"
	WidgetTable    WidgetType = "table"
)

// ParseWidgetType accepts the canonical names plus a few common spellings.
func ParseWidgetType(s string) (WidgetType, bool) {
	switch t := WidgetType(strings.ToLower(strings.TrimSpace(s))); t {
	case WidgetKPI, WidgetBarChart, WidgetPieChart, WidgetTable:
		return t, true
	case "", "metric", "card":
		return WidgetKPI, true
	case "bar", "barchart", "bar-chart":
		return WidgetBarChart, true
	case "pie", "piechart", "pie-chart", "donut":
		return WidgetPieChart, true
	case "grid", "data_table":
		return WidgetTable, true
	}
	return "", false
}

// WidgetSpec is the part of a widget's configuration that drives its value.
type WidgetSpec struct {
	SourceColumns []string
	Operation     string
	// CustomFormula is carried for compatibility; it is not evaluated.
	CustomFormula string
}

// WidgetValue is a computed KPI value and its display string.
type WidgetValue struct {
	Value     float64 `json:"value"`
	Formatted string  `json:"formatted_value"`
}

var printer = message.NewPrinter(language.English)

// CalculateWidgetValue aggregates the widget's source columns over rows and
// formats the result for display.
func CalculateWidgetValue(rows []dataset.Row, spec WidgetSpec) WidgetValue {
	op := ParseOperation(spec.Operation)
	v := Aggregate(rows, spec.SourceColumns, op)
	return WidgetValue{Value: v, Formatted: FormatValue(v, op)}
}

// FormatValue renders v the way the dashboard shows it: averages with two
// decimals, everything else as a rounded integer with thousands separators.
func FormatValue(v float64, op Operation) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if ParseOperation(string(op)) == OpAverage {
		return printer.Sprintf("%.2f", v)
	}
	return printer.Sprintf("%d", int64(math.Round(v)))
}
