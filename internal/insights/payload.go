// Package insights turns a dataset into dashboard recommendations, either by
// asking a chat model or, when that is unavailable, with local heuristics.
package insights

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
)

// Source records where a payload came from.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Payload is the full analysis result stored on a file and rendered by the dashboard.
type Payload struct {
	WidgetInsights       map[string]WidgetInsight `json:"widget_insights"`
	ChartRecommendations ChartRecommendations     `json:"chart_recommendations"`
	RecommendedWidgets   []RecommendedWidget      `json:"recommended_widgets,omitempty"`
	Source               Source                   `json:"source"`
	GeneratedAt          time.Time                `json:"generated_at"`
}

// WidgetInsight is one KPI-style finding.
type WidgetInsight struct {
	Value        Number `json:"value"`
	DisplayValue string `json:"display_value,omitempty"`
	Trend        string `json:"trend,omitempty"`
	Description  string `json:"description,omitempty"`
	SourceColumn string `json:"source_column,omitempty"`
	WidgetName   string `json:"widget_name,omitempty"`
	WidgetType   string `json:"widget_type,omitempty"`
}

// Display returns the preformatted value, or a grouped rendering of Value.
func (w WidgetInsight) Display() string {
	if w.DisplayValue != "" {
		return w.DisplayValue
	}
	return analysis.FormatValue(float64(w.Value), analysis.OpSum)
}

type ChartRecommendations struct {
	BarChart *ChartRecommendation `json:"bar_chart,omitempty"`
	PieChart *ChartRecommendation `json:"pie_chart,omitempty"`
}

// ChartRecommendation describes a chart. Bar charts name their axes with
// x_axis/y_axis, pie charts with category_column/value_column; models mix
// the two freely so both are accepted.
type ChartRecommendation struct {
	Title          string       `json:"title"`
	XAxis          string       `json:"x_axis,omitempty"`
	YAxis          string       `json:"y_axis,omitempty"`
	CategoryColumn string       `json:"category_column,omitempty"`
	ValueColumn    string       `json:"value_column,omitempty"`
	Description    string       `json:"description,omitempty"`
	ChartData      []ChartDatum `json:"chart_data"`
}

// Category returns whichever category axis name is set.
func (c *ChartRecommendation) Category() string {
	if c.XAxis != "" {
		return c.XAxis
	}
	return c.CategoryColumn
}

// Measure returns whichever value axis name is set.
func (c *ChartRecommendation) Measure() string {
	if c.YAxis != "" {
		return c.YAxis
	}
	return c.ValueColumn
}

// Points converts chart data to the series shape the dashboard draws.
func (c *ChartRecommendation) Points() []analysis.ChartPoint {
	if c == nil {
		return nil
	}
	out := make([]analysis.ChartPoint, len(c.ChartData))
	for i, d := range c.ChartData {
		out[i] = analysis.ChartPoint{Name: string(d.Name), Value: float64(d.Value)}
	}
	return out
}

type ChartDatum struct {
	Name  Label  `json:"name"`
	Value Number `json:"value"`
}

// RecommendedWidget is a widget the dashboard should create in AI mode.
type RecommendedWidget struct {
	Type          analysis.WidgetType `json:"type"`
	Title         string              `json:"title"`
	SourceColumns []string            `json:"source_columns,omitempty"`
	Operation     string              `json:"operation,omitempty"`
	InsightKey    string              `json:"insight_key,omitempty"`
}

// Empty reports whether the payload carries nothing a dashboard could show.
func (p *Payload) Empty() bool {
	return p == nil || (len(p.WidgetInsights) == 0 &&
		p.ChartRecommendations.BarChart == nil &&
		p.ChartRecommendations.PieChart == nil)
}

// Number is a float that also decodes from strings such as "$1,234.50".
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number(analysis.ExtractString(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		// booleans and objects carry no value
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// Label is a string that also decodes from JSON numbers.
type Label string

func (l *Label) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*l = Label(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	*l = Label(string(b))
	return nil
}
