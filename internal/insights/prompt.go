package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

const sampleRows = 5

const systemPrompt = `You are a data analyst who designs business dashboards from spreadsheet data.
Reply with a single JSON object and nothing else. Use exactly this shape:
{
  "widget_insights": {
    "<key>": {"value": <number>, "trend": "up|down|flat", "description": "<one sentence>",
              "source_column": "<column>", "widget_name": "<title>", "widget_type": "kpi"}
  },
  "chart_recommendations": {
    "bar_chart": {"title": "", "x_axis": "<category column>", "y_axis": "<value column>",
                  "description": "", "chart_data": [{"name": "", "value": 0}]},
    "pie_chart": {"title": "", "category_column": "", "value_column": "",
                  "description": "", "chart_data": [{"name": "", "value": 0}]}
  },
  "recommended_widgets": [
    {"type": "kpi|bar_chart|pie_chart|table", "title": "", "source_columns": [""],
     "operation": "sum|average|count|max|min", "insight_key": ""}
  ]
}
Only reference column names that exist in the schema. Values must be numbers.`

// BuildPrompt returns the system and user messages for one analysis call.
func BuildPrompt(name string, ds *dataset.Dataset, profiles []analysis.ColumnProfile) (string, string) {
	var b strings.Builder
	b.WriteString("Analyze this spreadsheet and recommend dashboard widgets.\n\n")
	b.WriteString(analysis.Summary(name, ds, profiles, sampleRows))
	b.WriteString("\nReturn 3 to 6 KPI insights, one bar chart and one pie chart.\n")
	return systemPrompt, b.String()
}

// ErrNoJSON means the model reply did not contain a JSON object.
var ErrNoJSON = errors.New("no json object in response")

// ParseResponse extracts the text between the first '{' and the last '}' of
// a model reply and decodes it. Models often wrap JSON in prose or code fences.
func ParseResponse(text string) (*Payload, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, ErrNoJSON
	}
	var p Payload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return nil, fmt.Errorf("decode insights: %w", err)
	}
	if p.Empty() {
		return nil, errors.New("insights payload is empty")
	}
	p.Source = SourceAI
	return &p, nil
}
