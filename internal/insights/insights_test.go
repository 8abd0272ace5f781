package insights

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/ai"
	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/config"
	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

type fakeRuntime struct {
	reply string
	err   error
	calls int
	last  ai.GenerateRequest
}

func (f *fakeRuntime) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: f.reply}}}}, nil
}

func salesByRegion() *dataset.Dataset {
	return dataset.New([]string{"Region", "Revenue"}, [][]string{
		{"North", "100"},
		{"South", "200"},
		{"North", "50"},
	})
}

func TestParseResponseToleratesProseAndStringNumbers(t *testing.T) {
	reply := "Sure! Here you go:\n```json\n" + `{
  "widget_insights": {
    "total_revenue": {"value": "$1,234.50", "trend": "up", "source_column": "Revenue", "widget_name": "Total Revenue", "widget_type": "kpi"}
  },
  "chart_recommendations": {
    "bar_chart": {"title": "Revenue by Region", "x_axis": "Region", "y_axis": "Revenue",
      "chart_data": [{"name": "North", "value": "150"}, {"name": 2024, "value": 200}]}
  }
}` + "\n```\nLet me know!"

	p, err := ParseResponse(reply)
	require.NoError(t, err)
	assert.Equal(t, SourceAI, p.Source)
	assert.InDelta(t, 1234.5, float64(p.WidgetInsights["total_revenue"].Value), 1e-9)

	bar := p.ChartRecommendations.BarChart
	require.NotNil(t, bar)
	assert.Equal(t, "Region", bar.Category())
	assert.Equal(t, "Revenue", bar.Measure())
	assert.Equal(t, []analysis.ChartPoint{{Name: "North", Value: 150}, {Name: "2024", Value: 200}}, bar.Points())
	assert.Nil(t, p.ChartRecommendations.PieChart)
}

func TestParseResponseFailures(t *testing.T) {
	_, err := ParseResponse("I cannot help with that.")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseResponse("{ not json }")
	assert.Error(t, err)

	_, err = ParseResponse(`{"widget_insights": {}}`)
	assert.Error(t, err)
}

func TestAnalyzeFallsBackOnRuntimeError(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("connection reset")}
	a := NewAnalyzer(rt, Options{Model: "m"}, zap.NewNop())

	p := a.Analyze(context.Background(), "sales.csv", salesByRegion())
	require.NotNil(t, p)
	assert.Equal(t, 1, rt.calls)
	assert.Equal(t, SourceFallback, p.Source)
	assert.NotEmpty(t, p.WidgetInsights)
	assert.NotNil(t, p.ChartRecommendations.BarChart)
	assert.NotNil(t, p.ChartRecommendations.PieChart)
}

func TestAnalyzeFallsBackOnUnparsableReply(t *testing.T) {
	rt := &fakeRuntime{reply: "no idea"}
	p := NewAnalyzer(rt, Options{Model: "m"}, nil).Analyze(context.Background(), "", salesByRegion())
	assert.Equal(t, SourceFallback, p.Source)
}

func TestAnalyzeWithoutRuntime(t *testing.T) {
	p := NewAnalyzer(nil, Options{}, nil).Analyze(context.Background(), "", salesByRegion())
	assert.Equal(t, SourceFallback, p.Source)
}

func TestAnalyzeUsesModelReply(t *testing.T) {
	rt := &fakeRuntime{reply: `{"widget_insights": {"rev": {"value": 350, "source_column": "Revenue", "widget_name": "Revenue", "widget_type": "kpi"},
		"ghost": {"value": 1, "source_column": "Nope"}},
		"chart_recommendations": {"pie_chart": {"title": "Share", "category_column": "Region", "value_column": "Revenue",
		"chart_data": [{"name": "North", "value": 150}, {"name": "South", "value": 200}]}},
		"recommended_widgets": [{"type": "sparkline", "title": "x"}, {"type": "pie", "title": "Share", "source_columns": ["Region", "Revenue"]}]}`}
	a := NewAnalyzer(rt, Options{Model: "test-model", MaxTokens: 99}, zap.NewNop())

	p := a.Analyze(context.Background(), "sales.csv", salesByRegion())
	require.Equal(t, SourceAI, p.Source)
	assert.Equal(t, "test-model", rt.last.Model)
	assert.Equal(t, 99, rt.last.MaxTokens)
	require.Len(t, rt.last.Messages, 2)
	assert.Equal(t, "system", rt.last.Messages[0].Role)
	assert.Contains(t, rt.last.Messages[1].Content, "[SCHEMA]")

	assert.Empty(t, p.WidgetInsights["ghost"].SourceColumn)
	var types []analysis.WidgetType
	for _, w := range p.RecommendedWidgets {
		types = append(types, w.Type)
	}
	assert.Equal(t, []analysis.WidgetType{
		analysis.WidgetKPI, analysis.WidgetKPI, analysis.WidgetPieChart, analysis.WidgetTable,
	}, types)
}

func TestAnalyzeSingleAttemptAgainstFailingServer(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":{"message":"upstream down"}}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	client := ai.NewClientWithBaseURL("k", 2*time.Second, 1, time.Millisecond, time.Millisecond, srv.URL)
	p := NewAnalyzer(client, Options{Model: "m"}, zap.NewNop()).Analyze(context.Background(), "", salesByRegion())

	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Equal(t, SourceFallback, p.Source)
	assert.GreaterOrEqual(t, len(p.WidgetInsights), 1)
	assert.NotNil(t, p.ChartRecommendations.BarChart)
}

func TestConfiguredRuntimeNeverRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	// stale retry settings from an older config file are ignored
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "api_key: k\nbase_url: " + srv.URL + "\nretry_max_attempts: 3\nretry_base_delay_ms: 1\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHEETDASH_RETRY_MAX_ATTEMPTS", "3")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	rt, err := cfg.Runtime()
	require.NoError(t, err)
	require.NotNil(t, rt)

	p := NewAnalyzer(rt, Options{Model: "m"}, zap.NewNop()).Analyze(context.Background(), "sales.csv", salesByRegion())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Equal(t, SourceFallback, p.Source)
}

func TestFallbackExtrapolatesTotals(t *testing.T) {
	var records [][]string
	for i := 0; i < 10; i++ {
		v := "10"
		if i >= 5 {
			v = "1000"
		}
		records = append(records, []string{[]string{"North", "South"}[i%2], v})
	}
	ds := dataset.New([]string{"Region", "Revenue"}, records)
	p := Fallback(ds, analysis.ClassifyAll(ds))

	total := p.WidgetInsights["total_revenue"]
	assert.InDelta(t, 100, float64(total.Value), 1e-9)
	assert.Equal(t, "$100", total.DisplayValue)
	assert.Equal(t, "Revenue", total.SourceColumn)

	assert.EqualValues(t, 2, p.WidgetInsights["unique_region"].Value)
	assert.Equal(t, "$10.00", p.WidgetInsights["average_revenue"].DisplayValue)

	bar := p.ChartRecommendations.BarChart
	require.NotNil(t, bar)
	assert.Equal(t, "Region", bar.XAxis)
	assert.Len(t, bar.ChartData, 5)
	assert.Equal(t, Label("North"), bar.ChartData[0].Name)
	assert.Equal(t, "Region", p.ChartRecommendations.PieChart.CategoryColumn)

	last := p.RecommendedWidgets[len(p.RecommendedWidgets)-1]
	assert.Equal(t, analysis.WidgetTable, last.Type)
	assert.Equal(t, []string{"Region", "Revenue"}, last.SourceColumns)
}

func TestFallbackCapsKPIs(t *testing.T) {
	headers := []string{"A", "B", "C", "D"}
	var records [][]string
	for i := 1; i <= 6; i++ {
		s := strconv.Itoa(i)
		records = append(records, []string{s, s, s, s})
	}
	ds := dataset.New(headers, records)
	p := Fallback(ds, analysis.ClassifyAll(ds))

	var totals, averages int
	for k := range p.WidgetInsights {
		switch k[:4] {
		case "tota":
			totals++
		case "aver":
			averages++
		}
	}
	assert.Equal(t, 3, totals)
	assert.Equal(t, 1, averages)
	require.NotNil(t, p.ChartRecommendations.BarChart)
	assert.Len(t, p.ChartRecommendations.BarChart.ChartData, 1)
}

func TestFallbackWithoutNumericColumns(t *testing.T) {
	ds := dataset.New([]string{"Note"}, [][]string{{"same"}, {"same"}, {"same"}})
	p := Fallback(ds, analysis.ClassifyAll(ds))

	rec, ok := p.WidgetInsights["total_records"]
	require.True(t, ok)
	assert.EqualValues(t, 3, rec.Value)
	assert.Equal(t, "Records per Column", p.ChartRecommendations.BarChart.Title)
	assert.Equal(t, []ChartDatum{{Name: "Note", Value: 3}}, p.ChartRecommendations.PieChart.ChartData)
}

func TestFallbackNilDataset(t *testing.T) {
	p := Fallback(nil, nil)
	require.NotNil(t, p)
	assert.Len(t, p.WidgetInsights, 1)
	require.NotNil(t, p.ChartRecommendations.BarChart)
	assert.NotEmpty(t, p.ChartRecommendations.BarChart.ChartData)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "unit_price", slug("Unit Price ($)"))
	assert.Equal(t, "column", slug("%%"))
}
