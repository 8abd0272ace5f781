package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"github.com/KaramelBytes/sheetdash/internal/insights"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleFile() *File {
	return &File{
		Name: "sales.csv",
		Kind: KindCSV,
		Data: dataset.New([]string{"Region", "Revenue"}, [][]string{{"North", "100"}, {"South", "$200"}}),
	}
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := setupTestStore(t)
	v, err := s.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, v)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sheetdash.db")
	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, s.CreateFile(context.Background(), sampleFile()))
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer s.Close()
	files, err := s.ListFiles(context.Background())
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestFileRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	f := sampleFile()
	require.NoError(t, s.CreateFile(ctx, f))
	require.NotEmpty(t, f.ID)
	assert.Equal(t, 2, f.RowCount)

	got, err := s.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", got.Name)
	assert.Equal(t, []string{"Region", "Revenue"}, got.Headers)
	require.NotNil(t, got.Data)
	assert.Equal(t, "$200", got.Data.Rows[1].Get("Revenue").String())
	assert.Nil(t, got.Insights)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)

	list, err := s.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Data)
	assert.Equal(t, 2, list[0].RowCount)
}

func TestGetFileNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetFile(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetFiles(context.Background(), []string{"missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.SaveInsights(context.Background(), "missing", &InsightCache{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFilesKeepsOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	a, b := sampleFile(), sampleFile()
	b.Name = "other.csv"
	require.NoError(t, s.CreateFile(ctx, a))
	require.NoError(t, s.CreateFile(ctx, b))

	got, err := s.GetFiles(ctx, []string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "other.csv", got[0].Name)
	assert.Equal(t, "sales.csv", got[1].Name)
}

func TestSaveInsightsOverwrites(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	f := sampleFile()
	require.NoError(t, s.CreateFile(ctx, f))

	first := &InsightCache{CachedAt: time.Now().UTC(), Payload: insights.Payload{Source: insights.SourceFallback}}
	require.NoError(t, s.SaveInsights(ctx, f.ID, first))
	second := &InsightCache{CachedAt: time.Now().UTC(), Payload: insights.Payload{
		Source:         insights.SourceAI,
		WidgetInsights: map[string]insights.WidgetInsight{"rev": {Value: 300, WidgetName: "Revenue"}},
	}}
	require.NoError(t, s.SaveInsights(ctx, f.ID, second))

	got, err := s.GetFile(ctx, f.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Insights)
	assert.Equal(t, insights.SourceAI, got.Insights.Payload.Source)
	assert.EqualValues(t, 300, got.Insights.Payload.WidgetInsights["rev"].Value)
}

func TestWidgetLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	f := sampleFile()
	require.NoError(t, s.CreateFile(ctx, f))

	v := 600.0
	ws := []*Widget{
		{FileID: f.ID, Type: analysis.WidgetKPI, Title: "Total Revenue", Position: 0, Visible: true, Source: SourceRaw,
			Config: WidgetConfig{SourceColumns: []string{"Revenue"}, Operation: "sum", Value: &v, Formatted: "600"}},
		{FileID: f.ID, Type: analysis.WidgetTable, Title: "Data", Position: 1, Visible: true, Source: SourceRaw},
		{FileID: f.ID, Type: analysis.WidgetKPI, Title: "AI", Position: 0, Visible: true, Source: SourceAI},
	}
	require.NoError(t, s.CreateWidgets(ctx, ws))

	raw, err := s.ListWidgets(ctx, f.ID, SourceRaw)
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, "Total Revenue", raw[0].Title)
	assert.Nil(t, raw[0].Config.Value, "computed values are not persisted")
	assert.Empty(t, raw[0].Config.Formatted)
	assert.Equal(t, []string{"Revenue"}, raw[0].Config.SourceColumns)

	hidden, err := s.SetWidgetVisible(ctx, raw[0].ID, false)
	require.NoError(t, err)
	assert.False(t, hidden.Visible)

	_, err = s.SetWidgetVisible(ctx, "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)

	hidden.Title = "Revenue"
	hidden.Config.Operation = "average"
	require.NoError(t, s.UpdateWidget(ctx, hidden))
	got, err := s.GetWidget(ctx, hidden.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revenue", got.Title)
	assert.Equal(t, "average", got.Config.Operation)
	assert.False(t, got.Visible)

	ai, err := s.ListWidgets(ctx, f.ID, SourceAI)
	require.NoError(t, err)
	assert.Len(t, ai, 1)
}

func TestParseSource(t *testing.T) {
	assert.Equal(t, SourceAI, ParseSource("ai"))
	assert.Equal(t, SourceRaw, ParseSource("raw"))
	assert.Equal(t, SourceRaw, ParseSource(""))
}
