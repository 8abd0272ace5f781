package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	anaUseAI, anaJSON, anaSheetName, anaSheetIndex, anaMaxRows, anaDelimiter = false, false, "", 1, 0, ""
	cfgFile, debug, flagHTTPTimeoutSec = "", false, 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCSV(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "sales.csv")
	body := "Region,Revenue,Units\nNorth,100,3\nSouth,200,5\nNorth,50,1\n"
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestAnalyzeJSON(t *testing.T) {
	out, err := run(t, "analyze", "--json", writeCSV(t))
	require.NoError(t, err)

	var rep struct {
		File    string   `json:"file"`
		Rows    int      `json:"rows"`
		Headers []string `json:"headers"`
		Chart   struct {
			CategoryColumn string `json:"category_column"`
			ValueColumn    string `json:"value_column"`
		} `json:"chart"`
		Insights struct {
			Source         string         `json:"source"`
			WidgetInsights map[string]any `json:"widget_insights"`
		} `json:"insights"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "sales.csv", rep.File)
	assert.Equal(t, 3, rep.Rows)
	assert.Equal(t, []string{"Region", "Revenue", "Units"}, rep.Headers)
	assert.Equal(t, "Region", rep.Chart.CategoryColumn)
	assert.Equal(t, "fallback", rep.Insights.Source)
	assert.NotEmpty(t, rep.Insights.WidgetInsights)
}

func TestAnalyzeText(t *testing.T) {
	out, err := run(t, "analyze", writeCSV(t))
	require.NoError(t, err)
	assert.Contains(t, out, "File: sales.csv (3 rows, 3 columns)")
	assert.Contains(t, out, "COLUMN")
	assert.Contains(t, out, "Insights (fallback):")
}

func TestAnalyzeRejectsBadDelimiter(t *testing.T) {
	_, err := run(t, "analyze", "--delimiter", "|", writeCSV(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported --delimiter")
}

func TestAnalyzeAIWithoutKey(t *testing.T) {
	t.Setenv("SHEETDASH_API_KEY", "")
	_, err := run(t, "analyze", "--ai", writeCSV(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key")
}

func TestConfigSetAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "--config", path, "config", "set", "max_rows", "500")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved config")

	_, err = run(t, "--config", path, "config", "set", "api_key", "sk-abcdef123456")
	require.NoError(t, err)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "max_rows: 500")
	assert.Contains(t, out, "api_key: sk-****456")
	assert.NotContains(t, out, "abcdef")
}

func TestConfigSetUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := run(t, "--config", path, "config", "set", "default_provider", "nope")
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "******", mask("abc"))
	assert.Equal(t, "abc****xyz", mask("abc123xyz"))
}
