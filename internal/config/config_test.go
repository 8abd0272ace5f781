package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/sheetdash/internal/ai"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60, c.HTTPTimeoutSec)
	assert.Equal(t, ai.ProviderOpenRouter, c.DefaultProvider)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, 20, c.MaxUploadMB)
	assert.True(t, filepath.IsAbs(c.DatabasePath))
}

func TestSaveLoadRoundTripAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	c.APIKey = "sk-file"
	c.MaxRows = 50
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", got.APIKey)
	assert.Equal(t, 50, got.MaxRows)

	t.Setenv("SHEETDASH_API_KEY", "sk-env")
	got, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-env", got.APIKey)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_rows: [oops"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	c := &Global{MaxRows: 10, DefaultModel: "m"}
	require.NoError(t, c.Set("max_rows", "25"))
	assert.Equal(t, 25, c.MaxRows)
	assert.Equal(t, "m", c.DefaultModel)

	require.NoError(t, c.Set("temperature", "0.5"))
	assert.InDelta(t, 0.5, c.Temperature, 1e-9)

	assert.Error(t, c.Set("max_rows", "lots"))
	assert.ErrorContains(t, c.Set("nope", "1"), "unknown config key")
}

func TestRuntimeSelection(t *testing.T) {
	c := &Global{DefaultProvider: ai.ProviderOpenRouter}
	rt, err := c.Runtime()
	require.NoError(t, err)
	assert.Nil(t, rt, "no key means no hosted runtime")

	c.APIKey = "k"
	rt, err = c.Runtime()
	require.NoError(t, err)
	assert.IsType(t, &ai.Client{}, rt)

	c.DefaultProvider = ai.ProviderOllama
	rt, err = c.Runtime()
	require.NoError(t, err)
	assert.IsType(t, &ai.OllamaClient{}, rt)

	c.DefaultProvider = "bogus"
	_, err = c.Runtime()
	assert.Error(t, err)

	c.APIKey = ""
	_, err = c.Runtime()
	assert.ErrorContains(t, err, "unknown provider")
}
