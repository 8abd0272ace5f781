// Package config loads sheetdash settings from defaults, a YAML file, and
// SHEETDASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/sheetdash/internal/ai"
	"github.com/KaramelBytes/sheetdash/internal/utils"
)

const dirName = ".sheetdash"

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP configuration. AI calls are never retried.
	HTTPTimeoutSec int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// Service
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`
	ListenAddr   string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB  int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	AITimeoutSec int    `mapstructure:"ai_timeout_sec" yaml:"ai_timeout_sec"`
	MaxRows      int    `mapstructure:"max_rows" yaml:"max_rows"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists every settable key, in display order.
var Keys = []string{
	"api_key", "base_url", "default_model", "default_provider", "max_tokens", "temperature",
	"http_timeout_sec",
	"ollama_host", "ollama_timeout_sec",
	"database_path", "listen_addr", "max_upload_mb", "ai_timeout_sec", "max_rows", "log_level",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_model", "openai/gpt-4o-mini")
	v.SetDefault("default_provider", ai.ProviderOpenRouter)
	v.SetDefault("max_tokens", 1500)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	v.SetDefault("database_path", filepath.Join("~", dirName, "sheetdash.db"))
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("max_upload_mb", 20)
	v.SetDefault("ai_timeout_sec", 90)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("log_level", "info")
}

// DefaultPath returns ~/.sheetdash/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes c to cfgFile, or to DefaultPath when cfgFile is empty.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETDASH")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// a missing file is fine; a malformed one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.DatabasePath = utils.ExpandHome(c.DatabasePath)
	return &c, nil
}

// Set assigns one key from its string form, validating numeric values.
func (c *Global) Set(key, value string) error {
	known := false
	for _, k := range Keys {
		if k == key {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown config key %q", key)
	}
	cur := map[string]any{}
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &cur); err != nil {
		return err
	}
	cur[key] = value
	v := viper.New()
	if err := v.MergeConfigMap(cur); err != nil {
		return err
	}
	var next Global
	if err := v.Unmarshal(&next); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*c = next
	return nil
}

// Runtime builds the chat runtime for the configured provider. It returns
// nil when the provider needs an API key and none is set.
func (c *Global) Runtime() (ai.Runtime, error) {
	provider := strings.ToLower(c.DefaultProvider)
	if provider == "" {
		provider = ai.ProviderOpenRouter
	}
	if !slices.Contains(ai.Providers(), provider) {
		return nil, fmt.Errorf("unknown provider %q (known: %s)", provider, strings.Join(ai.Providers(), ", "))
	}
	// one attempt: a failed analysis falls back to heuristics
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    1,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		Host:        c.OllamaHost,
	}
	switch provider {
	case ai.ProviderOllama, ai.ProviderLocal:
		rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
	default:
		if c.APIKey == "" {
			return nil, nil
		}
	}
	return ai.NewRuntime(provider, rc)
}
