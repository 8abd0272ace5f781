package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/sheetdash/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Sheetdash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		values := map[string]any{
			"api_key":            mask(cfg.APIKey),
			"base_url":           cfg.BaseURL,
			"default_model":      cfg.DefaultModel,
			"default_provider":   cfg.DefaultProvider,
			"max_tokens":         cfg.MaxTokens,
			"temperature":        fmt.Sprintf("%.3f", cfg.Temperature),
			"http_timeout_sec":   cfg.HTTPTimeoutSec,
			"ollama_host":        cfg.OllamaHost,
			"ollama_timeout_sec": cfg.OllamaTimeoutSec,
			"database_path":      cfg.DatabasePath,
			"listen_addr":        cfg.ListenAddr,
			"max_upload_mb":      cfg.MaxUploadMB,
			"ai_timeout_sec":     cfg.AITimeoutSec,
			"max_rows":           cfg.MaxRows,
			"log_level":          cfg.LogLevel,
		}
		for _, k := range cfgpkg.Keys {
			fmt.Fprintf(out, "%s: %v\n", k, values[k])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if key == "default_provider" {
			val = strings.ToLower(val)
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if key == "default_provider" {
			if _, err := cfg.Runtime(); err != nil {
				return err
			}
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
