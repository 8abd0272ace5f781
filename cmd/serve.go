package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/dashboard"
	"github.com/KaramelBytes/sheetdash/internal/insights"
	"github.com/KaramelBytes/sheetdash/internal/server"
	"github.com/KaramelBytes/sheetdash/internal/store"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		dbPath := cfg.DatabasePath
		if serveDB != "" {
			dbPath = serveDB
		}

		st, err := store.Open(ctx, dbPath, logger)
		if err != nil {
			return err
		}
		defer st.Close()

		rt, err := cfg.Runtime()
		if err != nil {
			return err
		}
		if rt == nil {
			logger.Warn("no api key configured; ai mode will use heuristic insights")
		}
		analyzer := insights.NewAnalyzer(rt, insights.Options{
			Model:       cfg.DefaultModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, logger)
		svc := dashboard.NewService(st, analyzer, logger, dashboard.Options{
			MaxRows:   cfg.MaxRows,
			AITimeout: time.Duration(cfg.AITimeoutSec) * time.Second,
		})

		logger.Info("sheetdash ready",
			zap.String("addr", addr),
			zap.String("database", dbPath),
			zap.String("provider", cfg.DefaultProvider),
			zap.String("model", cfg.DefaultModel))
		srv := server.New(server.Config{
			Service:        svc,
			Addr:           addr,
			MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
			Logger:         logger,
		})
		if err := srv.Serve(ctx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default from config)")
}
