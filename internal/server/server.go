// Package server exposes the dashboard service as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KaramelBytes/sheetdash/internal/dashboard"
)

// Config holds configuration for the API server.
type Config struct {
	Service *dashboard.Service
	Addr    string
	// MaxUploadBytes caps multipart uploads; <= 0 uses 20 MiB.
	MaxUploadBytes int64
	Logger         *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	svc       *dashboard.Service
	addr      string
	maxUpload int64
	logger    *zap.Logger
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 << 20
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return &Server{svc: cfg.Service, addr: cfg.Addr, maxUpload: cfg.MaxUploadBytes, logger: cfg.Logger}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Get("/", s.handleListFiles)
			r.Post("/", s.handleUpload)
			r.Post("/combine", s.handleCombine)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetFile)
				r.Post("/connect", s.handleConnect)
				r.Get("/dashboard", s.handleDashboard)
				r.Post("/insights/regenerate", s.handleRegenerate)
			})
		})
		r.Patch("/widgets/{id}", s.handleToggleWidget)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})
	return r
}

// Serve starts the server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	eg, egctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.logger.Info("starting api server", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down api server")
		return srv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// requestLogger logs one line per request through zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
