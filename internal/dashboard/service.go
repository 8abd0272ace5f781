// Package dashboard wires parsing, analysis, insights and storage into the
// operations the HTTP API and CLI expose.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"github.com/KaramelBytes/sheetdash/internal/insights"
	"github.com/KaramelBytes/sheetdash/internal/parser"
	"github.com/KaramelBytes/sheetdash/internal/store"
)

// ErrInvalidInput marks caller mistakes (bad ids list, empty file, ...).
var ErrInvalidInput = errors.New("invalid input")

// Options configure a Service.
type Options struct {
	// MaxRows caps the rows kept from an upload; 0 keeps all.
	MaxRows int
	// AITimeout bounds one insight analysis; 0 means no extra deadline.
	AITimeout time.Duration
	// TableRows caps the rows returned in the table payload; 0 returns all.
	TableRows int
}

// Service implements the dashboard operations on top of a Store.
type Service struct {
	store    *store.Store
	analyzer *insights.Analyzer
	logger   *zap.Logger
	opts     Options
}

func NewService(st *store.Store, analyzer *insights.Analyzer, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = insights.NewAnalyzer(nil, insights.Options{}, logger)
	}
	return &Service{store: st, analyzer: analyzer, logger: logger, opts: opts}
}

// Upload parses content and stores it as a new file.
func (s *Service) Upload(ctx context.Context, filename string, content []byte, opt parser.Options) (*store.File, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." {
		return nil, fmt.Errorf("%w: missing file name", ErrInvalidInput)
	}
	if opt.MaxRows == 0 {
		opt.MaxRows = s.opts.MaxRows
	}
	ds, err := parser.ParseBytes(filename, content, opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if len(ds.Headers) == 0 {
		return nil, fmt.Errorf("%w: %s has no header row", ErrInvalidInput, filename)
	}
	f := &store.File{Name: filename, Kind: kindOf(filename), SizeBytes: int64(len(content)), Data: ds}
	if err := s.store.CreateFile(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("file uploaded",
		zap.String("file_id", f.ID),
		zap.String("name", f.Name),
		zap.Int("rows", f.RowCount),
		zap.Int("columns", len(f.Headers)))
	return f, nil
}

// Combine concatenates existing files into a new one.
func (s *Service) Combine(ctx context.Context, name string, ids []string) (*store.File, error) {
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: combine needs at least two files", ErrInvalidInput)
	}
	files, err := s.store.GetFiles(ctx, ids)
	if err != nil {
		return nil, err
	}
	sets := make([]*dataset.Dataset, len(files))
	names := make([]string, len(files))
	var size int64
	for i, f := range files {
		sets[i] = f.Data
		names[i] = f.Name
		size += f.SizeBytes
	}
	if strings.TrimSpace(name) == "" {
		name = "Combined: " + strings.Join(names, ", ")
	}
	f := &store.File{Name: name, Kind: store.KindCombined, SizeBytes: size, Data: dataset.Combine(sets...)}
	if err := s.store.CreateFile(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("files combined",
		zap.String("file_id", f.ID),
		zap.Strings("sources", ids),
		zap.Int("rows", f.RowCount))
	return f, nil
}

func (s *Service) Files(ctx context.Context) ([]*store.File, error) {
	return s.store.ListFiles(ctx)
}

func (s *Service) File(ctx context.Context, id string) (*store.File, error) {
	return s.store.GetFile(ctx, id)
}

// Health checks the database and reports the applied schema version.
func (s *Service) Health(ctx context.Context) (int64, error) {
	if err := s.store.Ping(ctx); err != nil {
		return 0, fmt.Errorf("ping database: %w", err)
	}
	v, err := s.store.SchemaVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

// ToggleWidget shows or hides a widget.
func (s *Service) ToggleWidget(ctx context.Context, id string, visible bool) (*store.Widget, error) {
	w, err := s.store.SetWidgetVisible(ctx, id, visible)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("widget visibility changed", zap.String("widget_id", id), zap.Bool("visible", visible))
	return w, nil
}

func kindOf(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return store.KindXLSX
	default:
		return store.KindCSV
	}
}
