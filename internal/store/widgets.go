package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/insights"
)

// WidgetSource tells whether a widget was built from column heuristics or from AI insights.
type WidgetSource string

const (
	SourceRaw WidgetSource = "raw"
	SourceAI  WidgetSource = "ai"
)

// ParseSource maps a mode string to a WidgetSource; anything but "ai" is raw.
func ParseSource(s string) WidgetSource {
	if s == string(SourceAI) {
		return SourceAI
	}
	return SourceRaw
}

type Widget struct {
	ID        string              `json:"id"`
	FileID    string              `json:"file_id"`
	Type      analysis.WidgetType `json:"type"`
	Title     string              `json:"title"`
	Position  int                 `json:"position"`
	Visible   bool                `json:"visible"`
	Source    WidgetSource        `json:"source"`
	Config    WidgetConfig        `json:"config"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// WidgetConfig drives how a widget is computed. Value and Formatted are
// filled in per render and are never written to the database.
type WidgetConfig struct {
	SourceColumns  []string                `json:"source_columns,omitempty"`
	Operation      string                  `json:"operation,omitempty"`
	CustomFormula  string                  `json:"custom_formula,omitempty"`
	CategoryColumn string                  `json:"category_column,omitempty"`
	ValueColumn    string                  `json:"value_column,omitempty"`
	InsightKey     string                  `json:"insight_key,omitempty"`
	Insight        *insights.WidgetInsight `json:"insight,omitempty"`
	Value          *float64                `json:"value,omitempty"`
	Formatted      string                  `json:"formatted_value,omitempty"`
}

// Spec returns the part of the config the value calculator needs.
func (c WidgetConfig) Spec() analysis.WidgetSpec {
	return analysis.WidgetSpec{SourceColumns: c.SourceColumns, Operation: c.Operation, CustomFormula: c.CustomFormula}
}

func (c WidgetConfig) persisted() WidgetConfig {
	c.Value = nil
	c.Formatted = ""
	return c
}

// CreateWidgets inserts ws in one transaction, assigning IDs and timestamps.
func (s *Store) CreateWidgets(ctx context.Context, ws []*Widget) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, w := range ws {
		if w.ID == "" {
			w.ID = newID()
		}
		w.CreatedAt, w.UpdatedAt = now, now
		cfg, err := json.Marshal(w.Config.persisted())
		if err != nil {
			return fmt.Errorf("marshal widget config: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO widgets (id, file_id, type, title, position, visible, source, config, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			w.ID, w.FileID, string(w.Type), w.Title, w.Position, w.Visible, string(w.Source), string(cfg),
			formatTime(w.CreatedAt), formatTime(w.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert widget: %w", err)
		}
	}
	return tx.Commit()
}

// ListWidgets returns a file's widgets of one source ordered by position.
func (s *Store) ListWidgets(ctx context.Context, fileID string, source WidgetSource) ([]*Widget, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, file_id, type, title, position, visible, source, config, created_at, updated_at
		 FROM widgets WHERE file_id = ? AND source = ? ORDER BY position, created_at`,
		fileID, string(source))
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}
	defer rows.Close()
	var out []*Widget
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan widget: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) GetWidget(ctx context.Context, id string) (*Widget, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, file_id, type, title, position, visible, source, config, created_at, updated_at
		 FROM widgets WHERE id = ?`, id)
	w, err := scanWidget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("widget %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get widget: %w", err)
	}
	return w, nil
}

// SetWidgetVisible toggles visibility and returns the updated widget.
func (s *Store) SetWidgetVisible(ctx context.Context, id string, visible bool) (*Widget, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE widgets SET visible = ?, updated_at = ? WHERE id = ?`,
		visible, formatTime(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update widget: %w", err)
	}
	if err := expectOne(res, "widget", id); err != nil {
		return nil, err
	}
	return s.GetWidget(ctx, id)
}

// UpdateWidget rewrites a widget's title and config. Visibility and
// position are left alone.
func (s *Store) UpdateWidget(ctx context.Context, w *Widget) error {
	cfg, err := json.Marshal(w.Config.persisted())
	if err != nil {
		return fmt.Errorf("marshal widget config: %w", err)
	}
	w.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE widgets SET title = ?, config = ?, updated_at = ? WHERE id = ?`,
		w.Title, string(cfg), formatTime(w.UpdatedAt), w.ID)
	if err != nil {
		return fmt.Errorf("update widget: %w", err)
	}
	return expectOne(res, "widget", w.ID)
}

func scanWidget(sc scanner) (*Widget, error) {
	var (
		w                    Widget
		typ, source, cfg     string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&w.ID, &w.FileID, &typ, &w.Title, &w.Position, &w.Visible, &source, &cfg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	w.Type = analysis.WidgetType(typ)
	w.Source = WidgetSource(source)
	if err := json.Unmarshal([]byte(cfg), &w.Config); err != nil {
		return nil, fmt.Errorf("decode widget config: %w", err)
	}
	w.CreatedAt = parseTime(createdAt)
	w.UpdatedAt = parseTime(updatedAt)
	return &w, nil
}
