package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"github.com/KaramelBytes/sheetdash/internal/insights"
)

// File kinds.
const (
	KindCSV      = "csv"
	KindXLSX     = "xlsx"
	KindCombined = "combined"
)

// File is an uploaded (or combined) spreadsheet with its parsed data.
type File struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Kind      string           `json:"kind"`
	SizeBytes int64            `json:"size_bytes"`
	RowCount  int              `json:"row_count"`
	Headers   []string         `json:"headers"`
	Data      *dataset.Dataset `json:"-"`
	Insights  *InsightCache    `json:"insights,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// InsightCache is the last analysis result for a file. It is only replaced
// by an explicit regenerate.
type InsightCache struct {
	CachedAt time.Time        `json:"cached_at"`
	Payload  insights.Payload `json:"payload"`
}

// CreateFile inserts f, assigning ID and timestamps when unset.
func (s *Store) CreateFile(ctx context.Context, f *File) error {
	if f.Data == nil {
		f.Data = &dataset.Dataset{}
	}
	if f.ID == "" {
		f.ID = newID()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	f.Headers = f.Data.Headers
	f.RowCount = f.Data.Len()

	headers, err := json.Marshal(f.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}
	data, err := json.Marshal(f.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}
	cache, err := marshalCache(f.Insights)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO files (id, name, kind, size_bytes, row_count, headers, data, insights, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, f.Kind, f.SizeBytes, f.RowCount, string(headers), string(data), cache,
		formatTime(f.CreatedAt), formatTime(f.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// GetFile loads a file including its dataset and cached insights.
func (s *Store) GetFile(ctx context.Context, id string) (*File, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, size_bytes, row_count, headers, data, insights, created_at, updated_at
		 FROM files WHERE id = ?`, id)
	f, err := scanFile(row, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// GetFiles loads several files in the order of ids. Any unknown id fails the call.
func (s *Store) GetFiles(ctx context.Context, ids []string) ([]*File, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, size_bytes, row_count, headers, data, insights, created_at, updated_at
		 FROM files WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("get files: %w", err)
	}
	defer rows.Close()
	byID := make(map[string]*File, len(ids))
	for rows.Next() {
		f, err := scanFile(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		byID[f.ID] = f
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]*File, len(ids))
	for i, id := range ids {
		f, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("file %s: %w", id, ErrNotFound)
		}
		out[i] = f
	}
	return out, nil
}

// ListFiles returns all files, newest first, without their datasets.
func (s *Store) ListFiles(ctx context.Context) ([]*File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, size_bytes, row_count, headers, '', insights, created_at, updated_at
		 FROM files ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		f, err := scanFile(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// SaveInsights overwrites the cached insights of a file.
func (s *Store) SaveInsights(ctx context.Context, fileID string, c *InsightCache) error {
	cache, err := marshalCache(c)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET insights = ?, updated_at = ? WHERE id = ?`,
		cache, formatTime(time.Now()), fileID)
	if err != nil {
		return fmt.Errorf("save insights: %w", err)
	}
	return expectOne(res, "file", fileID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(sc scanner, withData bool) (*File, error) {
	var (
		f                    File
		headers, data        string
		cache                sql.NullString
		createdAt, updatedAt string
	)
	if err := sc.Scan(&f.ID, &f.Name, &f.Kind, &f.SizeBytes, &f.RowCount, &headers, &data, &cache, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headers), &f.Headers); err != nil {
		return nil, fmt.Errorf("decode headers: %w", err)
	}
	if withData {
		f.Data = &dataset.Dataset{}
		if err := json.Unmarshal([]byte(data), f.Data); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	if cache.Valid && cache.String != "" {
		f.Insights = &InsightCache{}
		if err := json.Unmarshal([]byte(cache.String), f.Insights); err != nil {
			return nil, fmt.Errorf("decode insights: %w", err)
		}
	}
	f.CreatedAt = parseTime(createdAt)
	f.UpdatedAt = parseTime(updatedAt)
	return &f, nil
}

func marshalCache(c *InsightCache) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal insights: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
