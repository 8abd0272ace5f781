// Package parser turns uploaded spreadsheet files into datasets.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
)

// Options controls how a file is read.
type Options struct {
	// SheetName selects an XLSX sheet by name; empty means use SheetIndex.
	SheetName string
	// SheetIndex is 1-based; values <= 0 select the first sheet.
	SheetIndex int
	// Delimiter for CSV. If 0, chosen from the file extension.
	Delimiter rune
	// MaxRows limits data rows kept; 0 means unlimited.
	MaxRows int
}

// Parser decodes one file format into a dataset.
type Parser interface {
	CanParse(filename string) bool
	Parse(filename string, content []byte, opt Options) (*dataset.Dataset, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported file format")

// Supported reports whether some registered parser accepts filename.
func Supported(filename string) bool {
	for _, p := range registry {
		if p.CanParse(filename) {
			return true
		}
	}
	return false
}

// ParseFile reads path from disk and parses it.
func ParseFile(path string, opt Options) (*dataset.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseBytes(filepath.Base(path), data, opt)
}

// ParseBytes selects a parser by filename and decodes content.
func ParseBytes(filename string, content []byte, opt Options) (*dataset.Dataset, error) {
	for _, p := range registry {
		if p.CanParse(filename) {
			ds, err := p.Parse(filename, content, opt)
			if err != nil {
				return nil, err
			}
			return ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(filename))
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
}
