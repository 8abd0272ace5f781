package parser

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"github.com/xuri/excelize/v2"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".xlsx") || strings.HasSuffix(name, ".xlsm")
}

// Parse reads the selected sheet. The first non-blank row is the header.
// Cells that excelize reports as plain numbers become numeric cells; all
// other text stays a string for the value extractor to deal with.
func (xlsxParser) Parse(filename string, content []byte, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet, err := resolveSheet(f, filename, opt)
	if err != nil {
		return nil, err
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	start := 0
	for start < len(rows) && blankRecord(rows[start]) {
		start++
	}
	if start >= len(rows) {
		return &dataset.Dataset{}, nil
	}
	ds := dataset.New(rows[start], nil)
	for _, rec := range rows[start+1:] {
		if blankRecord(rec) {
			continue
		}
		row := make(dataset.Row, len(ds.Headers))
		for i, h := range ds.Headers {
			if i >= len(rec) {
				break
			}
			if c := sheetCell(rec[i]); !c.IsEmpty() {
				row[h] = c
			}
		}
		ds.Rows = append(ds.Rows, row)
		if opt.MaxRows > 0 && len(ds.Rows) >= opt.MaxRows {
			break
		}
	}
	return ds, nil
}

func resolveSheet(f *excelize.File, filename string, opt Options) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook %s has no sheets", filename)
	}
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				return s, nil
			}
		}
		return "", fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
			opt.SheetName, filename, strings.Join(sheets, ", "))
	}
	idx := opt.SheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx > len(sheets) {
		return "", fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
	}
	return sheets[idx-1], nil
}

func sheetCell(raw string) dataset.Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return dataset.EmptyCell()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return dataset.NumberCell(f)
	}
	return dataset.StringCell(raw)
}
