package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/sheetdash/internal/dataset"
	"github.com/KaramelBytes/sheetdash/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseBytesUnsupported(t *testing.T) {
	_, err := parser.ParseBytes("notes.docx", []byte("x"), parser.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrUnsupported))
	assert.False(t, parser.Supported("notes.docx"))
	assert.True(t, parser.Supported("Sales.CSV"))
	assert.True(t, parser.Supported("book.xlsx"))
}

func TestParseXLSXFile(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	require.NoError(t, f.SetCellValue(sheet, "A1", "Region"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Revenue"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "North"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 100))
	require.NoError(t, f.SetCellValue(sheet, "A3", "South"))
	require.NoError(t, f.SetCellValue(sheet, "B3", "$200"))

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))

	ds, err := parser.ParseFile(path, parser.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Revenue"}, ds.Headers)
	require.Len(t, ds.Rows, 2)

	n, ok := ds.Rows[0].Get("Revenue").Number()
	assert.True(t, ok, "plain numeric cell should be a number")
	assert.Equal(t, 100.0, n)
	assert.Equal(t, dataset.KindString, ds.Rows[1].Get("Revenue").Kind())
	assert.Equal(t, "$200", ds.Rows[1].Get("Revenue").String())
}

func TestParseXLSXSheetSelection(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Data")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Data", "A1", "Name"))
	require.NoError(t, f.SetCellValue("Data", "A2", "only"))
	path := filepath.Join(t.TempDir(), "multi.xlsx")
	require.NoError(t, f.SaveAs(path))

	ds, err := parser.ParseFile(path, parser.Options{SheetName: "data"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, ds.Headers)
	assert.Len(t, ds.Rows, 1)

	_, err = parser.ParseFile(path, parser.Options{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Available sheets")
}

func TestParseFileMissing(t *testing.T) {
	_, err := parser.ParseFile(filepath.Join(t.TempDir(), "nope.csv"), parser.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
