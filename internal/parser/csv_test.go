package parser_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/sheetdash/internal/parser"
)

func TestParseFileCSV_Dataset(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "hop_harvest.csv")
	content := "date,plot,yield,moisture\n" +
		"2024-08-10,A1,\"$1,250\",74\n" +
		"2024-08-12,A1,980,\n" +
		",,,\n" +
		"2024-08-15,B3,1100,68\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := parser.ParseFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ds.Headers) != 4 || ds.Headers[2] != "yield" {
		t.Fatalf("unexpected headers: %v", ds.Headers)
	}
	if len(ds.Rows) != 3 {
		t.Fatalf("expected blank line to be skipped, got %d rows", len(ds.Rows))
	}
	if got := ds.Rows[0].Get("yield").String(); got != "$1,250" {
		t.Fatalf("expected raw cell preserved, got %q", got)
	}
	if _, ok := ds.Rows[1]["moisture"]; ok {
		t.Fatalf("empty cell should be absent from row")
	}
}

func TestParseTSVAndMaxRows(t *testing.T) {
	data := []byte("a\tb\n1\t2\n3\t4\n5\t6\n")
	ds, err := parser.ParseBytes("x.tsv", data, parser.Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ds.Rows))
	}
	if ds.Rows[1].Get("b").String() != "4" {
		t.Fatalf("unexpected cell: %q", ds.Rows[1].Get("b").String())
	}
}

func TestParseCSVEmptyFile(t *testing.T) {
	ds, err := parser.ParseBytes("empty.csv", nil, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !ds.Empty() {
		t.Fatalf("expected empty dataset")
	}
}
