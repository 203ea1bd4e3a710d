package xlsxparser

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "points.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestStreamingParser_FirstSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"P1", 6690000, 3385000, "note1"},
		{"P1", 6690010, 3385010, "note2"},
	})

	p, err := NewStreamingParser(path, config.InputConfig{})
	if err != nil {
		t.Fatalf("NewStreamingParser: %v", err)
	}
	defer p.Close()

	var got [][]string
	for p.Next() {
		got = append(got, p.Record())
	}
	if err := p.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0][0] != "P1" || got[0][1] != "6690000" || got[0][3] != "note1" {
		t.Fatalf("first row = %q", got[0])
	}
	if p.RowNumber() != 2 {
		t.Fatalf("row number = %d", p.RowNumber())
	}
}

func TestStreamingParser_NamedSheetWithHeader(t *testing.T) {
	path := writeWorkbook(t, "Points", [][]interface{}{
		{"name", "y", "x", "note"},
		{"B", 1, 2, "n"},
	})

	p, err := NewStreamingParser(path, config.InputConfig{Sheet: "Points", HeaderRows: 1})
	if err != nil {
		t.Fatalf("NewStreamingParser: %v", err)
	}
	defer p.Close()

	if !p.Next() {
		t.Fatalf("no data row: %v", p.Err())
	}
	if p.Record()[0] != "B" || p.RowNumber() != 2 {
		t.Fatalf("record = %q row = %d", p.Record(), p.RowNumber())
	}
	if p.Next() {
		t.Fatal("unexpected extra row")
	}
}

func TestStreamingParser_MissingSheet(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{{"A", 1, 2, "n"}})
	if _, err := NewStreamingParser(path, config.InputConfig{Sheet: "Nope"}); err == nil {
		t.Fatal("expected error for missing sheet")
	}
}

func TestStreamingParser_EmptyNoteCell(t *testing.T) {
	path := writeWorkbook(t, "Sheet1", [][]interface{}{
		{"P1", 6690000, 3385000},
	})

	p, err := NewStreamingParser(path, config.InputConfig{})
	if err != nil {
		t.Fatalf("NewStreamingParser: %v", err)
	}
	defer p.Close()

	if !p.Next() {
		t.Fatalf("no row read, err = %v", p.Err())
	}
	want := []string{"P1", "6690000", "3385000", ""}
	if !reflect.DeepEqual(p.Record(), want) {
		t.Fatalf("record = %q, want %q", p.Record(), want)
	}
}
