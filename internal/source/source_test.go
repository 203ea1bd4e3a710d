package source

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/razz0/ykj-wgs/internal/config"
	"github.com/razz0/ykj-wgs/internal/csvparser"
	"github.com/razz0/ykj-wgs/internal/types"
	"github.com/razz0/ykj-wgs/internal/validation"
)

func fromString(t *testing.T, in string, skip bool) *Source {
	t.Helper()
	r, err := csvparser.NewReader(strings.NewReader(in), config.InputConfig{})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return New(r, skip)
}

func drain(s *Source) []types.InputPoint {
	var pts []types.InputPoint
	for s.Next() {
		pts = append(pts, s.Point())
	}
	return pts
}

func TestSource_FailFastOnMalformedRow(t *testing.T) {
	s := fromString(t, "A,1,2,a\nB,oops,2,b\nC,1,2,c\n", false)
	pts := drain(s)

	if len(pts) != 1 {
		t.Fatalf("got %d points before failure, want 1", len(pts))
	}
	if !errors.Is(s.Err(), validation.ErrMalformedRow) {
		t.Fatalf("Err = %v, want ErrMalformedRow", s.Err())
	}
}

func TestSource_SkipMalformed(t *testing.T) {
	s := fromString(t, "A,1,2,a\nB,1\nC,1,2,c\n", true)
	pts := drain(s)

	if err := s.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(pts) != 2 || pts[0].Name != "A" || pts[1].Name != "C" {
		t.Fatalf("points = %+v", pts)
	}
	if len(s.Skipped()) != 1 || s.Skipped()[0].RowNumber != 2 {
		t.Fatalf("skipped = %+v", s.Skipped())
	}
}

func TestOpen_CSVByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.txt")
	if err := os.WriteFile(path, []byte("P1,100,200,note1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Open(path, config.InputConfig{Delimiter: ","})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pts := drain(s)
	if len(pts) != 1 {
		t.Fatalf("got %d points", len(pts))
	}
	want := types.InputPoint{Name: "P1", Y: 100, X: 200, Note: "note1", Row: 1}
	if pts[0] != want {
		t.Fatalf("point = %+v, want %+v", pts[0], want)
	}
}

func TestOpen_MissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "none.csv"), config.InputConfig{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestOpen_XLSXRowWithoutNote(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	row := []interface{}{"P1", 6690000, 3385000}
	if err := f.SetSheetRow("Sheet1", "A1", &row); err != nil {
		t.Fatalf("SetSheetRow: %v", err)
	}
	path := filepath.Join(t.TempDir(), "points.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}

	s, err := Open(path, config.InputConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	pts := drain(s)
	if err := s.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	want := types.InputPoint{Name: "P1", Y: 6690000, X: 3385000, Row: 1}
	if len(pts) != 1 || pts[0] != want {
		t.Fatalf("points = %+v, want [%+v]", pts, want)
	}
}
