package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/razz0/ykj-wgs/internal/types"
)

func TestPoint_LineAndBlankSeparator(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.Point(types.InputPoint{Name: "P1", Note: "note1"}, types.TransformedPoint{Lat: 60, Lon: 25})
	r.Point(types.InputPoint{Name: "P2", Note: "note2"}, types.TransformedPoint{Lat: 60.123456, Lon: 24.5})

	want := "P1 - note1: lat 60.0, lon 25.0\n\nP2 - note2: lat 60.123456, lon 24.5\n\n"
	if buf.String() != want {
		t.Fatalf("report:\n%q\nwant\n%q", buf.String(), want)
	}
	for _, s := range []string{"P1", "note1", "60.0", "25.0"} {
		if !strings.Contains(buf.String(), s) {
			t.Fatalf("report lacks %q", s)
		}
	}
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Summary(Summary{
		Input:     "points.csv",
		Outputs:   []string{"points.csv.gpx", "points.csv.kml"},
		ErrorLog:  "points.csv.errors.txt",
		Rows:      6,
		Skipped:   1,
		Tracks:    3,
		Waypoints: 6,
		Retries:   2,
		Elapsed:   1500 * time.Millisecond,
	})
	out := buf.String()
	for _, s := range []string{
		"=== Conversion Summary ===",
		"Output:     points.csv.gpx",
		"Output:     points.csv.kml",
		"Skipped:    1 (see points.csv.errors.txt)",
		"Tracks:     3",
		"Elapsed:    1.5s",
	} {
		if !strings.Contains(out, s) {
			t.Fatalf("summary lacks %q:\n%s", s, out)
		}
	}
}

type failingWriter struct{ n int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.n++
	return 0, errors.New("disk full")
}

func TestReporter_KeepsFirstError(t *testing.T) {
	w := &failingWriter{}
	r := New(w)
	r.Point(types.InputPoint{Name: "A"}, types.TransformedPoint{})
	r.Point(types.InputPoint{Name: "B"}, types.TransformedPoint{})

	if r.Err() == nil || !strings.Contains(r.Err().Error(), "disk full") {
		t.Fatalf("Err = %v", r.Err())
	}
	if w.n != 1 {
		t.Fatalf("writes after error: %d", w.n)
	}
}
