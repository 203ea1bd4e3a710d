// =============================================================================
// ykj-wgs - Progress Report
// =============================================================================
//
// This module writes the human-readable report. One line per converted row
// is written as soon as the row completes:
//
//   P1 - note1: lat 60.0, lon 25.0
//   <blank line>
//
// At the end of a run a summary block is written.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"time"

	"github.com/razz0/ykj-wgs/internal/types"
)

// Reporter writes report lines to an io.Writer. The first write error is
// kept and returned by Err; later writes are dropped.
type Reporter struct {
	w   io.Writer
	err error
}

// New creates a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Point writes the line for one converted row followed by a blank line.
func (r *Reporter) Point(p types.InputPoint, t types.TransformedPoint) {
	r.printf("%s - %s: lat %s, lon %s\n\n",
		p.Name, p.Note, types.FormatCoordinate(t.Lat), types.FormatCoordinate(t.Lon))
}

// Summary describes a finished run.
type Summary struct {
	Input     string
	Outputs   []string
	ErrorLog  string
	Rows      int
	Skipped   int
	Tracks    int
	Waypoints int
	Retries   int
	Elapsed   time.Duration
}

// Summary writes the end-of-run block.
func (r *Reporter) Summary(s Summary) {
	r.printf("=== Conversion Summary ===\n")
	r.printf("Input:      %s\n", s.Input)
	for _, out := range s.Outputs {
		r.printf("Output:     %s\n", out)
	}
	r.printf("Rows:       %d\n", s.Rows)
	if s.Skipped > 0 {
		r.printf("Skipped:    %d (see %s)\n", s.Skipped, s.ErrorLog)
	}
	r.printf("Tracks:     %d\n", s.Tracks)
	r.printf("Waypoints:  %d\n", s.Waypoints)
	r.printf("Retries:    %d\n", s.Retries)
	r.printf("Elapsed:    %s\n", s.Elapsed.Round(time.Millisecond))
	r.printf("==========================\n")
}

// Err returns the first write error.
func (r *Reporter) Err() error {
	return r.err
}

func (r *Reporter) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	if _, err := fmt.Fprintf(r.w, format, args...); err != nil {
		r.err = fmt.Errorf("failed to write report: %w", err)
	}
}
