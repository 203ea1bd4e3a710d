// =============================================================================
// ykj-wgs - Shared Types
// =============================================================================
//
// This package contains the data model shared by the readers, the transform
// client, the track grouper and the writers. Keeping it in one leaf package
// avoids import cycles between them.
//
// =============================================================================

package types

import (
	"strconv"
	"strings"
)

// =============================================================================
// INPUT AND TRANSFORMED POINTS
// =============================================================================

// InputPoint is one data row of the input file.
//
// The column mapping follows the source files: column 2 is Y (northing) and
// column 3 is X (easting). Y is sent to the coordinate service as "lat" and
// X as "lon".
type InputPoint struct {
	// Name identifies the track the point belongs to. Contiguous rows with
	// the same name form one track.
	Name string

	// Y is the grid northing.
	Y float64

	// X is the grid easting.
	X float64

	// Note is free text appended to the waypoint label.
	Note string

	// Row is the 1-based row number in the source file.
	Row int
}

// TransformedPoint is a geodetic coordinate returned by the coordinate service.
type TransformedPoint struct {
	Lat float64
	Lon float64
}

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// TrackSegment is a run of contiguous same-named points.
type TrackSegment struct {
	Name   string
	Points []TransformedPoint
}

// Waypoint is a single labeled point. One waypoint is created per input row.
type Waypoint struct {
	// Label is the point name and note joined by a space.
	Label string
	Lat   float64
	Lon   float64
}

// Document is the aggregate written to the exchange file: all tracks first,
// then all waypoints.
type Document struct {
	Tracks    []TrackSegment
	Waypoints []Waypoint
}

// PointCount returns the total number of track points in the document.
func (d Document) PointCount() int {
	n := 0
	for _, t := range d.Tracks {
		n += len(t.Points)
	}
	return n
}

// WaypointLabel composes the waypoint label for a point name and note.
func WaypointLabel(name, note string) string {
	if note == "" {
		return name
	}
	return name + " " + note
}

// FormatCoordinate renders a coordinate with the shortest representation that
// round-trips, always keeping at least one decimal ("60.0", not "60").
func FormatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
