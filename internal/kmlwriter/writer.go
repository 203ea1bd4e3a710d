// Package kmlwriter renders a Document as KML: one LineString placemark per
// track followed by one Point placemark per waypoint, in document order.
package kmlwriter

import (
	"bytes"
	"fmt"
	"io"

	"github.com/twpayne/go-kml"

	"github.com/razz0/ykj-wgs/internal/types"
)

// Write renders doc to w. name becomes the KML document name.
func Write(w io.Writer, name string, doc types.Document) error {
	children := []kml.Element{kml.Name(name)}

	for _, t := range doc.Tracks {
		coords := make([]kml.Coordinate, 0, len(t.Points))
		for _, p := range t.Points {
			coords = append(coords, kml.Coordinate{Lon: p.Lon, Lat: p.Lat})
		}
		children = append(children, kml.Placemark(
			kml.Name(t.Name),
			kml.LineString(
				kml.Tessellate(true),
				kml.Coordinates(coords...),
			),
		))
	}

	for _, wp := range doc.Waypoints {
		children = append(children, kml.Placemark(
			kml.Name(wp.Label),
			kml.Point(kml.Coordinates(kml.Coordinate{Lon: wp.Lon, Lat: wp.Lat})),
		))
	}

	if err := kml.KML(kml.Document(children...)).WriteIndent(w, "", "  "); err != nil {
		return fmt.Errorf("failed to write KML: %w", err)
	}
	return nil
}

// Generate renders doc into a byte slice.
func Generate(name string, doc types.Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, name, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
