package xmlwriter

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/razz0/ykj-wgs/internal/types"
)

type gpxFile struct {
	XMLName   xml.Name `xml:"gpx"`
	Version   string   `xml:"version,attr"`
	Creator   string   `xml:"creator,attr"`
	Tracks    []gpxTrk `xml:"trk"`
	Waypoints []gpxWpt `xml:"wpt"`
}

type gpxTrk struct {
	Name     string      `xml:"name"`
	Segments []gpxTrkSeg `xml:"trkseg"`
}

type gpxTrkSeg struct {
	Points []gpxPt `xml:"trkpt"`
}

type gpxPt struct {
	Lat string `xml:"lat,attr"`
	Lon string `xml:"lon,attr"`
}

type gpxWpt struct {
	Lat  string `xml:"lat,attr"`
	Lon  string `xml:"lon,attr"`
	Name string `xml:"name"`
}

// Parse reads a GPX document written by Generate back into a Document.
// Multiple segments of one track are merged.
func Parse(data []byte) (types.Document, error) {
	var f gpxFile
	if err := xml.Unmarshal(data, &f); err != nil {
		return types.Document{}, fmt.Errorf("failed to parse GPX: %w", err)
	}
	if f.XMLName.Space != Namespace {
		return types.Document{}, fmt.Errorf("unexpected GPX namespace %q", f.XMLName.Space)
	}

	var doc types.Document
	for _, t := range f.Tracks {
		seg := types.TrackSegment{Name: t.Name}
		for _, s := range t.Segments {
			for _, p := range s.Points {
				lat, lon, err := parseLatLon(p.Lat, p.Lon)
				if err != nil {
					return types.Document{}, fmt.Errorf("track %q: %w", t.Name, err)
				}
				seg.Points = append(seg.Points, types.TransformedPoint{Lat: lat, Lon: lon})
			}
		}
		doc.Tracks = append(doc.Tracks, seg)
	}
	for _, w := range f.Waypoints {
		lat, lon, err := parseLatLon(w.Lat, w.Lon)
		if err != nil {
			return types.Document{}, fmt.Errorf("waypoint %q: %w", w.Name, err)
		}
		doc.Waypoints = append(doc.Waypoints, types.Waypoint{Label: w.Name, Lat: lat, Lon: lon})
	}
	return doc, nil
}

func parseLatLon(latText, lonText string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latText, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lat %q", latText)
	}
	lon, err := strconv.ParseFloat(lonText, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lon %q", lonText)
	}
	return lat, lon, nil
}
