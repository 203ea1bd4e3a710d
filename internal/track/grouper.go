// Package track folds the ordered stream of transformed points into tracks
// and waypoints. Consecutive rows with the same name form one track; a name
// that reappears later starts a new track.
package track

import "github.com/razz0/ykj-wgs/internal/types"

// Row is one input point together with its transformed coordinate.
type Row struct {
	Point       types.InputPoint
	Transformed types.TransformedPoint
}

// Grouper accumulates rows in arrival order.
type Grouper struct {
	tracks    []types.TrackSegment
	waypoints []types.Waypoint
	open      *types.TrackSegment
}

// New returns an empty Grouper.
func New() *Grouper {
	return &Grouper{}
}

// Add appends one row: a point on the current track (opening a new one when
// the name changes) and a waypoint.
func (g *Grouper) Add(p types.InputPoint, t types.TransformedPoint) {
	if g.open == nil || g.open.Name != p.Name {
		g.flush()
		g.open = &types.TrackSegment{Name: p.Name}
	}
	g.open.Points = append(g.open.Points, t)

	g.waypoints = append(g.waypoints, types.Waypoint{
		Label: types.WaypointLabel(p.Name, p.Note),
		Lat:   t.Lat,
		Lon:   t.Lon,
	})
}

// Document returns the tracks and waypoints added so far, including the
// open track. It may be called more than once.
func (g *Grouper) Document() types.Document {
	doc := types.Document{
		Tracks:    append([]types.TrackSegment(nil), g.tracks...),
		Waypoints: append([]types.Waypoint(nil), g.waypoints...),
	}
	if g.open != nil && len(g.open.Points) > 0 {
		doc.Tracks = append(doc.Tracks, types.TrackSegment{
			Name:   g.open.Name,
			Points: append([]types.TransformedPoint(nil), g.open.Points...),
		})
	}
	return doc
}

// Len returns the number of rows added.
func (g *Grouper) Len() int {
	return len(g.waypoints)
}

func (g *Grouper) flush() {
	if g.open != nil && len(g.open.Points) > 0 {
		g.tracks = append(g.tracks, *g.open)
	}
	g.open = nil
}

// Fold groups rows in one pass.
func Fold(rows []Row) types.Document {
	g := New()
	for _, r := range rows {
		g.Add(r.Point, r.Transformed)
	}
	return g.Document()
}
