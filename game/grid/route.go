package grid

import (
	geom "github.com/peterstace/simplefeatures/geom"
)

// Route is an ordered sequence of waypoints
type Route []Point

// Clone returns an independent copy of the route
func (r Route) Clone() Route {
	if r == nil {
		return nil
	}
	out := make(Route, len(r))
	copy(out, r)
	return out
}

// Last returns the final waypoint, or false for an empty route
func (r Route) Last() (Point, bool) {
	if len(r) == 0 {
		return Point{}, false
	}
	return r[len(r)-1], true
}

// LineString converts the route into a geometry line string.
// Routes with fewer than two distinct waypoints yield an empty line string.
func (r Route) LineString() geom.LineString {
	if len(r) < 2 {
		return geom.LineString{}
	}

	flatCoords := make([]float64, 0, len(r)*2)
	for _, p := range r {
		flatCoords = append(flatCoords, p.X, p.Y)
	}

	seq := geom.NewSequence(flatCoords, geom.DimXY)
	ls, err := geom.NewLineString(seq)
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// Length returns the total travel distance along the route
func (r Route) Length() float64 {
	if len(r) < 2 {
		return 0
	}
	return r.LineString().Length()
}

// RemainingLength returns the distance left when standing at pos heading to waypoint index
func (r Route) RemainingLength(pos Point, index int) float64 {
	if index >= len(r) {
		return 0
	}
	if index < 0 {
		index = 0
	}
	return Distance(pos, r[index]) + r[index:].Length()
}

// WKT renders the route as well-known text
func (r Route) WKT() string {
	if len(r) < 2 {
		return ""
	}
	return r.LineString().AsText()
}
