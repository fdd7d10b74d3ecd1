package grid

import "math"

// snapTolerance is the per-axis distance under which two lattice points are treated as equal
const snapTolerance = 1.0

// PlanRoute builds a drivable route from start to end.
//
// Both endpoints are snapped to their nearest intersection. The route then
// walks one block at a time from the snapped start toward the snapped end,
// correcting the horizontal axis first. The returned route always begins
// with the literal start and ends with the literal end. When both endpoints
// snap to the same intersection the route is just [start, end].
func (g Grid) PlanRoute(start, end Point) Route {
	s := g.NearestIntersection(start)
	e := g.NearestIntersection(end)

	route := Route{start}
	if sameLatticePoint(s, e) {
		return append(route, end)
	}

	if s != start {
		route = append(route, s)
	}

	cur := s
	for steps := 0; steps < g.BlocksX+g.BlocksY && !sameLatticePoint(cur, e); steps++ {
		if math.Abs(cur.X-e.X) > snapTolerance {
			cur.X += stepToward(cur.X, e.X, g.BlockSize)
		} else {
			cur.Y += stepToward(cur.Y, e.Y, g.BlockSize)
		}
		route = append(route, cur)
	}

	return append(route, end)
}

func sameLatticePoint(a, b Point) bool {
	return math.Abs(a.X-b.X) <= snapTolerance && math.Abs(a.Y-b.Y) <= snapTolerance
}

func stepToward(from, to, blockSize float64) float64 {
	if from < to {
		return blockSize
	}
	return -blockSize
}
