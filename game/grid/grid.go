package grid

import (
	"fmt"
	"math"
)

// Point is a position in world space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// String renders the point as "(x, y)"
func (p Point) String() string {
	return fmt.Sprintf("(%.1f, %.1f)", p.X, p.Y)
}

// Add returns p translated by (dx, dy)
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Distance returns the Euclidean distance between two points
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Grid describes the street lattice
type Grid struct {
	Origin    Point   `json:"origin"`
	BlockSize float64 `json:"block_size"`
	BlocksX   int     `json:"blocks_x"`
	BlocksY   int     `json:"blocks_y"`
}

// Validate checks that the lattice has a positive block size and at least one block per axis
func (g Grid) Validate() error {
	if g.BlockSize <= 0 || math.IsNaN(g.BlockSize) || math.IsInf(g.BlockSize, 0) {
		return fmt.Errorf("grid: block_size must be positive, got %v", g.BlockSize)
	}
	if g.BlocksX < 1 || g.BlocksY < 1 {
		return fmt.Errorf("grid: blocks_x and blocks_y must be at least 1, got %d x %d", g.BlocksX, g.BlocksY)
	}
	return nil
}

// Width returns the horizontal extent of the lattice
func (g Grid) Width() float64 {
	return float64(g.BlocksX) * g.BlockSize
}

// Height returns the vertical extent of the lattice
func (g Grid) Height() float64 {
	return float64(g.BlocksY) * g.BlockSize
}

// Intersection returns the lattice point at column i, row j
func (g Grid) Intersection(i, j int) Point {
	return Point{
		X: g.Origin.X + float64(i)*g.BlockSize,
		Y: g.Origin.Y + float64(j)*g.BlockSize,
	}
}

// Intersections returns every lattice point in row-major order
func (g Grid) Intersections() []Point {
	points := make([]Point, 0, (g.BlocksX+1)*(g.BlocksY+1))
	for j := 0; j <= g.BlocksY; j++ {
		for i := 0; i <= g.BlocksX; i++ {
			points = append(points, g.Intersection(i, j))
		}
	}
	return points
}

// NearestIntersection returns the lattice point closest to p.
// Ties resolve to the first candidate in row-major order.
func (g Grid) NearestIntersection(p Point) Point {
	best := g.Origin
	bestDist := math.Inf(1)

	for j := 0; j <= g.BlocksY; j++ {
		for i := 0; i <= g.BlocksX; i++ {
			candidate := g.Intersection(i, j)
			if d := Distance(p, candidate); d < bestDist {
				best = candidate
				bestDist = d
			}
		}
	}

	return best
}

// IsIntersection reports whether p lies on a lattice point within tolerance
func (g Grid) IsIntersection(p Point, tolerance float64) bool {
	return Distance(p, g.NearestIntersection(p)) <= tolerance
}
