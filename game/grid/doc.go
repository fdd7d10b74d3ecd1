// Package grid models the rectangular street lattice the fleet drives on.
//
// A Grid is defined by an origin, a uniform block size and the number of
// blocks along each axis. Intersections sit at
// (origin.X + i*blockSize, origin.Y + j*blockSize) for i in [0, BlocksX]
// and j in [0, BlocksY]. PlanRoute turns two arbitrary world points into a
// staircase route that only travels along lattice lines.
//
// Usage:
//
//	g := grid.Grid{Origin: grid.Point{X: 100, Y: 100}, BlockSize: 200, BlocksX: 3, BlocksY: 3}
//	route := g.PlanRoute(grid.Point{X: 444, Y: 30}, grid.Point{X: 180, Y: 560})
//	fmt.Println(route.Length())
package grid
