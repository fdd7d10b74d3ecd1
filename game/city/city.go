// Package city lays out numbered houses on the blocks between the roads.
// House ids are what callers type when reporting an emergency; each house
// resolves to the world point at the bottom centre of its footprint.
package city

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// ErrLocationNotFound is returned when a house id does not exist
var ErrLocationNotFound = errors.New("house not found")

// houseLift shifts the footprint slightly down inside its lot
const houseLift = 0.08

// Rect is an axis aligned rectangle
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside the rectangle
func (r Rect) Contains(p grid.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// House is a numbered lot
type House struct {
	ID       int        `json:"id"`
	Body     Rect       `json:"body"`
	Location grid.Point `json:"location"`
	BlockX   int        `json:"block_x"`
	BlockY   int        `json:"block_y"`
}

// City holds every house of a scenario
type City struct {
	houses []House
	byID   map[int]int
}

// New builds the city for a grid and layout
func New(g grid.Grid, layout engine.CityLayout) (*City, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if layout.LotsX < 1 || layout.LotsY < 1 {
		return nil, fmt.Errorf("city: lots must be at least 1x1, got %dx%d", layout.LotsX, layout.LotsY)
	}

	usable := g.BlockSize - layout.RoadWidth
	lotW := usable / float64(layout.LotsX)
	lotH := usable / float64(layout.LotsY)
	w := lotW - layout.LotPadding
	h := lotH - layout.LotPadding
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("city: road width %v and padding %v leave no room for houses", layout.RoadWidth, layout.LotPadding)
	}

	widthRatio := layout.HouseWidthRatio
	if widthRatio <= 0 || widthRatio > 1 {
		widthRatio = 1
	}
	heightRatio := layout.HouseHeightRatio
	if heightRatio <= 0 || heightRatio > 1 {
		heightRatio = 1
	}
	vw, vh := w*widthRatio, h*heightRatio

	c := &City{byID: make(map[int]int)}
	id := 1
	for py := 0; py < g.BlocksY*layout.LotsY; py++ {
		for px := 0; px < g.BlocksX*layout.LotsX; px++ {
			by, ly := py/layout.LotsY, py%layout.LotsY
			bx, lx := px/layout.LotsX, px%layout.LotsX

			blockX := g.Origin.X + float64(bx)*g.BlockSize + layout.RoadWidth/2
			blockY := g.Origin.Y + float64(by)*g.BlockSize + layout.RoadWidth/2
			x := blockX + float64(lx)*lotW + layout.LotPadding/2
			y := blockY + float64(ly)*lotH + layout.LotPadding/2

			body := Rect{
				X:      x + (w-vw)/2,
				Y:      y + (h-vh)/2 + vh*houseLift,
				Width:  vw,
				Height: vh,
			}
			c.byID[id] = len(c.houses)
			c.houses = append(c.houses, House{
				ID:       id,
				Body:     body,
				Location: grid.Point{X: body.X + body.Width/2, Y: body.Y + body.Height},
				BlockX:   bx,
				BlockY:   by,
			})
			id++
		}
	}

	return c, nil
}

// FromScenario builds the city described by a scenario
func FromScenario(s *engine.ScenarioConfig) (*City, error) {
	return New(s.Grid, s.City)
}

// Len returns the number of houses
func (c *City) Len() int {
	return len(c.houses)
}

// Houses returns a copy of every house in id order
func (c *City) Houses() []House {
	out := make([]House, len(c.houses))
	copy(out, c.houses)
	return out
}

// HouseByID looks up a house
func (c *City) HouseByID(id int) (House, bool) {
	i, ok := c.byID[id]
	if !ok {
		return House{}, false
	}
	return c.houses[i], true
}

// Resolve returns the emergency location for a house id
func (c *City) Resolve(id int) (grid.Point, error) {
	house, ok := c.HouseByID(id)
	if !ok {
		return grid.Point{}, fmt.Errorf("house #%d: %w", id, ErrLocationNotFound)
	}
	return house.Location, nil
}

// HouseAt returns the house whose footprint contains p
func (c *City) HouseAt(p grid.Point) (House, bool) {
	for _, h := range c.houses {
		if h.Body.Contains(p) {
			return h, true
		}
	}
	return House{}, false
}

// ActiveHouses returns the ids of houses with a vehicle en route or on scene, ascending
func (c *City) ActiveHouses(fleet []engine.VehicleSnapshot) []int {
	var ids []int
	for id := range engine.ActiveLocations(fleet) {
		if _, ok := c.byID[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}
