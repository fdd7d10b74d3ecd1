package city

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/grid"
)

func defaultCity(t *testing.T) *City {
	t.Helper()
	c, err := FromScenario(engine.DefaultScenarioConfig())
	require.NoError(t, err)
	return c
}

func TestNew_DefaultLayout(t *testing.T) {
	c := defaultCity(t)

	// 3x3 blocks with 3x2 lots each
	assert.Equal(t, 54, c.Len())

	first, ok := c.HouseByID(1)
	require.True(t, ok)
	assert.Equal(t, 0, first.BlockX)
	assert.Equal(t, 0, first.BlockY)

	last, ok := c.HouseByID(54)
	require.True(t, ok)
	assert.Equal(t, 2, last.BlockX)
	assert.Equal(t, 2, last.BlockY)

	// second lot row of the first block row comes after the first full row of lots
	h10, ok := c.HouseByID(10)
	require.True(t, ok)
	assert.Equal(t, 0, h10.BlockX)
	assert.Equal(t, 0, h10.BlockY)
	assert.Greater(t, h10.Body.Y, first.Body.Y)
}

func TestNew_LocationIsBottomCentre(t *testing.T) {
	c := defaultCity(t)

	for _, h := range c.Houses() {
		assert.InDelta(t, h.Body.X+h.Body.Width/2, h.Location.X, 1e-9)
		assert.InDelta(t, h.Body.Y+h.Body.Height, h.Location.Y, 1e-9)
	}

	first, _ := c.HouseByID(1)
	// lot (122, 122) + padding 4, lot width 52 - 8 = 44, centred
	assert.InDelta(t, 148.0, first.Location.X, 1e-9)
}

func TestNew_HousesStayInsideBlocks(t *testing.T) {
	c := defaultCity(t)
	g := engine.DefaultScenarioConfig().Grid

	for _, h := range c.Houses() {
		minX := g.Origin.X + float64(h.BlockX)*g.BlockSize
		minY := g.Origin.Y + float64(h.BlockY)*g.BlockSize
		assert.Greater(t, h.Body.X, minX, "house %d", h.ID)
		assert.Greater(t, h.Body.Y, minY, "house %d", h.ID)
		assert.Less(t, h.Body.X+h.Body.Width, minX+g.BlockSize, "house %d", h.ID)
		assert.Less(t, h.Body.Y+h.Body.Height, minY+g.BlockSize, "house %d", h.ID)
	}
}

func TestResolve(t *testing.T) {
	c := defaultCity(t)

	loc, err := c.Resolve(7)
	require.NoError(t, err)
	h, _ := c.HouseByID(7)
	assert.Equal(t, h.Location, loc)

	_, err = c.Resolve(999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocationNotFound))

	_, err = c.Resolve(0)
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestHouseAt(t *testing.T) {
	c := defaultCity(t)
	h, _ := c.HouseByID(20)

	centre := grid.Point{X: h.Body.X + h.Body.Width/2, Y: h.Body.Y + h.Body.Height/2}
	found, ok := c.HouseAt(centre)
	require.True(t, ok)
	assert.Equal(t, 20, found.ID)

	_, ok = c.HouseAt(grid.Point{X: 100, Y: 100})
	assert.False(t, ok, "intersections are road, not houses")
}

func TestActiveHouses(t *testing.T) {
	c := defaultCity(t)

	fleet := []engine.VehicleSnapshot{
		{ID: 1, Status: engine.StatusToScene, AssignedEmergencyID: 4, AssignedLocationID: 12},
		{ID: 2, Status: engine.StatusOnScene, AssignedEmergencyID: 5, AssignedLocationID: 3},
		{ID: 3, Status: engine.StatusReturning, AssignedEmergencyID: engine.NoAssignment, AssignedLocationID: engine.NoAssignment},
		{ID: 4, Status: engine.StatusIdle, AssignedEmergencyID: engine.NoAssignment, AssignedLocationID: engine.NoAssignment},
	}

	assert.Equal(t, []int{3, 12}, c.ActiveHouses(fleet))
	assert.Empty(t, c.ActiveHouses(nil))
}

func TestNew_InvalidLayout(t *testing.T) {
	g := grid.Grid{BlockSize: 100, BlocksX: 1, BlocksY: 1}

	_, err := New(g, engine.CityLayout{LotsX: 0, LotsY: 1})
	assert.Error(t, err)

	_, err = New(g, engine.CityLayout{LotsX: 2, LotsY: 2, RoadWidth: 90, LotPadding: 10})
	assert.Error(t, err)
}
