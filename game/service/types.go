package service

import (
	"time"

	"github.com/wricardo/ambulance-fleet/game/city"
	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// SimulationInfo provides information about a simulation
type SimulationInfo struct {
	ID             string        `json:"id"`
	ScenarioID     string        `json:"scenario_id"`
	ScenarioName   string        `json:"scenario_name"`
	Running        bool          `json:"running"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	Grid           grid.Grid     `json:"grid"`
	HouseCount     int           `json:"house_count"`
	State          *engine.State `json:"state"`
}

// SubmitResult describes an accepted emergency
type SubmitResult struct {
	EmergencyID  int        `json:"emergency_id"`
	Priority     int        `json:"priority"`
	Severity     string     `json:"severity"`
	HouseID      int        `json:"house_id"`
	Location     grid.Point `json:"location"`
	PendingCount int        `json:"pending_count"`
	Message      string     `json:"message"`
}

// TickResult contains the outcome of a single tick
type TickResult struct {
	Elapsed float64        `json:"elapsed"`
	Clock   float64        `json:"clock"`
	Events  []engine.Event `json:"events"`
	State   *engine.State  `json:"state"`
}

// AdvanceResult contains the outcome of a multi-step advance
type AdvanceResult struct {
	Seconds float64        `json:"seconds"`
	Step    float64        `json:"step"`
	Ticks   int            `json:"ticks"`
	Clock   float64        `json:"clock"`
	Events  []engine.Event `json:"events"`
	State   *engine.State  `json:"state"`
}

// FrameResult is what one frame of the clock produced for one simulation
type FrameResult struct {
	SimulationID string         `json:"simulation_id"`
	Events       []engine.Event `json:"events"`
	State        *engine.State  `json:"state"`
}

// QueueResponse describes the pending queue in dispatch order
type QueueResponse struct {
	Pending    []engine.Emergency `json:"pending"`
	Count      int                `json:"count"`
	OldestWait float64            `json:"oldest_wait"`
	ByPriority map[int]int        `json:"by_priority"`
}

// FleetResponse describes every vehicle
type FleetResponse struct {
	Fleet       []engine.VehicleSnapshot `json:"fleet"`
	Counts      engine.StatusCounts      `json:"counts"`
	Utilization float64                  `json:"utilization"`
}

// HouseInfo describes one house a caller can report an emergency at
type HouseInfo struct {
	ID       int        `json:"id"`
	Location grid.Point `json:"location"`
	Body     city.Rect  `json:"body"`
	Active   bool       `json:"active"`
}

// ScenarioInfo provides information about a scenario file
type ScenarioInfo struct {
	Filename       string  `json:"filename"`
	ScenarioID     string  `json:"scenario_id"` // The identifier to use for simulation creation
	Name           string  `json:"name"`        // Display name
	Description    string  `json:"description"`
	BlocksX        int     `json:"blocks_x"`
	BlocksY        int     `json:"blocks_y"`
	BlockSize      float64 `json:"block_size"`
	FleetSize      int     `json:"fleet_size"`
	OnSceneSeconds float64 `json:"on_scene_seconds"`
}
