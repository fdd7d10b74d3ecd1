package service

import (
	"context"
	"time"

	"github.com/wricardo/ambulance-fleet/game/city"
	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/intake"
)

// DispatchService defines all simulation operations exposed to transports
type DispatchService interface {
	// Simulation management
	CreateSimulation(ctx context.Context, scenarioName string) (*SimulationInfo, error)
	GetSimulation(ctx context.Context, simulationID string) (*SimulationInfo, error)
	ListSimulations(ctx context.Context) ([]*SimulationInfo, error)
	DeleteSimulation(ctx context.Context, simulationID string) error

	// Intake
	SubmitEmergency(ctx context.Context, simulationID string, form intake.Form) (*SubmitResult, error)

	// Clock
	Tick(ctx context.Context, simulationID string, elapsed float64) (*TickResult, error)
	Advance(ctx context.Context, simulationID string, seconds, step float64) (*AdvanceResult, error)
	TickRunning(ctx context.Context, elapsed float64) ([]*FrameResult, error)
	SetRunning(ctx context.Context, simulationID string, running bool) (*SimulationInfo, error)

	// Queries
	GetState(ctx context.Context, simulationID string) (*engine.State, error)
	GetQueue(ctx context.Context, simulationID string) (*QueueResponse, error)
	GetFleet(ctx context.Context, simulationID string) (*FleetResponse, error)
	GetActivity(ctx context.Context, simulationID string, limit int) ([]engine.Event, error)
	ListHouses(ctx context.Context, simulationID string) ([]*HouseInfo, error)

	// Scenarios
	ListScenarios(ctx context.Context) ([]*ScenarioInfo, error)
	LoadScenario(ctx context.Context, name string) (*engine.ScenarioConfig, error)
	SaveScenario(ctx context.Context, name string, scenario *engine.ScenarioConfig) error
}

// SimulationManager defines simulation storage operations
type SimulationManager interface {
	Create(id, scenarioID string, scenario *engine.ScenarioConfig) (*Simulation, error)
	Get(id string) (*Simulation, error)
	List() []*Simulation
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// ScenarioStore handles scenario loading
type ScenarioStore interface {
	LoadScenario(name string) (*engine.ScenarioConfig, error)
	ListScenarios() ([]*ScenarioInfo, error)
	GetDefault() *engine.ScenarioConfig
	SaveScenario(name string, scenario *engine.ScenarioConfig) error
}

// Simulation is one running dispatch world
type Simulation struct {
	ID             string
	ScenarioID     string
	Scenario       *engine.ScenarioConfig
	Hospital       *engine.Hospital
	City           *city.City
	Running        bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
