package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/intake"
)

var (
	ErrSimulationNotFound = errors.New("simulation not found")
	ErrInvalidElapsed     = errors.New("elapsed must be a finite, non-negative number of seconds")
	ErrInvalidStep        = errors.New("step must be a finite, positive number of seconds")
)

const (
	// DefaultAdvanceStep is the tick length Advance uses when none is given
	DefaultAdvanceStep = 0.1
	// MaxAdvanceTicks bounds the work a single Advance call may do
	MaxAdvanceTicks = 100000
)

// dispatchServiceImpl implements DispatchService. Every engine access goes
// through mu, so a tick never interleaves with intake or a query.
type dispatchServiceImpl struct {
	simulations SimulationManager
	scenarios   ScenarioStore
	logger      zerolog.Logger
	metrics     *dispatchMetrics
	mu          sync.Mutex
}

// NewDispatchService creates a new dispatch service instance
func NewDispatchService(simulations SimulationManager, scenarios ScenarioStore, logger zerolog.Logger) DispatchService {
	s := &dispatchServiceImpl{
		simulations: simulations,
		scenarios:   scenarios,
		logger:      logger.With().Str("component", "dispatch").Logger(),
	}

	m, err := newDispatchMetrics(meter(), s.pendingCounts)
	if err != nil {
		s.logger.Warn().Err(err).Msg("metrics disabled")
		m = noopMetrics()
	}
	s.metrics = m

	return s
}

// scenarioID returns the scenario_id for a display name, used for consistent API responses
func (s *dispatchServiceImpl) scenarioID(name string) string {
	available, err := s.scenarios.ListScenarios()
	if err == nil {
		for _, info := range available {
			if info.Name == name {
				return info.ScenarioID
			}
		}
	}
	return "default"
}

func (s *dispatchServiceImpl) lookup(simulationID string) (*Simulation, error) {
	sim, err := s.simulations.Get(simulationID)
	if err != nil {
		return nil, fmt.Errorf("simulation %q: %w", simulationID, err)
	}
	return sim, nil
}

func (s *dispatchServiceImpl) touch(simulationID string) {
	if err := s.simulations.UpdateLastAccessed(simulationID); err != nil {
		s.logger.Debug().Err(err).Str("simulation", simulationID).Msg("failed to update last access")
	}
}

func infoFor(sim *Simulation) *SimulationInfo {
	state := sim.Hospital.State()
	return &SimulationInfo{
		ID:             sim.ID,
		ScenarioID:     sim.ScenarioID,
		ScenarioName:   sim.Scenario.Name,
		Running:        sim.Running,
		CreatedAt:      sim.CreatedAt,
		LastAccessedAt: sim.LastAccessedAt,
		Grid:           sim.Hospital.Grid(),
		HouseCount:     sim.City.Len(),
		State:          &state,
	}
}

// CreateSimulation creates a simulation from a named scenario, or the default one
func (s *dispatchServiceImpl) CreateSimulation(ctx context.Context, scenarioName string) (*SimulationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scenarioName = strings.TrimSpace(scenarioName)

	var scenario *engine.ScenarioConfig
	scenarioID := scenarioName
	if scenarioName != "" {
		var err error
		scenario, err = s.scenarios.LoadScenario(scenarioName)
		if err != nil {
			return nil, s.scenarioError(scenarioName, err)
		}
	} else {
		scenario = s.scenarios.GetDefault()
		if scenario == nil {
			scenario = engine.DefaultScenarioConfig()
		}
		scenarioID = s.scenarioID(scenario.Name)
	}

	// Let the simulation manager generate the ID
	sim, err := s.simulations.Create("", scenarioID, scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to create simulation: %w", err)
	}

	s.logger.Info().
		Str("simulation", sim.ID).
		Str("scenario", scenarioID).
		Int("fleet", sim.Hospital.FleetSize()).
		Int("houses", sim.City.Len()).
		Msg("simulation created")

	return infoFor(sim), nil
}

// scenarioError adds the available scenario ids to a load failure
func (s *dispatchServiceImpl) scenarioError(name string, err error) error {
	available, listErr := s.scenarios.ListScenarios()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("scenario '%s': %w", name, err)
	}
	ids := make([]string, 0, len(available))
	for _, info := range available {
		ids = append(ids, info.ScenarioID)
	}
	return fmt.Errorf("scenario '%s' (available: %s): %w", name, strings.Join(ids, ", "), err)
}

// GetSimulation retrieves simulation information
func (s *dispatchServiceImpl) GetSimulation(ctx context.Context, simulationID string) (*SimulationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	return infoFor(sim), nil
}

// ListSimulations returns every simulation ordered by creation time
func (s *dispatchServiceImpl) ListSimulations(ctx context.Context) ([]*SimulationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sims := s.simulations.List()
	sortSimulations(sims)

	result := make([]*SimulationInfo, 0, len(sims))
	for _, sim := range sims {
		result = append(result, infoFor(sim))
	}
	return result, nil
}

func sortSimulations(sims []*Simulation) {
	sort.Slice(sims, func(i, j int) bool {
		if !sims[i].CreatedAt.Equal(sims[j].CreatedAt) {
			return sims[i].CreatedAt.Before(sims[j].CreatedAt)
		}
		return sims[i].ID < sims[j].ID
	})
}

// DeleteSimulation removes a simulation
func (s *dispatchServiceImpl) DeleteSimulation(ctx context.Context, simulationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.simulations.Delete(simulationID); err != nil {
		return fmt.Errorf("simulation %q: %w", simulationID, err)
	}
	s.logger.Info().Str("simulation", simulationID).Msg("simulation deleted")
	return nil
}

// SubmitEmergency validates an intake form and enqueues the emergency.
// A rejected form never reaches the engine.
func (s *dispatchServiceImpl) SubmitEmergency(ctx context.Context, simulationID string, form intake.Form) (*SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	req, err := intake.Resolve(form, sim.City)
	if err != nil {
		s.logger.Debug().Err(err).Str("simulation", simulationID).Msg("emergency rejected")
		return nil, err
	}

	id := sim.Hospital.SubmitEmergency(req.Patient, req.Location)
	s.metrics.recordReceived(ctx, simulationID)

	priority := engine.PriorityFor(req.Patient.Severity)
	s.logger.Info().
		Str("simulation", simulationID).
		Int("emergency", id).
		Int("priority", priority).
		Int("house", req.Patient.LocationID).
		Msg("emergency received")

	return &SubmitResult{
		EmergencyID:  id,
		Priority:     priority,
		Severity:     req.Patient.Severity,
		HouseID:      req.Patient.LocationID,
		Location:     req.Location,
		PendingCount: sim.Hospital.PendingCount(),
		Message:      fmt.Sprintf("Emergency #%d received for %s at house #%d", id, req.Patient.Name, req.Patient.LocationID),
	}, nil
}

func validElapsed(elapsed float64) bool {
	return elapsed >= 0 && !math.IsNaN(elapsed) && !math.IsInf(elapsed, 0)
}

// tick applies one engine tick; mu must be held for writing
func (s *dispatchServiceImpl) tick(ctx context.Context, sim *Simulation, elapsed float64) []engine.Event {
	events := sim.Hospital.Tick(elapsed)
	s.metrics.recordTick(ctx, sim.ID, events)
	for _, e := range events {
		s.logger.Debug().
			Str("simulation", sim.ID).
			Str("kind", string(e.Kind)).
			Int("emergency", e.EmergencyID).
			Int("vehicle", e.VehicleID).
			Float64("clock", e.Clock).
			Msg(e.Message)
	}
	return events
}

// Tick advances one simulation by elapsed seconds
func (s *dispatchServiceImpl) Tick(ctx context.Context, simulationID string, elapsed float64) (*TickResult, error) {
	if !validElapsed(elapsed) {
		return nil, ErrInvalidElapsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	events := s.tick(ctx, sim, elapsed)
	state := sim.Hospital.State()

	return &TickResult{
		Elapsed: elapsed,
		Clock:   state.Clock,
		Events:  nonNilEvents(events),
		State:   &state,
	}, nil
}

// Advance runs seconds of simulated time in ticks of step seconds.
// The last tick is shortened so the clock lands exactly on the target.
func (s *dispatchServiceImpl) Advance(ctx context.Context, simulationID string, seconds, step float64) (*AdvanceResult, error) {
	if !validElapsed(seconds) {
		return nil, ErrInvalidElapsed
	}
	if step == 0 {
		step = DefaultAdvanceStep
	}
	if step < 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, ErrInvalidStep
	}

	// bound the tick count as a float; the int conversion overflows first
	n := math.Floor(seconds / step)
	if math.IsNaN(n) || n+1 > MaxAdvanceTicks {
		return nil, fmt.Errorf("%w: %g seconds at step %g needs more than %d ticks", ErrInvalidStep, seconds, step, MaxAdvanceTicks)
	}
	full := int(n)
	rest := seconds - n*step
	if rest < 1e-9 {
		rest = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	events := []engine.Event{}
	ticks := 0
	for i := 0; i < full; i++ {
		events = append(events, s.tick(ctx, sim, step)...)
		ticks++
	}
	if rest > 0 {
		events = append(events, s.tick(ctx, sim, rest)...)
		ticks++
	}

	state := sim.Hospital.State()
	s.logger.Debug().
		Str("simulation", simulationID).
		Int("ticks", ticks).
		Float64("clock", state.Clock).
		Msg("advanced")

	return &AdvanceResult{
		Seconds: seconds,
		Step:    step,
		Ticks:   ticks,
		Clock:   state.Clock,
		Events:  events,
		State:   &state,
	}, nil
}

// TickRunning advances every running simulation by elapsed seconds.
// It is the frame clock's entry point and does not count as an access.
func (s *dispatchServiceImpl) TickRunning(ctx context.Context, elapsed float64) ([]*FrameResult, error) {
	if !validElapsed(elapsed) {
		return nil, ErrInvalidElapsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sims := s.simulations.List()
	sort.Slice(sims, func(i, j int) bool { return sims[i].ID < sims[j].ID })

	var results []*FrameResult
	for _, sim := range sims {
		if !sim.Running {
			continue
		}
		events := s.tick(ctx, sim, elapsed)
		state := sim.Hospital.State()
		results = append(results, &FrameResult{
			SimulationID: sim.ID,
			Events:       nonNilEvents(events),
			State:        &state,
		})
	}
	return results, nil
}

// SetRunning pauses or resumes the frame clock for one simulation
func (s *dispatchServiceImpl) SetRunning(ctx context.Context, simulationID string, running bool) (*SimulationInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	if sim.Running != running {
		sim.Running = running
		s.logger.Info().Str("simulation", simulationID).Bool("running", running).Msg("clock toggled")
	}
	return infoFor(sim), nil
}

// GetState returns the display snapshot of a simulation
func (s *dispatchServiceImpl) GetState(ctx context.Context, simulationID string) (*engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	state := sim.Hospital.State()
	return &state, nil
}

// GetQueue returns the pending emergencies in dispatch order
func (s *dispatchServiceImpl) GetQueue(ctx context.Context, simulationID string) (*QueueResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	pending := sim.Hospital.PendingSnapshot()
	if pending == nil {
		pending = []engine.Emergency{}
	}
	return &QueueResponse{
		Pending:    pending,
		Count:      len(pending),
		OldestWait: engine.OldestWait(pending, sim.Hospital.Clock()),
		ByPriority: engine.CountByPriority(pending),
	}, nil
}

// GetFleet returns every vehicle snapshot with lifecycle counts
func (s *dispatchServiceImpl) GetFleet(ctx context.Context, simulationID string) (*FleetResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	counts := sim.Hospital.StatusCounts()
	return &FleetResponse{
		Fleet:       sim.Hospital.Fleet(),
		Counts:      counts,
		Utilization: engine.Utilization(counts),
	}, nil
}

// GetActivity returns up to limit activity entries, newest first. limit <= 0 means all retained entries.
func (s *dispatchServiceImpl) GetActivity(ctx context.Context, simulationID string, limit int) ([]engine.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	return sim.Hospital.Activity(limit), nil
}

// ListHouses returns every house with its emergency location, flagging those with a vehicle attending
func (s *dispatchServiceImpl) ListHouses(ctx context.Context, simulationID string) ([]*HouseInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sim, err := s.lookup(simulationID)
	if err != nil {
		return nil, err
	}
	s.touch(simulationID)

	active := make(map[int]bool)
	for _, id := range sim.City.ActiveHouses(sim.Hospital.Fleet()) {
		active[id] = true
	}

	houses := sim.City.Houses()
	result := make([]*HouseInfo, 0, len(houses))
	for _, h := range houses {
		result = append(result, &HouseInfo{
			ID:       h.ID,
			Location: h.Location,
			Body:     h.Body,
			Active:   active[h.ID],
		})
	}
	return result, nil
}

// ListScenarios returns every available scenario
func (s *dispatchServiceImpl) ListScenarios(ctx context.Context) ([]*ScenarioInfo, error) {
	return s.scenarios.ListScenarios()
}

// LoadScenario loads a scenario by name
func (s *dispatchServiceImpl) LoadScenario(ctx context.Context, name string) (*engine.ScenarioConfig, error) {
	scenario, err := s.scenarios.LoadScenario(name)
	if err != nil {
		return nil, s.scenarioError(name, err)
	}
	return scenario, nil
}

// SaveScenario validates and stores a scenario
func (s *dispatchServiceImpl) SaveScenario(ctx context.Context, name string, scenario *engine.ScenarioConfig) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	if err := s.scenarios.SaveScenario(name, scenario); err != nil {
		return err
	}
	s.logger.Info().Str("scenario", name).Msg("scenario saved")
	return nil
}

// pendingCounts feeds the pending queue gauge
func (s *dispatchServiceImpl) pendingCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, sim := range s.simulations.List() {
		counts[sim.ID] = sim.Hospital.PendingCount()
	}
	return counts
}

func nonNilEvents(events []engine.Event) []engine.Event {
	if events == nil {
		return []engine.Event{}
	}
	return events
}
