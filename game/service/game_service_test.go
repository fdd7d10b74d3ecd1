package service_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/intake"
	"github.com/wricardo/ambulance-fleet/game/service"
	"github.com/wricardo/ambulance-fleet/game/session"
)

var errMockNotFound = errors.New("scenario not found")

// MockScenarioStore implements service.ScenarioStore for testing
type MockScenarioStore struct {
	scenarios map[string]*engine.ScenarioConfig
	saved     map[string]*engine.ScenarioConfig
}

func NewMockScenarioStore() *MockScenarioStore {
	return &MockScenarioStore{
		scenarios: map[string]*engine.ScenarioConfig{
			"default": engine.DefaultScenarioConfig(),
		},
		saved: make(map[string]*engine.ScenarioConfig),
	}
}

func (m *MockScenarioStore) LoadScenario(name string) (*engine.ScenarioConfig, error) {
	config, exists := m.scenarios[name]
	if !exists {
		return nil, errMockNotFound
	}
	return config, nil
}

func (m *MockScenarioStore) ListScenarios() ([]*service.ScenarioInfo, error) {
	var infos []*service.ScenarioInfo
	for id, config := range m.scenarios {
		infos = append(infos, &service.ScenarioInfo{
			Filename:   id + ".json",
			ScenarioID: id,
			Name:       config.Name,
			FleetSize:  len(config.Hospital.Parking),
		})
	}
	return infos, nil
}

func (m *MockScenarioStore) GetDefault() *engine.ScenarioConfig {
	return m.scenarios["default"]
}

func (m *MockScenarioStore) SaveScenario(name string, config *engine.ScenarioConfig) error {
	if err := engine.ValidateScenarioConfig(config); err != nil {
		return err
	}
	m.saved[name] = config
	m.scenarios[name] = config
	return nil
}

func newTestService() (service.DispatchService, *session.Manager, *MockScenarioStore) {
	sims := session.NewManager()
	store := NewMockScenarioStore()
	return service.NewDispatchService(sims, store, zerolog.Nop()), sims, store
}

func validForm(house string) intake.Form {
	return intake.Form{
		PatientName: "Ada",
		Age:         "34",
		Severity:    "critical",
		Description: "Fell down the stairs",
		House:       house,
	}
}

func TestCreateSimulation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	t.Run("default scenario", func(t *testing.T) {
		info, err := svc.CreateSimulation(ctx, "")
		if err != nil {
			t.Fatalf("CreateSimulation failed: %v", err)
		}
		if info.ID == "" {
			t.Error("Expected simulation ID")
		}
		if info.ScenarioID != "default" {
			t.Errorf("Expected scenario_id 'default', got %q", info.ScenarioID)
		}
		if info.Running {
			t.Error("Expected new simulation to be paused")
		}
		if len(info.State.Fleet) != 4 {
			t.Errorf("Expected 4 vehicles, got %d", len(info.State.Fleet))
		}
		if info.HouseCount != 54 {
			t.Errorf("Expected 54 houses, got %d", info.HouseCount)
		}
	})

	t.Run("named scenario", func(t *testing.T) {
		info, err := svc.CreateSimulation(ctx, "default")
		if err != nil {
			t.Fatalf("CreateSimulation failed: %v", err)
		}
		if info.ScenarioName != "default" {
			t.Errorf("Expected scenario name 'default', got %q", info.ScenarioName)
		}
	})

	t.Run("unknown scenario lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSimulation(ctx, "atlantis")
		if !errors.Is(err, errMockNotFound) {
			t.Fatalf("Expected wrapped not-found error, got %v", err)
		}
		if !strings.Contains(err.Error(), "available: default") {
			t.Errorf("Expected available scenarios in error, got %q", err.Error())
		}
	})
}

func TestGetAndDeleteSimulation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, _ := svc.CreateSimulation(ctx, "")

	got, err := svc.GetSimulation(ctx, strings.ToUpper(created.ID))
	if err != nil {
		t.Fatalf("GetSimulation failed: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("Expected %s, got %s", created.ID, got.ID)
	}

	if err := svc.DeleteSimulation(ctx, created.ID); err != nil {
		t.Fatalf("DeleteSimulation failed: %v", err)
	}

	_, err = svc.GetSimulation(ctx, created.ID)
	if !errors.Is(err, service.ErrSimulationNotFound) {
		t.Errorf("Expected ErrSimulationNotFound, got %v", err)
	}

	err = svc.DeleteSimulation(ctx, created.ID)
	if !errors.Is(err, service.ErrSimulationNotFound) {
		t.Errorf("Expected ErrSimulationNotFound on second delete, got %v", err)
	}
}

func TestListSimulations(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, _ := svc.CreateSimulation(ctx, "")
	second, _ := svc.CreateSimulation(ctx, "")

	list, err := svc.ListSimulations(ctx)
	if err != nil {
		t.Fatalf("ListSimulations failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 simulations, got %d", len(list))
	}

	ids := map[string]bool{list[0].ID: true, list[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Errorf("Expected both simulations listed, got %v", ids)
	}
}

func TestSubmitEmergency(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sim, _ := svc.CreateSimulation(ctx, "")

	t.Run("accepted form", func(t *testing.T) {
		result, err := svc.SubmitEmergency(ctx, sim.ID, validForm("1"))
		if err != nil {
			t.Fatalf("SubmitEmergency failed: %v", err)
		}
		if result.EmergencyID != 1 {
			t.Errorf("Expected emergency ID 1, got %d", result.EmergencyID)
		}
		if result.Priority != engine.PriorityCritical {
			t.Errorf("Expected critical priority, got %d", result.Priority)
		}
		if result.Severity != engine.SeverityCritical {
			t.Errorf("Expected canonical severity, got %q", result.Severity)
		}
		if result.HouseID != 1 || result.Location.X != 148 {
			t.Errorf("Unexpected location for house 1: %+v", result)
		}
		if result.PendingCount != 1 {
			t.Errorf("Expected 1 pending, got %d", result.PendingCount)
		}
	})

	t.Run("rejected form never reaches the engine", func(t *testing.T) {
		form := validForm("9999")
		form.PatientName = ""
		_, err := svc.SubmitEmergency(ctx, sim.ID, form)

		var verr *intake.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Expected ValidationError, got %v", err)
		}
		fields := verr.Fields()
		if fields["patient_name"] == "" || fields["house"] != "House not found" {
			t.Errorf("Unexpected field errors: %v", fields)
		}

		state, _ := svc.GetState(ctx, sim.ID)
		if state.ReceivedCount != 1 || state.PendingCount != 1 {
			t.Errorf("Rejected form changed engine state: received=%d pending=%d", state.ReceivedCount, state.PendingCount)
		}
	})

	t.Run("unknown simulation", func(t *testing.T) {
		_, err := svc.SubmitEmergency(ctx, "nope", validForm("1"))
		if !errors.Is(err, service.ErrSimulationNotFound) {
			t.Errorf("Expected ErrSimulationNotFound, got %v", err)
		}
	})
}

func TestTick(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sim, _ := svc.CreateSimulation(ctx, "")

	t.Run("rejects invalid elapsed", func(t *testing.T) {
		for _, elapsed := range []float64{-1, math.NaN(), math.Inf(1)} {
			if _, err := svc.Tick(ctx, sim.ID, elapsed); !errors.Is(err, service.ErrInvalidElapsed) {
				t.Errorf("Tick(%v): expected ErrInvalidElapsed, got %v", elapsed, err)
			}
		}
	})

	t.Run("zero elapsed is allowed", func(t *testing.T) {
		result, err := svc.Tick(ctx, sim.ID, 0)
		if err != nil {
			t.Fatalf("Tick(0) failed: %v", err)
		}
		if result.Clock != 0 {
			t.Errorf("Expected clock 0, got %v", result.Clock)
		}
		if result.Events == nil {
			t.Error("Expected non-nil events slice")
		}
	})

	t.Run("assigns in the same tick", func(t *testing.T) {
		svc.SubmitEmergency(ctx, sim.ID, validForm("1"))

		result, err := svc.Tick(ctx, sim.ID, 0.1)
		if err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		dispatched := false
		for _, e := range result.Events {
			if e.Kind == engine.EventVehicleDispatched {
				dispatched = true
			}
		}
		if !dispatched {
			t.Errorf("Expected a dispatch event, got %+v", result.Events)
		}
		if result.State.PendingCount != 0 {
			t.Errorf("Expected empty queue, got %d", result.State.PendingCount)
		}
		if result.State.Counts.ToScene != 1 {
			t.Errorf("Expected one vehicle en route, got %+v", result.State.Counts)
		}
	})
}

func TestAdvance(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sim, _ := svc.CreateSimulation(ctx, "")

	svc.SubmitEmergency(ctx, sim.ID, validForm("1"))

	result, err := svc.Advance(ctx, sim.ID, 30, 0.5)
	if err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if result.Ticks != 60 {
		t.Errorf("Expected 60 ticks, got %d", result.Ticks)
	}
	if math.Abs(result.Clock-30) > 1e-9 {
		t.Errorf("Expected clock 30, got %v", result.Clock)
	}
	if result.State.HandledCount != 1 {
		t.Errorf("Expected emergency handled, got %d", result.State.HandledCount)
	}
	if result.State.Counts.Idle != 4 {
		t.Errorf("Expected whole fleet parked, got %+v", result.State.Counts)
	}

	kinds := map[engine.EventKind]int{}
	for _, e := range result.Events {
		kinds[e.Kind]++
	}
	for _, kind := range []engine.EventKind{engine.EventVehicleDispatched, engine.EventVehicleOnScene, engine.EventEmergencyHandled, engine.EventVehicleParked} {
		if kinds[kind] != 1 {
			t.Errorf("Expected one %s event, got %d", kind, kinds[kind])
		}
	}

	t.Run("partial last step", func(t *testing.T) {
		result, err := svc.Advance(ctx, sim.ID, 1.25, 0.5)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if result.Ticks != 3 {
			t.Errorf("Expected 3 ticks, got %d", result.Ticks)
		}
		if math.Abs(result.Clock-31.25) > 1e-9 {
			t.Errorf("Expected clock 31.25, got %v", result.Clock)
		}
	})

	t.Run("default step", func(t *testing.T) {
		result, err := svc.Advance(ctx, sim.ID, 1, 0)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if result.Step != service.DefaultAdvanceStep {
			t.Errorf("Expected default step, got %v", result.Step)
		}
	})

	t.Run("invalid arguments", func(t *testing.T) {
		if _, err := svc.Advance(ctx, sim.ID, -1, 0.5); !errors.Is(err, service.ErrInvalidElapsed) {
			t.Errorf("Expected ErrInvalidElapsed, got %v", err)
		}
		if _, err := svc.Advance(ctx, sim.ID, 1, -0.5); !errors.Is(err, service.ErrInvalidStep) {
			t.Errorf("Expected ErrInvalidStep, got %v", err)
		}
		if _, err := svc.Advance(ctx, sim.ID, 1e6, 0.001); !errors.Is(err, service.ErrInvalidStep) {
			t.Errorf("Expected ErrInvalidStep for too many ticks, got %v", err)
		}
	})

	t.Run("tick count beyond int range", func(t *testing.T) {
		before, err := svc.GetState(ctx, sim.ID)
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}

		spans := []struct {
			seconds, step float64
		}{
			{1e300, 0.1},
			{1, 1e-300},
			{math.MaxFloat64, 1},
		}
		for _, span := range spans {
			if _, err := svc.Advance(ctx, sim.ID, span.seconds, span.step); !errors.Is(err, service.ErrInvalidStep) {
				t.Errorf("Advance(%g, %g): expected ErrInvalidStep, got %v", span.seconds, span.step, err)
			}
		}

		after, err := svc.GetState(ctx, sim.ID)
		if err != nil {
			t.Fatalf("GetState failed: %v", err)
		}
		if after.Clock != before.Clock {
			t.Errorf("Rejected advance moved the clock from %v to %v", before.Clock, after.Clock)
		}
	})

	t.Run("largest allowed span", func(t *testing.T) {
		result, err := svc.Advance(ctx, sim.ID, float64(service.MaxAdvanceTicks-1), 1)
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if result.Ticks != service.MaxAdvanceTicks-1 {
			t.Errorf("Expected %d ticks, got %d", service.MaxAdvanceTicks-1, result.Ticks)
		}
	})
}

func TestTickRunningAndSetRunning(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	running, _ := svc.CreateSimulation(ctx, "")
	paused, _ := svc.CreateSimulation(ctx, "")

	info, err := svc.SetRunning(ctx, running.ID, true)
	if err != nil {
		t.Fatalf("SetRunning failed: %v", err)
	}
	if !info.Running {
		t.Error("Expected simulation to be running")
	}

	frames, err := svc.TickRunning(ctx, 0.25)
	if err != nil {
		t.Fatalf("TickRunning failed: %v", err)
	}
	if len(frames) != 1 || frames[0].SimulationID != running.ID {
		t.Fatalf("Expected one frame for %s, got %+v", running.ID, frames)
	}
	if frames[0].State.Clock != 0.25 {
		t.Errorf("Expected clock 0.25, got %v", frames[0].State.Clock)
	}

	state, _ := svc.GetState(ctx, paused.ID)
	if state.Clock != 0 {
		t.Errorf("Paused simulation advanced to %v", state.Clock)
	}

	if _, err := svc.TickRunning(ctx, -0.1); !errors.Is(err, service.ErrInvalidElapsed) {
		t.Errorf("Expected ErrInvalidElapsed, got %v", err)
	}

	svc.SetRunning(ctx, running.ID, false)
	frames, _ = svc.TickRunning(ctx, 0.25)
	if len(frames) != 0 {
		t.Errorf("Expected no frames once paused, got %d", len(frames))
	}
}

func TestQueueFleetAndActivity(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	sim, _ := svc.CreateSimulation(ctx, "")

	normal := validForm("2")
	normal.Severity = ""
	svc.SubmitEmergency(ctx, sim.ID, normal)
	svc.SubmitEmergency(ctx, sim.ID, validForm("3"))

	queue, err := svc.GetQueue(ctx, sim.ID)
	if err != nil {
		t.Fatalf("GetQueue failed: %v", err)
	}
	if queue.Count != 2 {
		t.Fatalf("Expected 2 pending, got %d", queue.Count)
	}
	if queue.Pending[0].Priority != engine.PriorityCritical {
		t.Errorf("Expected critical emergency first, got priority %d", queue.Pending[0].Priority)
	}
	if queue.ByPriority[engine.PriorityNormal] != 1 || queue.ByPriority[engine.PriorityCritical] != 1 {
		t.Errorf("Unexpected priority counts: %v", queue.ByPriority)
	}

	fleet, err := svc.GetFleet(ctx, sim.ID)
	if err != nil {
		t.Fatalf("GetFleet failed: %v", err)
	}
	if fleet.Counts.Idle != 4 || fleet.Utilization != 0 {
		t.Errorf("Expected idle fleet, got %+v utilization %v", fleet.Counts, fleet.Utilization)
	}

	activity, err := svc.GetActivity(ctx, sim.ID, 1)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if len(activity) != 1 || activity[0].EmergencyID != 2 {
		t.Errorf("Expected newest entry for emergency 2, got %+v", activity)
	}

	svc.Tick(ctx, sim.ID, 0.1)

	houses, err := svc.ListHouses(ctx, sim.ID)
	if err != nil {
		t.Fatalf("ListHouses failed: %v", err)
	}
	if len(houses) != 54 {
		t.Fatalf("Expected 54 houses, got %d", len(houses))
	}
	for _, h := range houses {
		want := h.ID == 2 || h.ID == 3
		if h.Active != want {
			t.Errorf("House %d active=%v, want %v", h.ID, h.Active, want)
		}
	}
}

func TestScenarioOperations(t *testing.T) {
	svc, _, store := newTestService()
	ctx := context.Background()

	scenarios, err := svc.ListScenarios(ctx)
	if err != nil {
		t.Fatalf("ListScenarios failed: %v", err)
	}
	if len(scenarios) != 1 || scenarios[0].ScenarioID != "default" {
		t.Errorf("Unexpected scenarios: %+v", scenarios)
	}

	custom := engine.DefaultScenarioConfig()
	custom.Name = "Night shift"
	custom.OnSceneSeconds = 10
	if err := svc.SaveScenario(ctx, "night", custom); err != nil {
		t.Fatalf("SaveScenario failed: %v", err)
	}
	if store.saved["night"] == nil {
		t.Error("Expected scenario to reach the store")
	}

	loaded, err := svc.LoadScenario(ctx, "night")
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if loaded.OnSceneSeconds != 10 {
		t.Errorf("Expected on-scene 10, got %v", loaded.OnSceneSeconds)
	}

	if err := svc.SaveScenario(ctx, "nil", nil); err == nil {
		t.Error("Expected error for nil scenario")
	}
	if _, err := svc.LoadScenario(ctx, "missing"); !errors.Is(err, errMockNotFound) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}
