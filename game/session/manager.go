package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/ambulance-fleet/game/city"
	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/service"
)

// ErrSimulationNotFound is shared with the service layer so callers can match it with errors.Is.
var ErrSimulationNotFound = service.ErrSimulationNotFound

var (
	ErrSimulationAlreadyExists = errors.New("simulation already exists")
	ErrInvalidSimulationID     = errors.New("invalid simulation ID")
)

// idLength is the number of uuid characters kept for generated ids
const idLength = 8

// Manager handles simulation lifecycle
type Manager struct {
	simulations map[string]*service.Simulation
	now         func() time.Time
	mu          sync.RWMutex
}

// NewManager creates a new simulation manager
func NewManager() *Manager {
	return &Manager{
		simulations: make(map[string]*service.Simulation),
		now:         time.Now,
	}
}

// Create builds the hospital and city for a scenario and stores them under id.
// An empty id gets a generated one.
func (m *Manager) Create(id, scenarioID string, scenario *engine.ScenarioConfig) (*service.Simulation, error) {
	if scenario == nil {
		return nil, errors.New("scenario is required")
	}
	if strings.ContainsAny(id, " /\\?#") {
		return nil, ErrInvalidSimulationID
	}

	hospital, err := engine.NewHospital(scenario.HospitalConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create hospital: %w", err)
	}

	houses, err := city.FromScenario(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to lay out city: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = m.generateID()
	} else if m.exists(id) {
		return nil, ErrSimulationAlreadyExists
	}

	now := m.now()
	sim := &service.Simulation{
		ID:             id,
		ScenarioID:     scenarioID,
		Scenario:       scenario,
		Hospital:       hospital,
		City:           houses,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	m.simulations[strings.ToLower(id)] = sim
	return sim, nil
}

// Get retrieves a simulation by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sim, exists := m.simulations[strings.ToLower(id)]
	if !exists {
		return nil, ErrSimulationNotFound
	}
	return sim, nil
}

// List returns all simulations
func (m *Manager) List() []*service.Simulation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Simulation, 0, len(m.simulations))
	for _, sim := range m.simulations {
		result = append(result, sim)
	}
	return result
}

// Delete removes a simulation
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	if _, exists := m.simulations[key]; !exists {
		return ErrSimulationNotFound
	}
	delete(m.simulations, key)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a simulation
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sim, exists := m.simulations[strings.ToLower(id)]
	if !exists {
		return ErrSimulationNotFound
	}
	sim.LastAccessedAt = m.now()
	return nil
}

// CleanupExpiredSessions removes simulations that haven't been accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxAge)
	removed := 0

	for id, sim := range m.simulations {
		if sim.LastAccessedAt.Before(cutoff) {
			delete(m.simulations, id)
			removed++
		}
	}

	return removed
}

// Count returns the number of simulations
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.simulations)
}

// generateID returns a short unused id; mu must be held
func (m *Manager) generateID() string {
	for {
		id := uuid.NewString()[:idLength]
		if !m.exists(id) {
			return id
		}
	}
}

func (m *Manager) exists(id string) bool {
	_, exists := m.simulations[strings.ToLower(id)]
	return exists
}
