package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/service"
)

var (
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrInvalidScenario  = errors.New("invalid scenario")
)

// Manager handles scenario loading and caching
type Manager struct {
	dir             string
	defaultName     string
	defaultScenario *engine.ScenarioConfig
	scenarios       map[string]*engine.ScenarioConfig
	mu              sync.RWMutex
}

// NewManager creates a scenario manager over dir. defaultName is tried first
// when picking the default scenario; the built-in scenario is used when the
// directory has no valid files.
func NewManager(dir, defaultName string) (*Manager, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario directory does not exist: %s", dir)
	}

	m := &Manager{
		dir:         dir,
		defaultName: defaultName,
		scenarios:   make(map[string]*engine.ScenarioConfig),
	}

	if err := m.loadDefault(); err != nil {
		return nil, fmt.Errorf("failed to load default scenario: %w", err)
	}

	return m, nil
}

// LoadScenario loads a scenario by name
func (m *Manager) LoadScenario(name string) (*engine.ScenarioConfig, error) {
	name = scenarioName(name)
	if name == "" {
		return nil, ErrScenarioNotFound
	}

	m.mu.RLock()
	if config, exists := m.scenarios[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.scenarios[name]; exists {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Join(m.dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrScenarioNotFound
		}
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var config engine.ScenarioConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse scenario: %v", ErrInvalidScenario, err)
	}

	if err := engine.ValidateScenarioConfig(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	m.scenarios[name] = &config
	return &config, nil
}

// ListScenarios returns information about every valid scenario file
func (m *Manager) ListScenarios() ([]*service.ScenarioInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var scenarios []*service.ScenarioInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		config, err := m.LoadScenario(name)
		if err != nil {
			// Skip invalid scenarios
			continue
		}

		scenarios = append(scenarios, infoFor(entry.Name(), name, config))
	}

	sort.Slice(scenarios, func(i, j int) bool {
		return scenarios[i].ScenarioID < scenarios[j].ScenarioID
	})
	return scenarios, nil
}

// GetDefault returns the default scenario
func (m *Manager) GetDefault() *engine.ScenarioConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultScenario
}

// SetDefault sets the default scenario by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadScenario(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultScenario = config
	return nil
}

// RefreshCache drops every cached scenario and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.scenarios = make(map[string]*engine.ScenarioConfig)
	m.mu.Unlock()

	return m.loadDefault()
}

func (m *Manager) loadDefault() error {
	if m.defaultName != "" {
		if config, err := m.LoadScenario(m.defaultName); err == nil {
			m.setDefault(config)
			return nil
		}
	}

	scenarios, err := m.ListScenarios()
	if err != nil || len(scenarios) == 0 {
		m.setDefault(engine.DefaultScenarioConfig())
		return nil
	}

	config, err := m.LoadScenario(scenarios[0].ScenarioID)
	if err != nil {
		m.setDefault(engine.DefaultScenarioConfig())
		return nil
	}

	m.setDefault(config)
	return nil
}

func (m *Manager) setDefault(config *engine.ScenarioConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultScenario = config
}

// SaveScenario validates and writes a scenario to disk
func (m *Manager) SaveScenario(name string, config *engine.ScenarioConfig) error {
	name = scenarioName(name)
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: invalid scenario name", ErrInvalidScenario)
	}

	if err := engine.ValidateScenarioConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenario: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.dir, name+".json"), data, 0644); err != nil {
		return fmt.Errorf("failed to write scenario file: %w", err)
	}

	m.mu.Lock()
	m.scenarios[name] = config
	m.mu.Unlock()

	return nil
}

func scenarioName(name string) string {
	return strings.TrimSuffix(strings.TrimSpace(name), ".json")
}

func infoFor(filename, id string, config *engine.ScenarioConfig) *service.ScenarioInfo {
	return &service.ScenarioInfo{
		Filename:       filename,
		ScenarioID:     id,
		Name:           config.Name,
		Description:    config.Description,
		BlocksX:        config.Grid.BlocksX,
		BlocksY:        config.Grid.BlocksY,
		BlockSize:      config.Grid.BlockSize,
		FleetSize:      len(config.Hospital.Parking),
		OnSceneSeconds: config.OnSceneSeconds,
	}
}
