package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/grid"
)

func createValidScenario(name string) *engine.ScenarioConfig {
	s := engine.DefaultScenarioConfig()
	s.Name = name
	s.Description = "Test scenario " + name
	return s
}

func writeScenarioFile(t *testing.T, dir, name string, s *engine.ScenarioConfig) {
	t.Helper()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal scenario: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".json"), data, 0644); err != nil {
		t.Fatalf("Failed to write scenario file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory with scenarios", func(t *testing.T) {
		dir := t.TempDir()
		writeScenarioFile(t, dir, "default", createValidScenario("Default Test"))

		manager, err := NewManager(dir, "default")
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if manager.GetDefault().Name != "Default Test" {
			t.Errorf("Expected default scenario 'Default Test', got %s", manager.GetDefault().Name)
		}
	})

	t.Run("falls back to first scenario", func(t *testing.T) {
		dir := t.TempDir()
		writeScenarioFile(t, dir, "b_second", createValidScenario("Second"))
		writeScenarioFile(t, dir, "a_first", createValidScenario("First"))

		manager, err := NewManager(dir, "missing")
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if manager.GetDefault().Name != "First" {
			t.Errorf("Expected first scenario as default, got %s", manager.GetDefault().Name)
		}
	})

	t.Run("empty directory uses built-in scenario", func(t *testing.T) {
		manager, err := NewManager(t.TempDir(), "default")
		if err != nil {
			t.Fatalf("NewManager failed: %v", err)
		}
		if manager.GetDefault() == nil || len(manager.GetDefault().Hospital.Parking) != 4 {
			t.Error("Expected built-in four vehicle scenario")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := NewManager("/non/existent/dir", "default"); err == nil {
			t.Error("Expected error for missing directory")
		}
	})
}

func TestManager_LoadScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "downtown", createValidScenario("Downtown"))

	broken := createValidScenario("Broken")
	broken.Hospital.Parking = nil
	writeScenarioFile(t, dir, "broken", broken)

	if err := os.WriteFile(filepath.Join(dir, "garbage.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir, "downtown")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	s, err := manager.LoadScenario("downtown.json")
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if s.Name != "Downtown" {
		t.Errorf("Expected Downtown, got %s", s.Name)
	}

	if _, err := manager.LoadScenario("nope"); !errors.Is(err, ErrScenarioNotFound) {
		t.Errorf("Expected ErrScenarioNotFound, got %v", err)
	}
	if _, err := manager.LoadScenario("broken"); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("Expected ErrInvalidScenario for invalid content, got %v", err)
	}
	if _, err := manager.LoadScenario("garbage"); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("Expected ErrInvalidScenario for bad JSON, got %v", err)
	}
}

func TestManager_ListScenarios(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "rural", createValidScenario("Rural"))
	writeScenarioFile(t, dir, "city", createValidScenario("City"))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "invalid.json"), []byte(`{"name":"x"}`), 0644); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir, "city")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	list, err := manager.ListScenarios()
	if err != nil {
		t.Fatalf("ListScenarios failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 scenarios, got %d", len(list))
	}
	if list[0].ScenarioID != "city" || list[1].ScenarioID != "rural" {
		t.Errorf("Expected sorted ids city, rural; got %s, %s", list[0].ScenarioID, list[1].ScenarioID)
	}
	if list[0].FleetSize != 4 || list[0].BlocksX != 3 {
		t.Errorf("Unexpected scenario info: %+v", list[0])
	}
}

func TestManager_SaveScenario(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir, "default")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	s := createValidScenario("Harbour")
	s.Hospital.Parking = append(s.Hospital.Parking, grid.Point{X: 600, Y: 30})
	if err := manager.SaveScenario("harbour", s); err != nil {
		t.Fatalf("SaveScenario failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "harbour.json")); err != nil {
		t.Errorf("Expected scenario file on disk: %v", err)
	}

	loaded, err := manager.LoadScenario("harbour")
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if len(loaded.Hospital.Parking) != 5 {
		t.Errorf("Expected 5 parking slots, got %d", len(loaded.Hospital.Parking))
	}

	invalid := createValidScenario("")
	if err := manager.SaveScenario("bad", invalid); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("Expected ErrInvalidScenario, got %v", err)
	}
	if err := manager.SaveScenario("../escape", s); !errors.Is(err, ErrInvalidScenario) {
		t.Errorf("Expected path traversal to be rejected, got %v", err)
	}
}

func TestManager_SetDefaultAndRefresh(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "default", createValidScenario("One"))
	writeScenarioFile(t, dir, "other", createValidScenario("Two"))

	manager, err := NewManager(dir, "default")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if err := manager.SetDefault("other"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Two" {
		t.Errorf("Expected Two, got %s", manager.GetDefault().Name)
	}

	writeScenarioFile(t, dir, "default", createValidScenario("One Updated"))
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "One Updated" {
		t.Errorf("Expected refreshed default, got %s", manager.GetDefault().Name)
	}

	if err := manager.SetDefault("missing"); err == nil {
		t.Error("Expected error for missing scenario")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "default", createValidScenario("Concurrent"))

	manager, err := NewManager(dir, "default")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadScenario("default"); err != nil {
				errs <- err
			}
			if _, err := manager.ListScenarios(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent access error: %v", err)
	}
}

func TestManager_CachingBehavior(t *testing.T) {
	dir := t.TempDir()
	writeScenarioFile(t, dir, "cached", createValidScenario("Cached"))

	manager, err := NewManager(dir, "cached")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	first, _ := manager.LoadScenario("cached")
	if err := os.Remove(filepath.Join(dir, "cached.json")); err != nil {
		t.Fatal(err)
	}
	second, err := manager.LoadScenario("cached")
	if err != nil {
		t.Fatalf("Expected cached scenario after file removal: %v", err)
	}
	if first != second {
		t.Error("Expected the same cached pointer")
	}
}
