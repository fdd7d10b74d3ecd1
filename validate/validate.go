// Command validate checks every scenario JSON file in a directory
// (../configs by default, or the first argument). It checks:
//   - JSON structure and the engine's scenario rules
//   - City layout: houses fit in the blocks and ids are assigned
//   - Parking: slots do not overlap and the hospital sits near the street grid
//   - Reachability: a route exists from the hospital to every house
package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/wricardo/ambulance-fleet/game/city"
	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// ValidationResult captures the outcome of validating a single file.
// Info holds the summary lines printed for valid files.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(err error) {
	r.Valid = false
	for _, e := range multierr.Errors(err) {
		r.Errors = append(r.Errors, e.Error())
	}
}

// validateScenario loads and validates a single scenario file
func validateScenario(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail(fmt.Errorf("failed to read file: %w", err))
		return result
	}

	scenario, err := engine.ParseScenarioConfig(data)
	if err != nil {
		result.fail(err)
		return result
	}

	houses, err := city.FromScenario(scenario)
	if err != nil {
		result.fail(fmt.Errorf("city layout: %w", err))
		return result
	}

	if err := checkPlacement(scenario); err != nil {
		result.fail(err)
	}

	longest, err := checkReachability(scenario, houses)
	if err != nil {
		result.fail(err)
	}

	if !result.Valid {
		return result
	}

	speed := scenario.VehicleSpeed
	if speed == 0 {
		speed = engine.DefaultVehicleSpeed
	}
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", scenario.Name),
		fmt.Sprintf("✓ Grid: %dx%d blocks of %.0f", scenario.Grid.BlocksX, scenario.Grid.BlocksY, scenario.Grid.BlockSize),
		fmt.Sprintf("✓ Houses: %d", houses.Len()),
		fmt.Sprintf("✓ Fleet: %d vehicles from #%d", len(scenario.Hospital.Parking), firstVehicleID(scenario)),
		fmt.Sprintf("✓ Longest response route: %.0f units (%.1fs at speed %.0f)", longest, longest/speed, speed),
	)
	return result
}

func firstVehicleID(s *engine.ScenarioConfig) int {
	if s.Hospital.FirstVehicleID == 0 {
		return 1
	}
	return s.Hospital.FirstVehicleID
}

// checkPlacement reports hospitals and parking slots too far from any street
func checkPlacement(s *engine.ScenarioConfig) error {
	var errs error
	limit := s.Grid.BlockSize

	if d := distanceToGrid(s.Grid, s.Hospital.Location); d > limit {
		errs = multierr.Append(errs, fmt.Errorf("hospital at %s is %.0f units from the nearest intersection (limit %.0f)",
			s.Hospital.Location, d, limit))
	}
	for i, p := range s.Hospital.Parking {
		if d := distanceToGrid(s.Grid, p); d > limit {
			errs = multierr.Append(errs, fmt.Errorf("parking slot %d at %s is %.0f units from the nearest intersection (limit %.0f)",
				i+1, p, d, limit))
		}
	}
	return errs
}

func distanceToGrid(g grid.Grid, p grid.Point) float64 {
	return grid.Distance(p, g.NearestIntersection(p))
}

var errUnreachable = errors.New("unreachable")

const cornerTolerance = 1.5

// checkReachability plans a route from the first parking slot to every house
// and returns the longest one
func checkReachability(s *engine.ScenarioConfig, houses *city.City) (float64, error) {
	if len(s.Hospital.Parking) == 0 {
		return 0, nil
	}
	start := s.Hospital.Parking[0]

	var errs error
	longest := 0.0
	for _, h := range houses.Houses() {
		route := s.Grid.PlanRoute(start, h.Location)
		length := route.Length()
		if len(route) < 2 || math.IsNaN(length) || math.IsInf(length, 0) {
			errs = multierr.Append(errs, fmt.Errorf("house #%d: %w", h.ID, errUnreachable))
			continue
		}
		// The stop before the house is the corner the vehicle leaves the street at
		corner := route[len(route)-2]
		if len(route) > 2 && grid.Distance(corner, s.Grid.NearestIntersection(h.Location)) > cornerTolerance {
			errs = multierr.Append(errs, fmt.Errorf("house #%d: route leaves the street at %s, not at its nearest corner", h.ID, corner))
			continue
		}
		longest = math.Max(longest, length)
	}
	return longest, errs
}

// main validates every *.json file, printing a concise report and exiting
// with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding scenario files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No scenario files found in %s\n", configDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateScenario(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Info {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Println("  ❌ " + err)
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All scenarios are valid!")
	} else {
		fmt.Println("❌ Some scenarios have errors")
		os.Exit(1)
	}
}
