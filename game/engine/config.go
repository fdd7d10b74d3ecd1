package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/ambulance-fleet/game/grid"
)

// HospitalConfig is everything NewHospital needs
type HospitalConfig struct {
	ID              int
	Location        grid.Point
	Parking         []grid.Point
	FirstVehicleID  int
	VehicleSpeed    float64
	OnSceneSeconds  float64
	Grid            grid.Grid
	ActivityLogSize int
}

// CityLayout describes how houses are placed inside each block
type CityLayout struct {
	LotsX            int     `json:"lots_x"`
	LotsY            int     `json:"lots_y"`
	RoadWidth        float64 `json:"road_width"`
	LotPadding       float64 `json:"lot_padding"`
	HouseWidthRatio  float64 `json:"house_width_ratio"`
	HouseHeightRatio float64 `json:"house_height_ratio"`
}

// HospitalSettings is the hospital section of a scenario file
type HospitalSettings struct {
	ID             int          `json:"id"`
	Location       grid.Point   `json:"location"`
	Parking        []grid.Point `json:"parking"`
	FirstVehicleID int          `json:"first_vehicle_id"`
}

// ScenarioConfig represents a scenario loaded from JSON
type ScenarioConfig struct {
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Grid            grid.Grid        `json:"grid"`
	Hospital        HospitalSettings `json:"hospital"`
	VehicleSpeed    float64          `json:"vehicle_speed"`
	OnSceneSeconds  float64          `json:"on_scene_seconds"`
	ActivityLogSize int              `json:"activity_log_size"`
	City            CityLayout       `json:"city"`
}

// HospitalConfig extracts the engine settings from the scenario
func (c *ScenarioConfig) HospitalConfig() HospitalConfig {
	return HospitalConfig{
		ID:              c.Hospital.ID,
		Location:        c.Hospital.Location,
		Parking:         append([]grid.Point(nil), c.Hospital.Parking...),
		FirstVehicleID:  c.Hospital.FirstVehicleID,
		VehicleSpeed:    c.VehicleSpeed,
		OnSceneSeconds:  c.OnSceneSeconds,
		Grid:            c.Grid,
		ActivityLogSize: c.ActivityLogSize,
	}
}

// ValidateHospitalConfig checks engine settings and fills zero values with defaults
func ValidateHospitalConfig(config *HospitalConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: hospital config is required")
	}
	if err := config.Grid.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if !finitePoint(config.Location) {
		return fmt.Errorf("config validation: hospital location must be finite")
	}

	if len(config.Parking) == 0 {
		return fmt.Errorf("config validation: at least one parking slot is required")
	}
	if len(config.Parking) > MaxFleetSize {
		return fmt.Errorf("config validation: at most %d parking slots are allowed, got %d", MaxFleetSize, len(config.Parking))
	}
	for i, p := range config.Parking {
		if !finitePoint(p) {
			return fmt.Errorf("config validation: parking slot %d must be finite", i+1)
		}
		for j := 0; j < i; j++ {
			if grid.Distance(p, config.Parking[j]) < parkingCollisionEpsilon {
				return fmt.Errorf("config validation: parking slots %d and %d overlap at %s", j+1, i+1, p)
			}
		}
	}

	if config.FirstVehicleID == 0 {
		config.FirstVehicleID = 1
	}
	if config.FirstVehicleID < 0 {
		return fmt.Errorf("config validation: first_vehicle_id must be positive, got %d", config.FirstVehicleID)
	}

	if config.VehicleSpeed == 0 {
		config.VehicleSpeed = DefaultVehicleSpeed
	}
	if config.VehicleSpeed < 0 || config.VehicleSpeed > MaxVehicleSpeed || math.IsNaN(config.VehicleSpeed) {
		return fmt.Errorf("config validation: vehicle_speed must be between 0 and %.0f, got %v", MaxVehicleSpeed, config.VehicleSpeed)
	}

	if config.OnSceneSeconds == 0 {
		config.OnSceneSeconds = DefaultOnSceneSeconds
	}
	if config.OnSceneSeconds < 0 || config.OnSceneSeconds > MaxOnSceneSeconds || math.IsNaN(config.OnSceneSeconds) {
		return fmt.Errorf("config validation: on_scene_seconds must be between 0 and %.0f, got %v", MaxOnSceneSeconds, config.OnSceneSeconds)
	}

	if config.ActivityLogSize == 0 {
		config.ActivityLogSize = DefaultActivityLogSize
	}
	if config.ActivityLogSize < 0 || config.ActivityLogSize > MaxActivityLogSize {
		return fmt.Errorf("config validation: activity_log_size must be between 1 and %d, got %d", MaxActivityLogSize, config.ActivityLogSize)
	}

	return nil
}

// ValidateScenarioConfig validates a scenario for correctness
func ValidateScenarioConfig(config *ScenarioConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: scenario is required")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	if config.Grid.BlockSize < MinBlockSize {
		return fmt.Errorf("config validation: grid.block_size must be at least %.0f, got %v", MinBlockSize, config.Grid.BlockSize)
	}
	if config.Grid.BlocksX > MaxBlocksPerAxis || config.Grid.BlocksY > MaxBlocksPerAxis {
		return fmt.Errorf("config validation: grid blocks must be at most %d per axis, got %d x %d",
			MaxBlocksPerAxis, config.Grid.BlocksX, config.Grid.BlocksY)
	}

	hc := config.HospitalConfig()
	if err := ValidateHospitalConfig(&hc); err != nil {
		return err
	}

	if err := validateCityLayout(config.City, config.Grid); err != nil {
		return err
	}

	return nil
}

func validateCityLayout(city CityLayout, g grid.Grid) error {
	if city.LotsX < 1 || city.LotsY < 1 {
		return fmt.Errorf("config validation: city.lots_x and city.lots_y must be at least 1, got %d x %d", city.LotsX, city.LotsY)
	}
	if city.RoadWidth < 0 || city.RoadWidth >= g.BlockSize {
		return fmt.Errorf("config validation: city.road_width must be between 0 and grid.block_size (%v), got %v", g.BlockSize, city.RoadWidth)
	}

	usable := g.BlockSize - city.RoadWidth
	lotW := usable / float64(city.LotsX)
	lotH := usable / float64(city.LotsY)
	if city.LotPadding < 0 || city.LotPadding >= lotW || city.LotPadding >= lotH {
		return fmt.Errorf("config validation: city.lot_padding must leave room for a house, got %v with lots of %.1f x %.1f",
			city.LotPadding, lotW, lotH)
	}

	if city.HouseWidthRatio <= 0 || city.HouseWidthRatio > 1 {
		return fmt.Errorf("config validation: city.house_width_ratio must be in (0, 1], got %v", city.HouseWidthRatio)
	}
	if city.HouseHeightRatio <= 0 || city.HouseHeightRatio > 1 {
		return fmt.Errorf("config validation: city.house_height_ratio must be in (0, 1], got %v", city.HouseHeightRatio)
	}
	return nil
}

// LoadScenarioConfig loads a scenario from a JSON file
func LoadScenarioConfig(filename string) (*ScenarioConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseScenarioConfig(data)
}

// ParseScenarioConfig decodes and validates a scenario document
func ParseScenarioConfig(data []byte) (*ScenarioConfig, error) {
	var config ScenarioConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := ValidateScenarioConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadScenarioByName loads a scenario by name from dir
func LoadScenarioByName(dir, name string) (*ScenarioConfig, error) {
	if !strings.HasSuffix(name, ".json") {
		name = name + ".json"
	}

	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("scenario file '%s' not found", name)
	}

	config, err := LoadScenarioConfig(path)
	if err != nil {
		return nil, fmt.Errorf("invalid scenario '%s': %w", name, err)
	}
	return config, nil
}

// Map geometry of the built-in scenario
const (
	defaultBlocks    = 3
	defaultBlockSize = 200.0
	defaultOrigin    = 100.0
	defaultRoadWidth = 44.0
)

// DefaultScenarioConfig returns the built-in single hospital scenario:
// a 3x3 grid of 200 unit blocks with the hospital centred above it and four
// parking slots beside the entrance.
func DefaultScenarioConfig() *ScenarioConfig {
	mapWidth := defaultBlocks*defaultBlockSize + defaultRoadWidth*2
	hospX := defaultOrigin + mapWidth/2
	hospY := defaultOrigin - 100

	return &ScenarioConfig{
		Name:        "default",
		Description: "Single hospital above a 3x3 block neighbourhood with four ambulances",
		Grid: grid.Grid{
			Origin:    grid.Point{X: defaultOrigin, Y: defaultOrigin},
			BlockSize: defaultBlockSize,
			BlocksX:   defaultBlocks,
			BlocksY:   defaultBlocks,
		},
		Hospital: HospitalSettings{
			ID:       0,
			Location: grid.Point{X: hospX, Y: hospY},
			Parking: []grid.Point{
				{X: hospX - 70, Y: hospY + 30},
				{X: hospX - 35, Y: hospY + 30},
				{X: hospX + 35, Y: hospY + 30},
				{X: hospX + 70, Y: hospY + 30},
			},
			FirstVehicleID: 1,
		},
		VehicleSpeed:    DefaultVehicleSpeed,
		OnSceneSeconds:  DefaultOnSceneSeconds,
		ActivityLogSize: DefaultActivityLogSize,
		City: CityLayout{
			LotsX:            3,
			LotsY:            2,
			RoadWidth:        defaultRoadWidth,
			LotPadding:       8,
			HouseWidthRatio:  0.85,
			HouseHeightRatio: 0.7,
		},
	}
}

func finitePoint(p grid.Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
