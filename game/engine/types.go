package engine

import (
	"fmt"
	"strings"

	"github.com/wricardo/ambulance-fleet/game/grid"
)

// Status is the lifecycle state of a vehicle
type Status int

const (
	StatusIdle Status = iota
	StatusToScene
	StatusOnScene
	StatusReturning
)

// Severity labels accepted at intake
const (
	SeverityCritical = "Critical"
	SeverityHigh     = "High"
	SeverityNormal   = "Normal"
)

const (
	// Priorities, lower is more urgent
	PriorityCritical = 1
	PriorityHigh     = 2
	PriorityNormal   = 3

	// Movement and lifecycle constants
	DefaultVehicleSpeed     = 150.0
	DefaultOnSceneSeconds   = 4.0
	DefaultActivityLogSize  = 8
	ArrivalThreshold        = 4.0
	WaypointProximity       = 3.0
	IdleDriftThreshold      = 1.0
	ReturnSpeedFactor       = 0.8
	IdleDriftSpeedFactor    = 0.4
	dwellEpsilon            = 1e-9
	NoAssignment            = -1
	NoHospital              = -1
	MaxFleetSize            = 64
	MaxActivityLogSize      = 1000
	MinBlockSize            = 10.0
	MaxBlocksPerAxis        = 50
	MaxOnSceneSeconds       = 3600.0
	MaxVehicleSpeed         = 10000.0
	parkingCollisionEpsilon = 1e-6
)

var statusNames = map[Status]string{
	StatusIdle:      "IDLE",
	StatusToScene:   "TO_SCENE",
	StatusOnScene:   "ON_SCENE",
	StatusReturning: "RETURNING",
}

var statusLabels = map[Status]string{
	StatusIdle:      "IDLE",
	StatusToScene:   "EN ROUTE",
	StatusOnScene:   "ON SCENE",
	StatusReturning: "RETURNING",
}

// String returns the canonical status name
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Label returns the display label shown to dispatchers
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return "UNKNOWN"
}

// MarshalText encodes the status as its canonical name
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a canonical status name
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStatus parses a canonical status name, case-insensitively
func ParseStatus(name string) (Status, error) {
	for status, n := range statusNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return status, nil
		}
	}
	return StatusIdle, fmt.Errorf("unknown status %q", name)
}

// PriorityFor maps a severity label to its dispatch priority
func PriorityFor(severity string) int {
	switch {
	case strings.EqualFold(strings.TrimSpace(severity), SeverityCritical):
		return PriorityCritical
	case strings.EqualFold(strings.TrimSpace(severity), SeverityHigh):
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// Severities lists the labels offered to callers, least urgent first
func Severities() []string {
	return []string{SeverityNormal, SeverityHigh, SeverityCritical}
}

// PatientInfo is the caller-supplied patient record
type PatientInfo struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	LocationID  int    `json:"location_id"`
}

// Emergency is a queued request for a vehicle
type Emergency struct {
	ID               int         `json:"id"`
	Patient          PatientInfo `json:"patient"`
	Location         grid.Point  `json:"location"`
	Priority         int         `json:"priority"`
	CreatedAt        float64     `json:"created_at"`
	AssignedHospital int         `json:"assigned_hospital"`
}

// Assignment is the emergency data copied onto a vehicle at dispatch
type Assignment struct {
	EmergencyID  int        `json:"emergency_id"`
	PatientName  string     `json:"patient_name"`
	LocationID   int        `json:"location_id"`
	Location     grid.Point `json:"location"`
	Priority     int        `json:"priority"`
	DispatchedAt float64    `json:"dispatched_at"`
}

func assignmentFor(e Emergency, clock float64) *Assignment {
	return &Assignment{
		EmergencyID:  e.ID,
		PatientName:  e.Patient.Name,
		LocationID:   e.Patient.LocationID,
		Location:     e.Location,
		Priority:     e.Priority,
		DispatchedAt: clock,
	}
}
