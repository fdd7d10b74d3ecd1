package engine

import (
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// VehicleSnapshot is a point-in-time copy of a vehicle for display.
// Assignment fields hold NoAssignment and "" when the vehicle is free.
type VehicleSnapshot struct {
	ID                  int         `json:"id"`
	Position            grid.Point  `json:"position"`
	Parking             grid.Point  `json:"parking"`
	Status              Status      `json:"status"`
	StatusLabel         string      `json:"status_label"`
	Route               grid.Route  `json:"route"`
	RouteIndex          int         `json:"route_index"`
	Busy                bool        `json:"busy"`
	DwellRemaining      float64     `json:"dwell_remaining"`
	AssignedEmergencyID int         `json:"assigned_emergency_id"`
	AssignedPatientName string      `json:"assigned_patient_name"`
	AssignedLocationID  int         `json:"assigned_location_id"`
	Destination         *grid.Point `json:"destination,omitempty"`
	RemainingDistance   float64     `json:"remaining_distance"`
	Completed           int         `json:"completed"`
}

// HasAssignment reports whether the snapshot carries an emergency
func (v VehicleSnapshot) HasAssignment() bool {
	return v.AssignedEmergencyID != NoAssignment
}

// StatusCounts tallies the fleet by lifecycle state
type StatusCounts struct {
	Idle      int `json:"idle"`
	ToScene   int `json:"to_scene"`
	OnScene   int `json:"on_scene"`
	Returning int `json:"returning"`
}

// Total returns the number of vehicles counted
func (c StatusCounts) Total() int {
	return c.Idle + c.ToScene + c.OnScene + c.Returning
}

func (c *StatusCounts) add(s Status) {
	switch s {
	case StatusIdle:
		c.Idle++
	case StatusToScene:
		c.ToScene++
	case StatusOnScene:
		c.OnScene++
	case StatusReturning:
		c.Returning++
	}
}

// State is the aggregated view a display reads each frame
type State struct {
	Clock            float64           `json:"clock"`
	HospitalID       int               `json:"hospital_id"`
	HospitalLocation grid.Point        `json:"hospital_location"`
	Fleet            []VehicleSnapshot `json:"fleet"`
	Pending          []Emergency       `json:"pending"`
	PendingCount     int               `json:"pending_count"`
	HandledCount     int               `json:"handled_count"`
	ReceivedCount    int               `json:"received_count"`
	Counts           StatusCounts      `json:"counts"`
	Activity         []Event           `json:"activity"`
}
