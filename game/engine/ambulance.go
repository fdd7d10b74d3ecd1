package engine

import (
	"github.com/wricardo/ambulance-fleet/game/grid"
)

// Ambulance is a single fleet vehicle.
// Assignment is non-nil exactly when Status is StatusToScene or StatusOnScene.
type Ambulance struct {
	ID             int
	Parking        grid.Point
	Position       grid.Point
	Speed          float64
	Route          grid.Route
	RouteIndex     int
	Status         Status
	Busy           bool
	DwellRemaining float64
	Assignment     *Assignment

	// Completed counts the emergencies this vehicle has cleared
	Completed int
}

func newAmbulance(id int, parking grid.Point, speed float64) *Ambulance {
	return &Ambulance{
		ID:       id,
		Parking:  parking,
		Position: parking,
		Speed:    speed,
		Status:   StatusIdle,
	}
}

// Available reports whether the vehicle can take a new emergency
func (a *Ambulance) Available() bool {
	return a.Status == StatusIdle && !a.Busy
}

// routeExhausted reports whether every waypoint has been consumed
func (a *Ambulance) routeExhausted() bool {
	return a.RouteIndex >= len(a.Route)
}

// dispatch moves the vehicle from IDLE to TO_SCENE along route
func (a *Ambulance) dispatch(assignment *Assignment, route grid.Route) {
	a.Route = route
	a.RouteIndex = 0
	a.Busy = true
	a.Assignment = assignment
	a.Status = StatusToScene
	a.DwellRemaining = 0
}

// arrive moves the vehicle from TO_SCENE to ON_SCENE
func (a *Ambulance) arrive(dwell float64) {
	a.RouteIndex = len(a.Route)
	a.Status = StatusOnScene
	a.DwellRemaining = dwell
}

// clearScene moves the vehicle from ON_SCENE to RETURNING and hands back the finished assignment
func (a *Ambulance) clearScene(route grid.Route) *Assignment {
	finished := a.Assignment
	a.Route = route
	a.RouteIndex = 0
	a.Status = StatusReturning
	a.DwellRemaining = 0
	a.Assignment = nil
	a.Completed++
	return finished
}

// park moves the vehicle from RETURNING to IDLE at its exact parking slot
func (a *Ambulance) park() {
	a.Position = a.Parking
	a.Route = nil
	a.RouteIndex = 0
	a.Status = StatusIdle
	a.Busy = false
}

// arrivedAtScene reports whether a TO_SCENE vehicle has reached its destination
func (a *Ambulance) arrivedAtScene() bool {
	if a.routeExhausted() {
		return true
	}
	dest, _ := a.Route.Last()
	return grid.Distance(a.Position, dest) < ArrivalThreshold
}

// arrivedAtParking reports whether a RETURNING vehicle is home
func (a *Ambulance) arrivedAtParking() bool {
	return grid.Distance(a.Position, a.Parking) < ArrivalThreshold || a.routeExhausted()
}

// snapshot copies the vehicle into its read-only representation
func (a *Ambulance) snapshot() VehicleSnapshot {
	s := VehicleSnapshot{
		ID:                  a.ID,
		Position:            a.Position,
		Parking:             a.Parking,
		Status:              a.Status,
		StatusLabel:         a.Status.Label(),
		Route:               a.Route.Clone(),
		RouteIndex:          a.RouteIndex,
		Busy:                a.Busy,
		DwellRemaining:      a.DwellRemaining,
		AssignedEmergencyID: NoAssignment,
		AssignedLocationID:  NoAssignment,
		RemainingDistance:   a.Route.RemainingLength(a.Position, a.RouteIndex),
		Completed:           a.Completed,
	}
	if a.Assignment != nil {
		s.AssignedEmergencyID = a.Assignment.EmergencyID
		s.AssignedPatientName = a.Assignment.PatientName
		s.AssignedLocationID = a.Assignment.LocationID
		dest := a.Assignment.Location
		s.Destination = &dest
	}
	return s
}
