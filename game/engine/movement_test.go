package engine

import (
	"math"
	"testing"

	"github.com/wricardo/ambulance-fleet/game/grid"
)

const floatTolerance = 1e-9

func approxPoint(a, b grid.Point) bool {
	return math.Abs(a.X-b.X) < floatTolerance && math.Abs(a.Y-b.Y) < floatTolerance
}

func movingAmbulance(status Status, route grid.Route) *Ambulance {
	a := newAmbulance(1, grid.Point{X: 0, Y: 0}, 150)
	a.Status = status
	a.Route = route
	a.Busy = status != StatusIdle
	return a
}

func TestAdvance_StepsAlongRoute(t *testing.T) {
	a := movingAmbulance(StatusToScene, grid.Route{{X: 0, Y: 0}, {X: 100, Y: 0}})

	// first waypoint is the current position, so the index moves on
	a.Advance(0.5)
	if a.RouteIndex != 1 || !approxPoint(a.Position, grid.Point{X: 0, Y: 0}) {
		t.Fatalf("Expected index 1 at origin, got index %d at %v", a.RouteIndex, a.Position)
	}

	a.Advance(0.5)
	if !approxPoint(a.Position, grid.Point{X: 75, Y: 0}) {
		t.Errorf("Expected (75, 0), got %v", a.Position)
	}

	// remaining 25 units is less than the 75 unit step
	a.Advance(0.5)
	if !approxPoint(a.Position, grid.Point{X: 100, Y: 0}) {
		t.Errorf("Expected step to stop on the waypoint, got %v", a.Position)
	}

	a.Advance(0.5)
	if a.RouteIndex != 2 {
		t.Errorf("Expected route exhausted, got index %d", a.RouteIndex)
	}

	a.Advance(0.5)
	if !approxPoint(a.Position, grid.Point{X: 100, Y: 0}) {
		t.Errorf("Expected no movement once the route is exhausted, got %v", a.Position)
	}
}

func TestAdvance_WaypointProximity(t *testing.T) {
	a := movingAmbulance(StatusToScene, grid.Route{{X: 2.5, Y: 0}, {X: 100, Y: 0}})

	a.Advance(1)
	if a.RouteIndex != 1 {
		t.Errorf("Expected index to advance within proximity, got %d", a.RouteIndex)
	}
	if !approxPoint(a.Position, grid.Point{X: 0, Y: 0}) {
		t.Errorf("Expected no movement on the advancing tick, got %v", a.Position)
	}
}

func TestAdvance_ReturningIsSlower(t *testing.T) {
	a := movingAmbulance(StatusReturning, grid.Route{{X: 0, Y: 0}, {X: 100, Y: 0}})
	a.RouteIndex = 1

	a.Advance(0.5)
	if !approxPoint(a.Position, grid.Point{X: 60, Y: 0}) {
		t.Errorf("Expected 0.8x speed to reach (60, 0), got %v", a.Position)
	}
}

func TestAdvance_DiagonalSegment(t *testing.T) {
	a := movingAmbulance(StatusToScene, grid.Route{{X: 30, Y: 40}})

	a.Advance(0.2)
	if !approxPoint(a.Position, grid.Point{X: 18, Y: 24}) {
		t.Errorf("Expected (18, 24), got %v", a.Position)
	}
}

func TestAdvance_IdleDrift(t *testing.T) {
	a := newAmbulance(1, grid.Point{X: 0, Y: 0}, 150)
	a.Position = grid.Point{X: 10, Y: 0}

	a.Advance(0.1)
	if math.Abs(a.Position.X-4) > 1e-6 {
		t.Errorf("Expected 0.4x drift to (4, 0), got %v", a.Position)
	}

	a.Advance(0.1)
	if !approxPoint(a.Position, a.Parking) {
		t.Errorf("Expected drift to stop on the parking slot, got %v", a.Position)
	}
}

func TestAdvance_IdleWithinThreshold(t *testing.T) {
	a := newAmbulance(1, grid.Point{X: 0, Y: 0}, 150)
	a.Position = grid.Point{X: 0.5, Y: 0}

	a.Advance(1)
	if a.Position != (grid.Point{X: 0.5, Y: 0}) {
		t.Errorf("Expected no drift inside the threshold, got %v", a.Position)
	}
}

func TestAdvance_OnSceneStationary(t *testing.T) {
	a := movingAmbulance(StatusOnScene, grid.Route{{X: 0, Y: 0}, {X: 50, Y: 0}})
	a.RouteIndex = 2
	a.Position = grid.Point{X: 50, Y: 0}

	a.Advance(1)
	if a.Position != (grid.Point{X: 50, Y: 0}) {
		t.Errorf("Expected on-scene vehicle to stay put, got %v", a.Position)
	}
}

func TestAdvance_ZeroElapsed(t *testing.T) {
	a := movingAmbulance(StatusToScene, grid.Route{{X: 0, Y: 0}, {X: 100, Y: 0}})

	a.Advance(0)
	if a.RouteIndex != 0 {
		t.Errorf("Expected zero elapsed to be a no-op, got index %d", a.RouteIndex)
	}
}

func TestAmbulance_Transitions(t *testing.T) {
	a := newAmbulance(7, grid.Point{X: 10, Y: 10}, 150)
	if !a.Available() {
		t.Fatal("Expected new vehicle to be available")
	}

	assignment := &Assignment{EmergencyID: 3, PatientName: "Ada", LocationID: 9, Location: grid.Point{X: 50, Y: 50}}
	a.dispatch(assignment, grid.Route{{X: 10, Y: 10}, {X: 50, Y: 50}})
	if a.Status != StatusToScene || !a.Busy || a.Available() {
		t.Errorf("Expected busy TO_SCENE vehicle, got %s busy=%v", a.Status, a.Busy)
	}

	a.arrive(4)
	if a.Status != StatusOnScene || a.DwellRemaining != 4 || !a.routeExhausted() {
		t.Errorf("Expected ON_SCENE with full dwell, got %s dwell=%v", a.Status, a.DwellRemaining)
	}

	finished := a.clearScene(grid.Route{{X: 50, Y: 50}, {X: 10, Y: 10}})
	if finished != assignment {
		t.Error("Expected the cleared assignment to be returned")
	}
	if a.Status != StatusReturning || a.Assignment != nil || a.Completed != 1 {
		t.Errorf("Expected RETURNING without assignment, got %s %+v", a.Status, a.Assignment)
	}
	if !a.Busy {
		t.Error("Expected returning vehicle to remain busy")
	}

	a.Position = grid.Point{X: 12, Y: 11}
	if !a.arrivedAtParking() {
		t.Error("Expected vehicle within threshold to count as home")
	}
	a.park()
	if a.Status != StatusIdle || a.Busy || a.Route != nil || a.Position != a.Parking {
		t.Errorf("Expected parked idle vehicle, got %+v", a)
	}
}

func TestAmbulance_SnapshotFlattensAssignment(t *testing.T) {
	a := newAmbulance(2, grid.Point{X: 0, Y: 0}, 150)

	s := a.snapshot()
	if s.AssignedEmergencyID != NoAssignment || s.AssignedLocationID != NoAssignment || s.AssignedPatientName != "" || s.Destination != nil {
		t.Errorf("Expected sentinel assignment fields, got %+v", s)
	}

	a.dispatch(&Assignment{EmergencyID: 5, PatientName: "Bo", LocationID: 4, Location: grid.Point{X: 3, Y: 4}}, grid.Route{{X: 0, Y: 0}, {X: 3, Y: 4}})
	s = a.snapshot()
	if s.AssignedEmergencyID != 5 || s.AssignedPatientName != "Bo" || s.AssignedLocationID != 4 {
		t.Errorf("Expected assignment fields copied, got %+v", s)
	}
	if s.Destination == nil || *s.Destination != (grid.Point{X: 3, Y: 4}) {
		t.Errorf("Expected destination (3, 4), got %v", s.Destination)
	}
	if math.Abs(s.RemainingDistance-5) > floatTolerance {
		t.Errorf("Expected 5 units remaining, got %v", s.RemainingDistance)
	}
	if s.StatusLabel != "EN ROUTE" {
		t.Errorf("Expected EN ROUTE label, got %s", s.StatusLabel)
	}
}
