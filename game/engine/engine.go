package engine

import (
	"math"

	"github.com/wricardo/ambulance-fleet/game/grid"
)

// Engine provides the main interface for dispatch operations
type Engine interface {
	// Intake
	SubmitEmergency(patient PatientInfo, location grid.Point) int
	ReceiveEmergency(e Emergency) int

	// Simulation step
	Tick(elapsed float64) []Event

	// Queries
	PendingSnapshot() []Emergency
	Fleet() []VehicleSnapshot
	PendingCount() int
	Handled() int
	Received() int
	Location() grid.Point
	Clock() float64
	StatusCounts() StatusCounts
	Activity(limit int) []Event
	State() State
}

// Hospital owns the pending queue and the vehicle fleet
type Hospital struct {
	id             int
	location       grid.Point
	grid           grid.Grid
	onSceneSeconds float64
	fleet          []*Ambulance
	queue          pendingQueue
	nextID         int
	handled        int
	received       int
	clock          float64
	activity       *activityLog
}

// NewHospital creates a hospital and parks one vehicle on each configured slot
func NewHospital(config HospitalConfig) (*Hospital, error) {
	if err := ValidateHospitalConfig(&config); err != nil {
		return nil, err
	}

	h := &Hospital{
		id:             config.ID,
		location:       config.Location,
		grid:           config.Grid,
		onSceneSeconds: config.OnSceneSeconds,
		fleet:          make([]*Ambulance, 0, len(config.Parking)),
		nextID:         1,
		activity:       newActivityLog(config.ActivityLogSize),
	}

	vehicleID := config.FirstVehicleID
	for _, slot := range config.Parking {
		h.fleet = append(h.fleet, newAmbulance(vehicleID, slot, config.VehicleSpeed))
		vehicleID++
	}

	return h, nil
}

// SubmitEmergency resolves priority from the severity label and queues the emergency
func (h *Hospital) SubmitEmergency(patient PatientInfo, location grid.Point) int {
	return h.ReceiveEmergency(Emergency{
		Patient:          patient,
		Location:         location,
		Priority:         PriorityFor(patient.Severity),
		AssignedHospital: h.id,
	})
}

// ReceiveEmergency queues a caller-resolved emergency, assigning its id and creation time
func (h *Hospital) ReceiveEmergency(e Emergency) int {
	e.ID = h.nextID
	h.nextID++
	e.CreatedAt = h.clock
	h.queue.push(e)
	h.received++

	h.activity.record(Event{
		Clock:       h.clock,
		Kind:        EventEmergencyReceived,
		EmergencyID: e.ID,
		PatientName: e.Patient.Name,
		Severity:    e.Patient.Severity,
		Priority:    e.Priority,
		LocationID:  e.Patient.LocationID,
		Message:     receivedMessage(e),
	})

	return e.ID
}

// Tick advances the simulation by elapsed seconds.
// The assignment pass runs before movement so emergencies received since the
// last tick can be dispatched immediately. Negative or non-finite values are
// treated as zero.
func (h *Hospital) Tick(elapsed float64) []Event {
	if elapsed < 0 || math.IsNaN(elapsed) || math.IsInf(elapsed, 0) {
		elapsed = 0
	}
	h.clock += elapsed

	var events []Event
	events = append(events, h.DispatchVehicles()...)
	h.MoveFleet(elapsed)
	events = append(events, h.UpdateAfterMovement(elapsed)...)
	return events
}

// DispatchVehicles runs one assignment pass over the whole pending queue
func (h *Hospital) DispatchVehicles() []Event {
	if h.queue.len() == 0 {
		return nil
	}

	var events []Event
	var backlog []Emergency

	for _, e := range h.queue.drain() {
		idx := h.nearestAvailable(e.Location)
		if idx < 0 {
			backlog = append(backlog, e)
			continue
		}

		amb := h.fleet[idx]
		amb.dispatch(assignmentFor(e, h.clock), h.grid.PlanRoute(amb.Position, e.Location))

		events = append(events, h.activity.record(Event{
			Clock:       h.clock,
			Kind:        EventVehicleDispatched,
			EmergencyID: e.ID,
			VehicleID:   amb.ID,
			PatientName: e.Patient.Name,
			Severity:    e.Patient.Severity,
			Priority:    e.Priority,
			LocationID:  e.Patient.LocationID,
			Message:     dispatchedMessage(amb.ID, e),
		}))
	}

	h.queue.rebuild(backlog)
	return events
}

// MoveFleet advances every vehicle along its route
func (h *Hospital) MoveFleet(elapsed float64) {
	for _, amb := range h.fleet {
		amb.Advance(elapsed)
	}
}

// UpdateAfterMovement applies at most one lifecycle transition per vehicle
func (h *Hospital) UpdateAfterMovement(elapsed float64) []Event {
	var events []Event

	for _, amb := range h.fleet {
		switch amb.Status {
		case StatusToScene:
			if !amb.arrivedAtScene() {
				continue
			}
			amb.arrive(h.onSceneSeconds)
			events = append(events, h.activity.record(Event{
				Clock:       h.clock,
				Kind:        EventVehicleOnScene,
				EmergencyID: amb.Assignment.EmergencyID,
				VehicleID:   amb.ID,
				PatientName: amb.Assignment.PatientName,
				Priority:    amb.Assignment.Priority,
				LocationID:  amb.Assignment.LocationID,
				Message:     onSceneMessage(amb.ID, amb.Assignment),
			}))

		case StatusOnScene:
			amb.DwellRemaining -= elapsed
			// epsilon absorbs float drift: forty 0.1s ticks must end a 4s dwell
			if amb.DwellRemaining > dwellEpsilon {
				continue
			}
			finished := amb.clearScene(h.grid.PlanRoute(amb.Position, amb.Parking))
			h.handled++
			events = append(events, h.activity.record(Event{
				Clock:       h.clock,
				Kind:        EventEmergencyHandled,
				EmergencyID: finished.EmergencyID,
				VehicleID:   amb.ID,
				PatientName: finished.PatientName,
				Priority:    finished.Priority,
				LocationID:  finished.LocationID,
				Message:     handledMessage(amb.ID, finished),
			}))

		case StatusReturning:
			if !amb.arrivedAtParking() {
				continue
			}
			amb.park()
			events = append(events, h.activity.record(Event{
				Clock:     h.clock,
				Kind:      EventVehicleParked,
				VehicleID: amb.ID,
				Message:   parkedMessage(amb.ID),
			}))
		}
	}

	return events
}

// nearestAvailable returns the fleet index of the closest available vehicle, or -1.
// Ties resolve to the lowest index.
func (h *Hospital) nearestAvailable(target grid.Point) int {
	best := -1
	bestDist := math.Inf(1)
	for i, amb := range h.fleet {
		if !amb.Available() {
			continue
		}
		if d := grid.Distance(amb.Position, target); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// PendingSnapshot returns the queue contents in dispatch order without modifying it
func (h *Hospital) PendingSnapshot() []Emergency {
	return h.queue.snapshot()
}

// Fleet returns a snapshot of every vehicle in fleet order
func (h *Hospital) Fleet() []VehicleSnapshot {
	out := make([]VehicleSnapshot, len(h.fleet))
	for i, amb := range h.fleet {
		out[i] = amb.snapshot()
	}
	return out
}

// Vehicle returns the snapshot of the vehicle with the given id
func (h *Hospital) Vehicle(id int) (VehicleSnapshot, bool) {
	for _, amb := range h.fleet {
		if amb.ID == id {
			return amb.snapshot(), true
		}
	}
	return VehicleSnapshot{}, false
}

// PendingCount returns the number of queued emergencies
func (h *Hospital) PendingCount() int {
	return h.queue.len()
}

// IsPending reports whether an emergency is still waiting for a vehicle
func (h *Hospital) IsPending(id int) bool {
	return h.queue.contains(id)
}

// Handled returns the cumulative number of cleared emergencies
func (h *Hospital) Handled() int {
	return h.handled
}

// Received returns the cumulative number of intakes
func (h *Hospital) Received() int {
	return h.received
}

// Location returns the hospital's world position
func (h *Hospital) Location() grid.Point {
	return h.location
}

// ID returns the hospital's identifier
func (h *Hospital) ID() int {
	return h.id
}

// Grid returns the road lattice the fleet drives on
func (h *Hospital) Grid() grid.Grid {
	return h.grid
}

// Clock returns the simulation time in seconds
func (h *Hospital) Clock() float64 {
	return h.clock
}

// FleetSize returns the number of vehicles
func (h *Hospital) FleetSize() int {
	return len(h.fleet)
}

// StatusCounts tallies the fleet by lifecycle state
func (h *Hospital) StatusCounts() StatusCounts {
	var counts StatusCounts
	for _, amb := range h.fleet {
		counts.add(amb.Status)
	}
	return counts
}

// Activity returns up to limit log entries, newest first
func (h *Hospital) Activity(limit int) []Event {
	return h.activity.newest(limit)
}

// State returns the full display snapshot
func (h *Hospital) State() State {
	return State{
		Clock:            h.clock,
		HospitalID:       h.id,
		HospitalLocation: h.location,
		Fleet:            h.Fleet(),
		Pending:          h.PendingSnapshot(),
		PendingCount:     h.PendingCount(),
		HandledCount:     h.handled,
		ReceivedCount:    h.received,
		Counts:           h.StatusCounts(),
		Activity:         h.Activity(0),
	}
}
