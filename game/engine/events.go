package engine

import "fmt"

// EventKind identifies what happened during intake or a tick
type EventKind string

const (
	EventEmergencyReceived EventKind = "emergency_received"
	EventVehicleDispatched EventKind = "vehicle_dispatched"
	EventVehicleOnScene    EventKind = "vehicle_on_scene"
	EventEmergencyHandled  EventKind = "emergency_handled"
	EventVehicleParked     EventKind = "vehicle_parked"
)

// Event is one entry in the hospital's activity log
type Event struct {
	Seq         int       `json:"seq"`
	Clock       float64   `json:"clock"`
	Kind        EventKind `json:"kind"`
	EmergencyID int       `json:"emergency_id,omitempty"`
	VehicleID   int       `json:"vehicle_id,omitempty"`
	PatientName string    `json:"patient_name,omitempty"`
	Severity    string    `json:"severity,omitempty"`
	Priority    int       `json:"priority,omitempty"`
	LocationID  int       `json:"location_id,omitempty"`
	Message     string    `json:"message"`
}

// activityLog is a bounded log that keeps the newest entries
type activityLog struct {
	capacity int
	entries  []Event // oldest first
	nextSeq  int
}

func newActivityLog(capacity int) *activityLog {
	if capacity <= 0 {
		capacity = DefaultActivityLogSize
	}
	return &activityLog{capacity: capacity, nextSeq: 1}
}

func (l *activityLog) record(e Event) Event {
	e.Seq = l.nextSeq
	l.nextSeq++
	l.entries = append(l.entries, e)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
	return e
}

// newest returns up to limit entries, newest first. limit <= 0 means all.
func (l *activityLog) newest(limit int) []Event {
	n := len(l.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, 0, n)
	for i := len(l.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

func receivedMessage(e Emergency) string {
	return fmt.Sprintf("%s (%s) - Hospital", e.Patient.Name, e.Patient.Severity)
}

func dispatchedMessage(vehicleID int, e Emergency) string {
	return fmt.Sprintf("Ambulance #%d en route to location #%d for %s", vehicleID, e.Patient.LocationID, e.Patient.Name)
}

func onSceneMessage(vehicleID int, a *Assignment) string {
	return fmt.Sprintf("Ambulance #%d on scene at location #%d", vehicleID, a.LocationID)
}

func handledMessage(vehicleID int, a *Assignment) string {
	return fmt.Sprintf("Ambulance #%d cleared emergency #%d, returning to hospital", vehicleID, a.EmergencyID)
}

func parkedMessage(vehicleID int) string {
	return fmt.Sprintf("Ambulance #%d parked and available", vehicleID)
}
