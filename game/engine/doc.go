// Package engine provides the dispatch and vehicle lifecycle engine for the
// ambulance fleet simulation.
//
// The engine package implements:
//   - Emergency intake with sequential ids and severity based priority
//   - A greedy, priority first assignment pass matching pending emergencies
//     to the nearest idle vehicle
//   - The per-vehicle state machine IDLE, TO_SCENE, ON_SCENE, RETURNING
//   - Scenario configuration loading and validation
//
// Core Types:
//
// The Engine interface defines the contract the simulation service drives,
// implemented by Hospital. A Hospital owns its fleet of Ambulance values and
// the pending queue; callers only ever receive copies (VehicleSnapshot,
// Emergency, State).
//
// Usage:
//
//	scenario := engine.DefaultScenarioConfig()
//	hospital, err := engine.NewHospital(scenario.HospitalConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	id := hospital.SubmitEmergency(engine.PatientInfo{Name: "Ada", Severity: "Critical", LocationID: 7}, location)
//	for i := 0; i < 60; i++ {
//		hospital.Tick(1.0 / 60)
//	}
//	fmt.Println(id, hospital.StatusCounts())
//
// Tick Order:
//
// Each Tick runs the assignment pass, then moves every vehicle, then applies
// at most one lifecycle transition per vehicle. The engine is not safe for
// concurrent use; the service layer serializes access.
package engine
