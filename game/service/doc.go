// Package service provides the dispatch simulation layer between the
// transports (HTTP, WebSocket, MCP, frame clock) and the engine.
//
// The service package implements:
//   - Creating, listing and deleting simulations built from scenarios
//   - Intake: validating a submitted form against the simulation's city
//     before the engine ever sees it
//   - Advancing simulated time, one tick or many fixed steps at once
//   - Read-only views of the queue, fleet, activity log and houses
//
// Core Interfaces:
//
// DispatchService is the interface the transports use. SimulationManager
// stores simulations (game/session implements it) and ScenarioStore loads
// scenario files (game/config implements it).
//
// Concurrency:
//
// The engine is single-threaded. Every call that touches a Hospital takes the
// service mutex, so a tick from the frame clock never interleaves with an
// intake from the API.
//
// Usage:
//
//	scenarios, err := config.NewManager("configs", "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	svc := service.NewDispatchService(session.NewManager(), scenarios, logger)
//
//	sim, err := svc.CreateSimulation(ctx, "default")
//	result, err := svc.SubmitEmergency(ctx, sim.ID, intake.Form{
//		PatientName: "Ada",
//		Age:         "34",
//		Severity:    "Critical",
//		House:       "12",
//	})
//	advanced, err := svc.Advance(ctx, sim.ID, 30, 0.1)
//
// Counters for received, assigned and handled emergencies and ticks are
// recorded through the global OpenTelemetry meter.
package service
