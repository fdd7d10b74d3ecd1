// Package api provides the HTTP REST API for the dispatch simulator.
//
// Endpoints:
//
// Simulations:
//   - POST   /api/simulations                 create ({"scenario_id": "...", "running": true})
//   - GET    /api/simulations                 list (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET    /api/simulations/{id}            details with the current state
//   - DELETE /api/simulations/{id}            remove
//
// Intake and clock:
//   - POST /api/simulations/{id}/emergencies  submit an intake form
//   - POST /api/simulations/{id}/tick         {"elapsed": 0.1}
//   - POST /api/simulations/{id}/advance      {"seconds": 30, "step": 0.1}
//   - POST /api/simulations/{id}/pause        stop the frame clock for this simulation
//   - POST /api/simulations/{id}/resume       let the frame clock tick it
//
// Queries:
//   - GET /api/simulations/{id}/state         full display snapshot
//   - GET /api/simulations/{id}/queue         pending emergencies in dispatch order
//   - GET /api/simulations/{id}/fleet         vehicle snapshots and status counts
//   - GET /api/simulations/{id}/activity      activity log, newest first (?limit=N)
//   - GET /api/simulations/{id}/houses        houses and their emergency locations (?active=true)
//
// Scenarios:
//   - GET  /api/scenarios                     list scenario files
//   - GET  /api/scenarios/{name}              full scenario
//   - POST /api/scenarios                     validate and save (?id=name)
//
// Live feed:
//   - GET /ws?simulation={id}                 websocket stream of state updates and events
//
// Intake form body:
//
//	{
//	  "patient_name": "Ada",
//	  "age": "34",
//	  "severity": "Critical",
//	  "description": "Chest pain",
//	  "house": "12"
//	}
//
// Error Handling:
//
// Errors are returned as {"error": "message"}. Unknown simulations, scenarios
// and houses give 404; invalid elapsed values and scenarios give 400. A
// rejected intake form gives 400 with the message for every failing field:
//
//	{
//	  "error": "validation failed: ...",
//	  "fields": {"patient_name": "Name required", "house": "House not found"}
//	}
package api
