// Package session stores the running dispatch simulations.
//
// Each simulation pairs an engine.Hospital with the city laid out from the
// same scenario, and records when it was created and last accessed. The
// Manager is safe for concurrent use; ids are matched case-insensitively.
//
//	manager := session.NewManager()
//	sim, err := manager.Create("", "default", engine.DefaultScenarioConfig())
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Generated ids are the first eight characters of a random UUID. Simulations
// live in memory only; CleanupExpiredSessions drops the ones nobody has
// touched within a TTL.
package session
