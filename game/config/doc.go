// Package config loads dispatch scenarios and process settings.
//
// Scenarios are JSON files in the configs directory. Each one describes the
// street grid, the hospital with its parking slots, vehicle speed, the
// on-scene dwell time, the activity log capacity and the city lot layout.
// Manager loads, validates, caches and saves them:
//
//	manager, err := config.NewManager("configs", "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	scenario, err := manager.LoadScenario("downtown")
//	scenarios, err := manager.ListScenarios()
//
// When the directory holds no valid scenario the built-in default is used:
// a 3x3 grid of 200 unit blocks at (100,100) with the hospital at (444,0) and
// four parking slots.
//
// Settings holds the process configuration (listen address, frame rate,
// logging, session TTL, ngrok tunnel). LoadSettings reads defaults, an
// optional ambulance.json file in the given directory and AMBULANCE_*
// environment variables through viper.
package config
