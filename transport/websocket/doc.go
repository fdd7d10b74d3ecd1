// Package websocket streams simulation snapshots to display clients.
//
// A Hub keeps one client set per simulation. Clients connect with the
// simulation id (the API serves /ws?simulation=<id>), receive the current
// state immediately, and then get two kinds of JSON messages:
//
//	{"simulation_id": "3f9a1c2e", "type": "state_update", "state": {...}}
//	{"simulation_id": "3f9a1c2e", "type": "event", "events": [...]}
//
// The frame clock publishes through PublishState and PublishEvents, which
// never block: when the hub falls behind, messages are dropped, and a client
// whose buffer is full is disconnected.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("simulation"), nil)
//	})
package websocket
