// Package mcp exposes the dispatch REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool handler issues one REST call and
// renders the JSON response as plain text for an agent. Failed calls become
// tool error results rather than protocol errors, so the agent sees the
// server's message (including per-field intake messages).
//
// MCP Tools:
//   - create_simulation, list_simulations, simulation_state
//   - submit_emergency, tick, advance, set_running
//   - pending_queue, fleet_status, activity_log, list_houses
//   - list_scenarios, dispatch_instructions
//
// Transport Modes:
//
// The same MCP server backs both transports wired in main:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode: POST /mcp carries one JSON-RPC message per request
//	response := client.GetMCPServer().HandleMessage(ctx, body)
package mcp
