package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Ambulance Fleet Dispatch",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Ambulance Fleet Dispatch - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A hospital runs a small fleet of ambulances on a street grid. Emergencies are
reported at houses, queued by severity and served by idle vehicles. Time only
moves when you tick or advance a simulation (or when it is resumed on the server).

AVAILABLE TOOLS:
- create_simulation: Start a new simulation from a scenario
- list_simulations: List running simulations
- simulation_state: Clock, fleet and pending queue of one simulation
- submit_emergency: Report an emergency at a house
- tick: Advance the clock by one step
- advance: Advance the clock by many fixed steps
- set_running: Pause or resume real-time ticking
- pending_queue: Emergencies waiting for a vehicle
- fleet_status: Vehicle positions and lifecycle states
- activity_log: Recent dispatch events, newest first
- list_houses: House ids that can be used as emergency locations
- list_scenarios: Available scenario files
- dispatch_instructions: Detailed rules of the dispatch model`),
	)

	c.registerTools()
}

func simulationIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Simulation ID",
	}
}

func (c *Client) registerTools() {
	// Simulation management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_simulation",
		Description: "Create a new simulation from a scenario (default scenario when omitted)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"scenario_id": map[string]interface{}{
					"type":        "string",
					"description": "Scenario to load, see list_scenarios (optional)",
				},
				"running": map[string]interface{}{
					"type":        "boolean",
					"description": "Start ticking in real time immediately (optional)",
				},
			},
		},
	}, c.handleCreateSimulation)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_simulations",
		Description: "List all active simulations",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSimulations)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "simulation_state",
		Description: "Get the clock, fleet and pending queue of a simulation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
			},
			Required: []string{"simulation_id"},
		},
	}, c.handleSimulationState)

	// Intake and clock
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "submit_emergency",
		Description: "Report an emergency. The form is validated before anything is queued.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
				"patient_name": map[string]interface{}{
					"type":        "string",
					"description": "Patient name (required, up to 32 characters)",
				},
				"age": map[string]interface{}{
					"type":        "string",
					"description": "Patient age as a number (required)",
				},
				"severity": map[string]interface{}{
					"type":        "string",
					"enum":        engine.Severities(),
					"description": "Severity label, anything else is treated as Normal",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Free text description (optional)",
				},
				"house": map[string]interface{}{
					"type":        "string",
					"description": "House id where the patient is, see list_houses (required)",
				},
			},
			Required: []string{"simulation_id", "patient_name", "age", "house"},
		},
	}, c.handleSubmitEmergency)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tick",
		Description: "Advance the simulation clock by one step of elapsed seconds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
				"elapsed": map[string]interface{}{
					"type":        "number",
					"description": "Elapsed seconds, must not be negative",
				},
			},
			Required: []string{"simulation_id", "elapsed"},
		},
	}, c.handleTick)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "advance",
		Description: "Advance the simulation by a number of seconds using fixed steps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
				"seconds": map[string]interface{}{
					"type":        "number",
					"description": "Total simulated seconds",
				},
				"step": map[string]interface{}{
					"type":        "number",
					"description": "Step size in seconds (optional, default 0.1)",
				},
			},
			Required: []string{"simulation_id", "seconds"},
		},
	}, c.handleAdvance)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "set_running",
		Description: "Pause or resume real-time ticking of a simulation",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
				"running": map[string]interface{}{
					"type":        "boolean",
					"description": "true to resume, false to pause",
				},
			},
			Required: []string{"simulation_id", "running"},
		},
	}, c.handleSetRunning)

	// Queries
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "pending_queue",
		Description: "List emergencies waiting for a vehicle in dispatch order",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
			},
			Required: []string{"simulation_id"},
		},
	}, c.handlePendingQueue)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "fleet_status",
		Description: "Show every vehicle with its status, position and assignment",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
			},
			Required: []string{"simulation_id"},
		},
	}, c.handleFleetStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "activity_log",
		Description: "Recent dispatch events, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
				"limit": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of events (optional)",
				},
			},
			Required: []string{"simulation_id"},
		},
	}, c.handleActivityLog)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_houses",
		Description: "List houses that can be used as emergency locations",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"simulation_id": simulationIDProperty(),
				"active_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Only houses with an emergency in progress",
				},
			},
			Required: []string{"simulation_id"},
		},
	}, c.handleListHouses)

	// Scenarios and help
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_scenarios",
		Description: "List available scenario files",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListScenarios)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dispatch_instructions",
		Description: "Explain how dispatch, movement and the vehicle lifecycle work",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleDispatchInstructions)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

type apiError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp apiError
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error == "" {
			return fmt.Errorf("API error: %d", resp.StatusCode)
		}
		if len(errResp.Fields) > 0 {
			return fmt.Errorf("%s", formatFieldErrors(errResp.Fields))
		}
		return fmt.Errorf("%s", errResp.Error)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

// stringArg accepts strings and JSON numbers, since agents often send ids as numbers
func stringArg(args map[string]interface{}, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func numberArg(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func simulationPath(args map[string]interface{}, suffix string) (string, error) {
	id := stringArg(args, "simulation_id")
	if id == "" {
		return "", fmt.Errorf("simulation_id is required")
	}
	return "/api/simulations/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateSimulation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	body := map[string]interface{}{}
	if scenario := stringArg(args, "scenario_id"); scenario != "" {
		body["scenario_id"] = scenario
	}
	if running, ok := args["running"].(bool); ok && running {
		body["running"] = true
	}

	var sim service.SimulationInfo
	if err := c.apiCall(ctx, "POST", "/api/simulations", body, &sim); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSimulationInfo(&sim)), nil
}

func (c *Client) handleListSimulations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count       int                       `json:"count"`
		Simulations []*service.SimulationInfo `json:"simulations"`
	}
	if err := c.apiCall(ctx, "GET", "/api/simulations", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Simulations) == 0 {
		return mcp.NewToolResultText("No active simulations"), nil
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Active simulations (%d):\n", response.Count))
	for _, sim := range response.Simulations {
		mode := "paused"
		if sim.Running {
			mode = "running"
		}
		line := fmt.Sprintf("- %s (%s, %s)", sim.ID, sim.ScenarioName, mode)
		if sim.State != nil {
			line += fmt.Sprintf(" clock %.1fs, pending %d, handled %d",
				sim.State.Clock, sim.State.PendingCount, sim.State.HandledCount)
		}
		result.WriteString(line + "\n")
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleSimulationState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := simulationPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.State
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleSubmitEmergency(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := simulationPath(args, "/emergencies")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]string{
		"patient_name": stringArg(args, "patient_name"),
		"age":          stringArg(args, "age"),
		"severity":     stringArg(args, "severity"),
		"description":  stringArg(args, "description"),
		"house":        stringArg(args, "house"),
	}

	var result service.SubmitResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError("Emergency rejected:\n" + err.Error()), nil
	}

	return mcp.NewToolResultText(formatSubmitResult(&result)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := simulationPath(args, "/tick")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	elapsed, ok := numberArg(args, "elapsed")
	if !ok {
		return mcp.NewToolResultError("elapsed is required"), nil
	}

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", path, map[string]float64{"elapsed": elapsed}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Ticked %.3fs, clock now %.2fs\n", result.Elapsed, result.Clock))
	out.WriteString(formatEvents(result.Events))
	return mcp.NewToolResultText(out.String()), nil
}

func (c *Client) handleAdvance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := simulationPath(args, "/advance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	seconds, ok := numberArg(args, "seconds")
	if !ok {
		return mcp.NewToolResultError("seconds is required"), nil
	}
	body := map[string]float64{"seconds": seconds}
	if step, ok := numberArg(args, "step"); ok {
		body["step"] = step
	}

	var result service.AdvanceResult
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatAdvanceResult(&result)), nil
}

func (c *Client) handleSetRunning(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	running, ok := args["running"].(bool)
	if !ok {
		return mcp.NewToolResultError("running must be true or false"), nil
	}
	suffix := "/pause"
	if running {
		suffix = "/resume"
	}
	path, err := simulationPath(args, suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sim service.SimulationInfo
	if err := c.apiCall(ctx, "POST", path, nil, &sim); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if sim.Running {
		return mcp.NewToolResultText(fmt.Sprintf("Simulation %s is running", sim.ID)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Simulation %s is paused", sim.ID)), nil
}

func (c *Client) handlePendingQueue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := simulationPath(arguments(request), "/queue")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var queue service.QueueResponse
	if err := c.apiCall(ctx, "GET", path, nil, &queue); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatQueue(&queue)), nil
}

func (c *Client) handleFleetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := simulationPath(arguments(request), "/fleet")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var fleet service.FleetResponse
	if err := c.apiCall(ctx, "GET", path, nil, &fleet); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatFleet(&fleet)), nil
}

func (c *Client) handleActivityLog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := simulationPath(args, "/activity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if limit, ok := numberArg(args, "limit"); ok {
		path += "?limit=" + strconv.Itoa(int(limit))
	}

	var response struct {
		Count    int            `json:"count"`
		Activity []engine.Event `json:"activity"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(response.Activity) == 0 {
		return mcp.NewToolResultText("No activity yet"), nil
	}
	return mcp.NewToolResultText(formatEvents(response.Activity)), nil
}

func (c *Client) handleListHouses(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := simulationPath(args, "/houses")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if active, _ := args["active_only"].(bool); active {
		path += "?active=true"
	}

	var response struct {
		Count  int                  `json:"count"`
		Houses []*service.HouseInfo `json:"houses"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHouses(response.Houses)), nil
}

func (c *Client) handleListScenarios(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var scenarios []*service.ScenarioInfo
	if err := c.apiCall(ctx, "GET", "/api/scenarios", nil, &scenarios); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(scenarios) == 0 {
		return mcp.NewToolResultText("No scenarios available"), nil
	}

	var result strings.Builder
	result.WriteString("Available scenarios:\n")
	for _, s := range scenarios {
		result.WriteString(fmt.Sprintf("- %s: %s (%dx%d blocks, %d vehicles)\n",
			s.ScenarioID, s.Name, s.BlocksX, s.BlocksY, s.FleetSize))
		if s.Description != "" {
			result.WriteString("  " + s.Description + "\n")
		}
	}
	return mcp.NewToolResultText(result.String()), nil
}

func (c *Client) handleDispatchInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Ambulance Fleet Dispatch - How It Works

CITY:
The city is a lattice of streets. Houses sit inside the blocks and are
numbered from 1, left to right and top to bottom. Vehicles only drive along
streets: every route goes from the start point to the nearest intersection,
along whole streets, and finally to the intersection nearest the target.

INTAKE:
An emergency needs a patient name, a numeric age and a house id. Severity is
Critical, High or Normal; any other value counts as Normal. A rejected form
changes nothing.

QUEUE:
Pending emergencies are served by priority (Critical first), then by the
time they were received.

DISPATCH (each tick):
While an emergency is pending and a vehicle is idle, the first pending
emergency is assigned to the idle vehicle closest to it. Ties go to the
lowest vehicle id.

VEHICLE LIFECYCLE:
IDLE -> EN ROUTE -> ON SCENE -> RETURNING -> IDLE
- EN ROUTE: drives to the house at full speed.
- ON SCENE: stays for a fixed dwell time, then the emergency is handled.
- RETURNING: drives back to its parking bay at reduced speed.

CLOCK:
tick advances the clock by the elapsed seconds given, in a single step.
Large steps let vehicles jump past waypoints, so prefer advance, which runs
many small fixed steps at once. Every tick runs dispatch, then movement,
then lifecycle updates.

TYPICAL LOOP:
1. create_simulation
2. list_houses to pick a location
3. submit_emergency
4. advance a few seconds and check activity_log or fleet_status`

	return mcp.NewToolResultText(instructions), nil
}

// Formatters

func formatSimulationInfo(sim *service.SimulationInfo) string {
	var result strings.Builder
	result.WriteString(fmt.Sprintf("Simulation: %s\nScenario: %s (%s)\nCreated: %s\nHouses: %d\n",
		sim.ID, sim.ScenarioName, sim.ScenarioID,
		sim.CreatedAt.Format("2006-01-02 15:04:05"), sim.HouseCount))
	if sim.Running {
		result.WriteString("Mode: running\n")
	} else {
		result.WriteString("Mode: paused (use tick or advance)\n")
	}
	if sim.State != nil {
		result.WriteString("\n")
		result.WriteString(formatState(sim.State))
	}
	return result.String()
}

func formatState(state *engine.State) string {
	if state == nil {
		return "No state available"
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Clock: %.2fs | Received: %d | Handled: %d | Pending: %d\n",
		state.Clock, state.ReceivedCount, state.HandledCount, state.PendingCount))
	result.WriteString(fmt.Sprintf("Hospital #%d at %s\n", state.HospitalID, state.HospitalLocation))
	result.WriteString(formatCounts(state.Counts))
	result.WriteString("\nFleet:\n")
	for _, v := range state.Fleet {
		result.WriteString(formatVehicleLine(v) + "\n")
	}
	if len(state.Pending) > 0 {
		result.WriteString("\nPending:\n")
		for _, e := range state.Pending {
			result.WriteString(formatEmergencyLine(e, state.Clock) + "\n")
		}
	}
	return result.String()
}

func formatCounts(c engine.StatusCounts) string {
	return fmt.Sprintf("Idle: %d | En route: %d | On scene: %d | Returning: %d\n",
		c.Idle, c.ToScene, c.OnScene, c.Returning)
}

func formatVehicleLine(v engine.VehicleSnapshot) string {
	line := fmt.Sprintf("  #%d %-9s at %s", v.ID, v.StatusLabel, v.Position)
	if v.Busy && v.AssignedEmergencyID != 0 {
		line += fmt.Sprintf(" -> emergency #%d (%s, house #%d)",
			v.AssignedEmergencyID, v.AssignedPatientName, v.AssignedLocationID)
	}
	if v.Status == engine.StatusOnScene {
		line += fmt.Sprintf(" %.1fs left", v.DwellRemaining)
	} else if v.RemainingDistance > 0 {
		line += fmt.Sprintf(" %.0f to go", v.RemainingDistance)
	}
	if v.Completed > 0 {
		line += fmt.Sprintf(" [%d done]", v.Completed)
	}
	return line
}

func formatEmergencyLine(e engine.Emergency, clock float64) string {
	return fmt.Sprintf("  #%d %s (%s, age %d) at house #%d, waiting %.1fs",
		e.ID, e.Patient.Name, severityLabel(e.Priority), e.Patient.Age,
		e.Patient.LocationID, clock-e.CreatedAt)
}

func severityLabel(priority int) string {
	switch priority {
	case engine.PriorityCritical:
		return engine.SeverityCritical
	case engine.PriorityHigh:
		return engine.SeverityHigh
	default:
		return engine.SeverityNormal
	}
}

func formatSubmitResult(result *service.SubmitResult) string {
	return fmt.Sprintf("%s\nEmergency ID: %d\nSeverity: %s (priority %d)\nLocation: %s\nPending: %d",
		result.Message, result.EmergencyID, result.Severity, result.Priority,
		result.Location, result.PendingCount)
}

func formatAdvanceResult(result *service.AdvanceResult) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Advanced %.2fs in %d ticks of %.3fs, clock now %.2fs\n",
		result.Seconds, result.Ticks, result.Step, result.Clock))
	if result.State != nil {
		out.WriteString(formatCounts(result.State.Counts))
	}
	out.WriteString(formatEvents(result.Events))
	return out.String()
}

func formatEvents(events []engine.Event) string {
	if len(events) == 0 {
		return "No events\n"
	}
	var out strings.Builder
	for _, e := range events {
		out.WriteString(fmt.Sprintf("[%7.2fs] %s\n", e.Clock, e.Message))
	}
	return out.String()
}

func formatQueue(queue *service.QueueResponse) string {
	if queue.Count == 0 {
		return "No pending emergencies"
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Pending emergencies: %d (oldest waiting %.1fs)\n", queue.Count, queue.OldestWait))
	priorities := make([]int, 0, len(queue.ByPriority))
	for p := range queue.ByPriority {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)
	for _, p := range priorities {
		out.WriteString(fmt.Sprintf("  %s: %d\n", severityLabel(p), queue.ByPriority[p]))
	}
	for i, e := range queue.Pending {
		out.WriteString(fmt.Sprintf("%d. #%d %s (%s) at house #%d\n",
			i+1, e.ID, e.Patient.Name, severityLabel(e.Priority), e.Patient.LocationID))
	}
	return out.String()
}

func formatFleet(fleet *service.FleetResponse) string {
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Fleet of %d, utilization %.0f%%\n", len(fleet.Fleet), fleet.Utilization*100))
	out.WriteString(formatCounts(fleet.Counts))
	for _, v := range fleet.Fleet {
		out.WriteString(formatVehicleLine(v) + "\n")
	}
	return out.String()
}

func formatHouses(houses []*service.HouseInfo) string {
	if len(houses) == 0 {
		return "No houses"
	}
	var out strings.Builder
	out.WriteString(fmt.Sprintf("Houses (%d):\n", len(houses)))
	for _, h := range houses {
		line := fmt.Sprintf("  #%d at %s", h.ID, h.Location)
		if h.Active {
			line += " [emergency in progress]"
		}
		out.WriteString(line + "\n")
	}
	return out.String()
}

func formatFieldErrors(fields map[string]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("- %s: %s", name, fields[name]))
	}
	return strings.Join(lines, "\n")
}
