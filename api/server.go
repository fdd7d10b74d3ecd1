package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/wricardo/ambulance-fleet/game/city"
	"github.com/wricardo/ambulance-fleet/game/config"
	"github.com/wricardo/ambulance-fleet/game/engine"
	"github.com/wricardo/ambulance-fleet/game/intake"
	"github.com/wricardo/ambulance-fleet/game/service"
	"github.com/wricardo/ambulance-fleet/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.DispatchService
	hub     *websocket.Hub
	router  *mux.Router
	logger  zerolog.Logger
}

// NewServer creates a new API server. hub may be nil when no display feed is wanted.
func NewServer(dispatchService service.DispatchService, hub *websocket.Hub, logger zerolog.Logger) *Server {
	s := &Server{
		service: dispatchService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Simulation management
	api.HandleFunc("/simulations", s.handleCreateSimulation).Methods("POST")
	api.HandleFunc("/simulations", s.handleListSimulations).Methods("GET")
	api.HandleFunc("/simulations/{id}", s.handleGetSimulation).Methods("GET")
	api.HandleFunc("/simulations/{id}", s.handleDeleteSimulation).Methods("DELETE")

	// Intake and clock
	api.HandleFunc("/simulations/{id}/emergencies", s.handleSubmitEmergency).Methods("POST")
	api.HandleFunc("/simulations/{id}/tick", s.handleTick).Methods("POST")
	api.HandleFunc("/simulations/{id}/advance", s.handleAdvance).Methods("POST")
	api.HandleFunc("/simulations/{id}/pause", s.handleSetRunning(false)).Methods("POST")
	api.HandleFunc("/simulations/{id}/resume", s.handleSetRunning(true)).Methods("POST")

	// Queries
	api.HandleFunc("/simulations/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/simulations/{id}/queue", s.handleGetQueue).Methods("GET")
	api.HandleFunc("/simulations/{id}/fleet", s.handleGetFleet).Methods("GET")
	api.HandleFunc("/simulations/{id}/activity", s.handleGetActivity).Methods("GET")
	api.HandleFunc("/simulations/{id}/houses", s.handleListHouses).Methods("GET")

	// Scenarios
	api.HandleFunc("/scenarios", s.handleListScenarios).Methods("GET")
	api.HandleFunc("/scenarios", s.handleSaveScenario).Methods("POST")
	api.HandleFunc("/scenarios/{name}", s.handleGetScenario).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the mux router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors to status codes. Rejected intake
// forms carry the per-field messages.
func respondServiceError(w http.ResponseWriter, err error) {
	var verr *intake.ValidationError
	if errors.As(err, &verr) {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  err.Error(),
			"fields": verr.Fields(),
		})
		return
	}
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSimulationNotFound),
		errors.Is(err, config.ErrScenarioNotFound),
		errors.Is(err, city.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidElapsed),
		errors.Is(err, service.ErrInvalidStep),
		errors.Is(err, config.ErrInvalidScenario):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publish pushes fresh output to display clients watching the simulation
func (s *Server) publish(simulationID string, state *engine.State, events []engine.Event) {
	if s.hub == nil {
		return
	}
	if len(events) > 0 {
		s.hub.PublishEvents(simulationID, events)
	}
	if state != nil {
		s.hub.PublishState(simulationID, state)
	}
}

// Simulation Handlers

func (s *Server) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id,omitempty"`
		Running    bool   `json:"running,omitempty"`
	}

	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	sim, err := s.service.CreateSimulation(r.Context(), req.ScenarioID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if req.Running {
		if sim, err = s.service.SetRunning(r.Context(), sim.ID, true); err != nil {
			respondServiceError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusCreated, sim)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	sims, err := s.service.ListSimulations(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of simulations to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.SliceStable(sims, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sims[i].CreatedAt, sims[j].CreatedAt
		} else {
			ti, tj = sims[i].LastAccessedAt, sims[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sims)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sims) {
			sims = sims[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(sims),
		"total":       total,
		"simulations": sims,
		"sort":        sortBy,
		"order":       order,
	})
}

func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	sim, err := s.service.GetSimulation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sim)
}

func (s *Server) handleDeleteSimulation(w http.ResponseWriter, r *http.Request) {
	simulationID := mux.Vars(r)["id"]

	if err := s.service.DeleteSimulation(r.Context(), simulationID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Simulation %s deleted", simulationID),
	})
}

// Intake and Clock Handlers

func (s *Server) handleSubmitEmergency(w http.ResponseWriter, r *http.Request) {
	simulationID := mux.Vars(r)["id"]

	var form intake.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.SubmitEmergency(r.Context(), simulationID, form)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if state, err := s.service.GetState(r.Context(), simulationID); err == nil {
		s.publish(simulationID, state, nil)
	}

	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	simulationID := mux.Vars(r)["id"]

	var req struct {
		Elapsed *float64 `json:"elapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Elapsed == nil {
		respondError(w, http.StatusBadRequest, "Request body must contain elapsed seconds")
		return
	}

	result, err := s.service.Tick(r.Context(), simulationID, *req.Elapsed)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.publish(simulationID, result.State, result.Events)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	simulationID := mux.Vars(r)["id"]

	var req struct {
		Seconds float64 `json:"seconds"`
		Step    float64 `json:"step,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.service.Advance(r.Context(), simulationID, req.Seconds, req.Step)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.publish(simulationID, result.State, result.Events)
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSetRunning(running bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sim, err := s.service.SetRunning(r.Context(), mux.Vars(r)["id"], running)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, sim)
	}
}

// Query Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleGetQueue(w http.ResponseWriter, r *http.Request) {
	queue, err := s.service.GetQueue(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, queue)
}

func (s *Server) handleGetFleet(w http.ResponseWriter, r *http.Request) {
	fleet, err := s.service.GetFleet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fleet)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = l
	}

	activity, err := s.service.GetActivity(r.Context(), mux.Vars(r)["id"], limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(activity),
		"activity": activity,
	})
}

func (s *Server) handleListHouses(w http.ResponseWriter, r *http.Request) {
	houses, err := s.service.ListHouses(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if r.URL.Query().Get("active") == "true" {
		active := make([]*service.HouseInfo, 0)
		for _, h := range houses {
			if h.Active {
				active = append(active, h)
			}
		}
		houses = active
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(houses),
		"houses": houses,
	})
}

// Scenario Handlers

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := s.service.ListScenarios(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if scenarios == nil {
		scenarios = []*service.ScenarioInfo{}
	}
	respondJSON(w, http.StatusOK, scenarios)
}

func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	scenario, err := s.service.LoadScenario(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, scenario)
}

func (s *Server) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	var scenario engine.ScenarioConfig
	if err := json.NewDecoder(r.Body).Decode(&scenario); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	scenarioID := r.URL.Query().Get("id")
	if scenarioID == "" {
		scenarioID = scenario.Name
	}
	if scenarioID == "" {
		respondError(w, http.StatusBadRequest, "Scenario name is required")
		return
	}

	if err := s.service.SaveScenario(r.Context(), scenarioID, &scenario); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Scenario saved successfully",
		"scenario_id": scenarioID,
	})
}

// WebSocket Handler
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live feed disabled", http.StatusServiceUnavailable)
		return
	}

	simulationID := r.URL.Query().Get("simulation")
	if simulationID == "" {
		http.Error(w, "simulation parameter required", http.StatusBadRequest)
		return
	}

	state, err := s.service.GetState(r.Context(), simulationID)
	if err != nil {
		http.Error(w, "Invalid simulation", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, simulationID, state)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
