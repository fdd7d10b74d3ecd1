package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/ambulance-fleet/game/engine"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending outbound messages per client and for the hub.
	sendBuffer      = 256
	broadcastBuffer = 1024
)

// Message types sent to display clients
const (
	TypeStateUpdate = "state_update"
	TypeEvent       = "event"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message represents a WebSocket message
type Message struct {
	SimulationID string         `json:"simulation_id"`
	Type         string         `json:"type"`
	State        *engine.State  `json:"state,omitempty"`
	Events       []engine.Event `json:"events,omitempty"`
}

// Client represents a WebSocket client
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	simulationID string
}

// Hub keeps the display clients of every simulation and fans out frames to them.
// All client sets are mutated on the Run goroutine.
type Hub struct {
	// Registered clients by lower-cased simulation ID
	simulations map[string]map[*Client]bool
	mu          sync.RWMutex

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger zerolog.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		simulations: make(map[string]map[*Client]bool),
		broadcast:   make(chan *Message, broadcastBuffer),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger.With().Str("component", "websocket").Logger(),
	}
}

// Run starts the hub's event loop and closes every client when ctx ends
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return nil

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// ServeWS upgrades the request and attaches the client to a simulation.
// A non-nil initial state is the first message the client receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, simulationID string, initial *engine.State) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:          h,
		conn:         conn,
		send:         make(chan []byte, sendBuffer),
		simulationID: simulationID,
	}

	if initial != nil {
		if data, err := encode(&Message{SimulationID: simulationID, Type: TypeStateUpdate, State: initial}); err == nil {
			client.send <- data
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// PublishState queues a state update for the clients of a simulation
func (h *Hub) PublishState(simulationID string, state *engine.State) {
	h.publish(&Message{SimulationID: simulationID, Type: TypeStateUpdate, State: state})
}

// PublishEvents queues activity events for the clients of a simulation
func (h *Hub) PublishEvents(simulationID string, events []engine.Event) {
	h.publish(&Message{SimulationID: simulationID, Type: TypeEvent, Events: events})
}

// publish never blocks the frame clock; messages are dropped when the hub falls behind
func (h *Hub) publish(message *Message) {
	if h.ClientCount(message.SimulationID) == 0 {
		return
	}
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn().Str("simulation", message.SimulationID).Str("type", message.Type).Msg("broadcast queue full, dropping message")
	}
}

// ClientCount returns the number of clients watching a simulation
func (h *Hub) ClientCount(simulationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.simulations[key(simulationID)])
}

func key(simulationID string) string {
	return strings.ToLower(simulationID)
}

func encode(message *Message) ([]byte, error) {
	return json.Marshal(message)
}

// registerClient adds a client to a simulation
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	k := key(client.simulationID)
	if h.simulations[k] == nil {
		h.simulations[k] = make(map[*Client]bool)
	}
	h.simulations[k][client] = true

	h.logger.Debug().
		Str("simulation", client.simulationID).
		Int("clients", len(h.simulations[k])).
		Msg("client registered")
}

// unregisterClient removes a client from a simulation
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	k := key(client.simulationID)
	clients, ok := h.simulations[k]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.simulations, k)
	}

	h.logger.Debug().
		Str("simulation", client.simulationID).
		Int("clients", len(clients)).
		Msg("client unregistered")
}

// broadcastMessage sends a message to all clients of a simulation
func (h *Hub) broadcastMessage(message *Message) {
	data, err := encode(message)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.simulations[key(message.SimulationID)] {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, drop it
			h.removeLocked(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.simulations {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// readPump drains the connection so pongs and close frames are processed
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug().Err(err).Str("simulation", c.simulationID).Msg("websocket read error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// Each queued message is written as its own frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
