package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/wricardo/ambulance-fleet/game/engine"
)

func newTestClient(hub *Hub, simulationID string) *Client {
	return &Client{
		hub:          hub,
		simulationID: simulationID,
		send:         make(chan []byte, sendBuffer),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	if hub.simulations == nil {
		t.Error("Hub simulations map is nil")
	}
	if hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Error("Hub channels not initialized")
	}
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(hub, "Sim-1")

	hub.registerClient(client)

	if !hub.simulations["sim-1"][client] {
		t.Error("Client was not registered under the lower-cased id")
	}
	if hub.ClientCount("SIM-1") != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount("SIM-1"))
	}
}

func TestHubUnregisterClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client := newTestClient(hub, "test-sim")

	hub.registerClient(client)
	hub.unregisterClient(client)

	if _, exists := hub.simulations["test-sim"]; exists {
		t.Error("Simulation entry should be removed after its last client leaves")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel to be closed")
	}

	// unregistering twice is harmless
	hub.unregisterClient(client)
}

func TestHubMultipleClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	client1 := newTestClient(hub, "multi")
	client2 := newTestClient(hub, "multi")
	other := newTestClient(hub, "other")

	hub.registerClient(client1)
	hub.registerClient(client2)
	hub.registerClient(other)

	hub.broadcastMessage(&Message{SimulationID: "multi", Type: TypeEvent, Events: []engine.Event{{Kind: engine.EventVehicleParked, VehicleID: 2}}})

	for i, c := range []*Client{client1, client2} {
		select {
		case data := <-c.send:
			var msg Message
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("client %d: unmarshal failed: %v", i+1, err)
			}
			if msg.Type != TypeEvent || len(msg.Events) != 1 || msg.Events[0].VehicleID != 2 {
				t.Errorf("client %d: unexpected message %+v", i+1, msg)
			}
		default:
			t.Errorf("client %d received nothing", i+1)
		}
	}

	select {
	case <-other.send:
		t.Error("Client of another simulation should not receive the message")
	default:
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := &Client{hub: hub, simulationID: "slow", send: make(chan []byte, 1)}
	hub.registerClient(slow)

	msg := &Message{SimulationID: "slow", Type: TypeStateUpdate, State: &engine.State{}}
	hub.broadcastMessage(msg)
	hub.broadcastMessage(msg)

	if hub.ClientCount("slow") != 0 {
		t.Error("Expected client with a full buffer to be dropped")
	}
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	hub.PublishState("nobody", &engine.State{})

	if len(hub.broadcast) != 0 {
		t.Error("Messages for simulations without clients should not be queued")
	}
}

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("simulation")
		hub.ServeWS(w, r, id, &engine.State{Clock: 1.5})
	}))

	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, simulationID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?simulation=" + simulationID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read WebSocket message: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Failed to unmarshal message: %v", err)
	}
	return msg
}

func waitForClients(t *testing.T, hub *Hub, simulationID string, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for hub.ClientCount(simulationID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients for %s, got %d", want, simulationID, hub.ClientCount(simulationID))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWebSocketInitialStateAndUpdates(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "ws-test")
	defer conn.Close()

	initial := readMessage(t, conn)
	if initial.Type != TypeStateUpdate || initial.State == nil || initial.State.Clock != 1.5 {
		t.Fatalf("Unexpected initial message: %+v", initial)
	}

	waitForClients(t, hub, "ws-test", 1)

	hub.PublishState("ws-test", &engine.State{Clock: 3, PendingCount: 2})
	update := readMessage(t, conn)
	if update.SimulationID != "ws-test" || update.State.Clock != 3 || update.State.PendingCount != 2 {
		t.Errorf("Unexpected state update: %+v", update)
	}

	hub.PublishEvents("ws-test", []engine.Event{{Kind: engine.EventEmergencyHandled, EmergencyID: 7}})
	event := readMessage(t, conn)
	if event.Type != TypeEvent || len(event.Events) != 1 || event.Events[0].EmergencyID != 7 {
		t.Errorf("Unexpected event message: %+v", event)
	}
}

func TestWebSocketDisconnectCleansUp(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server, "bye")
	readMessage(t, conn)
	waitForClients(t, hub, "bye", 1)

	conn.Close()
	waitForClients(t, hub, "bye", 0)
}
