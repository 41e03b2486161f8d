// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// setupServer serves websocket connections for userID through hub.
func setupServer(t *testing.T, hub *Hub, userID string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		NewClient(hub, conn, userID).Start()
	}))
	t.Cleanup(server.Close)
	return server
}

// dialWebSocket establishes a WebSocket connection to the test server
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readMessage reads one JSON message with a deadline
func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read message: %v", err)
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("invalid JSON %q: %v", raw, err)
	}
	return msg
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	a := NewClient(hub, nil, "user-1")
	b := NewClient(hub, nil, "user-1")

	if a.UserID() != "user-1" {
		t.Errorf("UserID() = %q", a.UserID())
	}
	if b.ID() <= a.ID() {
		t.Errorf("client ids not increasing: %d then %d", a.ID(), b.ID())
	}
	if cap(a.send) != sendBuffer {
		t.Errorf("send capacity = %d, want %d", cap(a.send), sendBuffer)
	}
}

func TestClient_PushOverConnection(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	server := setupServer(t, hub, "user-1")
	conn := dialWebSocket(t, server)
	waitFor(t, func() bool { return hub.IsConnected("user-1") }, "registration")

	err := hub.SendPush(context.Background(), "user-1", "SOS alert", "Your contact pressed the panic button.", map[string]string{"alert_type": "panic"})
	if err != nil {
		t.Fatalf("SendPush() error = %v", err)
	}

	msg := readMessage(t, conn)
	if msg["type"] != MessageTypePush {
		t.Fatalf("type = %v, want push", msg["type"])
	}
	data, _ := msg["data"].(map[string]interface{})
	if data["title"] != "SOS alert" {
		t.Errorf("title = %v", data["title"])
	}
}

func TestClient_PingPong(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	server := setupServer(t, hub, "user-1")
	conn := dialWebSocket(t, server)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("Failed to write ping: %v", err)
	}
	if msg := readMessage(t, conn); msg["type"] != MessageTypePong {
		t.Errorf("type = %v, want pong", msg["type"])
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	server := setupServer(t, hub, "user-1")
	conn := dialWebSocket(t, server)
	waitFor(t, func() bool { return hub.IsConnected("user-1") }, "registration")

	_ = conn.Close()
	waitFor(t, func() bool { return !hub.IsConnected("user-1") }, "unregistration")
}

func TestClient_Constants(t *testing.T) {
	t.Parallel()

	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
}
