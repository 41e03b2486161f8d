// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/traveal/internal/logging"
	"github.com/tomtom215/traveal/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypePush        = "push"
	MessageTypeAlertUpdate = "alert_update"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Errors returned by SendPush.
var (
	ErrNotConnected = errors.New("user has no live connection")
	ErrQueueFull    = errors.New("websocket delivery queue full")
)

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PushData is the payload of a push message.
type PushData struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// envelope addresses a message to every connection of one user.
type envelope struct {
	userID string
	msg    Message
}

// Hub tracks live connections per user and routes messages to them.
// A user may be connected from several devices at once.
type Hub struct {
	clients    map[string]map[*Client]bool
	direct     chan envelope
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		direct:     make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Selection is priority based: shutdown first, then client lifecycle
// events, then message delivery. Client state is therefore always current
// before a message is routed.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case env := <-h.direct:
			h.deliver(env)
		}
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.userID] = set
	}
	set[client] = true
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Str("user_id", client.userID).
		Int("total_clients", h.GetClientCount()).
		Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	removed := h.removeLocked(client)
	h.mu.Unlock()

	if removed {
		logging.Info().
			Str("user_id", client.userID).
			Int("total_clients", h.GetClientCount()).
			Msg("websocket client disconnected")
	}
}

// removeLocked closes and forgets a client. Caller holds h.mu.
func (h *Hub) removeLocked(client *Client) bool {
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return false
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}
	close(client.send)
	metrics.WSConnections.Dec()
	return true
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	// ctx.Err() is expected here and is not logged as an error.
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients returns a user's clients in connection order. Caller holds h.mu.
func sortedClients(set map[*Client]bool) []*Client {
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// deliver sends a message to every connection of one user. Clients whose
// send buffer is full are dropped.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for _, client := range sortedClients(h.clients[env.userID]) {
		select {
		case client.send <- env.msg:
			metrics.WSMessagesSent.Inc()
		default:
			metrics.WSMessagesDropped.Inc()
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		h.removeLocked(client)
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	userIDs := make([]string, 0, len(h.clients))
	for userID := range h.clients {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		for _, client := range sortedClients(h.clients[userID]) {
			h.removeLocked(client)
		}
	}
}

// SendPush queues an in-app notification for every live connection of
// userID. It fails when the user is offline so the dispatcher records the
// channel as failed rather than silently dropping the alert.
func (h *Hub) SendPush(ctx context.Context, userID, title, body string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !h.IsConnected(userID) {
		return ErrNotConnected
	}
	return h.enqueue(userID, Message{
		Type: MessageTypePush,
		Data: PushData{Title: title, Body: body, Data: data},
	})
}

// Publish sends a typed message to a user's live connections. Offline
// users are skipped.
func (h *Hub) Publish(userID, messageType string, data interface{}) {
	if !h.IsConnected(userID) {
		return
	}
	if err := h.enqueue(userID, Message{Type: messageType, Data: data}); err != nil {
		logging.Warn().Str("message_type", messageType).Msg("websocket queue full, dropping message")
	}
}

func (h *Hub) enqueue(userID string, msg Message) error {
	select {
	case h.direct <- envelope{userID: userID, msg: msg}:
		return nil
	default:
		metrics.WSMessagesDropped.Inc()
		return ErrQueueFull
	}
}

// IsConnected reports whether userID has at least one live connection.
func (h *Hub) IsConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
