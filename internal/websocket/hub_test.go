// Traveal - SOS Route Safety Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/traveal

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

// setupHub creates a hub running until the test ends
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.RunWithContext(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// createTestClient creates a client without a connection
func createTestClient(hub *Hub, userID string, buffer int) *Client {
	return &Client{id: clientIDCounter.Add(1), userID: userID, hub: hub, send: make(chan Message, buffer)}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func TestHub_RegisterUnregister(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	phone := createTestClient(hub, "user-1", 4)
	web := createTestClient(hub, "user-1", 4)

	hub.Register <- phone
	hub.Register <- web
	waitFor(t, func() bool { return hub.GetClientCount() == 2 }, "two clients")

	if !hub.IsConnected("user-1") {
		t.Error("user-1 should be connected")
	}
	if hub.IsConnected("user-2") {
		t.Error("user-2 should not be connected")
	}

	hub.Unregister <- phone
	waitFor(t, func() bool { return hub.GetClientCount() == 1 }, "one client")
	if _, ok := <-phone.send; ok {
		t.Error("unregistered client channel should be closed")
	}

	// A second unregister is a no-op.
	hub.Unregister <- phone
	hub.Unregister <- web
	waitFor(t, func() bool { return !hub.IsConnected("user-1") }, "user-1 offline")
}

func TestHub_SendPushRoutesByUser(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	phone := createTestClient(hub, "user-1", 4)
	web := createTestClient(hub, "user-1", 4)
	other := createTestClient(hub, "user-2", 4)
	hub.Register <- phone
	hub.Register <- web
	hub.Register <- other
	waitFor(t, func() bool { return hub.GetClientCount() == 3 }, "three clients")

	err := hub.SendPush(context.Background(), "user-1", "SOS alert", "Your contact raised an SOS alert.", map[string]string{"kind": "sos_alert"})
	if err != nil {
		t.Fatalf("SendPush() error = %v", err)
	}

	for _, c := range []*Client{phone, web} {
		msg := receive(t, c)
		if msg.Type != MessageTypePush {
			t.Errorf("Type = %q, want %q", msg.Type, MessageTypePush)
		}
		data, ok := msg.Data.(PushData)
		if !ok || data.Title != "SOS alert" || data.Data["kind"] != "sos_alert" {
			t.Errorf("Data = %#v", msg.Data)
		}
	}

	select {
	case msg := <-other.send:
		t.Errorf("user-2 received %+v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHub_SendPushOffline(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	err := hub.SendPush(context.Background(), "nobody", "t", "b", nil)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendPush() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hub.SendPush(ctx, "nobody", "t", "b", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("SendPush() with canceled ctx error = %v", err)
	}
}

func TestHub_PublishSkipsOffline(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	hub.Publish("nobody", MessageTypeAlertUpdate, map[string]string{"status": "resolved"})

	c := createTestClient(hub, "user-1", 4)
	hub.Register <- c
	waitFor(t, func() bool { return hub.IsConnected("user-1") }, "registration")

	hub.Publish("user-1", MessageTypeAlertUpdate, map[string]string{"status": "resolved"})
	if msg := receive(t, c); msg.Type != MessageTypeAlertUpdate {
		t.Errorf("Type = %q, want %q", msg.Type, MessageTypeAlertUpdate)
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	t.Parallel()

	hub := setupHub(t)
	slow := createTestClient(hub, "user-1", 1)
	hub.Register <- slow
	waitFor(t, func() bool { return hub.IsConnected("user-1") }, "registration")

	// First message fills the buffer, the second overflows it.
	_ = hub.SendPush(context.Background(), "user-1", "one", "", nil)
	_ = hub.SendPush(context.Background(), "user-1", "two", "", nil)

	waitFor(t, func() bool { return !hub.IsConnected("user-1") }, "slow client removal")
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	c := createTestClient(hub, "user-1", 4)
	hub.Register <- c
	waitFor(t, func() bool { return hub.IsConnected("user-1") }, "registration")

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if hub.GetClientCount() != 0 {
		t.Errorf("GetClientCount() = %d after shutdown, want 0", hub.GetClientCount())
	}
	if _, ok := <-c.send; ok {
		t.Error("client channel should be closed on shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled reason = %q", got)
	}

	expired, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline reason = %q", got)
	}
}
