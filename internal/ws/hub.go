package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"studyhub-service/internal/observability"
)

// Hub owns the live connection indices: user -> connections, room ->
// subscribed connections, and the reverse connection -> rooms index used
// for disconnect cleanup. The maps are never exposed; every mutation
// goes through the methods below so the two room indices stay mutually
// consistent. No I/O happens while the lock is held.
type Hub struct {
	mu        sync.RWMutex
	userConns map[string]map[*Client]bool
	roomConns map[string]map[*Client]bool
	connRooms map[*Client]map[string]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		userConns: make(map[string]map[*Client]bool),
		roomConns: make(map[string]map[*Client]bool),
		connRooms: make(map[*Client]map[string]bool),
	}
}

// Register adds a connection to its user's set.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.userConns[client.UserID]; !ok {
		h.userConns[client.UserID] = make(map[*Client]bool)
	}
	h.userConns[client.UserID][client] = true
}

// Unregister removes the connection and drops the user's entry once the
// last connection is gone.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.userConns[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.userConns, client.UserID)
		}
	}
}

// JoinRoom subscribes the connection to a room. Joining a room the
// connection is already in is a no-op.
func (h *Hub) JoinRoom(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.roomConns[roomID]; !ok {
		h.roomConns[roomID] = make(map[*Client]bool)
	}
	h.roomConns[roomID][client] = true
	if _, ok := h.connRooms[client]; !ok {
		h.connRooms[client] = make(map[string]bool)
	}
	h.connRooms[client][roomID] = true
}

// LeaveRoom unsubscribes the connection; leaving a room it is not in is
// a no-op.
func (h *Hub) LeaveRoom(roomID string, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveRoomLocked(roomID, client)
}

func (h *Hub) leaveRoomLocked(roomID string, client *Client) {
	if conns, ok := h.roomConns[roomID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.roomConns, roomID)
		}
	}
	if rooms, ok := h.connRooms[client]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.connRooms, client)
		}
	}
}

// LeaveAll removes the connection from every room it joined. This is
// the only path that clears the reverse index, and it must run on every
// disconnect.
func (h *Hub) LeaveAll(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for roomID := range h.connRooms[client] {
		if conns, ok := h.roomConns[roomID]; ok {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.roomConns, roomID)
			}
		}
	}
	delete(h.connRooms, client)
}

// SendToUser fans the event out to every open connection of the user.
// Write failures are logged and skipped, never unregistered here:
// removal belongs to the close path, so a failed write cannot race an
// in-flight registration.
func (h *Hub) SendToUser(userID string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal ws event: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.userConns[userID]))
	for client := range h.userConns[userID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.Send(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			h.reportWriteError(client, err)
		}
	}
}

// SendToRoom fans the event out to every connection subscribed to the
// room, regardless of roster membership.
func (h *Hub) SendToRoom(roomID string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal ws event: %v", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.roomConns[roomID]))
	for client := range h.roomConns[roomID] {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if err := client.Send(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			h.reportWriteError(client, err)
		}
	}
}

func (h *Hub) reportWriteError(client *Client, err error) {
	observability.IncWSEvent(observability.EventWSError)
	_ = observability.PublishEvent(context.Background(), observability.RoutingKeyWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: observability.EventWSError,
		Payload: observability.WSEventPayload{
			ConnID:     client.Info.ConnID,
			UserID:     client.UserID,
			DeviceID:   client.Info.DeviceID,
			IP:         client.Info.IP,
			Event:      observability.EventWSError,
			DurationMS: time.Since(client.Info.ConnectedAt).Milliseconds(),
			Reason:     err.Error(),
		},
	}, observability.BuildHeaders(client.Info.RequestID, client.Info.TraceID))
}
