package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studyhub-service/internal/models"
)

// fakeConn records every frame written to it. failNext makes the next
// write fail once, simulating a broken socket mid fan-out.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	failNext bool
	closed   bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return fmt.Errorf("write: broken pipe")
	}
	buf := append([]byte(nil), data...)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...)
}

func newTestClient(userID string) (*Client, *fakeConn) {
	conn := &fakeConn{}
	return NewClient(conn, userID, userID+"-name", ConnInfo{ConnID: "conn-" + userID}), conn
}

func decodeChatEvents(t *testing.T, frames [][]byte) []models.ChatEvent {
	t.Helper()
	events := make([]models.ChatEvent, 0, len(frames))
	for _, raw := range frames {
		var ev models.ChatEvent
		require.NoError(t, json.Unmarshal(raw, &ev))
		events = append(events, ev)
	}
	return events
}

func TestSendToUserReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	tab1, conn1 := newTestClient("u1")
	tab2, conn2 := newTestClient("u1")
	other, otherConn := newTestClient("u2")
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(other)

	hub.SendToUser("u1", models.ChatEvent{Type: models.EventChatMessage})

	assert.Len(t, conn1.received(), 1)
	assert.Len(t, conn2.received(), 1)
	assert.Empty(t, otherConn.received())
}

func TestSendToRoomIgnoresRoster(t *testing.T) {
	hub := NewHub()
	member, memberConn := newTestClient("u1")
	lurker, lurkerConn := newTestClient("u2")
	outsider, outsiderConn := newTestClient("u3")
	hub.Register(member)
	hub.Register(lurker)
	hub.Register(outsider)

	// Whoever is subscribed gets the message; the hub does not consult
	// any roster.
	hub.JoinRoom("g1", member)
	hub.JoinRoom("g1", lurker)

	hub.SendToRoom("g1", models.ChatEvent{Type: models.EventRoomMessage})

	assert.Len(t, memberConn.received(), 1)
	assert.Len(t, lurkerConn.received(), 1)
	assert.Empty(t, outsiderConn.received())
}

func TestUnregisterStopsUserDelivery(t *testing.T) {
	hub := NewHub()
	client, conn := newTestClient("u1")
	hub.Register(client)
	hub.Unregister(client)

	hub.SendToUser("u1", models.ChatEvent{Type: models.EventChatMessage})
	assert.Empty(t, conn.received())
}

func TestLeaveAllClearsEveryRoom(t *testing.T) {
	hub := NewHub()
	client, conn := newTestClient("u1")
	hub.Register(client)
	hub.JoinRoom("g1", client)
	hub.JoinRoom("g2", client)

	hub.LeaveAll(client)

	hub.SendToRoom("g1", models.ChatEvent{Type: models.EventRoomMessage})
	hub.SendToRoom("g2", models.ChatEvent{Type: models.EventRoomMessage})
	assert.Empty(t, conn.received())
}

func TestJoinAndLeaveRoomAreIdempotent(t *testing.T) {
	hub := NewHub()
	client, conn := newTestClient("u1")
	hub.Register(client)

	hub.JoinRoom("g1", client)
	hub.JoinRoom("g1", client)
	hub.SendToRoom("g1", models.ChatEvent{Type: models.EventRoomMessage})
	// One subscription, one delivery.
	assert.Len(t, conn.received(), 1)

	hub.LeaveRoom("g1", client)
	hub.LeaveRoom("g1", client)
	hub.LeaveRoom("never-joined", client)
	hub.SendToRoom("g1", models.ChatEvent{Type: models.EventRoomMessage})
	assert.Len(t, conn.received(), 1)
}

func TestWriteFailureKeepsConnectionRegistered(t *testing.T) {
	hub := NewHub()
	client, conn := newTestClient("u1")
	hub.Register(client)

	conn.failNext = true
	hub.SendToUser("u1", models.ChatEvent{Type: models.EventChatMessage})
	assert.Empty(t, conn.received())

	// The failed write must not have evicted the connection.
	hub.SendToUser("u1", models.ChatEvent{Type: models.EventChatMessage})
	assert.Len(t, conn.received(), 1)
}

func TestPerConnectionOrderIsPreserved(t *testing.T) {
	hub := NewHub()
	client, conn := newTestClient("u1")
	hub.Register(client)

	for i := 0; i < 5; i++ {
		msg := &models.Message{ID: fmt.Sprintf("m%d", i)}
		hub.SendToUser("u1", models.ChatEvent{Type: models.EventChatMessage, Message: msg})
	}

	events := decodeChatEvents(t, conn.received())
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("m%d", i), ev.Message.ID)
	}
}
