package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"studyhub-service/internal/auth"
	"studyhub-service/internal/models"
	"studyhub-service/internal/observability"
	"studyhub-service/internal/repositories"
)

// Dispatcher owns the per-connection lifecycle: handshake and token
// resolution, the frame read loop, and registry cleanup on close.
type Dispatcher struct {
	hub      *Hub
	messages repositories.MessageStore
	groups   repositories.StudyGroupRepository
	resolver auth.TokenResolver
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(hub *Hub, messages repositories.MessageStore, groups repositories.StudyGroupRepository, resolver auth.TokenResolver) *Dispatcher {
	return &Dispatcher{hub: hub, messages: messages, groups: groups, resolver: resolver}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, authenticates it and starts the read
// loop. Auth failures close with a policy-violation code before any
// registry mutation happens.
func (d *Dispatcher) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("studyhub-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	identity, err := d.resolver.Resolve(ctx, c.Query("token"))
	if err != nil {
		closePolicyViolation(conn, "invalid token")
		conn.Close()
		return
	}

	info := ConnInfo{
		ConnID:      uuid.NewString(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, identity.UserID, identity.Username, info)
	d.hub.Register(client)

	observability.IncWSActive()
	observability.IncWSEvent(observability.EventWSConnect)
	publishConnEvent(ctx, observability.EventWSConnect, client, "")

	go d.readLoop(client, conn)
}

// RejectUpgrade handles upgrade attempts on unknown paths: the socket
// is accepted and immediately closed with 1008 so clients see a policy
// violation rather than a dangling TCP reset. Plain HTTP gets a 404.
func (d *Dispatcher) RejectUpgrade(c *gin.Context) {
	if !websocket.IsWebSocketUpgrade(c.Request) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	closePolicyViolation(conn, "unknown websocket path")
	conn.Close()
}

func closePolicyViolation(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(time.Second)
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, deadline)
}

// readLoop reads frames sequentially until the socket closes; no two
// frames from one connection are ever handled concurrently. Persistence
// calls use a background context because the connection outlives the
// upgrade request.
func (d *Dispatcher) readLoop(client *Client, conn *websocket.Conn) {
	ctx := context.Background()
	var closeReason string

	defer func() {
		d.hub.Unregister(client)
		d.hub.LeaveAll(client)
		observability.DecWSActive()
		observability.IncWSEvent(observability.EventWSDisconnect)
		publishConnEvent(ctx, observability.EventWSDisconnect, client, closeReason)
		conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(observability.EventWSError)
				publishConnEvent(ctx, observability.EventWSError, client, closeReason)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		d.handleFrame(ctx, client, data)
	}
}

// handleFrame routes one inbound frame. All errors are handled here;
// nothing a frame does can take the connection down.
func (d *Dispatcher) handleFrame(ctx context.Context, client *Client, data []byte) {
	frame, err := DecodeFrame(data)
	if err != nil {
		log.Printf("ws: dropping frame from user %s: %v", client.UserID, err)
		observability.IncWSFrame("unknown", "dropped")
		return
	}

	switch f := frame.(type) {
	case ChatSendFrame:
		d.handleChatSend(ctx, client, f)
	case RoomJoinFrame:
		d.handleRoomJoin(ctx, client, f)
	case RoomLeaveFrame:
		// No authorization needed to leave.
		d.hub.LeaveRoom(f.RoomID, client)
		observability.IncWSFrame(FrameRoomLeave, "ok")
	case RoomSendFrame:
		d.handleRoomSend(ctx, client, f)
	}
}

func (d *Dispatcher) handleChatSend(ctx context.Context, client *Client, frame ChatSendFrame) {
	content := strings.TrimSpace(frame.Content)
	if frame.RecipientID == "" || content == "" || frame.RecipientID == client.UserID {
		observability.IncWSFrame(FrameChatSend, "dropped")
		return
	}

	msg := models.Message{
		ID:          uuid.NewString(),
		ClientID:    frame.ClientID,
		SenderID:    client.UserID,
		RecipientID: frame.RecipientID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}

	threadKey := repositories.DirectThreadKey(client.UserID, frame.RecipientID)
	if _, err := d.messages.Append(ctx, threadKey, msg); err != nil {
		// Not persisted means not delivered: at-most-once, never
		// delivery without durability.
		log.Printf("ws: append direct message: %v", err)
		observability.IncWSFrame(FrameChatSend, "error")
		return
	}

	event := models.ChatEvent{Type: models.EventChatMessage, Message: &msg}
	d.hub.SendToUser(frame.RecipientID, event)
	d.hub.SendToUser(client.UserID, event)
	observability.IncWSFrame(FrameChatSend, "ok")
}

func (d *Dispatcher) handleRoomJoin(ctx context.Context, client *Client, frame RoomJoinFrame) {
	if !d.authorizeRoom(ctx, client, frame.RoomID) {
		observability.IncWSFrame(FrameRoomJoin, "rejected")
		return
	}
	d.hub.JoinRoom(frame.RoomID, client)
	observability.IncWSFrame(FrameRoomJoin, "ok")
}

func (d *Dispatcher) handleRoomSend(ctx context.Context, client *Client, frame RoomSendFrame) {
	content := strings.TrimSpace(frame.Content)
	if frame.RoomID == "" || content == "" {
		observability.IncWSFrame(FrameRoomSend, "dropped")
		return
	}
	if !d.authorizeRoom(ctx, client, frame.RoomID) {
		observability.IncWSFrame(FrameRoomSend, "rejected")
		return
	}

	msg := models.Message{
		ID:         uuid.NewString(),
		ClientID:   frame.ClientID,
		SenderID:   client.UserID,
		RoomID:     frame.RoomID,
		SenderName: client.Username,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	if _, err := d.messages.Append(ctx, repositories.RoomThreadKey(frame.RoomID), msg); err != nil {
		log.Printf("ws: append room message: %v", err)
		observability.IncWSFrame(FrameRoomSend, "error")
		return
	}

	d.hub.SendToRoom(frame.RoomID, models.ChatEvent{Type: models.EventRoomMessage, Message: &msg})
	observability.IncWSFrame(FrameRoomSend, "ok")
}

// authorizeRoom verifies the user sits on the group roster. Failures go
// back to the sender alone as a room:error frame; the connection stays
// open.
func (d *Dispatcher) authorizeRoom(ctx context.Context, client *Client, roomID string) bool {
	group, err := d.groups.GetGroup(ctx, roomID)
	if err != nil {
		d.sendRoomError(client, "room not found")
		return false
	}
	if !group.HasParticipant(client.UserID) {
		d.sendRoomError(client, "not a room participant")
		return false
	}
	return true
}

// sendRoomError writes to the offending connection only, not to the
// user's other tabs.
func (d *Dispatcher) sendRoomError(client *Client, message string) {
	payload, err := json.Marshal(models.ErrorEvent{Type: models.EventRoomError, Message: message})
	if err != nil {
		return
	}
	if err := client.Send(payload); err != nil {
		log.Printf("ws: send room error: %v", err)
	}
}

func publishConnEvent(ctx context.Context, name string, client *Client, reason string) {
	_ = observability.PublishEvent(ctx, observability.RoutingKeyWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: observability.WSEventPayload{
			ConnID:     client.Info.ConnID,
			UserID:     client.UserID,
			DeviceID:   client.Info.DeviceID,
			IP:         client.Info.IP,
			Event:      name,
			DurationMS: time.Since(client.Info.ConnectedAt).Milliseconds(),
			Reason:     reason,
		},
	}, observability.BuildHeaders(client.Info.RequestID, client.Info.TraceID))
}
