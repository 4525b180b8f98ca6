package models

import "time"

// Message is one chat message in a direct-message or room thread.
// The ID is server-assigned; ClientID is an opaque client correlation
// token echoed back for optimistic-UI reconciliation, never interpreted.
// Exactly one of RecipientID or RoomID is set.
type Message struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"clientId,omitempty"`
	SenderID    string    `json:"senderId"`
	RecipientID string    `json:"recipientId,omitempty"`
	RoomID      string    `json:"roomId,omitempty"`
	SenderName  string    `json:"senderName,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ChatEvent is broadcast over websockets for direct and room messages.
type ChatEvent struct {
	Type    string   `json:"type"`
	Message *Message `json:"message,omitempty"`
}

// ErrorEvent is sent back to a single sender on a rejected room action.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

const (
	EventChatMessage = "chat:message"
	EventRoomMessage = "room:message"
	EventRoomError   = "room:error"
)
