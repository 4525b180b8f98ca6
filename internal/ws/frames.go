package ws

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrUnknownFrame   = errors.New("unknown frame type")
)

// Frame is the closed set of inbound commands. Decoding happens once in
// DecodeFrame; handlers type-switch over the concrete frames, so a new
// command type is a compile-visible change rather than a stray string
// comparison.
type Frame interface {
	frameType() string
}

type ChatSendFrame struct {
	RecipientID string `json:"recipientId"`
	Content     string `json:"content"`
	ClientID    string `json:"clientId"`
}

type RoomJoinFrame struct {
	RoomID string `json:"roomId"`
}

type RoomLeaveFrame struct {
	RoomID string `json:"roomId"`
}

type RoomSendFrame struct {
	RoomID   string `json:"roomId"`
	Content  string `json:"content"`
	ClientID string `json:"clientId"`
}

func (ChatSendFrame) frameType() string  { return FrameChatSend }
func (RoomJoinFrame) frameType() string  { return FrameRoomJoin }
func (RoomLeaveFrame) frameType() string { return FrameRoomLeave }
func (RoomSendFrame) frameType() string  { return FrameRoomSend }

const (
	FrameChatSend  = "chat:send"
	FrameRoomJoin  = "room:join"
	FrameRoomLeave = "room:leave"
	FrameRoomSend  = "room:send"
)

// DecodeFrame parses one inbound text frame into its concrete command.
func DecodeFrame(data []byte) (Frame, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch envelope.Type {
	case FrameChatSend:
		var frame ChatSendFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return frame, nil
	case FrameRoomJoin:
		var frame RoomJoinFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return frame, nil
	case FrameRoomLeave:
		var frame RoomLeaveFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return frame, nil
	case FrameRoomSend:
		var frame RoomSendFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return frame, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, envelope.Type)
	}
}
