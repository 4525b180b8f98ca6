package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Frame
		err  error
	}{
		{
			name: "chat send",
			data: `{"type":"chat:send","recipientId":"u2","content":"hi","clientId":"c1"}`,
			want: ChatSendFrame{RecipientID: "u2", Content: "hi", ClientID: "c1"},
		},
		{
			name: "room join",
			data: `{"type":"room:join","roomId":"g1"}`,
			want: RoomJoinFrame{RoomID: "g1"},
		},
		{
			name: "room leave",
			data: `{"type":"room:leave","roomId":"g1"}`,
			want: RoomLeaveFrame{RoomID: "g1"},
		},
		{
			name: "room send",
			data: `{"type":"room:send","roomId":"g1","content":"hello"}`,
			want: RoomSendFrame{RoomID: "g1", Content: "hello"},
		},
		{
			name: "unknown type",
			data: `{"type":"room:kick","roomId":"g1"}`,
			err:  ErrUnknownFrame,
		},
		{
			name: "missing type",
			data: `{"roomId":"g1"}`,
			err:  ErrUnknownFrame,
		},
		{
			name: "not json",
			data: `room:join g1`,
			err:  ErrMalformedFrame,
		},
		{
			name: "wrong field type",
			data: `{"type":"room:join","roomId":42}`,
			err:  ErrMalformedFrame,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := DecodeFrame([]byte(tt.data))
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, frame)
		})
	}
}
