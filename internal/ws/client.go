package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn is the slice of *websocket.Conn the hub writes to. Tests plug
// in fakes to observe fan-out without real sockets.
type wsConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ConnInfo carries per-connection request metadata for events and audit.
type ConnInfo struct {
	ConnID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Client is one authenticated websocket connection. A user may hold any
// number of them (tabs, devices); each gets its own Client.
type Client struct {
	UserID   string
	Username string
	Info     ConnInfo

	conn    wsConn
	writeMu sync.Mutex
}

// NewClient wraps an upgraded connection.
func NewClient(conn wsConn, userID, username string, info ConnInfo) *Client {
	return &Client{conn: conn, UserID: userID, Username: username, Info: info}
}

// Send writes one text frame. The mutex serializes writers so fan-out
// from concurrent handlers keeps per-connection emission order and never
// interleaves on the wire (gorilla allows a single concurrent writer).
func (c *Client) Send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
