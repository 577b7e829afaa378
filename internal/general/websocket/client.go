package websocket

import (
	"time"

	"ride-pool/internal/domain/user"

	"github.com/gorilla/websocket"
)

const sendQueueSize = 32

// Client is one authenticated realtime connection and the rooms it joined.
// The identity is resolved once at connection time and pinned.
type Client struct {
	identity user.Identity
	send     chan []byte
	rooms    map[string]struct{} // guarded by the hub mutex
}

func newClient(identity user.Identity) *Client {
	return &Client{
		identity: identity,
		send:     make(chan []byte, sendQueueSize),
		rooms:    make(map[string]struct{}),
	}
}

// Identity returns the actor bound to this connection.
func (c *Client) Identity() user.Identity { return c.identity }

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. It owns all writes after authentication.
func (c *Client) writePump(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case payload := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = conn.Close() // unblocks the read loop
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}
