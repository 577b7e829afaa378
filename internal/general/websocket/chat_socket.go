package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"ride-pool/internal/general/jwt"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/observability"
	"ride-pool/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsReadTimeout  = 60 * time.Second
	authTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ChatSocket is the realtime chat endpoint: one authenticated connection,
// a dynamic set of joined ride rooms, and gate-checked sends.
type ChatSocket struct {
	logger *logger.Logger
	jwtMgr *jwt.Manager
	chat   ports.ChatService
	hub    *Hub
}

// NewChatSocket wires the realtime chat endpoint.
func NewChatSocket(log *logger.Logger, jwtMgr *jwt.Manager, chat ports.ChatService, hub *Hub) *ChatSocket {
	return &ChatSocket{logger: log, jwtMgr: jwtMgr, chat: chat, hub: hub}
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type roomRef struct {
	RideID string `json:"ride_id"`
}

type sendFrame struct {
	RideID string `json:"ride_id"`
	Body   string `json:"body"`
}

type messageEvent struct {
	Type       string    `json:"type"`
	RideID     string    `json:"ride_id"`
	MessageID  string    `json:"message_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Body       string    `json:"body"`
	SentAt     time.Time `json:"sent_at"`
}

// Connect upgrades the request, authenticates the first frame, and runs the
// join/leave/send loop until the peer goes away.
func (cs *ChatSocket) Connect(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cs.logger.Error(r.Context(), "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20) // 1 MiB
	if err := conn.SetReadDeadline(time.Now().Add(authTimeout)); err != nil {
		cs.logger.Error(r.Context(), "ws_set_deadline_failed", "Failed to set initial read deadline", err, nil)
		return
	}

	msgType, firstFrame, err := conn.ReadMessage()
	if err != nil {
		cs.logger.Error(r.Context(), "ws_auth_read_failed", "Client failed to send auth frame in time", err, nil)
		cs.writeDirect(conn, authError("authentication timeout: send auth message within 10 seconds"))
		return
	}
	if msgType != websocket.TextMessage {
		cs.writeDirect(conn, authError("auth message must be in text format"))
		return
	}

	identity, err := jwt.ValidateWSAuth(firstFrame, cs.jwtMgr)
	if err != nil {
		cs.logger.Error(r.Context(), "ws_auth_failed", "Invalid auth message or token", err, nil)
		cs.writeDirect(conn, authError("authentication failed: invalid token"))
		return
	}

	cs.writeDirect(conn, map[string]any{
		"type":      "auth_success",
		"success":   true,
		"user_id":   identity.ID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	cs.logger.Info(r.Context(), "ws_connected", "Chat WebSocket connected", map[string]any{
		"user_id": identity.ID,
		"realm":   identity.Realm,
	})
	observability.WSConnections.Inc()
	defer observability.WSConnections.Dec()

	client := newClient(identity)
	defer cs.hub.LeaveAll(client)

	// writer goroutine owns the socket for all post-auth writes
	done := make(chan struct{})
	defer close(done)
	go client.writePump(conn, done)

	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				cs.logger.Error(r.Context(), "ws_unexpected_close", "Chat connection closed unexpectedly", err, map[string]any{
					"user_id": identity.ID,
				})
			} else {
				cs.logger.Info(r.Context(), "ws_connection_closed", "Chat connection closed", map[string]any{
					"user_id": identity.ID,
				})
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			client.queue(errorEvent("", "bad json"))
			continue
		}

		switch frame.Type {
		case "join":
			cs.handleJoin(r.Context(), client, frame.Data)
		case "leave":
			cs.handleLeave(client, frame.Data)
		case "send":
			cs.handleSend(r.Context(), client, frame.Data)
		default:
			client.queue(errorEvent("", "unknown message type"))
		}
	}
}

// handleJoin re-resolves the ride and evaluates the chat gate before adding
// the connection to the room.
func (cs *ChatSocket) handleJoin(ctx context.Context, client *Client, data json.RawMessage) {
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.RideID == "" {
		client.queue(errorEvent("", "join requires ride_id"))
		return
	}

	if _, err := cs.chat.Authorize(ctx, client.identity, ref.RideID); err != nil {
		client.queue(errorEvent(ref.RideID, "not authorized for this ride's chat"))
		return
	}

	cs.hub.Join(ref.RideID, client)
	client.queue(map[string]any{"type": "joined", "ride_id": ref.RideID})
}

func (cs *ChatSocket) handleLeave(client *Client, data json.RawMessage) {
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.RideID == "" {
		client.queue(errorEvent("", "leave requires ride_id"))
		return
	}
	cs.hub.Leave(ref.RideID, client)
	client.queue(map[string]any{"type": "left", "ride_id": ref.RideID})
}

// handleSend re-validates room membership and the gate on every message:
// the ride state may have changed since join (chat can be revoked), so the
// join-time check is never trusted.
func (cs *ChatSocket) handleSend(ctx context.Context, client *Client, data json.RawMessage) {
	var frame sendFrame
	if err := json.Unmarshal(data, &frame); err != nil || frame.RideID == "" {
		client.queue(errorEvent("", "send requires ride_id and body"))
		return
	}

	if !cs.hub.IsMember(frame.RideID, client) {
		client.queue(errorEvent(frame.RideID, "join the room before sending"))
		return
	}

	msg, err := cs.chat.Post(ctx, client.identity, frame.RideID, frame.Body)
	if err != nil {
		client.queue(errorEvent(frame.RideID, "message rejected"))
		return
	}

	event, err := json.Marshal(messageEvent{
		Type:       "message",
		RideID:     msg.RideID,
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Body:       msg.Body,
		SentAt:     msg.SentAt,
	})
	if err != nil {
		cs.logger.Error(ctx, "ws_event_encode_failed", "Failed to encode message event", err, nil)
		return
	}

	cs.hub.Broadcast(ctx, msg.RideID, event)
}

// queue marshals and enqueues an event for the writer goroutine.
func (c *Client) queue(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writeDirect is only safe before the writer goroutine starts.
func (cs *ChatSocket) writeDirect(conn *websocket.Conn, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

func authError(msg string) map[string]any {
	return map[string]any{"type": "auth_error", "error": msg, "success": false}
}

func errorEvent(rideID, msg string) map[string]any {
	ev := map[string]any{"type": "error", "error": msg}
	if rideID != "" {
		ev["ride_id"] = rideID
	}
	return ev
}
