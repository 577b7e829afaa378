package websocket

import (
	"context"
	"sync"

	"ride-pool/internal/general/broadcast"
	"ride-pool/internal/general/logger"
)

// Hub maintains the per-ride subscription rooms for this instance. Rooms are
// process-local; the bridge forwards broadcasts between instances.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	bridge broadcast.Bridge
	logger *logger.Logger
}

// NewHub builds an empty hub on top of the given bridge.
func NewHub(bridge broadcast.Bridge, log *logger.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		bridge: bridge,
		logger: log,
	}
}

// Join adds the client to a ride room. Authorization happens before this
// call; the hub only tracks membership.
func (h *Hub) Join(rideID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[rideID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[rideID] = room
	}
	room[c] = struct{}{}
	c.rooms[rideID] = struct{}{}
}

// Leave removes the client from one room.
func (h *Hub) Leave(rideID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(rideID, c)
}

// LeaveAll removes the client from every room; called on disconnect.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for rideID := range c.rooms {
		h.dropLocked(rideID, c)
	}
}

func (h *Hub) dropLocked(rideID string, c *Client) {
	delete(c.rooms, rideID)
	room, ok := h.rooms[rideID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, rideID)
	}
}

// IsMember reports whether the client currently has the room joined.
func (h *Hub) IsMember(rideID string, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := c.rooms[rideID]
	return ok
}

// Broadcast fans a payload out to every local subscriber of the ride room
// and forwards it through the bridge for other instances.
func (h *Hub) Broadcast(ctx context.Context, rideID string, payload []byte) {
	h.deliverLocal(rideID, payload)

	if err := h.bridge.Publish(ctx, rideID, payload); err != nil {
		h.logger.Error(ctx, "bridge_publish_failed", "Failed to forward room payload", err, map[string]any{
			"ride_id": rideID,
		})
	}
}

// RunBridge pumps remote broadcasts into local rooms until ctx is cancelled.
func (h *Hub) RunBridge(ctx context.Context) error {
	return h.bridge.Run(ctx, h.deliverLocal)
}

func (h *Hub) deliverLocal(rideID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[rideID] {
		select {
		case c.send <- payload:
		default:
			// slow consumer; drop rather than block the room
		}
	}
}
