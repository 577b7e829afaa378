package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-pool/internal/general/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const roomsChannel = "ridepool:rooms"

// RedisBridge fans room traffic out through a redis pub/sub channel. Every
// instance publishes with its own origin id and drops its own messages on
// the way back in.
type RedisBridge struct {
	client *redis.Client
	origin string
	logger *logger.Logger
}

type bridgeEnvelope struct {
	Origin  string          `json:"origin"`
	RideID  string          `json:"ride_id"`
	Payload json.RawMessage `json:"payload"`
}

// NewRedisBridge dials redis and returns a ready bridge.
func NewRedisBridge(ctx context.Context, addr, password string, log *logger.Logger) (*RedisBridge, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBridge{
		client: client,
		origin: uuid.NewString(),
		logger: log,
	}, nil
}

func (b *RedisBridge) Publish(ctx context.Context, rideID string, payload []byte) error {
	env := bridgeEnvelope{Origin: b.origin, RideID: rideID, Payload: payload}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, roomsChannel, body).Err()
}

func (b *RedisBridge) Run(ctx context.Context, deliver func(rideID string, payload []byte)) error {
	sub := b.client.Subscribe(ctx, roomsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env bridgeEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Error(ctx, "bridge_decode_failed", "Dropping malformed bridge payload", err, nil)
				continue
			}
			if env.Origin == b.origin {
				continue // our own publish echoed back
			}
			deliver(env.RideID, env.Payload)
		}
	}
}

func (b *RedisBridge) Close() error {
	return b.client.Close()
}
