package service

import (
	"context"

	"ride-pool/internal/domain/chat"
	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/observability"
	"ride-pool/internal/ports"

	"github.com/google/uuid"
)

// chatService fronts the message log behind the single chat authorization
// gate. Every chat read, write, and realtime join comes through Authorize.
type chatService struct {
	logger   *logger.Logger
	rides    ports.RideStore
	messages ports.MessageLog
}

// NewChatService constructs the service with required dependencies.
func NewChatService(logger *logger.Logger, rides ports.RideStore, messages ports.MessageLog) ports.ChatService {
	return &chatService{logger: logger, rides: rides, messages: messages}
}

// Authorize re-resolves the ride and evaluates the chat gate against its
// current state. The result is never cached: a creator toggling chat off
// or a rejected request takes effect on the next call.
func (service *chatService) Authorize(ctx context.Context, actor user.Identity, rideID string) (*ride.Ride, error) {
	r, err := service.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Realm != actor.Realm {
		return nil, ride.ErrNotFound
	}
	if !r.ChatAccessible(actor.ID) {
		return nil, chat.ErrChatForbidden
	}
	return r, nil
}

// History returns the ride's chat log, oldest first.
func (service *chatService) History(ctx context.Context, actor user.Identity, rideID string, limit int64) ([]*chat.Message, error) {
	if _, err := service.Authorize(ctx, actor, rideID); err != nil {
		return nil, err
	}
	return service.messages.ListByRide(ctx, rideID, limit)
}

// Post appends a message to the ride's chat log. The message inherits the
// ride's retention deadline so the log never outlives its ride.
func (service *chatService) Post(ctx context.Context, actor user.Identity, rideID, body string) (*chat.Message, error) {
	r, err := service.Authorize(ctx, actor, rideID)
	if err != nil {
		return nil, err
	}

	senderName := actor.Name
	if senderName == "" {
		senderName = actor.ID
	}

	msg, err := chat.New(rideID, actor.ID, senderName, body, r.RetentionDeadline())
	if err != nil {
		return nil, err
	}
	msg.ID = uuid.NewString()

	if err := service.messages.Append(ctx, msg); err != nil {
		service.logger.Error(ctx, "chat_append_failed", "Failed to append chat message", err, map[string]any{
			"ride_id": rideID,
			"user_id": actor.ID,
		})
		return nil, err
	}

	observability.ChatMessages.Inc()
	return msg, nil
}
