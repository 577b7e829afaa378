package service

import (
	"context"
	"errors"
	"time"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/general/contracts"
	"ride-pool/internal/ports"
)

// Close transitions the ride to CLOSED. Creator only; valid from OPEN or
// FULL and idempotent from CLOSED.
func (service *poolService) Close(ctx context.Context, actor user.Identity, rideID string) (*ports.RideView, error) {
	corrID := generateCorrelationID()

	r, err := service.creatorTarget(ctx, actor, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		// already closed, nothing to transition or announce
		return service.toView(ctx, r), nil
	}

	updated, err := service.rides.SetClosed(ctx, rideID)
	if errors.Is(err, ports.ErrNoMatch) {
		return nil, ride.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	service.logger.Info(ctx, "ride_closed", "Ride closed by creator", map[string]any{
		"ride_id":    rideID,
		"creator_id": actor.ID,
		"request_id": corrID,
	})
	service.publishRideEvent(ctx, contracts.RouteRideClosed, corrID, actor.ID, "", updated)

	return service.toView(ctx, updated), nil
}

// Reschedule moves the departure instant and recomputes the retention
// deadline for the ride's current confirmation state. Confirmed seats and
// pending requests survive a reschedule.
func (service *poolService) Reschedule(ctx context.Context, actor user.Identity, rideID string, departAt time.Time) (*ports.RideView, error) {
	corrID := generateCorrelationID()

	r, err := service.creatorTarget(ctx, actor, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, ride.ErrInvalidState
	}
	if departAt.IsZero() || departAt.Before(service.now()) {
		return nil, ride.ErrInvalidInput
	}

	expiresAt := ride.RetentionDeadline(departAt, r.HasConfirmed())

	updated, err := service.rides.SetSchedule(ctx, rideID, departAt, expiresAt)
	if errors.Is(err, ports.ErrNoMatch) {
		return nil, ride.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	// the chat log's expiry only ever moves forward
	if err := service.messages.ExtendRetention(ctx, rideID, expiresAt); err != nil {
		service.logger.Error(ctx, "chat_retention_extend_failed", "Failed to extend chat log retention", err, map[string]any{
			"ride_id": rideID,
		})
	}

	service.logger.Info(ctx, "ride_rescheduled", "Ride departure updated", map[string]any{
		"ride_id":    rideID,
		"depart_at":  departAt.UTC(),
		"request_id": corrID,
	})

	return service.toView(ctx, updated), nil
}

// SetChatAccess flips the creator's chat toggle. Disabling chat locks out
// every participant immediately; the stored history is kept and becomes
// readable again if chat is re-enabled.
func (service *poolService) SetChatAccess(ctx context.Context, actor user.Identity, rideID string, enabled bool) (*ports.RideView, error) {
	r, err := service.creatorTarget(ctx, actor, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, ride.ErrInvalidState
	}

	updated, err := service.rides.SetChatAccess(ctx, rideID, enabled)
	if errors.Is(err, ports.ErrNoMatch) {
		return nil, ride.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	service.logger.Info(ctx, "chat_access_set", "Ride chat access toggled", map[string]any{
		"ride_id": rideID,
		"enabled": enabled,
	})

	return service.toView(ctx, updated), nil
}

// creatorTarget resolves the ride and asserts the actor owns it.
func (service *poolService) creatorTarget(ctx context.Context, actor user.Identity, rideID string) (*ride.Ride, error) {
	r, err := service.resolve(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Realm != actor.Realm {
		return nil, ride.ErrNotFound
	}
	if err := r.ValidateCreatorOp(actor.ID); err != nil {
		return nil, err
	}
	return r, nil
}
