package service

import (
	"context"
	"errors"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/general/contracts"
	"ride-pool/internal/observability"
	"ride-pool/internal/ports"
)

// SubmitRequest places the actor in the ride's pending request set. The
// domain pre-check catches most failures with a precise error; the store's
// conditional update is the decisive check, and a lost race falls back to
// a re-read so the caller still gets the precise error.
func (service *poolService) SubmitRequest(ctx context.Context, actor user.Identity, rideID string) (*ports.RideView, error) {
	corrID := generateCorrelationID()

	r, err := service.resolve(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := r.ValidateRequest(actor); err != nil {
		return nil, err
	}

	updated, err := service.rides.AddRequest(ctx, rideID, actor.ID)
	if errors.Is(err, ports.ErrNoMatch) {
		return nil, service.explainRequestFailure(ctx, actor, rideID)
	}
	if err != nil {
		return nil, err
	}

	observability.SeatRequests.Inc()
	service.logger.Info(ctx, "seat_request_submitted", "Seat request submitted", map[string]any{
		"ride_id":    rideID,
		"user_id":    actor.ID,
		"request_id": corrID,
	})
	service.publishRideEvent(ctx, contracts.RouteRequestSubmitted, corrID, actor.ID, "", updated)

	return service.toView(ctx, updated), nil
}

// CancelRequest withdraws the actor's own pending request. Cancelling when
// no request is pending is an error, not a no-op.
func (service *poolService) CancelRequest(ctx context.Context, actor user.Identity, rideID string) (*ports.RideView, error) {
	corrID := generateCorrelationID()

	r, err := service.resolve(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if err := r.ValidateCancelRequest(actor.ID); err != nil {
		return nil, err
	}

	updated, err := service.rides.RemoveRequest(ctx, rideID, actor.ID)
	if errors.Is(err, ports.ErrNoMatch) {
		// decided or withdrawn while we validated
		if _, rerr := service.rides.GetByID(ctx, rideID); rerr != nil {
			return nil, rerr
		}
		return nil, ride.ErrNoPendingRequest
	}
	if err != nil {
		return nil, err
	}

	service.logger.Info(ctx, "seat_request_cancelled", "Seat request withdrawn", map[string]any{
		"ride_id":    rideID,
		"user_id":    actor.ID,
		"request_id": corrID,
	})

	return service.toView(ctx, updated), nil
}

// explainRequestFailure re-reads the ride after a lost AddRequest race and
// maps the current state to the precise domain error.
func (service *poolService) explainRequestFailure(ctx context.Context, actor user.Identity, rideID string) error {
	r, err := service.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if err := r.ValidateRequest(actor); err != nil {
		return err
	}
	return ride.ErrInvalidState
}
