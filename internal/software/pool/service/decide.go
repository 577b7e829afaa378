package service

import (
	"context"
	"errors"
	"strings"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/general/contracts"
	"ride-pool/internal/observability"
	"ride-pool/internal/ports"
)

// Decide applies the creator's verdict on a pending request. Accept is the
// seat allocation write: the store's conditional update carries the seat
// and membership preconditions, so two accepts racing on the last seat
// resolve to one confirmed seat and one ErrNoSeatsLeft.
func (service *poolService) Decide(ctx context.Context, actor user.Identity, rideID, targetID string, decision ride.Decision) (*ports.RideView, error) {
	corrID := generateCorrelationID()

	if !decision.Valid() || targetID == "" {
		return nil, ride.ErrInvalidInput
	}

	r, err := service.resolve(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Realm != actor.Realm {
		return nil, ride.ErrNotFound
	}

	var updated *ride.Ride
	switch decision {
	case ride.DecisionAccept:
		updated, err = service.accept(ctx, r, actor.ID, targetID)
	case ride.DecisionReject:
		updated, err = service.reject(ctx, r, actor.ID, targetID)
	}
	if err != nil {
		return nil, err
	}

	observability.Decisions.WithLabelValues(strings.ToLower(decision.String())).Inc()
	service.logger.Info(ctx, "request_decided", "Creator decided on a seat request", map[string]any{
		"ride_id":    rideID,
		"target_id":  targetID,
		"decision":   decision.String(),
		"status":     updated.Status.String(),
		"request_id": corrID,
	})

	route := contracts.RouteRequestRejected
	if decision == ride.DecisionAccept {
		route = contracts.RouteRequestAccepted
	}
	service.publishRideEvent(ctx, route, corrID, actor.ID, targetID, updated)

	return service.toView(ctx, updated), nil
}

func (service *poolService) accept(ctx context.Context, r *ride.Ride, deciderID, targetID string) (*ride.Ride, error) {
	if err := r.ValidateAccept(deciderID, targetID); err != nil {
		return nil, err
	}

	// confirming any seat moves the ride (and its chat) onto the longer
	// retention window
	expiresAt := ride.RetentionDeadline(r.DepartAt, true)

	updated, err := service.rides.AcceptRequest(ctx, r.ID, targetID, expiresAt)
	if errors.Is(err, ports.ErrNoMatch) {
		return nil, service.explainAcceptFailure(ctx, r.ID, deciderID, targetID)
	}
	if err != nil {
		return nil, err
	}

	if updated.HasConfirmed() {
		if err := service.messages.ExtendRetention(ctx, r.ID, expiresAt); err != nil {
			service.logger.Error(ctx, "chat_retention_extend_failed", "Failed to extend chat log retention", err, map[string]any{
				"ride_id": r.ID,
			})
		}
	}

	return updated, nil
}

func (service *poolService) reject(ctx context.Context, r *ride.Ride, deciderID, targetID string) (*ride.Ride, error) {
	if err := r.ValidateDecision(deciderID, targetID); err != nil {
		return nil, err
	}

	updated, err := service.rides.RemoveRequest(ctx, r.ID, targetID)
	if errors.Is(err, ports.ErrNoMatch) {
		if _, rerr := service.rides.GetByID(ctx, r.ID); rerr != nil {
			return nil, rerr
		}
		return nil, ride.ErrNotRequested
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// explainAcceptFailure re-reads after a lost accept race. The interesting
// case is the last seat going to a concurrent accept between our pre-check
// and the conditional write.
func (service *poolService) explainAcceptFailure(ctx context.Context, rideID, deciderID, targetID string) error {
	r, err := service.rides.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if r.AvailableSeats <= 0 {
		observability.SeatConflicts.Inc()
		return ride.ErrNoSeatsLeft
	}
	if !r.HasRequest(targetID) {
		// withdrawn, rejected, or already seated by a concurrent accept
		return ride.ErrNotRequested
	}
	if err := r.ValidateAccept(deciderID, targetID); err != nil {
		return err
	}
	return ride.ErrInvalidState
}
