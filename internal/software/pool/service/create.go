package service

import (
	"context"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/observability"
	"ride-pool/internal/ports"

	"github.com/google/uuid"
)

// Create validates the input, persists a new OPEN ride, and returns the
// decorated view.
func (service *poolService) Create(ctx context.Context, actor user.Identity, in ports.CreateRideInput) (*ports.RideView, error) {
	corrID := generateCorrelationID()

	r, err := ride.New(actor, in.FromLocation, in.ToLocation, in.Seats, in.PreferredGender, in.DepartAt, in.AllowChat)
	if err != nil {
		return nil, err
	}
	r.ID = uuid.NewString()

	if err := service.rides.Insert(ctx, r); err != nil {
		service.logger.Error(ctx, "ride_create_failed", "Failed to persist new ride", err, map[string]any{
			"creator_id": actor.ID,
			"request_id": corrID,
		})
		return nil, err
	}

	observability.RidesCreated.Inc()
	service.logger.Info(ctx, "ride_created", "Ride created", map[string]any{
		"ride_id":    r.ID,
		"creator_id": r.CreatorID,
		"realm":      r.Realm,
		"seats":      r.TotalSeats,
		"depart_at":  r.DepartAt,
		"request_id": corrID,
	})

	return service.toView(ctx, r), nil
}
