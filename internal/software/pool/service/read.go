package service

import (
	"context"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/ports"
)

// Get returns one reconciled, decorated ride. Rides are realm-scoped;
// lookups from another realm report not-found rather than leaking that the
// ride exists.
func (service *poolService) Get(ctx context.Context, actor user.Identity, rideID string) (*ports.RideView, error) {
	r, err := service.resolve(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Realm != actor.Realm {
		return nil, ride.ErrNotFound
	}
	return service.toView(ctx, r), nil
}

// List returns the actor's realm-scoped ride listing with optional
// location and departure-window filters applied by the store.
func (service *poolService) List(ctx context.Context, actor user.Identity, f ports.RideFilter) ([]*ports.RideView, error) {
	rides, err := service.rides.List(ctx, actor.Realm, f)
	if err != nil {
		return nil, err
	}
	service.reconcile(ctx, rides)
	return service.toViews(ctx, rides), nil
}

// Mine returns every ride the actor created, newest departure first per the
// store's ordering.
func (service *poolService) Mine(ctx context.Context, actor user.Identity) ([]*ports.RideView, error) {
	rides, err := service.rides.ListByCreator(ctx, actor.Realm, actor.ID)
	if err != nil {
		return nil, err
	}
	service.reconcile(ctx, rides)
	return service.toViews(ctx, rides), nil
}
