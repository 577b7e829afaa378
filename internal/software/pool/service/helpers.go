package service

import (
	"context"
	"encoding/json"
	"time"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/general/contracts"
	"ride-pool/internal/observability"

	"github.com/google/uuid"
)

// generateCorrelationID returns an id tying one API call to its logs and
// published events.
func generateCorrelationID() string {
	return uuid.NewString()
}

// resolve loads one ride and reconciles its lifecycle before any caller
// looks at it. Every read and every mutation pre-check goes through here,
// so a stale OPEN ride is never acted upon.
func (service *poolService) resolve(ctx context.Context, rideID string) (*ride.Ride, error) {
	r, err := service.rides.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	service.reconcile(ctx, []*ride.Ride{r})
	return r, nil
}

// reconcile is the lifecycle reaper: it closes OPEN rides whose departure
// plus the staleness window has elapsed. It runs inline on read paths
// against the records just fetched; there is no background sweep.
//
// The in-memory copies are always patched to CLOSED so callers never see
// or validate against a stale OPEN state, even if the store write fails
// and is retried by a later read.
func (service *poolService) reconcile(ctx context.Context, rides []*ride.Ride) {
	now := service.now()

	var stale []string
	for _, r := range rides {
		if r.IsStale(now) {
			stale = append(stale, r.ID)
		}
	}
	if len(stale) == 0 {
		return
	}

	closed, err := service.rides.CloseStale(ctx, stale, now)
	if err != nil {
		service.logger.Error(ctx, "stale_rides_close_failed", "Failed to persist stale ride closure", err, map[string]any{
			"ride_ids": stale,
		})
	} else if closed > 0 {
		observability.StaleRidesClosed.Add(float64(closed))
		service.logger.Info(ctx, "stale_rides_closed", "Closed stale rides past their departure window", map[string]any{
			"count":    closed,
			"ride_ids": stale,
		})
	}

	for _, r := range rides {
		if r.IsStale(now) {
			r.MarkClosed(now)
		}
	}
}

// publishRideEvent pushes a lifecycle notification to the broker. Delivery
// is best effort; a broker outage never fails the ride operation.
func (service *poolService) publishRideEvent(ctx context.Context, route, corrID, actorID, targetID string, r *ride.Ride) {
	event := contracts.RideEvent{
		Envelope: contracts.Envelope{
			CorrelationID: corrID,
			Producer:      "pool-service",
		},
		Type:         route,
		RideID:       r.ID,
		Realm:        r.Realm,
		CreatorID:    r.CreatorID,
		ActorID:      actorID,
		TargetID:     targetID,
		Participants: append(append([]string{}, r.Requests...), r.ConfirmedUsers...),
		FromLocation: r.FromLocation,
		ToLocation:   r.ToLocation,
		DepartAt:     r.DepartAt,
		Timestamp:    time.Now().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		service.logger.Error(ctx, "ride_event_encode_failed", "Failed to encode ride event", err, nil)
		return
	}

	if service.pub == nil {
		return
	}
	if err := service.pub.Publish(contracts.ExchangePoolEvents, route, body); err != nil {
		service.logger.Error(ctx, "ride_event_publish_failed", "Failed to publish ride event to RabbitMQ", err, map[string]any{
			"ride_id":    r.ID,
			"route":      route,
			"request_id": corrID,
		})
	}
}
