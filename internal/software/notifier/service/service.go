package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ride-pool/internal/general/contracts"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/general/rabbitmq"
	"ride-pool/internal/ports"

	amqp "github.com/rabbitmq/amqp091-go"
)

const consumerTag = "notifier-service"

// notifierService consumes ride lifecycle events and turns them into
// per-recipient notifications. Recipients are resolved through the
// directory at delivery time; events carry ids only.
type notifierService struct {
	logger    *logger.Logger
	client    *rabbitmq.Client
	directory ports.Directory
	mailer    ports.Mailer
	prefetch  int
}

// NewNotifierService constructs the service with required dependencies.
func NewNotifierService(
	logger *logger.Logger,
	client *rabbitmq.Client,
	directory ports.Directory,
	mailer ports.Mailer,
	prefetch int,
) *notifierService {
	if prefetch <= 0 {
		prefetch = 8
	}
	return &notifierService{logger: logger, client: client, directory: directory, mailer: mailer, prefetch: prefetch}
}

// Run consumes the notifications queue until the context is cancelled.
// Consume returns when the channel drops; the loop backs off and
// re-attaches on the client's reconnected connection.
func (service *notifierService) Run(ctx context.Context) error {
	for {
		err := service.client.Consume(ctx, contracts.QueueNotifications, consumerTag, service.prefetch, service.handle)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			service.logger.Error(ctx, "notifier_consume_interrupted", "Consumer stopped, retrying", err, nil)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(3 * time.Second):
		}
	}
}

func (service *notifierService) handle(ctx context.Context, d amqp.Delivery) error {
	var event contracts.RideEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		service.logger.Error(ctx, "notifier_decode_failed", "Dropping malformed ride event", err, map[string]any{
			"routing_key": d.RoutingKey,
		})
		return err
	}
	ctx = service.logger.WithRequestID(ctx, event.CorrelationID)
	ctx = service.logger.WithRideID(ctx, event.RideID)

	recipients := recipientsFor(event)
	if len(recipients) == 0 {
		return nil
	}

	profiles, err := service.directory.Lookup(ctx, recipients)
	if err != nil {
		service.logger.Error(ctx, "notifier_lookup_failed", "Failed to resolve notification recipients", err, map[string]any{
			"recipients": recipients,
		})
		return err
	}

	subject, body := render(event)
	for _, id := range recipients {
		p, ok := profiles[id]
		if !ok || p.Email == "" {
			service.logger.Info(ctx, "notifier_recipient_skipped", "No deliverable address for recipient", map[string]any{
				"user_id": id,
			})
			continue
		}
		if err := service.mailer.Send(ctx, p.Email, subject, body); err != nil {
			service.logger.Error(ctx, "notifier_send_failed", "Failed to deliver notification", err, map[string]any{
				"user_id": id,
			})
			continue
		}
	}

	service.logger.Info(ctx, "notification_processed", "Ride event processed", map[string]any{
		"type":       event.Type,
		"recipients": len(recipients),
	})
	return nil
}

// recipientsFor picks who hears about an event. The actor never gets
// notified about their own action.
func recipientsFor(event contracts.RideEvent) []string {
	switch event.Type {
	case contracts.RouteRequestSubmitted:
		return []string{event.CreatorID}
	case contracts.RouteRequestAccepted, contracts.RouteRequestRejected:
		return []string{event.TargetID}
	case contracts.RouteRideClosed:
		var out []string
		for _, id := range event.Participants {
			if id != event.ActorID {
				out = append(out, id)
			}
		}
		return out
	default:
		return nil
	}
}

func render(event contracts.RideEvent) (subject, body string) {
	trip := fmt.Sprintf("%s to %s on %s", event.FromLocation, event.ToLocation, event.DepartAt.Format("Mon, 02 Jan 15:04"))

	switch event.Type {
	case contracts.RouteRequestSubmitted:
		return "New seat request for your ride",
			fmt.Sprintf("Someone requested a seat on your ride (%s). Open the app to accept or reject.", trip)
	case contracts.RouteRequestAccepted:
		return "Your seat is confirmed",
			fmt.Sprintf("Your seat request was accepted. See you on the ride (%s).", trip)
	case contracts.RouteRequestRejected:
		return "Seat request declined",
			fmt.Sprintf("Your seat request for the ride (%s) was declined.", trip)
	case contracts.RouteRideClosed:
		return "Ride closed",
			fmt.Sprintf("The ride (%s) was closed by its creator.", trip)
	default:
		return "Ride update", fmt.Sprintf("There is an update on the ride (%s).", trip)
	}
}
