package contracts

import "time"

// Broker topology names shared by the publisher and the notifier consumer.
const (
	ExchangePoolEvents = "pool.events"
	QueueNotifications = "pool.notifications"

	RoutePrefixRide = "ride."

	RouteRequestSubmitted = "ride.request.submitted"
	RouteRequestAccepted  = "ride.request.accepted"
	RouteRequestRejected  = "ride.request.rejected"
	RouteRideClosed       = "ride.closed"
)

// Envelope carries cross-service correlation metadata.
type Envelope struct {
	CorrelationID string `json:"correlation_id"`
	Producer      string `json:"producer"`
}

// RideEvent is the notification payload published after a successful
// lifecycle mutation. The notifier resolves recipients from the ids; the
// payload itself stays free of contact data.
type RideEvent struct {
	Envelope

	Type         string    `json:"type"`
	RideID       string    `json:"ride_id"`
	Realm        string    `json:"realm"`
	CreatorID    string    `json:"creator_id"`
	ActorID      string    `json:"actor_id"`               // who triggered the event
	TargetID     string    `json:"target_id,omitempty"`    // decision target, when applicable
	Participants []string  `json:"participants,omitempty"` // pending plus confirmed at publish time
	FromLocation string    `json:"from_location"`
	ToLocation   string    `json:"to_location"`
	DepartAt     time.Time `json:"depart_at"`
	Timestamp    time.Time `json:"timestamp"`
}
