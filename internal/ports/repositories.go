package ports

import (
	"context"
	"errors"
	"time"

	"ride-pool/internal/domain/chat"
	"ride-pool/internal/domain/ride"
)

// ErrNoMatch is returned by conditional store mutations when the update
// filter matched nothing: either the document is gone or a precondition
// (state, membership, seat availability) failed under the caller's feet.
// The service layer re-reads to map it to a precise domain error.
var ErrNoMatch = errors.New("conditional update matched no document")

// RideFilter narrows realm-scoped ride listings.
type RideFilter struct {
	FromLocation string    // case-insensitive match when set
	ToLocation   string    // case-insensitive match when set
	DepartAfter  time.Time // zero means unbounded
	DepartBefore time.Time // zero means unbounded
	Limit        int64     // 0 means store default
}

// RideStore is the durable ride record store: point lookup, filtered
// realm-scoped queries, and atomic conditional field updates. Hard deletion
// is the store's own TTL mechanism keyed on expires_at; no method here
// deletes anything.
type RideStore interface {
	EnsureIndexes(ctx context.Context) error
	Insert(ctx context.Context, r *ride.Ride) error

	// GetByID returns ride.ErrNotFound for an unknown id.
	GetByID(ctx context.Context, id string) (*ride.Ride, error)
	List(ctx context.Context, realm string, f RideFilter) ([]*ride.Ride, error)
	ListByCreator(ctx context.Context, realm, creatorID string) ([]*ride.Ride, error)

	// Conditional mutations. Each applies its precondition inside the
	// update filter and returns the updated document, or ErrNoMatch when
	// the filter did not hold.
	AddRequest(ctx context.Context, rideID, actorID string) (*ride.Ride, error)
	RemoveRequest(ctx context.Context, rideID, actorID string) (*ride.Ride, error)
	AcceptRequest(ctx context.Context, rideID, actorID string, expiresAt time.Time) (*ride.Ride, error)
	SetClosed(ctx context.Context, rideID string) (*ride.Ride, error)
	SetSchedule(ctx context.Context, rideID string, departAt, expiresAt time.Time) (*ride.Ride, error)
	SetChatAccess(ctx context.Context, rideID string, enabled bool) (*ride.Ride, error)

	// CloseStale transitions exactly the given OPEN rides to CLOSED when
	// their departure plus the staleness window precedes now. Returns the
	// number of rides actually closed.
	CloseStale(ctx context.Context, ids []string, now time.Time) (int64, error)
}

// MessageLog is the append-only chat log collaborator. Its retention
// mirrors the owning ride's retention.
type MessageLog interface {
	EnsureIndexes(ctx context.Context) error
	Append(ctx context.Context, m *chat.Message) error
	ListByRide(ctx context.Context, rideID string, limit int64) ([]*chat.Message, error)
	ExtendRetention(ctx context.Context, rideID string, until time.Time) error
}

// Profile is the directory projection used to decorate ride responses.
type Profile struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	Department string
	Year       int
}

// Directory resolves actor ids to human-readable contact info. Lookup
// failures degrade gracefully at the call site; they never fail a ride
// operation.
type Directory interface {
	Lookup(ctx context.Context, ids []string) (map[string]Profile, error)
}

// Publisher pushes notification events to the broker (best effort).
type Publisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// Mailer hands a rendered notification to the delivery boundary.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
