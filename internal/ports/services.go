package ports

import (
	"context"
	"time"

	"ride-pool/internal/domain/chat"
	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
)

// Participant is a decorated member entry in a ride view. Name falls back
// to "Unknown" when the directory cannot resolve the actor.
type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// RideView is the decorated response shape shared by every ride read.
type RideView struct {
	ID              string        `json:"id"`
	CreatorID       string        `json:"creator_id"`
	Creator         Participant   `json:"creator"`
	Realm           string        `json:"realm"`
	FromLocation    string        `json:"from_location"`
	ToLocation      string        `json:"to_location"`
	DepartAt        time.Time     `json:"depart_at"`
	TotalSeats      int           `json:"total_seats"`
	AvailableSeats  int           `json:"available_seats"`
	PreferredGender string        `json:"preferred_gender"`
	Status          string        `json:"status"`
	AllowChat       bool          `json:"allow_chat"`
	Requests        []Participant `json:"requests"`
	ConfirmedUsers  []Participant `json:"confirmed_users"`
	ExpiresAt       time.Time     `json:"expires_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

// CreateRideInput is the service-level DTO for ride creation. Enum fields
// arrive pre-parsed; the transport layer owns string decoding.
type CreateRideInput struct {
	FromLocation    string
	ToLocation      string
	Seats           int
	PreferredGender ride.GenderPolicy
	DepartAt        time.Time
	AllowChat       bool
}

// RideService is the seat allocation engine plus the reaper-reconciled
// read paths.
type RideService interface {
	Create(ctx context.Context, actor user.Identity, in CreateRideInput) (*RideView, error)
	Get(ctx context.Context, actor user.Identity, rideID string) (*RideView, error)
	List(ctx context.Context, actor user.Identity, f RideFilter) ([]*RideView, error)
	Mine(ctx context.Context, actor user.Identity) ([]*RideView, error)

	SubmitRequest(ctx context.Context, actor user.Identity, rideID string) (*RideView, error)
	CancelRequest(ctx context.Context, actor user.Identity, rideID string) (*RideView, error)
	Decide(ctx context.Context, actor user.Identity, rideID, targetID string, decision ride.Decision) (*RideView, error)
	Close(ctx context.Context, actor user.Identity, rideID string) (*RideView, error)
	Reschedule(ctx context.Context, actor user.Identity, rideID string, departAt time.Time) (*RideView, error)
	SetChatAccess(ctx context.Context, actor user.Identity, rideID string, enabled bool) (*RideView, error)
}

// ChatService evaluates the chat authorization gate and talks to the
// message log. The REST chat handlers and the realtime hub both go through
// it, so the gate is evaluated in exactly one place.
type ChatService interface {
	// Authorize re-resolves the ride and evaluates the gate against its
	// current state; returns chat.ErrChatForbidden when access is denied.
	// The gate does not depend on lifecycle status, so closed rides keep
	// their chat while the record is retained.
	Authorize(ctx context.Context, actor user.Identity, rideID string) (*ride.Ride, error)
	History(ctx context.Context, actor user.Identity, rideID string, limit int64) ([]*chat.Message, error)
	Post(ctx context.Context, actor user.Identity, rideID, body string) (*chat.Message, error)
}
