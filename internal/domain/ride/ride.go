package ride

import (
	"slices"
	"strings"
	"time"

	"ride-pool/internal/domain/user"
)

const (
	// MaxSeats bounds the capacity a single ride may offer.
	MaxSeats = 8
)

// Ride is the bookable entity: a shared trip with fixed seat capacity,
// time-bound validity, and a request/accept workflow.
type Ride struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Ownership & scope (immutable after creation)
	CreatorID string
	Realm     string

	// Trip description
	FromLocation string
	ToLocation   string
	DepartAt     time.Time

	// Capacity
	TotalSeats     int
	AvailableSeats int

	// Membership. Both slices are maintained as duplicate-free, mutually
	// disjoint sets of actor ids; the store's update filters enforce that.
	Requests       []string
	ConfirmedUsers []string

	// Policy & lifecycle
	PreferredGender GenderPolicy
	Status          Status
	AllowChat       bool

	// Retention deadline; the store's TTL mechanism deletes the document
	// once this instant elapses.
	ExpiresAt time.Time
}

// NewRide validates input and builds a ride in OPEN state with the
// unconfirmed retention window applied.
func New(creator user.Identity, from, to string, seats int, policy GenderPolicy, departAt time.Time, allowChat bool) (*Ride, error) {
	if !creator.Valid() {
		return nil, ErrInvalidInput
	}
	if from = strings.TrimSpace(from); from == "" {
		return nil, ErrInvalidInput
	}
	if to = strings.TrimSpace(to); to == "" {
		return nil, ErrInvalidInput
	}
	if seats < 1 || seats > MaxSeats {
		return nil, ErrInvalidInput
	}
	if !policy.Valid() {
		return nil, ErrInvalidInput
	}
	if departAt.IsZero() {
		return nil, ErrInvalidInput
	}

	now := time.Now().UTC()
	if departAt.Before(now) {
		return nil, ErrInvalidInput
	}

	return &Ride{
		CreatedAt:       now,
		UpdatedAt:       now,
		CreatorID:       creator.ID,
		Realm:           creator.Realm,
		FromLocation:    from,
		ToLocation:      to,
		DepartAt:        departAt.UTC(),
		TotalSeats:      seats,
		AvailableSeats:  seats,
		PreferredGender: policy,
		Status:          StatusOpen,
		AllowChat:       allowChat,
		ExpiresAt:       RetentionDeadline(departAt, false),
	}, nil
}

// HasRequest reports whether the actor has a pending, undecided request.
func (r *Ride) HasRequest(actorID string) bool {
	return slices.Contains(r.Requests, actorID)
}

// IsConfirmed reports whether the actor occupies a seat.
func (r *Ride) IsConfirmed(actorID string) bool {
	return slices.Contains(r.ConfirmedUsers, actorID)
}

// HasConfirmed reports whether any seat has been allocated.
func (r *Ride) HasConfirmed() bool {
	return len(r.ConfirmedUsers) > 0
}

// ValidateRequest checks every precondition for a new seat request.
// It is a pre-check only; the decisive membership/state conditions are
// re-asserted inside the store's conditional update.
func (r *Ride) ValidateRequest(actor user.Identity) error {
	if actor.Realm != r.Realm {
		return ErrForbidden
	}
	if r.Status == StatusClosed {
		return ErrInvalidState
	}
	if actor.ID == r.CreatorID {
		return ErrSelfRequest
	}
	if r.HasRequest(actor.ID) || r.IsConfirmed(actor.ID) {
		return ErrAlreadyRequested
	}
	if !r.PreferredGender.Matches(actor.Gender) {
		return ErrGenderMismatch
	}
	return nil
}

// ValidateCancelRequest checks that the actor has a pending request to
// withdraw. Repeat cancellation fails again rather than succeeding silently.
func (r *Ride) ValidateCancelRequest(actorID string) error {
	if !r.HasRequest(actorID) {
		return ErrNoPendingRequest
	}
	return nil
}

// ValidateDecision checks the creator-only decide preconditions shared by
// accept and reject.
func (r *Ride) ValidateDecision(deciderID, targetID string) error {
	if deciderID != r.CreatorID {
		return ErrForbidden
	}
	if !r.HasRequest(targetID) {
		return ErrNotRequested
	}
	return nil
}

// ValidateAccept checks the accept preconditions. Seat exhaustion is
// reported before target membership so an accept that lost the last seat
// reads as ErrNoSeatsLeft whether or not the winning accept also consumed
// the same request. The seat condition is part of the store's update
// filter too, so two accepts racing on the last seat resolve to one
// success and one ErrNoSeatsLeft.
func (r *Ride) ValidateAccept(deciderID, targetID string) error {
	if deciderID != r.CreatorID {
		return ErrForbidden
	}
	if r.AvailableSeats <= 0 {
		return ErrNoSeatsLeft
	}
	if !r.HasRequest(targetID) {
		return ErrNotRequested
	}
	return nil
}

// ValidateCreatorOp guards the creator-only mutations (close, reschedule,
// chat-access toggle).
func (r *Ride) ValidateCreatorOp(actorID string) error {
	if actorID != r.CreatorID {
		return ErrForbidden
	}
	return nil
}

// MarkClosed applies the CLOSED transition to an in-memory copy. Used by the
// reaper to patch records it has already closed in the store.
func (r *Ride) MarkClosed(now time.Time) {
	r.Status = StatusClosed
	r.UpdatedAt = now.UTC()
}
