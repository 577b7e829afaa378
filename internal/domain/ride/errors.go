package ride

import "errors"

// Domain error taxonomy. Every failed operation resolves to exactly one of
// these sentinels so transport layers can map them without string matching.
var (
	ErrNotFound         = errors.New("ride not found")
	ErrForbidden        = errors.New("actor is not allowed to perform this operation")
	ErrInvalidState     = errors.New("operation is not valid in the ride's current state")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSelfRequest      = errors.New("creator cannot request a seat on their own ride")
	ErrAlreadyRequested = errors.New("actor already has a pending or confirmed request")
	ErrGenderMismatch   = errors.New("actor does not match the ride's gender policy")
	ErrNotRequested     = errors.New("target has no pending request on this ride")
	ErrNoPendingRequest = errors.New("actor has no pending request to cancel")
	ErrNoSeatsLeft      = errors.New("no seats left on this ride")
)
