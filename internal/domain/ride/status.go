package ride

import (
	"strings"
)

// Status is a ride lifecycle state as stored in the `status` field.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusFull   Status = "FULL"
	StatusClosed Status = "CLOSED"
)

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidInput
}

// Valid reports whether status is one of the allowed lifecycle constants.
func (status Status) Valid() bool {
	switch status {
	case StatusOpen, StatusFull, StatusClosed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
// Seat counts never increase, so FULL never goes back to OPEN.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusOpen:
		return next == StatusFull || next == StatusClosed
	case StatusFull:
		return next == StatusClosed
	case StatusClosed:
		return false
	default:
		return false
	}
}

// Terminal indicates whether the status accepts no further application mutation.
func (status Status) Terminal() bool {
	return status == StatusClosed
}
