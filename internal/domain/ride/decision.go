package ride

import (
	"strings"
)

// Decision is the creator's verdict on a pending seat request.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// ParseDecision normalizes (uppercases+trims) and validates a decision string.
func ParseDecision(in string) (Decision, error) {
	decision := Decision(strings.ToUpper(strings.TrimSpace(in)))
	if decision.Valid() {
		return decision, nil
	}
	return "", ErrInvalidInput
}

// Valid reports whether decision is one of the allowed constants.
func (decision Decision) Valid() bool {
	return decision == DecisionAccept || decision == DecisionReject
}

// String returns the string representation of the Decision.
func (decision Decision) String() string {
	return string(decision)
}
