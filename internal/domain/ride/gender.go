package ride

import (
	"strings"
)

// GenderPolicy restricts who may request a seat on a ride.
type GenderPolicy string

const (
	GenderAny    GenderPolicy = "ANY"
	GenderMale   GenderPolicy = "MALE"
	GenderFemale GenderPolicy = "FEMALE"
)

// ParseGenderPolicy normalizes (uppercases+trims) and validates a policy string.
// The empty string maps to ANY so callers can omit the field.
func ParseGenderPolicy(in string) (GenderPolicy, error) {
	s := strings.ToUpper(strings.TrimSpace(in))
	if s == "" {
		return GenderAny, nil
	}
	policy := GenderPolicy(s)
	if policy.Valid() {
		return policy, nil
	}
	return "", ErrInvalidInput
}

// Valid reports whether policy is one of the allowed constants.
func (policy GenderPolicy) Valid() bool {
	switch policy {
	case GenderAny, GenderMale, GenderFemale:
		return true
	default:
		return false
	}
}

// String returns the string representation of the GenderPolicy.
func (policy GenderPolicy) String() string {
	return string(policy)
}

// Matches reports whether an actor's declared gender satisfies the policy.
// The comparison is case-insensitive; ANY always passes.
func (policy GenderPolicy) Matches(actorGender string) bool {
	if policy == GenderAny {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(actorGender), policy.String())
}
