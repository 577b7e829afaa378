package ride

import "time"

const (
	// StaleAfter is how long past departure an OPEN ride stays visible
	// before the reaper closes it.
	StaleAfter = 6 * time.Hour

	// RetentionUnconfirmed is the deletion window for rides nobody joined.
	RetentionUnconfirmed = 7 * 24 * time.Hour

	// RetentionConfirmed is the longer window applied once any seat is
	// allocated; the chat log mirrors it.
	RetentionConfirmed = 30 * 24 * time.Hour
)

// RetentionDeadline computes the expiry instant for a ride (and its chat)
// keyed on the departure time and whether any user is confirmed.
func RetentionDeadline(departAt time.Time, hasConfirmed bool) time.Time {
	if hasConfirmed {
		return departAt.UTC().Add(RetentionConfirmed)
	}
	return departAt.UTC().Add(RetentionUnconfirmed)
}

// StaleDeadline returns the instant after which an OPEN ride is considered
// stale and eligible for the reaper's CLOSED transition.
func (r *Ride) StaleDeadline() time.Time {
	return r.DepartAt.Add(StaleAfter)
}

// IsStale reports whether the ride should be closed by the reaper.
func (r *Ride) IsStale(now time.Time) bool {
	return r.Status == StatusOpen && now.After(r.StaleDeadline())
}

// RetentionDeadline returns the expiry instant for the ride's current
// confirmation state.
func (r *Ride) RetentionDeadline() time.Time {
	return RetentionDeadline(r.DepartAt, r.HasConfirmed())
}
