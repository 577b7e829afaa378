package ride

// ChatAccessible is the single chat authorization predicate: true iff the
// creator left chat enabled and the actor is the creator, a pending
// requester, or a confirmed user. Pending requesters are allowed in so the
// parties can coordinate during the decision window.
//
// Both the REST chat path and the realtime join/send path must call this
// method; there is deliberately no second copy of the rule.
func (r *Ride) ChatAccessible(actorID string) bool {
	if !r.AllowChat {
		return false
	}
	return actorID == r.CreatorID || r.HasRequest(actorID) || r.IsConfirmed(actorID)
}
