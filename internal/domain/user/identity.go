package user

import "strings"

// Identity is the resolved actor identity the core trusts verbatim.
// It is produced once per request (or once per realtime connection) by the
// token layer and carried through every authorization check.
type Identity struct {
	ID     string
	Realm  string // tenant scope the actor belongs to; cross-realm access is always forbidden
	Gender string
	Name   string
}

// Valid reports whether the identity carries the fields authorization needs.
func (id Identity) Valid() bool {
	return strings.TrimSpace(id.ID) != "" && strings.TrimSpace(id.Realm) != ""
}
