package jwt

import (
	"time"

	"ride-pool/internal/domain/user"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is our canonical JWT claims payload. Subject carries the actor id;
// the custom fields are the resolved identity the core trusts verbatim.
type Claims struct {
	Realm  string `json:"realm"`
	Gender string `json:"gender,omitempty"`
	Name   string `json:"name,omitempty"`
	jwtlib.RegisteredClaims
}

// ensure Claims implements jwtlib.Claims interface
var _ jwtlib.Claims = (*Claims)(nil)

// NewUserClaims constructs claims for a resolved identity.
func NewUserClaims(id user.Identity, ttl time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		Realm:  id.Realm,
		Gender: id.Gender,
		Name:   id.Name,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   id.ID,
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}
}

// Identity converts verified claims back into the actor identity used by
// every authorization check.
func (c *Claims) Identity() user.Identity {
	return user.Identity{
		ID:     c.Subject,
		Realm:  c.Realm,
		Gender: c.Gender,
		Name:   c.Name,
	}
}
