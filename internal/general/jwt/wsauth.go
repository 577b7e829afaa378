package jwt

import (
	"encoding/json"
	"errors"
	"strings"

	"ride-pool/internal/domain/user"
)

var (
	ErrBadAuthMsg   = errors.New("invalid auth message")
	ErrBadTokenWrap = errors.New("token must be 'Bearer <token>'")
)

// ClientAuthMessage is what clients send first over WS:
// { "type":"auth", "token":"Bearer <jwt>" }
type ClientAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// ValidateWSAuth parses the first auth frame and validates the JWT.
// Used by the realtime chat endpoint; the resolved identity is pinned to
// the connection for its whole lifetime.
func ValidateWSAuth(frame []byte, mgr *Manager) (user.Identity, error) {
	var msg ClientAuthMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return user.Identity{}, ErrBadAuthMsg
	}

	if strings.ToLower(strings.TrimSpace(msg.Type)) != "auth" {
		return user.Identity{}, ErrBadAuthMsg
	}

	// expect "Bearer <token>" wrapping
	parts := strings.SplitN(msg.Token, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return user.Identity{}, ErrBadTokenWrap
	}

	claims, err := mgr.ParseAndValidate(strings.TrimSpace(parts[1]))
	if err != nil {
		return user.Identity{}, err
	}

	return claims.Identity(), nil
}
