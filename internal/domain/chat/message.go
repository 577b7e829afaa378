package chat

import (
	"strings"
	"time"
)

// MaxBodyLen bounds a single chat message payload.
const MaxBodyLen = 2000

// Message is one chat entry scoped to exactly one ride. Retention mirrors
// the ride's retention deadline.
type Message struct {
	ID         string
	RideID     string
	SenderID   string
	SenderName string
	Body       string
	SentAt     time.Time
	ExpiresAt  time.Time
}

// New validates and builds a message; the id is assigned by the caller.
func New(rideID, senderID, senderName, body string, expiresAt time.Time) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > MaxBodyLen {
		return nil, ErrInvalidBody
	}
	return &Message{
		RideID:     rideID,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		SentAt:     time.Now().UTC(),
		ExpiresAt:  expiresAt.UTC(),
	}, nil
}
