package chat

import "errors"

var (
	// ErrInvalidBody rejects empty or oversized message payloads.
	ErrInvalidBody = errors.New("message body is empty or too long")

	// ErrChatForbidden is returned when the chat authorization gate denies
	// an actor for the target ride.
	ErrChatForbidden = errors.New("actor is not authorized for this ride's chat")
)
