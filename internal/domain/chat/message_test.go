package chat

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	expires := time.Now().Add(24 * time.Hour)

	t.Run("trims and keeps body", func(t *testing.T) {
		m, err := New("ride-1", "user-1", "Alice", "  see you at 8  ", expires)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if m.Body != "see you at 8" {
			t.Errorf("body = %q", m.Body)
		}
		if m.RideID != "ride-1" || m.SenderID != "user-1" {
			t.Errorf("scope = %s/%s", m.RideID, m.SenderID)
		}
	})

	t.Run("rejects empty body", func(t *testing.T) {
		if _, err := New("ride-1", "user-1", "Alice", "   ", expires); !errors.Is(err, ErrInvalidBody) {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		big := strings.Repeat("x", MaxBodyLen+1)
		if _, err := New("ride-1", "user-1", "Alice", big, expires); !errors.Is(err, ErrInvalidBody) {
			t.Fatalf("expected ErrInvalidBody, got %v", err)
		}
	})

	t.Run("accepts max length body", func(t *testing.T) {
		exact := strings.Repeat("x", MaxBodyLen)
		if _, err := New("ride-1", "user-1", "Alice", exact, expires); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
