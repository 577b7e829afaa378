package ride

import (
	"errors"
	"testing"
	"time"

	"ride-pool/internal/domain/user"
)

func testCreator() user.Identity {
	return user.Identity{ID: "creator-1", Realm: "campus-a", Gender: "MALE", Name: "Creator"}
}

func testRide(t *testing.T) *Ride {
	t.Helper()
	r, err := New(testCreator(), "Dorms", "Airport", 3, GenderAny, time.Now().Add(2*time.Hour), true)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.ID = "ride-1"
	return r
}

func TestNewValidation(t *testing.T) {
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name    string
		creator user.Identity
		from    string
		to      string
		seats   int
		policy  GenderPolicy
		depart  time.Time
	}{
		{"missing creator", user.Identity{}, "A", "B", 2, GenderAny, future},
		{"missing realm", user.Identity{ID: "u1"}, "A", "B", 2, GenderAny, future},
		{"blank from", testCreator(), "  ", "B", 2, GenderAny, future},
		{"blank to", testCreator(), "A", "", 2, GenderAny, future},
		{"zero seats", testCreator(), "A", "B", 0, GenderAny, future},
		{"too many seats", testCreator(), "A", "B", MaxSeats + 1, GenderAny, future},
		{"bad policy", testCreator(), "A", "B", 2, GenderPolicy("WHOEVER"), future},
		{"zero departure", testCreator(), "A", "B", 2, GenderAny, time.Time{}},
		{"past departure", testCreator(), "A", "B", 2, GenderAny, time.Now().Add(-time.Minute)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.creator, tc.from, tc.to, tc.seats, tc.policy, tc.depart, true); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	depart := time.Now().Add(3 * time.Hour)
	r, err := New(testCreator(), "Dorms", "Airport", 4, GenderFemale, depart, false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if r.Status != StatusOpen {
		t.Errorf("status = %s, want OPEN", r.Status)
	}
	if r.AvailableSeats != 4 || r.TotalSeats != 4 {
		t.Errorf("seats = %d/%d, want 4/4", r.AvailableSeats, r.TotalSeats)
	}
	if r.Realm != "campus-a" {
		t.Errorf("realm = %q", r.Realm)
	}
	if want := depart.UTC().Add(RetentionUnconfirmed); !r.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", r.ExpiresAt, want)
	}
}

func TestValidateRequest(t *testing.T) {
	requester := user.Identity{ID: "user-2", Realm: "campus-a", Gender: "FEMALE"}

	t.Run("ok", func(t *testing.T) {
		if err := testRide(t).ValidateRequest(requester); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("cross realm", func(t *testing.T) {
		other := requester
		other.Realm = "campus-b"
		if err := testRide(t).ValidateRequest(other); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("closed ride", func(t *testing.T) {
		r := testRide(t)
		r.Status = StatusClosed
		if err := r.ValidateRequest(requester); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("self request", func(t *testing.T) {
		if err := testRide(t).ValidateRequest(testCreator()); !errors.Is(err, ErrSelfRequest) {
			t.Fatalf("expected ErrSelfRequest, got %v", err)
		}
	})

	t.Run("duplicate request", func(t *testing.T) {
		r := testRide(t)
		r.Requests = []string{"user-2"}
		if err := r.ValidateRequest(requester); !errors.Is(err, ErrAlreadyRequested) {
			t.Fatalf("expected ErrAlreadyRequested, got %v", err)
		}
	})

	t.Run("already confirmed", func(t *testing.T) {
		r := testRide(t)
		r.ConfirmedUsers = []string{"user-2"}
		if err := r.ValidateRequest(requester); !errors.Is(err, ErrAlreadyRequested) {
			t.Fatalf("expected ErrAlreadyRequested, got %v", err)
		}
	})

	t.Run("gender mismatch", func(t *testing.T) {
		r := testRide(t)
		r.PreferredGender = GenderMale
		if err := r.ValidateRequest(requester); !errors.Is(err, ErrGenderMismatch) {
			t.Fatalf("expected ErrGenderMismatch, got %v", err)
		}
	})

	t.Run("gender case insensitive", func(t *testing.T) {
		r := testRide(t)
		r.PreferredGender = GenderFemale
		mixed := requester
		mixed.Gender = "female"
		if err := r.ValidateRequest(mixed); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestValidateAccept(t *testing.T) {
	t.Run("rejects non creator", func(t *testing.T) {
		r := testRide(t)
		r.Requests = []string{"user-2"}
		if err := r.ValidateAccept("user-9", "user-2"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("rejects unknown target", func(t *testing.T) {
		if err := testRide(t).ValidateAccept("creator-1", "ghost"); !errors.Is(err, ErrNotRequested) {
			t.Fatalf("expected ErrNotRequested, got %v", err)
		}
	})

	t.Run("rejects when no seats", func(t *testing.T) {
		r := testRide(t)
		r.Requests = []string{"user-2"}
		r.AvailableSeats = 0
		if err := r.ValidateAccept("creator-1", "user-2"); !errors.Is(err, ErrNoSeatsLeft) {
			t.Fatalf("expected ErrNoSeatsLeft, got %v", err)
		}
	})
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusFull, true},
		{StatusOpen, StatusClosed, true},
		{StatusFull, StatusClosed, true},
		{StatusFull, StatusOpen, false},
		{StatusClosed, StatusOpen, false},
		{StatusClosed, StatusFull, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if !StatusClosed.Terminal() {
		t.Error("CLOSED must be terminal")
	}
	if StatusFull.Terminal() {
		t.Error("FULL must not be terminal")
	}
}

func TestChatAccessible(t *testing.T) {
	r := testRide(t)
	r.Requests = []string{"pending-1"}
	r.ConfirmedUsers = []string{"confirmed-1"}

	cases := []struct {
		name  string
		actor string
		want  bool
	}{
		{"creator", "creator-1", true},
		{"pending requester", "pending-1", true},
		{"confirmed user", "confirmed-1", true},
		{"stranger", "stranger-1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.ChatAccessible(tc.actor); got != tc.want {
				t.Fatalf("ChatAccessible(%s) = %v, want %v", tc.actor, got, tc.want)
			}
		})
	}

	t.Run("toggle locks everyone out and back in", func(t *testing.T) {
		r.AllowChat = false
		for _, id := range []string{"creator-1", "pending-1", "confirmed-1"} {
			if r.ChatAccessible(id) {
				t.Fatalf("ChatAccessible(%s) = true with chat disabled", id)
			}
		}
		r.AllowChat = true
		if !r.ChatAccessible("confirmed-1") {
			t.Fatal("re-enabling chat must restore access")
		}
	})
}

func TestStaleness(t *testing.T) {
	r := testRide(t)
	now := time.Now().UTC()

	r.DepartAt = now.Add(-StaleAfter - time.Hour)
	if !r.IsStale(now) {
		t.Error("OPEN ride past the staleness window must be stale")
	}

	r.Status = StatusClosed
	if r.IsStale(now) {
		t.Error("CLOSED ride is never stale")
	}

	r.Status = StatusOpen
	r.DepartAt = now.Add(-StaleAfter + time.Minute)
	if r.IsStale(now) {
		t.Error("ride within the staleness window must not be stale")
	}
}

func TestRetentionDeadline(t *testing.T) {
	depart := time.Date(2026, 9, 10, 8, 0, 0, 0, time.UTC)

	if got, want := RetentionDeadline(depart, false), depart.Add(RetentionUnconfirmed); !got.Equal(want) {
		t.Errorf("unconfirmed deadline = %v, want %v", got, want)
	}
	if got, want := RetentionDeadline(depart, true), depart.Add(RetentionConfirmed); !got.Equal(want) {
		t.Errorf("confirmed deadline = %v, want %v", got, want)
	}
}

func TestParseHelpers(t *testing.T) {
	if p, err := ParseGenderPolicy(" female "); err != nil || p != GenderFemale {
		t.Errorf("ParseGenderPolicy(female) = %v, %v", p, err)
	}
	if p, err := ParseGenderPolicy(""); err != nil || p != GenderAny {
		t.Errorf("ParseGenderPolicy(empty) = %v, %v", p, err)
	}
	if _, err := ParseGenderPolicy("robot"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseGenderPolicy(robot) err = %v", err)
	}

	if d, err := ParseDecision("accept"); err != nil || d != DecisionAccept {
		t.Errorf("ParseDecision(accept) = %v, %v", d, err)
	}
	if _, err := ParseDecision("maybe"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("ParseDecision(maybe) err = %v", err)
	}

	if s, err := ParseStatus(" open "); err != nil || s != StatusOpen {
		t.Errorf("ParseStatus(open) = %v, %v", s, err)
	}
}
