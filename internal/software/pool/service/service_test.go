package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"ride-pool/internal/domain/chat"
	"ride-pool/internal/domain/ride"
	"ride-pool/internal/domain/user"
	"ride-pool/internal/general/contracts"
	"ride-pool/internal/general/logger"
	"ride-pool/internal/ports"
)

// ----- in-memory fakes -----

// fakeRideStore mirrors the store's conditional-update contract: every
// mutation checks its precondition under one lock and fails with
// ports.ErrNoMatch when it does not hold.
type fakeRideStore struct {
	mu    sync.Mutex
	rides map[string]*ride.Ride
}

func newFakeRideStore() *fakeRideStore {
	return &fakeRideStore{rides: make(map[string]*ride.Ride)}
}

func cloneRide(r *ride.Ride) *ride.Ride {
	c := *r
	c.Requests = slices.Clone(r.Requests)
	c.ConfirmedUsers = slices.Clone(r.ConfirmedUsers)
	return &c
}

func (s *fakeRideStore) EnsureIndexes(context.Context) error { return nil }

func (s *fakeRideStore) Insert(_ context.Context, r *ride.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[r.ID] = cloneRide(r)
	return nil
}

func (s *fakeRideStore) GetByID(_ context.Context, id string) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ride.ErrNotFound
	}
	return cloneRide(r), nil
}

func (s *fakeRideStore) List(_ context.Context, realm string, _ ports.RideFilter) ([]*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ride.Ride
	for _, r := range s.rides {
		if r.Realm == realm {
			out = append(out, cloneRide(r))
		}
	}
	return out, nil
}

func (s *fakeRideStore) ListByCreator(_ context.Context, realm, creatorID string) ([]*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ride.Ride
	for _, r := range s.rides {
		if r.Realm == realm && r.CreatorID == creatorID {
			out = append(out, cloneRide(r))
		}
	}
	return out, nil
}

func (s *fakeRideStore) AddRequest(_ context.Context, rideID, actorID string) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[rideID]
	if !ok || r.Status == ride.StatusClosed || r.CreatorID == actorID ||
		slices.Contains(r.Requests, actorID) || slices.Contains(r.ConfirmedUsers, actorID) {
		return nil, ports.ErrNoMatch
	}
	r.Requests = append(r.Requests, actorID)
	return cloneRide(r), nil
}

func (s *fakeRideStore) RemoveRequest(_ context.Context, rideID, actorID string) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[rideID]
	if !ok || !slices.Contains(r.Requests, actorID) {
		return nil, ports.ErrNoMatch
	}
	r.Requests = slices.DeleteFunc(slices.Clone(r.Requests), func(id string) bool { return id == actorID })
	return cloneRide(r), nil
}

func (s *fakeRideStore) AcceptRequest(_ context.Context, rideID, actorID string, expiresAt time.Time) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[rideID]
	if !ok || r.AvailableSeats <= 0 || !slices.Contains(r.Requests, actorID) {
		return nil, ports.ErrNoMatch
	}
	r.Requests = slices.DeleteFunc(slices.Clone(r.Requests), func(id string) bool { return id == actorID })
	r.ConfirmedUsers = append(r.ConfirmedUsers, actorID)
	r.AvailableSeats--
	if r.AvailableSeats == 0 {
		r.Status = ride.StatusFull
	}
	r.ExpiresAt = expiresAt.UTC()
	return cloneRide(r), nil
}

func (s *fakeRideStore) SetClosed(_ context.Context, rideID string) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[rideID]
	if !ok {
		return nil, ports.ErrNoMatch
	}
	r.Status = ride.StatusClosed
	return cloneRide(r), nil
}

func (s *fakeRideStore) SetSchedule(_ context.Context, rideID string, departAt, expiresAt time.Time) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[rideID]
	if !ok {
		return nil, ports.ErrNoMatch
	}
	r.DepartAt = departAt.UTC()
	r.ExpiresAt = expiresAt.UTC()
	return cloneRide(r), nil
}

func (s *fakeRideStore) SetChatAccess(_ context.Context, rideID string, enabled bool) (*ride.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[rideID]
	if !ok {
		return nil, ports.ErrNoMatch
	}
	r.AllowChat = enabled
	return cloneRide(r), nil
}

func (s *fakeRideStore) CloseStale(_ context.Context, ids []string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		r, ok := s.rides[id]
		if ok && r.Status == ride.StatusOpen && now.After(r.DepartAt.Add(ride.StaleAfter)) {
			r.Status = ride.StatusClosed
			n++
		}
	}
	return n, nil
}

type fakeMessageLog struct {
	mu       sync.Mutex
	appended []*chat.Message
	extended map[string]time.Time
}

func newFakeMessageLog() *fakeMessageLog {
	return &fakeMessageLog{extended: make(map[string]time.Time)}
}

func (l *fakeMessageLog) EnsureIndexes(context.Context) error { return nil }

func (l *fakeMessageLog) Append(_ context.Context, m *chat.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appended = append(l.appended, m)
	return nil
}

func (l *fakeMessageLog) ListByRide(_ context.Context, rideID string, _ int64) ([]*chat.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*chat.Message
	for _, m := range l.appended {
		if m.RideID == rideID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (l *fakeMessageLog) ExtendRetention(_ context.Context, rideID string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.extended[rideID]; !ok || until.After(cur) {
		l.extended[rideID] = until
	}
	return nil
}

type fakeDirectory struct {
	profiles map[string]ports.Profile
	err      error
}

func (d *fakeDirectory) Lookup(_ context.Context, ids []string) (map[string]ports.Profile, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make(map[string]ports.Profile)
	for _, id := range ids {
		if p, ok := d.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type publishedEvent struct {
	exchange, routingKey string
	body                 []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) Publish(exchange, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange, routingKey, body})
	return nil
}

func (p *fakePublisher) routes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.routingKey)
	}
	return out
}

// ----- fixture -----

type fixture struct {
	svc      ports.RideService
	store    *fakeRideStore
	messages *fakeMessageLog
	pub      *fakePublisher
}

func newFixture() *fixture {
	store := newFakeRideStore()
	messages := newFakeMessageLog()
	pub := &fakePublisher{}
	dir := &fakeDirectory{profiles: map[string]ports.Profile{
		"creator-1": {ID: "creator-1", Name: "Alice", Email: "alice@example.edu"},
		"user-2":    {ID: "user-2", Name: "Bob", Email: "bob@example.edu"},
	}}
	return &fixture{
		svc:      NewPoolService(logger.New("pool-service-test"), store, messages, dir, pub),
		store:    store,
		messages: messages,
		pub:      pub,
	}
}

var (
	creator   = user.Identity{ID: "creator-1", Realm: "campus-a", Gender: "FEMALE", Name: "Alice"}
	requester = user.Identity{ID: "user-2", Realm: "campus-a", Gender: "MALE", Name: "Bob"}
	thirdUser = user.Identity{ID: "user-3", Realm: "campus-a", Gender: "MALE", Name: "Cara"}
)

func createRide(t *testing.T, f *fixture, seats int) string {
	t.Helper()
	view, err := f.svc.Create(context.Background(), creator, ports.CreateRideInput{
		FromLocation:    "Dorms",
		ToLocation:      "Airport",
		Seats:           seats,
		PreferredGender: ride.GenderAny,
		DepartAt:        time.Now().Add(4 * time.Hour),
		AllowChat:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return view.ID
}

// insertStale plants an OPEN ride whose departure is well past the
// staleness window, bypassing Create's future-departure validation.
func insertStale(t *testing.T, f *fixture, id string) {
	t.Helper()
	now := time.Now().UTC()
	r := &ride.Ride{
		ID:              id,
		CreatedAt:       now.Add(-10 * time.Hour),
		CreatorID:       creator.ID,
		Realm:           creator.Realm,
		FromLocation:    "Dorms",
		ToLocation:      "Airport",
		DepartAt:        now.Add(-ride.StaleAfter - time.Hour),
		TotalSeats:      3,
		AvailableSeats:  3,
		PreferredGender: ride.GenderAny,
		Status:          ride.StatusOpen,
		AllowChat:       true,
		ExpiresAt:       now.Add(24 * time.Hour),
	}
	if err := f.store.Insert(context.Background(), r); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

// ----- tests -----

func TestCreateRide(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.svc.Create(ctx, creator, ports.CreateRideInput{
		FromLocation:    "Dorms",
		ToLocation:      "Airport",
		Seats:           2,
		PreferredGender: ride.GenderAny,
		DepartAt:        time.Now().Add(2 * time.Hour),
		AllowChat:       true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if view.Status != ride.StatusOpen.String() {
		t.Errorf("status = %s, want OPEN", view.Status)
	}
	if view.AvailableSeats != 2 {
		t.Errorf("available_seats = %d, want 2", view.AvailableSeats)
	}
	if view.Creator.Name != "Alice" {
		t.Errorf("creator decorated as %q, want Alice", view.Creator.Name)
	}
	if view.ID == "" {
		t.Error("id must be assigned")
	}
}

func TestCreateRideRejectsBadInput(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), creator, ports.CreateRideInput{
		FromLocation:    "Dorms",
		ToLocation:      "Airport",
		Seats:           0,
		PreferredGender: ride.GenderAny,
		DepartAt:        time.Now().Add(time.Hour),
	})
	if !errors.Is(err, ride.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubmitRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	view, err := f.svc.SubmitRequest(ctx, requester, rideID)
	if err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}
	if len(view.Requests) != 1 || view.Requests[0].ID != requester.ID {
		t.Fatalf("requests = %+v", view.Requests)
	}
	if view.Requests[0].Name != "Bob" {
		t.Errorf("requester decorated as %q, want Bob", view.Requests[0].Name)
	}

	if got := f.pub.routes(); len(got) != 1 || got[0] != contracts.RouteRequestSubmitted {
		t.Errorf("published routes = %v", got)
	}

	t.Run("duplicate", func(t *testing.T) {
		if _, err := f.svc.SubmitRequest(ctx, requester, rideID); !errors.Is(err, ride.ErrAlreadyRequested) {
			t.Fatalf("expected ErrAlreadyRequested, got %v", err)
		}
	})

	t.Run("self", func(t *testing.T) {
		if _, err := f.svc.SubmitRequest(ctx, creator, rideID); !errors.Is(err, ride.ErrSelfRequest) {
			t.Fatalf("expected ErrSelfRequest, got %v", err)
		}
	})

	t.Run("cross realm", func(t *testing.T) {
		outsider := user.Identity{ID: "user-9", Realm: "campus-b", Gender: "MALE"}
		if _, err := f.svc.SubmitRequest(ctx, outsider, rideID); !errors.Is(err, ride.ErrForbidden) {
			t.Fatalf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("unknown ride", func(t *testing.T) {
		if _, err := f.svc.SubmitRequest(ctx, requester, "ghost"); !errors.Is(err, ride.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestSubmitRequestGenderPolicy(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	view, err := f.svc.Create(ctx, creator, ports.CreateRideInput{
		FromLocation:    "Dorms",
		ToLocation:      "Airport",
		Seats:           2,
		PreferredGender: ride.GenderFemale,
		DepartAt:        time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := f.svc.SubmitRequest(ctx, requester, view.ID); !errors.Is(err, ride.ErrGenderMismatch) {
		t.Fatalf("expected ErrGenderMismatch, got %v", err)
	}

	female := user.Identity{ID: "user-5", Realm: "campus-a", Gender: "female"}
	if _, err := f.svc.SubmitRequest(ctx, female, view.ID); err != nil {
		t.Fatalf("case-insensitive match should pass: %v", err)
	}
}

func TestCancelRequest(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	view, err := f.svc.CancelRequest(ctx, requester, rideID)
	if err != nil {
		t.Fatalf("CancelRequest: %v", err)
	}
	if len(view.Requests) != 0 {
		t.Fatalf("requests = %+v, want empty", view.Requests)
	}

	// repeat cancellation is an error, not a silent no-op
	if _, err := f.svc.CancelRequest(ctx, requester, rideID); !errors.Is(err, ride.ErrNoPendingRequest) {
		t.Fatalf("expected ErrNoPendingRequest, got %v", err)
	}
}

func TestDecideAccept(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	view, err := f.svc.Decide(ctx, creator, rideID, requester.ID, ride.DecisionAccept)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if len(view.ConfirmedUsers) != 1 || view.ConfirmedUsers[0].ID != requester.ID {
		t.Fatalf("confirmed = %+v", view.ConfirmedUsers)
	}
	if len(view.Requests) != 0 {
		t.Fatalf("requests = %+v, want empty", view.Requests)
	}
	if view.AvailableSeats != 1 {
		t.Errorf("available_seats = %d, want 1", view.AvailableSeats)
	}
	if view.Status != ride.StatusOpen.String() {
		t.Errorf("status = %s, want OPEN while seats remain", view.Status)
	}

	// confirming a seat moves the ride and its chat to the long window
	stored, err := f.store.GetByID(ctx, rideID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if want := ride.RetentionDeadline(stored.DepartAt, true); !stored.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", stored.ExpiresAt, want)
	}
	f.messages.mu.Lock()
	_, extended := f.messages.extended[rideID]
	f.messages.mu.Unlock()
	if !extended {
		t.Error("chat retention must be extended on confirmation")
	}

	if got := f.pub.routes(); got[len(got)-1] != contracts.RouteRequestAccepted {
		t.Errorf("published routes = %v", got)
	}
}

func TestDecideAcceptFillsLastSeat(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 1)

	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	view, err := f.svc.Decide(ctx, creator, rideID, requester.ID, ride.DecisionAccept)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if view.Status != ride.StatusFull.String() {
		t.Errorf("status = %s, want FULL after last seat", view.Status)
	}
	if view.AvailableSeats != 0 {
		t.Errorf("available_seats = %d, want 0", view.AvailableSeats)
	}
}

func TestDecideReject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	view, err := f.svc.Decide(ctx, creator, rideID, requester.ID, ride.DecisionReject)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if len(view.Requests) != 0 || len(view.ConfirmedUsers) != 0 {
		t.Fatalf("membership after reject = %+v / %+v", view.Requests, view.ConfirmedUsers)
	}
	if view.AvailableSeats != 2 {
		t.Errorf("available_seats = %d, want untouched 2", view.AvailableSeats)
	}

	if got := f.pub.routes(); got[len(got)-1] != contracts.RouteRequestRejected {
		t.Errorf("published routes = %v", got)
	}

	// a rejected user may request again
	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("re-request after reject: %v", err)
	}
}

func TestDecideAuthorization(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	if _, err := f.svc.Decide(ctx, thirdUser, rideID, requester.ID, ride.DecisionAccept); !errors.Is(err, ride.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.Decide(ctx, creator, rideID, "ghost", ride.DecisionAccept); !errors.Is(err, ride.ErrNotRequested) {
		t.Fatalf("expected ErrNotRequested, got %v", err)
	}
}

func TestLastSeatRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 1)

	for _, u := range []user.Identity{requester, thirdUser} {
		if _, err := f.svc.SubmitRequest(ctx, u, rideID); err != nil {
			t.Fatalf("SubmitRequest(%s): %v", u.ID, err)
		}
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, target := range []string{requester.ID, thirdUser.ID} {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			_, err := f.svc.Decide(ctx, creator, rideID, target, ride.DecisionAccept)
			errs <- err
		}(target)
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ride.ErrNoSeatsLeft):
			losses++
		default:
			t.Fatalf("unexpected race outcome: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d losses = %d, want exactly one of each", wins, losses)
	}

	stored, err := f.store.GetByID(ctx, rideID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.ConfirmedUsers) != 1 || stored.AvailableSeats != 0 {
		t.Fatalf("store after race: confirmed=%v seats=%d", stored.ConfirmedUsers, stored.AvailableSeats)
	}
	if stored.Status != ride.StatusFull {
		t.Errorf("status = %s, want FULL", stored.Status)
	}
}

func TestSameTargetRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 1)

	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); err != nil {
		t.Fatalf("SubmitRequest: %v", err)
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Decide(ctx, creator, rideID, requester.ID, ride.DecisionAccept)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins, losses int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ride.ErrNoSeatsLeft):
			losses++
		default:
			t.Fatalf("unexpected race outcome: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins = %d losses = %d, want exactly one of each", wins, losses)
	}

	stored, err := f.store.GetByID(ctx, rideID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(stored.ConfirmedUsers) != 1 || stored.ConfirmedUsers[0] != requester.ID {
		t.Fatalf("confirmed after race: %v", stored.ConfirmedUsers)
	}
}

func TestReaperClosesStaleOnRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	insertStale(t, f, "stale-1")

	view, err := f.svc.Get(ctx, creator, "stale-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Status != ride.StatusClosed.String() {
		t.Errorf("served status = %s, want CLOSED", view.Status)
	}

	stored, err := f.store.GetByID(ctx, "stale-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != ride.StatusClosed {
		t.Errorf("stored status = %s, want CLOSED", stored.Status)
	}
}

func TestReaperAppliesToListings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	insertStale(t, f, "stale-2")
	freshID := createRide(t, f, 2)

	views, err := f.svc.List(ctx, creator, ports.RideFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	byID := make(map[string]string)
	for _, v := range views {
		byID[v.ID] = v.Status
	}
	if byID["stale-2"] != ride.StatusClosed.String() {
		t.Errorf("stale ride listed as %s, want CLOSED", byID["stale-2"])
	}
	if byID[freshID] != ride.StatusOpen.String() {
		t.Errorf("fresh ride listed as %s, want OPEN", byID[freshID])
	}
}

func TestSubmitRequestToStaleRide(t *testing.T) {
	f := newFixture()
	insertStale(t, f, "stale-3")

	if _, err := f.svc.SubmitRequest(context.Background(), requester, "stale-3"); !errors.Is(err, ride.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestClose(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	if _, err := f.svc.Close(ctx, requester, rideID); !errors.Is(err, ride.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-creator, got %v", err)
	}

	view, err := f.svc.Close(ctx, creator, rideID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if view.Status != ride.StatusClosed.String() {
		t.Errorf("status = %s, want CLOSED", view.Status)
	}
	if got := f.pub.routes(); got[len(got)-1] != contracts.RouteRideClosed {
		t.Errorf("published routes = %v", got)
	}

	published := len(f.pub.routes())
	again, err := f.svc.Close(ctx, creator, rideID)
	if err != nil {
		t.Fatalf("repeat close must succeed idempotently: %v", err)
	}
	if again.Status != ride.StatusClosed.String() {
		t.Errorf("repeat close status = %s", again.Status)
	}
	if len(f.pub.routes()) != published {
		t.Error("repeat close must not publish another event")
	}

	// no mutation reaches a closed ride
	if _, err := f.svc.SubmitRequest(ctx, requester, rideID); !errors.Is(err, ride.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestReschedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	if _, err := f.svc.Reschedule(ctx, creator, rideID, time.Now().Add(-time.Hour)); !errors.Is(err, ride.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for past departure, got %v", err)
	}

	newDepart := time.Now().Add(48 * time.Hour)
	view, err := f.svc.Reschedule(ctx, creator, rideID, newDepart)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !view.DepartAt.Equal(newDepart.UTC()) {
		t.Errorf("depart_at = %v, want %v", view.DepartAt, newDepart.UTC())
	}
	if want := ride.RetentionDeadline(newDepart, false); !view.ExpiresAt.Equal(want) {
		t.Errorf("expires_at = %v, want %v", view.ExpiresAt, want)
	}
}

func TestSetChatAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	rideID := createRide(t, f, 2)

	view, err := f.svc.SetChatAccess(ctx, creator, rideID, false)
	if err != nil {
		t.Fatalf("SetChatAccess: %v", err)
	}
	if view.AllowChat {
		t.Error("allow_chat must be false after disable")
	}

	if _, err := f.svc.SetChatAccess(ctx, requester, rideID, true); !errors.Is(err, ride.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-creator, got %v", err)
	}

	view, err = f.svc.SetChatAccess(ctx, creator, rideID, true)
	if err != nil {
		t.Fatalf("SetChatAccess: %v", err)
	}
	if !view.AllowChat {
		t.Error("allow_chat must be true after re-enable")
	}
}

func TestDirectoryDegradesGracefully(t *testing.T) {
	store := newFakeRideStore()
	dir := &fakeDirectory{err: errors.New("directory down")}
	f := &fixture{
		svc:      NewPoolService(logger.New("pool-service-test"), store, newFakeMessageLog(), dir, &fakePublisher{}),
		store:    store,
		messages: newFakeMessageLog(),
		pub:      &fakePublisher{},
	}

	view, err := f.svc.Create(context.Background(), creator, ports.CreateRideInput{
		FromLocation:    "Dorms",
		ToLocation:      "Airport",
		Seats:           2,
		PreferredGender: ride.GenderAny,
		DepartAt:        time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("Create must not fail on directory outage: %v", err)
	}
	if view.Creator.Name != "Unknown" {
		t.Errorf("creator name = %q, want Unknown fallback", view.Creator.Name)
	}
}

func TestGetCrossRealmHidden(t *testing.T) {
	f := newFixture()
	rideID := createRide(t, f, 2)

	outsider := user.Identity{ID: "user-9", Realm: "campus-b", Gender: "MALE"}
	if _, err := f.svc.Get(context.Background(), outsider, rideID); !errors.Is(err, ride.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-realm get, got %v", err)
	}
}
