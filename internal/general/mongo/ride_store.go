package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ridesCollection  = "rides"
	defaultListLimit = 50
)

// RideStore persists rides in the `rides` collection. Every mutating method
// is a single conditional FindOneAndUpdate so that concurrent operations on
// the same ride serialize at the document level; the store, not the process,
// is the source of truth.
type RideStore struct {
	coll *mongo.Collection
}

// NewRideStore constructs a RideStore bound to the given database.
func NewRideStore(db *mongo.Database) *RideStore {
	return &RideStore{coll: db.Collection(ridesCollection)}
}

// rideDoc is the bson shape of a ride document.
type rideDoc struct {
	ID              string    `bson:"_id"`
	CreatorID       string    `bson:"creator_id"`
	Realm           string    `bson:"realm"`
	FromLocation    string    `bson:"from_location"`
	ToLocation      string    `bson:"to_location"`
	DepartAt        time.Time `bson:"depart_at"`
	TotalSeats      int       `bson:"total_seats"`
	AvailableSeats  int       `bson:"available_seats"`
	Requests        []string  `bson:"requests"`
	ConfirmedUsers  []string  `bson:"confirmed_users"`
	PreferredGender string    `bson:"preferred_gender"`
	Status          string    `bson:"status"`
	AllowChat       bool      `bson:"allow_chat"`
	ExpiresAt       time.Time `bson:"expires_at"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func toDoc(r *ride.Ride) rideDoc {
	requests := r.Requests
	if requests == nil {
		requests = []string{}
	}
	confirmed := r.ConfirmedUsers
	if confirmed == nil {
		confirmed = []string{}
	}
	return rideDoc{
		ID:              r.ID,
		CreatorID:       r.CreatorID,
		Realm:           r.Realm,
		FromLocation:    r.FromLocation,
		ToLocation:      r.ToLocation,
		DepartAt:        r.DepartAt,
		TotalSeats:      r.TotalSeats,
		AvailableSeats:  r.AvailableSeats,
		Requests:        requests,
		ConfirmedUsers:  confirmed,
		PreferredGender: r.PreferredGender.String(),
		Status:          r.Status.String(),
		AllowChat:       r.AllowChat,
		ExpiresAt:       r.ExpiresAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func fromDoc(d rideDoc) *ride.Ride {
	return &ride.Ride{
		ID:              d.ID,
		CreatorID:       d.CreatorID,
		Realm:           d.Realm,
		FromLocation:    d.FromLocation,
		ToLocation:      d.ToLocation,
		DepartAt:        d.DepartAt.UTC(),
		TotalSeats:      d.TotalSeats,
		AvailableSeats:  d.AvailableSeats,
		Requests:        d.Requests,
		ConfirmedUsers:  d.ConfirmedUsers,
		PreferredGender: ride.GenderPolicy(d.PreferredGender),
		Status:          ride.Status(d.Status),
		AllowChat:       d.AllowChat,
		ExpiresAt:       d.ExpiresAt.UTC(),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

// EnsureIndexes creates the realm/search index and the TTL index that
// implements hard deletion once expires_at elapses.
func (s *RideStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "realm", Value: 1}, {Key: "status", Value: 1}, {Key: "depart_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "realm", Value: 1}, {Key: "creator_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("rides ensure indexes: %w", err)
	}
	return nil
}

// Insert stores a new ride document.
func (s *RideStore) Insert(ctx context.Context, r *ride.Ride) error {
	if _, err := s.coll.InsertOne(ctx, toDoc(r)); err != nil {
		return fmt.Errorf("insert ride: %w", err)
	}
	return nil
}

// GetByID fetches a ride by id.
func (s *RideStore) GetByID(ctx context.Context, id string) (*ride.Ride, error) {
	var d rideDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ride.ErrNotFound
		}
		return nil, fmt.Errorf("get ride: %w", err)
	}
	return fromDoc(d), nil
}

// List returns realm-scoped rides matching the filter, soonest departure
// first.
func (s *RideStore) List(ctx context.Context, realm string, f ports.RideFilter) ([]*ride.Ride, error) {
	filter := bson.M{"realm": realm}
	if f.FromLocation != "" {
		filter["from_location"] = caseInsensitive(f.FromLocation)
	}
	if f.ToLocation != "" {
		filter["to_location"] = caseInsensitive(f.ToLocation)
	}
	departRange := bson.M{}
	if !f.DepartAfter.IsZero() {
		departRange["$gte"] = f.DepartAfter
	}
	if !f.DepartBefore.IsZero() {
		departRange["$lte"] = f.DepartBefore
	}
	if len(departRange) > 0 {
		filter["depart_at"] = departRange
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	return s.find(ctx, filter, limit)
}

// ListByCreator returns the rides an actor created within a realm.
func (s *RideStore) ListByCreator(ctx context.Context, realm, creatorID string) ([]*ride.Ride, error) {
	return s.find(ctx, bson.M{"realm": realm, "creator_id": creatorID}, defaultListLimit)
}

func (s *RideStore) find(ctx context.Context, filter bson.M, limit int64) ([]*ride.Ride, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "depart_at", Value: 1}}).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	defer cur.Close(ctx)

	var out []*ride.Ride
	for cur.Next(ctx) {
		var d rideDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode ride: %w", err)
		}
		out = append(out, fromDoc(d))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return out, nil
}

// AddRequest appends the actor to the pending request set. The filter
// re-asserts the submit preconditions so a racing close or duplicate request
// cannot slip in between the service's pre-check and this write.
func (s *RideStore) AddRequest(ctx context.Context, rideID, actorID string) (*ride.Ride, error) {
	filter := bson.M{
		"_id":             rideID,
		"status":          bson.M{"$ne": ride.StatusClosed.String()},
		"creator_id":      bson.M{"$ne": actorID},
		"requests":        bson.M{"$ne": actorID},
		"confirmed_users": bson.M{"$ne": actorID},
	}
	update := bson.M{
		"$addToSet": bson.M{"requests": actorID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

// RemoveRequest pulls the actor from the pending set; used for both the
// actor's own cancellation and a creator's reject.
func (s *RideStore) RemoveRequest(ctx context.Context, rideID, actorID string) (*ride.Ride, error) {
	filter := bson.M{"_id": rideID, "requests": actorID}
	update := bson.M{
		"$pull": bson.M{"requests": actorID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

// AcceptRequest is the decisive seat allocation write. Seat availability and
// the target's pending membership are part of the filter, and the whole
// move (pull, union, decrement, FULL flip, retention extension) is one
// pipeline update — two accepts racing on the last seat resolve to one
// success and one ErrNoMatch, never a double booking.
func (s *RideStore) AcceptRequest(ctx context.Context, rideID, actorID string, expiresAt time.Time) (*ride.Ride, error) {
	filter := bson.M{
		"_id":             rideID,
		"available_seats": bson.M{"$gt": 0},
		"requests":        actorID,
	}
	update := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "requests", Value: bson.D{{Key: "$setDifference", Value: bson.A{"$requests", bson.A{actorID}}}}},
			{Key: "confirmed_users", Value: bson.D{{Key: "$setUnion", Value: bson.A{"$confirmed_users", bson.A{actorID}}}}},
			{Key: "available_seats", Value: bson.D{{Key: "$subtract", Value: bson.A{"$available_seats", 1}}}},
			{Key: "status", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$available_seats", 1}}},
				ride.StatusFull.String(),
				"$status",
			}}}},
			{Key: "expires_at", Value: expiresAt.UTC()},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	}
	return s.findOneAndUpdate(ctx, filter, update)
}

// SetClosed applies the unconditional creator close; idempotent when the
// ride is already CLOSED.
func (s *RideStore) SetClosed(ctx context.Context, rideID string) (*ride.Ride, error) {
	filter := bson.M{"_id": rideID}
	update := bson.M{"$set": bson.M{
		"status":     ride.StatusClosed.String(),
		"updated_at": time.Now().UTC(),
	}}
	return s.findOneAndUpdate(ctx, filter, update)
}

// SetSchedule updates the departure instant and the recomputed retention
// deadline together.
func (s *RideStore) SetSchedule(ctx context.Context, rideID string, departAt, expiresAt time.Time) (*ride.Ride, error) {
	filter := bson.M{"_id": rideID}
	update := bson.M{"$set": bson.M{
		"depart_at":  departAt.UTC(),
		"expires_at": expiresAt.UTC(),
		"updated_at": time.Now().UTC(),
	}}
	return s.findOneAndUpdate(ctx, filter, update)
}

// SetChatAccess flips the creator's chat toggle.
func (s *RideStore) SetChatAccess(ctx context.Context, rideID string, enabled bool) (*ride.Ride, error) {
	filter := bson.M{"_id": rideID}
	update := bson.M{"$set": bson.M{
		"allow_chat": enabled,
		"updated_at": time.Now().UTC(),
	}}
	return s.findOneAndUpdate(ctx, filter, update)
}

// CloseStale transitions exactly the given OPEN rides whose departure plus
// the staleness window has elapsed. The filter repeats the staleness
// condition so a concurrent reschedule cannot be clobbered.
func (s *RideStore) CloseStale(ctx context.Context, ids []string, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	filter := bson.M{
		"_id":       bson.M{"$in": ids},
		"status":    ride.StatusOpen.String(),
		"depart_at": bson.M{"$lte": now.UTC().Add(-ride.StaleAfter)},
	}
	update := bson.M{"$set": bson.M{
		"status":     ride.StatusClosed.String(),
		"updated_at": now.UTC(),
	}}
	res, err := s.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("close stale rides: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *RideStore) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (*ride.Ride, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d rideDoc
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ports.ErrNoMatch
		}
		return nil, fmt.Errorf("conditional ride update: %w", err)
	}
	return fromDoc(d), nil
}

func caseInsensitive(v string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(v) + "$", Options: "i"}
}
