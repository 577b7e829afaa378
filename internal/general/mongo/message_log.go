package mongo

import (
	"context"
	"fmt"
	"time"

	"ride-pool/internal/domain/chat"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	messagesCollection  = "ride_messages"
	defaultHistoryLimit = 100
)

// MessageLog is the durable append-only chat log, one document per message.
// Retention mirrors the owning ride's retention via the same TTL mechanism.
type MessageLog struct {
	coll *mongo.Collection
}

// NewMessageLog constructs a MessageLog bound to the given database.
func NewMessageLog(db *mongo.Database) *MessageLog {
	return &MessageLog{coll: db.Collection(messagesCollection)}
}

type messageDoc struct {
	ID         string    `bson:"_id"`
	RideID     string    `bson:"ride_id"`
	SenderID   string    `bson:"sender_id"`
	SenderName string    `bson:"sender_name"`
	Body       string    `bson:"body"`
	SentAt     time.Time `bson:"sent_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

// EnsureIndexes creates the per-ride history index and the TTL index.
func (l *MessageLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "sent_at", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("messages ensure indexes: %w", err)
	}
	return nil
}

// Append stores one message.
func (l *MessageLog) Append(ctx context.Context, m *chat.Message) error {
	doc := messageDoc{
		ID:         m.ID,
		RideID:     m.RideID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Body:       m.Body,
		SentAt:     m.SentAt,
		ExpiresAt:  m.ExpiresAt,
	}
	if _, err := l.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// ListByRide returns a ride's messages oldest first.
func (l *MessageLog) ListByRide(ctx context.Context, rideID string, limit int64) ([]*chat.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "sent_at", Value: 1}}).
		SetLimit(limit)

	cur, err := l.coll.Find(ctx, bson.M{"ride_id": rideID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var out []*chat.Message
	for cur.Next(ctx) {
		var d messageDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, &chat.Message{
			ID:         d.ID,
			RideID:     d.RideID,
			SenderID:   d.SenderID,
			SenderName: d.SenderName,
			Body:       d.Body,
			SentAt:     d.SentAt.UTC(),
			ExpiresAt:  d.ExpiresAt.UTC(),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return out, nil
}

// ExtendRetention pushes every message of a ride out to the new deadline.
// $max means retention only ever grows.
func (l *MessageLog) ExtendRetention(ctx context.Context, rideID string, until time.Time) error {
	_, err := l.coll.UpdateMany(ctx,
		bson.M{"ride_id": rideID},
		bson.M{"$max": bson.M{"expires_at": until.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("extend message retention: %w", err)
	}
	return nil
}
