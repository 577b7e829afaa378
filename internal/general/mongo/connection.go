package mongo

import (
	"context"
	"fmt"
	"time"

	"ride-pool/internal/general/config"
	"ride-pool/internal/general/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connect dials the document store, verifies connectivity, and returns the
// database handle the repositories hang off.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*mongo.Client, *mongo.Database, error) {
	start := time.Now()

	opts := options.Client().
		ApplyURI(cfg.Mongo.URI).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	log.Info(ctx, "mongo_connected", "Connected to document store", map[string]any{
		"database":    cfg.Mongo.Database,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return client, client.Database(cfg.Mongo.Database), nil
}
