// Package database owns the MongoDB client and the collection indexes.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	ColOrders        = "orders"
	ColOrderStatuses = "orderstatuses"
	ColWebhookLogs   = "webhooklogs"
	ColSchools       = "schools"
	ColUsers         = "users"
	ColAppLogs       = "app_logs"
)

// DB bundles the connected client and database handle.
type DB struct {
	Client *mongo.Client
	Mongo  *mongo.Database
}

// Connect opens the database, verifies the connection with a ping, and
// ensures the indexes the write paths rely on. Returns an error instead of
// exiting so the caller controls the process exit code.
func Connect(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(25)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	db := &DB{Client: client, Mongo: client.Database(dbName)}
	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

// Collection returns a handle by name.
func (d *DB) Collection(name string) *mongo.Collection {
	return d.Mongo.Collection(name)
}

// Close disconnects the client.
func (d *DB) Close(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// ensureIndexes creates the uniqueness and query indexes. The unique indexes
// are load-bearing: custom_order_id must never collide, and the one-status-
// per-order invariant is enforced here rather than only by upsert targeting.
func (d *DB) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	specs := map[string][]mongo.IndexModel{
		ColOrders: {
			{Keys: bson.D{{Key: "custom_order_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "school_id", Value: 1}}},
		},
		ColOrderStatuses: {
			{Keys: bson.D{{Key: "collect_id", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "external_collect_request_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "payment_time", Value: -1}}},
		},
		ColSchools: {
			{Keys: bson.D{{Key: "school_id", Value: 1}}, Options: unique},
		},
		ColUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
	}

	for col, models := range specs {
		if _, err := d.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("database: ensure indexes on %s: %w", col, err)
		}
	}
	return nil
}

// IsDuplicateKey reports whether err is a Mongo unique-index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}
