package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
)

// StatusRepository handles database operations for OrderStatus.
//
// All writes go through UpsertByOrder: each upsert targets exactly one
// document keyed by the owning order id, and the unique collect_id index
// guarantees at most one status per order even under concurrent writers.
type StatusRepository struct {
	col *mongo.Collection
}

func NewStatusRepository(db *database.DB) *StatusRepository {
	return &StatusRepository{col: db.Collection(database.ColOrderStatuses)}
}

// UpsertByOrder sets fields on the status document owned by collectID,
// creating it if absent.
func (r *StatusRepository) UpsertByOrder(ctx context.Context, collectID primitive.ObjectID, fields bson.M) error {
	now := time.Now()
	set := bson.M{"updated_at": now}
	for k, v := range fields {
		set[k] = v
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"collect_id": collectID, "created_at": now},
	}

	_, err := r.col.UpdateOne(ctx, bson.M{"collect_id": collectID}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("orderstatuses: upsert: %w", err)
	}
	return nil
}

// FindByOrder returns the status owned by collectID. (nil, nil) when absent.
func (r *StatusRepository) FindByOrder(ctx context.Context, collectID primitive.ObjectID) (*models.OrderStatus, error) {
	return r.findOne(ctx, bson.M{"collect_id": collectID})
}

// FindByExternalID returns the status carrying the gateway's collect
// request id. (nil, nil) when absent.
func (r *StatusRepository) FindByExternalID(ctx context.Context, externalID string) (*models.OrderStatus, error) {
	return r.findOne(ctx, bson.M{"external_collect_request_id": externalID})
}

func (r *StatusRepository) findOne(ctx context.Context, filter bson.M) (*models.OrderStatus, error) {
	var status models.OrderStatus
	err := r.col.FindOne(ctx, filter).Decode(&status)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("orderstatuses: find: %w", err)
	}
	return &status, nil
}
