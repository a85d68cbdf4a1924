package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
)

// WebhookRepository is the append-only audit log of inbound callbacks.
type WebhookRepository struct {
	col *mongo.Collection
}

func NewWebhookRepository(db *database.DB) *WebhookRepository {
	return &WebhookRepository{col: db.Collection(database.ColWebhookLogs)}
}

// Append records one raw callback before any processing and returns the
// entry's id so that exactly this entry can later be marked handled.
func (r *WebhookRepository) Append(ctx context.Context, headers map[string][]string, body map[string]any) (primitive.ObjectID, error) {
	now := time.Now()
	entry := models.WebhookLog{
		ID:        primitive.NewObjectID(),
		Headers:   headers,
		Body:      body,
		Handled:   false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.col.InsertOne(ctx, entry); err != nil {
		return primitive.NilObjectID, fmt.Errorf("webhooklogs: append: %w", err)
	}
	return entry.ID, nil
}

// MarkHandled flips the handled flag on the single entry identified by id.
// Only the triggering entry is flagged; historical deliveries that happen to
// reference the same order keep their own state.
func (r *WebhookRepository) MarkHandled(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"handled": true, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("webhooklogs: mark handled: %w", err)
	}
	return nil
}
