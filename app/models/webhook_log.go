package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WebhookLog is the append-only audit record of one inbound callback.
// The raw payload is written before any processing so malformed or
// unmatched deliveries are never lost.
type WebhookLog struct {
	ID      primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Headers map[string][]string `bson:"headers"       json:"headers"`
	Body    map[string]any      `bson:"body"          json:"body"`
	Handled bool                `bson:"handled"       json:"handled"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
