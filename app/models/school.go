package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// School maps a school identifier to its display name. Upserted by the
// offline seeding process, never by the reconciliation flow.
type School struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SchoolID string             `bson:"school_id"     json:"school_id"`
	Name     string             `bson:"name"          json:"name"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
