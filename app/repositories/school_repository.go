package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
)

// SchoolRepository handles database operations for School.
type SchoolRepository struct {
	col *mongo.Collection
}

func NewSchoolRepository(db *database.DB) *SchoolRepository {
	return &SchoolRepository{col: db.Collection(database.ColSchools)}
}

// UpsertName sets the display name for a school id, creating the record if
// needed. Used by the seeding process.
func (r *SchoolRepository) UpsertName(ctx context.Context, schoolID, name string) error {
	now := time.Now()
	_, err := r.col.UpdateOne(ctx,
		bson.M{"school_id": schoolID},
		bson.M{
			"$set":         bson.M{"name": name, "updated_at": now},
			"$setOnInsert": bson.M{"school_id": schoolID, "created_at": now},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("schools: upsert name: %w", err)
	}
	return nil
}

// NamesByIDs returns school_id → display name for the given ids.
// Missing ids simply have no entry.
func (r *SchoolRepository) NamesByIDs(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	cur, err := r.col.Find(ctx, bson.M{"school_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("schools: find by ids: %w", err)
	}
	defer cur.Close(ctx)

	var schools []models.School
	if err := cur.All(ctx, &schools); err != nil {
		return nil, fmt.Errorf("schools: decode: %w", err)
	}

	names := make(map[string]string, len(schools))
	for _, s := range schools {
		names[s.SchoolID] = s.Name
	}
	return names, nil
}
