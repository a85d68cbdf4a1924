// Package repositories holds the MongoDB data access layer, one repository
// per collection.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/database"
)

// ErrDuplicateEmail is returned when a user with the email already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// UserRepository handles database operations for User.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{col: db.Collection(database.ColUsers)}
}

// FindByEmail looks up a user by email. Returns (nil, nil) when absent.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("users: find by email: %w", err)
	}
	return &user, nil
}

// Create persists a new user. The unique email index turns races into
// ErrDuplicateEmail instead of duplicate accounts.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := r.col.InsertOne(ctx, user)
	if database.IsDuplicateKey(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("users: create: %w", err)
	}
	return nil
}

// UpdateRole persists a role change (used by the legacy login backfill).
func (r *UserRepository) UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"role": role, "updated_at": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("users: update role: %w", err)
	}
	return nil
}
