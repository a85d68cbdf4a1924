package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// User is an identity record. Email is unique; the password field holds the
// bcrypt hash and is never serialised to clients.
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email"         json:"email"`
	Password string             `bson:"password"      json:"-"`
	Name     string             `bson:"name"          json:"name"`
	Role     string             `bson:"role"          json:"role"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
