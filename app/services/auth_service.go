// Package services holds the application's business logic. Services depend
// on narrow store interfaces rather than the concrete repositories so they
// can be tested without a database.
package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/app/repositories"
	"github.com/shashiranjanraj/vidyapay/pkg/apperr"
	"github.com/shashiranjanraj/vidyapay/pkg/auth"
	"github.com/shashiranjanraj/vidyapay/pkg/logger"
)

// UserStore is the slice of UserRepository the auth service needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id primitive.ObjectID, role string) error
}

// AuthResult is a token paired with its user.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

type AuthService struct {
	users  UserStore
	tokens *auth.Tokens
}

func NewAuthService(users UserStore, tokens *auth.Tokens) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates a student account and logs it in.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	return s.create(ctx, email, password, name, models.RoleStudent)
}

// CreateAdmin creates an administrator account. The caller's own admin role
// is checked at the route, not here.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	result, err := s.create(ctx, email, password, name, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return result.User, nil
}

// Login verifies credentials and issues a token. Users from before roles
// existed get backfilled to student on their next login.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if user == nil || !auth.CheckPassword(user.Password, password) {
		return nil, apperr.New(apperr.Unauthenticated, "Invalid credentials")
	}

	if user.Role == "" {
		user.Role = models.RoleStudent
		if err := s.users.UpdateRole(ctx, user.ID, user.Role); err != nil {
			return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
		}
	}

	token, err := s.tokens.Issue(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) create(ctx context.Context, email, password, name, role string) (*AuthResult, error) {
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.BadRequest, "Email already registered")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	user := &models.User{Email: email, Password: hashed, Name: name, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost the race on the unique email index.
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, apperr.New(apperr.BadRequest, "Email already registered")
		}
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}

	logger.WithCtx(ctx).Info("user created", "email", user.Email, "role", user.Role)

	token, err := s.tokens.Issue(user.ID.Hex(), user.Email, user.Role)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Internal Server Error", err)
	}
	return &AuthResult{Token: token, User: user}, nil
}
