package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/vidyapay/app/models"
	"github.com/shashiranjanraj/vidyapay/pkg/apperr"
	"github.com/shashiranjanraj/vidyapay/pkg/auth"
)

func newAuthService() (*AuthService, *memUsers) {
	users := &memUsers{}
	return NewAuthService(users, auth.NewTokens("test-secret", time.Hour)), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService()

	reg, err := svc.Register(context.Background(), "asha@example.com", "secret123", "Asha")
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, models.RoleStudent, reg.User.Role)

	login, err := svc.Login(context.Background(), "asha@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	tokens := auth.NewTokens("test-secret", time.Hour)
	claims, err := tokens.Verify(login.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, claims.Role)
	assert.Equal(t, "asha@example.com", claims.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService()

	_, err := svc.Register(context.Background(), "asha@example.com", "secret123", "Asha")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "asha@example.com", "other-pass", "Asha Again")
	require.Error(t, err)
	appErr := apperr.As(err)
	assert.Equal(t, apperr.BadRequest, appErr.Kind)
	assert.Equal(t, "Email already registered", appErr.Message)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthService()
	_, err := svc.Register(context.Background(), "asha@example.com", "secret123", "Asha")
	require.NoError(t, err)

	for _, attempt := range []struct{ email, password string }{
		{"asha@example.com", "wrong"},
		{"nobody@example.com", "secret123"},
	} {
		_, err := svc.Login(context.Background(), attempt.email, attempt.password)
		require.Error(t, err)
		appErr := apperr.As(err)
		assert.Equal(t, apperr.Unauthenticated, appErr.Kind)
		assert.Equal(t, "Invalid credentials", appErr.Message)
	}
}

func TestLoginBackfillsMissingRole(t *testing.T) {
	svc, users := newAuthService()

	hashed, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), &models.User{
		Email:    "legacy@example.com",
		Password: hashed,
		Name:     "Legacy",
	}))

	result, err := svc.Login(context.Background(), "legacy@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, result.User.Role)

	stored, err := users.FindByEmail(context.Background(), "legacy@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, stored.Role)
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := newAuthService()
	admin, err := svc.CreateAdmin(context.Background(), "ops@example.com", "secret123", "Ops")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
}
