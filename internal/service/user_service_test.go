package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carmarket/internal/repository"
	"carmarket/internal/repository/sqlite"
)

func newTestRepos(t *testing.T) (repository.UserRepository, repository.CarRepository, func()) {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	cars := sqlite.NewCarRepository(db)
	require.NoError(t, users.Init(context.Background()))
	require.NoError(t, cars.Init(context.Background()))

	return users, cars, func() { db.Close() }
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRegisterAndAuthenticate(t *testing.T) {
	users, _, _ := newTestRepos(t)
	svc := NewUserService(users)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret", "s3cret")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Empty(t, user.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestRegisterValidation(t *testing.T) {
	users, _, _ := newTestRepos(t)
	svc := NewUserService(users)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		email    string
		password string
		confirm  string
		field    string
	}{
		{"missing username", "", "a@example.com", "pw", "pw", "username"},
		{"missing email", "alice", "", "pw", "pw", "email"},
		{"missing password", "alice", "a@example.com", "", "", "password"},
		{"mismatched confirm", "alice", "a@example.com", "pw", "other", "confirm_password"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tc.username, tc.email, tc.password, tc.confirm)
			verr, ok := AsValidation(err)
			require.True(t, ok, "expected a validation error, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	users, _, _ := newTestRepos(t)
	svc := NewUserService(users)
	ctx := context.Background()

	first, err := svc.Register(ctx, "alice", "alice@example.com", "pw", "pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other@example.com", "pw", "pw")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	_, err = svc.Register(ctx, "bob", "alice@example.com", "pw", "pw")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	// the original registration is untouched
	got, err := svc.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
}

func TestAuthenticateFailures(t *testing.T) {
	users, _, _ := newTestRepos(t)
	svc := NewUserService(users)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret", "s3cret")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrUnknownUsername)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
}
