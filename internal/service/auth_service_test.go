package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/events"
	"golang.org/x/crypto/bcrypt"
)

func TestSignupStoresHashAndPublishes(t *testing.T) {
	e := newEnv(t)
	session := e.signup(t, "alice", "")

	require.NotEmpty(t, session.Token)
	require.Equal(t, domain.RoleUser, session.User.Role)

	stored := e.user(t, session.User.ID)
	require.NotEqual(t, "password-1", stored.PasswordHash)
	require.True(t, e.credentials.VerifyPassword("password-1", stored.PasswordHash))
	require.Contains(t, e.bus.published(), events.UserSignedUp)
}

func TestSignupRejectsDuplicates(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "alice", domain.RoleUser)

	_, err := e.auth.Signup(context.Background(), &domain.SignupRequest{
		Handle:          "alice2",
		Email:           "ALICE@example.com",
		Password:        "password-1",
		PasswordConfirm: "password-1",
		FirstName:       "Alice",
	})
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestSignupCannotClaimAdmin(t *testing.T) {
	e := newEnv(t)
	_, err := e.auth.Signup(context.Background(), &domain.SignupRequest{
		Handle:          "mallory",
		Email:           "mallory@example.com",
		Password:        "password-1",
		PasswordConfirm: "password-1",
		FirstName:       "Mallory",
		Role:            domain.RoleAdmin,
	})
	require.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.signup(t, "alice", domain.RoleUser)

	byEmail, err := e.auth.Login(ctx, &domain.LoginRequest{Login: "Alice@Example.com", Password: "password-1"})
	require.NoError(t, err)
	require.Equal(t, "alice", byEmail.User.Handle)

	byHandle, err := e.auth.Login(ctx, &domain.LoginRequest{Login: "ALICE", Password: "password-1"})
	require.NoError(t, err)
	require.Equal(t, byEmail.User.ID, byHandle.User.ID)

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Login: "alice", Password: "wrong-pass"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Login: "nobody", Password: "password-1"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials, "unknown users look like bad passwords")
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)
	u, err := e.store.Users().Create(ctx, &domain.User{
		Handle:       "legacy",
		Email:        "legacy@example.com",
		PasswordHash: string(legacy),
		Role:         domain.RoleUser,
		FirstName:    "Leg",
	})
	require.NoError(t, err)

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Login: "legacy", Password: "old-password"})
	require.NoError(t, err)

	stored := e.user(t, u.ID)
	require.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
	require.True(t, e.credentials.VerifyPassword("old-password", stored.PasswordHash))
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	e := newEnv(t)
	session := e.signup(t, "alice", domain.RoleUser)

	_, err := e.auth.ChangePassword(context.Background(), e.user(t, session.User.ID), &domain.ChangePasswordRequest{
		PasswordCurrent: "not-it-at-all",
		Password:        "password-2",
		PasswordConfirm: "password-2",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
