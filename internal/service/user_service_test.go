package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/events"
)

func strPtr(s string) *string { return &s }

func TestUpdateMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.user(t, e.signup(t, "alice", domain.RoleUser).User.ID)

	updated, err := e.users.UpdateMe(ctx, alice, &domain.UpdateMeRequest{
		FirstName: strPtr("Alicia"),
		Role:      strPtr(domain.RoleCompany),
	})
	require.NoError(t, err)
	require.Equal(t, "Alicia", updated.FirstName)
	require.Equal(t, domain.RoleCompany, updated.Role)
	require.Equal(t, alice.PasswordHash, e.user(t, alice.ID).PasswordHash)

	_, err = e.users.UpdateMe(ctx, alice, &domain.UpdateMeRequest{Role: strPtr(domain.RoleAdmin)})
	require.Equal(t, domain.KindValidation, domain.KindOf(err), "admin is never self-assigned")
}

func TestUpdateMeKeepsUniqueness(t *testing.T) {
	e := newEnv(t)
	alice := e.user(t, e.signup(t, "alice", domain.RoleUser).User.ID)
	e.signup(t, "bobby", domain.RoleUser)

	_, err := e.users.UpdateMe(context.Background(), alice, &domain.UpdateMeRequest{Email: strPtr("bobby@example.com")})
	require.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestDeleteMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	session := e.signup(t, "alice", domain.RoleUser)
	alice := e.user(t, session.User.ID)

	err := e.users.DeleteMe(ctx, alice, &domain.DeleteMeRequest{Password: "wrong-one", PasswordConfirm: "wrong-one"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, e.users.DeleteMe(ctx, alice, &domain.DeleteMeRequest{Password: "password-1", PasswordConfirm: "password-1"}))
	require.Contains(t, e.bus.published(), events.UserDeactivated)

	_, _, err = e.sessions.Authenticate(ctx, bearer(session.Token))
	require.ErrorIs(t, err, domain.ErrSubjectGone)

	_, err = e.auth.Login(ctx, &domain.LoginRequest{Login: "alice", Password: "password-1"})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestListUsers(t *testing.T) {
	e := newEnv(t)
	e.signup(t, "alice", domain.RoleUser)
	e.clock.Advance(1)
	e.signup(t, "bobby", domain.RoleUser)

	users, err := e.users.List(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, "bobby", users[0].Handle, "newest first")
}

func TestFavorites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.user(t, e.signup(t, "owner", domain.RoleCompany).User.ID)
	alice := e.user(t, e.signup(t, "alice", domain.RoleUser).User.ID)
	est := e.listEstate(t, owner)

	_, err := e.favorites.Add(ctx, alice, est.ID)
	require.NoError(t, err)
	_, err = e.favorites.Add(ctx, alice, est.ID)
	require.ErrorIs(t, err, domain.ErrDuplicate)

	list, err := e.favorites.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, est.ID, list[0].ID)

	require.NoError(t, e.favorites.Remove(ctx, alice, est.ID))
	require.ErrorIs(t, e.favorites.Remove(ctx, alice, est.ID), domain.ErrFavoriteNotFound)
}
