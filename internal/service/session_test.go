package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/service"
)

func TestAuthenticateRoundTrip(t *testing.T) {
	e := newEnv(t)
	session := e.signup(t, "alice", domain.RoleUser)

	user, claims, err := e.sessions.Authenticate(context.Background(), bearer(session.Token))
	require.NoError(t, err)
	require.Equal(t, session.User.ID, user.ID)
	require.Equal(t, user.ID.String(), claims.Subject)
}

func TestAuthenticateRejectsMissingOrMalformed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, _, err := e.sessions.Authenticate(ctx, "")
	require.ErrorIs(t, err, domain.ErrMissingToken)

	_, _, err = e.sessions.Authenticate(ctx, "Basic abc")
	require.ErrorIs(t, err, domain.ErrMissingToken)

	_, _, err = e.sessions.Authenticate(ctx, "Bearer not.a.jwt")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
	require.Equal(t, domain.KindAuthentication, domain.KindOf(err))
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	e := newEnv(t)
	session := e.signup(t, "alice", domain.RoleUser)

	e.clock.Advance(2 * time.Hour)
	_, _, err := e.sessions.Authenticate(context.Background(), bearer(session.Token))
	require.ErrorIs(t, err, domain.ErrExpiredToken)
}

func TestTokenOlderThanPasswordChangeIsRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.clock.Advance(200 * time.Millisecond)
	session := e.signup(t, "alice", domain.RoleUser)
	user := e.user(t, session.User.ID)

	// same wall-clock second as the token
	e.clock.Advance(500 * time.Millisecond)
	fresh, err := e.auth.ChangePassword(ctx, user, &domain.ChangePasswordRequest{
		PasswordCurrent: "password-1",
		Password:        "password-2",
		PasswordConfirm: "password-2",
	})
	require.NoError(t, err)

	_, _, err = e.sessions.Authenticate(ctx, bearer(session.Token))
	require.ErrorIs(t, err, domain.ErrPasswordChanged)

	got, _, err := e.sessions.Authenticate(ctx, bearer(fresh.Token))
	require.NoError(t, err, "token issued with the change must be accepted")
	require.Equal(t, user.ID, got.ID)
}

func TestAuthenticateRejectsDeactivatedSubject(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	session := e.signup(t, "alice", domain.RoleUser)

	require.NoError(t, e.store.Users().Deactivate(ctx, session.User.ID))

	_, _, err := e.sessions.Authenticate(ctx, bearer(session.Token))
	require.ErrorIs(t, err, domain.ErrSubjectGone)
}

func TestBearerToken(t *testing.T) {
	tok, ok := service.BearerToken("bearer abc.def.ghi")
	require.True(t, ok)
	require.Equal(t, "abc.def.ghi", tok)

	_, ok = service.BearerToken("Bearer ")
	require.False(t, ok)
}
