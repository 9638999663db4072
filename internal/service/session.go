package service

import (
	"context"
	"strings"

	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/internal/repository"
	"github.com/yuki-disu/PPD-back/pkg/auth"
)

// SessionVerifier turns an Authorization header into the current user.
type SessionVerifier struct {
	credentials *CredentialAuthority
	users       repository.UserRepository
}

func NewSessionVerifier(credentials *CredentialAuthority, users repository.UserRepository) *SessionVerifier {
	return &SessionVerifier{credentials: credentials, users: users}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// Authenticate runs the full check on every call. The user row is re-read
// so a password change takes effect on the next request.
func (v *SessionVerifier) Authenticate(ctx context.Context, header string) (*domain.User, *auth.Claims, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, nil, domain.ErrMissingToken
	}

	subject, claims, err := v.credentials.VerifyToken(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := v.users.FindByID(ctx, subject)
	if err != nil {
		return nil, nil, domain.ErrInternal.Wrap(err)
	}
	if user == nil || !user.Active {
		return nil, nil, domain.ErrSubjectGone
	}

	if user.ChangedPasswordAfter(claims.Issued()) {
		return nil, nil, domain.ErrPasswordChanged
	}
	return user, claims, nil
}
