package service

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/yuki-disu/PPD-back/internal/domain"
	"github.com/yuki-disu/PPD-back/pkg/auth"
	"golang.org/x/crypto/bcrypt"
)

// CredentialAuthority hashes and checks passwords and mints session tokens.
// It is shared by all requests.
type CredentialAuthority struct {
	params *argon2id.Params
	issuer *auth.Issuer

	standInOnce sync.Once
	standIn     string
}

func NewCredentialAuthority(issuer *auth.Issuer, params *argon2id.Params) *CredentialAuthority {
	if params == nil {
		params = argon2id.DefaultParams
	}
	return &CredentialAuthority{params: params, issuer: issuer}
}

func (c *CredentialAuthority) HashPassword(secret string) (string, error) {
	hash, err := argon2id.CreateHash(secret, c.params)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword never fails loudly: a mismatch or an unreadable digest is
// simply false. An empty digest (no such account) is compared against a
// stand-in digest so the answer costs the same as a real mismatch.
func (c *CredentialAuthority) VerifyPassword(secret, digest string) bool {
	if digest == "" {
		argon2id.ComparePasswordAndHash(secret, c.standInDigest())
		return false
	}
	if isBcrypt(digest) {
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
	}
	ok, err := argon2id.ComparePasswordAndHash(secret, digest)
	return err == nil && ok
}

// standInDigest hashes a random secret nobody knows, once, with the
// configured params.
func (c *CredentialAuthority) standInDigest() string {
	c.standInOnce.Do(func() {
		c.standIn, _ = argon2id.CreateHash(rand.Text(), c.params)
	})
	return c.standIn
}

// NeedsRehash reports digests imported with the legacy bcrypt scheme.
func (c *CredentialAuthority) NeedsRehash(digest string) bool {
	return isBcrypt(digest)
}

func isBcrypt(digest string) bool {
	return strings.HasPrefix(digest, "$2a$") || strings.HasPrefix(digest, "$2b$") || strings.HasPrefix(digest, "$2y$")
}

// IssueToken signs a session token for u. The token is never older than
// u's last password change.
func (c *CredentialAuthority) IssueToken(u *domain.User) (string, *auth.Claims, error) {
	token, claims, err := c.issuer.Issue(u.ID.String(), u.PasswordFloor())
	if err != nil {
		return "", nil, domain.ErrInternal.Wrap(err)
	}
	return token, claims, nil
}

// VerifyToken checks the token and returns its subject. Errors are
// authentication errors.
func (c *CredentialAuthority) VerifyToken(token string) (uuid.UUID, *auth.Claims, error) {
	claims, err := c.issuer.Verify(token)
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return uuid.Nil, nil, domain.ErrExpiredToken.Wrap(err)
	case err != nil:
		return uuid.Nil, nil, domain.ErrInvalidToken.Wrap(err)
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, domain.ErrInvalidToken.Wrap(err)
	}
	return subject, claims, nil
}
