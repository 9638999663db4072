// Package auth issues and verifies HS256 session tokens.
//
// A token carries only the subject id and its issue/expiry times. Whether the
// subject still exists, or changed its password after iat, is decided by the
// caller against current storage.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// clockSkew absorbs iat rounding and small drift between replicas. It is
// not applied to expiry.
const clockSkew = 2 * time.Second

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

type Claims struct {
	jwt.RegisteredClaims
}

// Issued returns iat, or the zero time when absent.
func (c *Claims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

type Issuer struct {
	secret   []byte
	ttl      time.Duration
	audience string
	now      func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, audience string) *Issuer {
	return &Issuer{
		secret:   []byte(secret),
		ttl:      ttl,
		audience: audience,
		now:      time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token for subject. iat carries whole seconds, so it is
// rounded up past notBefore: a token minted right after a password change
// must not look older than the change.
func (i *Issuer) Issue(subject string, notBefore time.Time) (string, *Claims, error) {
	if subject == "" {
		return "", nil, fmt.Errorf("issue token: empty subject")
	}
	iat := i.now().Truncate(time.Second)
	if floor := ceilSecond(notBefore); floor.After(iat) {
		iat = floor
	}
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(iat),
			NotBefore: jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(i.ttl)),
			Audience:  []string{i.audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

func ceilSecond(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	f := t.Truncate(time.Second)
	if f.Equal(t) {
		return f
	}
	return f.Add(time.Second)
}

// Verify checks signature, algorithm and expiry. It performs no I/O.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithAudience(i.audience),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	tok, err := parser.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	// the leeway covers nbf and iat only; exp is exact
	if !i.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return claims, nil
}
