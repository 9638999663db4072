// Package ratelimit throttles credential endpoints per client key.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Limiter decides whether one more attempt under key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
	Close() error
}

// Policy is the number of attempts permitted per window.
type Policy struct {
	Attempts int
	Window   time.Duration
}

func (p Policy) normalized() Policy {
	if p.Window <= 0 {
		p.Window = time.Minute
	}
	return p
}

// hashKey keeps raw client identifiers (IPs, emails) out of the backing store.
func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
