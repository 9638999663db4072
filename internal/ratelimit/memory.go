package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter keeps a token bucket per key in process. Used when no Redis
// is configured.
type MemoryLimiter struct {
	policy Policy
	now    func() time.Time

	mu       sync.Mutex
	limiters map[string]*keyLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMemoryLimiter starts a background sweep of idle keys; call Close to stop it.
func NewMemoryLimiter(policy Policy) *MemoryLimiter {
	rl := &MemoryLimiter{
		policy:   policy.normalized(),
		now:      time.Now,
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) bool {
	if rl.policy.Attempts <= 0 {
		return true
	}
	now := rl.now()

	rl.mu.Lock()
	kl, ok := rl.limiters[key]
	if !ok {
		every := rl.policy.Window / time.Duration(rl.policy.Attempts)
		kl = &keyLimiter{limiter: rate.NewLimiter(rate.Every(every), rl.policy.Attempts)}
		rl.limiters[key] = kl
	}
	kl.lastAccess = now
	rl.mu.Unlock()

	return kl.limiter.AllowN(now, 1)
}

func (rl *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.policy.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep(rl.now())
		case <-rl.stopCh:
			return
		}
	}
}

// sweep drops keys idle for longer than a full window; their bucket is full again.
func (rl *MemoryLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, kl := range rl.limiters {
		if now.Sub(kl.lastAccess) > rl.policy.Window {
			delete(rl.limiters, key)
		}
	}
}

func (rl *MemoryLimiter) Close() error {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	return nil
}
