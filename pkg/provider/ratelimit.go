package provider

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Category groups remote calls for client-side pacing. Each category has
// its own minimum spacing between dispatches.
type Category string

const (
	CategoryProfileCreate Category = "profile-create"
	CategoryProfileUpdate Category = "profile-update"
	CategoryProfileDelete Category = "profile-delete"
	CategorySessionStart  Category = "session-start"
	CategorySessionStop   Category = "session-stop"
	CategoryGroupList     Category = "group-list"
	CategoryGroupMutate   Category = "group-mutate"
)

// throttle enforces per-category minimum spacing and the creation cooldown.
// It is a cooperative client-side pacer, not a token bucket: it bounds
// burst rate only.
type throttle struct {
	cfg Config

	mu            sync.Mutex
	limiters      map[Category]*rate.Limiter
	cooldownUntil time.Time

	now func() time.Time
}

func newThrottle(cfg Config) *throttle {
	return &throttle{
		cfg:      cfg,
		limiters: make(map[Category]*rate.Limiter),
		now:      time.Now,
	}
}

// wait blocks until the category's minimum spacing since its last dispatch
// has elapsed, or ctx is cancelled.
func (t *throttle) wait(ctx context.Context, cat Category) error {
	t.mu.Lock()
	limiter, ok := t.limiters[cat]
	if !ok {
		spacing := t.cfg.spacingFor(cat)
		limiter = rate.NewLimiter(rate.Every(spacing), 1)
		t.limiters[cat] = limiter
	}
	t.mu.Unlock()

	return limiter.Wait(ctx)
}

// checkCooldown returns a CooldownError while the creation lockout is
// active.
func (t *throttle) checkCooldown() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.now().Before(t.cooldownUntil) {
		return &CooldownError{Until: t.cooldownUntil}
	}
	return nil
}

// enterCooldown records a hard lockout and returns the resulting error.
func (t *throttle) enterCooldown() *CooldownError {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cooldownUntil = t.now().Add(t.cfg.CooldownDuration)
	return &CooldownError{Until: t.cooldownUntil}
}

// cooldownRemaining returns how long the creation lockout has left, or zero.
func (t *throttle) cooldownRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.cooldownUntil.Sub(t.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
