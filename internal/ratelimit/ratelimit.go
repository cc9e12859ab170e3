// Package ratelimit decides whether a user may perform a throttled action.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"oomf-core/internal/config"
)

// Action names a throttled operation.
type Action string

const (
	ActionSendCompliment Action = "send_compliment"
	ActionGuess          Action = "guess"
	ActionSendReply      Action = "send_reply"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Policy is consulted before a throttled action. Implementations must be
// safe for concurrent use.
type Policy interface {
	Check(ctx context.Context, action Action, userID string) (Decision, error)
}

// AllowAll is a Policy that never throttles.
type AllowAll struct{}

// Check always allows.
func (AllowAll) Check(context.Context, Action, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

// maxBuckets bounds the bucket map; full buckets are dropped past it.
const maxBuckets = 100_000

type bucketKey struct {
	action Action
	userID string
}

// Limiter is an in-process token bucket per (action, user).
type Limiter struct {
	mu      sync.Mutex
	limits  map[Action]config.LimitConfig
	buckets map[bucketKey]*rate.Limiter
	now     func() time.Time
}

// New returns the Policy described by cfg, or AllowAll when disabled.
func New(cfg config.RateLimitConfig) Policy {
	if !cfg.Enabled {
		return AllowAll{}
	}
	return NewLimiter(map[Action]config.LimitConfig{
		ActionSendCompliment: cfg.SendCompliment,
		ActionGuess:          cfg.Guess,
		ActionSendReply:      cfg.SendReply,
	})
}

// NewLimiter creates a Limiter with explicit per-action limits. Actions
// without a limit, or with a zero Count, are not throttled.
func NewLimiter(limits map[Action]config.LimitConfig) *Limiter {
	return &Limiter{
		limits:  limits,
		buckets: make(map[bucketKey]*rate.Limiter),
		now:     time.Now,
	}
}

// Check takes one token from the caller's bucket for action.
func (l *Limiter) Check(_ context.Context, action Action, userID string) (Decision, error) {
	lc, ok := l.limits[action]
	if !ok || lc.Count <= 0 || lc.Per <= 0 {
		return Decision{Allowed: true}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	lim := l.bucket(bucketKey{action: action, userID: userID}, lc, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return Decision{Allowed: false, RetryAfter: lc.Per}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}, nil
	}
	return Decision{Allowed: true}, nil
}

// bucket returns the limiter for key, creating it full. Callers hold l.mu.
func (l *Limiter) bucket(key bucketKey, lc config.LimitConfig, now time.Time) *rate.Limiter {
	if lim, ok := l.buckets[key]; ok {
		return lim
	}

	if len(l.buckets) >= maxBuckets {
		l.prune(now)
	}

	burst := lc.Burst
	if burst <= 0 {
		burst = lc.Count
	}
	lim := rate.NewLimiter(rate.Every(lc.Per/time.Duration(lc.Count)), burst)
	l.buckets[key] = lim
	return lim
}

// prune drops buckets that have refilled completely, since a fresh bucket
// behaves identically.
func (l *Limiter) prune(now time.Time) {
	for key, lim := range l.buckets {
		if lim.TokensAt(now) >= float64(lim.Burst()) {
			delete(l.buckets, key)
		}
	}
}

// Len returns the number of tracked buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
