// Package service implements the compliment, guessing, token and Secret
// Admirer operations. Every mutating operation runs under an in-process key
// lock and inside one database transaction, and emits its notifications
// only after the transaction commits.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"oomf-core/internal/config"
	"oomf-core/internal/economy"
	"oomf-core/internal/metrics"
	"oomf-core/internal/notify"
	"oomf-core/internal/pkg/lock"
	"oomf-core/internal/ratelimit"
	"oomf-core/internal/repository"
)

// RelationshipGate answers the social-graph questions that gate sending.
type RelationshipGate interface {
	IsFriend(ctx context.Context, a, b string) (bool, error)
	IsBlocked(ctx context.Context, a, b string) (bool, error)
}

// Rules holds the tunable numbers of the game.
type Rules struct {
	Points          config.PointsConfig
	SendReward      int64
	RevealThreshold int
	LockTimeout     time.Duration
}

// RulesFromConfig extracts Rules from application config.
func RulesFromConfig(cfg *config.Config) Rules {
	return Rules{
		Points:          cfg.Points,
		SendReward:      cfg.Economy.SendReward,
		RevealThreshold: cfg.Exchange.RevealThreshold,
		LockTimeout:     cfg.Server.LockTimeout,
	}
}

// DefaultRules returns the standard rules.
func DefaultRules() Rules {
	return Rules{
		Points:          config.PointsConfig{SendNormal: 1, SendSecretAdmirer: 15, Receive: 3, CorrectGuess: 5},
		RevealThreshold: 6,
		LockTimeout:     5 * time.Second,
	}
}

// Deps are the collaborators shared by all services.
type Deps struct {
	Store     *repository.Store
	Locks     *lock.KeyLock
	Relations RelationshipGate
	Limiter   ratelimit.Policy
	Emitter   notify.Emitter
	Catalog   *economy.Catalog
	Rules     Rules
	Now       func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// run executes fn in a transaction while holding the in-process lock for key.
func (d *Deps) run(ctx context.Context, key string, fn func(tx *repository.Store) error) error {
	timeout := d.Rules.LockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	err := d.Locks.WithLockContext(ctx, key, timeout, func() error {
		return d.Store.InTx(ctx, fn)
	})
	return translate(err)
}

// limit consults the rate-limit policy for userID.
func (d *Deps) limit(ctx context.Context, action ratelimit.Action, userID string) error {
	if d.Limiter == nil {
		return nil
	}
	decision, err := d.Limiter.Check(ctx, action, userID)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &RateLimitedError{Action: string(action), RetryAfter: decision.RetryAfter}
	}
	return nil
}

// emit delivers events after commit. Failures are logged, never returned.
func (d *Deps) emit(ctx context.Context, events ...notify.Event) {
	if d.Emitter == nil {
		return
	}
	for _, ev := range events {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = d.now()
		}
		if err := d.Emitter.Emit(ctx, ev); err != nil {
			metrics.NotifyError(string(ev.Type))
			log.Warn().Err(err).Str("event", string(ev.Type)).Msg("Failed to deliver notification")
		}
	}
}

// observe records the outcome of an operation. Use with defer and a named
// error result.
func observe(operation string, start time.Time, err *error) {
	metrics.ObserveOperation(operation, Code(*err), time.Since(start))
}

func complimentKey(id string) string { return "compliment:" + id }
func exchangeKey(id string) string   { return "exchange:" + id }
func userKey(id string) string       { return "user:" + id }
