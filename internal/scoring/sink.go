package scoring

import (
	"context"
	"errors"
	"fmt"

	"oomf-core/internal/model"
	"oomf-core/internal/repository"
)

// ErrInvalidAmount is returned for non-positive token amounts.
var ErrInvalidAmount = errors.New("token amount must be positive")

// Sink applies scoring side effects through a Store. Built on a
// transaction-bound Store, every effect commits or rolls back with the
// caller's state transition.
type Sink struct {
	store *repository.Store
}

// NewSink creates a Sink writing through store.
func NewSink(store *repository.Store) *Sink {
	return &Sink{store: store}
}

// AddPoints adds delta to the user's score. A zero delta is a no-op.
func (s *Sink) AddPoints(ctx context.Context, userID string, delta int64) error {
	if delta == 0 {
		return nil
	}
	if _, err := s.store.Users.AddScore(ctx, userID, delta); err != nil {
		return fmt.Errorf("failed to add %d points: %w", delta, err)
	}
	return nil
}

// IncrementStat adds one to a stat counter.
func (s *Sink) IncrementStat(ctx context.Context, userID string, stat model.Stat) error {
	return s.store.Users.IncrementStat(ctx, userID, stat)
}

// DebitTokens removes amount tokens and writes the ledger row. It returns
// repository.ErrInsufficientTokens, leaving the balance untouched, when the
// balance is below amount.
func (s *Sink) DebitTokens(ctx context.Context, userID string, amount int64, reason, ref string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if balance, err = tx.Users.DebitTokens(ctx, userID, amount); err != nil {
			return err
		}
		_, err = tx.Tokens.Create(ctx, userID, -amount, reason, refArg(ref))
		return err
	})
	return balance, err
}

// CreditTokens adds amount tokens and writes the ledger row.
func (s *Sink) CreditTokens(ctx context.Context, userID string, amount int64, reason, ref string) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	var balance int64
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if balance, err = tx.Users.CreditTokens(ctx, userID, amount); err != nil {
			return err
		}
		_, err = tx.Tokens.Create(ctx, userID, amount, reason, refArg(ref))
		return err
	})
	return balance, err
}

func refArg(ref string) *string {
	if ref == "" {
		return nil
	}
	return &ref
}
