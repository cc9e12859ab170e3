// Property-based tests for the purchase rules shared by TokenService and
// GuessService: check, debit, then transition, with nothing applied when any
// step fails.
package service

import (
	"errors"
	"testing"
	"time"

	"pgregory.net/rapid"

	"oomf-core/internal/disclosure"
	"oomf-core/internal/economy"
	"oomf-core/internal/model"
	"oomf-core/internal/repository"
)

type wallet struct {
	balance int64
	ledger  []int64
}

func (w *wallet) debit(amount int64) error {
	if w.balance < amount {
		return repository.ErrInsufficientTokens
	}
	w.balance -= amount
	w.ledger = append(w.ledger, -amount)
	return nil
}

// simulateHint mirrors TokenService.GetHint on in-memory state.
func simulateHint(c *model.Compliment, w *wallet, price int64, n int) error {
	if err := disclosure.CheckHint(c, n); err != nil {
		return err
	}
	if err := w.debit(price); err != nil {
		return err
	}
	return disclosure.UnlockHint(c, n)
}

// simulateReveal mirrors TokenService.RevealWithTokens on in-memory state.
func simulateReveal(c *model.Compliment, w *wallet, price int64) error {
	if err := disclosure.CheckReveal(c); err != nil {
		return err
	}
	if err := w.debit(price); err != nil {
		return err
	}
	return disclosure.Reveal(c, model.RevealTokens, time.Now())
}

// TestPurchaseAtomicityProperty checks that a failed purchase never moves
// tokens or disclosure state, and that the ledger always explains the balance.
func TestPurchaseAtomicityProperty(t *testing.T) {
	catalog := economy.DefaultCatalog()
	hintPrice := catalog.Price(economy.ItemHint)
	revealPrice := catalog.Price(economy.ItemReveal)

	rapid.Check(t, func(t *rapid.T) {
		start := rapid.Int64Range(0, 10).Draw(t, "start")
		w := &wallet{balance: start}
		c := &model.Compliment{SenderID: "sender", GuessesRemaining: model.MaxGuesses}

		ops := rapid.IntRange(1, 20).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			before := *c
			balanceBefore := w.balance
			wasRevealed := c.IsRevealed

			var err error
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				err = simulateHint(c, w, hintPrice, rapid.IntRange(0, 4).Draw(t, "hint"))
			case 1:
				err = simulateReveal(c, w, revealPrice)
			case 2:
				guessed := rapid.SampledFrom([]string{"sender", "someone"}).Draw(t, "guessed")
				_, err = disclosure.ApplyGuess(c, guessed, time.Now())
			}

			if err != nil {
				if c.HintsUsed != before.HintsUsed || c.IsRevealed != before.IsRevealed ||
					c.GuessesRemaining != before.GuessesRemaining {
					t.Fatalf("failed op changed compliment: %+v -> %+v (%v)", before, *c, err)
				}
				if w.balance != balanceBefore {
					t.Fatalf("failed op moved tokens: %d -> %d (%v)", balanceBefore, w.balance, err)
				}
			}
			if wasRevealed && err == nil {
				t.Fatalf("op succeeded on a revealed compliment")
			}
			if wasRevealed && !errors.Is(err, disclosure.ErrAlreadyRevealed) {
				t.Fatalf("expected ErrAlreadyRevealed after reveal, got %v", err)
			}
			if w.balance < 0 {
				t.Fatalf("negative balance %d", w.balance)
			}
			if c.HintsUsed < 0 || c.HintsUsed > model.MaxHints {
				t.Fatalf("hints used out of range: %d", c.HintsUsed)
			}
			if c.GuessesRemaining < 0 || c.GuessesRemaining > model.MaxGuesses {
				t.Fatalf("guesses remaining out of range: %d", c.GuessesRemaining)
			}
		}

		var sum int64
		for _, amount := range w.ledger {
			sum += amount
		}
		if start+sum != w.balance {
			t.Fatalf("ledger does not explain balance: start=%d sum=%d balance=%d", start, sum, w.balance)
		}
	})
}

// TestHintSequenceProperty checks hints can only ever be bought as 1, 2, 3.
func TestHintSequenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := &wallet{balance: 100}
		c := &model.Compliment{GuessesRemaining: model.MaxGuesses}

		var bought []int
		for _, n := range rapid.SliceOfN(rapid.IntRange(1, model.MaxHints), 1, 10).Draw(t, "requests") {
			if err := simulateHint(c, w, 1, n); err == nil {
				bought = append(bought, n)
			}
		}

		for i, n := range bought {
			if n != i+1 {
				t.Fatalf("hints bought out of order: %v", bought)
			}
		}
		if int64(len(bought)) != 100-w.balance {
			t.Fatalf("charged %d for %d hints", 100-w.balance, len(bought))
		}
	})
}
