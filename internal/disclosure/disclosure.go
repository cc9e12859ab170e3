// Package disclosure holds the state machine deciding when a compliment's
// sender becomes visible. Guessing, token purchases and Secret Admirer
// threads all go through Reveal so there is one authorized transition.
package disclosure

import (
	"errors"
	"time"

	"oomf-core/internal/model"
)

// State-machine errors.
var (
	ErrAlreadyRevealed   = errors.New("compliment already revealed")
	ErrOutOfGuesses      = errors.New("no guesses remaining")
	ErrOutOfSequence     = errors.New("hints must be unlocked in order")
	ErrAlreadyPurchased  = errors.New("hint already unlocked")
	ErrInvalidHintNumber = errors.New("hint number must be between 1 and 3")
	ErrInvalidCause      = errors.New("unknown reveal cause")
)

// State is the guessing-game view of a compliment.
type State string

const (
	StateGuessable State = "guessable"
	StateCorrect   State = "correct"
	StateExhausted State = "exhausted"
	StateRevealed  State = "revealed" // disclosed by tokens or exchange
)

// StateOf derives the guessing state from the disclosure fields.
func StateOf(c *model.Compliment) State {
	switch {
	case c.IsRevealed && c.RevealMethod != nil && *c.RevealMethod == model.RevealGuessed:
		return StateCorrect
	case c.IsRevealed:
		return StateRevealed
	case c.GuessesRemaining <= 0:
		return StateExhausted
	default:
		return StateGuessable
	}
}

// Reveal marks the compliment disclosed. It is the only place IsRevealed
// is set, and it fails if the compliment is already revealed.
func Reveal(c *model.Compliment, cause model.RevealMethod, now time.Time) error {
	switch cause {
	case model.RevealGuessed, model.RevealTokens, model.RevealExchange:
	default:
		return ErrInvalidCause
	}
	if c.IsRevealed {
		return ErrAlreadyRevealed
	}
	c.IsRevealed = true
	c.RevealMethod = &cause
	revealedAt := now
	c.RevealedAt = &revealedAt
	return nil
}

// CheckGuess reports whether a guess may be applied right now.
func CheckGuess(c *model.Compliment) error {
	if c.IsRevealed {
		return ErrAlreadyRevealed
	}
	if c.GuessesRemaining <= 0 {
		return ErrOutOfGuesses
	}
	return nil
}

// ApplyGuess spends one guess and reveals the compliment when guessedUserID
// is the sender. A wrong last guess leaves the compliment exhausted.
func ApplyGuess(c *model.Compliment, guessedUserID string, now time.Time) (bool, error) {
	if err := CheckGuess(c); err != nil {
		return false, err
	}

	c.GuessesRemaining--
	correct := guessedUserID == c.SenderID
	if correct {
		if err := Reveal(c, model.RevealGuessed, now); err != nil {
			return false, err
		}
	}
	return correct, nil
}

// CheckHint reports whether hintNumber may be purchased next.
func CheckHint(c *model.Compliment, hintNumber int) error {
	if c.IsRevealed {
		return ErrAlreadyRevealed
	}
	if hintNumber < 1 || hintNumber > model.MaxHints {
		return ErrInvalidHintNumber
	}
	if hintNumber <= c.HintsUsed {
		return ErrAlreadyPurchased
	}
	if hintNumber != c.HintsUsed+1 {
		return ErrOutOfSequence
	}
	return nil
}

// UnlockHint records hintNumber as used.
func UnlockHint(c *model.Compliment, hintNumber int) error {
	if err := CheckHint(c, hintNumber); err != nil {
		return err
	}
	c.HintsUsed = hintNumber
	return nil
}

// CheckReveal reports whether a paid reveal may proceed.
func CheckReveal(c *model.Compliment) error {
	if c.IsRevealed {
		return ErrAlreadyRevealed
	}
	return nil
}
