package service

import (
	"errors"
	"fmt"
	"time"

	"oomf-core/internal/disclosure"
	"oomf-core/internal/pkg/lock"
	"oomf-core/internal/repository"
	"oomf-core/internal/scoring"
)

// Service errors. Each one has a stable code returned by Code.
var (
	ErrForbidden          = errors.New("not allowed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("too many requests")
	ErrInsufficientTokens = repository.ErrInsufficientTokens
	ErrConflict           = errors.New("concurrent update, retry")
	ErrBusy               = lock.ErrLockTimeout

	ErrAlreadyRevealed  = disclosure.ErrAlreadyRevealed
	ErrOutOfGuesses     = disclosure.ErrOutOfGuesses
	ErrOutOfSequence    = disclosure.ErrOutOfSequence
	ErrAlreadyPurchased = disclosure.ErrAlreadyPurchased
)

// RateLimitedError is returned when a rate-limit policy rejects a call.
type RateLimitedError struct {
	Action     string
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests for %s, retry in %s", e.Action, e.RetryAfter.Round(time.Second))
}

// Is makes errors.Is(err, ErrRateLimited) match.
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// translate maps lower-layer errors onto service errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrComplimentNotFound):
		return fmt.Errorf("%w: compliment", ErrNotFound)
	case errors.Is(err, repository.ErrExchangeNotFound):
		return fmt.Errorf("%w: exchange", ErrNotFound)
	case errors.Is(err, repository.ErrUserNotFound):
		return fmt.Errorf("%w: user", ErrNotFound)
	case errors.Is(err, repository.ErrConcurrentUpdate), repository.IsRetryable(err):
		return ErrConflict
	case errors.Is(err, disclosure.ErrInvalidHintNumber):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	case errors.Is(err, scoring.ErrInvalidAmount):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return err
	}
}

// Code returns the stable error code for err, or "ok" for nil.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInsufficientTokens):
		return "insufficient_tokens"
	case errors.Is(err, ErrAlreadyRevealed):
		return "already_revealed"
	case errors.Is(err, ErrOutOfGuesses):
		return "out_of_guesses"
	case errors.Is(err, ErrOutOfSequence):
		return "out_of_sequence"
	case errors.Is(err, ErrAlreadyPurchased):
		return "already_purchased"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "internal"
	}
}
