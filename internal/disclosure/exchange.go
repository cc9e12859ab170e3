package disclosure

import (
	"time"

	"oomf-core/internal/model"
)

// DefaultRevealThreshold is the reply count at which a thread reveals.
const DefaultRevealThreshold = 6

// ReplyOutcome describes what one reply did to an exchange.
type ReplyOutcome struct {
	IsRevealed          bool
	JustRevealed        bool
	MessagesUntilReveal int
}

// RecordReply counts one reply and flips the exchange to revealed the first
// time the count reaches threshold. Replies after the reveal only count.
func RecordReply(e *model.Exchange, threshold int, now time.Time) ReplyOutcome {
	if threshold <= 0 {
		threshold = DefaultRevealThreshold
	}

	e.ExchangeCount++

	var just bool
	if !e.IsRevealed && e.ExchangeCount >= threshold {
		e.IsRevealed = true
		revealedAt := now
		e.RevealedAt = &revealedAt
		just = true
	}

	return ReplyOutcome{
		IsRevealed:          e.IsRevealed,
		JustRevealed:        just,
		MessagesUntilReveal: MessagesUntilReveal(e.ExchangeCount, threshold),
	}
}

// MessagesUntilReveal returns max(0, threshold - count).
func MessagesUntilReveal(count, threshold int) int {
	if remaining := threshold - count; remaining > 0 {
		return remaining
	}
	return 0
}
