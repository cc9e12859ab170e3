// Package notify hands committed compliment events to the push subsystem.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType names a push-worthy event.
type EventType string

const (
	EventNewCompliment         EventType = "new_compliment"
	EventSecretAdmirerMessage  EventType = "secret_admirer_message"
	EventSecretAdmirerRevealed EventType = "secret_admirer_revealed"
)

// Event is emitted after the transaction that caused it commits. SenderID
// is for the push subsystem only and must never reach the recipient while
// the compliment is anonymous.
type Event struct {
	Type         EventType `json:"type"`
	ComplimentID string    `json:"compliment_id,omitempty"`
	ExchangeID   string    `json:"exchange_id,omitempty"`
	SenderID     string    `json:"sender_id"`
	RecipientID  string    `json:"recipient_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Emitter delivers events. Delivery is best effort; the state change that
// produced the event is already committed.
type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// LogEmitter writes every event to the structured log.
type LogEmitter struct{}

// Emit logs the event.
func (LogEmitter) Emit(_ context.Context, ev Event) error {
	log.Info().
		Str("event", string(ev.Type)).
		Str("compliment_id", ev.ComplimentID).
		Str("exchange_id", ev.ExchangeID).
		Str("recipient_id", ev.RecipientID).
		Msg("Notification event")
	return nil
}

// Multi fans an event out to several emitters and joins their errors.
type Multi []Emitter

// Emit delivers ev to every emitter, even if an earlier one fails.
func (m Multi) Emit(ctx context.Context, ev Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records ev.
func (r *Recorder) Emit(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
