package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"oomf-core/internal/disclosure"
	"oomf-core/internal/metrics"
	"oomf-core/internal/model"
	"oomf-core/internal/notify"
	"oomf-core/internal/ratelimit"
	"oomf-core/internal/repository"
)

// ExchangeService runs Secret Admirer threads.
type ExchangeService struct {
	*Deps
}

// NewExchangeService creates a new ExchangeService instance.
func NewExchangeService(deps *Deps) *ExchangeService {
	return &ExchangeService{Deps: deps}
}

func (s *ExchangeService) threshold() int {
	if s.Rules.RevealThreshold > 0 {
		return s.Rules.RevealThreshold
	}
	return disclosure.DefaultRevealThreshold
}

// SendReply appends a message to the thread. The reply that brings the
// count to the threshold reveals the exchange and, if it is still
// anonymous, the compliment that opened it.
func (s *ExchangeService) SendReply(ctx context.Context, exchangeID, senderID, body string) (res *ReplyResult, err error) {
	defer observe("send_reply", time.Now(), &err)

	if err := checkIDs("exchange_id", exchangeID, "sender_id", senderID); err != nil {
		return nil, err
	}

	e, err := s.Store.Exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, translate(err)
	}
	if !e.IsParty(senderID) {
		return nil, ErrForbidden
	}

	body, err = trimmedText("body", body, MinReplyLen, MaxReplyLen)
	if err != nil {
		return nil, err
	}
	if err := s.limit(ctx, ratelimit.ActionSendReply, senderID); err != nil {
		return nil, err
	}

	var (
		outcome                disclosure.ReplyOutcome
		complimentRevealed     bool
		recipientID, admirerID string
	)
	err = s.run(ctx, exchangeKey(exchangeID), func(tx *repository.Store) error {
		e, err := tx.Exchanges.GetForUpdate(ctx, exchangeID)
		if err != nil {
			return err
		}

		m := &model.Message{ExchangeID: e.ID, SenderID: senderID, Body: body}
		if err := tx.Exchanges.InsertMessage(ctx, m); err != nil {
			return err
		}

		now := s.now()
		outcome = disclosure.RecordReply(e, s.threshold(), now)
		if err := tx.Exchanges.UpdateProgress(ctx, e); err != nil {
			return err
		}

		recipientID = e.Counterpart(senderID)
		admirerID = e.SenderID

		if !outcome.JustRevealed {
			return nil
		}

		c, err := tx.Compliments.GetForUpdate(ctx, e.ComplimentID)
		if err != nil {
			return err
		}
		if c.IsRevealed {
			return nil
		}
		if err := disclosure.Reveal(c, model.RevealExchange, now); err != nil {
			return err
		}
		complimentRevealed = true
		return tx.Compliments.UpdateDisclosure(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	events := []notify.Event{{
		Type:         notify.EventSecretAdmirerMessage,
		ComplimentID: e.ComplimentID,
		ExchangeID:   e.ID,
		SenderID:     senderID,
		RecipientID:  recipientID,
	}}
	if outcome.JustRevealed {
		log.Info().Str("exchange_id", e.ID).Msg("Secret Admirer revealed")
		events = append(events, notify.Event{
			Type:         notify.EventSecretAdmirerRevealed,
			ComplimentID: e.ComplimentID,
			ExchangeID:   e.ID,
			SenderID:     admirerID,
			RecipientID:  e.ReceiverID,
		})
	}
	if complimentRevealed {
		metrics.Reveal(string(model.RevealExchange))
	}
	s.emit(ctx, events...)

	return &ReplyResult{
		Delivered:           true,
		IsRevealed:          outcome.IsRevealed,
		MessagesUntilReveal: outcome.MessagesUntilReveal,
	}, nil
}

// MarkMessagesRead marks the other party's messages in the thread read and
// returns how many changed.
func (s *ExchangeService) MarkMessagesRead(ctx context.Context, exchangeID, readerID string) (changed int64, err error) {
	defer observe("mark_messages_read", time.Now(), &err)

	if err := checkIDs("exchange_id", exchangeID, "reader_id", readerID); err != nil {
		return 0, err
	}

	err = s.run(ctx, exchangeKey(exchangeID), func(tx *repository.Store) error {
		e, err := tx.Exchanges.GetByID(ctx, exchangeID)
		if err != nil {
			return err
		}
		if !e.IsParty(readerID) {
			return ErrForbidden
		}
		changed, err = tx.Exchanges.MarkMessagesRead(ctx, exchangeID, readerID)
		return err
	})
	return changed, err
}

// GetThread returns the thread for one of its participants. The receiver
// sees the admirer's identity only after the reveal.
func (s *ExchangeService) GetThread(ctx context.Context, exchangeID, viewerID string) (view *ThreadView, err error) {
	defer observe("get_thread", time.Now(), &err)

	if err := checkIDs("exchange_id", exchangeID, "viewer_id", viewerID); err != nil {
		return nil, err
	}

	e, err := s.Store.Exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, translate(err)
	}
	if !e.IsParty(viewerID) {
		return nil, ErrForbidden
	}

	messages, err := s.Store.Exchanges.ListMessages(ctx, exchangeID)
	if err != nil {
		return nil, err
	}

	view = &ThreadView{
		ExchangeID:          e.ID,
		ComplimentID:        e.ComplimentID,
		ExchangeCount:       e.ExchangeCount,
		IsRevealed:          e.IsRevealed,
		MessagesUntilReveal: disclosure.MessagesUntilReveal(e.ExchangeCount, s.threshold()),
		Messages:            make([]MessageView, 0, len(messages)),
	}
	for _, m := range messages {
		view.Messages = append(view.Messages, MessageView{
			ID:        m.ID,
			FromMe:    m.SenderID == viewerID,
			Body:      m.Body,
			IsRead:    m.IsRead,
			CreatedAt: m.CreatedAt,
		})
	}

	showCounterpart := viewerID == e.SenderID || e.IsRevealed
	if !showCounterpart {
		c, err := s.Store.Compliments.GetByID(ctx, e.ComplimentID)
		if err != nil {
			return nil, translate(err)
		}
		showCounterpart = c.IsRevealed
	}
	if showCounterpart {
		other, err := s.Store.Users.GetByID(ctx, e.Counterpart(viewerID))
		if err != nil {
			return nil, translate(err)
		}
		identity := other.Identity()
		view.Counterpart = &identity
	}

	return view, nil
}
