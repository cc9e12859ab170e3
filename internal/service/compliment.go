package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"oomf-core/internal/economy"
	"oomf-core/internal/metrics"
	"oomf-core/internal/model"
	"oomf-core/internal/notify"
	"oomf-core/internal/ratelimit"
	"oomf-core/internal/repository"
	"oomf-core/internal/scoring"
)

// Inbox page bounds.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ComplimentService handles creating and reading compliments.
type ComplimentService struct {
	*Deps
}

// NewComplimentService creates a new ComplimentService instance.
func NewComplimentService(deps *Deps) *ComplimentService {
	return &ComplimentService{Deps: deps}
}

// Send creates a compliment from senderID to receiverID. Custom-text content
// makes it a Secret Admirer compliment: it costs tokens and opens an
// exchange thread.
func (s *ComplimentService) Send(ctx context.Context, senderID, receiverID string, content ComplimentContent) (res *SendResult, err error) {
	defer observe("send_compliment", time.Now(), &err)

	if err := checkIDs("sender_id", senderID, "receiver_id", receiverID); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send a compliment to yourself", ErrForbidden)
	}
	if err := s.checkRelationship(ctx, senderID, receiverID); err != nil {
		return nil, err
	}
	content, err = content.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.limit(ctx, ratelimit.ActionSendCompliment, senderID); err != nil {
		return nil, err
	}

	origin := model.OriginNormal
	if content.CustomText != nil {
		origin = model.OriginSecretAdmirer
	}

	c := &model.Compliment{
		ID:               uuid.NewString(),
		SenderID:         senderID,
		ReceiverID:       receiverID,
		TemplateID:       content.TemplateID,
		CustomText:       content.CustomText,
		Emoji:            content.Emoji,
		Category:         content.Category,
		Origin:           origin,
		GuessesRemaining: model.MaxGuesses,
	}
	res = &SendResult{ComplimentID: c.ID}

	var spent int64
	err = s.run(ctx, userKey(senderID), func(tx *repository.Store) error {
		if _, err := tx.Users.LockForUpdate(ctx, senderID, receiverID); err != nil {
			return err
		}

		sink := scoring.NewSink(tx)

		if origin == model.OriginSecretAdmirer {
			item, _ := s.Catalog.Get(economy.ItemSecretAdmirer)
			if _, err := sink.DebitTokens(ctx, senderID, item.Price, item.TxType, c.ID); err != nil {
				return err
			}
			spent = item.Price
		}

		if err := tx.Compliments.Create(ctx, c); err != nil {
			return err
		}

		if origin == model.OriginSecretAdmirer {
			e := &model.Exchange{
				ID:           uuid.NewString(),
				ComplimentID: c.ID,
				SenderID:     senderID,
				ReceiverID:   receiverID,
			}
			if err := tx.Exchanges.Create(ctx, e); err != nil {
				return err
			}
			res.ExchangeID = e.ID
		}

		return s.applySendEffects(ctx, sink, c)
	})
	if err != nil {
		return nil, err
	}

	if spent > 0 {
		metrics.TokensSpent(model.TxTypeSecretAdmirer, spent)
	}

	log.Info().
		Str("compliment_id", c.ID).
		Str("origin", string(origin)).
		Msg("Compliment sent")

	s.emit(ctx, notify.Event{
		Type:         notify.EventNewCompliment,
		ComplimentID: c.ID,
		ExchangeID:   res.ExchangeID,
		SenderID:     senderID,
		RecipientID:  receiverID,
	})

	return res, nil
}

// applySendEffects awards points, stats and the optional send reward.
func (s *ComplimentService) applySendEffects(ctx context.Context, sink *scoring.Sink, c *model.Compliment) error {
	points := s.Rules.Points.SendNormal
	if c.Origin == model.OriginSecretAdmirer {
		points = s.Rules.Points.SendSecretAdmirer
		if err := sink.IncrementStat(ctx, c.SenderID, model.StatSecretAdmirersSent); err != nil {
			return err
		}
	}

	if err := sink.IncrementStat(ctx, c.SenderID, model.StatComplimentsSent); err != nil {
		return err
	}
	if err := sink.AddPoints(ctx, c.SenderID, points); err != nil {
		return err
	}
	if err := sink.IncrementStat(ctx, c.ReceiverID, model.StatComplimentsReceived); err != nil {
		return err
	}
	if err := sink.AddPoints(ctx, c.ReceiverID, s.Rules.Points.Receive); err != nil {
		return err
	}

	if s.Rules.SendReward > 0 {
		if _, err := sink.CreditTokens(ctx, c.SenderID, s.Rules.SendReward, model.TxTypeSendReward, c.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ComplimentService) checkRelationship(ctx context.Context, senderID, receiverID string) error {
	if s.Relations == nil {
		return nil
	}

	blocked, err := s.Relations.IsBlocked(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("%w: blocked", ErrForbidden)
	}

	friends, err := s.Relations.IsFriend(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	if !friends {
		return fmt.Errorf("%w: compliments can only be sent to friends", ErrForbidden)
	}
	return nil
}

// MarkRead marks a compliment read by its receiver. Marking an already
// read compliment is a no-op.
func (s *ComplimentService) MarkRead(ctx context.Context, complimentID, callerID string) (err error) {
	defer observe("mark_read", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "caller_id", callerID); err != nil {
		return err
	}

	return s.run(ctx, complimentKey(complimentID), func(tx *repository.Store) error {
		c, err := tx.Compliments.GetForUpdate(ctx, complimentID)
		if err != nil {
			return err
		}
		if c.ReceiverID != callerID {
			return ErrForbidden
		}
		if c.IsRead {
			return nil
		}

		now := s.now()
		c.IsRead = true
		c.ReadAt = &now
		return tx.Compliments.UpdateDisclosure(ctx, c)
	})
}

// Get returns one compliment for its sender or receiver. The receiver sees
// the sender only once the compliment is revealed.
func (s *ComplimentService) Get(ctx context.Context, complimentID, callerID string) (view *ComplimentView, err error) {
	defer observe("get_compliment", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "caller_id", callerID); err != nil {
		return nil, err
	}

	c, err := s.Store.Compliments.GetByID(ctx, complimentID)
	if err != nil {
		return nil, translate(err)
	}
	if c.ReceiverID != callerID && c.SenderID != callerID {
		return nil, ErrForbidden
	}

	view, err = s.view(ctx, c)
	return view, translate(err)
}

// ListReceived returns the receiver's inbox, newest first.
func (s *ComplimentService) ListReceived(ctx context.Context, receiverID string, limit int) (views []*ComplimentView, err error) {
	defer observe("list_received", time.Now(), &err)

	if err := checkID("receiver_id", receiverID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	compliments, err := s.Store.Compliments.ListByReceiver(ctx, receiverID, limit)
	if err != nil {
		return nil, err
	}

	views = make([]*ComplimentView, 0, len(compliments))
	for _, c := range compliments {
		v, err := s.view(ctx, c)
		if err != nil {
			return nil, translate(err)
		}
		views = append(views, v)
	}
	return views, nil
}

// view builds the masked view of c. The sender's identity is included only
// after disclosure; the caller check happens before.
func (s *ComplimentService) view(ctx context.Context, c *model.Compliment) (*ComplimentView, error) {
	v := newComplimentView(c)

	if c.IsRevealed {
		sender, err := s.Store.Users.GetByID(ctx, c.SenderID)
		if err != nil {
			return nil, err
		}
		identity := sender.Identity()
		v.Sender = &identity
	}

	if c.Origin == model.OriginSecretAdmirer {
		e, err := s.Store.Exchanges.GetByComplimentID(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		v.ExchangeID = e.ID
	}

	return v, nil
}
