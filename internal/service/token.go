package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/rs/zerolog/log"

	"oomf-core/internal/disclosure"
	"oomf-core/internal/economy"
	"oomf-core/internal/hint"
	"oomf-core/internal/metrics"
	"oomf-core/internal/model"
	"oomf-core/internal/repository"
	"oomf-core/internal/scoring"
)

// TokenService sells hints and reveals, and credits purchased tokens.
type TokenService struct {
	*Deps
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(deps *Deps) *TokenService {
	return &TokenService{Deps: deps}
}

// GetHint buys hint hintNumber for the compliment's receiver. Hints are
// bought strictly in order and stored, so ListHints can return them again.
func (s *TokenService) GetHint(ctx context.Context, complimentID, receiverID string, hintNumber int) (res *model.Hint, err error) {
	defer observe("get_hint", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "receiver_id", receiverID); err != nil {
		return nil, err
	}

	item, _ := s.Catalog.Get(economy.ItemHint)

	err = s.run(ctx, complimentKey(complimentID), func(tx *repository.Store) error {
		c, err := tx.Compliments.GetForUpdate(ctx, complimentID)
		if err != nil {
			return err
		}
		if c.ReceiverID != receiverID {
			return ErrForbidden
		}
		if err := disclosure.CheckHint(c, hintNumber); err != nil {
			return err
		}

		sender, err := tx.Users.GetByID(ctx, c.SenderID)
		if err != nil {
			return err
		}
		h, err := hint.Compute(sender, hintNumber)
		if err != nil {
			return err
		}
		h.ComplimentID = c.ID

		if _, err := scoring.NewSink(tx).DebitTokens(ctx, receiverID, item.Price, item.TxType, c.ID); err != nil {
			return err
		}
		if err := disclosure.UnlockHint(c, hintNumber); err != nil {
			return err
		}
		if err := tx.Compliments.UpdateDisclosure(ctx, c); err != nil {
			return err
		}
		if err := tx.Compliments.InsertHint(ctx, &h); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrAlreadyPurchased
			}
			return err
		}

		res = &h
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensSpent(item.TxType, item.Price)
	return res, nil
}

// ListHints returns the hints already bought for a compliment at no cost.
func (s *TokenService) ListHints(ctx context.Context, complimentID, receiverID string) (hints []*model.Hint, err error) {
	defer observe("list_hints", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "receiver_id", receiverID); err != nil {
		return nil, err
	}

	c, err := s.Store.Compliments.GetByID(ctx, complimentID)
	if err != nil {
		return nil, translate(err)
	}
	if c.ReceiverID != receiverID {
		return nil, ErrForbidden
	}

	hints, err = s.Store.Compliments.ListHints(ctx, complimentID)
	if err != nil {
		return nil, err
	}
	if hints == nil {
		hints = []*model.Hint{}
	}
	return hints, nil
}

// RevealWithTokens discloses the sender for a fixed token price. Remaining
// guesses are left untouched and no guess points are awarded.
func (s *TokenService) RevealWithTokens(ctx context.Context, complimentID, receiverID string) (res *model.PublicIdentity, err error) {
	defer observe("reveal_with_tokens", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "receiver_id", receiverID); err != nil {
		return nil, err
	}

	item, _ := s.Catalog.Get(economy.ItemReveal)

	err = s.run(ctx, complimentKey(complimentID), func(tx *repository.Store) error {
		c, err := tx.Compliments.GetForUpdate(ctx, complimentID)
		if err != nil {
			return err
		}
		if c.ReceiverID != receiverID {
			return ErrForbidden
		}
		if err := disclosure.CheckReveal(c); err != nil {
			return err
		}

		if _, err := scoring.NewSink(tx).DebitTokens(ctx, receiverID, item.Price, item.TxType, c.ID); err != nil {
			return err
		}
		if err := disclosure.Reveal(c, model.RevealTokens, s.now()); err != nil {
			return err
		}
		if err := tx.Compliments.UpdateDisclosure(ctx, c); err != nil {
			return err
		}

		sender, err := tx.Users.GetByID(ctx, c.SenderID)
		if err != nil {
			return err
		}
		identity := sender.Identity()
		res = &identity
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TokensSpent(item.TxType, item.Price)
	metrics.Reveal(string(model.RevealTokens))
	return res, nil
}

// CreditTokens adds purchased or granted tokens to a user's balance and
// returns the new balance. It is called by the purchase collaborator.
func (s *TokenService) CreditTokens(ctx context.Context, userID string, amount int64, reason, reference string) (balance int64, err error) {
	defer observe("credit_tokens", time.Now(), &err)

	if err := checkID("user_id", userID); err != nil {
		return 0, err
	}
	if amount <= 0 {
		return 0, invalid("amount must be positive")
	}
	if !slices.Contains(model.CreditTypes(), reason) {
		return 0, invalid("reason must be one of %v", model.CreditTypes())
	}

	err = s.run(ctx, userKey(userID), func(tx *repository.Store) error {
		var err error
		balance, err = scoring.NewSink(tx).CreditTokens(ctx, userID, amount, reason, reference)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.TokensCredited(reason, amount)
	log.Info().
		Str("user_id", userID).
		Int64("amount", amount).
		Str("reason", reason).
		Msg("Tokens credited")

	return balance, nil
}

// GetBalance returns a user's token balance, score and level.
func (s *TokenService) GetBalance(ctx context.Context, userID string) (res *Balance, err error) {
	defer observe("get_balance", time.Now(), &err)

	if err := checkID("user_id", userID); err != nil {
		return nil, err
	}

	user, err := s.Store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}

	res = &Balance{
		UserID:       user.ID,
		TokenBalance: user.TokenBalance,
		Score:        user.Score,
		Level:        scoring.LevelFor(user.Score),
	}
	if next, ok := scoring.NextLevel(user.Score); ok {
		res.NextLevel = &next
	}
	return res, nil
}

// Prices returns the catalog in display order.
func (s *TokenService) Prices() []economy.ItemConfig {
	return s.Catalog.All()
}
