package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"oomf-core/internal/disclosure"
	"oomf-core/internal/metrics"
	"oomf-core/internal/model"
	"oomf-core/internal/ratelimit"
	"oomf-core/internal/repository"
	"oomf-core/internal/scoring"
)

// GuessService runs the three-attempt identity guessing game.
type GuessService struct {
	*Deps
}

// NewGuessService creates a new GuessService instance.
func NewGuessService(deps *Deps) *GuessService {
	return &GuessService{Deps: deps}
}

// Guess records the receiver's guess that guessedUserID sent the compliment.
// A correct guess reveals the sender and awards points. An attempt made
// after the compliment left the guessable state is still written to the
// audit log, uncounted, and fails with ErrAlreadyRevealed or ErrOutOfGuesses.
func (s *GuessService) Guess(ctx context.Context, complimentID, guesserID, guessedUserID string) (res *GuessResult, err error) {
	defer observe("guess", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "guesser_id", guesserID, "guessed_user_id", guessedUserID); err != nil {
		return nil, err
	}
	if err := s.limit(ctx, ratelimit.ActionGuess, guesserID); err != nil {
		return nil, err
	}

	var rejected error
	err = s.run(ctx, complimentKey(complimentID), func(tx *repository.Store) error {
		c, err := tx.Compliments.GetForUpdate(ctx, complimentID)
		if err != nil {
			return err
		}
		if c.ReceiverID != guesserID {
			return ErrForbidden
		}

		g := &model.Guess{
			ID:            uuid.NewString(),
			ComplimentID:  c.ID,
			GuesserID:     guesserID,
			GuessedUserID: guessedUserID,
		}

		if err := disclosure.CheckGuess(c); err != nil {
			if !errors.Is(err, disclosure.ErrAlreadyRevealed) && !errors.Is(err, disclosure.ErrOutOfGuesses) {
				return err
			}
			rejected = err
			return tx.Compliments.InsertGuess(ctx, g)
		}

		correct, err := disclosure.ApplyGuess(c, guessedUserID, s.now())
		if err != nil {
			return err
		}
		g.IsCorrect = correct
		g.Counted = true

		if err := tx.Compliments.InsertGuess(ctx, g); err != nil {
			return err
		}
		if err := tx.Compliments.UpdateDisclosure(ctx, c); err != nil {
			return err
		}

		res = &GuessResult{IsCorrect: correct, GuessesRemaining: c.GuessesRemaining}
		if !correct {
			return nil
		}

		sink := scoring.NewSink(tx)
		if err := sink.AddPoints(ctx, guesserID, s.Rules.Points.CorrectGuess); err != nil {
			return err
		}
		if err := sink.IncrementStat(ctx, guesserID, model.StatCorrectGuesses); err != nil {
			return err
		}

		sender, err := tx.Users.GetByID(ctx, c.SenderID)
		if err != nil {
			return err
		}
		identity := sender.Identity()
		res.Sender = &identity
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		log.Debug().Str("compliment_id", complimentID).Err(rejected).Msg("Guess recorded but not counted")
		return nil, rejected
	}

	metrics.Guess(res.IsCorrect)
	if res.IsCorrect {
		metrics.Reveal(string(model.RevealGuessed))
	}

	return res, nil
}

// ListGuesses returns the guess audit log of a compliment to its receiver.
func (s *GuessService) ListGuesses(ctx context.Context, complimentID, callerID string) (views []GuessView, err error) {
	defer observe("list_guesses", time.Now(), &err)

	if err := checkIDs("compliment_id", complimentID, "caller_id", callerID); err != nil {
		return nil, err
	}

	c, err := s.Store.Compliments.GetByID(ctx, complimentID)
	if err != nil {
		return nil, translate(err)
	}
	if c.ReceiverID != callerID {
		return nil, ErrForbidden
	}

	guesses, err := s.Store.Compliments.ListGuesses(ctx, complimentID)
	if err != nil {
		return nil, err
	}

	views = make([]GuessView, 0, len(guesses))
	for _, g := range guesses {
		views = append(views, GuessView{
			ID:            g.ID,
			GuessedUserID: g.GuessedUserID,
			IsCorrect:     g.IsCorrect,
			Counted:       g.Counted,
			CreatedAt:     g.CreatedAt,
		})
	}
	return views, nil
}
