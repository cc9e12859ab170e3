// Integration tests for the services. They use testcontainers-go to run
// PostgreSQL and are skipped when Docker is not available.
package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oomf-core/internal/economy"
	"oomf-core/internal/hint"
	"oomf-core/internal/model"
	"oomf-core/internal/notify"
	"oomf-core/internal/pkg/db/dbtest"
	"oomf-core/internal/pkg/lock"
	"oomf-core/internal/ratelimit"
	"oomf-core/internal/repository"
)

type fixture struct {
	store       *repository.Store
	events      *notify.Recorder
	compliments *ComplimentService
	guesses     *GuessService
	tokens      *TokenService
	exchanges   *ExchangeService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	pool, cleanup := dbtest.Setup(t)
	t.Cleanup(cleanup)

	return newFixture(repository.NewStore(pool), &notify.Recorder{})
}

func newFixture(store *repository.Store, events *notify.Recorder) *fixture {
	deps := &Deps{
		Store:     store,
		Locks:     lock.NewKeyLock(),
		Relations: store.Relations,
		Limiter:   ratelimit.AllowAll{},
		Emitter:   events,
		Catalog:   economy.DefaultCatalog(),
		Rules:     DefaultRules(),
	}

	return &fixture{
		store:       store,
		events:      events,
		compliments: NewComplimentService(deps),
		guesses:     NewGuessService(deps),
		tokens:      NewTokenService(deps),
		exchanges:   NewExchangeService(deps),
	}
}

// replica returns services over the same database with their own KeyLock,
// as a second server process would have. Only row locks order the two.
func (f *fixture) replica() *fixture {
	return newFixture(f.store, f.events)
}

func (f *fixture) user(t *testing.T, username string, tokens int64) *model.User {
	t.Helper()
	u, err := f.store.Users.Create(context.Background(), &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		DisplayName:  username,
		TokenBalance: tokens,
		CreatedAt:    time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) friends(t *testing.T, a, b *model.User) {
	t.Helper()
	require.NoError(t, f.store.Relations.AddFriendship(context.Background(), a.ID, b.ID))
}

func (f *fixture) reload(t *testing.T, u *model.User) *model.User {
	t.Helper()
	fresh, err := f.store.Users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

func (f *fixture) sendTemplate(t *testing.T, from, to *model.User) string {
	t.Helper()
	res, err := f.compliments.Send(context.Background(), from.ID, to.ID, ComplimentContent{TemplateID: ptr("tpl_smile")})
	require.NoError(t, err)
	return res.ComplimentID
}

// ============================================================================
// Compliment ledger
// ============================================================================

func TestSend_NormalCompliment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 0), f.user(t, "bob", 0)
	f.friends(t, alice, bob)

	id := f.sendTemplate(t, alice, bob)

	alice, bob = f.reload(t, alice), f.reload(t, bob)
	assert.Equal(t, int64(1), alice.Score)
	assert.Equal(t, int64(1), alice.ComplimentsSent)
	assert.Equal(t, int64(3), bob.Score)
	assert.Equal(t, int64(1), bob.ComplimentsReceived)

	inbox, err := f.compliments.ListReceived(ctx, bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, id, inbox[0].ID)
	assert.Nil(t, inbox[0].Sender)
	assert.Equal(t, model.MaxGuesses, inbox[0].GuessesRemaining)
	assert.Empty(t, inbox[0].ExchangeID)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventNewCompliment, events[0].Type)
	assert.Equal(t, bob.ID, events[0].RecipientID)
}

func TestSend_RelationshipGate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice", 0), f.user(t, "bob", 0), f.user(t, "carol", 0)
	f.friends(t, alice, bob)
	require.NoError(t, f.store.Relations.Block(ctx, bob.ID, alice.ID))

	_, err := f.compliments.Send(ctx, alice.ID, bob.ID, ComplimentContent{TemplateID: ptr("tpl")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.compliments.Send(ctx, alice.ID, carol.ID, ComplimentContent{TemplateID: ptr("tpl")})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Empty(t, f.events.Events())
}

func TestSend_UnknownReceiver(t *testing.T) {
	f := setup(t)
	f.compliments.Relations = nil
	alice := f.user(t, "alice", 0)

	_, err := f.compliments.Send(context.Background(), alice.ID, uuid.NewString(), ComplimentContent{TemplateID: ptr("tpl")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadAndGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice", 0), f.user(t, "bob", 0), f.user(t, "carol", 0)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	assert.ErrorIs(t, f.compliments.MarkRead(ctx, id, alice.ID), ErrForbidden)
	require.NoError(t, f.compliments.MarkRead(ctx, id, bob.ID))
	require.NoError(t, f.compliments.MarkRead(ctx, id, bob.ID))

	view, err := f.compliments.Get(ctx, id, bob.ID)
	require.NoError(t, err)
	assert.True(t, view.IsRead)
	require.NotNil(t, view.ReadAt)

	_, err = f.compliments.Get(ctx, id, alice.ID)
	assert.NoError(t, err)
	_, err = f.compliments.Get(ctx, id, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.compliments.Get(ctx, uuid.NewString(), bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Guess engine
// ============================================================================

func TestGuess_ThreeAttemptsLastCorrect(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 0), f.user(t, "bob", 0)
	d1, d2 := f.user(t, "dee", 0), f.user(t, "eli", 0)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	res, err := f.guesses.Guess(ctx, id, bob.ID, d1.ID)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 2, res.GuessesRemaining)
	assert.Nil(t, res.Sender)

	res, err = f.guesses.Guess(ctx, id, bob.ID, d2.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.GuessesRemaining)

	res, err = f.guesses.Guess(ctx, id, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 0, res.GuessesRemaining)
	require.NotNil(t, res.Sender)
	assert.Equal(t, alice.ID, res.Sender.ID)
	assert.Equal(t, "alice", res.Sender.Username)

	view, err := f.compliments.Get(ctx, id, bob.ID)
	require.NoError(t, err)
	assert.True(t, view.IsRevealed)
	require.NotNil(t, view.RevealMethod)
	assert.Equal(t, model.RevealGuessed, *view.RevealMethod)
	require.NotNil(t, view.Sender)

	bob = f.reload(t, bob)
	assert.Equal(t, int64(3+5), bob.Score)
	assert.Equal(t, int64(1), bob.CorrectGuesses)

	log, err := f.guesses.ListGuesses(ctx, id, bob.ID)
	require.NoError(t, err)
	require.Len(t, log, 3)
	for _, g := range log {
		assert.True(t, g.Counted)
	}
	assert.True(t, log[2].IsCorrect)

	// A fourth attempt is logged but not counted.
	_, err = f.guesses.Guess(ctx, id, bob.ID, d1.ID)
	assert.ErrorIs(t, err, ErrAlreadyRevealed)

	log, err = f.guesses.ListGuesses(ctx, id, bob.ID)
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.False(t, log[3].Counted)
	assert.False(t, log[3].IsCorrect)
}

func TestGuess_ExhaustedThenTokenReveal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob, dee := f.user(t, "alice", 0), f.user(t, "bob", 3), f.user(t, "dee", 0)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	for i := 0; i < model.MaxGuesses; i++ {
		_, err := f.guesses.Guess(ctx, id, bob.ID, dee.ID)
		require.NoError(t, err)
	}
	_, err := f.guesses.Guess(ctx, id, bob.ID, alice.ID)
	assert.ErrorIs(t, err, ErrOutOfGuesses)

	sender, err := f.tokens.RevealWithTokens(ctx, id, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, sender.ID)

	bob = f.reload(t, bob)
	assert.Equal(t, int64(0), bob.TokenBalance)
	assert.Equal(t, int64(3), bob.Score, "token reveal awards no guess points")
}

func TestGuess_OnlyReceiver(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice", 0), f.user(t, "bob", 0), f.user(t, "carol", 0)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	_, err := f.guesses.Guess(ctx, id, carol.ID, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.guesses.ListGuesses(ctx, id, carol.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	log, err := f.guesses.ListGuesses(ctx, id, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestGuess_ConcurrentLastGuess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob, dee := f.user(t, "alice", 0), f.user(t, "bob", 0), f.user(t, "dee", 0)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	c, err := f.store.Compliments.GetByID(ctx, id)
	require.NoError(t, err)
	c.GuessesRemaining = 1
	require.NoError(t, f.store.Compliments.UpdateDisclosure(ctx, c))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, guessed := range []string{alice.ID, dee.ID} {
		wg.Add(1)
		go func(i int, guessed string) {
			defer wg.Done()
			_, errs[i] = f.guesses.Guess(ctx, id, bob.ID, guessed)
		}(i, guessed)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrOutOfGuesses), errors.Is(err, ErrAlreadyRevealed):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	log, err := f.guesses.ListGuesses(ctx, id, bob.ID)
	require.NoError(t, err)
	require.Len(t, log, 2)

	counted := 0
	for _, g := range log {
		if g.Counted {
			counted++
		}
	}
	assert.Equal(t, 1, counted)

	c, err = f.store.Compliments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, c.GuessesRemaining)
}

// ============================================================================
// Token economy
// ============================================================================

func TestHints_PurchaseOrderAndReplay(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 0), f.user(t, "bob", 2)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	_, err := f.tokens.GetHint(ctx, id, bob.ID, 2)
	assert.ErrorIs(t, err, ErrOutOfSequence)
	_, err = f.tokens.GetHint(ctx, id, bob.ID, 4)
	assert.ErrorIs(t, err, ErrInvalidInput)

	h, err := f.tokens.GetHint(ctx, id, bob.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Number)
	assert.Equal(t, model.HintInitial, h.Type)
	assert.Equal(t, hint.LabelInitial, h.Label)
	assert.Equal(t, "A", h.Value)

	_, err = f.tokens.GetHint(ctx, id, bob.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyPurchased)

	assert.Equal(t, int64(1), f.reload(t, bob).TokenBalance)

	// Reveal costs 3; the failed attempt leaves everything untouched.
	_, err = f.tokens.RevealWithTokens(ctx, id, bob.ID)
	assert.ErrorIs(t, err, ErrInsufficientTokens)
	assert.Equal(t, int64(1), f.reload(t, bob).TokenBalance)

	view, err := f.compliments.Get(ctx, id, bob.ID)
	require.NoError(t, err)
	assert.False(t, view.IsRevealed)
	assert.Equal(t, 1, view.HintsUsed)

	h2, err := f.tokens.GetHint(ctx, id, bob.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, "June 2023", h2.Value)

	hints, err := f.tokens.ListHints(ctx, id, bob.ID)
	require.NoError(t, err)
	require.Len(t, hints, 2)
	assert.Equal(t, "A", hints[0].Value)
	assert.Equal(t, "June 2023", hints[1].Value)

	ledger, err := f.store.Tokens.GetByReference(ctx, id)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	for _, tx := range ledger {
		assert.Equal(t, int64(-1), tx.Amount)
		assert.Equal(t, model.TxTypeHint, tx.Type)
	}

	_, err = f.tokens.GetHint(ctx, id, bob.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientTokens)
}

func TestHints_ListIsEmptyNotNil(t *testing.T) {
	f := setup(t)
	alice, bob := f.user(t, "alice", 0), f.user(t, "bob", 0)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	hints, err := f.tokens.ListHints(context.Background(), id, bob.ID)
	require.NoError(t, err)
	assert.NotNil(t, hints)
	assert.Empty(t, hints)

	_, err = f.tokens.ListHints(context.Background(), id, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRevealWithTokens_Twice(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 0), f.user(t, "bob", 10)
	f.friends(t, alice, bob)
	id := f.sendTemplate(t, alice, bob)

	_, err := f.tokens.RevealWithTokens(ctx, id, bob.ID)
	require.NoError(t, err)
	_, err = f.tokens.RevealWithTokens(ctx, id, bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyRevealed)
	_, err = f.tokens.GetHint(ctx, id, bob.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyRevealed)

	assert.Equal(t, int64(7), f.reload(t, bob).TokenBalance)

	c, err := f.store.Compliments.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.MaxGuesses, c.GuessesRemaining)
}

func TestCreditTokensAndBalance(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice := f.user(t, "alice", 0)

	balance, err := f.tokens.CreditTokens(ctx, alice.ID, 10, model.TxTypePurchase, "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	_, err = f.tokens.CreditTokens(ctx, uuid.NewString(), 10, model.TxTypePurchase, "")
	assert.ErrorIs(t, err, ErrNotFound)

	b, err := f.tokens.GetBalance(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), b.TokenBalance)
	assert.Equal(t, int64(0), b.Score)
	require.NotNil(t, b.NextLevel)

	ledger, err := f.store.Tokens.GetByUserID(ctx, alice.ID, 10)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	assert.Equal(t, int64(10), ledger[0].Amount)
	require.NotNil(t, ledger[0].ReferenceID)
	assert.Equal(t, "order-1", *ledger[0].ReferenceID)

	assert.Len(t, f.tokens.Prices(), 3)
}

// ============================================================================
// Secret Admirer exchange
// ============================================================================

func TestSecretAdmirer_InsufficientTokens(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 2), f.user(t, "bob", 0)
	f.friends(t, alice, bob)

	_, err := f.compliments.Send(ctx, alice.ID, bob.ID, ComplimentContent{CustomText: ptr("your laugh is contagious")})
	assert.ErrorIs(t, err, ErrInsufficientTokens)

	inbox, err := f.compliments.ListReceived(ctx, bob.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, inbox)

	alice = f.reload(t, alice)
	assert.Equal(t, int64(2), alice.TokenBalance)
	assert.Equal(t, int64(0), alice.ComplimentsSent)

	ledger, err := f.store.Tokens.GetByUserID(ctx, alice.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, ledger)
	assert.Empty(t, f.events.Events())
}

func TestSecretAdmirer_RevealAfterSixReplies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice", 3), f.user(t, "bob", 0), f.user(t, "carol", 0)
	f.friends(t, alice, bob)

	sent, err := f.compliments.Send(ctx, alice.ID, bob.ID, ComplimentContent{CustomText: ptr("your laugh is contagious")})
	require.NoError(t, err)
	require.NotEmpty(t, sent.ExchangeID)

	alice = f.reload(t, alice)
	assert.Equal(t, int64(0), alice.TokenBalance)
	assert.Equal(t, int64(15), alice.Score)
	assert.Equal(t, int64(1), alice.SecretAdmirersSent)

	view, err := f.compliments.Get(ctx, sent.ComplimentID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OriginSecretAdmirer, view.Origin)
	assert.Equal(t, sent.ExchangeID, view.ExchangeID)

	_, err = f.exchanges.SendReply(ctx, sent.ExchangeID, carol.ID, "hi")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.exchanges.SendReply(ctx, sent.ExchangeID, bob.ID, "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	thread, err := f.exchanges.GetThread(ctx, sent.ExchangeID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, thread.Counterpart)
	assert.Equal(t, 6, thread.MessagesUntilReveal)

	thread, err = f.exchanges.GetThread(ctx, sent.ExchangeID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, thread.Counterpart)
	assert.Equal(t, bob.ID, thread.Counterpart.ID)

	for i := 1; i <= 6; i++ {
		from := bob
		if i%2 == 0 {
			from = alice
		}
		res, err := f.exchanges.SendReply(ctx, sent.ExchangeID, from.ID, "message")
		require.NoError(t, err)
		assert.True(t, res.Delivered)
		assert.Equal(t, 6-i, res.MessagesUntilReveal)
		assert.Equal(t, i == 6, res.IsRevealed)
	}

	view, err = f.compliments.Get(ctx, sent.ComplimentID, bob.ID)
	require.NoError(t, err)
	assert.True(t, view.IsRevealed)
	require.NotNil(t, view.RevealMethod)
	assert.Equal(t, model.RevealExchange, *view.RevealMethod)

	thread, err = f.exchanges.GetThread(ctx, sent.ExchangeID, bob.ID)
	require.NoError(t, err)
	assert.True(t, thread.IsRevealed)
	require.NotNil(t, thread.Counterpart)
	assert.Equal(t, alice.ID, thread.Counterpart.ID)
	require.Len(t, thread.Messages, 6)
	assert.True(t, thread.Messages[0].FromMe)
	assert.False(t, thread.Messages[1].FromMe)

	// Replies keep counting after the reveal without re-revealing.
	res, err := f.exchanges.SendReply(ctx, sent.ExchangeID, bob.ID, "one more")
	require.NoError(t, err)
	assert.True(t, res.IsRevealed)
	assert.Equal(t, 0, res.MessagesUntilReveal)

	var revealed int
	for _, ev := range f.events.Events() {
		if ev.Type == notify.EventSecretAdmirerRevealed {
			revealed++
			assert.Equal(t, alice.ID, ev.SenderID)
			assert.Equal(t, bob.ID, ev.RecipientID)
		}
	}
	assert.Equal(t, 1, revealed)
}

func TestSecretAdmirer_GuessedBeforeThreadReveal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 3), f.user(t, "bob", 0)
	f.friends(t, alice, bob)

	sent, err := f.compliments.Send(ctx, alice.ID, bob.ID, ComplimentContent{CustomText: ptr("you are a great friend")})
	require.NoError(t, err)

	res, err := f.guesses.Guess(ctx, sent.ComplimentID, bob.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, res.IsCorrect)

	thread, err := f.exchanges.GetThread(ctx, sent.ExchangeID, bob.ID)
	require.NoError(t, err)
	assert.False(t, thread.IsRevealed)
	require.NotNil(t, thread.Counterpart)

	for i := 0; i < 6; i++ {
		_, err := f.exchanges.SendReply(ctx, sent.ExchangeID, bob.ID, "hey")
		require.NoError(t, err)
	}

	view, err := f.compliments.Get(ctx, sent.ComplimentID, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, view.RevealMethod)
	assert.Equal(t, model.RevealGuessed, *view.RevealMethod)
}

func TestMarkMessagesRead(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice", 3), f.user(t, "bob", 0)
	f.friends(t, alice, bob)

	sent, err := f.compliments.Send(ctx, alice.ID, bob.ID, ComplimentContent{CustomText: ptr("you are a great friend")})
	require.NoError(t, err)

	for _, from := range []*model.User{alice, alice, bob} {
		_, err := f.exchanges.SendReply(ctx, sent.ExchangeID, from.ID, "hello")
		require.NoError(t, err)
	}

	changed, err := f.exchanges.MarkMessagesRead(ctx, sent.ExchangeID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = f.exchanges.MarkMessagesRead(ctx, sent.ExchangeID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), changed)

	_, err = f.exchanges.MarkMessagesRead(ctx, sent.ExchangeID, uuid.NewString())
	assert.ErrorIs(t, err, ErrForbidden)
}
