package scoring

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oomf-core/internal/model"
	"oomf-core/internal/pkg/db/dbtest"
	"oomf-core/internal/repository"
)

func TestSink_TokensWriteLedger(t *testing.T) {
	pool, cleanup := dbtest.Setup(t)
	defer cleanup()

	ctx := context.Background()
	store := repository.NewStore(pool)
	user, err := store.Users.Create(ctx, &model.User{ID: uuid.NewString(), Username: "zoe"})
	require.NoError(t, err)

	sink := NewSink(store)

	balance, err := sink.CreditTokens(ctx, user.ID, 5, model.TxTypePurchase, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	ref := uuid.NewString()
	balance, err = sink.DebitTokens(ctx, user.ID, 3, model.TxTypeReveal, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	_, err = sink.DebitTokens(ctx, user.ID, 3, model.TxTypeReveal, ref)
	assert.ErrorIs(t, err, repository.ErrInsufficientTokens)

	_, err = sink.DebitTokens(ctx, user.ID, 0, model.TxTypeHint, ref)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	all, err := store.Tokens.GetByUserID(ctx, user.ID, 10)
	require.NoError(t, err)
	var sum int64
	for _, tx := range all {
		sum += tx.Amount
	}
	assert.Equal(t, int64(2), sum)

	txs, err := store.Tokens.GetByReference(ctx, ref)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(-3), txs[0].Amount)
}

func TestSink_PointsAndStats(t *testing.T) {
	pool, cleanup := dbtest.Setup(t)
	defer cleanup()

	ctx := context.Background()
	store := repository.NewStore(pool)
	user, err := store.Users.Create(ctx, &model.User{ID: uuid.NewString(), Username: "zoe"})
	require.NoError(t, err)

	err = store.InTx(ctx, func(tx *repository.Store) error {
		sink := NewSink(tx)
		if err := sink.AddPoints(ctx, user.ID, 80); err != nil {
			return err
		}
		return sink.IncrementStat(ctx, user.ID, model.StatCorrectGuesses)
	})
	require.NoError(t, err)

	got, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(80), got.Score)
	assert.Equal(t, int64(1), got.CorrectGuesses)
	assert.Equal(t, "On Fire", LevelFor(got.Score).Name)
}
