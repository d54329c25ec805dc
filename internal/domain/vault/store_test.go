package vault

import (
	"testing"

	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/testutil"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *ledger.Ledger) {
	l := ledger.New(repository.NewTokenRepository())
	return NewStore(repository.NewCardRepository(), l), l
}

func Test_Store_Refund(t *testing.T) {
	ctx := testutil.MockContext()
	store, l := newTestStore()

	template := testutil.InsertCardTemplate(ctx, "Charizard", entity.TierSS, 420)
	card, err := store.CreditCard(ctx, "user1", template, entity.CardSourceDraw, "purchase1")
	require.NoError(t, err)
	require.Equal(t, entity.CardStateOwned, card.State)
	require.Equal(t, entity.TierSS.Rank(), card.TierRank)

	refunded, err := store.Refund(ctx, "user1", card.ID)
	require.NoError(t, err)
	require.Equal(t, int64(420), refunded)

	balance, err := l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(420), balance)

	stored, err := repository.NewCardRepository().GetByID(ctx, card.ID)
	require.NoError(t, err)
	require.Equal(t, entity.CardStateRemoved, stored.State)

	// A removed card cannot be refunded again.
	_, err = store.Refund(ctx, "user1", card.ID)
	require.ErrorIs(t, err, errorx.New(errorx.InvalidState, ""))

	balance, err = l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(420), balance)
}

func Test_Store_Refund_NotOwned(t *testing.T) {
	ctx := testutil.MockContext()
	store, l := newTestStore()

	template := testutil.InsertCardTemplate(ctx, "Charizard", entity.TierSS, 420)
	card := testutil.InsertCard(ctx, "user1", template, entity.CardStateOwned)

	_, err := store.Refund(ctx, "user2", card.ID)
	require.ErrorIs(t, err, errorx.New(errorx.NotOwned, ""))

	_, err = store.Refund(ctx, "user2", "unknown")
	require.ErrorIs(t, err, errorx.New(errorx.NotOwned, ""))

	balance, err := l.Balance(ctx, "user2")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func Test_Store_Ship_and_Fulfill(t *testing.T) {
	ctx := testutil.MockContext()
	store, l := newTestStore()
	cardRepo := repository.NewCardRepository()

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 100)
	card := testutil.InsertCard(ctx, "user1", template, entity.CardStateOwned)

	err := store.Fulfill(ctx, card.ID)
	require.ErrorIs(t, err, errorx.New(errorx.InvalidState, ""))

	require.NoError(t, store.Ship(ctx, "user1", card.ID))

	stored, err := cardRepo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	require.Equal(t, entity.CardStateShipRequested, stored.State)

	// Shipping never credits tokens.
	balance, err := l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Zero(t, balance)

	err = store.Ship(ctx, "user1", card.ID)
	require.ErrorIs(t, err, errorx.New(errorx.InvalidState, ""))

	_, err = store.Refund(ctx, "user1", card.ID)
	require.ErrorIs(t, err, errorx.New(errorx.InvalidState, ""))

	require.NoError(t, store.Fulfill(ctx, card.ID))

	stored, err = cardRepo.GetByID(ctx, card.ID)
	require.NoError(t, err)
	require.Equal(t, entity.CardStateRemoved, stored.State)

	err = store.Fulfill(ctx, "unknown")
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_Store_List(t *testing.T) {
	ctx := testutil.MockContext()
	store, _ := newTestStore()

	low := testutil.InsertCardTemplate(ctx, "Bulbasaur", entity.TierD, 5)
	high := testutil.InsertCardTemplate(ctx, "Arceus", entity.TierSSS, 1000)
	mid := testutil.InsertCardTemplate(ctx, "Lapras", entity.TierA, 60)

	testutil.InsertCard(ctx, "user1", low, entity.CardStateOwned)
	testutil.InsertCard(ctx, "user1", high, entity.CardStateOwned)
	testutil.InsertCard(ctx, "user1", mid, entity.CardStateOwned)
	testutil.InsertCard(ctx, "user1", mid, entity.CardStateRemoved)
	testutil.InsertCard(ctx, "user1", high, entity.CardStateShipRequested)
	testutil.InsertCard(ctx, "user2", high, entity.CardStateOwned)

	cards, err := store.List(ctx, repository.SearchCardFilter{
		OwnerID:   "user1",
		SortBy:    "value",
		OrderDesc: true,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, cards, 3)
	require.Equal(t, "Arceus", cards[0].Name)
	require.Equal(t, "Lapras", cards[1].Name)
	require.Equal(t, "Bulbasaur", cards[2].Name)

	cards, err = store.List(ctx, repository.SearchCardFilter{
		OwnerID: "user1",
		Tier:    entity.TierA,
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "Lapras", cards[0].Name)

	cards, err = store.List(ctx, repository.SearchCardFilter{
		OwnerID: "user1",
		Q:       "bulba",
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.Equal(t, "Bulbasaur", cards[0].Name)
}
