package ledger

import (
	"strconv"
	"sync"
	"testing"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func Test_Ledger_Reserve_and_Commit(t *testing.T) {
	ctx := testutil.MockContext()
	tokenRepo := repository.NewTokenRepository()
	l := New(tokenRepo)

	testutil.InsertTokens(ctx, "user1", 100)

	reservationID, err := l.Reserve(ctx, "user1", 30, "purchase1")
	require.NoError(t, err)

	balance, err := l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(70), balance)

	entry, err := tokenRepo.GetEntryByID(ctx, reservationID)
	require.NoError(t, err)
	require.Equal(t, entity.LedgerReasonPending, entry.Reason)
	require.Equal(t, int64(-30), entry.Delta)
	require.Equal(t, "purchase1", entry.Reference)

	require.NoError(t, l.Commit(ctx, reservationID, entity.LedgerReasonPurchase))

	// Committing twice is a no-op.
	require.NoError(t, l.Commit(ctx, reservationID, entity.LedgerReasonPurchase))

	entry, err = tokenRepo.GetEntryByID(ctx, reservationID)
	require.NoError(t, err)
	require.Equal(t, entity.LedgerReasonPurchase, entry.Reason)

	// Releasing a committed reservation gives nothing back.
	require.NoError(t, l.Release(ctx, reservationID))

	balance, err = l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(70), balance)
}

func Test_Ledger_Reserve_InsufficientFunds(t *testing.T) {
	ctx := testutil.MockContext()
	l := New(repository.NewTokenRepository())

	testutil.InsertTokens(ctx, "user1", 10)

	_, err := l.Reserve(ctx, "user1", 11, "purchase1")
	require.ErrorIs(t, err, errorx.New(errorx.InsufficientFunds, ""))

	_, err = l.Reserve(ctx, "unknown", 1, "purchase1")
	require.ErrorIs(t, err, errorx.New(errorx.InsufficientFunds, ""))

	_, err = l.Reserve(ctx, "user1", -1, "purchase1")
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	balance, err := l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(10), balance)

	history, err := l.History(ctx, "user1", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func Test_Ledger_Release(t *testing.T) {
	ctx := testutil.MockContext()
	tokenRepo := repository.NewTokenRepository()
	l := New(tokenRepo)

	testutil.InsertTokens(ctx, "user1", 50)

	reservationID, err := l.Reserve(ctx, "user1", 50, "raffle1")
	require.NoError(t, err)

	require.NoError(t, l.Release(ctx, reservationID))
	require.NoError(t, l.Release(ctx, reservationID))

	balance, err := l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(50), balance)

	entries, err := tokenRepo.GetEntriesByReference(ctx, strconv.FormatInt(reservationID, 10))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, entity.LedgerReasonRelease, entries[0].Reason)
	require.Equal(t, int64(50), entries[0].Delta)

	err = l.Commit(ctx, reservationID, entity.LedgerReasonPurchase)
	require.ErrorIs(t, err, errorx.New(errorx.InvalidState, ""))

	err = l.Release(ctx, 12345)
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_Ledger_Commit_InvalidReason(t *testing.T) {
	ctx := testutil.MockContext()
	l := New(repository.NewTokenRepository())

	err := l.Commit(ctx, 1, entity.LedgerReasonPending)
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	err = l.Commit(ctx, 1, entity.LedgerReasonCancelled)
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	err = l.Commit(ctx, 1, entity.LedgerReasonPurchase)
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_Ledger_Credit(t *testing.T) {
	ctx := testutil.MockContext()
	l := New(repository.NewTokenRepository())

	require.NoError(t, l.Credit(ctx, "user1", 25, entity.LedgerReasonRefund, "card1"))
	require.NoError(t, l.Credit(ctx, "user1", 0, entity.LedgerReasonRefund, "card2"))

	err := l.Credit(ctx, "user1", -5, entity.LedgerReasonRefund, "card3")
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	balance, err := l.Balance(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(25), balance)

	history, err := l.History(ctx, "user1", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, entity.LedgerReasonRefund, history[0].Reason)
}

func Test_Ledger_Reconcile(t *testing.T) {
	ctx := testutil.MockContext()
	tokenRepo := repository.NewTokenRepository()
	l := New(tokenRepo)

	testutil.InsertTokens(ctx, "user1", 100)

	id1, err := l.Reserve(ctx, "user1", 40, "a")
	require.NoError(t, err)
	require.NoError(t, l.Commit(ctx, id1, entity.LedgerReasonPurchase))

	id2, err := l.Reserve(ctx, "user1", 20, "b")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, id2))

	// A pending reservation is already part of the computed balance.
	_, err = l.Reserve(ctx, "user1", 10, "c")
	require.NoError(t, err)

	require.NoError(t, l.Credit(ctx, "user1", 5, entity.LedgerReasonConsolation, "d"))

	cached, computed, err := l.Reconcile(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(55), cached)
	require.Equal(t, cached, computed)

	// Writing the balance behind the ledger is detected.
	require.NoError(t, tokenRepo.IncreaseBalance(ctx, "user1", 1))
	cached, computed, err = l.Reconcile(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(56), cached)
	require.Equal(t, int64(55), computed)
}

func Test_Ledger_Reserve_Concurrent(t *testing.T) {
	ctx := testutil.MockContext()
	l := New(repository.NewTokenRepository())

	testutil.InsertTokens(ctx, "user1", 100)

	const numReserves = 10
	var mutex sync.Mutex
	succeeded := 0
	insufficient := 0

	g := errgroup.Group{}
	for i := 0; i < numReserves; i++ {
		reference := "purchase" + strconv.Itoa(i)
		g.Go(func() error {
			_, err := l.Reserve(ctx, "user1", 40, reference)

			mutex.Lock()
			defer mutex.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errorx.Is(err, errorx.InsufficientFunds):
				insufficient++
			default:
				return err
			}

			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, 2, succeeded)
	require.Equal(t, numReserves-2, insufficient)

	cached, computed, err := l.Reconcile(ctx, "user1")
	require.NoError(t, err)
	require.Equal(t, int64(20), cached)
	require.Equal(t, cached, computed)
}
