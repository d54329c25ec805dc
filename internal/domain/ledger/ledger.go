package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

// Ledger is the only writer of token balances. Every balance change is
// paired with a ledger entry in the same transaction, so the balance of an
// account always equals the sum of its entry deltas.
type Ledger struct {
	tokenRepo repository.TokenRepository
}

func New(tokenRepo repository.TokenRepository) *Ledger {
	return &Ledger{tokenRepo: tokenRepo}
}

// Reserve takes amount tokens from the balance of userID and records them
// in a pending entry. The returned id is used to commit or release the
// reservation later.
func (l *Ledger) Reserve(ctx context.Context, userID string, amount int64, reference string) (int64, error) {
	if amount < 0 {
		return 0, errorx.New(errorx.BadRequest, "Amount must not be negative")
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if amount > 0 {
		if err := l.tokenRepo.DecreaseBalance(ctx, userID, amount); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, errorx.New(errorx.InsufficientFunds, "Not enough tokens")
			}

			xcontext.Logger(ctx).Errorf("Cannot decrease balance: %v", err)
			return 0, errorx.Unknown
		}
	}

	entry := &entity.LedgerEntry{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		UserID:        userID,
		Delta:         -amount,
		Reason:        entity.LedgerReasonPending,
		Reference:     reference,
	}
	if err := l.tokenRepo.CreateEntry(ctx, entry); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create pending entry: %v", err)
		return 0, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit reservation: %v", err)
		return 0, errorx.Unknown
	}

	return entry.ID, nil
}

// Commit finalizes a pending reservation with the given reason. Committing
// an already committed reservation does nothing.
func (l *Ledger) Commit(ctx context.Context, reservationID int64, reason entity.LedgerReason) error {
	if reason == entity.LedgerReasonPending || reason == entity.LedgerReasonCancelled {
		return errorx.New(errorx.BadRequest, "Invalid commit reason %s", reason)
	}

	entry, err := l.tokenRepo.GetEntryByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found reservation")
		}

		xcontext.Logger(ctx).Errorf("Cannot get reservation: %v", err)
		return errorx.Unknown
	}

	if entry.Reason == entity.LedgerReasonPending {
		err := l.tokenRepo.UpdateEntryReason(ctx, reservationID, entity.LedgerReasonPending, reason)
		if err == nil {
			return nil
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot commit reservation: %v", err)
			return errorx.Unknown
		}

		// Someone else has just committed or released it.
		entry, err = l.tokenRepo.GetEntryByID(ctx, reservationID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get reservation: %v", err)
			return errorx.Unknown
		}
	}

	if entry.Reason == entity.LedgerReasonCancelled {
		return errorx.New(errorx.InvalidState, "Reservation was released")
	}

	return nil
}

// Release gives the tokens of a pending reservation back. Releasing a
// released or committed reservation does nothing.
func (l *Ledger) Release(ctx context.Context, reservationID int64) error {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	entry, err := l.tokenRepo.GetEntryByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found reservation")
		}

		xcontext.Logger(ctx).Errorf("Cannot get reservation: %v", err)
		return errorx.Unknown
	}

	if entry.Reason != entity.LedgerReasonPending {
		return nil
	}

	err = l.tokenRepo.UpdateEntryReason(ctx, reservationID, entity.LedgerReasonPending, entity.LedgerReasonCancelled)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}

		xcontext.Logger(ctx).Errorf("Cannot cancel reservation: %v", err)
		return errorx.Unknown
	}

	amount := -entry.Delta
	if amount > 0 {
		if err := l.tokenRepo.IncreaseBalance(ctx, entry.UserID, amount); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot restore balance: %v", err)
			return errorx.Unknown
		}
	}

	compensation := &entity.LedgerEntry{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		UserID:        entry.UserID,
		Delta:         amount,
		Reason:        entity.LedgerReasonRelease,
		Reference:     strconv.FormatInt(entry.ID, 10),
	}
	if err := l.tokenRepo.CreateEntry(ctx, compensation); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create release entry: %v", err)
		return errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit release: %v", err)
		return errorx.Unknown
	}

	return nil
}

// Credit adds amount tokens to userID, creating the account if needed. A
// zero amount writes nothing.
func (l *Ledger) Credit(
	ctx context.Context, userID string, amount int64, reason entity.LedgerReason, reference string,
) error {
	if amount < 0 {
		return errorx.New(errorx.BadRequest, "Amount must not be negative")
	}

	if amount == 0 {
		return nil
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := l.tokenRepo.EnsureAccount(ctx, userID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot ensure token account: %v", err)
		return errorx.Unknown
	}

	if err := l.tokenRepo.IncreaseBalance(ctx, userID, amount); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot increase balance: %v", err)
		return errorx.Unknown
	}

	entry := &entity.LedgerEntry{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		UserID:        userID,
		Delta:         amount,
		Reason:        reason,
		Reference:     reference,
	}
	if err := l.tokenRepo.CreateEntry(ctx, entry); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create credit entry: %v", err)
		return errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit credit: %v", err)
		return errorx.Unknown
	}

	return nil
}

// Balance returns the cached balance of userID. Unknown users have nothing.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	account, err := l.tokenRepo.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}

		xcontext.Logger(ctx).Errorf("Cannot get token account: %v", err)
		return 0, errorx.Unknown
	}

	return account.Balance, nil
}

// Reconcile returns both the cached balance and the sum of all entries of
// userID. They differ only if the ledger was written outside this package.
func (l *Ledger) Reconcile(ctx context.Context, userID string) (cached int64, computed int64, err error) {
	cached, err = l.Balance(ctx, userID)
	if err != nil {
		return 0, 0, err
	}

	computed, err = l.tokenRepo.SumDeltaByUserID(ctx, userID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot sum ledger entries: %v", err)
		return 0, 0, errorx.Unknown
	}

	if cached != computed {
		xcontext.Logger(ctx).Warnf("Balance of %s drifted: cached=%d computed=%d", userID, cached, computed)
	}

	return cached, computed, nil
}

func (l *Ledger) History(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.LedgerEntry, error) {
	entries, err := l.tokenRepo.GetEntriesByUserID(ctx, userID, offset, limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get ledger entries: %v", err)
		return nil, errorx.Unknown
	}

	return entries, nil
}
