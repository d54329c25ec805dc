package domain

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/pkg/errorx"
)

type TokenDomain interface {
	GetBalance(context.Context, *model.GetBalanceRequest) (*model.GetBalanceResponse, error)
	GetLedger(context.Context, *model.GetLedgerRequest) (*model.GetLedgerResponse, error)
	Credit(context.Context, *model.CreditTokensRequest) (*model.CreditTokensResponse, error)
	Reconcile(context.Context, *model.ReconcileBalanceRequest) (*model.ReconcileBalanceResponse, error)
}

type tokenDomain struct {
	ledger *ledger.Ledger
}

func NewTokenDomain(ledger *ledger.Ledger) *tokenDomain {
	return &tokenDomain{ledger: ledger}
}

func (d *tokenDomain) GetBalance(
	ctx context.Context, req *model.GetBalanceRequest,
) (*model.GetBalanceResponse, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := d.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.GetBalanceResponse{Balance: balance}, nil
}

func (d *tokenDomain) GetLedger(
	ctx context.Context, req *model.GetLedgerRequest,
) (*model.GetLedgerResponse, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := normalizePaging(ctx, &req.Offset, &req.Limit); err != nil {
		return nil, err
	}

	entries, err := d.ledger.History(ctx, userID, req.Offset, req.Limit)
	if err != nil {
		return nil, err
	}

	clientEntries := []model.LedgerEntry{}
	for i := range entries {
		clientEntries = append(clientEntries, model.ConvertLedgerEntry(&entries[i]))
	}

	return &model.GetLedgerResponse{Entries: clientEntries}, nil
}

// Credit tops up an account. It stands in for the payment gateway.
func (d *tokenDomain) Credit(
	ctx context.Context, req *model.CreditTokensRequest,
) (*model.CreditTokensResponse, error) {
	if req.UserID == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing user id")
	}

	if req.Amount <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Amount must be positive")
	}

	if err := d.ledger.Credit(ctx, req.UserID, req.Amount, entity.LedgerReasonTopUp, req.Reference); err != nil {
		return nil, err
	}

	balance, err := d.ledger.Balance(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	return &model.CreditTokensResponse{Balance: balance}, nil
}

func (d *tokenDomain) Reconcile(
	ctx context.Context, req *model.ReconcileBalanceRequest,
) (*model.ReconcileBalanceResponse, error) {
	if req.UserID == "" {
		return nil, errorx.New(errorx.BadRequest, "Missing user id")
	}

	cached, computed, err := d.ledger.Reconcile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	return &model.ReconcileBalanceResponse{
		UserID:     req.UserID,
		Cached:     cached,
		Computed:   computed,
		Consistent: cached == computed,
	}, nil
}
