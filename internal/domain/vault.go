package domain

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/common"
	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/domain/vault"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/enum"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

type VaultDomain interface {
	Get(context.Context, *model.GetVaultRequest) (*model.GetVaultResponse, error)
	Refund(context.Context, *model.RefundCardsRequest) (*model.RefundCardsResponse, error)
	Ship(context.Context, *model.ShipCardsRequest) (*model.ShipCardsResponse, error)
	FulfillShipment(context.Context, *model.FulfillShipmentRequest) (*model.FulfillShipmentResponse, error)
}

type vaultDomain struct {
	vaultStore *vault.Store
	ledger     *ledger.Ledger
}

func NewVaultDomain(vaultStore *vault.Store, ledger *ledger.Ledger) *vaultDomain {
	return &vaultDomain{vaultStore: vaultStore, ledger: ledger}
}

func (d *vaultDomain) Get(
	ctx context.Context, req *model.GetVaultRequest,
) (*model.GetVaultResponse, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := normalizePaging(ctx, &req.Offset, &req.Limit); err != nil {
		return nil, err
	}

	filter := repository.SearchCardFilter{
		OwnerID:  userID,
		Category: req.Category,
		Q:        req.Search,
		Offset:   req.Offset,
		Limit:    req.Limit,
	}

	if req.Tier != "" {
		filter.Tier, err = enum.ToEnum[entity.Tier](req.Tier)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Invalid tier: %v", err)
			return nil, errorx.New(errorx.BadRequest, "Invalid tier %s", req.Tier)
		}
	}

	switch req.Sort {
	case "", "value", "name", "tier":
		filter.SortBy = req.Sort
	default:
		return nil, errorx.New(errorx.BadRequest, "Invalid sort %s", req.Sort)
	}

	switch req.Order {
	case "", "asc":
	case "desc":
		filter.OrderDesc = true
	default:
		return nil, errorx.New(errorx.BadRequest, "Invalid order %s", req.Order)
	}

	cards, err := d.vaultStore.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &model.GetVaultResponse{Cards: model.ConvertCards(cards)}, nil
}

// Refund handles every card on its own, a failed card does not affect the
// others of the batch.
func (d *vaultDomain) Refund(
	ctx context.Context, req *model.RefundCardsRequest,
) (*model.RefundCardsResponse, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}

	cardIDs, err := checkCardBatch(req.CardIDs)
	if err != nil {
		return nil, err
	}

	results := []model.CardActionResult{}
	for _, cardID := range cardIDs {
		_, err := d.vaultStore.Refund(ctx, userID, cardID)
		countVaultAction("refund", err)
		results = append(results, cardActionResult(cardID, err))
	}

	balance, err := d.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.RefundCardsResponse{Results: results, NewBalance: balance}, nil
}

func (d *vaultDomain) Ship(
	ctx context.Context, req *model.ShipCardsRequest,
) (*model.ShipCardsResponse, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}

	cardIDs, err := checkCardBatch(req.CardIDs)
	if err != nil {
		return nil, err
	}

	results := []model.CardActionResult{}
	for _, cardID := range cardIDs {
		err := d.vaultStore.Ship(ctx, userID, cardID)
		countVaultAction("ship", err)
		results = append(results, cardActionResult(cardID, err))
	}

	return &model.ShipCardsResponse{Results: results}, nil
}

func (d *vaultDomain) FulfillShipment(
	ctx context.Context, req *model.FulfillShipmentRequest,
) (*model.FulfillShipmentResponse, error) {
	cardIDs, err := checkCardBatch(req.CardIDs)
	if err != nil {
		return nil, err
	}

	results := []model.CardActionResult{}
	for _, cardID := range cardIDs {
		err := d.vaultStore.Fulfill(ctx, cardID)
		countVaultAction("fulfill", err)
		results = append(results, cardActionResult(cardID, err))
	}

	return &model.FulfillShipmentResponse{Results: results}, nil
}

func checkCardBatch(cardIDs []string) ([]string, error) {
	cardIDs = dedupIDs(cardIDs)
	if len(cardIDs) == 0 {
		return nil, errorx.New(errorx.BadRequest, "No card is given")
	}

	if len(cardIDs) > common.MaxCardActionBatch {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum of cards (%d)", common.MaxCardActionBatch)
	}

	return cardIDs, nil
}

func countVaultAction(action string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}

	common.PromCounters[common.VaultActionTotal].WithLabelValues(action, status).Inc()
}
