package domain

import (
	"context"
	"errors"
	"math"

	"github.com/google/uuid"
	"github.com/questx-lab/gemdrops/internal/common"
	"github.com/questx-lab/gemdrops/internal/domain/draw"
	"github.com/questx-lab/gemdrops/internal/domain/inventory"
	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/enum"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

type OfferingDomain interface {
	CreateCardTemplate(context.Context, *model.CreateCardTemplateRequest) (*model.CreateCardTemplateResponse, error)
	Create(context.Context, *model.CreateOfferingRequest) (*model.CreateOfferingResponse, error)
	GetList(context.Context, *model.GetOfferingsRequest) (*model.GetOfferingsResponse, error)
	Get(context.Context, *model.GetOfferingRequest) (*model.GetOfferingResponse, error)
	UpdateActive(context.Context, *model.UpdateOfferingActiveRequest) (*model.UpdateOfferingActiveResponse, error)
	Purchase(context.Context, *model.PurchaseOfferingRequest) (*model.PurchaseOfferingResponse, error)
	GetDrawRecords(context.Context, *model.GetDrawRecordsRequest) (*model.GetDrawRecordsResponse, error)
}

type offeringDomain struct {
	offeringRepo     repository.OfferingRepository
	cardTemplateRepo repository.CardTemplateRepository
	cardRepo         repository.CardRepository
	purchaseRepo     repository.PurchaseRepository
	drawRecordRepo   repository.DrawRecordRepository
	ledger           *ledger.Ledger
	catalog          *inventory.Catalog
	drawEngine       *draw.Engine
}

func NewOfferingDomain(
	offeringRepo repository.OfferingRepository,
	cardTemplateRepo repository.CardTemplateRepository,
	cardRepo repository.CardRepository,
	purchaseRepo repository.PurchaseRepository,
	drawRecordRepo repository.DrawRecordRepository,
	ledger *ledger.Ledger,
	catalog *inventory.Catalog,
	drawEngine *draw.Engine,
) *offeringDomain {
	return &offeringDomain{
		offeringRepo:     offeringRepo,
		cardTemplateRepo: cardTemplateRepo,
		cardRepo:         cardRepo,
		purchaseRepo:     purchaseRepo,
		drawRecordRepo:   drawRecordRepo,
		ledger:           ledger,
		catalog:          catalog,
		drawEngine:       drawEngine,
	}
}

func (d *offeringDomain) CreateCardTemplate(
	ctx context.Context, req *model.CreateCardTemplateRequest,
) (*model.CreateCardTemplateResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Name must not be empty")
	}

	tier, err := enum.ToEnum[entity.Tier](req.Tier)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Invalid tier: %v", err)
		return nil, errorx.New(errorx.BadRequest, "Invalid tier %s", req.Tier)
	}

	if req.TokenValue < 0 {
		return nil, errorx.New(errorx.BadRequest, "Token value must not be negative")
	}

	template := &entity.CardTemplate{
		Base:       entity.Base{ID: uuid.NewString()},
		Name:       req.Name,
		Category:   req.Category,
		Tier:       tier,
		TokenValue: req.TokenValue,
	}

	if err := d.cardTemplateRepo.Create(ctx, template); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create card template: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateCardTemplateResponse{ID: template.ID}, nil
}

func (d *offeringDomain) Create(
	ctx context.Context, req *model.CreateOfferingRequest,
) (*model.CreateOfferingResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Name must not be empty")
	}

	kind, err := enum.ToEnum[entity.OfferingKind](req.Kind)
	if err != nil {
		xcontext.Logger(ctx).Debugf("Invalid offering kind: %v", err)
		return nil, errorx.New(errorx.BadRequest, "Invalid offering kind %s", req.Kind)
	}

	if req.Price <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Price must be positive")
	}

	if req.TotalUnits <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Total units must be positive")
	}

	templateIDs := []string{}
	for _, e := range req.Pool {
		templateIDs = append(templateIDs, e.CardTemplateID)
	}

	templates, err := d.getTemplates(ctx, templateIDs)
	if err != nil {
		return nil, err
	}

	offering := &entity.Offering{
		Base:           entity.Base{ID: uuid.NewString()},
		Name:           req.Name,
		Kind:           kind,
		Price:          req.Price,
		TotalUnits:     req.TotalUnits,
		RemainingUnits: req.TotalUnits,
		Active:         true,
	}

	pool := []entity.PrizePoolEntry{}
	for i, e := range req.Pool {
		template, ok := templates[e.CardTemplateID]
		if !ok {
			return nil, errorx.New(errorx.BadRequest, "Not found card template %s", e.CardTemplateID)
		}

		pool = append(pool, entity.PrizePoolEntry{
			Base:           entity.Base{ID: uuid.NewString()},
			OfferingID:     offering.ID,
			Position:       i,
			CardTemplateID: template.ID,
			Tier:           template.Tier,
			Weight:         e.Weight,
			Guaranteed:     e.Guaranteed,
		})
	}

	if err := draw.ValidatePool(pool); err != nil {
		return nil, err
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.offeringRepo.Create(ctx, offering); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create offering: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.offeringRepo.CreatePoolEntries(ctx, pool); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create prize pool: %v", err)
		return nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit offering: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateOfferingResponse{ID: offering.ID}, nil
}

func (d *offeringDomain) GetList(
	ctx context.Context, req *model.GetOfferingsRequest,
) (*model.GetOfferingsResponse, error) {
	offerings, err := d.offeringRepo.GetActiveList(ctx)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get offering list: %v", err)
		return nil, errorx.Unknown
	}

	clientOfferings := []model.Offering{}
	for i := range offerings {
		clientOfferings = append(clientOfferings, model.ConvertOffering(&offerings[i], nil))
	}

	return &model.GetOfferingsResponse{Offerings: clientOfferings}, nil
}

func (d *offeringDomain) Get(
	ctx context.Context, req *model.GetOfferingRequest,
) (*model.GetOfferingResponse, error) {
	offering, err := d.offeringRepo.GetByID(ctx, req.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found offering")
		}

		xcontext.Logger(ctx).Errorf("Cannot get offering: %v", err)
		return nil, errorx.Unknown
	}

	pool, err := d.offeringRepo.GetPoolByOfferingID(ctx, offering.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get prize pool: %v", err)
		return nil, errorx.Unknown
	}

	templateIDs := []string{}
	for _, e := range pool {
		templateIDs = append(templateIDs, e.CardTemplateID)
	}

	templates, err := d.getTemplates(ctx, templateIDs)
	if err != nil {
		return nil, err
	}

	clientPool := []model.PrizePoolEntry{}
	for i := range pool {
		template := templates[pool[i].CardTemplateID]
		clientPool = append(clientPool, model.ConvertPrizePoolEntry(&pool[i], model.ConvertCardTemplate(&template)))
	}

	return &model.GetOfferingResponse{Offering: model.ConvertOffering(offering, clientPool)}, nil
}

func (d *offeringDomain) UpdateActive(
	ctx context.Context, req *model.UpdateOfferingActiveRequest,
) (*model.UpdateOfferingActiveResponse, error) {
	if err := d.offeringRepo.UpdateActive(ctx, req.OfferingID, req.Active); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found offering")
		}

		xcontext.Logger(ctx).Errorf("Cannot update offering: %v", err)
		return nil, errorx.Unknown
	}

	return &model.UpdateOfferingActiveResponse{}, nil
}

// Purchase buys units of an offering. Tokens are reserved first, then
// units. Both are given back if anything later fails, so a failed purchase
// leaves no trace on the balance nor on the stock.
func (d *offeringDomain) Purchase(
	ctx context.Context, req *model.PurchaseOfferingRequest,
) (*model.PurchaseOfferingResponse, error) {
	userID, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		req.Quantity = common.DefaultPurchaseQuantity
	}

	if req.Quantity < 0 {
		return nil, errorx.New(errorx.BadRequest, "Quantity must be positive")
	}

	maxQuantity := xcontext.Configs(ctx).Purchase.MaxQuantity
	if maxQuantity > 0 && req.Quantity > maxQuantity {
		return nil, errorx.New(errorx.BadRequest, "Exceed the maximum quantity (%d)", maxQuantity)
	}

	offering, err := d.offeringRepo.GetByID(ctx, req.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found offering")
		}

		xcontext.Logger(ctx).Errorf("Cannot get offering: %v", err)
		return nil, errorx.Unknown
	}

	if !offering.Active {
		return nil, errorx.New(errorx.OfferingInactive, "Offering is not active")
	}

	if offering.Price > math.MaxInt64/int64(req.Quantity) {
		return nil, errorx.New(errorx.BadRequest, "Quantity is too large")
	}

	pool, err := d.offeringRepo.GetPoolByOfferingID(ctx, offering.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get prize pool: %v", err)
		return nil, errorx.Unknown
	}

	// From here on, every step either completes or is compensated even if
	// the client goes away.
	ctx = xcontext.WithoutCancel(ctx)

	purchase, replay, err := d.beginPurchase(ctx, userID, offering, req)
	if err != nil {
		return nil, err
	}

	if replay != nil {
		return replay, nil
	}

	reservationID, err := d.ledger.Reserve(ctx, userID, purchase.TotalPrice, purchase.ID)
	if err != nil {
		d.failPurchase(ctx, purchase)
		return nil, err
	}

	purchase.ReservationID = reservationID
	if err := d.purchaseRepo.UpdateReservation(ctx, purchase.ID, reservationID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot save reservation of purchase: %v", err)
		d.abortPurchase(ctx, purchase, false)
		return nil, errorx.Unknown
	}

	if err := d.catalog.ReserveUnits(ctx, offering.ID, purchase.Quantity); err != nil {
		d.abortPurchase(ctx, purchase, false)
		return nil, err
	}

	cards, records, err := d.settlePurchase(ctx, userID, offering.ID, pool, purchase)
	if err != nil {
		d.abortPurchase(ctx, purchase, true)
		return nil, err
	}

	common.PromCounters[common.PurchaseTotal].WithLabelValues(string(entity.PurchaseStatusCompleted)).Inc()
	d.drawEngine.PublishAudit(ctx, records, cards)

	balance, err := d.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &model.PurchaseOfferingResponse{
		PurchaseID: purchase.ID,
		Cards:      model.ConvertCards(cards),
		NewBalance: balance,
	}, nil
}

func (d *offeringDomain) GetDrawRecords(
	ctx context.Context, req *model.GetDrawRecordsRequest,
) (*model.GetDrawRecordsResponse, error) {
	var records []entity.DrawRecord
	var err error
	switch {
	case req.Reference != "":
		records, err = d.drawRecordRepo.GetByReference(ctx, req.Reference)
	case req.OfferingID != "":
		if err := normalizePaging(ctx, &req.Offset, &req.Limit); err != nil {
			return nil, err
		}

		records, err = d.drawRecordRepo.GetByOfferingID(ctx, req.OfferingID, req.Offset, req.Limit)
	default:
		return nil, errorx.New(errorx.BadRequest, "Either reference or offering id is required")
	}

	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get draw records: %v", err)
		return nil, errorx.Unknown
	}

	clientRecords := []model.DrawRecord{}
	for i := range records {
		clientRecords = append(clientRecords, model.ConvertDrawRecord(&records[i]))
	}

	return &model.GetDrawRecordsResponse{Records: clientRecords}, nil
}

// beginPurchase creates the pending purchase of this request. If the
// idempotency key belongs to a completed purchase, the original response is
// returned instead and nothing is charged again.
func (d *offeringDomain) beginPurchase(
	ctx context.Context, userID string, offering *entity.Offering, req *model.PurchaseOfferingRequest,
) (*entity.Purchase, *model.PurchaseOfferingResponse, error) {
	if req.IdempotencyKey != "" {
		existing, err := d.purchaseRepo.GetByIdempotencyKey(ctx, userID, req.IdempotencyKey)
		if err == nil {
			return d.resumePurchase(ctx, existing, offering, req)
		}

		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get purchase: %v", err)
			return nil, nil, errorx.Unknown
		}
	}

	purchase := &entity.Purchase{
		Base:           entity.Base{ID: uuid.NewString()},
		UserID:         userID,
		IdempotencyKey: req.IdempotencyKey,
		OfferingID:     offering.ID,
		Quantity:       req.Quantity,
		TotalPrice:     offering.Price * int64(req.Quantity),
		Status:         entity.PurchaseStatusPending,
	}

	if purchase.IdempotencyKey == "" {
		purchase.IdempotencyKey = purchase.ID
	}

	if err := d.purchaseRepo.Create(ctx, purchase); err != nil {
		_, getErr := d.purchaseRepo.GetByIdempotencyKey(ctx, userID, purchase.IdempotencyKey)
		if getErr == nil {
			return nil, nil, errorx.New(errorx.Unavailable, "Purchase is in progress")
		}

		xcontext.Logger(ctx).Errorf("Cannot create purchase: %v", err)
		return nil, nil, errorx.Unknown
	}

	return purchase, nil, nil
}

func (d *offeringDomain) resumePurchase(
	ctx context.Context, existing *entity.Purchase, offering *entity.Offering, req *model.PurchaseOfferingRequest,
) (*entity.Purchase, *model.PurchaseOfferingResponse, error) {
	if existing.OfferingID != offering.ID || existing.Quantity != req.Quantity {
		return nil, nil, errorx.New(errorx.BadRequest, "Idempotency key was used by another purchase")
	}

	switch existing.Status {
	case entity.PurchaseStatusCompleted:
		cards, err := d.cardRepo.GetByReference(ctx, existing.ID)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot get cards of purchase: %v", err)
			return nil, nil, errorx.Unknown
		}

		balance, err := d.ledger.Balance(ctx, existing.UserID)
		if err != nil {
			return nil, nil, err
		}

		return nil, &model.PurchaseOfferingResponse{
			PurchaseID: existing.ID,
			Cards:      model.ConvertCards(cards),
			NewBalance: balance,
		}, nil

	case entity.PurchaseStatusFailed:
		if existing.ReservationID != 0 {
			if err := d.ledger.Release(ctx, existing.ReservationID); err != nil {
				xcontext.Logger(ctx).Errorf("Cannot release previous reservation of purchase %s: %v", existing.ID, err)
				return nil, nil, errorx.Unknown
			}
		}

		err := d.purchaseRepo.UpdateStatus(ctx, existing.ID, entity.PurchaseStatusFailed, entity.PurchaseStatusPending)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, errorx.New(errorx.Unavailable, "Purchase is in progress")
			}

			xcontext.Logger(ctx).Errorf("Cannot retry purchase: %v", err)
			return nil, nil, errorx.Unknown
		}

		existing.Status = entity.PurchaseStatusPending
		existing.ReservationID = 0
		return existing, nil, nil

	default:
		return nil, nil, errorx.New(errorx.Unavailable, "Purchase is in progress")
	}
}

// settlePurchase draws every unit and finalizes the token reservation in a
// single transaction.
func (d *offeringDomain) settlePurchase(
	ctx context.Context,
	userID string,
	offeringID string,
	pool []entity.PrizePoolEntry,
	purchase *entity.Purchase,
) ([]entity.Card, []entity.DrawRecord, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	cards := []entity.Card{}
	records := []entity.DrawRecord{}
	for i := 0; i < purchase.Quantity; i++ {
		c, r, err := d.drawEngine.Draw(ctx, userID, offeringID, pool, purchase.ID)
		if err != nil {
			return nil, nil, err
		}

		cards = append(cards, c...)
		records = append(records, r...)
	}

	if err := d.ledger.Commit(ctx, purchase.ReservationID, entity.LedgerReasonPurchase); err != nil {
		return nil, nil, err
	}

	err := d.purchaseRepo.UpdateStatus(ctx, purchase.ID, entity.PurchaseStatusPending, entity.PurchaseStatusCompleted)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot complete purchase: %v", err)
		return nil, nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit purchase: %v", err)
		return nil, nil, errorx.Unknown
	}

	return cards, records, nil
}

// abortPurchase compensates every reservation taken by a purchase. The
// purchase is marked failed only when all of them were given back, otherwise
// it stays pending so that its reservation is never forgotten by a retry.
func (d *offeringDomain) abortPurchase(ctx context.Context, purchase *entity.Purchase, unitsReserved bool) {
	if unitsReserved {
		if err := d.catalog.ReleaseUnits(ctx, purchase.OfferingID, purchase.Quantity); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot release units of purchase %s: %v", purchase.ID, err)
			return
		}
	}

	if err := d.ledger.Release(ctx, purchase.ReservationID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot release tokens of purchase %s: %v", purchase.ID, err)
		return
	}

	d.failPurchase(ctx, purchase)
}

func (d *offeringDomain) failPurchase(ctx context.Context, purchase *entity.Purchase) {
	common.PromCounters[common.PurchaseTotal].WithLabelValues(string(entity.PurchaseStatusFailed)).Inc()

	err := d.purchaseRepo.UpdateStatus(ctx, purchase.ID, entity.PurchaseStatusPending, entity.PurchaseStatusFailed)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot mark purchase %s as failed: %v", purchase.ID, err)
	}
}

func (d *offeringDomain) getTemplates(
	ctx context.Context, templateIDs []string,
) (map[string]entity.CardTemplate, error) {
	result := map[string]entity.CardTemplate{}
	if len(templateIDs) == 0 {
		return result, nil
	}

	templates, err := d.cardTemplateRepo.GetByIDs(ctx, templateIDs)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get card templates: %v", err)
		return nil, errorx.Unknown
	}

	for _, t := range templates {
		result[t.ID] = t
	}

	return result, nil
}
