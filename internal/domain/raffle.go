package domain

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/gemdrops/internal/common"
	"github.com/questx-lab/gemdrops/internal/domain/draw"
	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/domain/vault"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/crypto"
	"github.com/questx-lab/gemdrops/pkg/enum"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/pubsub"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"github.com/questx-lab/gemdrops/pkg/xredis"
	"gorm.io/gorm"
)

type RaffleDomain interface {
	Create(context.Context, *model.CreateRaffleRequest) (*model.CreateRaffleResponse, error)
	GetList(context.Context, *model.GetRafflesRequest) (*model.GetRafflesResponse, error)
	Get(context.Context, *model.GetRaffleRequest) (*model.GetRaffleResponse, error)
	BuySlots(context.Context, *model.BuyRaffleSlotsRequest) (*model.BuyRaffleSlotsResponse, error)
	GetResult(context.Context, *model.GetRaffleResultRequest) (*model.GetRaffleResultResponse, error)
}

type raffleDomain struct {
	raffleRepo       repository.RaffleRepository
	cardTemplateRepo repository.CardTemplateRepository
	ledger           *ledger.Ledger
	vaultStore       *vault.Store
	valuator         draw.Valuator
	publisher        pubsub.Publisher
	redisClient      xredis.Client
}

// NewRaffleDomain creates the raffle domain. The redis client is optional,
// results are read from the database when it is nil.
func NewRaffleDomain(
	raffleRepo repository.RaffleRepository,
	cardTemplateRepo repository.CardTemplateRepository,
	ledger *ledger.Ledger,
	vaultStore *vault.Store,
	valuator draw.Valuator,
	publisher pubsub.Publisher,
	redisClient xredis.Client,
) *raffleDomain {
	return &raffleDomain{
		raffleRepo:       raffleRepo,
		cardTemplateRepo: cardTemplateRepo,
		ledger:           ledger,
		vaultStore:       vaultStore,
		valuator:         valuator,
		publisher:        publisher,
		redisClient:      redisClient,
	}
}

func (d *raffleDomain) Create(
	ctx context.Context, req *model.CreateRaffleRequest,
) (*model.CreateRaffleResponse, error) {
	if req.Name == "" {
		return nil, errorx.New(errorx.BadRequest, "Name must not be empty")
	}

	if req.TokensPerSlot <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Tokens per slot must be positive")
	}

	if req.TotalSlots <= 0 {
		return nil, errorx.New(errorx.BadRequest, "Total slots must be positive")
	}

	if req.ConsolationTokens < 0 {
		return nil, errorx.New(errorx.BadRequest, "Consolation tokens must not be negative")
	}

	if len(req.Prizes) == 0 {
		return nil, errorx.New(errorx.BadRequest, "Raffle needs at least one prize")
	}

	if len(req.Prizes) > req.TotalSlots {
		return nil, errorx.New(errorx.BadRequest, "Number of prizes must not exceed total slots")
	}

	raffleCfg := xcontext.Configs(ctx).Raffle
	allowMultipleWins := raffleCfg.AllowMultipleWins
	if req.AllowMultipleWins != nil {
		allowMultipleWins = *req.AllowMultipleWins
	}

	policyName := req.ConsolationPolicy
	if policyName == "" {
		policyName = raffleCfg.ConsolationPolicy
	}

	policy := entity.ConsolationPerSlot
	if policyName != "" {
		var err error
		policy, err = enum.ToEnum[entity.ConsolationPolicy](policyName)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Invalid consolation policy: %v", err)
			return nil, errorx.New(errorx.BadRequest, "Invalid consolation policy %s", policyName)
		}
	}

	templates, err := d.cardTemplateRepo.GetByIDs(ctx, req.Prizes)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get card templates: %v", err)
		return nil, errorx.Unknown
	}

	found := map[string]bool{}
	for _, t := range templates {
		found[t.ID] = true
	}

	event := &entity.RaffleEvent{
		Base:              entity.Base{ID: uuid.NewString()},
		Name:              req.Name,
		TokensPerSlot:     req.TokensPerSlot,
		TotalSlots:        req.TotalSlots,
		FilledSlots:       0,
		ConsolationTokens: req.ConsolationTokens,
		AllowMultipleWins: allowMultipleWins,
		ConsolationPolicy: policy,
		Status:            entity.RaffleStatusOpen,
	}

	prizes := []entity.RafflePrize{}
	for i, templateID := range req.Prizes {
		if !found[templateID] {
			return nil, errorx.New(errorx.BadRequest, "Not found card template %s", templateID)
		}

		prizes = append(prizes, entity.RafflePrize{
			Base:           entity.Base{ID: uuid.NewString()},
			RaffleID:       event.ID,
			Rank:           i + 1,
			CardTemplateID: templateID,
		})
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.raffleRepo.Create(ctx, event); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle: %v", err)
		return nil, errorx.Unknown
	}

	if err := d.raffleRepo.CreatePrizes(ctx, prizes); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle prizes: %v", err)
		return nil, errorx.Unknown
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit raffle: %v", err)
		return nil, errorx.Unknown
	}

	return &model.CreateRaffleResponse{ID: event.ID}, nil
}

func (d *raffleDomain) GetList(
	ctx context.Context, req *model.GetRafflesRequest,
) (*model.GetRafflesResponse, error) {
	if err := normalizePaging(ctx, &req.Offset, &req.Limit); err != nil {
		return nil, err
	}

	var status entity.RaffleStatus
	if req.Status != "" {
		var err error
		status, err = enum.ToEnum[entity.RaffleStatus](req.Status)
		if err != nil {
			xcontext.Logger(ctx).Debugf("Invalid raffle status: %v", err)
			return nil, errorx.New(errorx.BadRequest, "Invalid raffle status %s", req.Status)
		}
	}

	events, err := d.raffleRepo.GetList(ctx, status, req.Offset, req.Limit)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle list: %v", err)
		return nil, errorx.Unknown
	}

	clientRaffles := []model.Raffle{}
	for i := range events {
		clientRaffles = append(clientRaffles, model.ConvertRaffle(&events[i], nil))
	}

	return &model.GetRafflesResponse{Raffles: clientRaffles}, nil
}

func (d *raffleDomain) Get(
	ctx context.Context, req *model.GetRaffleRequest,
) (*model.GetRaffleResponse, error) {
	event, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	prizes, err := d.raffleRepo.GetPrizes(ctx, event.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle prizes: %v", err)
		return nil, errorx.Unknown
	}

	clientPrizes := []model.RafflePrize{}
	for _, p := range prizes {
		template, err := d.valuator.Value(ctx, p.CardTemplateID)
		if err != nil {
			return nil, err
		}

		clientPrizes = append(clientPrizes, model.RafflePrize{
			Rank:         p.Rank,
			CardTemplate: model.ConvertCardTemplate(template),
		})
	}

	return &model.GetRaffleResponse{Raffle: model.ConvertRaffle(event, clientPrizes)}, nil
}

// BuySlots sells slots of an open raffle. The purchase which fills the last
// slot also draws the winners and pays every prize and consolation before
// returning.
func (d *raffleDomain) BuySlots(
	ctx context.Context, req *model.BuyRaffleSlotsRequest,
) (*model.BuyRaffleSlotsResponse, error) {
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

	event, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	if event.Status != entity.RaffleStatusOpen {
		return nil, errorx.New(errorx.RaffleNotOpen, "Raffle is %s", event.Status)
	}

	if event.FilledSlots+req.Quantity > event.TotalSlots {
		return nil, errorx.New(errorx.SlotsUnavailable,
			"Only %d slots left", event.TotalSlots-event.FilledSlots)
	}

	if event.TokensPerSlot > math.MaxInt64/int64(req.Quantity) {
		return nil, errorx.New(errorx.BadRequest, "Quantity is too large")
	}

	// Once tokens are reserved the slots are either allocated or the tokens
	// given back, whatever happens to the client.
	ctx = xcontext.WithoutCancel(ctx)

	reservationID, err := d.ledger.Reserve(ctx, userID, event.TokensPerSlot*int64(req.Quantity), event.ID)
	if err != nil {
		return nil, err
	}

	slots, result, err := d.fillSlots(ctx, event.ID, userID, req.Quantity, reservationID)
	if err != nil {
		if releaseErr := d.ledger.Release(ctx, reservationID); releaseErr != nil {
			xcontext.Logger(ctx).Errorf("Cannot release tokens of raffle %s: %v", event.ID, releaseErr)
		}

		return nil, err
	}

	common.PromCounters[common.RaffleSlotSoldTotal].WithLabelValues().Add(float64(len(slots)))
	if result != nil {
		common.PromCounters[common.RaffleClosedTotal].WithLabelValues().Inc()
		d.publishResult(ctx, result)
		d.cacheResult(ctx, result)
	}

	balance, err := d.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}

	clientSlots := []model.RaffleSlot{}
	for i := range slots {
		clientSlots = append(clientSlots, model.ConvertRaffleSlot(&slots[i]))
	}

	return &model.BuyRaffleSlotsResponse{Slots: clientSlots, NewBalance: balance}, nil
}

func (d *raffleDomain) GetResult(
	ctx context.Context, req *model.GetRaffleResultRequest,
) (*model.GetRaffleResultResponse, error) {
	if result, ok := d.getCachedResult(ctx, req.RaffleID); ok {
		return &model.GetRaffleResultResponse{Result: *result}, nil
	}

	event, err := d.getRaffle(ctx, req.RaffleID)
	if err != nil {
		return nil, err
	}

	if event.Status != entity.RaffleStatusClosed {
		return nil, errorx.New(errorx.Unavailable, "Raffle is not closed yet")
	}

	winners, err := d.raffleRepo.GetWinners(ctx, event.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle winners: %v", err)
		return nil, errorx.Unknown
	}

	consolations, err := d.raffleRepo.GetConsolations(ctx, event.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle consolations: %v", err)
		return nil, errorx.Unknown
	}

	result := model.ConvertRaffleResult(event, winners, consolations)
	d.cacheResult(ctx, &result)

	return &model.GetRaffleResultResponse{Result: result}, nil
}

// fillSlots allocates slots and commits the token reservation in one
// transaction. If these slots fill the raffle, the raffle is resolved in the
// same transaction and its result is returned.
func (d *raffleDomain) fillSlots(
	ctx context.Context, raffleID, userID string, quantity int, reservationID int64,
) ([]entity.RaffleSlot, *model.RaffleResult, error) {
	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := d.raffleRepo.CheckAndFillSlots(ctx, raffleID, quantity); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot fill raffle slots: %v", err)
			return nil, nil, errorx.Unknown
		}

		current, err := d.getRaffle(ctx, raffleID)
		if err != nil {
			return nil, nil, err
		}

		if current.Status != entity.RaffleStatusOpen {
			return nil, nil, errorx.New(errorx.RaffleNotOpen, "Raffle is %s", current.Status)
		}

		return nil, nil, errorx.New(errorx.SlotsUnavailable,
			"Only %d slots left", current.TotalSlots-current.FilledSlots)
	}

	event, err := d.getRaffle(ctx, raffleID)
	if err != nil {
		return nil, nil, err
	}

	slots := []entity.RaffleSlot{}
	for index := event.FilledSlots - quantity; index < event.FilledSlots; index++ {
		slots = append(slots, entity.RaffleSlot{
			Base:      entity.Base{ID: uuid.NewString()},
			RaffleID:  raffleID,
			SlotIndex: index,
			UserID:    userID,
		})
	}

	if err := d.raffleRepo.CreateSlots(ctx, slots); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle slots: %v", err)
		return nil, nil, errorx.Unknown
	}

	if err := d.ledger.Commit(ctx, reservationID, entity.LedgerReasonPurchase); err != nil {
		return nil, nil, err
	}

	var result *model.RaffleResult
	if event.FilledSlots == event.TotalSlots {
		if err := d.raffleRepo.StartDrawing(ctx, raffleID); err != nil {
			xcontext.Logger(ctx).Errorf("Cannot start drawing raffle %s: %v", raffleID, err)
			return nil, nil, errorx.Unknown
		}

		result, err = d.resolve(ctx, event)
		if err != nil {
			return nil, nil, err
		}
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit raffle slots: %v", err)
		return nil, nil, errorx.Unknown
	}

	return slots, result, nil
}

// resolve selects the winners of a full raffle, pays prizes and
// consolations, then closes it. It runs exactly once per raffle, inside the
// transaction which moved the raffle to drawing.
func (d *raffleDomain) resolve(ctx context.Context, event *entity.RaffleEvent) (*model.RaffleResult, error) {
	prizes, err := d.raffleRepo.GetPrizes(ctx, event.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle prizes: %v", err)
		return nil, errorx.Unknown
	}

	slots, err := d.raffleRepo.GetSlots(ctx, event.ID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get raffle slots: %v", err)
		return nil, errorx.Unknown
	}

	winningSlots := selectWinningSlots(slots, len(prizes), event.AllowMultipleWins)
	if len(winningSlots) < len(prizes) {
		xcontext.Logger(ctx).Warnf("Raffle %s only has %d distinct winners for %d prizes",
			event.ID, len(winningSlots), len(prizes))
	}

	winners := []entity.RaffleWinner{}
	isWinningSlot := map[int]bool{}
	isWinner := map[string]bool{}
	for i, slotIndex := range winningSlots {
		slot := slots[slotIndex]
		prize := prizes[i]

		template, err := d.valuator.Value(ctx, prize.CardTemplateID)
		if err != nil {
			return nil, err
		}

		card, err := d.vaultStore.CreditCard(ctx, slot.UserID, template, entity.CardSourceRaffle, event.ID)
		if err != nil {
			return nil, err
		}

		winners = append(winners, entity.RaffleWinner{
			Base:      entity.Base{ID: uuid.NewString()},
			RaffleID:  event.ID,
			Rank:      prize.Rank,
			SlotIndex: slot.SlotIndex,
			UserID:    slot.UserID,
			CardID:    card.ID,
		})

		isWinningSlot[slot.SlotIndex] = true
		isWinner[slot.UserID] = true
	}

	if err := d.raffleRepo.CreateWinners(ctx, winners); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle winners: %v", err)
		return nil, errorx.Unknown
	}

	consolations := []entity.RaffleConsolation{}
	if event.ConsolationTokens > 0 {
		consoled := map[string]bool{}
		for _, slot := range slots {
			if isWinningSlot[slot.SlotIndex] {
				continue
			}

			if event.ConsolationPolicy == entity.ConsolationPerUser {
				if isWinner[slot.UserID] || consoled[slot.UserID] {
					continue
				}

				consoled[slot.UserID] = true
			}

			consolations = append(consolations, entity.RaffleConsolation{
				Base:      entity.Base{ID: uuid.NewString()},
				RaffleID:  event.ID,
				UserID:    slot.UserID,
				SlotIndex: slot.SlotIndex,
				Tokens:    event.ConsolationTokens,
			})
		}
	}

	for _, c := range consolations {
		err := d.ledger.Credit(ctx, c.UserID, c.Tokens, entity.LedgerReasonConsolation, event.ID)
		if err != nil {
			return nil, err
		}
	}

	if err := d.raffleRepo.CreateConsolations(ctx, consolations); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create raffle consolations: %v", err)
		return nil, errorx.Unknown
	}

	closedAt := time.Now()
	if err := d.raffleRepo.Close(ctx, event.ID, closedAt); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot close raffle %s: %v", event.ID, err)
		return nil, errorx.Unknown
	}

	event.Status = entity.RaffleStatusClosed
	event.ClosedAt.Valid = true
	event.ClosedAt.Time = closedAt

	xcontext.Logger(ctx).Infof("Raffle %s closed with %d winners and %d consolations",
		event.ID, len(winners), len(consolations))

	result := model.ConvertRaffleResult(event, winners, consolations)
	return &result, nil
}

// selectWinningSlots returns the positions in slots of the winners, in rank
// order. Positions are picked uniformly without replacement. When multiple
// wins are not allowed, slots of users who already won are skipped, so
// fewer than numPrizes positions may be returned.
func selectWinningSlots(slots []entity.RaffleSlot, numPrizes int, allowMultipleWins bool) []int {
	if numPrizes > len(slots) {
		numPrizes = len(slots)
	}

	if allowMultipleWins {
		return crypto.PickDistinct(len(slots), numPrizes)
	}

	result := []int{}
	won := map[string]bool{}
	for _, i := range crypto.PickDistinct(len(slots), len(slots)) {
		if len(result) == numPrizes {
			break
		}

		if won[slots[i].UserID] {
			continue
		}

		won[slots[i].UserID] = true
		result = append(result, i)
	}

	return result
}

func (d *raffleDomain) getRaffle(ctx context.Context, raffleID string) (*entity.RaffleEvent, error) {
	event, err := d.raffleRepo.GetByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotFound, "Not found raffle")
		}

		xcontext.Logger(ctx).Errorf("Cannot get raffle: %v", err)
		return nil, errorx.Unknown
	}

	return event, nil
}

func (d *raffleDomain) publishResult(ctx context.Context, result *model.RaffleResult) {
	b, err := json.Marshal(model.RaffleResultEvent{Result: *result})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal raffle result: %v", err)
		return
	}

	err = d.publisher.Publish(ctx, common.RaffleResultTopic, &pubsub.Pack{Key: []byte(result.RaffleID), Msg: b})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot publish raffle result of %s: %v", result.RaffleID, err)
	}
}

func (d *raffleDomain) cacheResult(ctx context.Context, result *model.RaffleResult) {
	if d.redisClient == nil {
		return
	}

	b, err := json.Marshal(result)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal raffle result: %v", err)
		return
	}

	ttl := xcontext.Configs(ctx).Redis.ResultTTL
	err = d.redisClient.Set(ctx, common.RedisKeyRaffleResult(result.RaffleID), string(b), ttl)
	if err != nil {
		xcontext.Logger(ctx).Warnf("Cannot cache raffle result of %s: %v", result.RaffleID, err)
	}
}

func (d *raffleDomain) getCachedResult(ctx context.Context, raffleID string) (*model.RaffleResult, bool) {
	if d.redisClient == nil {
		return nil, false
	}

	value, err := d.redisClient.Get(ctx, common.RedisKeyRaffleResult(raffleID))
	if err != nil {
		if !errors.Is(err, xredis.ErrNotFound) {
			xcontext.Logger(ctx).Warnf("Cannot get cached raffle result of %s: %v", raffleID, err)
		}

		return nil, false
	}

	var result model.RaffleResult
	if err := json.Unmarshal([]byte(value), &result); err != nil {
		xcontext.Logger(ctx).Warnf("Invalid cached raffle result of %s: %v", raffleID, err)
		return nil, false
	}

	return &result, true
}
