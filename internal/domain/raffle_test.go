package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/questx-lab/gemdrops/internal/common"
	"github.com/questx-lab/gemdrops/internal/domain/draw"
	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/domain/vault"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/pubsub"
	"github.com/questx-lab/gemdrops/pkg/testutil"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"github.com/questx-lab/gemdrops/pkg/xredis"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestRaffleDomain(publisher pubsub.Publisher, redisClient xredis.Client) (*raffleDomain, *ledger.Ledger) {
	l := ledger.New(repository.NewTokenRepository())
	return NewRaffleDomain(
		repository.NewRaffleRepository(),
		repository.NewCardTemplateRepository(),
		l,
		vault.NewStore(repository.NewCardRepository(), l),
		draw.NewValuator(repository.NewCardTemplateRepository()),
		publisher,
		redisClient,
	), l
}

func createTestRaffle(
	t *testing.T, ctx context.Context, d *raffleDomain, totalSlots, numPrizes int, req model.CreateRaffleRequest,
) string {
	for i := 0; i < numPrizes; i++ {
		template := testutil.InsertCardTemplate(ctx, fmt.Sprintf("Prize %d", i+1), entity.TierS, 200)
		req.Prizes = append(req.Prizes, template.ID)
	}

	req.Name = "Weekly Raffle"
	req.TotalSlots = totalSlots
	if req.TokensPerSlot == 0 {
		req.TokensPerSlot = 10
	}

	resp, err := d.Create(ctx, &req)
	require.NoError(t, err)

	return resp.ID
}

func buySlots(ctx context.Context, d *raffleDomain, userID, raffleID string, quantity int) (*model.BuyRaffleSlotsResponse, error) {
	return d.BuySlots(xcontext.WithRequestUserID(ctx, userID), &model.BuyRaffleSlotsRequest{
		RaffleID: raffleID,
		Quantity: quantity,
	})
}

func totalBalance(t *testing.T, ctx context.Context, l *ledger.Ledger, userIDs ...string) int64 {
	total := int64(0)
	for _, userID := range userIDs {
		cached, computed, err := l.Reconcile(ctx, userID)
		require.NoError(t, err)
		require.Equal(t, cached, computed)
		total += cached
	}

	return total
}

func Test_raffleDomain_Create(t *testing.T) {
	ctx := testutil.MockContext()
	d, _ := newTestRaffleDomain(testutil.NewRecordingPublisher(), nil)

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 200)

	resp, err := d.Create(ctx, &model.CreateRaffleRequest{
		Name:          "Raffle",
		TokensPerSlot: 10,
		TotalSlots:    3,
		Prizes:        []string{template.ID},
	})
	require.NoError(t, err)

	getResp, err := d.Get(ctx, &model.GetRaffleRequest{RaffleID: resp.ID})
	require.NoError(t, err)
	require.Equal(t, string(entity.RaffleStatusOpen), getResp.Raffle.Status)
	require.True(t, getResp.Raffle.AllowMultipleWins)
	require.Equal(t, string(entity.ConsolationPerSlot), getResp.Raffle.ConsolationPolicy)
	require.Len(t, getResp.Raffle.Prizes, 1)
	require.Equal(t, 1, getResp.Raffle.Prizes[0].Rank)
	require.Equal(t, "Mew", getResp.Raffle.Prizes[0].CardTemplate.Name)

	listResp, err := d.GetList(ctx, &model.GetRafflesRequest{Status: "open"})
	require.NoError(t, err)
	require.Len(t, listResp.Raffles, 1)

	listResp, err = d.GetList(ctx, &model.GetRafflesRequest{Status: "closed"})
	require.NoError(t, err)
	require.Empty(t, listResp.Raffles)

	_, err = d.GetList(ctx, &model.GetRafflesRequest{Status: "finished"})
	require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))

	_, err = d.Get(ctx, &model.GetRaffleRequest{RaffleID: "unknown"})
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))
}

func Test_raffleDomain_Create_Invalid(t *testing.T) {
	ctx := testutil.MockContext()
	d, _ := newTestRaffleDomain(testutil.NewRecordingPublisher(), nil)

	template := testutil.InsertCardTemplate(ctx, "Mew", entity.TierS, 200)

	tests := []struct {
		name string
		req  *model.CreateRaffleRequest
	}{
		{
			name: "no prize",
			req:  &model.CreateRaffleRequest{Name: "a", TokensPerSlot: 1, TotalSlots: 1},
		},
		{
			name: "zero slots",
			req:  &model.CreateRaffleRequest{Name: "a", TokensPerSlot: 1, Prizes: []string{template.ID}},
		},
		{
			name: "free slots",
			req:  &model.CreateRaffleRequest{Name: "a", TotalSlots: 1, Prizes: []string{template.ID}},
		},
		{
			name: "more prizes than slots",
			req: &model.CreateRaffleRequest{
				Name: "a", TokensPerSlot: 1, TotalSlots: 1, Prizes: []string{template.ID, template.ID},
			},
		},
		{
			name: "unknown prize",
			req:  &model.CreateRaffleRequest{Name: "a", TokensPerSlot: 1, TotalSlots: 1, Prizes: []string{"unknown"}},
		},
		{
			name: "unknown policy",
			req: &model.CreateRaffleRequest{
				Name: "a", TokensPerSlot: 1, TotalSlots: 1, Prizes: []string{template.ID},
				ConsolationPolicy: "per_raffle",
			},
		},
		{
			name: "negative consolation",
			req: &model.CreateRaffleRequest{
				Name: "a", TokensPerSlot: 1, TotalSlots: 1, Prizes: []string{template.ID},
				ConsolationTokens: -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Create(ctx, tt.req)
			require.ErrorIs(t, err, errorx.New(errorx.BadRequest, ""))
		})
	}
}

func Test_raffleDomain_BuySlots_Resolve(t *testing.T) {
	ctx := testutil.MockContext()
	publisher := testutil.NewRecordingPublisher()
	d, l := newTestRaffleDomain(publisher, nil)

	raffleID := createTestRaffle(t, ctx, d, 3, 2, model.CreateRaffleRequest{ConsolationTokens: 4})

	users := []string{"user1", "user2", "user3"}
	for _, u := range users {
		testutil.InsertTokens(ctx, u, 100)
	}

	resp, err := buySlots(ctx, d, "user1", raffleID, 1)
	require.NoError(t, err)
	require.Len(t, resp.Slots, 1)
	require.Equal(t, 0, resp.Slots[0].SlotIndex)
	require.Equal(t, int64(90), resp.NewBalance)

	_, err = d.GetResult(ctx, &model.GetRaffleResultRequest{RaffleID: raffleID})
	require.ErrorIs(t, err, errorx.New(errorx.Unavailable, ""))

	resp, err = buySlots(ctx, d, "user2", raffleID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, resp.Slots[0].SlotIndex)

	resp, err = buySlots(ctx, d, "user3", raffleID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, resp.Slots[0].SlotIndex)

	getResp, err := d.Get(ctx, &model.GetRaffleRequest{RaffleID: raffleID})
	require.NoError(t, err)
	require.Equal(t, string(entity.RaffleStatusClosed), getResp.Raffle.Status)
	require.Equal(t, 3, getResp.Raffle.FilledSlots)
	require.NotEmpty(t, getResp.Raffle.ClosedAt)

	resultResp, err := d.GetResult(ctx, &model.GetRaffleResultRequest{RaffleID: raffleID})
	require.NoError(t, err)
	result := resultResp.Result
	require.Len(t, result.Winners, 2)
	require.Equal(t, 1, result.Winners[0].Rank)
	require.Equal(t, 2, result.Winners[1].Rank)
	require.NotEqual(t, result.Winners[0].SlotIndex, result.Winners[1].SlotIndex)

	require.Len(t, result.Consolations, 1)
	require.Equal(t, int64(4), result.Consolations[0].Tokens)
	for _, w := range result.Winners {
		require.NotEqual(t, w.SlotIndex, result.Consolations[0].SlotIndex)

		card, err := repository.NewCardRepository().GetByID(ctx, w.CardID)
		require.NoError(t, err)
		require.Equal(t, w.UserID, card.OwnerID)
		require.Equal(t, entity.CardSourceRaffle, card.Source)
		require.Equal(t, raffleID, card.Reference)
	}

	// Slot payments leave the system, consolations come back.
	require.Equal(t, int64(300-30+4), totalBalance(t, ctx, l, users...))

	packs := publisher.Packs(common.RaffleResultTopic)
	require.Len(t, packs, 1)
	require.Equal(t, []byte(raffleID), packs[0].Key)

	var event model.RaffleResultEvent
	require.NoError(t, json.Unmarshal(packs[0].Msg, &event))
	require.Equal(t, raffleID, event.Result.RaffleID)
	require.Len(t, event.Result.Winners, 2)

	_, err = buySlots(ctx, d, "user1", raffleID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.RaffleNotOpen, ""))
}

func Test_raffleDomain_BuySlots_Rejected(t *testing.T) {
	ctx := testutil.MockContext()
	d, l := newTestRaffleDomain(testutil.NewRecordingPublisher(), nil)

	raffleID := createTestRaffle(t, ctx, d, 3, 1, model.CreateRaffleRequest{})
	testutil.InsertTokens(ctx, "user1", 100)
	testutil.InsertTokens(ctx, "poor", 5)

	_, err := buySlots(ctx, d, "user1", raffleID, 4)
	require.ErrorIs(t, err, errorx.New(errorx.SlotsUnavailable, ""))

	_, err = buySlots(ctx, d, "poor", raffleID, 1)
	require.ErrorIs(t, err, errorx.New(errorx.InsufficientFunds, ""))

	_, err = buySlots(ctx, d, "user1", "unknown", 1)
	require.ErrorIs(t, err, errorx.New(errorx.NotFound, ""))

	_, err = d.BuySlots(ctx, &model.BuyRaffleSlotsRequest{RaffleID: raffleID})
	require.ErrorIs(t, err, errorx.New(errorx.Unauthenticated, ""))

	require.Equal(t, int64(105), totalBalance(t, ctx, l, "user1", "poor"))

	getResp, err := d.Get(ctx, &model.GetRaffleRequest{RaffleID: raffleID})
	require.NoError(t, err)
	require.Zero(t, getResp.Raffle.FilledSlots)
}

// cancelingTokenRepository cancels the request context once tokens are
// reserved, as if the client went away while buying slots.
type cancelingTokenRepository struct {
	repository.TokenRepository
	cancel context.CancelFunc
}

func (r *cancelingTokenRepository) CreateEntry(ctx context.Context, entry *entity.LedgerEntry) error {
	if entry.Reason == entity.LedgerReasonPending {
		r.cancel()
	}

	return r.TokenRepository.CreateEntry(ctx, entry)
}

func Test_raffleDomain_BuySlots_ClientCanceled(t *testing.T) {
	ctx := testutil.MockContext()
	reqCtx, cancel := context.WithCancel(xcontext.WithRequestUserID(ctx, "user1"))
	defer cancel()

	l := ledger.New(&cancelingTokenRepository{TokenRepository: repository.NewTokenRepository(), cancel: cancel})
	d := NewRaffleDomain(
		repository.NewRaffleRepository(),
		repository.NewCardTemplateRepository(),
		l,
		vault.NewStore(repository.NewCardRepository(), l),
		draw.NewValuator(repository.NewCardTemplateRepository()),
		testutil.NewRecordingPublisher(),
		nil,
	)

	raffleID := createTestRaffle(t, ctx, d, 3, 1, model.CreateRaffleRequest{})
	testutil.InsertTokens(ctx, "user1", 100)

	resp, err := d.BuySlots(reqCtx, &model.BuyRaffleSlotsRequest{RaffleID: raffleID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, resp.Slots, 2)
	require.Equal(t, int64(80), resp.NewBalance)
	require.Equal(t, int64(80), totalBalance(t, ctx, l, "user1"))

	getResp, err := d.Get(ctx, &model.GetRaffleRequest{RaffleID: raffleID})
	require.NoError(t, err)
	require.Equal(t, 2, getResp.Raffle.FilledSlots)
}

func Test_raffleDomain_ConsolationPolicy(t *testing.T) {
	tests := []struct {
		name             string
		policy           string
		wantConsolations int
	}{
		{name: "per slot", policy: "per_slot", wantConsolations: 3},
		{name: "per user", policy: "per_user", wantConsolations: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.MockContext()
			d, l := newTestRaffleDomain(testutil.NewRecordingPublisher(), nil)

			raffleID := createTestRaffle(t, ctx, d, 4, 1, model.CreateRaffleRequest{
				ConsolationTokens: 3,
				ConsolationPolicy: tt.policy,
			})
			testutil.InsertTokens(ctx, "user1", 100)
			testutil.InsertTokens(ctx, "user2", 100)

			_, err := buySlots(ctx, d, "user1", raffleID, 2)
			require.NoError(t, err)
			_, err = buySlots(ctx, d, "user2", raffleID, 2)
			require.NoError(t, err)

			resultResp, err := d.GetResult(ctx, &model.GetRaffleResultRequest{RaffleID: raffleID})
			require.NoError(t, err)
			result := resultResp.Result

			require.Len(t, result.Winners, 1)
			require.Len(t, result.Consolations, tt.wantConsolations)
			if tt.policy == "per_user" {
				require.NotEqual(t, result.Winners[0].UserID, result.Consolations[0].UserID)
				require.Equal(t, []string{result.Consolations[0].UserID}, result.ConsolationPaidTo)
			}

			paid := int64(3 * tt.wantConsolations)
			require.Equal(t, int64(200-40)+paid, totalBalance(t, ctx, l, "user1", "user2"))
		})
	}
}

func Test_raffleDomain_SingleWinPerUser(t *testing.T) {
	ctx := testutil.MockContext()
	d, _ := newTestRaffleDomain(testutil.NewRecordingPublisher(), nil)

	allowMultipleWins := false
	raffleID := createTestRaffle(t, ctx, d, 3, 2, model.CreateRaffleRequest{
		AllowMultipleWins: &allowMultipleWins,
		ConsolationTokens: 1,
	})
	testutil.InsertTokens(ctx, "user1", 100)

	_, err := buySlots(ctx, d, "user1", raffleID, 3)
	require.NoError(t, err)

	resultResp, err := d.GetResult(ctx, &model.GetRaffleResultRequest{RaffleID: raffleID})
	require.NoError(t, err)

	// Only one distinct participant, the second prize stays unawarded.
	require.Len(t, resultResp.Result.Winners, 1)
	require.Equal(t, 1, resultResp.Result.Winners[0].Rank)
	require.Len(t, resultResp.Result.Consolations, 2)
}

func Test_raffleDomain_NoConsolation(t *testing.T) {
	ctx := testutil.MockContext()
	d, l := newTestRaffleDomain(testutil.NewRecordingPublisher(), nil)

	raffleID := createTestRaffle(t, ctx, d, 2, 1, model.CreateRaffleRequest{})
	testutil.InsertTokens(ctx, "user1", 100)

	_, err := buySlots(ctx, d, "user1", raffleID, 2)
	require.NoError(t, err)

	resultResp, err := d.GetResult(ctx, &model.GetRaffleResultRequest{RaffleID: raffleID})
	require.NoError(t, err)
	require.Len(t, resultResp.Result.Winners, 1)
	require.Empty(t, resultResp.Result.Consolations)

	history, err := l.History(ctx, "user1", 0, 10)
	require.NoError(t, err)
	for _, e := range history {
		require.NotEqual(t, entity.LedgerReasonConsolation, e.Reason)
	}
}

func Test_raffleDomain_BuySlots_ConcurrentLastSlot(t *testing.T) {
	ctx := testutil.MockContext()
	publisher := testutil.NewRecordingPublisher()
	d, l := newTestRaffleDomain(publisher, nil)

	const totalSlots = 4
	const numUsers = 10
	raffleID := createTestRaffle(t, ctx, d, totalSlots, 1, model.CreateRaffleRequest{ConsolationTokens: 2})

	users := []string{}
	for i := 0; i < numUsers; i++ {
		users = append(users, fmt.Sprintf("user%d", i))
		testutil.InsertTokens(ctx, users[i], 100)
	}

	var mutex sync.Mutex
	succeeded := 0
	rejected := 0

	g := errgroup.Group{}
	for _, userID := range users {
		userID := userID
		g.Go(func() error {
			_, err := buySlots(ctx, d, userID, raffleID, 1)

			mutex.Lock()
			defer mutex.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errorx.Is(err, errorx.SlotsUnavailable), errorx.Is(err, errorx.RaffleNotOpen):
				rejected++
			default:
				return err
			}

			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, totalSlots, succeeded)
	require.Equal(t, numUsers-totalSlots, rejected)

	// The raffle is resolved exactly once.
	require.Len(t, publisher.Packs(common.RaffleResultTopic), 1)

	winners, err := repository.NewRaffleRepository().GetWinners(ctx, raffleID)
	require.NoError(t, err)
	require.Len(t, winners, 1)

	slots, err := repository.NewRaffleRepository().GetSlots(ctx, raffleID)
	require.NoError(t, err)
	require.Len(t, slots, totalSlots)
	for i, s := range slots {
		require.Equal(t, i, s.SlotIndex)
	}

	consolations := int64(2 * (totalSlots - 1))
	require.Equal(t, int64(numUsers*100-totalSlots*10)+consolations, totalBalance(t, ctx, l, users...))
}

func Test_raffleDomain_GetResult_Cache(t *testing.T) {
	ctx := testutil.MockContext()

	var mutex sync.Mutex
	cache := map[string]string{}
	redisClient := &testutil.MockRedisClient{
		GetFunc: func(ctx context.Context, key string) (string, error) {
			mutex.Lock()
			defer mutex.Unlock()
			value, ok := cache[key]
			if !ok {
				return "", xredis.ErrNotFound
			}

			return value, nil
		},
		SetFunc: func(ctx context.Context, key, value string, ttl time.Duration) error {
			mutex.Lock()
			defer mutex.Unlock()
			cache[key] = value
			return nil
		},
	}

	d, _ := newTestRaffleDomain(testutil.NewRecordingPublisher(), redisClient)

	raffleID := createTestRaffle(t, ctx, d, 1, 1, model.CreateRaffleRequest{})
	testutil.InsertTokens(ctx, "user1", 100)

	_, err := buySlots(ctx, d, "user1", raffleID, 1)
	require.NoError(t, err)

	key := common.RedisKeyRaffleResult(raffleID)
	require.Contains(t, cache, key)

	var cached model.RaffleResult
	require.NoError(t, json.Unmarshal([]byte(cache[key]), &cached))
	require.Equal(t, raffleID, cached.RaffleID)
	require.Len(t, cached.Winners, 1)
	require.Equal(t, "user1", cached.Winners[0].UserID)

	// A cached result is served without reading the database.
	cache[common.RedisKeyRaffleResult("archived")] = `{"raffle_id":"archived","winners":[],"consolations":[]}`
	resultResp, err := d.GetResult(ctx, &model.GetRaffleResultRequest{RaffleID: "archived"})
	require.NoError(t, err)
	require.Equal(t, "archived", resultResp.Result.RaffleID)
}

func Test_selectWinningSlots(t *testing.T) {
	slots := []entity.RaffleSlot{
		{SlotIndex: 0, UserID: "a"},
		{SlotIndex: 1, UserID: "a"},
		{SlotIndex: 2, UserID: "b"},
		{SlotIndex: 3, UserID: "c"},
	}

	for i := 0; i < 100; i++ {
		winners := selectWinningSlots(slots, 3, true)
		require.Len(t, winners, 3)

		seen := map[int]bool{}
		for _, w := range winners {
			require.False(t, seen[w])
			seen[w] = true
		}

		winners = selectWinningSlots(slots, 3, false)
		require.Len(t, winners, 3)

		won := map[string]bool{}
		for _, w := range winners {
			require.False(t, won[slots[w].UserID])
			won[slots[w].UserID] = true
		}

		require.Len(t, selectWinningSlots(slots, 4, false), 3)
	}
}
