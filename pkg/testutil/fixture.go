package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

// InsertTokens credits amount tokens to userID with a matching topup entry,
// so the account stays consistent with its ledger.
func InsertTokens(ctx context.Context, userID string, amount int64) {
	tokenRepo := repository.NewTokenRepository()

	if err := tokenRepo.EnsureAccount(ctx, userID); err != nil {
		panic(err)
	}

	if err := tokenRepo.IncreaseBalance(ctx, userID, amount); err != nil {
		panic(err)
	}

	err := tokenRepo.CreateEntry(ctx, &entity.LedgerEntry{
		SnowFlakeBase: entity.SnowFlakeBase{ID: xcontext.SnowFlake(ctx).Generate().Int64()},
		UserID:        userID,
		Delta:         amount,
		Reason:        entity.LedgerReasonTopUp,
		Reference:     "fixture",
	})
	if err != nil {
		panic(err)
	}
}

func InsertCardTemplate(ctx context.Context, name string, tier entity.Tier, tokenValue int64) *entity.CardTemplate {
	template := &entity.CardTemplate{
		Base:       entity.Base{ID: uuid.NewString()},
		Name:       name,
		Category:   "pokemon",
		Tier:       tier,
		TokenValue: tokenValue,
	}

	if err := repository.NewCardTemplateRepository().Create(ctx, template); err != nil {
		panic(err)
	}

	return template
}

// InsertOffering creates an active offering with the given pool. Ids,
// positions and offering ids of the entries are filled in.
func InsertOffering(ctx context.Context, price int64, units int, pool []entity.PrizePoolEntry) *entity.Offering {
	offeringRepo := repository.NewOfferingRepository()
	offering := &entity.Offering{
		Base:           entity.Base{ID: uuid.NewString()},
		Name:           "Gem Drop",
		Kind:           entity.OfferingKindGemDrop,
		Price:          price,
		TotalUnits:     units,
		RemainingUnits: units,
		Active:         true,
	}

	if err := offeringRepo.Create(ctx, offering); err != nil {
		panic(err)
	}

	for i := range pool {
		pool[i].ID = uuid.NewString()
		pool[i].OfferingID = offering.ID
		pool[i].Position = i
	}

	if err := offeringRepo.CreatePoolEntries(ctx, pool); err != nil {
		panic(err)
	}

	return offering
}

func InsertCard(
	ctx context.Context, ownerID string, template *entity.CardTemplate, state entity.CardState,
) *entity.Card {
	card := &entity.Card{
		Base:       entity.Base{ID: uuid.NewString()},
		OwnerID:    ownerID,
		TemplateID: template.ID,
		Name:       template.Name,
		Category:   template.Category,
		Tier:       template.Tier,
		TierRank:   template.Tier.Rank(),
		TokenValue: template.TokenValue,
		State:      state,
		Source:     entity.CardSourceDraw,
		Reference:  "fixture",
	}

	if err := repository.NewCardRepository().Create(ctx, card); err != nil {
		panic(err)
	}

	return card
}
