package draw

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/questx-lab/gemdrops/internal/common"
	"github.com/questx-lab/gemdrops/internal/domain/vault"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/model"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/pubsub"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

// Engine turns purchased units into vault cards. Every selection is stored
// as a draw record so its roll can be audited later.
type Engine struct {
	drawRecordRepo repository.DrawRecordRepository
	valuator       Valuator
	vaultStore     *vault.Store
	publisher      pubsub.Publisher
}

func NewEngine(
	drawRecordRepo repository.DrawRecordRepository,
	valuator Valuator,
	vaultStore *vault.Store,
	publisher pubsub.Publisher,
) *Engine {
	return &Engine{
		drawRecordRepo: drawRecordRepo,
		valuator:       valuator,
		vaultStore:     vaultStore,
		publisher:      publisher,
	}
}

// Draw draws one unit of an offering for userID and credits the resulting
// cards to the vault. Reference is the purchase id. It should be called
// inside the transaction of the purchase.
func (e *Engine) Draw(
	ctx context.Context,
	userID string,
	offeringID string,
	pool []entity.PrizePoolEntry,
	reference string,
) ([]entity.Card, []entity.DrawRecord, error) {
	if err := ValidatePool(pool); err != nil {
		xcontext.Logger(ctx).Errorf("Offering %s has an invalid pool: %v", offeringID, err)
		return nil, nil, errorx.Unknown
	}

	cards := []entity.Card{}
	records := []entity.DrawRecord{}
	for _, o := range roll(pool) {
		template, err := e.valuator.Value(ctx, o.entry.CardTemplateID)
		if err != nil {
			return nil, nil, err
		}

		card, err := e.vaultStore.CreditCard(ctx, userID, template, entity.CardSourceDraw, reference)
		if err != nil {
			return nil, nil, err
		}

		cards = append(cards, *card)
		records = append(records, entity.DrawRecord{
			Base:           entity.Base{ID: uuid.NewString()},
			Reference:      reference,
			OfferingID:     offeringID,
			UserID:         userID,
			Roll:           o.roll,
			TotalWeight:    o.totalWeight,
			Guaranteed:     o.guaranteed,
			CardTemplateID: template.ID,
			CardID:         card.ID,
		})

		xcontext.Logger(ctx).Infof("Draw %s of offering %s: roll=%f/%f template=%s tier=%s",
			reference, offeringID, o.roll, o.totalWeight, template.ID, template.Tier)
	}

	if err := e.drawRecordRepo.CreateMany(ctx, records); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create draw records: %v", err)
		return nil, nil, errorx.Unknown
	}

	return cards, records, nil
}

// PublishAudit sends committed draw records to the audit topic. The records
// are already persisted, so failures are only logged.
func (e *Engine) PublishAudit(ctx context.Context, records []entity.DrawRecord, cards []entity.Card) {
	tiers := map[string]entity.Tier{}
	for _, c := range cards {
		tiers[c.ID] = c.Tier
		common.PromCounters[common.DrawTotal].WithLabelValues(string(c.Tier)).Inc()
	}

	for _, r := range records {
		b, err := json.Marshal(model.DrawAuditEvent{
			Reference:      r.Reference,
			OfferingID:     r.OfferingID,
			UserID:         r.UserID,
			Roll:           r.Roll,
			TotalWeight:    r.TotalWeight,
			Guaranteed:     r.Guaranteed,
			CardTemplateID: r.CardTemplateID,
			CardID:         r.CardID,
			Tier:           string(tiers[r.CardID]),
		})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot marshal draw audit: %v", err)
			continue
		}

		err = e.publisher.Publish(ctx, common.DrawAuditTopic, &pubsub.Pack{Key: []byte(r.Reference), Msg: b})
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot publish draw audit of %s: %v", r.Reference, err)
		}
	}
}
