package vault

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/questx-lab/gemdrops/internal/domain/ledger"
	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/internal/repository"
	"github.com/questx-lab/gemdrops/pkg/errorx"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

// Store keeps the cards of every user. A card only moves forward:
//
//	owned -> refund_requested -> removed
//	owned -> ship_requested -> removed
type Store struct {
	cardRepo repository.CardRepository
	ledger   *ledger.Ledger
}

func NewStore(cardRepo repository.CardRepository, ledger *ledger.Ledger) *Store {
	return &Store{cardRepo: cardRepo, ledger: ledger}
}

// CreditCard adds an owned card built from template to the vault of ownerID.
func (s *Store) CreditCard(
	ctx context.Context,
	ownerID string,
	template *entity.CardTemplate,
	source entity.CardSource,
	reference string,
) (*entity.Card, error) {
	card := &entity.Card{
		Base:       entity.Base{ID: uuid.NewString()},
		OwnerID:    ownerID,
		TemplateID: template.ID,
		Name:       template.Name,
		Category:   template.Category,
		Tier:       template.Tier,
		TierRank:   template.Tier.Rank(),
		TokenValue: template.TokenValue,
		State:      entity.CardStateOwned,
		Source:     source,
		Reference:  reference,
	}

	if err := s.cardRepo.Create(ctx, card); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot create card: %v", err)
		return nil, errorx.Unknown
	}

	return card, nil
}

// Refund gives the token value of an owned card back to its owner and
// removes the card. It returns the credited amount.
func (s *Store) Refund(ctx context.Context, ownerID, cardID string) (int64, error) {
	card, err := s.getOwnedCard(ctx, ownerID, cardID)
	if err != nil {
		return 0, err
	}

	ctx = xcontext.WithDBTransaction(ctx)
	defer xcontext.WithRollbackDBTransaction(ctx)

	if err := s.moveState(ctx, cardID, entity.CardStateOwned, entity.CardStateRefundRequested); err != nil {
		return 0, err
	}

	if err := s.ledger.Credit(ctx, ownerID, card.TokenValue, entity.LedgerReasonRefund, card.ID); err != nil {
		return 0, err
	}

	if err := s.moveState(ctx, cardID, entity.CardStateRefundRequested, entity.CardStateRemoved); err != nil {
		return 0, err
	}

	if err := xcontext.WithCommitDBTransaction(ctx); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot commit refund: %v", err)
		return 0, errorx.Unknown
	}

	return card.TokenValue, nil
}

// Ship marks an owned card as waiting for shipment. It never credits tokens.
func (s *Store) Ship(ctx context.Context, ownerID, cardID string) error {
	if _, err := s.getOwnedCard(ctx, ownerID, cardID); err != nil {
		return err
	}

	return s.moveState(ctx, cardID, entity.CardStateOwned, entity.CardStateShipRequested)
}

// Fulfill removes a card whose shipment has been handed over to logistics.
func (s *Store) Fulfill(ctx context.Context, cardID string) error {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "Not found card")
		}

		xcontext.Logger(ctx).Errorf("Cannot get card: %v", err)
		return errorx.Unknown
	}

	if card.State != entity.CardStateShipRequested {
		return errorx.New(errorx.InvalidState, "Card is %s, not waiting for shipment", card.State)
	}

	return s.moveState(ctx, cardID, entity.CardStateShipRequested, entity.CardStateRemoved)
}

func (s *Store) List(ctx context.Context, filter repository.SearchCardFilter) ([]entity.Card, error) {
	cards, err := s.cardRepo.Search(ctx, filter)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot search cards: %v", err)
		return nil, errorx.Unknown
	}

	return cards, nil
}

func (s *Store) getOwnedCard(ctx context.Context, ownerID, cardID string) (*entity.Card, error) {
	card, err := s.cardRepo.GetByID(ctx, cardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errorx.New(errorx.NotOwned, "You do not own this card")
		}

		xcontext.Logger(ctx).Errorf("Cannot get card: %v", err)
		return nil, errorx.Unknown
	}

	if card.OwnerID != ownerID {
		return nil, errorx.New(errorx.NotOwned, "You do not own this card")
	}

	if card.State != entity.CardStateOwned {
		return nil, errorx.New(errorx.InvalidState, "Card is %s", card.State)
	}

	return card, nil
}

func (s *Store) moveState(ctx context.Context, cardID string, from, to entity.CardState) error {
	if err := s.cardRepo.UpdateState(ctx, cardID, from, to); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.InvalidState, "Card is no longer %s", from)
		}

		xcontext.Logger(ctx).Errorf("Cannot update card state: %v", err)
		return errorx.Unknown
	}

	return nil
}
