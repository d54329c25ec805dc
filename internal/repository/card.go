package repository

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

type SearchCardFilter struct {
	OwnerID  string
	Tier     entity.Tier
	Category string
	Q        string

	// SortBy is one of value, name or tier. OrderDesc reverses it.
	SortBy    string
	OrderDesc bool

	Offset int
	Limit  int
}

type CardRepository interface {
	Create(ctx context.Context, card *entity.Card) error
	CreateMany(ctx context.Context, cards []entity.Card) error
	GetByID(ctx context.Context, cardID string) (*entity.Card, error)
	GetByIDs(ctx context.Context, cardIDs []string) ([]entity.Card, error)
	GetByReference(ctx context.Context, reference string) ([]entity.Card, error)
	Search(ctx context.Context, filter SearchCardFilter) ([]entity.Card, error)
	UpdateState(ctx context.Context, cardID string, from, to entity.CardState) error
	Count(ctx context.Context, ownerID string, state entity.CardState) (int64, error)
}

type cardRepository struct{}

func NewCardRepository() *cardRepository {
	return &cardRepository{}
}

func (r *cardRepository) Create(ctx context.Context, card *entity.Card) error {
	return xcontext.DB(ctx).Create(card).Error
}

func (r *cardRepository) CreateMany(ctx context.Context, cards []entity.Card) error {
	if len(cards) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&cards).Error
}

func (r *cardRepository) GetByID(ctx context.Context, cardID string) (*entity.Card, error) {
	var result entity.Card
	if err := xcontext.DB(ctx).Take(&result, "id=?", cardID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *cardRepository) GetByIDs(ctx context.Context, cardIDs []string) ([]entity.Card, error) {
	var result []entity.Card
	if err := xcontext.DB(ctx).Find(&result, "id IN (?)", cardIDs).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *cardRepository) GetByReference(ctx context.Context, reference string) ([]entity.Card, error) {
	var result []entity.Card
	err := xcontext.DB(ctx).
		Where("reference=?", reference).
		Order("created_at ASC, id ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Search only returns cards which are still in the vault.
func (r *cardRepository) Search(ctx context.Context, filter SearchCardFilter) ([]entity.Card, error) {
	tx := xcontext.DB(ctx).
		Where("owner_id=?", filter.OwnerID).
		Where("state IN (?)", []entity.CardState{entity.CardStateOwned, entity.CardStateRefundRequested})

	if filter.Tier != "" {
		tx = tx.Where("tier=?", filter.Tier)
	}

	if filter.Category != "" {
		tx = tx.Where("category=?", filter.Category)
	}

	if filter.Q != "" {
		tx = tx.Where("name LIKE ?", "%"+filter.Q+"%")
	}

	order := " ASC"
	if filter.OrderDesc {
		order = " DESC"
	}

	switch filter.SortBy {
	case "name":
		tx = tx.Order("name" + order)
	case "tier":
		tx = tx.Order("tier_rank" + order)
	default:
		tx = tx.Order("token_value" + order)
	}

	var result []entity.Card
	err := tx.Order("id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *cardRepository) UpdateState(ctx context.Context, cardID string, from, to entity.CardState) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Card{}).
		Where("id=? AND state=?", cardID, from).
		Update("state", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *cardRepository) Count(ctx context.Context, ownerID string, state entity.CardState) (int64, error) {
	var result int64
	err := xcontext.DB(ctx).
		Model(&entity.Card{}).
		Where("owner_id=? AND state=?", ownerID, state).
		Count(&result).Error
	if err != nil {
		return 0, err
	}

	return result, nil
}
