package repository

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

type OfferingRepository interface {
	// Offering
	Create(ctx context.Context, offering *entity.Offering) error
	GetByID(ctx context.Context, offeringID string) (*entity.Offering, error)
	GetActiveList(ctx context.Context) ([]entity.Offering, error)
	UpdateActive(ctx context.Context, offeringID string, active bool) error
	CheckAndReserveUnits(ctx context.Context, offeringID string, units int) error
	ReleaseUnits(ctx context.Context, offeringID string, units int) error

	// Prize pool
	CreatePoolEntries(ctx context.Context, entries []entity.PrizePoolEntry) error
	GetPoolByOfferingID(ctx context.Context, offeringID string) ([]entity.PrizePoolEntry, error)
}

type offeringRepository struct{}

func NewOfferingRepository() *offeringRepository {
	return &offeringRepository{}
}

func (r *offeringRepository) Create(ctx context.Context, offering *entity.Offering) error {
	return xcontext.DB(ctx).Create(offering).Error
}

func (r *offeringRepository) GetByID(ctx context.Context, offeringID string) (*entity.Offering, error) {
	var result entity.Offering
	if err := xcontext.DB(ctx).Take(&result, "id=?", offeringID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *offeringRepository) GetActiveList(ctx context.Context) ([]entity.Offering, error) {
	var result []entity.Offering
	err := xcontext.DB(ctx).
		Where("active=?", true).
		Order("created_at ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *offeringRepository) UpdateActive(ctx context.Context, offeringID string, active bool) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Offering{}).
		Where("id=?", offeringID).
		Update("active", active)
	if tx.Error != nil {
		return tx.Error
	}

	// MySQL counts changed rows only, so setting the current value affects
	// nothing although the offering exists.
	if tx.RowsAffected == 0 {
		_, err := r.GetByID(ctx, offeringID)
		return err
	}

	return nil
}

// CheckAndReserveUnits takes units from the remaining stock of an active
// offering, all or nothing. It returns gorm.ErrRecordNotFound if the
// offering is missing, inactive or does not have enough units left.
func (r *offeringRepository) CheckAndReserveUnits(ctx context.Context, offeringID string, units int) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Offering{}).
		Where("id=? AND active=? AND remaining_units >= ?", offeringID, true, units).
		Update("remaining_units", gorm.Expr("remaining_units-?", units))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *offeringRepository) ReleaseUnits(ctx context.Context, offeringID string, units int) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Offering{}).
		Where("id=? AND remaining_units+? <= total_units", offeringID, units).
		Update("remaining_units", gorm.Expr("remaining_units+?", units))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *offeringRepository) CreatePoolEntries(ctx context.Context, entries []entity.PrizePoolEntry) error {
	return xcontext.DB(ctx).Create(&entries).Error
}

func (r *offeringRepository) GetPoolByOfferingID(
	ctx context.Context, offeringID string,
) ([]entity.PrizePoolEntry, error) {
	var result []entity.PrizePoolEntry
	err := xcontext.DB(ctx).
		Where("offering_id=?", offeringID).
		Order("position ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
