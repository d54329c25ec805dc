package repository

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
)

type DrawRecordRepository interface {
	CreateMany(ctx context.Context, records []entity.DrawRecord) error
	GetByReference(ctx context.Context, reference string) ([]entity.DrawRecord, error)
	GetByOfferingID(ctx context.Context, offeringID string, offset, limit int) ([]entity.DrawRecord, error)
}

type drawRecordRepository struct{}

func NewDrawRecordRepository() *drawRecordRepository {
	return &drawRecordRepository{}
}

func (r *drawRecordRepository) CreateMany(ctx context.Context, records []entity.DrawRecord) error {
	if len(records) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&records).Error
}

func (r *drawRecordRepository) GetByReference(ctx context.Context, reference string) ([]entity.DrawRecord, error) {
	var result []entity.DrawRecord
	if err := xcontext.DB(ctx).Find(&result, "reference=?", reference).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *drawRecordRepository) GetByOfferingID(
	ctx context.Context, offeringID string, offset, limit int,
) ([]entity.DrawRecord, error) {
	var result []entity.DrawRecord
	err := xcontext.DB(ctx).
		Where("offering_id=?", offeringID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
