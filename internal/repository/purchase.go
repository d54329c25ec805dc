package repository

import (
	"context"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *entity.Purchase) error
	GetByID(ctx context.Context, purchaseID string) (*entity.Purchase, error)
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*entity.Purchase, error)
	UpdateReservation(ctx context.Context, purchaseID string, reservationID int64) error
	UpdateStatus(ctx context.Context, purchaseID string, from, to entity.PurchaseStatus) error
}

type purchaseRepository struct{}

func NewPurchaseRepository() *purchaseRepository {
	return &purchaseRepository{}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *entity.Purchase) error {
	return xcontext.DB(ctx).Create(purchase).Error
}

func (r *purchaseRepository) GetByID(ctx context.Context, purchaseID string) (*entity.Purchase, error) {
	var result entity.Purchase
	if err := xcontext.DB(ctx).Take(&result, "id=?", purchaseID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *purchaseRepository) GetByIdempotencyKey(
	ctx context.Context, userID, key string,
) (*entity.Purchase, error) {
	var result entity.Purchase
	err := xcontext.DB(ctx).
		Take(&result, "user_id=? AND idempotency_key=?", userID, key).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *purchaseRepository) UpdateReservation(ctx context.Context, purchaseID string, reservationID int64) error {
	return xcontext.DB(ctx).
		Model(&entity.Purchase{}).
		Where("id=?", purchaseID).
		Update("reservation_id", reservationID).Error
}

func (r *purchaseRepository) UpdateStatus(
	ctx context.Context, purchaseID string, from, to entity.PurchaseStatus,
) error {
	tx := xcontext.DB(ctx).
		Model(&entity.Purchase{}).
		Where("id=? AND status=?", purchaseID, from).
		Update("status", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
