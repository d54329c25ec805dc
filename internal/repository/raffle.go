package repository

import (
	"context"
	"time"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
)

type RaffleRepository interface {
	// Event
	Create(ctx context.Context, event *entity.RaffleEvent) error
	GetByID(ctx context.Context, raffleID string) (*entity.RaffleEvent, error)
	GetList(ctx context.Context, status entity.RaffleStatus, offset, limit int) ([]entity.RaffleEvent, error)
	CheckAndFillSlots(ctx context.Context, raffleID string, slots int) error
	StartDrawing(ctx context.Context, raffleID string) error
	Close(ctx context.Context, raffleID string, closedAt time.Time) error

	// Prize
	CreatePrizes(ctx context.Context, prizes []entity.RafflePrize) error
	GetPrizes(ctx context.Context, raffleID string) ([]entity.RafflePrize, error)

	// Slot
	CreateSlots(ctx context.Context, slots []entity.RaffleSlot) error
	GetSlots(ctx context.Context, raffleID string) ([]entity.RaffleSlot, error)

	// Result
	CreateWinners(ctx context.Context, winners []entity.RaffleWinner) error
	GetWinners(ctx context.Context, raffleID string) ([]entity.RaffleWinner, error)
	CreateConsolations(ctx context.Context, consolations []entity.RaffleConsolation) error
	GetConsolations(ctx context.Context, raffleID string) ([]entity.RaffleConsolation, error)
}

type raffleRepository struct{}

func NewRaffleRepository() *raffleRepository {
	return &raffleRepository{}
}

func (r *raffleRepository) Create(ctx context.Context, event *entity.RaffleEvent) error {
	return xcontext.DB(ctx).Create(event).Error
}

func (r *raffleRepository) GetByID(ctx context.Context, raffleID string) (*entity.RaffleEvent, error) {
	var result entity.RaffleEvent
	if err := xcontext.DB(ctx).Take(&result, "id=?", raffleID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *raffleRepository) GetList(
	ctx context.Context, status entity.RaffleStatus, offset, limit int,
) ([]entity.RaffleEvent, error) {
	tx := xcontext.DB(ctx).Order("created_at DESC")
	if status != "" {
		tx = tx.Where("status=?", status)
	}

	var result []entity.RaffleEvent
	if err := tx.Offset(offset).Limit(limit).Find(&result).Error; err != nil {
		return nil, err
	}

	return result, nil
}

// CheckAndFillSlots claims slots of an open raffle only if all of them fit.
// It returns gorm.ErrRecordNotFound otherwise.
func (r *raffleRepository) CheckAndFillSlots(ctx context.Context, raffleID string, slots int) error {
	tx := xcontext.DB(ctx).
		Model(&entity.RaffleEvent{}).
		Where("id=? AND status=? AND filled_slots+? <= total_slots", raffleID, entity.RaffleStatusOpen, slots).
		Update("filled_slots", gorm.Expr("filled_slots+?", slots))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// StartDrawing moves a full raffle from open to drawing. Only one caller can
// succeed, the others get gorm.ErrRecordNotFound.
func (r *raffleRepository) StartDrawing(ctx context.Context, raffleID string) error {
	tx := xcontext.DB(ctx).
		Model(&entity.RaffleEvent{}).
		Where("id=? AND status=? AND filled_slots=total_slots", raffleID, entity.RaffleStatusOpen).
		Update("status", entity.RaffleStatusDrawing)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) Close(ctx context.Context, raffleID string, closedAt time.Time) error {
	tx := xcontext.DB(ctx).
		Model(&entity.RaffleEvent{}).
		Where("id=? AND status=?", raffleID, entity.RaffleStatusDrawing).
		Updates(map[string]any{
			"status":    entity.RaffleStatusClosed,
			"closed_at": closedAt,
		})
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *raffleRepository) CreatePrizes(ctx context.Context, prizes []entity.RafflePrize) error {
	if len(prizes) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&prizes).Error
}

func (r *raffleRepository) GetPrizes(ctx context.Context, raffleID string) ([]entity.RafflePrize, error) {
	var result []entity.RafflePrize
	err := xcontext.DB(ctx).
		Where("raffle_id=?", raffleID).
		Order("`rank` ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) CreateSlots(ctx context.Context, slots []entity.RaffleSlot) error {
	if len(slots) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&slots).Error
}

func (r *raffleRepository) GetSlots(ctx context.Context, raffleID string) ([]entity.RaffleSlot, error) {
	var result []entity.RaffleSlot
	err := xcontext.DB(ctx).
		Where("raffle_id=?", raffleID).
		Order("slot_index ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) CreateWinners(ctx context.Context, winners []entity.RaffleWinner) error {
	if len(winners) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&winners).Error
}

func (r *raffleRepository) GetWinners(ctx context.Context, raffleID string) ([]entity.RaffleWinner, error) {
	var result []entity.RaffleWinner
	err := xcontext.DB(ctx).
		Where("raffle_id=?", raffleID).
		Order("`rank` ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *raffleRepository) CreateConsolations(
	ctx context.Context, consolations []entity.RaffleConsolation,
) error {
	if len(consolations) == 0 {
		return nil
	}

	return xcontext.DB(ctx).Create(&consolations).Error
}

func (r *raffleRepository) GetConsolations(
	ctx context.Context, raffleID string,
) ([]entity.RaffleConsolation, error) {
	var result []entity.RaffleConsolation
	err := xcontext.DB(ctx).
		Where("raffle_id=?", raffleID).
		Order("slot_index ASC").
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}
