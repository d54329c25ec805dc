package repository

import (
	"context"
	"errors"

	"github.com/questx-lab/gemdrops/internal/entity"
	"github.com/questx-lab/gemdrops/pkg/xcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	// Account
	GetAccount(ctx context.Context, userID string) (*entity.TokenAccount, error)
	EnsureAccount(ctx context.Context, userID string) error
	IncreaseBalance(ctx context.Context, userID string, amount int64) error
	DecreaseBalance(ctx context.Context, userID string, amount int64) error

	// Entry
	CreateEntry(ctx context.Context, entry *entity.LedgerEntry) error
	GetEntryByID(ctx context.Context, entryID int64) (*entity.LedgerEntry, error)
	UpdateEntryReason(ctx context.Context, entryID int64, from, to entity.LedgerReason) error
	GetEntriesByUserID(ctx context.Context, userID string, offset, limit int) ([]entity.LedgerEntry, error)
	GetEntriesByReference(ctx context.Context, reference string) ([]entity.LedgerEntry, error)
	SumDeltaByUserID(ctx context.Context, userID string) (int64, error)
}

type tokenRepository struct{}

func NewTokenRepository() *tokenRepository {
	return &tokenRepository{}
}

func (r *tokenRepository) GetAccount(ctx context.Context, userID string) (*entity.TokenAccount, error) {
	var result entity.TokenAccount
	if err := xcontext.DB(ctx).Take(&result, "user_id=?", userID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *tokenRepository) EnsureAccount(ctx context.Context, userID string) error {
	return xcontext.DB(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entity.TokenAccount{UserID: userID, Balance: 0}).Error
}

func (r *tokenRepository) IncreaseBalance(ctx context.Context, userID string, amount int64) error {
	tx := xcontext.DB(ctx).
		Model(&entity.TokenAccount{}).
		Where("user_id=?", userID).
		Update("balance", gorm.Expr("balance+?", amount))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of rows effected is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// DecreaseBalance subtracts amount only if the balance covers it. It returns
// gorm.ErrRecordNotFound when the account is missing or too poor.
func (r *tokenRepository) DecreaseBalance(ctx context.Context, userID string, amount int64) error {
	tx := xcontext.DB(ctx).
		Model(&entity.TokenAccount{}).
		Where("user_id=? AND balance >= ?", userID, amount).
		Update("balance", gorm.Expr("balance-?", amount))
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected > 1 {
		return errors.New("the number of rows effected is invalid")
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *tokenRepository) CreateEntry(ctx context.Context, entry *entity.LedgerEntry) error {
	return xcontext.DB(ctx).Create(entry).Error
}

func (r *tokenRepository) GetEntryByID(ctx context.Context, entryID int64) (*entity.LedgerEntry, error) {
	var result entity.LedgerEntry
	if err := xcontext.DB(ctx).Take(&result, "id=?", entryID).Error; err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *tokenRepository) UpdateEntryReason(
	ctx context.Context, entryID int64, from, to entity.LedgerReason,
) error {
	tx := xcontext.DB(ctx).
		Model(&entity.LedgerEntry{}).
		Where("id=? AND reason=?", entryID, from).
		Update("reason", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *tokenRepository) GetEntriesByUserID(
	ctx context.Context, userID string, offset, limit int,
) ([]entity.LedgerEntry, error) {
	var result []entity.LedgerEntry
	err := xcontext.DB(ctx).
		Where("user_id=?", userID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&result).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tokenRepository) GetEntriesByReference(ctx context.Context, reference string) ([]entity.LedgerEntry, error) {
	var result []entity.LedgerEntry
	if err := xcontext.DB(ctx).Order("id ASC").Find(&result, "reference=?", reference).Error; err != nil {
		return nil, err
	}

	return result, nil
}

func (r *tokenRepository) SumDeltaByUserID(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := xcontext.DB(ctx).
		Model(&entity.LedgerEntry{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("user_id=?", userID).
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}

	return sum, nil
}
