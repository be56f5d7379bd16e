package repository

import (
	"context"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RecoveryCodeRepository interface {
	// ReplaceBatch deletes every prior code for the account and inserts the
	// new batch in a single transaction, so old codes become unusable the
	// instant the new batch exists.
	ReplaceBatch(ctx context.Context, accountID uuid.UUID, codes []entity.RecoveryCode) error
	FindUnused(ctx context.Context, accountID uuid.UUID) ([]entity.RecoveryCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	HasAny(ctx context.Context, accountID uuid.UUID) (bool, error)
	CountUnused(ctx context.Context, accountID uuid.UUID) (int64, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type recoveryCodeRepository struct {
	db *gorm.DB
}

func NewRecoveryCodeRepository(db *gorm.DB) RecoveryCodeRepository {
	return &recoveryCodeRepository{db: db}
}

func (r *recoveryCodeRepository) ReplaceBatch(ctx context.Context, accountID uuid.UUID, codes []entity.RecoveryCode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("account_id = ?", accountID).
			Delete(&entity.RecoveryCode{}).Error; err != nil {
			return err
		}
		return tx.Create(&codes).Error
	})
}

func (r *recoveryCodeRepository) FindUnused(ctx context.Context, accountID uuid.UUID) ([]entity.RecoveryCode, error) {
	var codes []entity.RecoveryCode
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND used_at IS NULL", accountID).
		Find(&codes).Error
	return codes, err
}

func (r *recoveryCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.RecoveryCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", &now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *recoveryCodeRepository) HasAny(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RecoveryCode{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count > 0, err
}

func (r *recoveryCodeRepository) CountUnused(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.RecoveryCode{}).
		Where("account_id = ? AND used_at IS NULL", accountID).
		Count(&count).Error
	return count, err
}

func (r *recoveryCodeRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&entity.RecoveryCode{}).
		Error
}
