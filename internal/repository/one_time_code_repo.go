package repository

import (
	"context"
	"errors"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OneTimeCodeRepository interface {
	// Replace invalidates any outstanding code for the same
	// (account, method, purpose) and stores the new one in one transaction.
	Replace(ctx context.Context, code *entity.OneTimeCode) error
	FindLatest(ctx context.Context, accountID uuid.UUID, method entity.Method, purpose entity.CodePurpose) (*entity.OneTimeCode, error)
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type oneTimeCodeRepository struct {
	db *gorm.DB
}

func NewOneTimeCodeRepository(db *gorm.DB) OneTimeCodeRepository {
	return &oneTimeCodeRepository{db: db}
}

func (r *oneTimeCodeRepository) Replace(ctx context.Context, code *entity.OneTimeCode) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("account_id = ? AND method = ? AND purpose = ?", code.AccountID, code.Method, code.Purpose).
			Delete(&entity.OneTimeCode{}).Error; err != nil {
			return err
		}
		return tx.Create(code).Error
	})
}

func (r *oneTimeCodeRepository) FindLatest(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	purpose entity.CodePurpose,
) (*entity.OneTimeCode, error) {
	var code entity.OneTimeCode
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND method = ? AND purpose = ?", accountID, method, purpose).
		Order("created_at DESC").
		First(&code).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &code, err
}

func (r *oneTimeCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.OneTimeCode{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", &now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *oneTimeCodeRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&entity.OneTimeCode{}).
		Error
}
