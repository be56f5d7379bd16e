package repository

import (
	"context"
	"errors"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PartialSessionTokenRepository interface {
	Create(ctx context.Context, token *entity.PartialSessionToken) error
	FindByTokenHash(ctx context.Context, hash string) (*entity.PartialSessionToken, error)

	// Consume marks the token used. It reports false when the token was
	// already consumed, which makes redemption a compare-and-swap: two racing
	// redeemers cannot both observe true.
	Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) error
}

type partialSessionTokenRepository struct {
	db *gorm.DB
}

func NewPartialSessionTokenRepository(db *gorm.DB) PartialSessionTokenRepository {
	return &partialSessionTokenRepository{db: db}
}

func (r *partialSessionTokenRepository) Create(ctx context.Context, token *entity.PartialSessionToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *partialSessionTokenRepository) FindByTokenHash(ctx context.Context, hash string) (*entity.PartialSessionToken, error) {
	var token entity.PartialSessionToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", hash).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &token, err
}

func (r *partialSessionTokenRepository) Consume(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.PartialSessionToken{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", &now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *partialSessionTokenRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&entity.PartialSessionToken{}).
		Error
}
