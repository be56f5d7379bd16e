package repository

import (
	"context"
	"errors"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TwoFactorProfileRepository interface {
	FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.TwoFactorProfile, error)
	Upsert(ctx context.Context, profile *entity.TwoFactorProfile) error
	Save(ctx context.Context, profile *entity.TwoFactorProfile) error

	// IncrementFailures bumps the failure counter atomically and returns the
	// new value.
	IncrementFailures(ctx context.Context, accountID uuid.UUID) (int, error)
	Lock(ctx context.Context, accountID uuid.UUID, until time.Time) error
	ResetFailures(ctx context.Context, accountID uuid.UUID) error
}

type twoFactorProfileRepository struct {
	db *gorm.DB
}

func NewTwoFactorProfileRepository(db *gorm.DB) TwoFactorProfileRepository {
	return &twoFactorProfileRepository{db: db}
}

func (r *twoFactorProfileRepository) FindByAccountID(ctx context.Context, accountID uuid.UUID) (*entity.TwoFactorProfile, error) {
	var profile entity.TwoFactorProfile
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&profile).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &profile, err
}

func (r *twoFactorProfileRepository) Upsert(ctx context.Context, profile *entity.TwoFactorProfile) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"enabled", "preferred_method", "configured_methods",
				"totp_secret", "phone_number", "backup_email", "updated_at",
			}),
		}).
		Create(profile).Error
}

func (r *twoFactorProfileRepository) Save(ctx context.Context, profile *entity.TwoFactorProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *twoFactorProfileRepository) IncrementFailures(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := r.db.WithContext(ctx).
		Raw(`UPDATE two_factor_profiles
			SET failed_attempts = failed_attempts + 1, updated_at = NOW()
			WHERE account_id = ?
			RETURNING failed_attempts`, accountID).
		Scan(&count).Error
	return count, err
}

func (r *twoFactorProfileRepository) Lock(ctx context.Context, accountID uuid.UUID, until time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.TwoFactorProfile{}).
		Where("account_id = ?", accountID).
		Update("locked_until", &until).
		Error
}

func (r *twoFactorProfileRepository) ResetFailures(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.TwoFactorProfile{}).
		Where("account_id = ?", accountID).
		Updates(map[string]any{"failed_attempts": 0, "locked_until": nil}).
		Error
}
