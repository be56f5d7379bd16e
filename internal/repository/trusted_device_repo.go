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

type TrustedDeviceRepository interface {
	Upsert(ctx context.Context, device *entity.TrustedDevice) error
	FindActive(ctx context.Context, accountID uuid.UUID, deviceID string, now time.Time) (*entity.TrustedDevice, error)
	Touch(ctx context.Context, id uuid.UUID, seenAt time.Time, expiresAt time.Time) error
	ListActive(ctx context.Context, accountID uuid.UUID, now time.Time) ([]entity.TrustedDevice, error)
	Revoke(ctx context.Context, accountID uuid.UUID, id uuid.UUID, now time.Time) (bool, error)
	RevokeAllByAccount(ctx context.Context, accountID uuid.UUID, now time.Time) error
}

type trustedDeviceRepository struct {
	db *gorm.DB
}

func NewTrustedDeviceRepository(db *gorm.DB) TrustedDeviceRepository {
	return &trustedDeviceRepository{db: db}
}

func (r *trustedDeviceRepository) Upsert(ctx context.Context, device *entity.TrustedDevice) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"device_name", "last_seen_at", "expires_at", "revoked_at",
			}),
		}).
		Create(device).Error
}

func (r *trustedDeviceRepository) FindActive(
	ctx context.Context,
	accountID uuid.UUID,
	deviceID string,
	now time.Time,
) (*entity.TrustedDevice, error) {
	var device entity.TrustedDevice
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND device_id = ? AND revoked_at IS NULL AND expires_at > ?", accountID, deviceID, now).
		First(&device).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &device, err
}

func (r *trustedDeviceRepository) Touch(ctx context.Context, id uuid.UUID, seenAt time.Time, expiresAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.TrustedDevice{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_seen_at": seenAt, "expires_at": expiresAt}).
		Error
}

func (r *trustedDeviceRepository) ListActive(ctx context.Context, accountID uuid.UUID, now time.Time) ([]entity.TrustedDevice, error) {
	var devices []entity.TrustedDevice
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND revoked_at IS NULL AND expires_at > ?", accountID, now).
		Order("last_seen_at DESC").
		Find(&devices).Error
	return devices, err
}

func (r *trustedDeviceRepository) Revoke(ctx context.Context, accountID uuid.UUID, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.TrustedDevice{}).
		Where("id = ? AND account_id = ? AND revoked_at IS NULL", id, accountID).
		Update("revoked_at", &now)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *trustedDeviceRepository) RevokeAllByAccount(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.TrustedDevice{}).
		Where("account_id = ? AND revoked_at IS NULL", accountID).
		Update("revoked_at", &now).
		Error
}
