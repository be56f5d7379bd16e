package entity

import (
	"time"

	"github.com/google/uuid"
)

// TrustedDevice allows a device to bypass second-factor code entry for a
// bounded period. It never bypasses the primary credential or the
// partial-session token itself.
type TrustedDevice struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_trusted_account_device"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE"`

	DeviceID   string `gorm:"type:varchar(255);not null;uniqueIndex:idx_trusted_account_device"`
	DeviceName string `gorm:"type:varchar(100)"`

	LastSeenAt time.Time
	ExpiresAt  time.Time
	RevokedAt  *time.Time

	CreatedAt time.Time
}
