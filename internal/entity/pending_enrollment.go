package entity

import (
	"time"

	"github.com/google/uuid"
)

// PendingEnrollment is the transient per-method setup state between
// StartSetup and ConfirmSetup. At most one row exists per (account, method);
// starting setup again overwrites the previous attempt.
type PendingEnrollment struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_pending_account_method"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE"`

	Method Method `gorm:"type:varchar(16);not null;uniqueIndex:idx_pending_account_method"`

	// TOTPSecret is set for totp enrollments, Destination for sms/email.
	TOTPSecret  *string `gorm:"type:text"`
	Destination *string `gorm:"type:varchar(255)"`

	Attempts  int `gorm:"default:0;not null"`
	ExpiresAt time.Time

	CreatedAt time.Time
}
