package entity

import (
	"time"

	"github.com/google/uuid"
)

// RecoveryCode is a one-time backup code usable in place of a regular second
// factor. Codes are issued in batches; regenerating replaces the whole batch
// atomically and the plaintext is never retrievable after issuance.
type RecoveryCode struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE"`

	BatchID  uuid.UUID `gorm:"type:uuid;not null;index"`
	CodeHash string    `gorm:"type:text;not null"`

	UsedAt *time.Time

	CreatedAt time.Time
}

func (c *RecoveryCode) IsUsed() bool {
	return c.UsedAt != nil
}
