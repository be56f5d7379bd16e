package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PartialSessionToken proves primary-credential success while second-factor
// verification is still pending. The raw token is opaque random material handed
// to the client exactly once; only its hash is stored. Single-use: ConsumedAt
// is set atomically on redemption.
type PartialSessionToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE"`

	TokenHash      string                       `gorm:"type:text;not null;uniqueIndex"`
	AllowedMethods datatypes.JSONSlice[string]

	ExpiresAt  time.Time
	ConsumedAt *time.Time

	CreatedAt time.Time
}

func (t *PartialSessionToken) Allows(proof string) bool {
	for _, m := range t.AllowedMethods {
		if m == proof {
			return true
		}
	}
	return false
}
