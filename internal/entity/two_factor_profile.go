package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TwoFactorProfile is the one-to-one 2FA configuration for an account.
//
// Invariants: a non-empty PreferredMethod is always a member of
// ConfiguredMethods, Enabled implies ConfiguredMethods is non-empty, and
// disabled profiles carry a zero failure counter.
type TwoFactorProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE"`

	Enabled           bool                       `gorm:"default:false;not null"`
	PreferredMethod   Method                     `gorm:"type:varchar(16);default:''"`
	ConfiguredMethods datatypes.JSONSlice[Method]

	TOTPSecret  *string `gorm:"type:text"`
	PhoneNumber *string `gorm:"type:varchar(32)"`
	BackupEmail *string `gorm:"type:varchar(255)"`

	FailedAttempts int `gorm:"default:0;not null"`
	LockedUntil    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *TwoFactorProfile) HasMethod(method Method) bool {
	for _, m := range p.ConfiguredMethods {
		if m == method {
			return true
		}
	}
	return false
}

func (p *TwoFactorProfile) AddMethod(method Method) {
	if !p.HasMethod(method) {
		p.ConfiguredMethods = append(p.ConfiguredMethods, method)
	}
}

func (p *TwoFactorProfile) DropMethod(method Method) {
	kept := p.ConfiguredMethods[:0]
	for _, m := range p.ConfiguredMethods {
		if m != method {
			kept = append(kept, m)
		}
	}
	p.ConfiguredMethods = kept
}
