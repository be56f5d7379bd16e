package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SecurityAction string

const (
	LoginSuccess       SecurityAction = "login_success"
	LoginFailed        SecurityAction = "login_failed"
	StepUpRequired     SecurityAction = "step_up_required"
	StepUpSuccess      SecurityAction = "step_up_success"
	StepUpFailed       SecurityAction = "step_up_failed"
	MethodEnrolled     SecurityAction = "method_enrolled"
	MethodRemoved      SecurityAction = "method_removed"
	TwoFactorDisabled  SecurityAction = "two_factor_disabled"
	RecoveryCodeUsed   SecurityAction = "recovery_code_used"
	RecoveryRegenerate SecurityAction = "recovery_codes_regenerated"
	DeviceTrusted      SecurityAction = "device_trusted"
	DeviceRevoked      SecurityAction = "device_revoked"
	AccountLocked      SecurityAction = "account_locked"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`

	AccountID *uuid.UUID `gorm:"type:uuid;index"`
	Account   *Account   `gorm:"constraint:OnDelete:SET NULL"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:security_action;not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}
