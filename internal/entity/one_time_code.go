package entity

import (
	"time"

	"github.com/google/uuid"
)

// CodePurpose scopes a dispatched code to the flow that requested it so a
// login code can never confirm an enrollment or a disable request.
type CodePurpose string

const (
	PurposeEnroll  CodePurpose = "enroll"
	PurposeLogin   CodePurpose = "login"
	PurposeDisable CodePurpose = "disable"
)

// OneTimeCode is a dispatched sms/email verification code. Only the salted
// hash is stored; dispatching a replacement invalidates the outstanding code
// for the same (account, method, purpose).
type OneTimeCode struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
	Account   Account   `gorm:"constraint:OnDelete:CASCADE"`

	Method  Method      `gorm:"type:varchar(16);not null"`
	Purpose CodePurpose `gorm:"type:varchar(16);not null"`

	CodeHash string `gorm:"type:text;not null"`

	ExpiresAt time.Time
	UsedAt    *time.Time

	CreatedAt time.Time
}
