package service

import "stepauth/internal/entity"

type LoginInput struct {
	Email      string
	Password   string
	DeviceID   string
	DeviceName string
	IPAddress  *string
	UserAgent  *string
}

type LoginResult struct {
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64

	TwoFactorRequired     bool
	PartialToken          string
	PartialTokenExpiresIn int64
	AllowedMethods        []string
}

type VerifyInput struct {
	PartialToken   string
	Method         string
	Code           string
	RecoveryCode   string
	DeviceID       string
	DeviceName     string
	RememberDevice bool
	IPAddress      *string
	UserAgent      *string
}

type VerifyResult struct {
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64

	TrustedDeviceSet       bool
	RecoveryCodeUsed       bool
	RecoveryCodesRemaining int64
}

type SetupResult struct {
	Method entity.Method

	// TOTP enrollments carry the shared secret and provisioning URI; the
	// code itself is never echoed for dispatched methods.
	Secret          string
	ProvisioningURL string

	// Delivery is the masked destination a code was sent to.
	Delivery string
}

type ConfirmResult struct {
	// RecoveryCodes is non-empty only on the account's first-ever
	// successful enrollment.
	RecoveryCodes []string
}

type StatusResult struct {
	Enabled                bool
	PreferredMethod        entity.Method
	ConfiguredMethods      []entity.Method
	MaskedDestinations     map[entity.Method]string
	RecoveryCodesRemaining int64
}

type RemoveResult struct {
	Removed     bool
	NowDisabled bool
}
