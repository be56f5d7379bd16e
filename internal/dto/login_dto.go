package dto

type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	DeviceID   string `json:"device_id" validate:"required"`
	DeviceName string `json:"device_name" validate:"omitempty"`
}

type LoginResponse struct {
	AccessToken      string `json:"access_token,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`

	TwoFactorRequired     bool     `json:"two_factor_required,omitempty"`
	PartialToken          string   `json:"partial_token,omitempty"`
	PartialTokenExpiresIn int64    `json:"partial_token_expires_in,omitempty"`
	AllowedMethods        []string `json:"allowed_methods,omitempty"`
}

type ChallengeRequest struct {
	PartialToken string `json:"partial_token" validate:"required"`
	Method       string `json:"method" validate:"required,oneof=sms email"`
}

type ChallengeResponse struct {
	Delivery string `json:"delivery"`
}

type VerifyRequest struct {
	PartialToken   string `json:"partial_token" validate:"required"`
	Method         string `json:"method" validate:"omitempty,oneof=totp sms email"`
	Code           string `json:"code" validate:"omitempty"`
	RecoveryCode   string `json:"recovery_code" validate:"omitempty"`
	DeviceID       string `json:"device_id" validate:"required"`
	DeviceName     string `json:"device_name" validate:"omitempty"`
	RememberDevice bool   `json:"remember_device"`
}

type VerifyResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	RefreshExpiresIn int64  `json:"refresh_expires_in,omitempty"`

	TrustedDeviceSet       bool   `json:"trusted_device_set"`
	RecoveryCodeUsed       bool   `json:"recovery_code_used,omitempty"`
	RecoveryCodesRemaining *int64 `json:"recovery_codes_remaining,omitempty"`
}
