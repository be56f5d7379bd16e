package dto

import (
	"time"

	"stepauth/internal/entity"
)

type SetupRequest struct {
	Method      string `json:"method" validate:"required,oneof=totp sms email"`
	Destination string `json:"destination" validate:"omitempty"`
}

type SetupResponse struct {
	Method          string `json:"method"`
	Secret          string `json:"secret,omitempty"`
	ProvisioningURL string `json:"provisioning_url,omitempty"`
	Delivery        string `json:"delivery,omitempty"`
}

type ConfirmSetupRequest struct {
	Method string `json:"method" validate:"required,oneof=totp sms email"`
	Code   string `json:"code" validate:"required"`
}

type ConfirmSetupResponse struct {
	Enabled       bool     `json:"enabled"`
	RecoveryCodes []string `json:"recovery_codes,omitempty"`
}

type ResendSetupRequest struct {
	Method string `json:"method" validate:"required,oneof=sms email"`
}

type StatusResponse struct {
	Enabled                bool              `json:"enabled"`
	PreferredMethod        string            `json:"preferred_method,omitempty"`
	ConfiguredMethods      []string          `json:"configured_methods"`
	MaskedDestinations     map[string]string `json:"masked_destinations"`
	RecoveryCodesRemaining int64             `json:"recovery_codes_remaining"`
}

type PreferredMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=totp sms email"`
}

type PreferredMethodResponse struct {
	PreferredMethod string `json:"preferred_method"`
}

type RemoveMethodRequest struct {
	ReplacementPreferred string `json:"replacement_preferred" validate:"omitempty,oneof=totp sms email"`
}

type RemoveMethodResponse struct {
	Removed     bool `json:"removed"`
	NowDisabled bool `json:"now_disabled"`
}

type DisableRequestResponse struct {
	Method   string `json:"method"`
	Delivery string `json:"delivery,omitempty"`
}

type DisableConfirmRequest struct {
	Code string `json:"code" validate:"required"`
}

type DisableConfirmResponse struct {
	Disabled bool `json:"disabled"`
}

type RecoveryCodesResponse struct {
	RecoveryCodes []string `json:"recovery_codes"`
}

type TrustedDeviceResponse struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"device_id"`
	DeviceName string    `json:"device_name,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

type RemoveTrustedDeviceResponse struct {
	Removed bool `json:"removed"`
}

func TrustedDeviceResponseFromEntity(device *entity.TrustedDevice) TrustedDeviceResponse {
	return TrustedDeviceResponse{
		ID:         device.ID.String(),
		DeviceID:   device.DeviceID,
		DeviceName: device.DeviceName,
		LastSeenAt: device.LastSeenAt,
		ExpiresAt:  device.ExpiresAt,
		CreatedAt:  device.CreatedAt,
	}
}

func TrustedDeviceResponsesFromEntities(devices []entity.TrustedDevice) []TrustedDeviceResponse {
	responses := make([]TrustedDeviceResponse, 0, len(devices))
	for i := range devices {
		responses = append(responses, TrustedDeviceResponseFromEntity(&devices[i]))
	}
	return responses
}

func MethodStrings(methods []entity.Method) []string {
	values := make([]string, 0, len(methods))
	for _, m := range methods {
		values = append(values, string(m))
	}
	return values
}
