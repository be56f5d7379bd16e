package service

import (
	"context"

	"stepauth/internal/entity"
	"stepauth/internal/repository"

	"github.com/google/uuid"
)

// TrustedDeviceLedger records device identifiers allowed to bypass code
// entry for a bounded period. Trust never bypasses the primary credential or
// the partial-session token itself.
type TrustedDeviceLedger struct {
	devices repository.TrustedDeviceRepository
	clock   Clock
	config  Config
}

func NewTrustedDeviceLedger(
	devices repository.TrustedDeviceRepository,
	clock Clock,
	config Config,
) *TrustedDeviceLedger {
	return &TrustedDeviceLedger{devices: devices, clock: clock, config: config}
}

// Trust upserts the device with a fresh lifetime. Called only right after a
// successful non-recovery verification when the user opted in.
func (l *TrustedDeviceLedger) Trust(ctx context.Context, accountID uuid.UUID, deviceID string, deviceName string) error {
	now := l.clock.Now()
	return l.devices.Upsert(ctx, &entity.TrustedDevice{
		AccountID:  accountID,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		LastSeenAt: now,
		ExpiresAt:  now.Add(l.config.trustedDeviceTTL()),
	})
}

// TryBypass reports whether the device may skip code entry. A successful
// bypass refreshes the device's lifetime.
func (l *TrustedDeviceLedger) TryBypass(ctx context.Context, accountID uuid.UUID, deviceID string) (bool, error) {
	if deviceID == "" {
		return false, nil
	}
	now := l.clock.Now()
	device, err := l.devices.FindActive(ctx, accountID, deviceID, now)
	if err != nil {
		return false, err
	}
	if device == nil {
		return false, nil
	}
	if err := l.devices.Touch(ctx, device.ID, now, now.Add(l.config.trustedDeviceTTL())); err != nil {
		return false, err
	}
	return true, nil
}

func (l *TrustedDeviceLedger) List(ctx context.Context, accountID uuid.UUID) ([]entity.TrustedDevice, error) {
	return l.devices.ListActive(ctx, accountID, l.clock.Now())
}

func (l *TrustedDeviceLedger) Revoke(ctx context.Context, accountID uuid.UUID, id uuid.UUID) (bool, error) {
	return l.devices.Revoke(ctx, accountID, id, l.clock.Now())
}

func (l *TrustedDeviceLedger) RevokeAll(ctx context.Context, accountID uuid.UUID) error {
	return l.devices.RevokeAllByAccount(ctx, accountID, l.clock.Now())
}
