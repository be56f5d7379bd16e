package service

import (
	"context"
	"encoding/json"
	"time"

	"stepauth/internal/entity"
	"stepauth/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LockoutGovernor tracks failed verification attempts per account and
// enforces a fixed lockout window once the threshold is crossed.
type LockoutGovernor struct {
	profiles repository.TwoFactorProfileRepository
	logs     repository.SecurityLogRepository
	clock    Clock
	config   Config
}

func NewLockoutGovernor(
	profiles repository.TwoFactorProfileRepository,
	logs repository.SecurityLogRepository,
	clock Clock,
	config Config,
) *LockoutGovernor {
	return &LockoutGovernor{profiles: profiles, logs: logs, clock: clock, config: config}
}

// IsLocked reports whether the account is inside a lockout window. A lapsed
// window is reset lazily here, so the first attempt after it behaves as if
// the counter were zero.
func (g *LockoutGovernor) IsLocked(ctx context.Context, accountID uuid.UUID) (bool, error) {
	profile, err := g.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if profile == nil || profile.LockedUntil == nil {
		return false, nil
	}
	if g.clock.Now().Before(*profile.LockedUntil) {
		return true, nil
	}
	if err := g.profiles.ResetFailures(ctx, accountID); err != nil {
		return false, err
	}
	return false, nil
}

// RecordFailure bumps the counter atomically and, at the threshold, starts
// the lockout window. It reports whether this failure locked the account.
func (g *LockoutGovernor) RecordFailure(ctx context.Context, accountID uuid.UUID) (bool, error) {
	count, err := g.profiles.IncrementFailures(ctx, accountID)
	if err != nil {
		return false, err
	}
	if count < g.config.lockoutThreshold() {
		return false, nil
	}

	until := g.clock.Now().Add(g.config.lockoutWindow())
	if err := g.profiles.Lock(ctx, accountID, until); err != nil {
		return false, err
	}
	g.logLocked(ctx, accountID, until)
	return true, nil
}

func (g *LockoutGovernor) RecordSuccess(ctx context.Context, accountID uuid.UUID) error {
	return g.profiles.ResetFailures(ctx, accountID)
}

func (g *LockoutGovernor) logLocked(ctx context.Context, accountID uuid.UUID, until time.Time) {
	if g.logs == nil {
		return
	}
	metadata, _ := json.Marshal(map[string]any{"locked_until": until})
	_ = g.logs.Log(ctx, &entity.SecurityLog{
		AccountID: &accountID,
		Action:    entity.AccountLocked,
		Metadata:  datatypes.JSON(metadata),
	})
}
