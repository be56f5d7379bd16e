package service

import (
	"context"
	"testing"
	"time"

	"stepauth/internal/entity"
)

func lockoutProfile(t *testing.T, env *testEnv) {
	t.Helper()
	err := env.profiles.Save(context.Background(), &entity.TwoFactorProfile{
		AccountID:         env.account.ID,
		Enabled:           true,
		PreferredMethod:   entity.MethodTOTP,
		ConfiguredMethods: []entity.Method{entity.MethodTOTP},
	})
	if err != nil {
		t.Fatalf("save profile: %v", err)
	}
}

func TestLockoutTriggersAtThreshold(t *testing.T) {
	env := newTestEnv(t)
	lockoutProfile(t, env)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		lockedNow, err := env.lockout.RecordFailure(ctx, env.account.ID)
		if err != nil {
			t.Fatalf("record failure %d: %v", i+1, err)
		}
		if lockedNow {
			t.Fatalf("failure %d must not lock yet", i+1)
		}
	}

	lockedNow, err := env.lockout.RecordFailure(ctx, env.account.ID)
	if err != nil {
		t.Fatalf("record fifth failure: %v", err)
	}
	if !lockedNow {
		t.Fatal("fifth failure must lock the account")
	}

	locked, err := env.lockout.IsLocked(ctx, env.account.ID)
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !locked {
		t.Fatal("expected the account to be locked")
	}
	if !env.logs.has(entity.AccountLocked) {
		t.Fatal("expected an account_locked audit entry")
	}
}

func TestLockoutWindowLapsesAndResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	lockoutProfile(t, env)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := env.lockout.RecordFailure(ctx, env.account.ID); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}

	env.clock.Advance(14 * time.Minute)
	locked, err := env.lockout.IsLocked(ctx, env.account.ID)
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if !locked {
		t.Fatal("still inside the window")
	}

	env.clock.Advance(2 * time.Minute)
	locked, err = env.lockout.IsLocked(ctx, env.account.ID)
	if err != nil {
		t.Fatalf("is locked after window: %v", err)
	}
	if locked {
		t.Fatal("the window lapsed")
	}

	// Lazy reset: the counter starts from zero again.
	profile, err := env.profiles.FindByAccountID(ctx, env.account.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.FailedAttempts != 0 || profile.LockedUntil != nil {
		t.Fatalf("expected a reset profile, got attempts=%d", profile.FailedAttempts)
	}
}

func TestRecordSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	lockoutProfile(t, env)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := env.lockout.RecordFailure(ctx, env.account.ID); err != nil {
			t.Fatalf("record failure: %v", err)
		}
	}
	if err := env.lockout.RecordSuccess(ctx, env.account.ID); err != nil {
		t.Fatalf("record success: %v", err)
	}

	profile, err := env.profiles.FindByAccountID(ctx, env.account.ID)
	if err != nil {
		t.Fatalf("find profile: %v", err)
	}
	if profile.FailedAttempts != 0 {
		t.Fatalf("expected counter reset, got %d", profile.FailedAttempts)
	}
}

func TestIsLockedWithoutProfile(t *testing.T) {
	env := newTestEnv(t)

	locked, err := env.lockout.IsLocked(context.Background(), env.account.ID)
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if locked {
		t.Fatal("an account without a profile cannot be locked")
	}
}
