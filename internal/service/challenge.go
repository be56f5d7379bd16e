package service

import (
	"context"
	"sync"
	"time"

	"stepauth/internal/entity"
	"stepauth/internal/repository"
	"stepauth/internal/utils"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ChallengeIssuer generates and checks one-time codes. TOTP validation is
// purely local against the stored secret; sms and email codes are dispatched
// through the delivery collaborators and only their salted hashes are kept.
type ChallengeIssuer struct {
	codes  repository.OneTimeCodeRepository
	email  EmailSender
	sms    SMSSender
	totp   *TOTPProvider
	hasher Hasher
	clock  Clock
	config Config

	mutex    sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
}

func NewChallengeIssuer(
	codes repository.OneTimeCodeRepository,
	email EmailSender,
	sms SMSSender,
	totp *TOTPProvider,
	hasher Hasher,
	clock Clock,
	config Config,
) *ChallengeIssuer {
	return &ChallengeIssuer{
		codes:    codes,
		email:    email,
		sms:      sms,
		totp:     totp,
		hasher:   hasher,
		clock:    clock,
		config:   config,
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
	}
}

// Dispatch generates a fresh numeric code for the destination, stores its
// hash, and hands the plaintext to the delivery channel. The previous
// outstanding code for the same (account, method, purpose) is invalidated.
// Dispatches are rate-limited per account and method; delivery failures are
// reported as ErrDeliveryFailed so callers can distinguish them from
// validation failures and retry.
func (i *ChallengeIssuer) Dispatch(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	purpose entity.CodePurpose,
	destination string,
) error {
	if !method.RequiresDispatch() {
		return nil
	}
	if !i.allowDispatch(accountID, method) {
		return ErrRateLimited
	}

	plaintext, err := utils.GenerateNumericCode(i.config.codeDigits())
	if err != nil {
		return err
	}
	hash, err := i.hasher.Hash(plaintext)
	if err != nil {
		return err
	}

	code := &entity.OneTimeCode{
		AccountID: accountID,
		Method:    method,
		Purpose:   purpose,
		CodeHash:  hash,
		ExpiresAt: i.clock.Now().Add(i.config.codeTTL()),
	}
	if err := i.codes.Replace(ctx, code); err != nil {
		return err
	}

	if err := i.deliver(ctx, method, destination, plaintext); err != nil {
		return ErrDeliveryFailed
	}
	return nil
}

// Validate checks a submitted code. For totp the secret comes from the
// caller; for sms/email the outstanding dispatched code is compared and
// consumed atomically on match.
func (i *ChallengeIssuer) Validate(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	purpose entity.CodePurpose,
	totpSecret string,
	submitted string,
) error {
	submitted = utils.NormalizeCode(submitted)
	if submitted == "" {
		return ErrCodeMismatch
	}

	if method == entity.MethodTOTP {
		if !i.totp.ValidateCode(totpSecret, submitted) {
			return ErrCodeMismatch
		}
		return nil
	}

	code, err := i.codes.FindLatest(ctx, accountID, method, purpose)
	if err != nil {
		return err
	}
	if code == nil {
		return ErrCodeExpired
	}
	if code.UsedAt != nil {
		return ErrCodeAlreadyUsed
	}
	if i.clock.Now().After(code.ExpiresAt) {
		return ErrCodeExpired
	}
	if !i.hasher.Verify(code.CodeHash, submitted) {
		return ErrCodeMismatch
	}

	used, err := i.codes.MarkUsed(ctx, code.ID, i.clock.Now())
	if err != nil {
		return err
	}
	if !used {
		return ErrCodeAlreadyUsed
	}
	return nil
}

func (i *ChallengeIssuer) deliver(ctx context.Context, method entity.Method, destination string, code string) error {
	switch method {
	case entity.MethodSMS:
		if i.sms == nil {
			return ErrDeliveryFailed
		}
		return i.sms.SendCode(ctx, destination, code)
	case entity.MethodEmail:
		if i.email == nil {
			return ErrDeliveryFailed
		}
		return i.email.SendCode(ctx, destination, code)
	}
	return nil
}

// allowDispatch enforces the per-account+method cool-down between sends.
func (i *ChallengeIssuer) allowDispatch(accountID uuid.UUID, method entity.Method) bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	now := time.Now()
	key := accountID.String() + ":" + string(method)
	limiter, ok := i.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(i.config.dispatchCooldown()), 1)
		i.limiters[key] = limiter
		i.sweep(now)
	}
	i.lastSeen[key] = now
	return limiter.Allow()
}

// sweep drops limiters idle for longer than the cool-down: their token has
// fully refilled, so evicting them cannot admit an early dispatch.
func (i *ChallengeIssuer) sweep(now time.Time) {
	cutoff := now.Add(-i.config.dispatchCooldown())
	for key, last := range i.lastSeen {
		if last.Before(cutoff) {
			delete(i.lastSeen, key)
			delete(i.limiters, key)
		}
	}
}
