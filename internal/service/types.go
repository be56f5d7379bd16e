package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Issuer string

	PartialTokenTTL      time.Duration
	EnrollmentTTL        time.Duration
	EnrollmentAttemptCap int
	CodeTTL              time.Duration
	CodeDigits           int
	DispatchCooldown     time.Duration
	RecoveryBatchSize    int
	TrustedDeviceTTL     time.Duration
	LockoutThreshold     int
	LockoutWindow        time.Duration
	AccessTokenTTL       time.Duration
	RefreshTokenTTL      time.Duration
}

func (c Config) partialTokenTTL() time.Duration {
	if c.PartialTokenTTL > 0 {
		return c.PartialTokenTTL
	}
	return 5 * time.Minute
}

func (c Config) enrollmentTTL() time.Duration {
	if c.EnrollmentTTL > 0 {
		return c.EnrollmentTTL
	}
	return 10 * time.Minute
}

func (c Config) enrollmentAttemptCap() int {
	if c.EnrollmentAttemptCap > 0 {
		return c.EnrollmentAttemptCap
	}
	return 5
}

func (c Config) codeTTL() time.Duration {
	if c.CodeTTL > 0 {
		return c.CodeTTL
	}
	return 5 * time.Minute
}

func (c Config) codeDigits() int {
	if c.CodeDigits > 0 {
		return c.CodeDigits
	}
	return 6
}

func (c Config) dispatchCooldown() time.Duration {
	if c.DispatchCooldown > 0 {
		return c.DispatchCooldown
	}
	return time.Minute
}

func (c Config) recoveryBatchSize() int {
	if c.RecoveryBatchSize > 0 {
		return c.RecoveryBatchSize
	}
	return 10
}

func (c Config) trustedDeviceTTL() time.Duration {
	if c.TrustedDeviceTTL > 0 {
		return c.TrustedDeviceTTL
	}
	return 30 * 24 * time.Hour
}

func (c Config) lockoutThreshold() int {
	if c.LockoutThreshold > 0 {
		return c.LockoutThreshold
	}
	return 5
}

// Lockout uses a fixed window: crossing the threshold locks the account for
// the full window, and the counter resets on the first attempt after it
// lapses.
func (c Config) lockoutWindow() time.Duration {
	if c.LockoutWindow > 0 {
		return c.LockoutWindow
	}
	return 15 * time.Minute
}

func (c Config) accessTokenTTL() time.Duration {
	if c.AccessTokenTTL > 0 {
		return c.AccessTokenTTL
	}
	return 15 * time.Minute
}

func (c Config) refreshTokenTTL() time.Duration {
	if c.RefreshTokenTTL > 0 {
		return c.RefreshTokenTTL
	}
	return 30 * 24 * time.Hour
}

type EmailSender interface {
	SendCode(ctx context.Context, email string, code string) error
}

type SMSSender interface {
	SendCode(ctx context.Context, phoneNumber string, code string) error
}

// Hasher covers both password verification and salted one-time-code storage.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash string, plain string) bool
}

type AccessTokenIssuer interface {
	IssueAccessToken(accountID string, sessionID string) (string, time.Duration, error)
}

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func (h BcryptHasher) Verify(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
