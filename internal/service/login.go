package service

import (
	"context"
	"strings"
	"time"

	"stepauth/internal/entity"
	"stepauth/internal/repository"
	"stepauth/internal/utils"

	"github.com/google/uuid"
)

// Constant-cost comparison target for unknown accounts.
const dummyPasswordHash = "$2a$10$CwTycUXWue0Thq9StjUM0uJ8yQbWc1x9uxw2sQ2sXUNx5x9xJ9F2S"

// LoginService owns the step-up control flow: primary credential check,
// partial-session token issuance, and redemption of a token plus proof for a
// full session.
type LoginService struct {
	accounts repository.AccountRepository
	profiles repository.TwoFactorProfileRepository
	sessions repository.SessionRepository
	logs     repository.SecurityLogRepository

	partialTokens *PartialTokenService
	challenge     *ChallengeIssuer
	recovery      *RecoveryCodeManager
	devices       *TrustedDeviceLedger
	lockout       *LockoutGovernor

	passwordHash Hasher
	accessTokens AccessTokenIssuer
	clock        Clock
	config       Config
}

func NewLoginService(
	accounts repository.AccountRepository,
	profiles repository.TwoFactorProfileRepository,
	sessions repository.SessionRepository,
	logs repository.SecurityLogRepository,
	partialTokens *PartialTokenService,
	challenge *ChallengeIssuer,
	recovery *RecoveryCodeManager,
	devices *TrustedDeviceLedger,
	lockout *LockoutGovernor,
	passwordHash Hasher,
	accessTokens AccessTokenIssuer,
	clock Clock,
	config Config,
) *LoginService {
	return &LoginService{
		accounts:      accounts,
		profiles:      profiles,
		sessions:      sessions,
		logs:          logs,
		partialTokens: partialTokens,
		challenge:     challenge,
		recovery:      recovery,
		devices:       devices,
		lockout:       lockout,
		passwordHash:  passwordHash,
		accessTokens:  accessTokens,
		clock:         clock,
		config:        config,
	}
}

// Login verifies the primary credential. When 2FA is enabled the flow
// suspends: a partial-session token is issued instead of a session, unless
// the account is locked out.
func (s *LoginService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if strings.TrimSpace(input.Email) == "" || strings.TrimSpace(input.Password) == "" || strings.TrimSpace(input.DeviceID) == "" {
		return nil, ErrInvalidInput
	}

	email := utils.NormalizeEmail(input.Email)
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account == nil || account.PasswordHash == nil {
		_ = s.passwordHash.Verify(dummyPasswordHash, input.Password)
		_ = recordSecurity(ctx, s.logs, nil, input.IPAddress, entity.LoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}
	if !s.passwordHash.Verify(*account.PasswordHash, input.Password) {
		_ = recordSecurity(ctx, s.logs, &account.ID, input.IPAddress, entity.LoginFailed, map[string]any{"email": email})
		return nil, ErrInvalidCredentials
	}
	if account.EmailVerifiedAt == nil {
		return nil, ErrEmailNotVerified
	}

	profile, err := s.profiles.FindByAccountID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if profile != nil && profile.Enabled {
		locked, err := s.lockout.IsLocked(ctx, account.ID)
		if err != nil {
			return nil, err
		}
		if locked {
			return nil, ErrLockedOut
		}

		raw, token, err := s.partialTokens.Issue(ctx, profile)
		if err != nil {
			return nil, err
		}
		_ = recordSecurity(ctx, s.logs, &account.ID, input.IPAddress, entity.StepUpRequired, map[string]any{"device_id": input.DeviceID})
		return &LoginResult{
			TwoFactorRequired:     true,
			PartialToken:          raw,
			PartialTokenExpiresIn: int64(token.ExpiresAt.Sub(s.clock.Now()).Seconds()),
			AllowedMethods:        token.AllowedMethods,
		}, nil
	}

	result, err := s.createSessionAndTokens(ctx, account.ID, input.DeviceID, input.DeviceName, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}
	_ = recordSecurity(ctx, s.logs, &account.ID, input.IPAddress, entity.LoginSuccess, map[string]any{"device_id": input.DeviceID})
	return &LoginResult{
		AccessToken:      result.AccessToken,
		ExpiresIn:        result.ExpiresIn,
		RefreshToken:     result.RefreshToken,
		RefreshExpiresIn: result.RefreshExpiresIn,
	}, nil
}

// RequestChallenge dispatches a login code for a dispatched method to the
// destination on file. It doubles as the resend operation and shares the
// per-account cool-down.
func (s *LoginService) RequestChallenge(ctx context.Context, rawToken string, methodValue string) (string, error) {
	token, err := s.partialTokens.Resolve(ctx, rawToken)
	if err != nil {
		return "", err
	}

	locked, err := s.lockout.IsLocked(ctx, token.AccountID)
	if err != nil {
		return "", err
	}
	if locked {
		return "", ErrLockedOut
	}

	method, ok := entity.ParseMethod(methodValue)
	if !ok || !method.RequiresDispatch() || !token.Allows(string(method)) {
		return "", ErrMethodNotConfigured
	}

	profile, err := s.profiles.FindByAccountID(ctx, token.AccountID)
	if err != nil {
		return "", err
	}
	if profile == nil || !profile.HasMethod(method) {
		return "", ErrMethodNotConfigured
	}
	destination, err := profileDestination(profile, method)
	if err != nil {
		return "", err
	}
	if err := s.challenge.Dispatch(ctx, token.AccountID, method, entity.PurposeLogin, destination); err != nil {
		return "", err
	}
	return maskDestination(method, destination), nil
}

// Verify redeems a partial-session token with a code, a recovery code, or a
// trusted-device assertion. Redemption is single-use: the consumed mark is a
// compare-and-swap, so concurrent redemptions succeed at most once. A failed
// proof leaves the token live for retry, except the failure that trips the
// lockout threshold, which consumes it.
func (s *LoginService) Verify(ctx context.Context, input VerifyInput) (*VerifyResult, error) {
	if strings.TrimSpace(input.DeviceID) == "" {
		return nil, ErrInvalidInput
	}

	token, err := s.partialTokens.Resolve(ctx, input.PartialToken)
	if err != nil {
		return nil, err
	}

	locked, err := s.lockout.IsLocked(ctx, token.AccountID)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ErrLockedOut
	}

	profile, err := s.profiles.FindByAccountID(ctx, token.AccountID)
	if err != nil {
		return nil, err
	}
	if profile == nil || !profile.Enabled {
		return nil, ErrMethodNotConfigured
	}

	usedRecovery := false
	switch {
	case strings.TrimSpace(input.RecoveryCode) != "":
		if !token.Allows(entity.ProofRecovery) {
			return nil, ErrMethodNotConfigured
		}
		if err := s.recovery.Consume(ctx, token.AccountID, input.RecoveryCode); err != nil {
			return nil, s.failVerification(ctx, token, input, err)
		}
		usedRecovery = true

	case strings.TrimSpace(input.Code) != "":
		method, err := s.resolveMethod(profile, token, input.Method)
		if err != nil {
			return nil, err
		}
		secret := ""
		if profile.TOTPSecret != nil {
			secret = *profile.TOTPSecret
		}
		if err := s.challenge.Validate(ctx, token.AccountID, method, entity.PurposeLogin, secret, input.Code); err != nil {
			return nil, s.failVerification(ctx, token, input, err)
		}

	default:
		// No proof supplied: only a trusted device may pass. A miss is not
		// a guess, so it never feeds the lockout counter.
		trusted, err := s.devices.TryBypass(ctx, token.AccountID, input.DeviceID)
		if err != nil {
			return nil, err
		}
		if !trusted {
			return nil, ErrInvalidInput
		}
	}

	consumed, err := s.partialTokens.Consume(ctx, token)
	if err != nil {
		return nil, err
	}
	if !consumed {
		return nil, ErrTokenAlreadyUsed
	}
	if err := s.lockout.RecordSuccess(ctx, token.AccountID); err != nil {
		return nil, err
	}

	trustedSet := false
	if input.RememberDevice && !usedRecovery && strings.TrimSpace(input.DeviceID) != "" {
		if err := s.devices.Trust(ctx, token.AccountID, input.DeviceID, input.DeviceName); err == nil {
			trustedSet = true
			_ = recordSecurity(ctx, s.logs, &token.AccountID, input.IPAddress, entity.DeviceTrusted, map[string]any{"device_id": input.DeviceID})
		}
	}

	session, err := s.createSessionAndTokens(ctx, token.AccountID, input.DeviceID, input.DeviceName, input.IPAddress, input.UserAgent)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		AccessToken:      session.AccessToken,
		ExpiresIn:        session.ExpiresIn,
		RefreshToken:     session.RefreshToken,
		RefreshExpiresIn: session.RefreshExpiresIn,
		TrustedDeviceSet: trustedSet,
	}
	if usedRecovery {
		// The code is spent regardless of whether the remaining count can be
		// read; only the count itself is best-effort.
		result.RecoveryCodeUsed = true
		metadata := map[string]any{}
		if remaining, err := s.recovery.Remaining(ctx, token.AccountID); err == nil {
			result.RecoveryCodesRemaining = remaining
			metadata["remaining"] = remaining
		}
		_ = recordSecurity(ctx, s.logs, &token.AccountID, input.IPAddress, entity.RecoveryCodeUsed, metadata)
	}
	_ = recordSecurity(ctx, s.logs, &token.AccountID, input.IPAddress, entity.StepUpSuccess, map[string]any{"device_id": input.DeviceID})
	return result, nil
}

// failVerification records the failure and decides what the caller sees:
// the proof error while retries remain, or a uniform lockout error on the
// attempt that locks the account, which also consumes the token.
func (s *LoginService) failVerification(
	ctx context.Context,
	token *entity.PartialSessionToken,
	input VerifyInput,
	cause error,
) error {
	_ = recordSecurity(ctx, s.logs, &token.AccountID, input.IPAddress, entity.StepUpFailed, map[string]any{"device_id": input.DeviceID})

	lockedNow, err := s.lockout.RecordFailure(ctx, token.AccountID)
	if err != nil {
		return err
	}
	if lockedNow {
		_, _ = s.partialTokens.Consume(ctx, token)
		return ErrLockedOut
	}
	return cause
}

func (s *LoginService) resolveMethod(
	profile *entity.TwoFactorProfile,
	token *entity.PartialSessionToken,
	methodValue string,
) (entity.Method, error) {
	if strings.TrimSpace(methodValue) == "" {
		if profile.PreferredMethod == "" {
			return "", ErrMethodNotConfigured
		}
		return profile.PreferredMethod, nil
	}
	method, ok := entity.ParseMethod(methodValue)
	if !ok || !token.Allows(string(method)) || !profile.HasMethod(method) {
		return "", ErrMethodNotConfigured
	}
	return method, nil
}

type sessionTokens struct {
	AccessToken      string
	ExpiresIn        int64
	RefreshToken     string
	RefreshExpiresIn int64
}

func (s *LoginService) createSessionAndTokens(
	ctx context.Context,
	accountID uuid.UUID,
	deviceID string,
	deviceName string,
	ipAddress *string,
	userAgent *string,
) (*sessionTokens, error) {
	refreshToken, refreshHash, refreshExpiry, err := s.buildRefreshToken()
	if err != nil {
		return nil, err
	}

	session := &entity.Session{
		AccountID:  accountID,
		TokenHash:  refreshHash,
		DeviceID:   deviceID,
		DeviceName: deviceName,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		ExpiresAt:  refreshExpiry,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	accessToken, expiresIn, err := s.accessTokens.IssueAccessToken(accountID.String(), session.ID.String())
	if err != nil {
		return nil, err
	}

	return &sessionTokens{
		AccessToken:      accessToken,
		ExpiresIn:        int64(expiresIn.Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresIn: int64(refreshExpiry.Sub(s.clock.Now()).Seconds()),
	}, nil
}

func (s *LoginService) buildRefreshToken() (string, string, time.Time, error) {
	rawToken, err := utils.GenerateRandomToken(48)
	if err != nil {
		return "", "", time.Time{}, err
	}
	expiresAt := s.clock.Now().Add(s.config.refreshTokenTTL())
	return rawToken, utils.HashToken(rawToken), expiresAt, nil
}
