package service

import (
	"context"
	"strings"

	"stepauth/internal/entity"
	"stepauth/internal/repository"
	"stepauth/internal/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EnrollmentService is the method registry: it drives the per-method setup
// state machine and owns the 2FA profile's configuration surface.
type EnrollmentService struct {
	accounts repository.AccountRepository
	profiles repository.TwoFactorProfileRepository
	pending  repository.PendingEnrollmentRepository
	codes    repository.OneTimeCodeRepository
	sessions repository.SessionRepository
	logs     repository.SecurityLogRepository

	challenge *ChallengeIssuer
	recovery  *RecoveryCodeManager
	devices   *TrustedDeviceLedger
	lockout   *LockoutGovernor
	totp      *TOTPProvider

	validate *validator.Validate
	clock    Clock
	config   Config
}

func NewEnrollmentService(
	accounts repository.AccountRepository,
	profiles repository.TwoFactorProfileRepository,
	pending repository.PendingEnrollmentRepository,
	codes repository.OneTimeCodeRepository,
	sessions repository.SessionRepository,
	logs repository.SecurityLogRepository,
	challenge *ChallengeIssuer,
	recovery *RecoveryCodeManager,
	devices *TrustedDeviceLedger,
	lockout *LockoutGovernor,
	totp *TOTPProvider,
	validate *validator.Validate,
	clock Clock,
	config Config,
) *EnrollmentService {
	return &EnrollmentService{
		accounts:  accounts,
		profiles:  profiles,
		pending:   pending,
		codes:     codes,
		sessions:  sessions,
		logs:      logs,
		challenge: challenge,
		recovery:  recovery,
		devices:   devices,
		lockout:   lockout,
		totp:      totp,
		validate:  validate,
		clock:     clock,
		config:    config,
	}
}

// StartSetup begins enrollment for a method, overwriting any in-progress
// setup for the same method. TOTP returns the secret and provisioning URI;
// sms/email dispatch a code to the validated destination.
func (s *EnrollmentService) StartSetup(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	destination string,
) (*SetupResult, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}

	if err := s.ensureProfile(ctx, accountID); err != nil {
		return nil, err
	}

	pending := &entity.PendingEnrollment{
		AccountID: accountID,
		Method:    method,
		ExpiresAt: s.clock.Now().Add(s.config.enrollmentTTL()),
		CreatedAt: s.clock.Now(),
	}

	if method == entity.MethodTOTP {
		secret, err := s.totp.GenerateSecret(account.Email)
		if err != nil {
			return nil, err
		}
		pending.TOTPSecret = &secret
		if err := s.pending.Upsert(ctx, pending); err != nil {
			return nil, err
		}
		return &SetupResult{
			Method:          method,
			Secret:          secret,
			ProvisioningURL: s.totp.ProvisioningURL(account.Email, secret),
		}, nil
	}

	normalized, err := s.checkDestination(method, destination)
	if err != nil {
		return nil, err
	}
	pending.Destination = &normalized
	if err := s.pending.Upsert(ctx, pending); err != nil {
		return nil, err
	}
	if err := s.challenge.Dispatch(ctx, accountID, method, entity.PurposeEnroll, normalized); err != nil {
		return nil, err
	}
	return &SetupResult{Method: method, Delivery: maskDestination(method, normalized)}, nil
}

// ResendSetupCode re-dispatches the enrollment code for an in-progress
// sms/email setup, subject to the dispatch cool-down.
func (s *EnrollmentService) ResendSetupCode(ctx context.Context, accountID uuid.UUID, method entity.Method) (*SetupResult, error) {
	if !method.RequiresDispatch() {
		return nil, ErrInvalidInput
	}
	pending, err := s.pending.FindActive(ctx, accountID, method, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if pending == nil || pending.Destination == nil {
		return nil, ErrEnrollmentExpired
	}
	if err := s.challenge.Dispatch(ctx, accountID, method, entity.PurposeEnroll, *pending.Destination); err != nil {
		return nil, err
	}
	return &SetupResult{Method: method, Delivery: maskDestination(method, *pending.Destination)}, nil
}

// ConfirmSetup validates the submitted code against the pending enrollment.
// Success configures the method, enables 2FA, and on the account's first-ever
// enrollment generates the initial recovery batch.
func (s *EnrollmentService) ConfirmSetup(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	code string,
) (*ConfirmResult, error) {
	pending, err := s.pending.FindActive(ctx, accountID, method, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if pending == nil {
		return nil, ErrEnrollmentExpired
	}
	if pending.Attempts >= s.config.enrollmentAttemptCap() {
		_ = s.pending.Delete(ctx, pending.ID)
		return nil, ErrEnrollmentExpired
	}

	if err := s.validatePendingCode(ctx, accountID, pending, code); err != nil {
		attempts, incrementErr := s.pending.IncrementAttempts(ctx, pending.ID)
		if incrementErr != nil {
			return nil, incrementErr
		}
		if attempts >= s.config.enrollmentAttemptCap() {
			_ = s.pending.Delete(ctx, pending.ID)
		}
		return nil, err
	}

	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		profile = &entity.TwoFactorProfile{AccountID: accountID}
	}

	profile.AddMethod(method)
	profile.Enabled = true
	if profile.PreferredMethod == "" {
		profile.PreferredMethod = method
	}
	switch method {
	case entity.MethodTOTP:
		profile.TOTPSecret = pending.TOTPSecret
	case entity.MethodSMS:
		profile.PhoneNumber = pending.Destination
	case entity.MethodEmail:
		profile.BackupEmail = pending.Destination
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.pending.Delete(ctx, pending.ID); err != nil {
		return nil, err
	}

	result := &ConfirmResult{}
	everIssued, err := s.recovery.HasEverIssued(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !everIssued {
		codes, err := s.recovery.GenerateBatch(ctx, accountID)
		if err != nil {
			return nil, err
		}
		result.RecoveryCodes = codes
	}

	_ = recordSecurity(ctx, s.logs, &accountID, nil, entity.MethodEnrolled, map[string]any{"method": method})
	return result, nil
}

// CancelSetup abandons an in-progress enrollment explicitly instead of
// waiting for it to expire.
func (s *EnrollmentService) CancelSetup(ctx context.Context, accountID uuid.UUID, method entity.Method) error {
	pending, err := s.pending.FindActive(ctx, accountID, method, s.clock.Now())
	if err != nil {
		return err
	}
	if pending == nil {
		return nil
	}
	return s.pending.Delete(ctx, pending.ID)
}

func (s *EnrollmentService) Status(ctx context.Context, accountID uuid.UUID) (*StatusResult, error) {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return &StatusResult{MaskedDestinations: map[entity.Method]string{}}, nil
	}

	remaining, err := s.recovery.Remaining(ctx, accountID)
	if err != nil {
		return nil, err
	}

	masked := make(map[entity.Method]string)
	if profile.HasMethod(entity.MethodSMS) && profile.PhoneNumber != nil {
		masked[entity.MethodSMS] = utils.MaskPhone(*profile.PhoneNumber)
	}
	if profile.HasMethod(entity.MethodEmail) && profile.BackupEmail != nil {
		masked[entity.MethodEmail] = utils.MaskEmail(*profile.BackupEmail)
	}

	return &StatusResult{
		Enabled:                profile.Enabled,
		PreferredMethod:        profile.PreferredMethod,
		ConfiguredMethods:      profile.ConfiguredMethods,
		MaskedDestinations:     masked,
		RecoveryCodesRemaining: remaining,
	}, nil
}

func (s *EnrollmentService) SetPreferredMethod(ctx context.Context, accountID uuid.UUID, method entity.Method) error {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return err
	}
	if profile == nil || !profile.HasMethod(method) {
		return ErrMethodNotConfigured
	}
	profile.PreferredMethod = method
	return s.profiles.Save(ctx, profile)
}

// RemoveMethod drops a configured method. Removing the preferred method
// while others remain requires a replacement in the same call; removing the
// last method disables 2FA without revoking recovery codes or trusted
// devices.
func (s *EnrollmentService) RemoveMethod(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	replacement entity.Method,
) (*RemoveResult, error) {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil || !profile.HasMethod(method) {
		return nil, ErrMethodNotConfigured
	}

	lastMethod := len(profile.ConfiguredMethods) == 1
	if !lastMethod && profile.PreferredMethod == method {
		if replacement == "" || replacement == method || !profile.HasMethod(replacement) {
			return nil, ErrPreferredMethodRequired
		}
		profile.PreferredMethod = replacement
	}

	profile.DropMethod(method)
	switch method {
	case entity.MethodTOTP:
		profile.TOTPSecret = nil
	case entity.MethodSMS:
		profile.PhoneNumber = nil
	case entity.MethodEmail:
		profile.BackupEmail = nil
	}
	if lastMethod {
		profile.Enabled = false
		profile.PreferredMethod = ""
		profile.FailedAttempts = 0
		profile.LockedUntil = nil
	}
	if err := s.profiles.Save(ctx, profile); err != nil {
		return nil, err
	}

	_ = recordSecurity(ctx, s.logs, &accountID, nil, entity.MethodRemoved, map[string]any{
		"method":       method,
		"now_disabled": !profile.Enabled,
	})
	return &RemoveResult{Removed: true, NowDisabled: !profile.Enabled}, nil
}

// RequestDisable starts the disable flow by dispatching a confirmation code
// to the preferred method. TOTP needs no dispatch; the authenticator code is
// submitted directly.
func (s *EnrollmentService) RequestDisable(ctx context.Context, accountID uuid.UUID) (*SetupResult, error) {
	profile, err := s.enabledProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.rejectLocked(ctx, accountID); err != nil {
		return nil, err
	}

	method := profile.PreferredMethod
	if !method.RequiresDispatch() {
		return &SetupResult{Method: method}, nil
	}
	destination, err := profileDestination(profile, method)
	if err != nil {
		return nil, err
	}
	if err := s.challenge.Dispatch(ctx, accountID, method, entity.PurposeDisable, destination); err != nil {
		return nil, err
	}
	return &SetupResult{Method: method, Delivery: maskDestination(method, destination)}, nil
}

// Disable confirms the code and tears 2FA down entirely: configuration,
// pending state, dispatched codes, recovery codes, and trusted devices all
// go, and every session but the current one is revoked. Locked accounts are
// rejected before the code is even looked at.
func (s *EnrollmentService) Disable(ctx context.Context, accountID uuid.UUID, sessionID uuid.UUID, code string) error {
	profile, err := s.enabledProfile(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.rejectLocked(ctx, accountID); err != nil {
		return err
	}

	method := profile.PreferredMethod
	secret := ""
	if profile.TOTPSecret != nil {
		secret = *profile.TOTPSecret
	}
	if err := s.challenge.Validate(ctx, accountID, method, entity.PurposeDisable, secret, code); err != nil {
		if s.lockout != nil {
			_, _ = s.lockout.RecordFailure(ctx, accountID)
		}
		return err
	}

	profile.Enabled = false
	profile.PreferredMethod = ""
	profile.ConfiguredMethods = nil
	profile.TOTPSecret = nil
	profile.PhoneNumber = nil
	profile.BackupEmail = nil
	profile.FailedAttempts = 0
	profile.LockedUntil = nil
	if err := s.profiles.Save(ctx, profile); err != nil {
		return err
	}

	if err := s.pending.DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.codes.DeleteByAccount(ctx, accountID); err != nil {
		return err
	}
	if err := s.recovery.Purge(ctx, accountID); err != nil {
		return err
	}
	if err := s.devices.RevokeAll(ctx, accountID); err != nil {
		return err
	}
	if s.sessions != nil {
		_ = s.sessions.RevokeOthers(ctx, accountID, sessionID)
	}

	_ = recordSecurity(ctx, s.logs, &accountID, nil, entity.TwoFactorDisabled, nil)
	return nil
}

// RegenerateRecoveryCodes replaces the batch and returns the new plaintext
// codes exactly once.
func (s *EnrollmentService) RegenerateRecoveryCodes(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	if _, err := s.enabledProfile(ctx, accountID); err != nil {
		return nil, err
	}
	codes, err := s.recovery.GenerateBatch(ctx, accountID)
	if err != nil {
		return nil, err
	}
	_ = recordSecurity(ctx, s.logs, &accountID, nil, entity.RecoveryRegenerate, nil)
	return codes, nil
}

func (s *EnrollmentService) ListTrustedDevices(ctx context.Context, accountID uuid.UUID) ([]entity.TrustedDevice, error) {
	return s.devices.List(ctx, accountID)
}

func (s *EnrollmentService) RevokeTrustedDevice(ctx context.Context, accountID uuid.UUID, id uuid.UUID) (bool, error) {
	removed, err := s.devices.Revoke(ctx, accountID, id)
	if err != nil {
		return false, err
	}
	if removed {
		_ = recordSecurity(ctx, s.logs, &accountID, nil, entity.DeviceRevoked, map[string]any{"trusted_device_id": id})
	}
	return removed, nil
}

func (s *EnrollmentService) validatePendingCode(
	ctx context.Context,
	accountID uuid.UUID,
	pending *entity.PendingEnrollment,
	code string,
) error {
	if pending.Method == entity.MethodTOTP {
		if pending.TOTPSecret == nil || !s.totp.ValidateCode(*pending.TOTPSecret, utils.NormalizeCode(code)) {
			return ErrCodeMismatch
		}
		return nil
	}
	return s.challenge.Validate(ctx, accountID, pending.Method, entity.PurposeEnroll, "", code)
}

func (s *EnrollmentService) checkDestination(method entity.Method, destination string) (string, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return "", ErrInvalidDestination
	}
	switch method {
	case entity.MethodSMS:
		if err := s.validate.Var(destination, "e164"); err != nil {
			return "", ErrInvalidDestination
		}
		return destination, nil
	case entity.MethodEmail:
		normalized := utils.NormalizeEmail(destination)
		if err := s.validate.Var(normalized, "email"); err != nil {
			return "", ErrInvalidDestination
		}
		return normalized, nil
	}
	return "", ErrInvalidDestination
}

func (s *EnrollmentService) ensureProfile(ctx context.Context, accountID uuid.UUID) error {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return err
	}
	if profile != nil {
		return nil
	}
	// Upsert, not Save: two concurrent first setups must not race on the
	// unique account index.
	return s.profiles.Upsert(ctx, &entity.TwoFactorProfile{AccountID: accountID})
}

func (s *EnrollmentService) rejectLocked(ctx context.Context, accountID uuid.UUID) error {
	if s.lockout == nil {
		return nil
	}
	locked, err := s.lockout.IsLocked(ctx, accountID)
	if err != nil {
		return err
	}
	if locked {
		return ErrLockedOut
	}
	return nil
}

func (s *EnrollmentService) enabledProfile(ctx context.Context, accountID uuid.UUID) (*entity.TwoFactorProfile, error) {
	profile, err := s.profiles.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if profile == nil || !profile.Enabled {
		return nil, ErrMethodNotConfigured
	}
	return profile, nil
}

func profileDestination(profile *entity.TwoFactorProfile, method entity.Method) (string, error) {
	switch method {
	case entity.MethodSMS:
		if profile.PhoneNumber != nil {
			return *profile.PhoneNumber, nil
		}
	case entity.MethodEmail:
		if profile.BackupEmail != nil {
			return *profile.BackupEmail, nil
		}
	}
	return "", ErrMethodNotConfigured
}

func maskDestination(method entity.Method, destination string) string {
	if method == entity.MethodSMS {
		return utils.MaskPhone(destination)
	}
	return utils.MaskEmail(destination)
}
