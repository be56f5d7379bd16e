package service

import (
	"context"
	"testing"
	"time"

	"stepauth/internal/entity"

	"github.com/go-playground/validator/v10"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"
)

const (
	testEmail    = "dana@example.com"
	testPassword = "sw0rdfish-42"
	testPhone    = "+15550001111"
	testDeviceID = "device-alpha"
)

// testEnv wires the full service graph against in-memory repositories. The
// dispatch cool-down is collapsed to a nanosecond so flows that send several
// codes in a row do not trip it; the rate-limit tests build their own issuer.
type testEnv struct {
	clock    *fakeClock
	accounts *fakeAccountRepo
	profiles *fakeProfileRepo
	pending  *fakePendingRepo
	tokens   *fakeTokenRepo
	codes    *fakeCodeRepo
	recovery *fakeRecoveryRepo
	devices  *fakeDeviceRepo
	sessions *fakeSessionRepo
	logs     *fakeLogRepo
	email    *fakeEmailSender
	sms      *fakeSMSSender

	config        Config
	totp          *TOTPProvider
	challenge     *ChallengeIssuer
	recoveryMgr   *RecoveryCodeManager
	deviceLedger  *TrustedDeviceLedger
	lockout       *LockoutGovernor
	partialTokens *PartialTokenService
	enrollment    *EnrollmentService
	login         *LoginService

	account *entity.Account
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		clock:    newFakeClock(),
		accounts: newFakeAccountRepo(),
		profiles: newFakeProfileRepo(),
		pending:  newFakePendingRepo(),
		tokens:   newFakeTokenRepo(),
		codes:    newFakeCodeRepo(),
		recovery: newFakeRecoveryRepo(),
		devices:  newFakeDeviceRepo(),
		sessions: newFakeSessionRepo(),
		logs:     newFakeLogRepo(),
		email:    &fakeEmailSender{},
		sms:      &fakeSMSSender{},
	}
	env.config = Config{DispatchCooldown: time.Nanosecond}

	hasher := BcryptHasher{Cost: bcrypt.MinCost}
	env.totp = NewTOTPProvider("StepAuth", env.clock)
	env.challenge = NewChallengeIssuer(env.codes, env.email, env.sms, env.totp, hasher, env.clock, env.config)
	env.recoveryMgr = NewRecoveryCodeManager(env.recovery, hasher, env.clock, env.config)
	env.deviceLedger = NewTrustedDeviceLedger(env.devices, env.clock, env.config)
	env.lockout = NewLockoutGovernor(env.profiles, env.logs, env.clock, env.config)
	env.partialTokens = NewPartialTokenService(env.tokens, env.clock, env.config)

	validate := validator.New()
	env.enrollment = NewEnrollmentService(
		env.accounts, env.profiles, env.pending, env.codes, env.sessions, env.logs,
		env.challenge, env.recoveryMgr, env.deviceLedger, env.lockout, env.totp,
		validate, env.clock, env.config,
	)
	env.login = NewLoginService(
		env.accounts, env.profiles, env.sessions, env.logs,
		env.partialTokens, env.challenge, env.recoveryMgr, env.deviceLedger, env.lockout,
		hasher, stubAccessIssuer{}, env.clock, env.config,
	)

	passwordHash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	verifiedAt := env.clock.Now().Add(-24 * time.Hour)
	env.account = &entity.Account{
		Email:           testEmail,
		PasswordHash:    &passwordHash,
		EmailVerifiedAt: &verifiedAt,
		IsActive:        true,
	}
	env.accounts.add(env.account)
	return env
}

// enrollTOTP runs the full totp setup flow and returns the shared secret and
// the recovery codes issued on first enrollment.
func (env *testEnv) enrollTOTP(t *testing.T) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := env.enrollment.StartSetup(ctx, env.account.ID, entity.MethodTOTP, "")
	if err != nil {
		t.Fatalf("start totp setup: %v", err)
	}
	code, err := totp.GenerateCode(setup.Secret, env.clock.Now())
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	confirm, err := env.enrollment.ConfirmSetup(ctx, env.account.ID, entity.MethodTOTP, code)
	if err != nil {
		t.Fatalf("confirm totp setup: %v", err)
	}
	return setup.Secret, confirm.RecoveryCodes
}

// enrollSMS enrolls the sms method using the code captured from the fake
// gateway.
func (env *testEnv) enrollSMS(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	if _, err := env.enrollment.StartSetup(ctx, env.account.ID, entity.MethodSMS, testPhone); err != nil {
		t.Fatalf("start sms setup: %v", err)
	}
	if _, err := env.enrollment.ConfirmSetup(ctx, env.account.ID, entity.MethodSMS, env.sms.lastCode); err != nil {
		t.Fatalf("confirm sms setup: %v", err)
	}
}

// loginForToken performs a primary-credential login and returns the partial
// token the step-up flow hands back.
func (env *testEnv) loginForToken(t *testing.T) string {
	t.Helper()

	result, err := env.login.Login(context.Background(), LoginInput{
		Email:    testEmail,
		Password: testPassword,
		DeviceID: testDeviceID,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !result.TwoFactorRequired {
		t.Fatal("expected step-up to be required")
	}
	return result.PartialToken
}

func (env *testEnv) totpCode(t *testing.T, secret string) string {
	t.Helper()
	return env.totpCodeAt(t, secret, env.clock.Now())
}

func (env *testEnv) totpCodeAt(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, at)
	if err != nil {
		t.Fatalf("generate totp code: %v", err)
	}
	return code
}
