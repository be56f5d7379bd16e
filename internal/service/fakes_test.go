package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*entity.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[uuid.UUID]*entity.Account)}
}

func (r *fakeAccountRepo) add(account *entity.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	r.accounts[account.ID] = account
}

func (r *fakeAccountRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok || !account.IsActive {
		return nil, nil
	}
	copied := *account
	return &copied, nil
}

func (r *fakeAccountRepo) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email && account.IsActive {
			copied := *account
			return &copied, nil
		}
	}
	return nil, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*entity.TwoFactorProfile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]*entity.TwoFactorProfile)}
}

func copyProfile(p *entity.TwoFactorProfile) *entity.TwoFactorProfile {
	copied := *p
	copied.ConfiguredMethods = append(datatypes.JSONSlice[entity.Method]{}, p.ConfiguredMethods...)
	return &copied
}

func (r *fakeProfileRepo) FindByAccountID(_ context.Context, accountID uuid.UUID) (*entity.TwoFactorProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[accountID]
	if !ok {
		return nil, nil
	}
	return copyProfile(profile), nil
}

func (r *fakeProfileRepo) Upsert(ctx context.Context, profile *entity.TwoFactorProfile) error {
	return r.Save(ctx, profile)
}

func (r *fakeProfileRepo) Save(_ context.Context, profile *entity.TwoFactorProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	r.profiles[profile.AccountID] = copyProfile(profile)
	return nil
}

func (r *fakeProfileRepo) IncrementFailures(_ context.Context, accountID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[accountID]
	if !ok {
		return 0, errors.New("profile not found")
	}
	profile.FailedAttempts++
	return profile.FailedAttempts, nil
}

func (r *fakeProfileRepo) Lock(_ context.Context, accountID uuid.UUID, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.profiles[accountID]; ok {
		lockedUntil := until
		profile.LockedUntil = &lockedUntil
	}
	return nil
}

func (r *fakeProfileRepo) ResetFailures(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if profile, ok := r.profiles[accountID]; ok {
		profile.FailedAttempts = 0
		profile.LockedUntil = nil
	}
	return nil
}

type fakePendingRepo struct {
	mu      sync.Mutex
	pending map[string]*entity.PendingEnrollment
}

func newFakePendingRepo() *fakePendingRepo {
	return &fakePendingRepo{pending: make(map[string]*entity.PendingEnrollment)}
}

func pendingKey(accountID uuid.UUID, method entity.Method) string {
	return accountID.String() + ":" + string(method)
}

func (r *fakePendingRepo) Upsert(_ context.Context, pending *entity.PendingEnrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pending.ID == uuid.Nil {
		pending.ID = uuid.New()
	}
	copied := *pending
	r.pending[pendingKey(pending.AccountID, pending.Method)] = &copied
	return nil
}

func (r *fakePendingRepo) FindActive(
	_ context.Context,
	accountID uuid.UUID,
	method entity.Method,
	now time.Time,
) (*entity.PendingEnrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending, ok := r.pending[pendingKey(accountID, method)]
	if !ok || !pending.ExpiresAt.After(now) {
		return nil, nil
	}
	copied := *pending
	return &copied, nil
}

func (r *fakePendingRepo) IncrementAttempts(_ context.Context, id uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pending := range r.pending {
		if pending.ID == id {
			pending.Attempts++
			return pending.Attempts, nil
		}
	}
	return 0, errors.New("pending enrollment not found")
}

func (r *fakePendingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, pending := range r.pending {
		if pending.ID == id {
			delete(r.pending, key)
		}
	}
	return nil
}

func (r *fakePendingRepo) DeleteByAccount(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, pending := range r.pending {
		if pending.AccountID == accountID {
			delete(r.pending, key)
		}
	}
	return nil
}

type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]*entity.PartialSessionToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*entity.PartialSessionToken)}
}

func (r *fakeTokenRepo) Create(_ context.Context, token *entity.PartialSessionToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	copied := *token
	copied.AllowedMethods = append(datatypes.JSONSlice[string]{}, token.AllowedMethods...)
	r.tokens[token.TokenHash] = &copied
	return nil
}

func (r *fakeTokenRepo) FindByTokenHash(_ context.Context, hash string) (*entity.PartialSessionToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[hash]
	if !ok {
		return nil, nil
	}
	copied := *token
	copied.AllowedMethods = append(datatypes.JSONSlice[string]{}, token.AllowedMethods...)
	return &copied, nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.ID == id {
			if token.ConsumedAt != nil {
				return false, nil
			}
			consumedAt := now
			token.ConsumedAt = &consumedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTokenRepo) DeleteExpired(_ context.Context, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, token := range r.tokens {
		if token.ExpiresAt.Before(now) {
			delete(r.tokens, hash)
		}
	}
	return nil
}

type fakeCodeRepo struct {
	mu    sync.Mutex
	codes []*entity.OneTimeCode
	seq   int
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{}
}

func (r *fakeCodeRepo) Replace(_ context.Context, code *entity.OneTimeCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.codes[:0]
	for _, existing := range r.codes {
		if existing.AccountID == code.AccountID && existing.Method == code.Method && existing.Purpose == code.Purpose {
			continue
		}
		kept = append(kept, existing)
	}
	r.codes = kept

	if code.ID == uuid.Nil {
		code.ID = uuid.New()
	}
	r.seq++
	copied := *code
	copied.CreatedAt = time.Unix(int64(r.seq), 0)
	r.codes = append(r.codes, &copied)
	return nil
}

func (r *fakeCodeRepo) FindLatest(
	_ context.Context,
	accountID uuid.UUID,
	method entity.Method,
	purpose entity.CodePurpose,
) (*entity.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.OneTimeCode
	for _, code := range r.codes {
		if code.AccountID != accountID || code.Method != method || code.Purpose != purpose {
			continue
		}
		if latest == nil || code.CreatedAt.After(latest.CreatedAt) {
			latest = code
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeCodeRepo) MarkUsed(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.ID == id {
			if code.UsedAt != nil {
				return false, nil
			}
			usedAt := now
			code.UsedAt = &usedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCodeRepo) DeleteByAccount(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.codes[:0]
	for _, code := range r.codes {
		if code.AccountID != accountID {
			kept = append(kept, code)
		}
	}
	r.codes = kept
	return nil
}

type fakeRecoveryRepo struct {
	mu       sync.Mutex
	codes    []*entity.RecoveryCode
	ever     map[uuid.UUID]bool
	countErr error
}

func newFakeRecoveryRepo() *fakeRecoveryRepo {
	return &fakeRecoveryRepo{ever: make(map[uuid.UUID]bool)}
}

func (r *fakeRecoveryRepo) ReplaceBatch(_ context.Context, accountID uuid.UUID, codes []entity.RecoveryCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.codes[:0]
	for _, code := range r.codes {
		if code.AccountID != accountID {
			kept = append(kept, code)
		}
	}
	r.codes = kept
	for i := range codes {
		copied := codes[i]
		if copied.ID == uuid.Nil {
			copied.ID = uuid.New()
		}
		r.codes = append(r.codes, &copied)
	}
	r.ever[accountID] = true
	return nil
}

func (r *fakeRecoveryRepo) FindUnused(_ context.Context, accountID uuid.UUID) ([]entity.RecoveryCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.RecoveryCode
	for _, code := range r.codes {
		if code.AccountID == accountID && code.UsedAt == nil {
			result = append(result, *code)
		}
	}
	return result, nil
}

func (r *fakeRecoveryRepo) MarkUsed(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, code := range r.codes {
		if code.ID == id {
			if code.UsedAt != nil {
				return false, nil
			}
			usedAt := now
			code.UsedAt = &usedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRecoveryRepo) HasAny(_ context.Context, accountID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ever[accountID], nil
}

func (r *fakeRecoveryRepo) CountUnused(_ context.Context, accountID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.countErr != nil {
		return 0, r.countErr
	}
	var count int64
	for _, code := range r.codes {
		if code.AccountID == accountID && code.UsedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *fakeRecoveryRepo) DeleteByAccount(_ context.Context, accountID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.codes[:0]
	for _, code := range r.codes {
		if code.AccountID != accountID {
			kept = append(kept, code)
		}
	}
	r.codes = kept
	delete(r.ever, accountID)
	return nil
}

type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices []*entity.TrustedDevice
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{}
}

func (r *fakeDeviceRepo) Upsert(_ context.Context, device *entity.TrustedDevice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.devices {
		if existing.AccountID == device.AccountID && existing.DeviceID == device.DeviceID {
			existing.DeviceName = device.DeviceName
			existing.LastSeenAt = device.LastSeenAt
			existing.ExpiresAt = device.ExpiresAt
			existing.RevokedAt = nil
			return nil
		}
	}
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	copied := *device
	r.devices = append(r.devices, &copied)
	return nil
}

func (r *fakeDeviceRepo) FindActive(
	_ context.Context,
	accountID uuid.UUID,
	deviceID string,
	now time.Time,
) (*entity.TrustedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, device := range r.devices {
		if device.AccountID == accountID && device.DeviceID == deviceID &&
			device.RevokedAt == nil && device.ExpiresAt.After(now) {
			copied := *device
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeDeviceRepo) Touch(_ context.Context, id uuid.UUID, seenAt time.Time, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, device := range r.devices {
		if device.ID == id {
			device.LastSeenAt = seenAt
			device.ExpiresAt = expiresAt
		}
	}
	return nil
}

func (r *fakeDeviceRepo) ListActive(_ context.Context, accountID uuid.UUID, now time.Time) ([]entity.TrustedDevice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []entity.TrustedDevice
	for _, device := range r.devices {
		if device.AccountID == accountID && device.RevokedAt == nil && device.ExpiresAt.After(now) {
			result = append(result, *device)
		}
	}
	return result, nil
}

func (r *fakeDeviceRepo) Revoke(_ context.Context, accountID uuid.UUID, id uuid.UUID, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, device := range r.devices {
		if device.ID == id && device.AccountID == accountID {
			if device.RevokedAt != nil {
				return false, nil
			}
			revokedAt := now
			device.RevokedAt = &revokedAt
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeDeviceRepo) RevokeAllByAccount(_ context.Context, accountID uuid.UUID, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, device := range r.devices {
		if device.AccountID == accountID && device.RevokedAt == nil {
			revokedAt := now
			device.RevokedAt = &revokedAt
		}
	}
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	copied := *session
	r.sessions = append(r.sessions, &copied)
	return nil
}

func (r *fakeSessionRepo) RevokeOthers(_ context.Context, accountID uuid.UUID, exceptSessionID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, session := range r.sessions {
		if session.AccountID == accountID && session.ID != exceptSessionID && session.RevokedAt == nil {
			revokedAt := now
			session.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *fakeSessionRepo) CleanupExpired(_ context.Context) error {
	return nil
}

func (r *fakeSessionRepo) count(accountID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, session := range r.sessions {
		if session.AccountID == accountID {
			count++
		}
	}
	return count
}

func (r *fakeSessionRepo) activeIDs(accountID uuid.UUID) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, session := range r.sessions {
		if session.AccountID == accountID && session.RevokedAt == nil {
			ids = append(ids, session.ID)
		}
	}
	return ids
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []*entity.SecurityLog
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{}
}

func (r *fakeLogRepo) Log(_ context.Context, log *entity.SecurityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeLogRepo) has(action entity.SecurityAction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.Action == action {
			return true
		}
	}
	return false
}

type fakeEmailSender struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sent     int
	failNext bool
}

func (s *fakeEmailSender) SendCode(_ context.Context, email string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("gateway unavailable")
	}
	s.lastTo = email
	s.lastCode = code
	s.sent++
	return nil
}

type fakeSMSSender struct {
	mu       sync.Mutex
	lastTo   string
	lastCode string
	sent     int
	failNext bool
}

func (s *fakeSMSSender) SendCode(_ context.Context, phoneNumber string, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext {
		s.failNext = false
		return errors.New("gateway unavailable")
	}
	s.lastTo = phoneNumber
	s.lastCode = code
	s.sent++
	return nil
}

type stubAccessIssuer struct{}

func (stubAccessIssuer) IssueAccessToken(accountID string, sessionID string) (string, time.Duration, error) {
	return "access:" + accountID + ":" + sessionID, 15 * time.Minute, nil
}
