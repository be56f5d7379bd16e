package service

import (
	"context"

	"stepauth/internal/entity"
	"stepauth/internal/repository"
	"stepauth/internal/utils"
)

// PartialTokenService issues and resolves the short-lived, single-use tokens
// that bridge primary-credential success and second-factor verification. The
// raw token is unguessable random material; only its hash touches storage.
type PartialTokenService struct {
	tokens repository.PartialSessionTokenRepository
	clock  Clock
	config Config
}

func NewPartialTokenService(
	tokens repository.PartialSessionTokenRepository,
	clock Clock,
	config Config,
) *PartialTokenService {
	return &PartialTokenService{tokens: tokens, clock: clock, config: config}
}

// Issue creates a token bound to the profile's configured methods plus
// recovery. Returns the raw token and its expiry.
func (s *PartialTokenService) Issue(ctx context.Context, profile *entity.TwoFactorProfile) (string, *entity.PartialSessionToken, error) {
	raw, err := utils.GenerateRandomToken(32)
	if err != nil {
		return "", nil, err
	}

	allowed := make([]string, 0, len(profile.ConfiguredMethods)+1)
	for _, method := range profile.ConfiguredMethods {
		allowed = append(allowed, string(method))
	}
	allowed = append(allowed, entity.ProofRecovery)

	token := &entity.PartialSessionToken{
		AccountID:      profile.AccountID,
		TokenHash:      utils.HashToken(raw),
		AllowedMethods: allowed,
		ExpiresAt:      s.clock.Now().Add(s.config.partialTokenTTL()),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return "", nil, err
	}
	return raw, token, nil
}

// Resolve looks up a raw token and classifies its state. Unknown tokens are
// indistinguishable from expired ones.
func (s *PartialTokenService) Resolve(ctx context.Context, raw string) (*entity.PartialSessionToken, error) {
	if raw == "" {
		return nil, ErrTokenExpired
	}
	token, err := s.tokens.FindByTokenHash(ctx, utils.HashToken(raw))
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrTokenExpired
	}
	if s.clock.Now().After(token.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	if token.ConsumedAt != nil {
		return nil, ErrTokenAlreadyUsed
	}
	return token, nil
}

// Consume marks the token used; false means another request got there first.
func (s *PartialTokenService) Consume(ctx context.Context, token *entity.PartialSessionToken) (bool, error) {
	return s.tokens.Consume(ctx, token.ID, s.clock.Now())
}

// ReapExpired drops expired rows. Storage hygiene only; expiry is already
// enforced on access.
func (s *PartialTokenService) ReapExpired(ctx context.Context) error {
	return s.tokens.DeleteExpired(ctx, s.clock.Now())
}
