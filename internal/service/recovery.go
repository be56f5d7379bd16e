package service

import (
	"context"

	"stepauth/internal/entity"
	"stepauth/internal/repository"
	"stepauth/internal/utils"

	"github.com/google/uuid"
)

// RecoveryCodeManager issues and consumes one-time backup codes. Plaintext
// codes leave this package exactly once, at generation; only bcrypt hashes
// are stored.
type RecoveryCodeManager struct {
	codes  repository.RecoveryCodeRepository
	hasher Hasher
	clock  Clock
	config Config
}

func NewRecoveryCodeManager(
	codes repository.RecoveryCodeRepository,
	hasher Hasher,
	clock Clock,
	config Config,
) *RecoveryCodeManager {
	return &RecoveryCodeManager{codes: codes, hasher: hasher, clock: clock, config: config}
}

// GenerateBatch replaces the account's batch atomically and returns the new
// plaintext codes.
func (m *RecoveryCodeManager) GenerateBatch(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	size := m.config.recoveryBatchSize()
	batchID := uuid.New()

	plaintexts := make([]string, 0, size)
	rows := make([]entity.RecoveryCode, 0, size)
	for len(plaintexts) < size {
		code, err := utils.GenerateRecoveryCode()
		if err != nil {
			return nil, err
		}
		hash, err := m.hasher.Hash(utils.NormalizeRecoveryCode(code))
		if err != nil {
			return nil, err
		}
		plaintexts = append(plaintexts, code)
		rows = append(rows, entity.RecoveryCode{
			AccountID: accountID,
			BatchID:   batchID,
			CodeHash:  hash,
		})
	}

	if err := m.codes.ReplaceBatch(ctx, accountID, rows); err != nil {
		return nil, err
	}
	return plaintexts, nil
}

// Consume redeems a backup code. Marking the code used is a compare-and-swap
// so two concurrent redemptions of the same code cannot both succeed.
func (m *RecoveryCodeManager) Consume(ctx context.Context, accountID uuid.UUID, submitted string) error {
	normalized := utils.NormalizeRecoveryCode(submitted)
	if normalized == "" {
		return ErrCodeNotFound
	}

	candidates, err := m.codes.FindUnused(ctx, accountID)
	if err != nil {
		return err
	}
	for _, candidate := range candidates {
		if !m.hasher.Verify(candidate.CodeHash, normalized) {
			continue
		}
		used, err := m.codes.MarkUsed(ctx, candidate.ID, m.clock.Now())
		if err != nil {
			return err
		}
		if !used {
			return ErrCodeAlreadyUsed
		}
		return nil
	}
	return ErrCodeNotFound
}

// Remaining reports how many codes of the current batch are still unused,
// so clients can prompt regeneration when the batch runs low.
func (m *RecoveryCodeManager) Remaining(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return m.codes.CountUnused(ctx, accountID)
}

// HasEverIssued reports whether any batch was ever generated for the
// account. Used to detect the first successful enrollment.
func (m *RecoveryCodeManager) HasEverIssued(ctx context.Context, accountID uuid.UUID) (bool, error) {
	return m.codes.HasAny(ctx, accountID)
}

// Purge removes all codes, used or not. Called when 2FA is torn down.
func (m *RecoveryCodeManager) Purge(ctx context.Context, accountID uuid.UUID) error {
	return m.codes.DeleteByAccount(ctx, accountID)
}
