package repository

import (
	"context"
	"errors"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PendingEnrollmentRepository interface {
	// Upsert replaces any in-progress setup for the same (account, method).
	Upsert(ctx context.Context, pending *entity.PendingEnrollment) error
	FindActive(ctx context.Context, accountID uuid.UUID, method entity.Method, now time.Time) (*entity.PendingEnrollment, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByAccount(ctx context.Context, accountID uuid.UUID) error
}

type pendingEnrollmentRepository struct {
	db *gorm.DB
}

func NewPendingEnrollmentRepository(db *gorm.DB) PendingEnrollmentRepository {
	return &pendingEnrollmentRepository{db: db}
}

func (r *pendingEnrollmentRepository) Upsert(ctx context.Context, pending *entity.PendingEnrollment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "method"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"totp_secret", "destination", "attempts", "expires_at", "created_at",
			}),
		}).
		Create(pending).Error
}

func (r *pendingEnrollmentRepository) FindActive(
	ctx context.Context,
	accountID uuid.UUID,
	method entity.Method,
	now time.Time,
) (*entity.PendingEnrollment, error) {
	var pending entity.PendingEnrollment
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND method = ? AND expires_at > ?", accountID, method, now).
		First(&pending).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &pending, err
}

func (r *pendingEnrollmentRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := r.db.WithContext(ctx).
		Raw(`UPDATE pending_enrollments
			SET attempts = attempts + 1
			WHERE id = ?
			RETURNING attempts`, id).
		Scan(&count).Error
	return count, err
}

func (r *pendingEnrollmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.PendingEnrollment{}).
		Error
}

func (r *pendingEnrollmentRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Delete(&entity.PendingEnrollment{}).
		Error
}
