package repository

import (
	"context"
	"time"

	"stepauth/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.Session) error
	// RevokeOthers revokes every live session of the account except the
	// given one, so security-sensitive operations can log everyone else out
	// without cutting off the session that performed them.
	RevokeOthers(ctx context.Context, accountID uuid.UUID, exceptSessionID uuid.UUID) error
	CleanupExpired(ctx context.Context) error
}

type sessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &sessionRepository{db: db}
}

func (r *sessionRepository) Create(ctx context.Context, s *entity.Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *sessionRepository) RevokeOthers(ctx context.Context, accountID uuid.UUID, exceptSessionID uuid.UUID) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&entity.Session{}).
		Where("account_id = ? AND id <> ? AND revoked_at IS NULL", accountID, exceptSessionID).
		Update("revoked_at", &now).
		Error
}

func (r *sessionRepository) CleanupExpired(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Where("expires_at < NOW()").
		Delete(&entity.Session{}).
		Error
}
