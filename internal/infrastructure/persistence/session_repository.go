package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSessionRepository implements access.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create creates a new accountant session
func (r *GormSessionRepository) Create(ctx context.Context, session *access.AccountantSession) error {
	model := models.AccountantSessionModelFromDomain(session)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByTokenHash finds a session by its token digest
func (r *GormSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*access.AccountantSession, error) {
	var model models.AccountantSessionModel
	err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Touch refreshes the last-access timestamp of a session
func (r *GormSessionRepository) Touch(ctx context.Context, id uuid.UUID, lastAccessAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AccountantSessionModel{}).
		Where("id = ?", id).
		Update("last_access_at", lastAccessAt).Error
}

// Delete removes a session by token digest. Missing rows are not an error,
// so logout is idempotent.
func (r *GormSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	return r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&models.AccountantSessionModel{}).Error
}

// DeleteByID removes a session by ID
func (r *GormSessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.AccountantSessionModel{}, "id = ?", id).Error
}

// DeleteByUser removes all sessions of a user and reports how many
func (r *GormSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.AccountantSessionModel{})
	return result.RowsAffected, result.Error
}

// DeleteExpired removes every session past its deadline
func (r *GormSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.AccountantSessionModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormSessionRepository implements the repository interface
var _ access.SessionRepository = (*GormSessionRepository)(nil)
