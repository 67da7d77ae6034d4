package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInviteRepository implements access.InviteRepository using GORM
type GormInviteRepository struct {
	db *gorm.DB
}

// NewGormInviteRepository creates a new GormInviteRepository
func NewGormInviteRepository(db *gorm.DB) *GormInviteRepository {
	return &GormInviteRepository{db: db}
}

// Create creates a new invite
func (r *GormInviteRepository) Create(ctx context.Context, invite *access.Invite) error {
	model := models.InviteModelFromDomain(invite)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing invite with optimistic locking. Domain
// mutators bump the version before the write, so the row must still hold
// the previous one for the UPDATE to match.
func (r *GormInviteRepository) Update(ctx context.Context, invite *access.Invite) error {
	model := models.InviteModelFromDomain(invite)

	result := r.db.WithContext(ctx).
		Model(&models.InviteModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"token_hash":       model.TokenHash,
			"status":           model.Status,
			"otp_hash":         model.OTPHash,
			"otp_expires_at":   model.OTPExpiresAt,
			"accepted_by":      model.AcceptedBy,
			"accepted_at":      model.AcceptedAt,
			"revoked_at":       model.RevokedAt,
			"last_sent_at":     model.LastSentAt,
			"send_count":       model.SendCount,
			"personal_message": model.PersonalMessage,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.InviteModel{}).Where("id = ?", model.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds an invite by ID
func (r *GormInviteRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Invite, error) {
	var model models.InviteModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError("INVITE_NOT_FOUND", "Invite not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTokenHash finds an invite by the digest of its link token
func (r *GormInviteRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*access.Invite, error) {
	var model models.InviteModel
	if err := r.db.WithContext(ctx).First(&model, "token_hash = ?", tokenHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError("INVITE_NOT_FOUND", "Invite not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByCompanyAndEmail finds the pending invite for a (company, email)
// pair. Emails are stored normalized, so the lookup normalizes too.
func (r *GormInviteRepository) FindPendingByCompanyAndEmail(ctx context.Context, companyID uuid.UUID, email string) (*access.Invite, error) {
	var model models.InviteModel
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND email = ? AND status = ?",
			companyID, strings.ToLower(strings.TrimSpace(email)), access.InviteStatusPending).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainError("INVITE_NOT_FOUND", "Invite not found")
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByCompany lists all invites for a company, newest first
func (r *GormInviteRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*access.Invite, error) {
	var inviteModels []models.InviteModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&inviteModels).Error; err != nil {
		return nil, err
	}

	invites := make([]*access.Invite, len(inviteModels))
	for i := range inviteModels {
		invites[i] = inviteModels[i].ToDomain()
	}
	return invites, nil
}

// ListPendingByEmail lists all pending invites addressed to an email
func (r *GormInviteRepository) ListPendingByEmail(ctx context.Context, email string) ([]*access.Invite, error) {
	var inviteModels []models.InviteModel
	if err := r.db.WithContext(ctx).
		Where("email = ? AND status = ?",
			strings.ToLower(strings.TrimSpace(email)), access.InviteStatusPending).
		Order("created_at DESC").
		Find(&inviteModels).Error; err != nil {
		return nil, err
	}

	invites := make([]*access.Invite, len(inviteModels))
	for i := range inviteModels {
		invites[i] = inviteModels[i].ToDomain()
	}
	return invites, nil
}

// TransitionStatus performs a compare-and-set on the invite status. Concurrent
// accepts race on the same PENDING row; exactly one UPDATE matches, the rest
// observe zero rows affected and get a conflict error.
func (r *GormInviteRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to access.InviteStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.InviteModel{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// AcceptPending flips a pending invite to ACCEPTED and records the accepting
// user in the same compare-and-set. Racing accepts all target the same
// PENDING row; the single winner's UPDATE matches and losers re-reading the
// row see accepted_by already filled in.
func (r *GormInviteRepository) AcceptPending(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.InviteModel{}).
		Where("id = ? AND status = ?", id, access.InviteStatusPending).
		Updates(map[string]any{
			"status":      access.InviteStatusAccepted,
			"accepted_by": userID,
			"accepted_at": at,
			"version":     gorm.Expr("version + 1"),
			"updated_at":  at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormInviteRepository implements the repository interface
var _ access.InviteRepository = (*GormInviteRepository)(nil)
