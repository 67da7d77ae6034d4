package persistence

import (
	"context"
	"errors"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMembershipRepository implements access.MembershipRepository using GORM
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Create creates a new membership
func (r *GormMembershipRepository) Create(ctx context.Context, membership *access.Membership) error {
	model := models.MembershipModelFromDomain(membership)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing membership with optimistic locking. Domain
// mutators bump the version before the write, so the row must still hold
// the previous one for the UPDATE to match.
func (r *GormMembershipRepository) Update(ctx context.Context, membership *access.Membership) error {
	model := models.MembershipModelFromDomain(membership)

	result := r.db.WithContext(ctx).
		Model(&models.MembershipModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"role":       model.Role,
			"status":     model.Status,
			"can_read":   model.CanRead,
			"can_edit":   model.CanEdit,
			"can_export": model.CanExport,
			"can_btw":    model.CanBTW,
			"granted_by": model.GrantedBy,
			"invite_id":  model.InviteID,
			"version":    model.Version,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.MembershipModel{}).Where("id = ?", model.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Upsert creates the membership or refreshes the existing (user, company)
// row in place. Re-accepting an invite must never produce a duplicate pair.
func (r *GormMembershipRepository) Upsert(ctx context.Context, membership *access.Membership) error {
	model := models.MembershipModelFromDomain(membership)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"role", "status",
				"can_read", "can_edit", "can_export", "can_btw",
				"granted_by", "invite_id", "updated_at",
			}),
		}).
		Create(model).Error
}

// FindByID finds a membership by ID
func (r *GormMembershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Membership, error) {
	var model models.MembershipModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByUserAndCompany finds the membership for a (user, company) pair
func (r *GormMembershipRepository) FindByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*access.Membership, error) {
	var model models.MembershipModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByUser lists all memberships of a user
func (r *GormMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*access.Membership, error) {
	var membershipModels []models.MembershipModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&membershipModels).Error; err != nil {
		return nil, err
	}

	memberships := make([]*access.Membership, len(membershipModels))
	for i := range membershipModels {
		memberships[i] = membershipModels[i].ToDomain()
	}
	return memberships, nil
}

// ListByCompany lists all memberships of a company
func (r *GormMembershipRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*access.Membership, error) {
	var membershipModels []models.MembershipModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&membershipModels).Error; err != nil {
		return nil, err
	}

	memberships := make([]*access.Membership, len(membershipModels))
	for i := range membershipModels {
		memberships[i] = membershipModels[i].ToDomain()
	}
	return memberships, nil
}

// Delete removes the membership row entirely. Revocation hard-deletes the
// membership; suspension keeps the row and flips the status instead.
func (r *GormMembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MembershipModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormMembershipRepository implements the repository interface
var _ access.MembershipRepository = (*GormMembershipRepository)(nil)
