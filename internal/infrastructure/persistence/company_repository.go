package persistence

import (
	"context"
	"errors"

	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCompanyRepository implements identity.CompanyRepository using GORM
type GormCompanyRepository struct {
	db *gorm.DB
}

// NewGormCompanyRepository creates a new GormCompanyRepository
func NewGormCompanyRepository(db *gorm.DB) *GormCompanyRepository {
	return &GormCompanyRepository{db: db}
}

// Create creates a new company
func (r *GormCompanyRepository) Create(ctx context.Context, company *identity.Company) error {
	model := models.CompanyModelFromDomain(company)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update updates an existing company with optimistic locking. Domain
// mutators bump the version before the write, so the row must still hold
// the previous one for the UPDATE to match.
func (r *GormCompanyRepository) Update(ctx context.Context, company *identity.Company) error {
	model := models.CompanyModelFromDomain(company)

	result := r.db.WithContext(ctx).
		Model(&models.CompanyModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"name":          model.Name,
			"owner_user_id": model.OwnerUserID,
			"status":        model.Status,
			"vat_number":    model.VATNumber,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.db.WithContext(ctx).Model(&models.CompanyModel{}).Where("id = ?", model.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// FindByID finds a company by ID
func (r *GormCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Company, error) {
	var model models.CompanyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOwner lists all companies owned by the given user
func (r *GormCompanyRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*identity.Company, error) {
	var companyModels []models.CompanyModel
	if err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at ASC").
		Find(&companyModels).Error; err != nil {
		return nil, err
	}

	companies := make([]*identity.Company, len(companyModels))
	for i := range companyModels {
		companies[i] = companyModels[i].ToDomain()
	}
	return companies, nil
}

// Ensure GormCompanyRepository implements the repository interface
var _ identity.CompanyRepository = (*GormCompanyRepository)(nil)
