package persistence

import (
	"context"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository implements access.AuditRepository using GORM.
// The table is append-only; this repository never updates or deletes rows.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts one audit event
func (r *GormAuditRepository) Append(ctx context.Context, event *access.SecurityAuditEvent) error {
	model, err := models.SecurityAuditEventModelFromDomain(event)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// List queries the audit log with the given filter, newest first
func (r *GormAuditRepository) List(ctx context.Context, filter access.AuditFilter) ([]*access.SecurityAuditEvent, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SecurityAuditEventModel{})

	if filter.CompanyID != nil {
		query = query.Where("company_id = ?", *filter.CompanyID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var eventModels []models.SecurityAuditEventModel
	if err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&eventModels).Error; err != nil {
		return nil, 0, err
	}

	events := make([]*access.SecurityAuditEvent, len(eventModels))
	for i := range eventModels {
		events[i] = eventModels[i].ToDomain()
	}
	return events, total, nil
}

// Ensure GormAuditRepository implements the repository interface
var _ access.AuditRepository = (*GormAuditRepository)(nil)
