package identity

import (
	"strings"
	"time"

	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// CompanyStatus represents the lifecycle status of a tenant
type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

// Company represents a tenant: the unit of data isolation. Every piece of
// business data is scoped to exactly one company. The company is a dedicated
// entity keyed by its own uuid; ownership is expressed through OwnerUserID,
// never by aliasing the owner's user id as the tenant key.
type Company struct {
	shared.BaseAggregateRoot
	Name        string
	OwnerUserID uuid.UUID
	Status      CompanyStatus
	VATNumber   string
}

// NewCompany creates a new company owned by the given user
func NewCompany(name string, ownerUserID uuid.UUID) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_COMPANY_NAME", "Company name cannot exceed 200 characters")
	}
	if ownerUserID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner user ID cannot be empty")
	}

	company := &Company{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		OwnerUserID:       ownerUserID,
		Status:            CompanyStatusActive,
	}

	company.AddDomainEvent(NewCompanyCreatedEvent(company))

	return company, nil
}

// IsOwnedBy returns true if the given user owns this company
func (c *Company) IsOwnedBy(userID uuid.UUID) bool {
	return c.OwnerUserID == userID
}

// IsActive returns true if the company is active
func (c *Company) IsActive() bool {
	return c.Status == CompanyStatusActive
}

// Suspend suspends the company
func (c *Company) Suspend() error {
	if c.Status == CompanyStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Company is already suspended")
	}

	c.Status = CompanyStatusSuspended
	c.UpdatedAt = time.Now()
	c.IncrementVersion()

	return nil
}
