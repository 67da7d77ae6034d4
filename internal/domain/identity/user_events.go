package identity

import (
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the identity domain
const (
	EventTypeUserCreated    = "identity.user.created"
	EventTypeCompanyCreated = "identity.company.created"
)

// UserCreatedEvent is raised when a new principal is provisioned
type UserCreatedEvent struct {
	shared.BaseDomainEvent
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// NewUserCreatedEvent creates a new UserCreatedEvent
func NewUserCreatedEvent(user *User) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserCreated, "User", user.ID, uuid.Nil),
		Email:           user.Email,
		Role:            user.Role,
	}
}

// CompanyCreatedEvent is raised when a new tenant is provisioned
type CompanyCreatedEvent struct {
	shared.BaseDomainEvent
	Name        string    `json:"name"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
}

// NewCompanyCreatedEvent creates a new CompanyCreatedEvent
func NewCompanyCreatedEvent(company *Company) *CompanyCreatedEvent {
	return &CompanyCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCompanyCreated, "Company", company.ID, company.ID),
		Name:            company.Name,
		OwnerUserID:     company.OwnerUserID,
	}
}
