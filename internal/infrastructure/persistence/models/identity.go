package models

import (
	"time"

	"github.com/finbook/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Email               string            `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash        string            `gorm:"type:varchar(255)"`
	DisplayName         string            `gorm:"type:varchar(200)"`
	Role                identity.UserRole `gorm:"type:varchar(30);not null"`
	EmailVerified       bool              `gorm:"not null;default:false"`
	OnboardingCompleted bool              `gorm:"not null;default:false"`
	LastLoginAt         *time.Time        `gorm:"index"`
	FailedAttempts      int               `gorm:"not null;default:0"`
	LockedUntil         *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		DisplayName:         m.DisplayName,
		Role:                m.Role,
		EmailVerified:       m.EmailVerified,
		OnboardingCompleted: m.OnboardingCompleted,
		LastLoginAt:         m.LastLoginAt,
		FailedAttempts:      m.FailedAttempts,
		LockedUntil:         m.LockedUntil,
	}
}

// FromDomain populates the persistence model from a domain User entity
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.DisplayName = u.DisplayName
	m.Role = u.Role
	m.EmailVerified = u.EmailVerified
	m.OnboardingCompleted = u.OnboardingCompleted
	m.LastLoginAt = u.LastLoginAt
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
}

// UserModelFromDomain creates a new persistence model from a domain User entity
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// CompanyModel is the persistence model for the Company domain entity.
// The company has its own uuid primary key; the owner is a foreign key,
// never the tenant key itself.
type CompanyModel struct {
	AggregateModel
	Name        string                 `gorm:"type:varchar(200);not null"`
	OwnerUserID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Status      identity.CompanyStatus `gorm:"type:varchar(20);not null;default:'active'"`
	VATNumber   string                 `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company entity
func (m *CompanyModel) ToDomain() *identity.Company {
	return &identity.Company{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		OwnerUserID:       m.OwnerUserID,
		Status:            m.Status,
		VATNumber:         m.VATNumber,
	}
}

// FromDomain populates the persistence model from a domain Company entity
func (m *CompanyModel) FromDomain(c *identity.Company) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Name = c.Name
	m.OwnerUserID = c.OwnerUserID
	m.Status = c.Status
	m.VATNumber = c.VATNumber
}

// CompanyModelFromDomain creates a new persistence model from a domain Company entity
func CompanyModelFromDomain(c *identity.Company) *CompanyModel {
	m := &CompanyModel{}
	m.FromDomain(c)
	return m
}
