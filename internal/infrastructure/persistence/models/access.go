package models

import (
	"encoding/json"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/google/uuid"
)

// InviteModel is the persistence model for the Invite aggregate.
type InviteModel struct {
	AggregateModel
	CompanyID       uuid.UUID           `gorm:"type:uuid;not null;index:idx_invites_company_email"`
	Email           string              `gorm:"type:varchar(200);not null;index:idx_invites_company_email"`
	TokenHash       string              `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status          access.InviteStatus `gorm:"type:varchar(20);not null;index"`
	CanRead         bool                `gorm:"not null;default:true"`
	CanEdit         bool                `gorm:"not null;default:false"`
	CanExport       bool                `gorm:"not null;default:false"`
	CanBTW          bool                `gorm:"not null;default:false"`
	OTPHash         string              `gorm:"type:varchar(255);not null"`
	OTPExpiresAt    time.Time           `gorm:"not null"`
	ExpiresAt       time.Time           `gorm:"not null;index"`
	InvitedBy       uuid.UUID           `gorm:"type:uuid;not null"`
	AcceptedBy      *uuid.UUID          `gorm:"type:uuid"`
	AcceptedAt      *time.Time
	RevokedAt       *time.Time
	LastSentAt      time.Time `gorm:"not null"`
	SendCount       int       `gorm:"not null;default:1"`
	PersonalMessage string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InviteModel) TableName() string {
	return "accountant_invites"
}

// ToDomain converts the persistence model to a domain Invite aggregate
func (m *InviteModel) ToDomain() *access.Invite {
	return &access.Invite{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CompanyID:         m.CompanyID,
		Email:             m.Email,
		TokenHash:         m.TokenHash,
		Status:            m.Status,
		Permissions: access.PermissionSet{
			CanRead:   m.CanRead,
			CanEdit:   m.CanEdit,
			CanExport: m.CanExport,
			CanBTW:    m.CanBTW,
		},
		OTPHash:         m.OTPHash,
		OTPExpiresAt:    m.OTPExpiresAt,
		ExpiresAt:       m.ExpiresAt,
		InvitedBy:       m.InvitedBy,
		AcceptedBy:      m.AcceptedBy,
		AcceptedAt:      m.AcceptedAt,
		RevokedAt:       m.RevokedAt,
		LastSentAt:      m.LastSentAt,
		SendCount:       m.SendCount,
		PersonalMessage: m.PersonalMessage,
	}
}

// FromDomain populates the persistence model from a domain Invite aggregate
func (m *InviteModel) FromDomain(i *access.Invite) {
	m.FromDomainAggregateRoot(i.BaseAggregateRoot)
	m.CompanyID = i.CompanyID
	m.Email = i.Email
	m.TokenHash = i.TokenHash
	m.Status = i.Status
	m.CanRead = i.Permissions.CanRead
	m.CanEdit = i.Permissions.CanEdit
	m.CanExport = i.Permissions.CanExport
	m.CanBTW = i.Permissions.CanBTW
	m.OTPHash = i.OTPHash
	m.OTPExpiresAt = i.OTPExpiresAt
	m.ExpiresAt = i.ExpiresAt
	m.InvitedBy = i.InvitedBy
	m.AcceptedBy = i.AcceptedBy
	m.AcceptedAt = i.AcceptedAt
	m.RevokedAt = i.RevokedAt
	m.LastSentAt = i.LastSentAt
	m.SendCount = i.SendCount
	m.PersonalMessage = i.PersonalMessage
}

// InviteModelFromDomain creates a new persistence model from a domain Invite
func InviteModelFromDomain(i *access.Invite) *InviteModel {
	m := &InviteModel{}
	m.FromDomain(i)
	return m
}

// MembershipModel is the persistence model for the Membership aggregate.
// The (user_id, company_id) pair is unique.
type MembershipModel struct {
	AggregateModel
	UserID    uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_company"`
	CompanyID uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_company"`
	Role      access.MembershipRole   `gorm:"type:varchar(30);not null"`
	Status    access.MembershipStatus `gorm:"type:varchar(20);not null"`
	CanRead   bool                    `gorm:"not null;default:true"`
	CanEdit   bool                    `gorm:"not null;default:false"`
	CanExport bool                    `gorm:"not null;default:false"`
	CanBTW    bool                    `gorm:"not null;default:false"`
	GrantedBy *uuid.UUID              `gorm:"type:uuid"`
	InviteID  *uuid.UUID              `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (MembershipModel) TableName() string {
	return "company_memberships"
}

// ToDomain converts the persistence model to a domain Membership aggregate
func (m *MembershipModel) ToDomain() *access.Membership {
	return &access.Membership{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UserID:            m.UserID,
		CompanyID:         m.CompanyID,
		Role:              m.Role,
		Status:            m.Status,
		Permissions: access.PermissionSet{
			CanRead:   m.CanRead,
			CanEdit:   m.CanEdit,
			CanExport: m.CanExport,
			CanBTW:    m.CanBTW,
		},
		GrantedBy: m.GrantedBy,
		InviteID:  m.InviteID,
	}
}

// FromDomain populates the persistence model from a domain Membership aggregate
func (m *MembershipModel) FromDomain(mem *access.Membership) {
	m.FromDomainAggregateRoot(mem.BaseAggregateRoot)
	m.UserID = mem.UserID
	m.CompanyID = mem.CompanyID
	m.Role = mem.Role
	m.Status = mem.Status
	m.CanRead = mem.Permissions.CanRead
	m.CanEdit = mem.Permissions.CanEdit
	m.CanExport = mem.Permissions.CanExport
	m.CanBTW = mem.Permissions.CanBTW
	m.GrantedBy = mem.GrantedBy
	m.InviteID = mem.InviteID
}

// MembershipModelFromDomain creates a new persistence model from a domain Membership
func MembershipModelFromDomain(mem *access.Membership) *MembershipModel {
	m := &MembershipModel{}
	m.FromDomain(mem)
	return m
}

// AccountantSessionModel is the persistence model for accountant sessions.
// Only the token digest is stored.
type AccountantSessionModel struct {
	AggregateModel
	TokenHash    string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	LastAccessAt time.Time `gorm:"not null"`
	IPAddress    string    `gorm:"type:varchar(45)"`
	UserAgent    string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (AccountantSessionModel) TableName() string {
	return "accountant_sessions"
}

// ToDomain converts the persistence model to a domain AccountantSession
func (m *AccountantSessionModel) ToDomain() *access.AccountantSession {
	return &access.AccountantSession{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		TokenHash:         m.TokenHash,
		UserID:            m.UserID,
		CompanyID:         m.CompanyID,
		ExpiresAt:         m.ExpiresAt,
		LastAccessAt:      m.LastAccessAt,
		IPAddress:         m.IPAddress,
		UserAgent:         m.UserAgent,
	}
}

// FromDomain populates the persistence model from a domain AccountantSession
func (m *AccountantSessionModel) FromDomain(s *access.AccountantSession) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.TokenHash = s.TokenHash
	m.UserID = s.UserID
	m.CompanyID = s.CompanyID
	m.ExpiresAt = s.ExpiresAt
	m.LastAccessAt = s.LastAccessAt
	m.IPAddress = s.IPAddress
	m.UserAgent = s.UserAgent
}

// AccountantSessionModelFromDomain creates a new persistence model from a domain session
func AccountantSessionModelFromDomain(s *access.AccountantSession) *AccountantSessionModel {
	m := &AccountantSessionModel{}
	m.FromDomain(s)
	return m
}

// SecurityAuditEventModel is the persistence model for the append-only
// security audit log. Rows are insert-only.
type SecurityAuditEventModel struct {
	BaseModel
	EventType access.AuditEventType `gorm:"type:varchar(40);not null;index"`
	UserID    *uuid.UUID            `gorm:"type:uuid;index"`
	CompanyID *uuid.UUID            `gorm:"type:uuid;index"`
	Email     string                `gorm:"type:varchar(200)"`
	IPAddress string                `gorm:"type:varchar(45)"`
	UserAgent string                `gorm:"type:varchar(500)"`
	Metadata  string                `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (SecurityAuditEventModel) TableName() string {
	return "security_audit_events"
}

// ToDomain converts the persistence model to a domain SecurityAuditEvent
func (m *SecurityAuditEventModel) ToDomain() *access.SecurityAuditEvent {
	metadata := map[string]any{}
	if m.Metadata != "" {
		// Unparseable metadata degrades to empty rather than failing the read
		_ = json.Unmarshal([]byte(m.Metadata), &metadata)
	}

	return &access.SecurityAuditEvent{
		BaseEntity: m.BaseModel.ToDomain(),
		EventType:  m.EventType,
		UserID:     m.UserID,
		CompanyID:  m.CompanyID,
		Email:      m.Email,
		IPAddress:  m.IPAddress,
		UserAgent:  m.UserAgent,
		Metadata:   metadata,
	}
}

// FromDomain populates the persistence model from a domain SecurityAuditEvent
func (m *SecurityAuditEventModel) FromDomain(e *access.SecurityAuditEvent) error {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.EventType = e.EventType
	m.UserID = e.UserID
	m.CompanyID = e.CompanyID
	m.Email = e.Email
	m.IPAddress = e.IPAddress
	m.UserAgent = e.UserAgent

	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	m.Metadata = string(raw)
	return nil
}

// SecurityAuditEventModelFromDomain creates a new persistence model from a domain event
func SecurityAuditEventModelFromDomain(e *access.SecurityAuditEvent) (*SecurityAuditEventModel, error) {
	m := &SecurityAuditEventModel{}
	if err := m.FromDomain(e); err != nil {
		return nil, err
	}
	return m, nil
}
