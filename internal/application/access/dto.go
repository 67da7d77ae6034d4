package access

import (
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/google/uuid"
)

// RequestMeta carries caller network details through the services for
// auditing. Both fields may be empty.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// CreateInviteInput is the input for creating an accountant invite
type CreateInviteInput struct {
	CompanyID       uuid.UUID
	Email           string
	Permissions     access.PermissionSet
	Role            access.MembershipRole
	PersonalMessage string
	Meta            RequestMeta
}

// InviteDTO is the outward representation of an invite. The OTP hash never
// leaves the service layer.
type InviteDTO struct {
	ID              uuid.UUID            `json:"id"`
	CompanyID       uuid.UUID            `json:"company_id"`
	Email           string               `json:"email"`
	Status          access.InviteStatus  `json:"status"`
	Permissions     access.PermissionSet `json:"permissions"`
	ExpiresAt       time.Time            `json:"expires_at"`
	OTPExpiresAt    time.Time            `json:"otp_expires_at"`
	InvitedBy       uuid.UUID            `json:"invited_by"`
	AcceptedAt      *time.Time           `json:"accepted_at,omitempty"`
	SendCount       int                  `json:"send_count"`
	PersonalMessage string               `json:"personal_message,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
}

// inviteToDTO maps an invite to its DTO, materializing read-time expiry in
// the reported status.
func inviteToDTO(i *access.Invite, now time.Time) *InviteDTO {
	return &InviteDTO{
		ID:              i.ID,
		CompanyID:       i.CompanyID,
		Email:           i.Email,
		Status:          i.EffectiveStatus(now),
		Permissions:     i.Permissions,
		ExpiresAt:       i.ExpiresAt,
		OTPExpiresAt:    i.OTPExpiresAt,
		InvitedBy:       i.InvitedBy,
		AcceptedAt:      i.AcceptedAt,
		SendCount:       i.SendCount,
		PersonalMessage: i.PersonalMessage,
		CreatedAt:       i.CreatedAt,
	}
}

// InvitePreviewDTO is what the acceptance page sees before the OTP exchange.
// It deliberately exposes less than InviteDTO.
type InvitePreviewDTO struct {
	ID           uuid.UUID           `json:"id"`
	CompanyName  string              `json:"company_name"`
	Email        string              `json:"email"`
	Status       access.InviteStatus `json:"status"`
	OTPExpiresAt time.Time           `json:"otp_expires_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// AcceptInviteInput is the input for the OTP exchange. Token is the opaque
// link token from the invite mail; the email is read from the invite row,
// never from the caller.
type AcceptInviteInput struct {
	Token   string
	OTPCode string
	Meta    RequestMeta
}

// AcceptInviteResult is returned on successful acceptance. SessionToken is
// the plaintext opaque token destined for the accountant session cookie.
type AcceptInviteResult struct {
	SessionToken     string               `json:"-"`
	SessionExpiresAt time.Time            `json:"session_expires_at"`
	UserID           uuid.UUID            `json:"user_id"`
	CompanyID        uuid.UUID            `json:"company_id"`
	CompanyName      string               `json:"company_name"`
	Permissions      access.PermissionSet `json:"permissions"`
	UserCreated      bool                 `json:"user_created"`
}

// SessionKind tags which authentication lane produced a resolved session
type SessionKind string

const (
	SessionKindPrimary    SessionKind = "primary"
	SessionKindAccountant SessionKind = "accountant"
)

// ResolvedSession is the tagged union produced by the combined resolver.
// Exactly one lane wins; the two are never merged. For the accountant lane,
// CompanyID is the pinned company and SessionID identifies the store row.
type ResolvedSession struct {
	Kind                SessionKind
	UserID              uuid.UUID
	Email               string
	Role                string
	OnboardingCompleted bool

	// Accountant lane only
	CompanyID uuid.UUID
	SessionID uuid.UUID
}

// IsAccountant reports whether the accountant lane won
func (s *ResolvedSession) IsAccountant() bool {
	return s.Kind == SessionKindAccountant
}

// CompanyContext is the per-request authorization result: the company the
// request operates on and what the caller may do there.
type CompanyContext struct {
	CompanyID   uuid.UUID             `json:"company_id"`
	CompanyName string                `json:"company_name"`
	UserID      uuid.UUID             `json:"user_id"`
	Role        access.MembershipRole `json:"role"`
	IsOwner     bool                  `json:"is_owner"`
	Permissions access.PermissionSet  `json:"permissions"`
}

// AccessibleCompanyDTO is one entry in a user's company switcher
type AccessibleCompanyDTO struct {
	CompanyID   uuid.UUID             `json:"company_id"`
	CompanyName string                `json:"company_name"`
	Role        access.MembershipRole `json:"role"`
	IsOwner     bool                  `json:"is_owner"`
	Permissions access.PermissionSet  `json:"permissions"`
}

// MembershipDTO is the outward representation of a membership
type MembershipDTO struct {
	ID          uuid.UUID               `json:"id"`
	UserID      uuid.UUID               `json:"user_id"`
	Email       string                  `json:"email,omitempty"`
	CompanyID   uuid.UUID               `json:"company_id"`
	Role        access.MembershipRole   `json:"role"`
	Status      access.MembershipStatus `json:"status"`
	Permissions access.PermissionSet    `json:"permissions"`
	CreatedAt   time.Time               `json:"created_at"`
}

func membershipToDTO(m *access.Membership) *MembershipDTO {
	return &MembershipDTO{
		ID:          m.ID,
		UserID:      m.UserID,
		CompanyID:   m.CompanyID,
		Role:        m.Role,
		Status:      m.Status,
		Permissions: m.Permissions,
		CreatedAt:   m.CreatedAt,
	}
}

// AuditEventDTO is the outward representation of one audit log row
type AuditEventDTO struct {
	ID        uuid.UUID             `json:"id"`
	EventType access.AuditEventType `json:"event_type"`
	UserID    *uuid.UUID            `json:"user_id,omitempty"`
	CompanyID *uuid.UUID            `json:"company_id,omitempty"`
	Email     string                `json:"email,omitempty"`
	IPAddress string                `json:"ip_address,omitempty"`
	Metadata  map[string]any        `json:"metadata,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
}

func auditEventToDTO(e *access.SecurityAuditEvent) *AuditEventDTO {
	return &AuditEventDTO{
		ID:        e.ID,
		EventType: e.EventType,
		UserID:    e.UserID,
		CompanyID: e.CompanyID,
		Email:     e.Email,
		IPAddress: e.IPAddress,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}
