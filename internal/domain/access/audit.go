package access

import (
	"time"

	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AuditEventType names one security-relevant occurrence
type AuditEventType string

const (
	AuditInviteCreated       AuditEventType = "INVITE_CREATED"
	AuditInviteResent        AuditEventType = "INVITE_RESENT"
	AuditInviteAccepted      AuditEventType = "INVITE_ACCEPTED"
	AuditInviteRevoked       AuditEventType = "INVITE_REVOKED"
	AuditInviteOTPFailed     AuditEventType = "INVITE_OTP_FAILED"
	AuditSessionCreated      AuditEventType = "ACCOUNTANT_SESSION_CREATED"
	AuditSessionDestroyed    AuditEventType = "ACCOUNTANT_SESSION_DELETED"
	AuditSessionExpired      AuditEventType = "ACCOUNTANT_SESSION_EXPIRED"
	AuditAccessGranted       AuditEventType = "COMPANY_ACCESS_GRANTED"
	AuditAccessRevoked       AuditEventType = "COMPANY_ACCESS_REVOKED"
	AuditDataExported        AuditEventType = "DATA_EXPORTED"
	AuditAccessDenied        AuditEventType = "ACCESS_DENIED"
	AuditPermissionChanged   AuditEventType = "PERMISSION_CHANGED"
	AuditMembershipSuspended AuditEventType = "MEMBERSHIP_SUSPENDED"
	AuditLoginFailed         AuditEventType = "LOGIN_FAILED"
)

// SecurityAuditEvent is one append-only row in the security audit log.
// Rows are never updated or deleted. UserID and CompanyID are optional
// because some events (failed OTP on an unknown invite) have neither.
type SecurityAuditEvent struct {
	shared.BaseEntity
	EventType AuditEventType
	UserID    *uuid.UUID
	CompanyID *uuid.UUID
	Email     string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// NewSecurityAuditEvent creates an audit event occurring now
func NewSecurityAuditEvent(eventType AuditEventType) *SecurityAuditEvent {
	return &SecurityAuditEvent{
		BaseEntity: shared.NewBaseEntity(),
		EventType:  eventType,
		Metadata:   map[string]any{},
	}
}

// WithUser attaches the acting user
func (e *SecurityAuditEvent) WithUser(userID uuid.UUID) *SecurityAuditEvent {
	if userID != uuid.Nil {
		e.UserID = &userID
	}
	return e
}

// WithCompany attaches the affected company
func (e *SecurityAuditEvent) WithCompany(companyID uuid.UUID) *SecurityAuditEvent {
	if companyID != uuid.Nil {
		e.CompanyID = &companyID
	}
	return e
}

// WithEmail attaches the subject email address
func (e *SecurityAuditEvent) WithEmail(email string) *SecurityAuditEvent {
	e.Email = email
	return e
}

// WithRequest attaches caller network details
func (e *SecurityAuditEvent) WithRequest(ip, userAgent string) *SecurityAuditEvent {
	e.IPAddress = ip
	e.UserAgent = userAgent
	return e
}

// WithDetail adds one metadata key
func (e *SecurityAuditEvent) WithDetail(key string, value any) *SecurityAuditEvent {
	if e.Metadata == nil {
		e.Metadata = map[string]any{}
	}
	e.Metadata[key] = value
	return e
}

// AuditFilter narrows audit log queries
type AuditFilter struct {
	CompanyID *uuid.UUID
	UserID    *uuid.UUID
	EventType *AuditEventType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
