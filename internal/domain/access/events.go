package access

import (
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the access domain
const (
	EventTypeInviteCreated        = "access.invite.created"
	EventTypeInviteAccepted       = "access.invite.accepted"
	EventTypeInviteRevoked        = "access.invite.revoked"
	EventTypeMembershipGranted    = "access.membership.granted"
	EventTypeMembershipSuspended  = "access.membership.suspended"
)

// InviteCreatedEvent is raised when an owner invites an accountant
type InviteCreatedEvent struct {
	shared.BaseDomainEvent
	Email     string    `json:"email"`
	InvitedBy uuid.UUID `json:"invited_by"`
}

// NewInviteCreatedEvent creates a new InviteCreatedEvent
func NewInviteCreatedEvent(invite *Invite) *InviteCreatedEvent {
	return &InviteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInviteCreated, "Invite", invite.ID, invite.CompanyID),
		Email:           invite.Email,
		InvitedBy:       invite.InvitedBy,
	}
}

// InviteAcceptedEvent is raised when an accountant completes the OTP exchange
type InviteAcceptedEvent struct {
	shared.BaseDomainEvent
	Email      string    `json:"email"`
	AcceptedBy uuid.UUID `json:"accepted_by"`
}

// NewInviteAcceptedEvent creates a new InviteAcceptedEvent
func NewInviteAcceptedEvent(invite *Invite, acceptedBy uuid.UUID) *InviteAcceptedEvent {
	return &InviteAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInviteAccepted, "Invite", invite.ID, invite.CompanyID),
		Email:           invite.Email,
		AcceptedBy:      acceptedBy,
	}
}

// InviteRevokedEvent is raised when an owner withdraws a pending invite
type InviteRevokedEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewInviteRevokedEvent creates a new InviteRevokedEvent
func NewInviteRevokedEvent(invite *Invite) *InviteRevokedEvent {
	return &InviteRevokedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInviteRevoked, "Invite", invite.ID, invite.CompanyID),
		Email:           invite.Email,
	}
}

// MembershipGrantedEvent is raised when a user gains access to a company
type MembershipGrantedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID      `json:"user_id"`
	Role   MembershipRole `json:"role"`
}

// NewMembershipGrantedEvent creates a new MembershipGrantedEvent
func NewMembershipGrantedEvent(m *Membership) *MembershipGrantedEvent {
	return &MembershipGrantedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMembershipGranted, "Membership", m.ID, m.CompanyID),
		UserID:          m.UserID,
		Role:            m.Role,
	}
}

// MembershipSuspendedEvent is raised when a membership is suspended
type MembershipSuspendedEvent struct {
	shared.BaseDomainEvent
	UserID uuid.UUID `json:"user_id"`
}

// NewMembershipSuspendedEvent creates a new MembershipSuspendedEvent
func NewMembershipSuspendedEvent(m *Membership) *MembershipSuspendedEvent {
	return &MembershipSuspendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeMembershipSuspended, "Membership", m.ID, m.CompanyID),
		UserID:          m.UserID,
	}
}
