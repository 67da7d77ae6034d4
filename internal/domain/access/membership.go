package access

import (
	"time"

	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MembershipRole describes the relationship between a user and a company
type MembershipRole string

const (
	MembershipRoleOwner          MembershipRole = "OWNER"
	MembershipRoleStaff          MembershipRole = "STAFF"
	MembershipRoleAccountant     MembershipRole = "ACCOUNTANT"
	MembershipRoleAccountantView MembershipRole = "ACCOUNTANT_VIEW"
	MembershipRoleAccountantEdit MembershipRole = "ACCOUNTANT_EDIT"
)

// MembershipStatus is the lifecycle state of a membership
type MembershipStatus string

const (
	MembershipStatusActive    MembershipStatus = "ACTIVE"
	MembershipStatusSuspended MembershipStatus = "SUSPENDED"
)

// IsAccountantRole reports whether the role is one of the external
// accountant variants.
func (r MembershipRole) IsAccountantRole() bool {
	switch r {
	case MembershipRoleAccountant, MembershipRoleAccountantView, MembershipRoleAccountantEdit:
		return true
	}
	return false
}

// DefaultPermissionsForRole returns the capability vector a role receives
// when no explicit vector is supplied.
func DefaultPermissionsForRole(role MembershipRole) PermissionSet {
	switch role {
	case MembershipRoleOwner, MembershipRoleStaff, MembershipRoleAccountant, MembershipRoleAccountantEdit:
		return FullPermissions()
	case MembershipRoleAccountantView:
		return ReadOnlyPermissions()
	}
	return PermissionSet{}
}

// Membership links one user to one company with a role and a capability
// vector. The (UserID, CompanyID) pair is unique; re-accepting an invite
// for an existing pair updates the row instead of duplicating it.
type Membership struct {
	shared.BaseAggregateRoot
	UserID      uuid.UUID
	CompanyID   uuid.UUID
	Role        MembershipRole
	Status      MembershipStatus
	Permissions PermissionSet
	GrantedBy   *uuid.UUID
	InviteID    *uuid.UUID
}

// NewMembership creates an active membership
func NewMembership(userID, companyID uuid.UUID, role MembershipRole, perms PermissionSet) (*Membership, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Company ID cannot be empty")
	}

	m := &Membership{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		CompanyID:         companyID,
		Role:              role,
		Status:            MembershipStatusActive,
		Permissions:       perms,
	}

	m.AddDomainEvent(NewMembershipGrantedEvent(m))

	return m, nil
}

// NewMembershipFromInvite creates the membership produced by accepting an
// invite, carrying the invite's permission vector and provenance.
func NewMembershipFromInvite(userID uuid.UUID, invite *Invite, role MembershipRole) (*Membership, error) {
	m, err := NewMembership(userID, invite.CompanyID, role, invite.Permissions)
	if err != nil {
		return nil, err
	}
	inviteID := invite.ID
	m.GrantedBy = &invite.InvitedBy
	m.InviteID = &inviteID
	return m, nil
}

// IsActive reports whether the membership currently grants access
func (m *Membership) IsActive() bool {
	return m.Status == MembershipStatusActive
}

// Suspend suspends the membership without deleting it, so the grant can be
// restored with its permission vector intact.
func (m *Membership) Suspend() error {
	if m.Status == MembershipStatusSuspended {
		return shared.NewDomainError("INVALID_STATE", "Membership is already suspended")
	}

	m.Status = MembershipStatusSuspended
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	m.AddDomainEvent(NewMembershipSuspendedEvent(m))

	return nil
}

// Reinstate reactivates a suspended membership
func (m *Membership) Reinstate() error {
	if m.Status == MembershipStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Membership is already active")
	}

	m.Status = MembershipStatusActive
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}

// UpdatePermissions replaces the capability vector
func (m *Membership) UpdatePermissions(perms PermissionSet) error {
	if !perms.CanRead {
		return shared.NewDomainError("VALIDATION_ERROR", "Membership permissions must include read access")
	}

	m.Permissions = perms
	m.UpdatedAt = time.Now()
	m.IncrementVersion()

	return nil
}
