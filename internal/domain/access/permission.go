package access

import (
	"github.com/finbook/backend/internal/domain/shared"
)

// Capability identifies one gated action category
type Capability string

const (
	CapabilityRead   Capability = "read"   // View company data
	CapabilityEdit   Capability = "edit"   // Create and modify records
	CapabilityExport Capability = "export" // Download reports and exports
	CapabilityBTW    Capability = "btw"    // File and manage VAT (BTW) returns
)

// PermissionSet is the per-membership capability vector. It is stored
// denormalized on the membership row rather than derived from the role, so
// an owner can tune an individual accountant's grant without a role change.
type PermissionSet struct {
	CanRead   bool `json:"can_read"`
	CanEdit   bool `json:"can_edit"`
	CanExport bool `json:"can_export"`
	CanBTW    bool `json:"can_btw"`
}

// FullPermissions returns a vector with every capability enabled,
// the grant owners and staff implicitly hold on their own company.
func FullPermissions() PermissionSet {
	return PermissionSet{CanRead: true, CanEdit: true, CanExport: true, CanBTW: true}
}

// ReadOnlyPermissions returns a vector with only read enabled
func ReadOnlyPermissions() PermissionSet {
	return PermissionSet{CanRead: true}
}

// Allows reports whether the vector grants the given capability.
// Unknown capabilities are denied.
func (p PermissionSet) Allows(c Capability) bool {
	switch c {
	case CapabilityRead:
		return p.CanRead
	case CapabilityEdit:
		return p.CanEdit
	case CapabilityExport:
		return p.CanExport
	case CapabilityBTW:
		return p.CanBTW
	}
	return false
}

// Require returns a FORBIDDEN domain error when the vector does not grant
// the capability, nil otherwise. Handlers pass the error straight through.
func (p PermissionSet) Require(c Capability) error {
	if !p.Allows(c) {
		return shared.NewDomainError("FORBIDDEN", "Missing permission: "+string(c))
	}
	return nil
}
