package access

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InviteRepository defines persistence operations for invites. The public
// acceptance flow looks invites up by link-token digest, never by raw id.
type InviteRepository interface {
	Create(ctx context.Context, invite *Invite) error
	Update(ctx context.Context, invite *Invite) error
	FindByID(ctx context.Context, id uuid.UUID) (*Invite, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*Invite, error)
	FindPendingByCompanyAndEmail(ctx context.Context, companyID uuid.UUID, email string) (*Invite, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Invite, error)
	ListPendingByEmail(ctx context.Context, email string) ([]*Invite, error)
	// TransitionStatus performs a compare-and-set on the invite status.
	// It returns ErrConcurrencyConflict when the stored status no longer
	// matches from, which is how concurrent accepts lose the race.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to InviteStatus) error
	// AcceptPending flips a pending invite to ACCEPTED and records who
	// accepted it in the same compare-and-set, so a raced loser that
	// re-reads the row always sees the winner's accepted_by.
	AcceptPending(ctx context.Context, id, userID uuid.UUID, at time.Time) error
}

// MembershipRepository defines persistence operations for memberships
type MembershipRepository interface {
	Create(ctx context.Context, membership *Membership) error
	Update(ctx context.Context, membership *Membership) error
	// Upsert creates the membership or, when the (user, company) pair
	// already exists, refreshes its role, status and permissions in place.
	Upsert(ctx context.Context, membership *Membership) error
	FindByID(ctx context.Context, id uuid.UUID) (*Membership, error)
	FindByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*Membership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Membership, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Membership, error)
	// Delete removes the membership row entirely. Used only for explicit
	// revocation; suspension keeps the row.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository defines persistence operations for accountant sessions.
// Lookups are keyed by token digest, never by plaintext token.
type SessionRepository interface {
	Create(ctx context.Context, session *AccountantSession) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*AccountantSession, error)
	Touch(ctx context.Context, id uuid.UUID, lastAccessAt time.Time) error
	// Delete removes a session by token digest. Deleting a session that
	// does not exist is not an error.
	Delete(ctx context.Context, tokenHash string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeleteExpired removes every session past its deadline and reports
	// how many rows were swept.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditRepository defines persistence for the append-only security audit log
type AuditRepository interface {
	Append(ctx context.Context, event *SecurityAuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]*SecurityAuditEvent, int64, error)
}
