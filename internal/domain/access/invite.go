package access

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InviteStatus represents the lifecycle state of an accountant invite
type InviteStatus string

const (
	InviteStatusPending  InviteStatus = "PENDING"
	InviteStatusAccepted InviteStatus = "ACCEPTED"
	InviteStatusExpired  InviteStatus = "EXPIRED"
	InviteStatusRevoked  InviteStatus = "REVOKED"
)

// IsTerminal reports whether the status admits no further transitions.
// Only PENDING is non-terminal.
func (s InviteStatus) IsTerminal() bool {
	return s != InviteStatusPending
}

// Default lifetimes. The invite outlives its OTP: a fresh code can be
// resent against the same pending invite until the invite itself expires.
const (
	DefaultInviteTTL = 7 * 24 * time.Hour
	DefaultOTPTTL    = 15 * time.Minute
)

// Invite link tokens carry 32 bytes of entropy, base64url encoded. Only
// the SHA-256 digest is persisted; the plaintext travels in the invite
// mail and nowhere else.
const inviteTokenBytes = 32

// GenerateInviteToken produces the opaque single-use link token and the
// digest under which the invite can be looked up.
func GenerateInviteToken() (token string, digest string, err error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashInviteToken(token), nil
}

// HashInviteToken returns the hex SHA-256 digest of a link token, the
// lookup key for the invite store.
func HashInviteToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Invite is the aggregate for granting an external accountant access to one
// company. The grant is pinned to a single company at creation time and
// carries the permission vector the resulting membership will receive.
//
// Expiry is evaluated at read time against ExpiresAt; the EXPIRED status is
// materialized lazily when an expired pending invite is observed.
type Invite struct {
	shared.BaseAggregateRoot
	CompanyID       uuid.UUID
	Email           string
	TokenHash       string
	Status          InviteStatus
	Permissions     PermissionSet
	OTPHash         string
	OTPExpiresAt    time.Time
	ExpiresAt       time.Time
	InvitedBy       uuid.UUID
	AcceptedBy      *uuid.UUID
	AcceptedAt      *time.Time
	RevokedAt       *time.Time
	LastSentAt      time.Time
	SendCount       int
	PersonalMessage string
}

// NewInvite creates a pending invite for the given email and company.
// The email is normalized before storage; tokenHash is the digest of the
// link token from GenerateInviteToken, otpHash the bcrypt hash of the
// code that was (or will be) emailed to the accountant.
func NewInvite(companyID uuid.UUID, email string, invitedBy uuid.UUID, perms PermissionSet, tokenHash, otpHash string, inviteTTL, otpTTL time.Duration) (*Invite, error) {
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Company ID cannot be empty")
	}
	if invitedBy == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Inviter user ID cannot be empty")
	}
	if tokenHash == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invite token hash cannot be empty")
	}

	normalized, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if !perms.CanRead {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invite permissions must include read access")
	}

	if inviteTTL <= 0 {
		inviteTTL = DefaultInviteTTL
	}
	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}

	now := time.Now()
	invite := &Invite{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CompanyID:         companyID,
		Email:             normalized,
		TokenHash:         tokenHash,
		Status:            InviteStatusPending,
		Permissions:       perms,
		OTPHash:           otpHash,
		OTPExpiresAt:      now.Add(otpTTL),
		ExpiresAt:         now.Add(inviteTTL),
		InvitedBy:         invitedBy,
		LastSentAt:        now,
		SendCount:         1,
	}

	invite.AddDomainEvent(NewInviteCreatedEvent(invite))

	return invite, nil
}

// EffectiveStatus evaluates expiry at read time: a pending invite past its
// ExpiresAt is reported as EXPIRED even before the row is updated. Terminal
// statuses are returned as stored; an accepted invite never flips to
// expired no matter how old it is.
func (i *Invite) EffectiveStatus(now time.Time) InviteStatus {
	if i.Status == InviteStatusPending && now.After(i.ExpiresAt) {
		return InviteStatusExpired
	}
	return i.Status
}

// IsOTPExpired reports whether the current OTP window has passed.
// The OTP window is independent of the invite window and always the
// shorter of the two.
func (i *Invite) IsOTPExpired(now time.Time) bool {
	return now.After(i.OTPExpiresAt)
}

// Accept transitions the invite to ACCEPTED. Callers must verify the OTP
// first; Accept itself only enforces the state machine.
func (i *Invite) Accept(userID uuid.UUID, now time.Time) error {
	switch i.EffectiveStatus(now) {
	case InviteStatusPending:
	case InviteStatusAccepted:
		return shared.NewDomainError("INVITE_USED", "Invite has already been accepted")
	case InviteStatusExpired:
		return shared.NewDomainError("INVITE_EXPIRED", "Invite has expired")
	case InviteStatusRevoked:
		return shared.NewDomainError("INVITE_REVOKED", "Invite has been revoked")
	}

	i.Status = InviteStatusAccepted
	i.AcceptedBy = &userID
	i.AcceptedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInviteAcceptedEvent(i, userID))

	return nil
}

// Revoke transitions a pending invite to REVOKED. Revoking an already
// terminal invite is rejected so the caller can report an accurate error.
func (i *Invite) Revoke(now time.Time) error {
	switch i.EffectiveStatus(now) {
	case InviteStatusPending:
	case InviteStatusAccepted:
		return shared.NewDomainError("INVITE_USED", "Invite has already been accepted")
	case InviteStatusExpired:
		return shared.NewDomainError("INVITE_EXPIRED", "Invite has expired")
	case InviteStatusRevoked:
		return shared.NewDomainError("INVITE_REVOKED", "Invite has already been revoked")
	}

	i.Status = InviteStatusRevoked
	i.RevokedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewInviteRevokedEvent(i))

	return nil
}

// MarkExpired materializes read-time expiry into the stored row. Only valid
// on a pending invite past its deadline.
func (i *Invite) MarkExpired(now time.Time) error {
	if i.Status != InviteStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending invites can be marked expired")
	}
	if !now.After(i.ExpiresAt) {
		return shared.NewDomainError("INVALID_STATE", "Invite has not expired yet")
	}

	i.Status = InviteStatusExpired
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// RefreshOTP replaces the OTP hash and opens a new OTP window, for resends.
// Only valid while the invite is still pending.
func (i *Invite) RefreshOTP(otpHash string, otpTTL time.Duration, now time.Time) error {
	switch i.EffectiveStatus(now) {
	case InviteStatusPending:
	case InviteStatusAccepted:
		return shared.NewDomainError("INVITE_USED", "Invite has already been accepted")
	case InviteStatusExpired:
		return shared.NewDomainError("INVITE_EXPIRED", "Invite has expired")
	case InviteStatusRevoked:
		return shared.NewDomainError("INVITE_REVOKED", "Invite has been revoked")
	}

	if otpTTL <= 0 {
		otpTTL = DefaultOTPTTL
	}

	i.OTPHash = otpHash
	i.OTPExpiresAt = now.Add(otpTTL)
	i.LastSentAt = now
	i.SendCount++
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// MatchesEmail compares the given address against the invite after
// normalization, so matching is case-insensitive.
func (i *Invite) MatchesEmail(email string) bool {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return false
	}
	return i.Email == normalized
}
