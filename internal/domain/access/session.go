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

// Session tokens carry 32 bytes of entropy, base64url encoded. Only the
// SHA-256 digest of the token is persisted; the plaintext lives in the
// accountant's cookie and nowhere else.
const sessionTokenBytes = 32

// DefaultSessionTTL is the absolute lifetime of an accountant session.
// LastAccessAt is refreshed on every resolve but does not extend expiry.
const DefaultSessionTTL = 30 * 24 * time.Hour

// GenerateSessionToken produces an opaque session token and the digest
// under which it is stored.
func GenerateSessionToken() (token string, digest string, err error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token = base64.RawURLEncoding.EncodeToString(buf)
	return token, HashSessionToken(token), nil
}

// HashSessionToken returns the hex SHA-256 digest of a token, the lookup
// key for the session store.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// AccountantSession is a server-side session for an accountant, pinned to
// exactly one company. It is the second, independent authentication lane
// next to the primary JWT; the two are never merged.
type AccountantSession struct {
	shared.BaseAggregateRoot
	TokenHash    string
	UserID       uuid.UUID
	CompanyID    uuid.UUID
	ExpiresAt    time.Time
	LastAccessAt time.Time
	IPAddress    string
	UserAgent    string
}

// NewAccountantSession creates a session bound to the given user and
// company. The caller supplies the token digest from GenerateSessionToken.
func NewAccountantSession(tokenHash string, userID, companyID uuid.UUID, ttl time.Duration) (*AccountantSession, error) {
	if tokenHash == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Session token hash cannot be empty")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "User ID cannot be empty")
	}
	if companyID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Company ID cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	now := time.Now()
	return &AccountantSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TokenHash:         tokenHash,
		UserID:            userID,
		CompanyID:         companyID,
		ExpiresAt:         now.Add(ttl),
		LastAccessAt:      now,
	}, nil
}

// IsExpired reports whether the session is past its absolute deadline
func (s *AccountantSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Touch refreshes the last-access timestamp
func (s *AccountantSession) Touch(now time.Time) {
	s.LastAccessAt = now
	s.UpdatedAt = now
}
