package access

import (
	"regexp"
	"strings"

	"github.com/finbook/backend/internal/domain/shared"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail lowercases and trims an email address. Every email
// comparison in the access subsystem goes through this, so invite matching
// and duplicate detection are case-insensitive by construction.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", shared.NewDomainError("EMAIL_REQUIRED", "Email cannot be empty")
	}
	if len(email) > 200 {
		return "", shared.NewDomainError("EMAIL_INVALID", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return "", shared.NewDomainError("EMAIL_INVALID", "Invalid email format")
	}
	return email, nil
}
