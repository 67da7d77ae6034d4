package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/finbook/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// UserRole represents the system-level role of a principal
type UserRole string

const (
	UserRoleOwner          UserRole = "owner"           // Owns a company (tenant) and administers it
	UserRoleStaff          UserRole = "staff"           // Employee of a company
	UserRoleAccountant     UserRole = "accountant"      // External accountant, full access to granted companies
	UserRoleAccountantView UserRole = "accountant_view" // External accountant, read-only
	UserRoleAccountantEdit UserRole = "accountant_edit" // External accountant, read/write
	UserRoleSuperadmin     UserRole = "superadmin"      // Platform operator
)

// Password cost for bcrypt
const bcryptCost = 12

// User represents a principal: a single human identity independent of any
// company. It is the aggregate root for identity operations. Users are never
// deleted by the access subsystem, only referenced.
type User struct {
	shared.BaseAggregateRoot
	Email               string
	PasswordHash        string
	DisplayName         string
	Role                UserRole
	EmailVerified       bool
	OnboardingCompleted bool
	LastLoginAt         *time.Time
	FailedAttempts      int
	LockedUntil         *time.Time
}

// NewUser creates a new user registered through the primary signup flow
func NewUser(email, password string, role UserRole) (*User, error) {
	email, err := normalizeUserEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	passwordHash, err := hashPassword(password)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	user := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		PasswordHash:      passwordHash,
		Role:              role,
	}

	user.AddDomainEvent(NewUserCreatedEvent(user))

	return user, nil
}

// NewInvitedUser creates a minimal user provisioned at invite acceptance.
// The email was verified by the OTP exchange, so the account is created
// verified and onboarding is skipped. No password is set; such a user signs
// in via accountant sessions until they complete primary registration.
func NewInvitedUser(email string, role UserRole) (*User, error) {
	email, err := normalizeUserEmail(email)
	if err != nil {
		return nil, err
	}

	user := &User{
		BaseAggregateRoot:   shared.NewBaseAggregateRoot(),
		Email:               email,
		Role:                role,
		EmailVerified:       true,
		OnboardingCompleted: true,
	}

	user.AddDomainEvent(NewUserCreatedEvent(user))

	return user, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// SetPassword sets a new password
func (u *User) SetPassword(newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	passwordHash, err := hashPassword(newPassword)
	if err != nil {
		return shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	return nil
}

// MarkEmailVerified marks the user's email as verified
func (u *User) MarkEmailVerified() {
	u.EmailVerified = true
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

// RecordLoginSuccess records a successful primary login
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.FailedAttempts = 0
	u.UpdatedAt = now
	u.IncrementVersion()
}

// RecordLoginFailure records a failed login attempt.
// Returns true if the account should be locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.UpdatedAt = time.Now()
	u.IncrementVersion()

	if u.FailedAttempts >= maxAttempts {
		lockedUntil := time.Now().Add(lockDuration)
		u.LockedUntil = &lockedUntil
		return true
	}

	return false
}

// IsLocked returns true if the account is currently locked
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// IsAccountant returns true for any accountant role variant
func (u *User) IsAccountant() bool {
	switch u.Role {
	case UserRoleAccountant, UserRoleAccountantView, UserRoleAccountantEdit:
		return true
	}
	return false
}

// Validation functions

func normalizeUserEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", shared.NewDomainError("EMAIL_REQUIRED", "Email cannot be empty")
	}
	if err := validateEmail(email); err != nil {
		return "", err
	}
	return email, nil
}

func validatePassword(password string) error {
	if password == "" {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot be empty")
	}
	if len(password) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 128 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 128 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("EMAIL_INVALID", "Email cannot exceed 200 characters")
	}

	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("EMAIL_INVALID", "Invalid email format")
	}

	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
