package identity

import (
	"time"

	"github.com/finbook/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// RegisterInput is the input for primary signup
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	CompanyName string
}

// LoginInput is the input for primary login
type LoginInput struct {
	Email    string
	Password string
}

// UserDTO is the outward representation of a user
type UserDTO struct {
	ID                  uuid.UUID         `json:"id"`
	Email               string            `json:"email"`
	DisplayName         string            `json:"display_name,omitempty"`
	Role                identity.UserRole `json:"role"`
	EmailVerified       bool              `json:"email_verified"`
	OnboardingCompleted bool              `json:"onboarding_completed"`
	CreatedAt           time.Time         `json:"created_at"`
}

// UserToDTO maps a domain user to its DTO
func UserToDTO(u *identity.User) *UserDTO {
	return &UserDTO{
		ID:                  u.ID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		Role:                u.Role,
		EmailVerified:       u.EmailVerified,
		OnboardingCompleted: u.OnboardingCompleted,
		CreatedAt:           u.CreatedAt,
	}
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	User                  *UserDTO  `json:"user"`
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// RegisterResult is returned on successful signup
type RegisterResult struct {
	User      *UserDTO  `json:"user"`
	CompanyID uuid.UUID `json:"company_id"`
}
