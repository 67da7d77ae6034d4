package identity

import (
	"context"
	"errors"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
	}
}

// AuthService handles the primary authentication lane: registration and
// JWT-based login for owners and staff.
type AuthService struct {
	userRepo    identity.UserRepository
	companyRepo identity.CompanyRepository
	auditRepo   access.AuditRepository
	jwtService  *auth.JWTService
	config      AuthServiceConfig
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	companyRepo identity.CompanyRepository,
	auditRepo access.AuditRepository,
	jwtService *auth.JWTService,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		jwtService:  jwtService,
		config:      config,
		logger:      logger,
	}
}

// Register creates a new owner account with their first company
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}

	user, err := identity.NewUser(input.Email, input.Password, identity.UserRoleOwner)
	if err != nil {
		return nil, err
	}
	user.DisplayName = input.DisplayName

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	company, err := identity.NewCompany(input.CompanyName, user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, err
	}

	s.logger.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", company.ID.String()))

	return &RegisterResult{
		User:      UserToDTO(user),
		CompanyID: company.ID,
	}, nil
}

// Login authenticates a user and returns a token pair
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.recordLoginFailure(ctx, input.Email, "unknown_email")
			return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
		}
		return nil, err
	}

	if user.IsLocked() {
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}

	if !user.VerifyPassword(input.Password) {
		locked := user.RecordLoginFailure(s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Update(ctx, user); err != nil {
			s.logger.Error("Failed to persist login failure", zap.Error(err))
		}
		s.recordLoginFailure(ctx, user.Email, "wrong_password")
		if locked {
			s.logger.Warn("Account locked after repeated failures", zap.String("user_id", user.ID.String()))
		}
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	user.RecordLoginSuccess()
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Error("Failed to persist login success", zap.Error(err))
	}

	tokens, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	})
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_GENERATION_FAILED", "Failed to generate tokens")
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()))

	return &LoginResult{
		User:                  UserToDTO(user),
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt,
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.ErrNotAuthenticated
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.ErrNotAuthenticated
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, shared.ErrNotAuthenticated
	}

	tokens, err := s.jwtService.RefreshTokenPair(refreshToken, user.Email, string(user.Role))
	if err != nil {
		return nil, shared.ErrNotAuthenticated
	}

	return &LoginResult{
		User:                  UserToDTO(user),
		AccessToken:           tokens.AccessToken,
		RefreshToken:          tokens.RefreshToken,
		AccessTokenExpiresAt:  tokens.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokens.RefreshTokenExpiresAt,
	}, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, email, reason string) {
	event := access.NewSecurityAuditEvent(access.AuditLoginFailed).
		WithEmail(email).
		WithDetail("reason", reason)
	if err := s.auditRepo.Append(ctx, event); err != nil {
		s.logger.Error("Failed to append audit event", zap.Error(err))
	}
}
