package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/cache"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/infrastructure/email"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InviteService drives the accountant invite lifecycle: create, resend,
// accept via OTP exchange, revoke. Every state change is audited.
type InviteService struct {
	inviteRepo     access.InviteRepository
	membershipRepo access.MembershipRepository
	userRepo       identity.UserRepository
	companyRepo    identity.CompanyRepository
	sessionService *SessionService
	auditService   *AuditService
	mailer         email.Mailer
	limiter        cache.AttemptLimiter
	cfg            config.InviteConfig
	logger         *zap.Logger
}

// NewInviteService creates a new invite service
func NewInviteService(
	inviteRepo access.InviteRepository,
	membershipRepo access.MembershipRepository,
	userRepo identity.UserRepository,
	companyRepo identity.CompanyRepository,
	sessionService *SessionService,
	auditService *AuditService,
	mailer email.Mailer,
	limiter cache.AttemptLimiter,
	cfg config.InviteConfig,
	logger *zap.Logger,
) *InviteService {
	return &InviteService{
		inviteRepo:     inviteRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		companyRepo:    companyRepo,
		sessionService: sessionService,
		auditService:   auditService,
		mailer:         mailer,
		limiter:        limiter,
		cfg:            cfg,
		logger:         logger,
	}
}

// CreateInvite creates a pending invite and mails the OTP code to the
// accountant. The actor must own the company. An existing pending invite
// for the same (company, email) pair blocks creation; use ResendOTP instead.
func (s *InviteService) CreateInvite(ctx context.Context, actorUserID uuid.UUID, input CreateInviteInput) (*InviteDTO, error) {
	company, err := s.companyRepo.FindByID(ctx, input.CompanyID)
	if err != nil {
		return nil, err
	}
	if !company.IsOwnedBy(actorUserID) {
		s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditAccessDenied).
			WithUser(actorUserID).
			WithCompany(input.CompanyID).
			WithRequest(input.Meta.IPAddress, input.Meta.UserAgent).
			WithDetail("operation", "create_invite"))
		return nil, shared.ErrNoAccess
	}

	normalized, err := access.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}

	if _, err := s.inviteRepo.FindPendingByCompanyAndEmail(ctx, input.CompanyID, normalized); err == nil {
		return nil, shared.NewDomainError("INVITE_ALREADY_PENDING", "A pending invite for this email already exists")
	} else if !isInviteNotFound(err) {
		return nil, err
	}

	perms := input.Permissions
	if perms == (access.PermissionSet{}) {
		role := input.Role
		if role == "" {
			role = access.MembershipRoleAccountant
		}
		perms = access.DefaultPermissionsForRole(role)
	}

	code, otpHash, err := access.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare invite: %w", err)
	}
	linkToken, tokenHash, err := access.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare invite: %w", err)
	}

	invite, err := access.NewInvite(input.CompanyID, normalized, actorUserID, perms, tokenHash, otpHash, s.cfg.TTL, s.cfg.OTPTTL)
	if err != nil {
		return nil, err
	}
	invite.PersonalMessage = input.PersonalMessage

	if err := s.inviteRepo.Create(ctx, invite); err != nil {
		return nil, err
	}

	inviter, err := s.userRepo.FindByID(ctx, actorUserID)
	inviterName := ""
	if err == nil {
		inviterName = inviter.DisplayName
		if inviterName == "" {
			inviterName = inviter.Email
		}
	}

	if err := s.sendInviteMail(ctx, invite, company.Name, inviterName, linkToken, code); err != nil {
		s.logger.Error("Failed to send invite mail",
			zap.String("invite_id", invite.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INVITE_MAIL_FAILED", "Failed to send the invite email")
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditInviteCreated).
		WithUser(actorUserID).
		WithCompany(invite.CompanyID).
		WithEmail(invite.Email).
		WithRequest(input.Meta.IPAddress, input.Meta.UserAgent).
		WithDetail("invite_id", invite.ID.String()))

	s.logger.Info("Invite created",
		zap.String("invite_id", invite.ID.String()),
		zap.String("company_id", invite.CompanyID.String()))

	return inviteToDTO(invite, time.Now()), nil
}

// ValidateInvite resolves the opaque link token to the limited view the
// acceptance page needs. Expiry is evaluated at read time; an expired
// pending invite is materialized before being reported.
func (s *InviteService) ValidateInvite(ctx context.Context, token string) (*InvitePreviewDTO, error) {
	invite, err := s.findByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.materializeExpiry(ctx, invite, now)

	companyName := ""
	if company, err := s.companyRepo.FindByID(ctx, invite.CompanyID); err == nil {
		companyName = company.Name
	}

	return &InvitePreviewDTO{
		ID:           invite.ID,
		CompanyName:  companyName,
		Email:        invite.Email,
		Status:       invite.EffectiveStatus(now),
		OTPExpiresAt: invite.OTPExpiresAt,
		ExpiresAt:    invite.ExpiresAt,
	}, nil
}

// ResendOTP issues a fresh OTP on a pending invite and mails it. Resends
// are throttled per invite.
func (s *InviteService) ResendOTP(ctx context.Context, actorUserID, inviteID uuid.UUID, meta RequestMeta) (*InviteDTO, error) {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return nil, err
	}

	company, err := s.companyRepo.FindByID(ctx, invite.CompanyID)
	if err != nil {
		return nil, err
	}
	if !company.IsOwnedBy(actorUserID) {
		return nil, shared.ErrNoAccess
	}

	now := time.Now()
	if invite.SendCount >= s.cfg.MaxResends {
		return nil, shared.NewDomainError("RATE_LIMITED", "Maximum number of resends reached for this invite")
	}
	if now.Sub(invite.LastSentAt) < s.cfg.ResendMinInterval {
		return nil, shared.NewDomainError("RATE_LIMITED", "Please wait before resending the code")
	}

	code, otpHash, err := access.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare invite: %w", err)
	}
	linkToken, tokenHash, err := access.GenerateInviteToken()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare invite: %w", err)
	}

	if err := invite.RefreshOTP(otpHash, s.cfg.OTPTTL, now); err != nil {
		return nil, err
	}
	// Resending rotates the link token too, so the old mail's link dies
	// with its code.
	invite.TokenHash = tokenHash
	if err := s.inviteRepo.Update(ctx, invite); err != nil {
		return nil, err
	}

	inviterName := ""
	if inviter, err := s.userRepo.FindByID(ctx, invite.InvitedBy); err == nil {
		inviterName = inviter.DisplayName
		if inviterName == "" {
			inviterName = inviter.Email
		}
	}

	if err := s.sendInviteMail(ctx, invite, company.Name, inviterName, linkToken, code); err != nil {
		s.logger.Error("Failed to resend invite mail",
			zap.String("invite_id", invite.ID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("INVITE_MAIL_FAILED", "Failed to send the invite email")
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditInviteResent).
		WithUser(actorUserID).
		WithCompany(invite.CompanyID).
		WithEmail(invite.Email).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("invite_id", invite.ID.String()).
		WithDetail("send_count", invite.SendCount))

	return inviteToDTO(invite, now), nil
}

// AcceptInvite performs the OTP exchange. On success the invite flips to
// ACCEPTED, a membership is upserted, a user is provisioned when the email
// is unknown, and a fresh accountant session is created.
//
// Accepting an invite that the same email already accepted is idempotent:
// the caller gets a new session against the existing membership instead of
// an error, so a double-submitted form never strands the accountant.
func (s *InviteService) AcceptInvite(ctx context.Context, input AcceptInviteInput) (*AcceptInviteResult, error) {
	invite, err := s.findByToken(ctx, input.Token)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	switch invite.EffectiveStatus(now) {
	case access.InviteStatusPending:
	case access.InviteStatusAccepted:
		return s.acceptIdempotent(ctx, invite, input.Meta)
	case access.InviteStatusExpired:
		s.materializeExpiry(ctx, invite, now)
		return nil, shared.NewDomainError("INVITE_EXPIRED", "Invite has expired")
	case access.InviteStatusRevoked:
		return nil, shared.NewDomainError("INVITE_REVOKED", "Invite has been revoked")
	}

	attemptKey := "otp:" + invite.ID.String()
	attempts, err := s.limiter.Count(ctx, attemptKey)
	if err != nil {
		s.logger.Warn("Attempt limiter unavailable", zap.Error(err))
	} else if attempts >= int64(s.cfg.MaxOTPAttempts) {
		s.recordOTPFailure(ctx, invite, invite.Email, input.Meta, "too_many_attempts")
		return nil, shared.NewDomainError("RATE_LIMITED", "Too many attempts, request a new code")
	}

	if invite.IsOTPExpired(now) {
		return nil, shared.NewDomainError("OTP_EXPIRED", "The verification code has expired, request a new one")
	}

	if !access.VerifyOTP(invite.OTPHash, input.OTPCode) {
		if _, err := s.limiter.Increment(ctx, attemptKey, s.cfg.OTPAttemptWindow); err != nil {
			s.logger.Warn("Attempt limiter unavailable", zap.Error(err))
		}
		s.recordOTPFailure(ctx, invite, invite.Email, input.Meta, "wrong_code")
		return nil, shared.NewDomainError("OTP_INVALID", "Verification failed")
	}

	user, userCreated, err := s.findOrCreateUser(ctx, invite.Email)
	if err != nil {
		return nil, err
	}

	// CAS on the status: exactly one of several concurrent accepts wins, and
	// the winner's user lands in accepted_by within the same statement.
	// Losers re-read and fall into the idempotent path when the winner was
	// the same email, which it always is once the OTP matched.
	if err := s.inviteRepo.AcceptPending(ctx, invite.ID, user.ID, now); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			current, ferr := s.inviteRepo.FindByID(ctx, invite.ID)
			if ferr != nil {
				return nil, ferr
			}
			if current.Status == access.InviteStatusAccepted {
				return s.acceptIdempotent(ctx, current, input.Meta)
			}
			return nil, shared.NewDomainError("INVITE_REVOKED", "Invite is no longer available")
		}
		return nil, err
	}

	// Mirror the persisted transition on the in-memory aggregate
	if err := invite.Accept(user.ID, now); err != nil {
		return nil, err
	}

	role := roleForPermissions(invite.Permissions)
	membership, err := access.NewMembershipFromInvite(user.ID, invite, role)
	if err != nil {
		return nil, err
	}
	if err := s.membershipRepo.Upsert(ctx, membership); err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditAccessGranted).
		WithUser(user.ID).
		WithCompany(invite.CompanyID).
		WithEmail(invite.Email).
		WithRequest(input.Meta.IPAddress, input.Meta.UserAgent).
		WithDetail("invite_id", invite.ID.String()).
		WithDetail("role", string(role)))

	if err := s.limiter.Reset(ctx, attemptKey); err != nil {
		s.logger.Warn("Attempt limiter unavailable", zap.Error(err))
	}

	token, session, err := s.sessionService.CreateForUser(ctx, user.ID, invite.CompanyID, input.Meta)
	if err != nil {
		return nil, shared.NewDomainError("SESSION_CREATION_FAILED", "Could not create a session")
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditInviteAccepted).
		WithUser(user.ID).
		WithCompany(invite.CompanyID).
		WithEmail(invite.Email).
		WithRequest(input.Meta.IPAddress, input.Meta.UserAgent).
		WithDetail("invite_id", invite.ID.String()).
		WithDetail("user_created", userCreated))

	s.logger.Info("Invite accepted",
		zap.String("invite_id", invite.ID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", invite.CompanyID.String()))

	companyName := ""
	if company, err := s.companyRepo.FindByID(ctx, invite.CompanyID); err == nil {
		companyName = company.Name
	}

	return &AcceptInviteResult{
		SessionToken:     token,
		SessionExpiresAt: session.ExpiresAt,
		UserID:           user.ID,
		CompanyID:        invite.CompanyID,
		CompanyName:      companyName,
		Permissions:      invite.Permissions,
		UserCreated:      userCreated,
	}, nil
}

// RevokeInvite withdraws a pending invite. Only the company owner may revoke.
func (s *InviteService) RevokeInvite(ctx context.Context, actorUserID, inviteID uuid.UUID, meta RequestMeta) error {
	invite, err := s.inviteRepo.FindByID(ctx, inviteID)
	if err != nil {
		return err
	}

	company, err := s.companyRepo.FindByID(ctx, invite.CompanyID)
	if err != nil {
		return err
	}
	if !company.IsOwnedBy(actorUserID) {
		s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditAccessDenied).
			WithUser(actorUserID).
			WithCompany(invite.CompanyID).
			WithRequest(meta.IPAddress, meta.UserAgent).
			WithDetail("operation", "revoke_invite"))
		return shared.ErrNoAccess
	}

	if err := invite.Revoke(time.Now()); err != nil {
		return err
	}
	if err := s.inviteRepo.Update(ctx, invite); err != nil {
		return err
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditInviteRevoked).
		WithUser(actorUserID).
		WithCompany(invite.CompanyID).
		WithEmail(invite.Email).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("invite_id", invite.ID.String()))

	return nil
}

// ListInvites lists all invites of a company for its owner
func (s *InviteService) ListInvites(ctx context.Context, actorUserID, companyID uuid.UUID) ([]*InviteDTO, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsOwnedBy(actorUserID) {
		return nil, shared.ErrNoAccess
	}

	invites, err := s.inviteRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dtos := make([]*InviteDTO, len(invites))
	for i, invite := range invites {
		dtos[i] = inviteToDTO(invite, now)
	}
	return dtos, nil
}

// acceptIdempotent handles re-acceptance of an already accepted invite by
// the same email: it verifies the membership still stands and issues a
// fresh session instead of failing.
func (s *InviteService) acceptIdempotent(ctx context.Context, invite *access.Invite, meta RequestMeta) (*AcceptInviteResult, error) {
	acceptedBy := invite.AcceptedBy
	if acceptedBy == nil {
		// The row can predate the accepted_by column being filled in; the
		// invite email still identifies the accepting user.
		user, err := s.userRepo.FindByEmail(ctx, invite.Email)
		if err != nil {
			return nil, shared.NewDomainError("INVITE_USED", "Invite has already been accepted")
		}
		acceptedBy = &user.ID
	}

	membership, err := s.membershipRepo.FindByUserAndCompany(ctx, *acceptedBy, invite.CompanyID)
	if err != nil || !membership.IsActive() {
		return nil, shared.NewDomainError("INVITE_USED", "Invite has already been accepted")
	}

	token, session, err := s.sessionService.CreateForUser(ctx, *acceptedBy, invite.CompanyID, meta)
	if err != nil {
		return nil, shared.NewDomainError("SESSION_CREATION_FAILED", "Could not create a session")
	}

	companyName := ""
	if company, err := s.companyRepo.FindByID(ctx, invite.CompanyID); err == nil {
		companyName = company.Name
	}

	return &AcceptInviteResult{
		SessionToken:     token,
		SessionExpiresAt: session.ExpiresAt,
		UserID:           *acceptedBy,
		CompanyID:        invite.CompanyID,
		CompanyName:      companyName,
		Permissions:      membership.Permissions,
		UserCreated:      false,
	}, nil
}

// findOrCreateUser resolves the accepting email to a user, provisioning a
// minimal verified account when none exists.
func (s *InviteService) findOrCreateUser(ctx context.Context, email string) (*identity.User, bool, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}

	user, err = identity.NewInvitedUser(email, identity.UserRoleAccountant)
	if err != nil {
		return nil, false, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *InviteService) materializeExpiry(ctx context.Context, invite *access.Invite, now time.Time) {
	if invite.Status != access.InviteStatusPending || !now.After(invite.ExpiresAt) {
		return
	}
	// Best-effort; the read-time status already reports EXPIRED
	if err := s.inviteRepo.TransitionStatus(ctx, invite.ID, access.InviteStatusPending, access.InviteStatusExpired); err != nil {
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Warn("Failed to materialize invite expiry",
				zap.String("invite_id", invite.ID.String()),
				zap.Error(err))
		}
	}
}

func (s *InviteService) recordOTPFailure(ctx context.Context, invite *access.Invite, email string, meta RequestMeta, reason string) {
	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditInviteOTPFailed).
		WithCompany(invite.CompanyID).
		WithEmail(email).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("invite_id", invite.ID.String()).
		WithDetail("reason", reason))
}

// findByToken resolves the opaque link token to its invite. The plaintext
// token is never persisted; the lookup goes through the digest.
func (s *InviteService) findByToken(ctx context.Context, token string) (*access.Invite, error) {
	if token == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invite token is required")
	}
	return s.inviteRepo.FindByTokenHash(ctx, access.HashInviteToken(token))
}

func (s *InviteService) sendInviteMail(ctx context.Context, invite *access.Invite, companyName, inviterName, linkToken, code string) error {
	return s.mailer.SendInviteOTP(ctx, email.InviteMail{
		To:              invite.Email,
		CompanyName:     companyName,
		InviterName:     inviterName,
		OTPCode:         code,
		AcceptURL:       fmt.Sprintf("%s?token=%s", s.cfg.AcceptBaseURL, linkToken),
		PersonalMessage: invite.PersonalMessage,
	})
}

// roleForPermissions derives the accountant role variant from a permission
// vector so the membership row stays readable at a glance.
func roleForPermissions(p access.PermissionSet) access.MembershipRole {
	switch {
	case p.CanEdit && p.CanExport && p.CanBTW:
		return access.MembershipRoleAccountant
	case p.CanEdit:
		return access.MembershipRoleAccountantEdit
	default:
		return access.MembershipRoleAccountantView
	}
}

func isInviteNotFound(err error) bool {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == "INVITE_NOT_FOUND"
	}
	return false
}
