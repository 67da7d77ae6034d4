package access

import (
	"context"
	"errors"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextService resolves who is calling (combined session resolution
// across the two authentication lanes) and which company the call operates
// on (company-context resolution with explicit denial).
type ContextService struct {
	jwtService     *auth.JWTService
	sessionService *SessionService
	userRepo       identity.UserRepository
	companyRepo    identity.CompanyRepository
	membershipRepo access.MembershipRepository
	auditService   *AuditService
	logger         *zap.Logger
}

// NewContextService creates a new context service
func NewContextService(
	jwtService *auth.JWTService,
	sessionService *SessionService,
	userRepo identity.UserRepository,
	companyRepo identity.CompanyRepository,
	membershipRepo access.MembershipRepository,
	auditService *AuditService,
	logger *zap.Logger,
) *ContextService {
	return &ContextService{
		jwtService:     jwtService,
		sessionService: sessionService,
		userRepo:       userRepo,
		companyRepo:    companyRepo,
		membershipRepo: membershipRepo,
		auditService:   auditService,
		logger:         logger,
	}
}

// ResolveSession resolves the caller from the two authentication lanes in
// order: the primary JWT first, then the accountant cookie. An expired or
// invalid JWT does not fail the request outright; the accountant cookie is
// still tried, so an accountant whose primary login lapsed keeps working in
// the pinned company. Only when no lane resolves is the caller rejected.
func (s *ContextService) ResolveSession(ctx context.Context, bearerToken, sessionCookie string) (*ResolvedSession, error) {
	if bearerToken != "" {
		if resolved, err := s.resolvePrimary(ctx, bearerToken); err == nil {
			return resolved, nil
		}
	}

	if sessionCookie != "" {
		session, err := s.sessionService.Resolve(ctx, sessionCookie)
		if err != nil {
			return nil, err
		}

		user, err := s.userRepo.FindByID(ctx, session.UserID)
		if err != nil {
			return nil, shared.ErrNotAuthenticated
		}

		return &ResolvedSession{
			Kind:                SessionKindAccountant,
			UserID:              user.ID,
			Email:               user.Email,
			Role:                string(user.Role),
			OnboardingCompleted: user.OnboardingCompleted,
			CompanyID:           session.CompanyID,
			SessionID:           session.ID,
		}, nil
	}

	return nil, shared.ErrNotAuthenticated
}

func (s *ContextService) resolvePrimary(ctx context.Context, bearerToken string) (*ResolvedSession, error) {
	claims, err := s.jwtService.ValidateAccessToken(bearerToken)
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

	return &ResolvedSession{
		Kind:                SessionKindPrimary,
		UserID:              user.ID,
		Email:               user.Email,
		Role:                string(user.Role),
		OnboardingCompleted: user.OnboardingCompleted,
	}, nil
}

// ResolveCompanyContext authorizes the session against the requested
// company and returns the resulting context. Denials are explicit: a
// request for a company the caller cannot access yields NO_ACCESS, never a
// silent fallback to some company they can.
func (s *ContextService) ResolveCompanyContext(ctx context.Context, session *ResolvedSession, requestedCompanyID uuid.UUID) (*CompanyContext, error) {
	if session == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if requestedCompanyID == uuid.Nil {
		var err error
		requestedCompanyID, err = s.defaultCompanyID(ctx, session)
		if err != nil {
			return nil, err
		}
	}

	// The accountant lane is pinned: the session's bound company is the
	// only company it can ever resolve.
	if session.IsAccountant() && session.CompanyID != requestedCompanyID {
		s.denyAccess(ctx, session, requestedCompanyID, "accountant_session_pinned")
		return nil, shared.ErrNoAccess
	}

	company, err := s.companyRepo.FindByID(ctx, requestedCompanyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// Unknown company reads as denial, not as a probe result
			s.denyAccess(ctx, session, requestedCompanyID, "company_not_found")
			return nil, shared.ErrNoAccess
		}
		return nil, err
	}
	if !company.IsActive() {
		s.denyAccess(ctx, session, requestedCompanyID, "company_suspended")
		return nil, shared.ErrNoAccess
	}

	// Ownership shortcut: the owner needs no membership row
	if session.Kind == SessionKindPrimary && company.IsOwnedBy(session.UserID) {
		return &CompanyContext{
			CompanyID:   company.ID,
			CompanyName: company.Name,
			UserID:      session.UserID,
			Role:        access.MembershipRoleOwner,
			IsOwner:     true,
			Permissions: access.FullPermissions(),
		}, nil
	}

	membership, err := s.membershipRepo.FindByUserAndCompany(ctx, session.UserID, requestedCompanyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.denyAccess(ctx, session, requestedCompanyID, "no_membership")
			return nil, shared.ErrNoAccess
		}
		return nil, err
	}
	if !membership.IsActive() {
		s.denyAccess(ctx, session, requestedCompanyID, "membership_suspended")
		return nil, shared.ErrNoAccess
	}

	return &CompanyContext{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		UserID:      session.UserID,
		Role:        membership.Role,
		IsOwner:     false,
		Permissions: membership.Permissions,
	}, nil
}

// ListAccessibleCompanies returns every company the session can resolve:
// owned companies plus active memberships for the primary lane, only the
// pinned company for the accountant lane.
func (s *ContextService) ListAccessibleCompanies(ctx context.Context, session *ResolvedSession) ([]*AccessibleCompanyDTO, error) {
	if session == nil {
		return nil, shared.ErrNotAuthenticated
	}

	if session.IsAccountant() {
		cc, err := s.ResolveCompanyContext(ctx, session, session.CompanyID)
		if err != nil {
			return nil, err
		}
		return []*AccessibleCompanyDTO{{
			CompanyID:   cc.CompanyID,
			CompanyName: cc.CompanyName,
			Role:        cc.Role,
			IsOwner:     false,
			Permissions: cc.Permissions,
		}}, nil
	}

	seen := map[uuid.UUID]bool{}
	result := []*AccessibleCompanyDTO{}

	owned, err := s.companyRepo.FindByOwner(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	for _, company := range owned {
		if !company.IsActive() {
			continue
		}
		seen[company.ID] = true
		result = append(result, &AccessibleCompanyDTO{
			CompanyID:   company.ID,
			CompanyName: company.Name,
			Role:        access.MembershipRoleOwner,
			IsOwner:     true,
			Permissions: access.FullPermissions(),
		})
	}

	memberships, err := s.membershipRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	for _, m := range memberships {
		if !m.IsActive() || seen[m.CompanyID] {
			continue
		}
		company, err := s.companyRepo.FindByID(ctx, m.CompanyID)
		if err != nil || !company.IsActive() {
			continue
		}
		result = append(result, &AccessibleCompanyDTO{
			CompanyID:   company.ID,
			CompanyName: company.Name,
			Role:        m.Role,
			IsOwner:     false,
			Permissions: m.Permissions,
		})
	}

	return result, nil
}

// defaultCompanyID resolves the company a session operates on when the
// request names none. Accountant sessions fall back to their pinned
// company; primary sessions fall back to the caller's own (oldest owned)
// company. A caller with nothing to fall back to is denied, not guessed at.
func (s *ContextService) defaultCompanyID(ctx context.Context, session *ResolvedSession) (uuid.UUID, error) {
	if session.IsAccountant() {
		return session.CompanyID, nil
	}

	owned, err := s.companyRepo.FindByOwner(ctx, session.UserID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, company := range owned {
		if company.IsActive() {
			return company.ID, nil
		}
	}

	s.denyAccess(ctx, session, uuid.Nil, "no_default_company")
	return uuid.Nil, shared.ErrNoAccess
}

func (s *ContextService) denyAccess(ctx context.Context, session *ResolvedSession, companyID uuid.UUID, reason string) {
	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditAccessDenied).
		WithUser(session.UserID).
		WithCompany(companyID).
		WithDetail("reason", reason).
		WithDetail("session_kind", string(session.Kind)))

	s.logger.Warn("Company access denied",
		zap.String("user_id", session.UserID.String()),
		zap.String("company_id", companyID.String()),
		zap.String("reason", reason))
}
