package access

import (
	"context"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MembershipService lets a company owner administer the grants on their
// company: inspect members, tune permission vectors, suspend and reinstate.
type MembershipService struct {
	membershipRepo access.MembershipRepository
	companyRepo    identity.CompanyRepository
	userRepo       identity.UserRepository
	sessionService *SessionService
	auditService   *AuditService
	logger         *zap.Logger
}

// NewMembershipService creates a new membership service
func NewMembershipService(
	membershipRepo access.MembershipRepository,
	companyRepo identity.CompanyRepository,
	userRepo identity.UserRepository,
	sessionService *SessionService,
	auditService *AuditService,
	logger *zap.Logger,
) *MembershipService {
	return &MembershipService{
		membershipRepo: membershipRepo,
		companyRepo:    companyRepo,
		userRepo:       userRepo,
		sessionService: sessionService,
		auditService:   auditService,
		logger:         logger,
	}
}

// ListMembers lists all memberships of a company for its owner
func (s *MembershipService) ListMembers(ctx context.Context, actorUserID, companyID uuid.UUID) ([]*MembershipDTO, error) {
	if err := s.requireOwner(ctx, actorUserID, companyID); err != nil {
		return nil, err
	}

	memberships, err := s.membershipRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	dtos := make([]*MembershipDTO, len(memberships))
	for i, m := range memberships {
		dto := membershipToDTO(m)
		if user, err := s.userRepo.FindByID(ctx, m.UserID); err == nil {
			dto.Email = user.Email
		}
		dtos[i] = dto
	}
	return dtos, nil
}

// UpdatePermissions replaces the capability vector of a membership
func (s *MembershipService) UpdatePermissions(ctx context.Context, actorUserID, companyID, membershipID uuid.UUID, perms access.PermissionSet, meta RequestMeta) (*MembershipDTO, error) {
	if err := s.requireOwner(ctx, actorUserID, companyID); err != nil {
		return nil, err
	}

	membership, err := s.findInCompany(ctx, membershipID, companyID)
	if err != nil {
		return nil, err
	}

	old := membership.Permissions
	if err := membership.UpdatePermissions(perms); err != nil {
		return nil, err
	}
	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, err
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditPermissionChanged).
		WithUser(actorUserID).
		WithCompany(companyID).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("membership_id", membership.ID.String()).
		WithDetail("subject_user_id", membership.UserID.String()).
		WithDetail("old", old).
		WithDetail("new", perms))

	return membershipToDTO(membership), nil
}

// Suspend suspends a membership and destroys the subject's accountant
// sessions so the grant stops working immediately.
func (s *MembershipService) Suspend(ctx context.Context, actorUserID, companyID, membershipID uuid.UUID, meta RequestMeta) error {
	if err := s.requireOwner(ctx, actorUserID, companyID); err != nil {
		return err
	}

	membership, err := s.findInCompany(ctx, membershipID, companyID)
	if err != nil {
		return err
	}
	if membership.UserID == actorUserID {
		return shared.NewDomainError("VALIDATION_ERROR", "Cannot suspend your own membership")
	}

	if err := membership.Suspend(); err != nil {
		return err
	}
	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return err
	}

	if membership.Role.IsAccountantRole() {
		if _, err := s.sessionService.DestroyAllForUser(ctx, membership.UserID); err != nil {
			s.logger.Error("Failed to destroy sessions of suspended member",
				zap.String("user_id", membership.UserID.String()),
				zap.Error(err))
		}
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditMembershipSuspended).
		WithUser(actorUserID).
		WithCompany(companyID).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("membership_id", membership.ID.String()).
		WithDetail("subject_user_id", membership.UserID.String()))

	return nil
}

// Revoke permanently removes a membership. Unlike suspension the row is
// hard-deleted; the subject's accountant sessions are destroyed so the
// grant stops working immediately.
func (s *MembershipService) Revoke(ctx context.Context, actorUserID, companyID, membershipID uuid.UUID, meta RequestMeta) error {
	if err := s.requireOwner(ctx, actorUserID, companyID); err != nil {
		return err
	}

	membership, err := s.findInCompany(ctx, membershipID, companyID)
	if err != nil {
		return err
	}
	if membership.UserID == actorUserID {
		return shared.NewDomainError("VALIDATION_ERROR", "Cannot revoke your own membership")
	}

	if err := s.membershipRepo.Delete(ctx, membership.ID); err != nil {
		return err
	}

	if membership.Role.IsAccountantRole() {
		if _, err := s.sessionService.DestroyAllForUser(ctx, membership.UserID); err != nil {
			s.logger.Error("Failed to destroy sessions of revoked member",
				zap.String("user_id", membership.UserID.String()),
				zap.Error(err))
		}
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditAccessRevoked).
		WithUser(actorUserID).
		WithCompany(companyID).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("membership_id", membership.ID.String()).
		WithDetail("subject_user_id", membership.UserID.String()).
		WithDetail("role", string(membership.Role)))

	s.logger.Info("Membership revoked",
		zap.String("membership_id", membership.ID.String()),
		zap.String("company_id", companyID.String()))

	return nil
}

// Reinstate reactivates a suspended membership
func (s *MembershipService) Reinstate(ctx context.Context, actorUserID, companyID, membershipID uuid.UUID) (*MembershipDTO, error) {
	if err := s.requireOwner(ctx, actorUserID, companyID); err != nil {
		return nil, err
	}

	membership, err := s.findInCompany(ctx, membershipID, companyID)
	if err != nil {
		return nil, err
	}

	if err := membership.Reinstate(); err != nil {
		return nil, err
	}
	if err := s.membershipRepo.Update(ctx, membership); err != nil {
		return nil, err
	}

	return membershipToDTO(membership), nil
}

func (s *MembershipService) requireOwner(ctx context.Context, actorUserID, companyID uuid.UUID) error {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return err
	}
	if !company.IsOwnedBy(actorUserID) {
		return shared.ErrNoAccess
	}
	return nil
}

func (s *MembershipService) findInCompany(ctx context.Context, membershipID, companyID uuid.UUID) (*access.Membership, error) {
	membership, err := s.membershipRepo.FindByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if membership.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return membership, nil
}
