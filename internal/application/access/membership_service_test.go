package access

import (
	"context"
	"testing"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type membershipServiceFixture struct {
	membershipRepo *MockMembershipRepository
	companyRepo    *MockCompanyRepository
	userRepo       *MockUserRepository
	sessionRepo    *MockSessionRepository
	service        *MembershipService
}

func newMembershipServiceFixture() *membershipServiceFixture {
	f := &membershipServiceFixture{
		membershipRepo: new(MockMembershipRepository),
		companyRepo:    new(MockCompanyRepository),
		userRepo:       new(MockUserRepository),
		sessionRepo:    new(MockSessionRepository),
	}

	auditService := newPermissiveAuditService(f.companyRepo)
	sessionService := NewSessionService(f.sessionRepo, auditService, testSessionConfig(), zap.NewNop())

	f.service = NewMembershipService(
		f.membershipRepo,
		f.companyRepo,
		f.userRepo,
		sessionService,
		auditService,
		zap.NewNop(),
	)
	return f
}

func TestMembershipService_ListMembers_EnrichesEmail(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	accountant, _ := identity.NewInvitedUser("boekhouder@kantoor.nl", identity.UserRoleAccountant)
	membership, err := access.NewMembership(accountant.ID, company.ID, access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("ListByCompany", ctx, company.ID).Return([]*access.Membership{membership}, nil)
	f.userRepo.On("FindByID", ctx, accountant.ID).Return(accountant, nil)

	members, err := f.service.ListMembers(ctx, ownerID, company.ID)

	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "boekhouder@kantoor.nl", members[0].Email)
	assert.Equal(t, access.MembershipRoleAccountant, members[0].Role)
}

func TestMembershipService_ListMembers_NotOwner(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	company := createTestCompany(uuid.New())
	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)

	members, err := f.service.ListMembers(ctx, uuid.New(), company.ID)

	require.Error(t, err)
	assert.Nil(t, members)
	assert.ErrorIs(t, err, shared.ErrNoAccess)
	f.membershipRepo.AssertNotCalled(t, "ListByCompany", mock.Anything, mock.Anything)
}

func TestMembershipService_UpdatePermissions_Success(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(uuid.New(), company.ID, access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)
	f.membershipRepo.On("Update", ctx, membership).Return(nil)

	dto, err := f.service.UpdatePermissions(ctx, ownerID, company.ID, membership.ID, access.ReadOnlyPermissions(), RequestMeta{})

	require.NoError(t, err)
	assert.True(t, dto.Permissions.CanRead)
	assert.False(t, dto.Permissions.CanEdit)
	f.membershipRepo.AssertExpectations(t)
}

func TestMembershipService_UpdatePermissions_RejectsVectorWithoutRead(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(uuid.New(), company.ID, access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)

	dto, err := f.service.UpdatePermissions(ctx, ownerID, company.ID, membership.ID, access.PermissionSet{CanEdit: true}, RequestMeta{})

	require.Error(t, err)
	assert.Nil(t, dto)
	f.membershipRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMembershipService_UpdatePermissions_MembershipOutsideCompany(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(uuid.New(), uuid.New(), access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)

	dto, err := f.service.UpdatePermissions(ctx, ownerID, company.ID, membership.ID, access.ReadOnlyPermissions(), RequestMeta{})

	require.Error(t, err)
	assert.Nil(t, dto)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMembershipService_Suspend_DestroysAccountantSessions(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	accountantID := uuid.New()
	membership, err := access.NewMembership(accountantID, company.ID, access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)
	f.membershipRepo.On("Update", ctx, membership).Return(nil)
	f.sessionRepo.On("DeleteByUser", ctx, accountantID).Return(int64(2), nil)

	err = f.service.Suspend(ctx, ownerID, company.ID, membership.ID, RequestMeta{})

	require.NoError(t, err)
	assert.Equal(t, access.MembershipStatusSuspended, membership.Status)
	f.sessionRepo.AssertExpectations(t)
}

func TestMembershipService_Suspend_CannotSuspendSelf(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(ownerID, company.ID, access.MembershipRoleStaff, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)

	err = f.service.Suspend(ctx, ownerID, company.ID, membership.ID, RequestMeta{})

	require.Error(t, err)
	assert.Equal(t, access.MembershipStatusActive, membership.Status)
	f.membershipRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestMembershipService_Revoke_DeletesAndDestroysSessions(t *testing.T) {
	ctx := context.Background()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	accountantID := uuid.New()
	membership, err := access.NewMembership(accountantID, company.ID, access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)

	membershipRepo := new(MockMembershipRepository)
	companyRepo := new(MockCompanyRepository)
	sessionRepo := new(MockSessionRepository)
	auditRepo := new(MockAuditRepository)

	var recorded []*access.SecurityAuditEvent
	auditRepo.On("Append", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			recorded = append(recorded, args.Get(1).(*access.SecurityAuditEvent))
		}).
		Return(nil)

	auditService := NewAuditService(auditRepo, companyRepo, zap.NewNop())
	sessionService := NewSessionService(sessionRepo, auditService, testSessionConfig(), zap.NewNop())
	service := NewMembershipService(membershipRepo, companyRepo, new(MockUserRepository), sessionService, auditService, zap.NewNop())

	companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)
	membershipRepo.On("Delete", ctx, membership.ID).Return(nil)
	sessionRepo.On("DeleteByUser", ctx, accountantID).Return(int64(1), nil)

	err = service.Revoke(ctx, ownerID, company.ID, membership.ID, RequestMeta{IPAddress: "10.0.0.5"})

	require.NoError(t, err)
	membershipRepo.AssertExpectations(t)
	sessionRepo.AssertExpectations(t)
	require.NotEmpty(t, recorded)
	assert.Equal(t, access.AuditAccessRevoked, recorded[len(recorded)-1].EventType)
	assert.Equal(t, accountantID.String(), recorded[len(recorded)-1].Metadata["subject_user_id"])
}

func TestMembershipService_Revoke_StaffKeepsSessions(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(uuid.New(), company.ID, access.MembershipRoleStaff, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)
	f.membershipRepo.On("Delete", ctx, membership.ID).Return(nil)

	err = f.service.Revoke(ctx, ownerID, company.ID, membership.ID, RequestMeta{})

	require.NoError(t, err)
	f.sessionRepo.AssertNotCalled(t, "DeleteByUser", mock.Anything, mock.Anything)
}

func TestMembershipService_Revoke_CannotRevokeSelf(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(ownerID, company.ID, access.MembershipRoleStaff, access.FullPermissions())
	require.NoError(t, err)

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)

	err = f.service.Revoke(ctx, ownerID, company.ID, membership.ID, RequestMeta{})

	require.Error(t, err)
	f.membershipRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestMembershipService_Revoke_NotOwner(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	company := createTestCompany(uuid.New())
	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)

	err := f.service.Revoke(ctx, uuid.New(), company.ID, uuid.New(), RequestMeta{})

	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNoAccess)
	f.membershipRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestMembershipService_Reinstate_Success(t *testing.T) {
	ctx := context.Background()
	f := newMembershipServiceFixture()

	ownerID := uuid.New()
	company := createTestCompany(ownerID)
	membership, err := access.NewMembership(uuid.New(), company.ID, access.MembershipRoleAccountant, access.FullPermissions())
	require.NoError(t, err)
	require.NoError(t, membership.Suspend())

	f.companyRepo.On("FindByID", ctx, company.ID).Return(company, nil)
	f.membershipRepo.On("FindByID", ctx, membership.ID).Return(membership, nil)
	f.membershipRepo.On("Update", ctx, membership).Return(nil)

	dto, err := f.service.Reinstate(ctx, ownerID, company.ID, membership.ID)

	require.NoError(t, err)
	assert.Equal(t, access.MembershipStatusActive, dto.Status)
}
