package access

import (
	"context"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/infrastructure/email"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockInviteRepository is a mock implementation of access.InviteRepository
type MockInviteRepository struct {
	mock.Mock
}

func (m *MockInviteRepository) Create(ctx context.Context, invite *access.Invite) error {
	args := m.Called(ctx, invite)
	return args.Error(0)
}

func (m *MockInviteRepository) Update(ctx context.Context, invite *access.Invite) error {
	args := m.Called(ctx, invite)
	return args.Error(0)
}

func (m *MockInviteRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Invite, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Invite), args.Error(1)
}

func (m *MockInviteRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*access.Invite, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Invite), args.Error(1)
}

func (m *MockInviteRepository) FindPendingByCompanyAndEmail(ctx context.Context, companyID uuid.UUID, emailAddr string) (*access.Invite, error) {
	args := m.Called(ctx, companyID, emailAddr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Invite), args.Error(1)
}

func (m *MockInviteRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*access.Invite, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]*access.Invite), args.Error(1)
}

func (m *MockInviteRepository) ListPendingByEmail(ctx context.Context, emailAddr string) ([]*access.Invite, error) {
	args := m.Called(ctx, emailAddr)
	return args.Get(0).([]*access.Invite), args.Error(1)
}

func (m *MockInviteRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to access.InviteStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockInviteRepository) AcceptPending(ctx context.Context, id, userID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, userID, at)
	return args.Error(0)
}

// MockMembershipRepository is a mock implementation of access.MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Create(ctx context.Context, membership *access.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Update(ctx context.Context, membership *access.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Upsert(ctx context.Context, membership *access.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) FindByID(ctx context.Context, id uuid.UUID) (*access.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindByUserAndCompany(ctx context.Context, userID, companyID uuid.UUID) (*access.Membership, error) {
	args := m.Called(ctx, userID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*access.Membership, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]*access.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*access.Membership, error) {
	args := m.Called(ctx, companyID)
	return args.Get(0).([]*access.Membership), args.Error(1)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionRepository is a mock implementation of access.SessionRepository
type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *access.AccountantSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*access.AccountantSession, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*access.AccountantSession), args.Error(1)
}

func (m *MockSessionRepository) Touch(ctx context.Context, id uuid.UUID, lastAccessAt time.Time) error {
	args := m.Called(ctx, id, lastAccessAt)
	return args.Error(0)
}

func (m *MockSessionRepository) Delete(ctx context.Context, tokenHash string) error {
	args := m.Called(ctx, tokenHash)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockAuditRepository is a mock implementation of access.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, event *access.SecurityAuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditRepository) List(ctx context.Context, filter access.AuditFilter) ([]*access.SecurityAuditEvent, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*access.SecurityAuditEvent), args.Get(1).(int64), args.Error(2)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, emailAddr string) (*identity.User, error) {
	args := m.Called(ctx, emailAddr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, emailAddr string) (bool, error) {
	args := m.Called(ctx, emailAddr)
	return args.Bool(0), args.Error(1)
}

// MockCompanyRepository is a mock implementation of identity.CompanyRepository
type MockCompanyRepository struct {
	mock.Mock
}

func (m *MockCompanyRepository) Create(ctx context.Context, company *identity.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) Update(ctx context.Context, company *identity.Company) error {
	args := m.Called(ctx, company)
	return args.Error(0)
}

func (m *MockCompanyRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Company), args.Error(1)
}

func (m *MockCompanyRepository) FindByOwner(ctx context.Context, ownerUserID uuid.UUID) ([]*identity.Company, error) {
	args := m.Called(ctx, ownerUserID)
	return args.Get(0).([]*identity.Company), args.Error(1)
}

// MockMailer is a mock implementation of email.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendInviteOTP(ctx context.Context, mail email.InviteMail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

// Helper to create a test company with a known owner
func createTestCompany(ownerID uuid.UUID) *identity.Company {
	company, _ := identity.NewCompany("Bakkerij Jansen B.V.", ownerID)
	return company
}

// Helper to create a pending invite with known link token and OTP code
func createTestInvite(companyID, invitedBy uuid.UUID, emailAddr string) (*access.Invite, string, string) {
	code, hash, _ := access.GenerateOTP()
	linkToken, tokenHash, _ := access.GenerateInviteToken()
	invite, _ := access.NewInvite(companyID, emailAddr, invitedBy, access.FullPermissions(), tokenHash, hash, access.DefaultInviteTTL, access.DefaultOTPTTL)
	return invite, linkToken, code
}

func testInviteConfig() config.InviteConfig {
	return config.InviteConfig{
		TTL:               7 * 24 * time.Hour,
		OTPTTL:            15 * time.Minute,
		MaxOTPAttempts:    5,
		OTPAttemptWindow:  15 * time.Minute,
		ResendMinInterval: time.Minute,
		MaxResends:        10,
		AcceptBaseURL:     "https://app.finbook.test/invite",
	}
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		TTL:             720 * time.Hour,
		CleanupInterval: time.Hour,
	}
}

// newPermissiveAuditService builds an audit service whose repository accepts
// every append, for tests that do not assert on audit rows.
func newPermissiveAuditService(companyRepo *MockCompanyRepository) *AuditService {
	auditRepo := new(MockAuditRepository)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil).Maybe()
	return NewAuditService(auditRepo, companyRepo, zap.NewNop())
}
