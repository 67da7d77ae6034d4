package access

import (
	"context"
	"testing"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSessionServiceFixture() (*SessionService, *MockSessionRepository) {
	sessionRepo := new(MockSessionRepository)
	auditService := newPermissiveAuditService(new(MockCompanyRepository))
	service := NewSessionService(sessionRepo, auditService, testSessionConfig(), zap.NewNop())
	return service, sessionRepo
}

func TestSessionService_CreateForUser_StoresOnlyDigest(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	userID := uuid.New()
	companyID := uuid.New()

	var stored *access.AccountantSession
	sessionRepo.On("Create", ctx, mock.AnythingOfType("*access.AccountantSession")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*access.AccountantSession)
		}).
		Return(nil)

	token, session, err := service.CreateForUser(ctx, userID, companyID, RequestMeta{IPAddress: "10.0.0.1"})

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, userID, session.UserID)
	assert.Equal(t, companyID, session.CompanyID)
	assert.Equal(t, "10.0.0.1", session.IPAddress)

	// The stored row holds the digest of the token, never the token itself
	require.NotNil(t, stored)
	assert.NotEqual(t, token, stored.TokenHash)
	assert.Equal(t, access.HashSessionToken(token), stored.TokenHash)
}

func TestSessionService_Resolve_Success(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	token, digest, err := access.GenerateSessionToken()
	require.NoError(t, err)
	session, err := access.NewAccountantSession(digest, uuid.New(), uuid.New(), time.Hour)
	require.NoError(t, err)

	sessionRepo.On("FindByTokenHash", ctx, digest).Return(session, nil)
	sessionRepo.On("Touch", ctx, session.ID, mock.AnythingOfType("time.Time")).Return(nil)

	resolved, err := service.Resolve(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, session.ID, resolved.ID)
	sessionRepo.AssertExpectations(t)
}

func TestSessionService_Resolve_EmptyToken(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	resolved, err := service.Resolve(ctx, "")

	require.Error(t, err)
	assert.Nil(t, resolved)
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	sessionRepo.AssertNotCalled(t, "FindByTokenHash", mock.Anything, mock.Anything)
}

func TestSessionService_Resolve_UnknownToken(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	token, digest, err := access.GenerateSessionToken()
	require.NoError(t, err)

	sessionRepo.On("FindByTokenHash", ctx, digest).Return(nil, shared.ErrNotFound)

	resolved, err := service.Resolve(ctx, token)

	require.Error(t, err)
	assert.Nil(t, resolved)
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
}

func TestSessionService_Resolve_ExpiredSessionDeletedOnRead(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	token, digest, err := access.GenerateSessionToken()
	require.NoError(t, err)
	session, err := access.NewAccountantSession(digest, uuid.New(), uuid.New(), time.Hour)
	require.NoError(t, err)
	session.ExpiresAt = time.Now().Add(-time.Minute)

	sessionRepo.On("FindByTokenHash", ctx, digest).Return(session, nil)
	sessionRepo.On("DeleteByID", ctx, session.ID).Return(nil)

	resolved, err := service.Resolve(ctx, token)

	require.Error(t, err)
	assert.Nil(t, resolved)
	assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	sessionRepo.AssertExpectations(t)
	sessionRepo.AssertNotCalled(t, "Touch", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionService_Resolve_TouchFailureDoesNotFailRequest(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	token, digest, err := access.GenerateSessionToken()
	require.NoError(t, err)
	session, err := access.NewAccountantSession(digest, uuid.New(), uuid.New(), time.Hour)
	require.NoError(t, err)

	sessionRepo.On("FindByTokenHash", ctx, digest).Return(session, nil)
	sessionRepo.On("Touch", ctx, session.ID, mock.AnythingOfType("time.Time")).
		Return(assert.AnError)

	resolved, err := service.Resolve(ctx, token)

	require.NoError(t, err)
	assert.Equal(t, session.ID, resolved.ID)
}

func TestSessionService_Destroy_Idempotent(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	token, digest, err := access.GenerateSessionToken()
	require.NoError(t, err)

	sessionRepo.On("FindByTokenHash", ctx, digest).Return(nil, shared.ErrNotFound)
	sessionRepo.On("Delete", ctx, digest).Return(nil)

	// Destroying a token with no backing session must not error
	require.NoError(t, service.Destroy(ctx, token, RequestMeta{}))
	sessionRepo.AssertExpectations(t)
}

func TestSessionService_Destroy_EmptyTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	require.NoError(t, service.Destroy(ctx, "", RequestMeta{}))
	sessionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSessionService_DestroyAllForUser(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	userID := uuid.New()
	sessionRepo.On("DeleteByUser", ctx, userID).Return(int64(3), nil)

	count, err := service.DestroyAllForUser(ctx, userID)

	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestSessionService_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	service, sessionRepo := newSessionServiceFixture()

	sessionRepo.On("DeleteExpired", ctx, mock.AnythingOfType("time.Time")).Return(int64(7), nil)

	count, err := service.CleanupExpired(ctx)

	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}
