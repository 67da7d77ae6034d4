package access

import (
	"context"
	"errors"
	"time"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService manages the server-side accountant session store: the
// second authentication lane next to the primary JWT.
type SessionService struct {
	sessionRepo  access.SessionRepository
	auditService *AuditService
	cfg          config.SessionConfig
	logger       *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	sessionRepo access.SessionRepository,
	auditService *AuditService,
	cfg config.SessionConfig,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		auditService: auditService,
		cfg:          cfg,
		logger:       logger,
	}
}

// CreateForUser creates a session pinned to the given company and returns
// the plaintext token alongside the stored session. The plaintext is never
// persisted.
func (s *SessionService) CreateForUser(ctx context.Context, userID, companyID uuid.UUID, meta RequestMeta) (string, *access.AccountantSession, error) {
	token, digest, err := access.GenerateSessionToken()
	if err != nil {
		return "", nil, err
	}

	session, err := access.NewAccountantSession(digest, userID, companyID, s.cfg.TTL)
	if err != nil {
		return "", nil, err
	}
	session.IPAddress = meta.IPAddress
	session.UserAgent = meta.UserAgent

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, err
	}

	s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditSessionCreated).
		WithUser(userID).
		WithCompany(companyID).
		WithRequest(meta.IPAddress, meta.UserAgent).
		WithDetail("session_id", session.ID.String()))

	return token, session, nil
}

// Resolve looks up a session by its plaintext token. Expired rows are
// deleted on read and reported as not authenticated; live rows get their
// last-access timestamp refreshed.
func (s *SessionService) Resolve(ctx context.Context, token string) (*access.AccountantSession, error) {
	if token == "" {
		return nil, shared.ErrNotAuthenticated
	}

	digest := access.HashSessionToken(token)
	session, err := s.sessionRepo.FindByTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotAuthenticated
		}
		return nil, err
	}

	now := time.Now()
	if session.IsExpired(now) {
		// Get-with-cleanup: the read sweeps its own expired row
		if err := s.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
			s.logger.Warn("Failed to delete expired session",
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
		s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditSessionExpired).
			WithUser(session.UserID).
			WithCompany(session.CompanyID).
			WithDetail("session_id", session.ID.String()))
		return nil, shared.ErrNotAuthenticated
	}

	session.Touch(now)
	if err := s.sessionRepo.Touch(ctx, session.ID, now); err != nil {
		// A failed touch must not fail the request
		s.logger.Warn("Failed to refresh session last access",
			zap.String("session_id", session.ID.String()),
			zap.Error(err))
	}

	return session, nil
}

// Destroy removes the session for a token. Destroying a token with no
// session is a no-op, so logout is idempotent.
func (s *SessionService) Destroy(ctx context.Context, token string, meta RequestMeta) error {
	if token == "" {
		return nil
	}

	digest := access.HashSessionToken(token)

	// Look the session up first so the audit row can name the user;
	// a miss still proceeds to the idempotent delete.
	session, err := s.sessionRepo.FindByTokenHash(ctx, digest)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if err := s.sessionRepo.Delete(ctx, digest); err != nil {
		return err
	}

	if session != nil {
		s.auditService.Record(ctx, access.NewSecurityAuditEvent(access.AuditSessionDestroyed).
			WithUser(session.UserID).
			WithCompany(session.CompanyID).
			WithRequest(meta.IPAddress, meta.UserAgent).
			WithDetail("session_id", session.ID.String()))
	}

	return nil
}

// DestroyAllForUser removes every session of a user, e.g. when their
// membership is suspended or their grant revoked.
func (s *SessionService) DestroyAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.sessionRepo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("Destroyed all sessions for user",
			zap.String("user_id", userID.String()),
			zap.Int64("count", count))
	}
	return count, nil
}

// CleanupExpired sweeps all expired sessions. Intended to run periodically;
// the read-time cleanup in Resolve keeps the store correct between sweeps.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.sessionRepo.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("Swept expired accountant sessions", zap.Int64("count", count))
	}
	return count, nil
}

// StartCleanupLoop runs the expired-session sweep on the configured
// interval until the context is cancelled.
func (s *SessionService) StartCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.CleanupExpired(ctx); err != nil {
					s.logger.Error("Session cleanup sweep failed", zap.Error(err))
				}
			}
		}
	}()
}
