package access

import (
	"context"

	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AuditService records security-relevant events into the append-only audit
// log. Recording is best-effort: a failed append is logged and dropped, it
// never fails the operation that produced it.
type AuditService struct {
	auditRepo   access.AuditRepository
	companyRepo identity.CompanyRepository
	metrics     *telemetry.AccessMetrics
	logger      *zap.Logger
}

// SetMetrics attaches the metrics recorder. The audit log sees every
// security event, so this is the single tap point for access metrics.
// Optional; when nil no metrics are emitted.
func (s *AuditService) SetMetrics(m *telemetry.AccessMetrics) {
	s.metrics = m
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo access.AuditRepository, companyRepo identity.CompanyRepository, logger *zap.Logger) *AuditService {
	return &AuditService{
		auditRepo:   auditRepo,
		companyRepo: companyRepo,
		logger:      logger,
	}
}

// Record appends one audit event. Never returns an error: audit failures
// must not block the guarded operation.
func (s *AuditService) Record(ctx context.Context, event *access.SecurityAuditEvent) {
	if event == nil {
		return
	}
	if err := s.auditRepo.Append(ctx, event); err != nil {
		s.logger.Error("Failed to append audit event",
			zap.String("event_type", string(event.EventType)),
			zap.Error(err))
	}
	s.recordMetric(ctx, event)
}

func (s *AuditService) recordMetric(ctx context.Context, event *access.SecurityAuditEvent) {
	if s.metrics == nil {
		return
	}

	companyID := ""
	if event.CompanyID != nil {
		companyID = event.CompanyID.String()
	}

	switch event.EventType {
	case access.AuditInviteCreated:
		s.metrics.RecordInviteCreated(ctx, companyID)
	case access.AuditInviteAccepted:
		s.metrics.RecordInviteAccepted(ctx, companyID)
	case access.AuditInviteRevoked:
		s.metrics.RecordInviteRevoked(ctx, companyID)
	case access.AuditInviteOTPFailed:
		reason, _ := event.Metadata["reason"].(string)
		s.metrics.RecordOTPFailure(ctx, reason)
	case access.AuditSessionCreated:
		s.metrics.RecordSessionCreated(ctx, companyID)
	case access.AuditSessionDestroyed, access.AuditSessionExpired:
		s.metrics.RecordSessionDestroyed(ctx, 1)
	case access.AuditAccessDenied:
		reason, _ := event.Metadata["reason"].(string)
		s.metrics.RecordAccessDenied(ctx, reason)
	}
}

// ListForCompany queries the audit log scoped to one company after
// verifying the actor owns it.
func (s *AuditService) ListForCompany(ctx context.Context, actorUserID, companyID uuid.UUID, filter access.AuditFilter) ([]*AuditEventDTO, int64, error) {
	company, err := s.companyRepo.FindByID(ctx, companyID)
	if err != nil {
		return nil, 0, err
	}
	if !company.IsOwnedBy(actorUserID) {
		return nil, 0, shared.ErrNoAccess
	}

	filter.CompanyID = &companyID
	return s.list(ctx, filter)
}

func (s *AuditService) list(ctx context.Context, filter access.AuditFilter) ([]*AuditEventDTO, int64, error) {
	events, total, err := s.auditRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]*AuditEventDTO, len(events))
	for i, e := range events {
		dtos[i] = auditEventToDTO(e)
	}
	return dtos, total, nil
}
