// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// AccessMetrics tracks the accountant access subsystem: invite lifecycle,
// OTP exchanges, session activity and authorization denials.
type AccessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	inviteCreatedTotal    *Counter
	inviteAcceptedTotal   *Counter
	inviteRevokedTotal    *Counter
	otpFailureTotal       *Counter
	sessionCreatedTotal   *Counter
	sessionDestroyedTotal *Counter
	accessDeniedTotal     *Counter
	activeSessions        *Gauge
}

// NewAccessMetrics creates a new AccessMetrics instance.
func NewAccessMetrics(meter metric.Meter, logger *zap.Logger) (*AccessMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	am := &AccessMetrics{
		meter:  meter,
		logger: logger,
	}

	var err error
	if am.inviteCreatedTotal, err = NewCounter(meter,
		"finbook_invite_created_total",
		"Total number of accountant invites created",
		"{invites}",
	); err != nil {
		return nil, err
	}
	if am.inviteAcceptedTotal, err = NewCounter(meter,
		"finbook_invite_accepted_total",
		"Total number of accountant invites accepted",
		"{invites}",
	); err != nil {
		return nil, err
	}
	if am.inviteRevokedTotal, err = NewCounter(meter,
		"finbook_invite_revoked_total",
		"Total number of accountant invites revoked",
		"{invites}",
	); err != nil {
		return nil, err
	}
	if am.otpFailureTotal, err = NewCounter(meter,
		"finbook_otp_failure_total",
		"Total number of failed OTP verification attempts",
		"{attempts}",
	); err != nil {
		return nil, err
	}
	if am.sessionCreatedTotal, err = NewCounter(meter,
		"finbook_accountant_session_created_total",
		"Total number of accountant sessions created",
		"{sessions}",
	); err != nil {
		return nil, err
	}
	if am.sessionDestroyedTotal, err = NewCounter(meter,
		"finbook_accountant_session_destroyed_total",
		"Total number of accountant sessions destroyed",
		"{sessions}",
	); err != nil {
		return nil, err
	}
	if am.accessDeniedTotal, err = NewCounter(meter,
		"finbook_company_access_denied_total",
		"Total number of denied company-context resolutions",
		"{denials}",
	); err != nil {
		return nil, err
	}
	if am.activeSessions, err = NewGauge(meter,
		"finbook_accountant_session_active",
		"Number of live accountant sessions after the last sweep",
		"{sessions}",
	); err != nil {
		return nil, err
	}

	return am, nil
}

// RecordInviteCreated records a created invite
func (am *AccessMetrics) RecordInviteCreated(ctx context.Context, companyID string) {
	am.inviteCreatedTotal.Inc(ctx, AttrCompanyID.String(companyID))
}

// RecordInviteAccepted records an accepted invite
func (am *AccessMetrics) RecordInviteAccepted(ctx context.Context, companyID string) {
	am.inviteAcceptedTotal.Inc(ctx, AttrCompanyID.String(companyID))
}

// RecordInviteRevoked records a revoked invite
func (am *AccessMetrics) RecordInviteRevoked(ctx context.Context, companyID string) {
	am.inviteRevokedTotal.Inc(ctx, AttrCompanyID.String(companyID))
}

// RecordOTPFailure records a failed OTP verification attempt
func (am *AccessMetrics) RecordOTPFailure(ctx context.Context, reason string) {
	am.otpFailureTotal.Inc(ctx, AttrDenyReason.String(reason))
}

// RecordSessionCreated records a new accountant session
func (am *AccessMetrics) RecordSessionCreated(ctx context.Context, companyID string) {
	am.sessionCreatedTotal.Inc(ctx, AttrCompanyID.String(companyID))
}

// RecordSessionDestroyed records destroyed accountant sessions
func (am *AccessMetrics) RecordSessionDestroyed(ctx context.Context, count int64) {
	am.sessionDestroyedTotal.Add(ctx, count)
}

// RecordAccessDenied records a denied company-context resolution
func (am *AccessMetrics) RecordAccessDenied(ctx context.Context, reason string) {
	am.accessDeniedTotal.Inc(ctx, AttrDenyReason.String(reason))
}

// RecordActiveSessions records the current live session count
func (am *AccessMetrics) RecordActiveSessions(ctx context.Context, count int64) {
	am.activeSessions.Record(ctx, count)
}
