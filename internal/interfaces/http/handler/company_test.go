package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingAuditRepo captures appended events in memory
type recordingAuditRepo struct {
	events []*access.SecurityAuditEvent
}

func (r *recordingAuditRepo) Append(_ context.Context, event *access.SecurityAuditEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAuditRepo) List(_ context.Context, _ access.AuditFilter) ([]*access.SecurityAuditEvent, int64, error) {
	return nil, 0, nil
}

func exportTestRouter(auditRepo *recordingAuditRepo, cc *appaccess.CompanyContext) *gin.Engine {
	auditService := appaccess.NewAuditService(auditRepo, nil, zap.NewNop())
	h := NewCompanyHandler(nil, auditService, nil, config.CookieConfig{})

	r := gin.New()
	r.GET("/company/export",
		func(c *gin.Context) { c.Set(middleware.CompanyContextKey, cc) },
		middleware.RequirePermission(access.CapabilityExport),
		h.Export,
	)
	return r
}

func TestCompanyHandlerExport(t *testing.T) {
	t.Run("audits the download and serves an attachment", func(t *testing.T) {
		auditRepo := &recordingAuditRepo{}
		cc := &appaccess.CompanyContext{
			CompanyID:   uuid.New(),
			CompanyName: "Bakkerij Jansen",
			UserID:      uuid.New(),
			Role:        access.MembershipRoleAccountant,
			Permissions: access.PermissionSet{CanRead: true, CanExport: true},
		}
		r := exportTestRouter(auditRepo, cc)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/company/export", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
		assert.Contains(t, w.Header().Get("Content-Disposition"), cc.CompanyID.String())

		require.Len(t, auditRepo.events, 1)
		event := auditRepo.events[0]
		assert.Equal(t, access.AuditDataExported, event.EventType)
		require.NotNil(t, event.CompanyID)
		assert.Equal(t, cc.CompanyID, *event.CompanyID)
		assert.Equal(t, "access_summary", event.Metadata["document"])
	})

	t.Run("rejects a context without export permission", func(t *testing.T) {
		auditRepo := &recordingAuditRepo{}
		cc := &appaccess.CompanyContext{
			CompanyID:   uuid.New(),
			UserID:      uuid.New(),
			Role:        access.MembershipRoleAccountant,
			Permissions: access.PermissionSet{CanRead: true},
		}
		r := exportTestRouter(auditRepo, cc)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/company/export", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, auditRepo.events)
	})
}
