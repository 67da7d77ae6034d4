package handler

import (
	"time"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/interfaces/http/dto"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditHandler exposes the security audit log to company owners
type AuditHandler struct {
	BaseHandler
	auditService *appaccess.AuditService
	companyCtx   gin.HandlerFunc
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *appaccess.AuditService, companyCtx gin.HandlerFunc) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		companyCtx:   companyCtx,
	}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	audit := rg.Group("/company/audit-events")
	audit.Use(middleware.RequireSession(), middleware.RequirePrimarySession(), h.companyCtx)
	{
		audit.GET("", h.List)
	}
}

// AuditListRequest are the audit log query parameters
type AuditListRequest struct {
	dto.ListRequest
	EventType string `form:"event_type"`
	UserID    string `form:"user_id"`
	From      string `form:"from"`
	To        string `form:"to"`
}

// List returns a page of audit events for the current company, newest first
func (h *AuditHandler) List(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}

	req := AuditListRequest{ListRequest: dto.DefaultListRequest()}
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters")
		return
	}

	filter, ok := h.buildFilter(c, req)
	if !ok {
		return
	}

	events, total, err := h.auditService.ListForCompany(c.Request.Context(), cc.UserID, cc.CompanyID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, events, total, req.Page, req.PageSize)
}

func (h *AuditHandler) buildFilter(c *gin.Context, req AuditListRequest) (access.AuditFilter, bool) {
	filter := access.AuditFilter{
		Limit:  req.PageSize,
		Offset: (req.Page - 1) * req.PageSize,
	}

	if req.EventType != "" {
		eventType := access.AuditEventType(req.EventType)
		filter.EventType = &eventType
	}
	if req.UserID != "" {
		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			h.BadRequest(c, "user_id must be a valid UUID")
			return filter, false
		}
		filter.UserID = &userID
	}
	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			h.BadRequest(c, "from must be an RFC 3339 timestamp")
			return filter, false
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			h.BadRequest(c, "to must be an RFC 3339 timestamp")
			return filter, false
		}
		filter.To = &to
	}

	return filter, true
}
