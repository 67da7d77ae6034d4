package handler

import (
	"fmt"
	"time"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CompanyHandler exposes the company switcher, the resolved context and the
// access-summary export
type CompanyHandler struct {
	BaseHandler
	contextService *appaccess.ContextService
	auditService   *appaccess.AuditService
	companyCtx     gin.HandlerFunc
	cookieCfg      config.CookieConfig
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(contextService *appaccess.ContextService, auditService *appaccess.AuditService, companyCtx gin.HandlerFunc, cookieCfg config.CookieConfig) *CompanyHandler {
	return &CompanyHandler{
		contextService: contextService,
		auditService:   auditService,
		companyCtx:     companyCtx,
		cookieCfg:      cookieCfg,
	}
}

// SelectCompanyRequest is the active-company selection payload
type SelectCompanyRequest struct {
	CompanyID string `json:"company_id" binding:"required,uuid"`
}

// CompanySwitcherResponse lists accessible companies plus the current selection
type CompanySwitcherResponse struct {
	Companies       []*appaccess.AccessibleCompanyDTO `json:"companies"`
	ActiveCompanyID string                            `json:"active_company_id,omitempty"`
}

// RegisterRoutes registers company routes
func (h *CompanyHandler) RegisterRoutes(rg *gin.RouterGroup) {
	companies := rg.Group("/companies")
	companies.Use(middleware.RequireSession())
	{
		companies.GET("", h.ListAccessible)
		companies.POST("/active", h.SelectActive)
		companies.DELETE("/active", h.ClearActive)
	}

	company := rg.Group("/company")
	company.Use(middleware.RequireSession(), h.companyCtx)
	{
		company.GET("/context", middleware.RequirePermission(access.CapabilityRead), h.Context)
		company.GET("/export", middleware.RequirePermission(access.CapabilityExport), h.Export)
	}
}

// ListAccessible returns every company the caller can act in, together
// with the currently selected one. Accountant sessions see only their
// pinned company.
func (h *CompanyHandler) ListAccessible(c *gin.Context) {
	session, ok := h.sessionOrAbort(c)
	if !ok {
		return
	}

	companies, err := h.contextService.ListAccessibleCompanies(c.Request.Context(), session)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, &CompanySwitcherResponse{
		Companies:       companies,
		ActiveCompanyID: h.activeCompanyID(c, session),
	})
}

// SelectActive validates the requested company against the session and
// persists the choice in the active-company cookie. The cookie is a hint
// only; every later request re-validates access.
func (h *CompanyHandler) SelectActive(c *gin.Context) {
	session, ok := h.sessionOrAbort(c)
	if !ok {
		return
	}

	var req SelectCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		h.BadRequest(c, "company_id must be a valid UUID")
		return
	}

	cc, err := h.contextService.ResolveCompanyContext(c.Request.Context(), session, companyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	setActiveCompanyCookie(c, h.cookieCfg, cc.CompanyID.String())
	h.Success(c, cc)
}

// ClearActive drops the active-company selection
func (h *CompanyHandler) ClearActive(c *gin.Context) {
	if _, ok := h.sessionOrAbort(c); !ok {
		return
	}
	clearActiveCompanyCookie(c, h.cookieCfg)
	h.NoContent(c)
}

// Context returns the resolved company context for the current request
func (h *CompanyHandler) Context(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	h.Success(c, cc)
}

// AccessSummaryExport is the downloadable access-summary document
type AccessSummaryExport struct {
	CompanyID   uuid.UUID             `json:"company_id"`
	CompanyName string                `json:"company_name"`
	UserID      uuid.UUID             `json:"user_id"`
	Role        access.MembershipRole `json:"role"`
	IsOwner     bool                  `json:"is_owner"`
	Permissions access.PermissionSet  `json:"permissions"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Export downloads the access summary of the current company context as an
// attachment. The download itself is a data export and is audited as such.
func (h *CompanyHandler) Export(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}

	h.auditService.Record(c.Request.Context(), access.NewSecurityAuditEvent(access.AuditDataExported).
		WithUser(cc.UserID).
		WithCompany(cc.CompanyID).
		WithRequest(c.ClientIP(), c.Request.UserAgent()).
		WithDetail("document", "access_summary"))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=access-summary-%s.json", cc.CompanyID))
	h.Success(c, &AccessSummaryExport{
		CompanyID:   cc.CompanyID,
		CompanyName: cc.CompanyName,
		UserID:      cc.UserID,
		Role:        cc.Role,
		IsOwner:     cc.IsOwner,
		Permissions: cc.Permissions,
		GeneratedAt: time.Now().UTC(),
	})
}

// activeCompanyID reports the current selection without trusting it:
// accountant sessions are pinned, primary sessions read the cookie.
// A malformed cookie value reads as "no selection".
func (h *CompanyHandler) activeCompanyID(c *gin.Context, session *appaccess.ResolvedSession) string {
	if session.IsAccountant() {
		return session.CompanyID.String()
	}
	value, err := c.Cookie(h.cookieCfg.ActiveCompanyName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(value); err != nil {
		return ""
	}
	return value
}
