package handler

import (
	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// InviteHandler handles accountant invite endpoints. It registers two
// surfaces: company-scoped management routes for owners, and public
// (unauthenticated, rate limited) routes for the acceptance flow.
type InviteHandler struct {
	BaseHandler
	inviteService *appaccess.InviteService
	cookieCfg     config.CookieConfig
	companyCtx    gin.HandlerFunc
	publicLimiter gin.HandlerFunc
}

// NewInviteHandler creates a new InviteHandler
func NewInviteHandler(inviteService *appaccess.InviteService, cookieCfg config.CookieConfig, companyCtx, publicLimiter gin.HandlerFunc) *InviteHandler {
	return &InviteHandler{
		inviteService: inviteService,
		cookieCfg:     cookieCfg,
		companyCtx:    companyCtx,
		publicLimiter: publicLimiter,
	}
}

// RegisterRoutes registers invite routes
func (h *InviteHandler) RegisterRoutes(rg *gin.RouterGroup) {
	public := rg.Group("/invites")
	public.Use(h.publicLimiter)
	{
		public.GET("/validate", h.Validate)
		public.POST("/accept", h.Accept)
	}

	admin := rg.Group("/company/invites")
	admin.Use(middleware.RequireSession(), middleware.RequirePrimarySession(), h.companyCtx)
	{
		admin.POST("", h.Create)
		admin.GET("", h.List)
		admin.POST("/:id/resend", h.Resend)
		admin.DELETE("/:id", h.Revoke)
	}
}

// CreateInviteRequest is the invite creation request body
type CreateInviteRequest struct {
	Email           string               `json:"email" binding:"required,email"`
	Role            string               `json:"role"`
	Permissions     access.PermissionSet `json:"permissions"`
	PersonalMessage string               `json:"personal_message" binding:"max=500"`
}

// Create issues a new accountant invite for the current company
func (h *InviteHandler) Create(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}

	var req CreateInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	role := access.MembershipRole(req.Role)
	if role == "" {
		role = access.MembershipRoleAccountant
	}

	invite, err := h.inviteService.CreateInvite(c.Request.Context(), cc.UserID, appaccess.CreateInviteInput{
		CompanyID:       cc.CompanyID,
		Email:           req.Email,
		Permissions:     req.Permissions,
		Role:            role,
		PersonalMessage: req.PersonalMessage,
		Meta:            requestMeta(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invite)
}

// List returns all invites for the current company
func (h *InviteHandler) List(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}

	invites, err := h.inviteService.ListInvites(c.Request.Context(), cc.UserID, cc.CompanyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invites)
}

// Resend regenerates the OTP and sends a fresh invite mail
func (h *InviteHandler) Resend(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	inviteID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	invite, err := h.inviteService.ResendOTP(c.Request.Context(), cc.UserID, inviteID, requestMeta(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invite)
}

// Revoke cancels a pending invite
func (h *InviteHandler) Revoke(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	inviteID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inviteService.RevokeInvite(c.Request.Context(), cc.UserID, inviteID, requestMeta(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Validate resolves the mailed link token to what the acceptance page may
// show before the OTP exchange
func (h *InviteHandler) Validate(c *gin.Context) {
	preview, err := h.inviteService.ValidateInvite(c.Request.Context(), c.Query("token"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, preview)
}

// AcceptInviteRequest is the OTP exchange request body. The token is the
// opaque value from the invite mail; the invite's email is never echoed
// back by the caller.
type AcceptInviteRequest struct {
	Token   string `json:"token" binding:"required"`
	OTPCode string `json:"otp_code" binding:"required,len=6"`
}

// Accept performs the OTP exchange. On success the accountant session
// cookie is set; the opaque session token itself never appears in the JSON
// body.
func (h *InviteHandler) Accept(c *gin.Context) {
	var req AcceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.inviteService.AcceptInvite(c.Request.Context(), appaccess.AcceptInviteInput{
		Token:   req.Token,
		OTPCode: req.OTPCode,
		Meta:    requestMeta(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	setSessionCookie(c, h.cookieCfg, result.SessionToken, result.SessionExpiresAt)
	h.Success(c, result)
}
