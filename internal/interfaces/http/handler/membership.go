package handler

import (
	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// MembershipHandler handles member management for company owners
type MembershipHandler struct {
	BaseHandler
	membershipService *appaccess.MembershipService
	companyCtx        gin.HandlerFunc
}

// NewMembershipHandler creates a new MembershipHandler
func NewMembershipHandler(membershipService *appaccess.MembershipService, companyCtx gin.HandlerFunc) *MembershipHandler {
	return &MembershipHandler{
		membershipService: membershipService,
		companyCtx:        companyCtx,
	}
}

// RegisterRoutes registers membership routes
func (h *MembershipHandler) RegisterRoutes(rg *gin.RouterGroup) {
	members := rg.Group("/company/members")
	members.Use(middleware.RequireSession(), middleware.RequirePrimarySession(), h.companyCtx)
	{
		members.GET("", h.List)
		members.PUT("/:id/permissions", h.UpdatePermissions)
		members.POST("/:id/suspend", h.Suspend)
		members.POST("/:id/reinstate", h.Reinstate)
		members.DELETE("/:id", h.Revoke)
	}
}

// List returns all members of the current company
func (h *MembershipHandler) List(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}

	members, err := h.membershipService.ListMembers(c.Request.Context(), cc.UserID, cc.CompanyID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, members)
}

// UpdatePermissionsRequest is the permission update request body
type UpdatePermissionsRequest struct {
	Permissions access.PermissionSet `json:"permissions" binding:"required"`
}

// UpdatePermissions replaces a member's capability vector
func (h *MembershipHandler) UpdatePermissions(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	membershipID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	member, err := h.membershipService.UpdatePermissions(c.Request.Context(), cc.UserID, cc.CompanyID, membershipID, req.Permissions, requestMeta(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, member)
}

// Suspend blocks a member's access and destroys their live sessions
func (h *MembershipHandler) Suspend(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	membershipID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.membershipService.Suspend(c.Request.Context(), cc.UserID, cc.CompanyID, membershipID, requestMeta(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Revoke permanently removes a member's grant and destroys their live
// sessions
func (h *MembershipHandler) Revoke(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	membershipID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.membershipService.Revoke(c.Request.Context(), cc.UserID, cc.CompanyID, membershipID, requestMeta(c)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Reinstate restores a suspended member
func (h *MembershipHandler) Reinstate(c *gin.Context) {
	cc, ok := h.companyContextOrAbort(c)
	if !ok {
		return
	}
	membershipID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	member, err := h.membershipService.Reinstate(c.Request.Context(), cc.UserID, cc.CompanyID, membershipID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, member)
}
