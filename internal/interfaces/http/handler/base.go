package handler

import (
	"errors"
	"net/http"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/interfaces/http/dto"
	"github.com/finbook/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// requestMeta collects caller network details for auditing
func requestMeta(c *gin.Context) appaccess.RequestMeta {
	return appaccess.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// sessionOrAbort returns the resolved session or writes a 401
func (h *BaseHandler) sessionOrAbort(c *gin.Context) (*appaccess.ResolvedSession, bool) {
	session := middleware.GetResolvedSession(c)
	if session == nil {
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeNotAuthenticated, "Authentication required")
		return nil, false
	}
	return session, true
}

// companyContextOrAbort returns the company context or writes a 403
func (h *BaseHandler) companyContextOrAbort(c *gin.Context) (*appaccess.CompanyContext, bool) {
	cc := middleware.GetCompanyContext(c)
	if cc == nil {
		h.Error(c, http.StatusForbidden, dto.ErrCodeNoAccess, "No company context resolved")
		return nil, false
	}
	return cc, true
}

// parseUUIDParam parses a UUID path parameter or writes a 400
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError converts domain errors to HTTP responses. Status codes are
// derived from the domain error code; unknown error types read as 500
// without leaking internals.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		statusCode := dto.GetHTTPStatus(domainErr.Code)
		c.JSON(statusCode, dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, getRequestID(c)))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		getRequestID(c),
	))
}
