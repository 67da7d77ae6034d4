package middleware

import (
	"errors"
	"net/http"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Company context keys
const (
	CompanyContextKey  = "company_context"
	CompanyIDHeaderKey = "X-Company-ID"
)

// CompanyContext authorizes the resolved session against the company the
// request targets and stores the resulting context. The company is taken
// from the X-Company-ID header, then the active-company cookie, then the
// session pin for accountant sessions; a primary session with none of
// those falls back to the caller's own company. Denial is explicit: a
// company the caller cannot access means 403, never a silent substitute.
func CompanyContext(contextService *appaccess.ContextService, cookieCfg config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetResolvedSession(c)
		if session == nil {
			abortNotAuthenticated(c)
			return
		}

		companyID, err := requestedCompanyID(c, session, cookieCfg.ActiveCompanyName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": err.Error(),
				},
			})
			return
		}

		cc, err := contextService.ResolveCompanyContext(c.Request.Context(), session, companyID)
		if err != nil {
			status := http.StatusForbidden
			code := "NO_ACCESS"
			if errors.Is(err, shared.ErrNotAuthenticated) {
				status = http.StatusUnauthorized
				code = "NOT_AUTHENTICATED"
			}
			c.AbortWithStatusJSON(status, gin.H{
				"success": false,
				"error": gin.H{
					"code":    code,
					"message": "No access to this company",
				},
			})
			return
		}

		c.Set(CompanyContextKey, cc)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithCompanyID(ctx, log, cc.CompanyID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequirePermission gates a route on one capability of the company context
func RequirePermission(capability access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		cc := GetCompanyContext(c)
		if cc == nil {
			abortNotAuthenticated(c)
			return
		}
		if !cc.Permissions.Allows(capability) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "FORBIDDEN",
					"message": "Missing permission: " + string(capability),
				},
			})
			return
		}
		c.Next()
	}
}

// GetCompanyContext retrieves the company context from gin.Context
func GetCompanyContext(c *gin.Context) *appaccess.CompanyContext {
	if v, exists := c.Get(CompanyContextKey); exists {
		if cc, ok := v.(*appaccess.CompanyContext); ok {
			return cc
		}
	}
	return nil
}

func requestedCompanyID(c *gin.Context, session *appaccess.ResolvedSession, activeCompanyCookie string) (uuid.UUID, error) {
	header := c.GetHeader(CompanyIDHeaderKey)
	if header != "" {
		companyID, err := uuid.Parse(header)
		if err != nil {
			return uuid.Nil, errors.New("X-Company-ID must be a valid UUID")
		}
		return companyID, nil
	}

	// Accountant sessions default to their pinned company
	if session.IsAccountant() {
		return session.CompanyID, nil
	}

	// A malformed or missing cookie reads as "no selection"; the resolver
	// then falls back to the caller's own company
	if value, err := c.Cookie(activeCompanyCookie); err == nil {
		if companyID, err := uuid.Parse(value); err == nil {
			return companyID, nil
		}
	}

	return uuid.Nil, nil
}
