package middleware

import (
	"net/http"
	"strings"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/finbook/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// Session context keys
const (
	ResolvedSessionKey = "resolved_session"
	SessionTokenKey    = "session_token"
	AuthHeaderKey      = "Authorization"
	BearerPrefix       = "Bearer "
)

// SessionResolver resolves the caller from the two authentication lanes in
// order: the primary JWT in the Authorization header first, then the
// accountant session cookie. A bearer token that does not validate falls
// through to the cookie lane; the request only fails when credentials were
// presented and neither lane resolves.
//
// The middleware itself never aborts on missing credentials; route groups
// that need a caller stack RequireSession on top.
func SessionResolver(contextService *appaccess.ContextService, cookieCfg config.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := bearerToken(c)

		cookie, err := c.Cookie(cookieCfg.Name)
		if err != nil {
			cookie = ""
		}
		if cookie != "" {
			c.Set(SessionTokenKey, cookie)
		}

		if bearer == "" && cookie == "" {
			c.Next()
			return
		}

		session, err := contextService.ResolveSession(c.Request.Context(), bearer, cookie)
		if err != nil {
			// Credentials were presented but did not resolve
			abortNotAuthenticated(c)
			return
		}

		c.Set(ResolvedSessionKey, session)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		ctx, _ = logger.WithUserID(ctx, log, session.UserID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireSession aborts with 401 when no session was resolved
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetResolvedSession(c) == nil {
			abortNotAuthenticated(c)
			return
		}
		c.Next()
	}
}

// RequirePrimarySession aborts unless the primary JWT lane resolved the
// caller. Used for owner administration endpoints that accountant sessions
// must never reach.
func RequirePrimarySession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := GetResolvedSession(c)
		if session == nil {
			abortNotAuthenticated(c)
			return
		}
		if session.Kind != appaccess.SessionKindPrimary {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NO_ACCESS",
					"message": "This operation requires a primary login",
				},
			})
			return
		}
		c.Next()
	}
}

// GetResolvedSession retrieves the resolved session from gin.Context
func GetResolvedSession(c *gin.Context) *appaccess.ResolvedSession {
	if v, exists := c.Get(ResolvedSessionKey); exists {
		if session, ok := v.(*appaccess.ResolvedSession); ok {
			return session
		}
	}
	return nil
}

// GetSessionToken retrieves the raw accountant session cookie value, used
// by the logout handler to destroy the session row.
func GetSessionToken(c *gin.Context) string {
	return c.GetString(SessionTokenKey)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader(AuthHeaderKey)
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, BearerPrefix) {
		// A malformed Authorization header counts as an invalid token
		return header
	}
	return strings.TrimPrefix(header, BearerPrefix)
}

func abortNotAuthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "NOT_AUTHENTICATED",
			"message": "Authentication required",
		},
	})
}
