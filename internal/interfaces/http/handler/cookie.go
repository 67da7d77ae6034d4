package handler

import (
	"net/http"
	"time"

	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
)

// setSessionCookie writes the accountant session cookie. The cookie is
// always HttpOnly; Secure and SameSite follow configuration.
func setSessionCookie(c *gin.Context, cfg config.CookieConfig, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}

	c.SetSameSite(sameSiteMode(cfg.SameSite))
	c.SetCookie(cfg.Name, token, maxAge, cookiePath(cfg), cfg.Domain, cfg.Secure, true)
}

// clearSessionCookie expires the accountant session cookie
func clearSessionCookie(c *gin.Context, cfg config.CookieConfig) {
	c.SetSameSite(sameSiteMode(cfg.SameSite))
	c.SetCookie(cfg.Name, "", -1, cookiePath(cfg), cfg.Domain, cfg.Secure, true)
}

// setActiveCompanyCookie persists the active-company selection. The value
// is only a hint; membership is re-validated on every request that uses it.
func setActiveCompanyCookie(c *gin.Context, cfg config.CookieConfig, companyID string) {
	maxAge := int(cfg.ActiveCompanyTTL.Seconds())
	c.SetSameSite(sameSiteMode(cfg.SameSite))
	c.SetCookie(cfg.ActiveCompanyName, companyID, maxAge, cookiePath(cfg), cfg.Domain, cfg.Secure, true)
}

func clearActiveCompanyCookie(c *gin.Context, cfg config.CookieConfig) {
	c.SetSameSite(sameSiteMode(cfg.SameSite))
	c.SetCookie(cfg.ActiveCompanyName, "", -1, cookiePath(cfg), cfg.Domain, cfg.Secure, true)
}

func cookiePath(cfg config.CookieConfig) string {
	if cfg.Path == "" {
		return "/"
	}
	return cfg.Path
}

func sameSiteMode(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
