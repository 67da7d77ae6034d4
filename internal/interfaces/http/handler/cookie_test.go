package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/finbook/backend/internal/infrastructure/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookieConfig() config.CookieConfig {
	return config.CookieConfig{
		Name:              "finbook_accountant_session",
		ActiveCompanyName: "finbook_active_company",
		ActiveCompanyTTL:  8760 * time.Hour,
		Path:              "/",
		Secure:            true,
		SameSite:          "lax",
	}
}

func TestSetSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)

	setSessionCookie(c, sessionCookieConfig(), "opaque-token", time.Now().Add(30*24*time.Hour))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, "finbook_accountant_session", cookie.Name)
	assert.Equal(t, "opaque-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Greater(t, cookie.MaxAge, 0)
}

func TestSetSessionCookiePastDeadline(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)

	setSessionCookie(c, sessionCookieConfig(), "opaque-token", time.Now().Add(-time.Minute))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.LessOrEqual(t, cookies[0].MaxAge, 0)
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)

	clearSessionCookie(c, sessionCookieConfig())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, "finbook_accountant_session", cookie.Name)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
	assert.True(t, cookie.HttpOnly)
}

func TestSetActiveCompanyCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)

	setActiveCompanyCookie(c, sessionCookieConfig(), "1a7c0a86-9d38-4f3e-9d8f-0b5c3a9e2f11")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	cookie := cookies[0]
	assert.Equal(t, "finbook_active_company", cookie.Name)
	assert.Equal(t, "1a7c0a86-9d38-4f3e-9d8f-0b5c3a9e2f11", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, int((8760 * time.Hour).Seconds()), cookie.MaxAge)
}

func TestClearActiveCompanyCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/", nil)

	clearActiveCompanyCookie(c, sessionCookieConfig())

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "finbook_active_company", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestSameSiteMode(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, sameSiteMode("strict"))
	assert.Equal(t, http.SameSiteNoneMode, sameSiteMode("none"))
	assert.Equal(t, http.SameSiteLaxMode, sameSiteMode("lax"))
	assert.Equal(t, http.SameSiteLaxMode, sameSiteMode(""))
}

func TestCookiePathDefault(t *testing.T) {
	assert.Equal(t, "/", cookiePath(config.CookieConfig{}))
	assert.Equal(t, "/api", cookiePath(config.CookieConfig{Path: "/api"}))
}
