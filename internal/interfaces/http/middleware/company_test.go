package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	appaccess "github.com/finbook/backend/internal/application/access"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func setCompanyContext(cc *appaccess.CompanyContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CompanyContextKey, cc)
		c.Next()
	}
}

func TestGetCompanyContext(t *testing.T) {
	t.Run("returns nil when nothing stored", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		assert.Nil(t, GetCompanyContext(c))
	})

	t.Run("returns the stored context", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		cc := &appaccess.CompanyContext{CompanyID: uuid.New()}
		c.Set(CompanyContextKey, cc)

		assert.Same(t, cc, GetCompanyContext(c))
	})
}

func TestRequirePermission(t *testing.T) {
	newRouter := func(cc *appaccess.CompanyContext, capability access.Capability) *gin.Engine {
		router := gin.New()
		if cc != nil {
			router.Use(setCompanyContext(cc))
		}
		router.Use(RequirePermission(capability))
		router.GET("/export", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("allows a granted capability", func(t *testing.T) {
		cc := &appaccess.CompanyContext{
			CompanyID:   uuid.New(),
			Permissions: access.PermissionSet{CanRead: true, CanExport: true},
		}

		req := httptest.NewRequest("GET", "/export", nil)
		w := httptest.NewRecorder()
		newRouter(cc, access.CapabilityExport).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rejects a missing capability", func(t *testing.T) {
		cc := &appaccess.CompanyContext{
			CompanyID:   uuid.New(),
			Permissions: access.PermissionSet{CanRead: true},
		}

		req := httptest.NewRequest("GET", "/export", nil)
		w := httptest.NewRecorder()
		newRouter(cc, access.CapabilityExport).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FORBIDDEN")
	})

	t.Run("aborts with 401 when no company context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/export", nil)
		w := httptest.NewRecorder()
		newRouter(nil, access.CapabilityRead).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
