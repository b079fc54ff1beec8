package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"access-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithIdentity(t *testing.T, stationID, accessPointID, role string, chain ...gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := append([]gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), stationID, accessPointID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	code := serveWithIdentity(t, "desk-1", "ap-1", RoleAdmin,
		RequireAccessPoint(), RequireAnyRole(RoleReceptionist))
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_DisallowedRoleForbidden(t *testing.T) {
	code := serveWithIdentity(t, "kiosk-1", "ap-1", RoleKiosk,
		RequireAccessPoint(), RequireAnyRole(RoleReceptionist))
	if code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAccessPoint_MissingBinding(t *testing.T) {
	code := serveWithIdentity(t, "app-1", "", RoleApp,
		RequireAccessPoint(), RequireAnyRole(RoleApp))
	if code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireAnyRole_AllowedRole(t *testing.T) {
	code := serveWithIdentity(t, "desk-1", "ap-1", RoleReceptionist,
		RequireAccessPoint(), RequireAnyRole(RoleReceptionist))
	if code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}
