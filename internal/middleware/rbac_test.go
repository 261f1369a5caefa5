package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/lms-api/internal/models"
)

func rbacTestRouter(claims *models.JWTClaims, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	inject := func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
		c.Next()
	}
	r.GET("/resource/:id", inject, RBAC(allowed...), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doRBAC(r *gin.Engine, path string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRBACAllowsMatchingRole(t *testing.T) {
	r := rbacTestRouter(&models.JWTClaims{UserID: 1, Role: models.RoleAdmin}, string(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, doRBAC(r, "/resource/99"))
}

func TestRBACRejectsOtherRole(t *testing.T) {
	r := rbacTestRouter(&models.JWTClaims{UserID: 1, Role: models.RoleStudent}, string(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, doRBAC(r, "/resource/99"))
}

func TestRBACAllowsSelf(t *testing.T) {
	r := rbacTestRouter(&models.JWTClaims{UserID: 7, Role: models.RoleStudent}, string(models.RoleAdmin), AllowSelf)
	assert.Equal(t, http.StatusOK, doRBAC(r, "/resource/7"))
}

func TestRBACRejectsOtherID(t *testing.T) {
	r := rbacTestRouter(&models.JWTClaims{UserID: 7, Role: models.RoleStudent}, string(models.RoleAdmin), AllowSelf)
	assert.Equal(t, http.StatusForbidden, doRBAC(r, "/resource/8"))
}

func TestRBACRejectsMissingClaims(t *testing.T) {
	r := rbacTestRouter(nil, string(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, doRBAC(r, "/resource/1"))
}

func TestRequireRoles(t *testing.T) {
	r := rbacTestRouter(&models.JWTClaims{UserID: 1, Role: models.RoleInstructor})
	assert.Equal(t, http.StatusForbidden, doRBAC(r, "/resource/1"))

	gin.SetMode(gin.TestMode)
	r2 := gin.New()
	r2.GET("/x", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: 1, Role: models.RoleInstructor})
	}, RequireRoles(models.RoleInstructor), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	w := httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
