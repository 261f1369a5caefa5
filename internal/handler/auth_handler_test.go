package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/middleware"
	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

type stubAuthService struct {
	loginRes   *models.LoginResponse
	loginErr   error
	profile    *models.Profile
	currentErr error
	logoutErr  error
	loggedOut  []string
}

func (s *stubAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.loginRes, nil
}

func (s *stubAuthService) CurrentUser(ctx context.Context, userID int64) (*models.Profile, error) {
	if s.currentErr != nil {
		return nil, s.currentErr
	}
	return s.profile, nil
}

func (s *stubAuthService) Logout(ctx context.Context, claims *models.JWTClaims) error {
	if s.logoutErr != nil {
		return s.logoutErr
	}
	s.loggedOut = append(s.loggedOut, claims.ID)
	return nil
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, claims)
		c.Next()
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{loginRes: &models.LoginResponse{
		AccessToken: "token",
		ExpiresIn:   3600,
		User:        models.Profile{ID: 1, Role: models.RoleStudent},
	}}
	h := NewAuthHandler(svc)

	r := gin.New()
	r.POST("/login", h.Login)

	body, _ := json.Marshal(models.LoginRequest{Email: "a@example.com", Password: "secret", Role: "student"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
	assert.Contains(t, w.Body.String(), `"expires_in":3600`)
}

func TestAuthHandlerLoginBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&stubAuthService{})

	r := gin.New()
	r.POST("/login", h.Login)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&stubAuthService{loginErr: appErrors.Clone(appErrors.ErrInvalidCredentials, "incorrect password")})

	r := gin.New()
	r.POST("/login", h.Login)

	body, _ := json.Marshal(models.LoginRequest{Email: "a@example.com", Password: "bad", Role: "student"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "incorrect password")
}

func TestAuthHandlerCurrentUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{profile: &models.Profile{ID: 7, Name: "Alice", Role: models.RoleAdmin, IsAdmin: true}}
	h := NewAuthHandler(svc)

	r := gin.New()
	r.GET("/current_user", withClaims(&models.JWTClaims{UserID: 7}), h.CurrentUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/current_user", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":true`)
}

func TestAuthHandlerCurrentUserNoClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&stubAuthService{})

	r := gin.New()
	r.GET("/current_user", h.CurrentUser)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/current_user", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLogout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	claims := &models.JWTClaims{UserID: 7}
	claims.ID = "jti-1"
	r := gin.New()
	r.DELETE("/logout", withClaims(claims), h.Logout)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"jti-1"}, svc.loggedOut)
	assert.Contains(t, w.Body.String(), "logged out successfully")
}
