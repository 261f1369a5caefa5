package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	"github.com/noah-isme/lms-api/internal/service"
)

type stubUserService struct {
	profile   *models.Profile
	profiles  []models.Profile
	err       error
	deletedID int64
}

func (s *stubUserService) Register(ctx context.Context, req service.RegisterRequest) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func (s *stubUserService) List(ctx context.Context) ([]models.Profile, error) {
	return s.profiles, s.err
}

func (s *stubUserService) Get(ctx context.Context, id int64) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func (s *stubUserService) Update(ctx context.Context, targetID int64, req service.UpdateUserRequest, callerID int64) (*models.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

func (s *stubUserService) Delete(ctx context.Context, targetID int64, callerID int64) error {
	s.deletedID = targetID
	return s.err
}

func TestUserHandlerRegister(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubUserService{profile: &models.Profile{ID: 1, Username: "alice", Role: models.RoleStudent}}
	h := NewUserHandler(svc)

	r := gin.New()
	r.POST("/users", h.Register)

	body := []byte(`{"name":"Alice","username":"alice","email":"a@example.com","password":"secret1","role":"student"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestUserHandlerGetInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewUserHandler(&stubUserService{})

	r := gin.New()
	r.GET("/users/:id", h.Get)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/abc", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUserHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &stubUserService{}
	h := NewUserHandler(svc)

	r := gin.New()
	r.DELETE("/users/:id", withClaims(&models.JWTClaims{UserID: 1, Role: models.RoleAdmin}), h.Delete)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/users/2", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), svc.deletedID)
}
