package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chendurkumaran/Edu-resource-sub000/internal/models"
	"github.com/chendurkumaran/Edu-resource-sub000/internal/service"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/config"
	"github.com/chendurkumaran/Edu-resource-sub000/pkg/response"
)

type stubUserStore struct {
	user *models.User
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func newAuthHandlerFixture(t *testing.T) *AuthHandler {
	t.Helper()
	hash, err := service.HashPassword("s3cret")
	require.NoError(t, err)
	store := &stubUserStore{user: &models.User{
		ID:           "u1",
		Email:        "ada@example.com",
		PasswordHash: hash,
		FullName:     "Ada Lovelace",
		Role:         models.RoleStudent,
		Active:       true,
	}}
	cfg := config.JWTConfig{Secret: "handler-test-secret", Expiration: time.Hour, Issuer: "edu-resource"}
	return NewAuthHandler(service.NewAuthService(store, cfg, nil))
}

func performLogin(t *testing.T, h *AuthHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	h.Login(c)
	return w
}

func TestAuthHandlerLogin(t *testing.T) {
	h := newAuthHandlerFixture(t)
	w := performLogin(t, h, `{"email":"ada@example.com","password":"s3cret"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["access_token"])
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	h := newAuthHandlerFixture(t)
	w := performLogin(t, h, `{"email":"ada@example.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	h := newAuthHandlerFixture(t)
	w := performLogin(t, h, `{"email":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
