package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	appidentity "github.com/homestead/backend/internal/application/identity"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/session"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, in appidentity.LoginInput) (*appidentity.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.AuthResult), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, in appidentity.RefreshInput) (*appidentity.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appidentity.AuthResult), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, in appidentity.LogoutInput) error {
	return m.Called(ctx, in).Error(0)
}

type MockSessionReader struct {
	mock.Mock
}

func (m *MockSessionReader) Get(ctx context.Context, clientID string) (*session.Session, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Session), args.Error(1)
}

func authResult(role identity.Role) *appidentity.AuthResult {
	now := time.Now()
	return &appidentity.AuthResult{
		AccessToken:           "access",
		RefreshToken:          "refresh",
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(7 * 24 * time.Hour),
		TokenType:             "Bearer",
		User:                  appidentity.UserDTO{ID: uuid.New(), Email: "pat@homestead.example", Role: string(role), Active: true},
	}
}

func TestAuthHandler_Login(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, nil)
	r := newEngine(nil)
	r.POST("/auth/login", h.Login)

	svc.On("Login", mock.Anything, appidentity.LoginInput{
		Email:    "pat@homestead.example",
		Password: "correct-horse",
		ClientID: "tab-1",
	}).Return(authResult(identity.RoleCustomer), nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"email":"pat@homestead.example","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.ClientIDHeader, "tab-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataMap(t, w)
	token := data["token"].(map[string]any)
	assert.Equal(t, "access", token["access_token"])
	assert.Equal(t, "Bearer", token["token_type"])
	assert.Equal(t, "customer", data["user"].(map[string]any)["role"])
	svc.AssertExpectations(t)
}

func TestAuthHandler_Login_Validation(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, nil)
	r := newEngine(nil)
	r.POST("/auth/login", h.Login)

	w := doRequest(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "not-an-email", "password": "short"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.NotEmpty(t, resp.Error.Details)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, nil)
	r := newEngine(nil)
	r.POST("/auth/login", h.Login)

	svc.On("Login", mock.Anything, mock.Anything).
		Return(nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password"))

	w := doRequest(t, r, http.MethodPost, "/auth/login", map[string]string{"email": "pat@homestead.example", "password": "wrong-password"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, w))
}

func TestAuthHandler_Refresh(t *testing.T) {
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, nil)
	r := newEngine(nil)
	r.POST("/auth/refresh", h.RefreshToken)

	svc.On("Refresh", mock.Anything, appidentity.RefreshInput{RefreshToken: "old"}).
		Return(authResult(identity.RoleSales), nil)

	w := doRequest(t, r, http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "old"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Logout(t *testing.T) {
	u := newUser(identity.RoleSales)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, nil)
	r := newEngine(&u)
	r.POST("/auth/logout", h.Logout)

	svc.On("Logout", mock.Anything, mock.MatchedBy(func(in appidentity.LogoutInput) bool {
		return in.AccessTokenJTI == "jti-"+u.ID.String() && in.ClientID == u.ClientID && in.RefreshToken == "r1"
	})).Return(nil)

	w := doRequest(t, r, http.MethodPost, "/auth/logout", map[string]string{"refresh_token": "r1"})

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Logout_WithoutBody(t *testing.T) {
	u := newUser(identity.RoleCustomer)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc, nil)
	r := newEngine(&u)
	r.POST("/auth/logout", h.Logout)

	svc.On("Logout", mock.Anything, mock.MatchedBy(func(in appidentity.LogoutInput) bool {
		return in.RefreshToken == ""
	})).Return(nil)

	w := doRequest(t, r, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthHandler_Logout_Anonymous(t *testing.T) {
	h := NewAuthHandler(new(MockAuthService), nil)
	r := newEngine(nil)
	r.POST("/auth/logout", h.Logout)

	w := doRequest(t, r, http.MethodPost, "/auth/logout", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetSession(t *testing.T) {
	u := newUser(identity.RoleSales)
	stored := &session.Session{
		ClientID:         u.ClientID,
		UserID:           u.ID,
		Role:             string(u.Role),
		AccessToken:      "rotated-access",
		RefreshToken:     "rotated-refresh",
		AccessExpiresAt:  time.Now().Add(10 * time.Minute),
		RefreshExpiresAt: time.Now().Add(24 * time.Hour),
		UpdatedAt:        time.Now(),
	}

	t.Run("returns the stored pair", func(t *testing.T) {
		sessions := new(MockSessionReader)
		sessions.On("Get", mock.Anything, u.ClientID).Return(stored, nil)
		h := NewAuthHandler(new(MockAuthService), sessions)
		r := newEngine(&u)
		r.GET("/auth/session", h.GetSession)

		w := doRequest(t, r, http.MethodGet, "/auth/session", nil)

		require.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, w)
		assert.Equal(t, u.ClientID, data["client_id"])
		assert.Equal(t, "rotated-access", data["token"].(map[string]any)["access_token"])
	})

	t.Run("other user's session is forbidden", func(t *testing.T) {
		other := newUser(identity.RoleSales)
		other.ClientID = u.ClientID
		sessions := new(MockSessionReader)
		sessions.On("Get", mock.Anything, u.ClientID).Return(stored, nil)
		h := NewAuthHandler(new(MockAuthService), sessions)
		r := newEngine(&other)
		r.GET("/auth/session", h.GetSession)

		w := doRequest(t, r, http.MethodGet, "/auth/session", nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing session", func(t *testing.T) {
		sessions := new(MockSessionReader)
		sessions.On("Get", mock.Anything, u.ClientID).Return(nil, session.ErrSessionNotFound)
		h := NewAuthHandler(new(MockAuthService), sessions)
		r := newEngine(&u)
		r.GET("/auth/session", h.GetSession)

		w := doRequest(t, r, http.MethodGet, "/auth/session", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, w))
	})

	t.Run("token without client", func(t *testing.T) {
		anon := u
		anon.ClientID = ""
		h := NewAuthHandler(new(MockAuthService), new(MockSessionReader))
		r := newEngine(&anon)
		r.GET("/auth/session", h.GetSession)

		w := doRequest(t, r, http.MethodGet, "/auth/session", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sessions disabled", func(t *testing.T) {
		h := NewAuthHandler(new(MockAuthService), nil)
		r := newEngine(&u)
		r.GET("/auth/session", h.GetSession)

		w := doRequest(t, r, http.MethodGet, "/auth/session", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeNotConfigured, errorCode(t, w))
	})
}
