package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appidentity "github.com/homestead/backend/internal/application/identity"
	"github.com/homestead/backend/internal/domain/session"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
)

// AuthService is the part of the identity service the auth endpoints use
type AuthService interface {
	Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.AuthResult, error)
	Refresh(ctx context.Context, input appidentity.RefreshInput) (*appidentity.AuthResult, error)
	Logout(ctx context.Context, input appidentity.LogoutInput) error
}

// SessionReader exposes the stored session of a client
type SessionReader interface {
	Get(ctx context.Context, clientID string) (*session.Session, error)
}

// AuthHandler handles login, token rotation and the client session
type AuthHandler struct {
	BaseHandler
	authService AuthService
	sessions    SessionReader
}

// NewAuthHandler creates a new AuthHandler. sessions may be nil.
func NewAuthHandler(authService AuthService, sessions SessionReader) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions}
}

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"alex@homestead.example"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"correct-horse-battery"`
}

// RefreshTokenRequest carries the refresh token to rotate
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is an issued token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type" example:"Bearer"`
}

// LoginResponse is the login and refresh payload
type LoginResponse struct {
	Token TokenResponse       `json:"token"`
	User  appidentity.UserDTO `json:"user"`
}

// SessionResponse is the current token pair of a client
type SessionResponse struct {
	ClientID  string        `json:"client_id"`
	UserID    uuid.UUID     `json:"user_id"`
	Role      string        `json:"role"`
	Token     TokenResponse `json:"token"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func toLoginResponse(r *appidentity.AuthResult) LoginResponse {
	return LoginResponse{
		Token: TokenResponse{
			AccessToken:           r.AccessToken,
			RefreshToken:          r.RefreshToken,
			AccessTokenExpiresAt:  r.AccessTokenExpiresAt,
			RefreshTokenExpiresAt: r.RefreshTokenExpiresAt,
			TokenType:             r.TokenType,
		},
		User: r.User,
	}
}

// Login godoc
// @ID           login
// @Summary      User login
// @Description  Authenticate with email and password. With X-Client-ID the pair becomes that client's single session, replacing any previous one.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Client-ID header string false "Browser or app install id"
// @Param        request body LoginRequest true "Credentials"
// @Success      200 {object} APIResponse[LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), appidentity.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientID: c.GetHeader(middleware.ClientIDHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toLoginResponse(result))
}

// RefreshToken godoc
// @ID           refreshToken
// @Summary      Refresh access token
// @Description  Rotate a token pair. The presented refresh token is revoked.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        X-Client-ID header string false "Browser or app install id"
// @Param        request body RefreshTokenRequest true "Refresh token"
// @Success      200 {object} APIResponse[LoginResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), appidentity.RefreshInput{
		RefreshToken: req.RefreshToken,
		ClientID:     c.GetHeader(middleware.ClientIDHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toLoginResponse(result))
}

// Logout godoc
// @ID           logout
// @Summary      User logout
// @Description  Revoke the current access token, the given refresh token, and clear the client session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LogoutRequest false "Refresh token to revoke"
// @Success      200 {object} APIResponse[MessageData]
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req LogoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	err := h.authService.Logout(c.Request.Context(), appidentity.LogoutInput{
		AccessTokenJTI: claims.ID,
		AccessTokenTTL: claims.GetRemainingTTL(),
		RefreshToken:   req.RefreshToken,
		ClientID:       claims.ClientID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MessageData{Message: "Logged out successfully"})
}

// GetSession godoc
// @ID           getSession
// @Summary      Get the client session
// @Description  Return the token pair currently stored for the caller's client id. Another tab or instance may have rotated it.
// @Tags         auth
// @Produce      json
// @Success      200 {object} APIResponse[SessionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      401 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /auth/session [get]
func (h *AuthHandler) GetSession(c *gin.Context) {
	if h.sessions == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeNotConfigured, "Client sessions are disabled")
		return
	}
	clientID := middleware.GetJWTClientID(c)
	if clientID == "" {
		h.BadRequest(c, "Token is not bound to a client")
		return
	}

	s, err := h.sessions.Get(c.Request.Context(), clientID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if s.UserID != middleware.GetJWTUserID(c) {
		h.Forbidden(c, "Session belongs to another user")
		return
	}

	h.Success(c, SessionResponse{
		ClientID: s.ClientID,
		UserID:   s.UserID,
		Role:     s.Role,
		Token: TokenResponse{
			AccessToken:           s.AccessToken,
			RefreshToken:          s.RefreshToken,
			AccessTokenExpiresAt:  s.AccessExpiresAt,
			RefreshTokenExpiresAt: s.RefreshExpiresAt,
			TokenType:             "Bearer",
		},
		UpdatedAt: s.UpdatedAt,
	})
}
