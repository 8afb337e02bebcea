package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/session"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// SessionKeeper is the single-client session manager as seen by auth
type SessionKeeper interface {
	Get(ctx context.Context, clientID string) (*session.Session, error)
	Set(ctx context.Context, s *session.Session) error
	Clear(ctx context.Context, clientID string) error
	Refresh(ctx context.Context, clientID string) (*session.Session, error)
}

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService handles authentication operations
type AuthService struct {
	users     identity.UserRepository
	tokens    *auth.JWTService
	blacklist auth.TokenBlacklist
	sessions  SessionKeeper
	logger    *zap.Logger
}

// NewAuthService creates a new authentication service. sessions may be nil.
func NewAuthService(
	users identity.UserRepository,
	tokens *auth.JWTService,
	blacklist auth.TokenBlacklist,
	sessions SessionKeeper,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		sessions:  sessions,
		logger:    logger,
	}
}

// Authenticate verifies credentials without issuing tokens
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*identity.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !user.VerifyPassword(password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, errInvalidCredentials
	}
	if !user.CanAuthenticate() {
		s.logger.Warn("Login attempt for deactivated account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}
	return user, nil
}

// Login authenticates a user and returns tokens. With a client id the pair
// becomes that client's session, replacing and revoking any previous one.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.Authenticate(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Role:     user.Role.String(),
		ClientID: input.ClientID,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	user.RecordLogin()
	if err := s.users.Save(ctx, user); err != nil {
		// the login itself succeeded
		s.logger.Error("Failed to record login", zap.Error(err))
	}

	if input.ClientID != "" && s.sessions != nil {
		s.revokeSession(ctx, input.ClientID)
		if err := s.sessions.Set(ctx, toSession(input.ClientID, user, pair)); err != nil {
			return nil, err
		}
	}

	s.logger.Info("User logged in", zap.String("user_id", user.ID.String()), zap.String("client_id", input.ClientID))
	return toAuthResult(pair, user), nil
}

// Refresh rotates a token pair. When the token belongs to the client's
// current session the session manager performs the rotation so concurrent
// tabs share one exchange.
func (s *AuthService) Refresh(ctx context.Context, input RefreshInput) (*AuthResult, error) {
	if input.ClientID != "" && s.sessions != nil {
		if cur, err := s.sessions.Get(ctx, input.ClientID); err == nil && cur.RefreshToken == input.RefreshToken {
			next, err := s.sessions.Refresh(ctx, input.ClientID)
			if err != nil {
				return nil, err
			}
			user, err := s.users.FindByID(ctx, next.UserID)
			if err != nil {
				return nil, err
			}
			return sessionResult(next, user), nil
		}
	}

	pair, user, err := s.rotate(ctx, input.RefreshToken)
	if err != nil {
		return nil, err
	}
	return toAuthResult(pair, user), nil
}

// RefreshSession rotates the pair held by a session
func (s *AuthService) RefreshSession(ctx context.Context, cur *session.Session) (*session.Session, error) {
	pair, user, err := s.rotate(ctx, cur.RefreshToken)
	if err != nil {
		return nil, err
	}
	return toSession(cur.ClientID, user, pair), nil
}

func (s *AuthService) rotate(ctx context.Context, refreshToken string) (*auth.TokenPair, *identity.User, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, nil, mapTokenError(err)
	}
	revoked, err := auth.IsRevoked(ctx, s.blacklist, claims)
	if err != nil {
		return nil, nil, err
	}
	if revoked {
		return nil, nil, shared.NewDomainError("TOKEN_REVOKED", "Refresh token has been revoked")
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !user.CanAuthenticate() {
		return nil, nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	// the current role is re-read so role changes apply on refresh
	pair, old, err := s.tokens.RefreshTokenPair(refreshToken, user.Role.String())
	if err != nil {
		return nil, nil, mapTokenError(err)
	}
	if err := auth.Revoke(ctx, s.blacklist, old); err != nil {
		s.logger.Error("Failed to revoke rotated refresh token", zap.Error(err))
	}
	return pair, user, nil
}

// Logout revokes the presented tokens and clears the client's session
func (s *AuthService) Logout(ctx context.Context, input LogoutInput) error {
	if input.AccessTokenJTI != "" && input.AccessTokenTTL > 0 {
		if err := s.blacklist.AddToBlacklist(ctx, input.AccessTokenJTI, input.AccessTokenTTL); err != nil {
			return err
		}
	}
	if input.RefreshToken != "" {
		if claims, err := s.tokens.ValidateRefreshToken(input.RefreshToken); err == nil {
			if err := auth.Revoke(ctx, s.blacklist, claims); err != nil {
				return err
			}
		}
	}
	if input.ClientID != "" && s.sessions != nil {
		s.revokeSession(ctx, input.ClientID)
		if err := s.sessions.Clear(ctx, input.ClientID); err != nil {
			return err
		}
	}
	return nil
}

// RevokeUser rejects every token issued to userID so far
func (s *AuthService) RevokeUser(ctx context.Context, userID uuid.UUID) error {
	return s.blacklist.AddUserTokensToBlacklist(ctx, userID.String(), s.tokens.RefreshTokenExpiration())
}

// revokeSession blacklists both tokens of the client's current session
func (s *AuthService) revokeSession(ctx context.Context, clientID string) {
	prev, err := s.sessions.Get(ctx, clientID)
	if err != nil {
		return
	}
	if claims, err := s.tokens.ValidateAccessToken(prev.AccessToken); err == nil {
		if err := auth.Revoke(ctx, s.blacklist, claims); err != nil {
			s.logger.Warn("Failed to revoke replaced access token", zap.Error(err))
		}
	}
	if claims, err := s.tokens.ValidateRefreshToken(prev.RefreshToken); err == nil {
		if err := auth.Revoke(ctx, s.blacklist, claims); err != nil {
			s.logger.Warn("Failed to revoke replaced refresh token", zap.Error(err))
		}
	}
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}
}

func toSession(clientID string, user *identity.User, pair *auth.TokenPair) *session.Session {
	return &session.Session{
		ClientID:         clientID,
		UserID:           user.ID,
		Role:             user.Role.String(),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshExpiresAt: pair.RefreshTokenExpiresAt,
	}
}

func toAuthResult(pair *auth.TokenPair, user *identity.User) *AuthResult {
	return &AuthResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  ToUserDTO(user),
	}
}

func sessionResult(s *session.Session, user *identity.User) *AuthResult {
	return &AuthResult{
		AccessToken:           s.AccessToken,
		RefreshToken:          s.RefreshToken,
		AccessTokenExpiresAt:  s.AccessExpiresAt,
		RefreshTokenExpiresAt: s.RefreshExpiresAt,
		TokenType:             "Bearer",
		User:                  ToUserDTO(user),
	}
}
