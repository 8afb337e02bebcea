package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "homestead-test",
		MaxRefreshCount:        3,
	})
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		UserID:   uuid.New(),
		Role:     "sales",
		ClientID: "browser-1",
	}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()

	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, input.UserID.String(), claims.UserID)
	assert.Equal(t, "sales", claims.Role)
	assert.Equal(t, "browser-1", claims.ClientID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)

	refresh, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.NotEqual(t, claims.ID, refresh.ID)
}

func TestValidate_RejectsWrongType(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)

	// same secret for both types still trips the type check
	shared := NewJWTService(config.JWTConfig{Secret: "one-secret-for-everything-32-chars", Issuer: "x",
		AccessTokenExpiration: time.Minute, RefreshTokenExpiration: time.Hour})
	pair, err = shared.GenerateTokenPair(newTestInput())
	require.NoError(t, err)
	_, err = shared.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestJWTService()
	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidate_RejectsTamperedAndForeignTokens(t *testing.T) {
	svc := newTestJWTService()
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewJWTService(config.JWTConfig{Secret: "a-completely-different-secret-key!", Issuer: "homestead-test",
		AccessTokenExpiration: time.Minute, RefreshTokenExpiration: time.Hour})
	foreign, err := other.GenerateTokenPair(newTestInput())
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(foreign.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "x", TokenType: TokenTypeAccess})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	t.Run("rotates and carries client id", func(t *testing.T) {
		next, old, err := svc.RefreshTokenPair(pair.RefreshToken, "admin")
		require.NoError(t, err)
		assert.Equal(t, "browser-1", old.ClientID)

		claims, err := svc.ValidateAccessToken(next.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "browser-1", claims.ClientID)

		refresh, err := svc.ValidateRefreshToken(next.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 1, refresh.RefreshCount)
	})

	t.Run("keeps role when none supplied", func(t *testing.T) {
		next, _, err := svc.RefreshTokenPair(pair.RefreshToken, "")
		require.NoError(t, err)
		claims, err := svc.ValidateAccessToken(next.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, "sales", claims.Role)
	})

	t.Run("stops at max refresh count", func(t *testing.T) {
		token := pair.RefreshToken
		for i := 0; i < 3; i++ {
			next, _, err := svc.RefreshTokenPair(token, "")
			require.NoError(t, err)
			token = next.RefreshToken
		}
		_, _, err := svc.RefreshTokenPair(token, "")
		assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, _, err := svc.RefreshTokenPair(pair.AccessToken, "")
		assert.Error(t, err)
	})
}

func TestStateToken(t *testing.T) {
	svc := newTestJWTService()
	userID := uuid.New()

	state, err := svc.SignState(userID, "google_calendar")
	require.NoError(t, err)

	got, err := svc.VerifyState(state, "google_calendar")
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	_, err = svc.VerifyState(state, "docusign")
	assert.ErrorIs(t, err, ErrInvalidClaims)

	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)
	_, err = svc.VerifyState(pair.AccessToken, "google_calendar")
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	svc.now = func() time.Time { return time.Now().Add(-11 * time.Minute) }
	old, err := svc.SignState(userID, "google_calendar")
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.VerifyState(old, "google_calendar")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestClaimsHelpers(t *testing.T) {
	c := &Claims{}
	assert.True(t, c.GetIssuedAtTime().IsZero())
	assert.Zero(t, c.GetRemainingTTL())

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(time.Hour))
	assert.InDelta(t, time.Hour.Seconds(), c.GetRemainingTTL().Seconds(), 5)

	c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	assert.Zero(t, c.GetRemainingTTL())
}
