package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/infrastructure/auth"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// testUser is the claims a test request carries
type testUser struct {
	ID       uuid.UUID
	Role     identity.Role
	ClientID string
}

func newUser(role identity.Role) testUser {
	return testUser{ID: uuid.New(), Role: role, ClientID: "client-" + string(role)}
}

// as installs claims the way the JWT middleware does
func as(u testUser) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{UserID: u.ID.String(), Role: string(u.Role), ClientID: u.ClientID, TokenType: auth.TokenTypeAccess}
		claims.ID = "jti-" + u.ID.String()
		c.Set(middleware.JWTClaimsKey, claims)
		c.Set(middleware.JWTUserIDKey, u.ID.String())
		c.Set(middleware.JWTRoleKey, string(u.Role))
		c.Set(middleware.JWTClientIDKey, u.ClientID)
		c.Next()
	}
}

// newEngine builds a router with an optional caller in front of every route
func newEngine(u *testUser) *gin.Engine {
	r := gin.New()
	if u != nil {
		r.Use(as(*u))
	}
	return r
}

func doRequest(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// dataMap returns the data block of a success response as a map
func dataMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	resp := decode(t, w)
	require.True(t, resp.Success, w.Body.String())
	m, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is not an object: %s", w.Body.String())
	return m
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
