package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationInput struct {
	Email    string          `json:"email" binding:"required,email"`
	Role     string          `json:"role" binding:"required,role"`
	Price    decimal.Decimal `json:"price" binding:"gte=0"`
	Latitude float64         `json:"latitude" binding:"latitude"`
}

func bindRouter() *gin.Engine {
	SetupValidator()
	r := gin.New()
	r.Use(RequestID())
	r.POST("/test", func(c *gin.Context) {
		var in validationInput
		if err := c.ShouldBindJSON(&in); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func postJSON(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	w := postJSON(bindRouter(), `{"email":"nope","role":"janitor","price":"-5","latitude":123}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.RequestID)

	got := map[string]string{}
	for _, d := range resp.Error.Details {
		got[d.Field] = d.Message
	}
	assert.Equal(t, "Invalid email format", got["email"])
	assert.Equal(t, "Must be one of: admin sales driver customer", got["role"])
	assert.Equal(t, "Must be greater than or equal to 0", got["price"])
	assert.Equal(t, "Must be a latitude between -90 and 90", got["latitude"])
}

func TestHandleValidationError_Valid(t *testing.T) {
	w := postJSON(bindRouter(), `{"email":"a@b.co","role":"sales","price":"12.50","latitude":41.2}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	w := postJSON(bindRouter(), `{"email":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, w.Body.Bytes()).Code)
}

func TestHandleValidationError_WrongType(t *testing.T) {
	w := postJSON(bindRouter(), `{"email":"a@b.co","role":"sales","latitude":"north"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	info := decodeError(t, w.Body.Bytes())
	assert.Equal(t, dto.ErrCodeValidation, info.Code)
	require.Len(t, info.Details, 1)
	assert.Equal(t, "latitude", info.Details[0].Field)
}
