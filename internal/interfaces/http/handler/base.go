// Package handler holds the gin handlers of the dealership API.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"github.com/homestead/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// caller is the authenticated user of a request
type caller struct {
	UserID uuid.UUID
	Role   identity.Role
}

// currentCaller reads the caller from JWT claims
func currentCaller(c *gin.Context) (caller, bool) {
	id := middleware.GetJWTUserID(c)
	role := middleware.GetJWTRole(c)
	if id == uuid.Nil || !role.IsValid() {
		return caller{}, false
	}
	return caller{UserID: id, Role: role}, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError answers a failed ShouldBind* call with field level details
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError maps domain and integration errors onto the response envelope
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	switch {
	case errors.Is(err, integration.ErrNotConfigured):
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeNotConfigured, "Integration is not configured")
		return
	case errors.Is(err, integration.ErrDocuSignBadSignature):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeInvalidSignature, "Signature verification failed")
		return
	}

	var apiErr *integration.APIError
	if errors.As(err, &apiErr) {
		h.Error(c, http.StatusBadGateway, dto.ErrCodeIntegration, apiErr.Provider+" request failed")
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}

// pathUUID parses a UUID path parameter, answering 400 when malformed
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// requireCaller answers 401 when the request carries no usable claims
func (h *BaseHandler) requireCaller(c *gin.Context) (caller, bool) {
	who, ok := currentCaller(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
	}
	return who, ok
}

// optionalUUID parses an optional UUID query value
func optionalUUID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// optionalUUIDs parses several query values, naming the first bad one
func (h *BaseHandler) optionalUUIDs(c *gin.Context, targets map[string]**uuid.UUID) bool {
	for name, dst := range targets {
		id, err := optionalUUID(c.Query(name))
		if err != nil {
			h.BadRequest(c, "Invalid "+name+" format")
			return false
		}
		*dst = id
	}
	return true
}

// optionalBool parses an optional boolean query value
func optionalBool(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// respondPage sends a paged listing with its meta block
func respondPage[T any](c *gin.Context, p shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewPageResponse(p))
}

// listRequest binds the common paging query parameters
func (h *BaseHandler) listRequest(c *gin.Context) (dto.ListRequest, bool) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return req, false
	}
	return req, true
}

// optionalTimes parses RFC 3339 query values, accepting bare dates too
func (h *BaseHandler) optionalTimes(c *gin.Context, targets map[string]**time.Time) bool {
	for name, dst := range targets {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			t, err = time.Parse(time.DateOnly, raw)
		}
		if err != nil {
			h.BadRequest(c, "Invalid "+name+" format, expected RFC 3339")
			return false
		}
		*dst = &t
	}
	return true
}
