package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MarkupService manages per-user markup tiers
type MarkupService interface {
	Get(ctx context.Context, userID uuid.UUID) (*pricing.MarkupDTO, error)
	Upsert(ctx context.Context, userID uuid.UUID, pct decimal.Decimal, label string, updatedBy *uuid.UUID) (*pricing.MarkupDTO, error)
	Delete(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, page, pageSize int) (shared.Paginated[pricing.MarkupDTO], error)
}

// MarkupHandler handles markup tier endpoints
type MarkupHandler struct {
	BaseHandler
	markups MarkupService
}

// NewMarkupHandler creates a new MarkupHandler
func NewMarkupHandler(markups MarkupService) *MarkupHandler {
	return &MarkupHandler{markups: markups}
}

// UpsertMarkupRequest sets a user's markup percentage
type UpsertMarkupRequest struct {
	Percentage decimal.Decimal `json:"percentage" binding:"gte=0,lte=100" swaggertype:"number" example:"15"`
	Label      string          `json:"label" binding:"max=100" example:"Preferred dealer"`
}

// List godoc
// @ID           listMarkups
// @Summary      List markup tiers
// @Tags         markups
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Success      200 {object} APIResponse[[]pricing.MarkupDTO]
// @Security     BearerAuth
// @Router       /markups [get]
func (h *MarkupHandler) List(c *gin.Context) {
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	page, err := h.markups.List(c.Request.Context(), req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Mine godoc
// @ID           getOwnMarkup
// @Summary      Get the caller's markup
// @Tags         markups
// @Produce      json
// @Success      200 {object} APIResponse[pricing.MarkupDTO]
// @Security     BearerAuth
// @Router       /markups/me [get]
func (h *MarkupHandler) Mine(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	m, err := h.markups.Get(c.Request.Context(), who.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, m)
}

// Get godoc
// @ID           getMarkup
// @Summary      Get a user's markup
// @Description  Users without a tier report the default percentage with is_default set
// @Tags         markups
// @Produce      json
// @Param        user_id path string true "User ID" format(uuid)
// @Success      200 {object} APIResponse[pricing.MarkupDTO]
// @Security     BearerAuth
// @Router       /markups/{user_id} [get]
func (h *MarkupHandler) Get(c *gin.Context) {
	userID, ok := h.pathUUID(c, "user_id")
	if !ok {
		return
	}
	m, err := h.markups.Get(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, m)
}

// Upsert godoc
// @ID           upsertMarkup
// @Summary      Set a user's markup
// @Tags         markups
// @Accept       json
// @Produce      json
// @Param        user_id path string true "User ID" format(uuid)
// @Param        request body UpsertMarkupRequest true "Markup"
// @Success      200 {object} APIResponse[pricing.MarkupDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /markups/{user_id} [put]
func (h *MarkupHandler) Upsert(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	userID, ok := h.pathUUID(c, "user_id")
	if !ok {
		return
	}
	var req UpsertMarkupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	m, err := h.markups.Upsert(c.Request.Context(), userID, req.Percentage, req.Label, &who.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, m)
}

// Delete godoc
// @ID           deleteMarkup
// @Summary      Remove a user's markup tier
// @Tags         markups
// @Param        user_id path string true "User ID" format(uuid)
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /markups/{user_id} [delete]
func (h *MarkupHandler) Delete(c *gin.Context) {
	userID, ok := h.pathUUID(c, "user_id")
	if !ok {
		return
	}
	if err := h.markups.Delete(c.Request.Context(), userID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
