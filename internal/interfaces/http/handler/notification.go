package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/notification"
	"github.com/homestead/backend/internal/domain/shared"
)

// NotificationService is the notification log and automation surface
type NotificationService interface {
	List(ctx context.Context, in notification.ListInput) (shared.Paginated[notification.DTO], error)
	Get(ctx context.Context, id uuid.UUID) (*notification.DTO, error)
	Resend(ctx context.Context, id uuid.UUID) (*notification.Result, error)
	Preview(in notification.PreviewInput) (*notification.PreviewDTO, error)
	ListAutomations(ctx context.Context) ([]notification.AutomationDTO, error)
	UpdateAutomation(ctx context.Context, eventName string, in notification.UpdateAutomationInput, by uuid.UUID) (*notification.AutomationDTO, error)
}

// NotificationHandler exposes the notification log and automation toggles to staff
type NotificationHandler struct {
	BaseHandler
	notifications NotificationService
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @ID           listNotifications
// @Summary      List sent notifications
// @Tags         notifications
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        event_name query string false "Event"
// @Param        reference_type query string false "Reference type"
// @Param        reference_id query string false "Reference" format(uuid)
// @Param        recipient_user_id query string false "Recipient" format(uuid)
// @Success      200 {object} APIResponse[[]notification.DTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	in := notification.ListInput{
		Page:          req.Page,
		PageSize:      req.PageSize,
		EventName:     c.Query("event_name"),
		ReferenceType: c.Query("reference_type"),
	}
	if !h.optionalUUIDs(c, map[string]**uuid.UUID{
		"recipient_user_id": &in.RecipientUserID,
		"reference_id":      &in.ReferenceID,
	}) {
		return
	}
	page, err := h.notifications.List(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get godoc
// @ID           getNotification
// @Summary      Get a notification
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID" format(uuid)
// @Success      200 {object} APIResponse[notification.DTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{id} [get]
func (h *NotificationHandler) Get(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	n, err := h.notifications.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, n)
}

// Resend godoc
// @ID           resendNotification
// @Summary      Send a notification again
// @Description  Re-renders the stored fields and dispatches a new notification
// @Tags         notifications
// @Produce      json
// @Param        id path string true "Notification ID" format(uuid)
// @Success      200 {object} APIResponse[notification.Result]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/{id}/resend [post]
func (h *NotificationHandler) Resend(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.notifications.Resend(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// Preview godoc
// @ID           previewNotification
// @Summary      Render an event's templates
// @Description  Fields left out are reported in missing_fields and rendered empty
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        request body notification.PreviewInput true "Event and sample fields"
// @Success      200 {object} APIResponse[notification.PreviewDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /notifications/preview [post]
func (h *NotificationHandler) Preview(c *gin.Context) {
	var in notification.PreviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	p, err := h.notifications.Preview(in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// ListAutomations godoc
// @ID           listAutomations
// @Summary      List automation toggles
// @Description  One row per known event; events never configured report enabled
// @Tags         notifications
// @Produce      json
// @Success      200 {object} APIResponse[[]notification.AutomationDTO]
// @Security     BearerAuth
// @Router       /automations [get]
func (h *NotificationHandler) ListAutomations(c *gin.Context) {
	list, err := h.notifications.ListAutomations(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}

// UpdateAutomation godoc
// @ID           updateAutomation
// @Summary      Toggle an event or one of its channels
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        event_name path string true "Event" example(delivery.arriving)
// @Param        request body notification.UpdateAutomationInput true "Toggles"
// @Success      200 {object} APIResponse[notification.AutomationDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /automations/{event_name} [put]
func (h *NotificationHandler) UpdateAutomation(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	var in notification.UpdateAutomationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	a, err := h.notifications.UpdateAutomation(c.Request.Context(), c.Param("event_name"), in, who.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, a)
}
