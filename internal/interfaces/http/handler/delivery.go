package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/delivery"
	"github.com/homestead/backend/internal/application/document"
	"github.com/homestead/backend/internal/domain/shared"
)

// DeliveryService is the delivery, permit and GPS surface used over HTTP
type DeliveryService interface {
	Create(ctx context.Context, in delivery.CreateInput) (*delivery.DTO, error)
	Get(ctx context.Context, id uuid.UUID, a delivery.Actor) (*delivery.DTO, error)
	List(ctx context.Context, in delivery.ListInput, a delivery.Actor) (shared.Paginated[delivery.DTO], error)
	AssignDriver(ctx context.Context, id uuid.UUID, in delivery.AssignDriverInput) (*delivery.DTO, error)
	Schedule(ctx context.Context, id uuid.UUID, in delivery.ScheduleInput) (*delivery.DTO, error)
	Start(ctx context.Context, id uuid.UUID) (*delivery.DTO, error)
	Delay(ctx context.Context, id uuid.UUID, in delivery.ReasonInput) (*delivery.DTO, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*delivery.DTO, error)
	Complete(ctx context.Context, id uuid.UUID) (*delivery.DTO, error)
	Cancel(ctx context.Context, id uuid.UUID, in delivery.ReasonInput) (*delivery.DTO, error)
	RecordLocation(ctx context.Context, id uuid.UUID, in delivery.LocationInput, a delivery.Actor) (*delivery.LocationResult, error)
	CanWatch(ctx context.Context, id uuid.UUID, a delivery.Actor) bool

	CreatePermit(ctx context.Context, deliveryID uuid.UUID, in delivery.PermitInput) (*delivery.PermitDTO, error)
	ListPermits(ctx context.Context, deliveryID uuid.UUID, a delivery.Actor) ([]delivery.PermitDTO, error)
	ApprovePermit(ctx context.Context, deliveryID, permitID uuid.UUID, in delivery.ApprovePermitInput) (*delivery.PermitDTO, error)
	RejectPermit(ctx context.Context, deliveryID, permitID uuid.UUID, in delivery.ReasonInput) (*delivery.PermitDTO, error)
	PermitUploadURL(ctx context.Context, deliveryID, permitID uuid.UUID, in delivery.UploadInput) (*document.PresignedURL, error)
	PermitDownloadURL(ctx context.Context, deliveryID, permitID uuid.UUID, a delivery.Actor) (*document.PresignedURL, error)
}

// DeliveryHandler handles deliveries, their permits and driver GPS updates
type DeliveryHandler struct {
	BaseHandler
	deliveries DeliveryService
}

// NewDeliveryHandler creates a new DeliveryHandler
func NewDeliveryHandler(deliveries DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

func (h *DeliveryHandler) actor(c *gin.Context) (delivery.Actor, bool) {
	who, ok := h.requireCaller(c)
	return delivery.Actor{UserID: who.UserID, Role: who.Role}, ok
}

// change runs a staff operation on the delivery at :id
func (h *DeliveryHandler) change(c *gin.Context, fn func(context.Context, uuid.UUID) (*delivery.DTO, error)) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	d, err := fn(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

// permitIDs parses :id and :permit_id
func (h *DeliveryHandler) permitIDs(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	deliveryID, ok := h.pathUUID(c, "id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	permitID, ok := h.pathUUID(c, "permit_id")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return deliveryID, permitID, true
}

// Create godoc
// @ID           createDelivery
// @Summary      Create a delivery for a signed transaction
// @Description  The transaction must be contract_signed, in_production or ready_for_delivery. Without coordinates the destination address is geocoded.
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        request body delivery.CreateInput true "Delivery"
// @Success      201 {object} APIResponse[delivery.DTO]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries [post]
func (h *DeliveryHandler) Create(c *gin.Context) {
	var in delivery.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	d, err := h.deliveries.Create(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, d)
}

// List godoc
// @ID           listDeliveries
// @Summary      List deliveries
// @Description  Drivers see their assignments, customers their own deliveries
// @Tags         deliveries
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status"
// @Param        driver_id query string false "Driver" format(uuid)
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        transaction_id query string false "Transaction" format(uuid)
// @Success      200 {object} APIResponse[[]delivery.DTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries [get]
func (h *DeliveryHandler) List(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	in := delivery.ListInput{Page: req.Page, PageSize: req.PageSize, Status: c.Query("status")}
	if !h.optionalUUIDs(c, map[string]**uuid.UUID{
		"driver_id":      &in.DriverID,
		"customer_id":    &in.CustomerID,
		"transaction_id": &in.TransactionID,
	}) {
		return
	}
	page, err := h.deliveries.List(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get godoc
// @ID           getDelivery
// @Summary      Get a delivery
// @Tags         deliveries
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id} [get]
func (h *DeliveryHandler) Get(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	d, err := h.deliveries.Get(c.Request.Context(), id, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, d)
}

// AssignDriver godoc
// @ID           assignDriver
// @Summary      Assign a driver
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        request body delivery.AssignDriverInput true "Driver"
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/driver [put]
func (h *DeliveryHandler) AssignDriver(c *gin.Context) {
	var in delivery.AssignDriverInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	h.change(c, func(ctx context.Context, id uuid.UUID) (*delivery.DTO, error) {
		return h.deliveries.AssignDriver(ctx, id, in)
	})
}

// Schedule godoc
// @ID           scheduleDelivery
// @Summary      Schedule or reschedule a delivery
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        request body delivery.ScheduleInput true "Date"
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/schedule [post]
func (h *DeliveryHandler) Schedule(c *gin.Context) {
	var in delivery.ScheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	h.change(c, func(ctx context.Context, id uuid.UUID) (*delivery.DTO, error) {
		return h.deliveries.Schedule(ctx, id, in)
	})
}

// Start godoc
// @ID           startDelivery
// @Summary      Put a delivery in transit
// @Description  Requires an assigned driver and every permit approved and unexpired
// @Tags         deliveries
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/start [post]
func (h *DeliveryHandler) Start(c *gin.Context) {
	h.change(c, h.deliveries.Start)
}

// Delay godoc
// @ID           delayDelivery
// @Summary      Report a delay
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        request body delivery.ReasonInput true "Reason"
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/delay [post]
func (h *DeliveryHandler) Delay(c *gin.Context) {
	var in delivery.ReasonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	h.change(c, func(ctx context.Context, id uuid.UUID) (*delivery.DTO, error) {
		return h.deliveries.Delay(ctx, id, in)
	})
}

// MarkDelivered godoc
// @ID           markDelivered
// @Summary      Mark the home delivered
// @Tags         deliveries
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/delivered [post]
func (h *DeliveryHandler) MarkDelivered(c *gin.Context) {
	h.change(c, h.deliveries.MarkDelivered)
}

// Complete godoc
// @ID           completeDelivery
// @Summary      Complete a delivery
// @Description  Also completes the transaction when it is ready_for_delivery
// @Tags         deliveries
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/complete [post]
func (h *DeliveryHandler) Complete(c *gin.Context) {
	h.change(c, h.deliveries.Complete)
}

// Cancel godoc
// @ID           cancelDelivery
// @Summary      Cancel a delivery
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        request body delivery.ReasonInput true "Reason"
// @Success      200 {object} APIResponse[delivery.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/cancel [post]
func (h *DeliveryHandler) Cancel(c *gin.Context) {
	var in delivery.ReasonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	h.change(c, func(ctx context.Context, id uuid.UUID) (*delivery.DTO, error) {
		return h.deliveries.Cancel(ctx, id, in)
	})
}

// RecordLocation godoc
// @ID           recordDeliveryLocation
// @Summary      Post a GPS reading
// @Description  Readings older than the last one are ignored. Leaving the departure radius starts the delivery; entering the arrival radius moves it to arriving and notifies the customer once.
// @Tags         deliveries
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        request body delivery.LocationInput true "Reading"
// @Success      200 {object} APIResponse[delivery.LocationResult]
// @Failure      403 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/location [post]
func (h *DeliveryHandler) RecordLocation(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in delivery.LocationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	res, err := h.deliveries.RecordLocation(c.Request.Context(), id, in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, res)
}

// ListPermits godoc
// @ID           listPermits
// @Summary      List the permits of a delivery
// @Tags         permits
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Success      200 {object} APIResponse[[]delivery.PermitDTO]
// @Security     BearerAuth
// @Router       /deliveries/{id}/permits [get]
func (h *DeliveryHandler) ListPermits(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	permits, err := h.deliveries.ListPermits(c.Request.Context(), id, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if permits == nil {
		permits = []delivery.PermitDTO{}
	}
	h.Success(c, permits)
}

// CreatePermit godoc
// @ID           createPermit
// @Summary      Add a permit to a delivery
// @Tags         permits
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        request body delivery.PermitInput true "Permit"
// @Success      201 {object} APIResponse[delivery.PermitDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/permits [post]
func (h *DeliveryHandler) CreatePermit(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in delivery.PermitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	p, err := h.deliveries.CreatePermit(c.Request.Context(), id, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, p)
}

// ApprovePermit godoc
// @ID           approvePermit
// @Summary      Approve a permit
// @Tags         permits
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        permit_id path string true "Permit ID" format(uuid)
// @Param        request body delivery.ApprovePermitInput true "Issued permit"
// @Success      200 {object} APIResponse[delivery.PermitDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/permits/{permit_id}/approve [post]
func (h *DeliveryHandler) ApprovePermit(c *gin.Context) {
	deliveryID, permitID, ok := h.permitIDs(c)
	if !ok {
		return
	}
	var in delivery.ApprovePermitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	p, err := h.deliveries.ApprovePermit(c.Request.Context(), deliveryID, permitID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// RejectPermit godoc
// @ID           rejectPermit
// @Summary      Reject a permit
// @Tags         permits
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        permit_id path string true "Permit ID" format(uuid)
// @Param        request body delivery.ReasonInput true "Reason"
// @Success      200 {object} APIResponse[delivery.PermitDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/permits/{permit_id}/reject [post]
func (h *DeliveryHandler) RejectPermit(c *gin.Context) {
	deliveryID, permitID, ok := h.permitIDs(c)
	if !ok {
		return
	}
	var in delivery.ReasonInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	p, err := h.deliveries.RejectPermit(c.Request.Context(), deliveryID, permitID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// PermitUploadURL godoc
// @ID           permitUploadURL
// @Summary      Get a presigned upload URL for the permit document
// @Tags         permits
// @Accept       json
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        permit_id path string true "Permit ID" format(uuid)
// @Param        request body delivery.UploadInput true "File"
// @Success      200 {object} APIResponse[document.PresignedURL]
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/permits/{permit_id}/upload-url [post]
func (h *DeliveryHandler) PermitUploadURL(c *gin.Context) {
	deliveryID, permitID, ok := h.permitIDs(c)
	if !ok {
		return
	}
	var in delivery.UploadInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	u, err := h.deliveries.PermitUploadURL(c.Request.Context(), deliveryID, permitID, in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, u)
}

// PermitDownloadURL godoc
// @ID           permitDownloadURL
// @Summary      Get a presigned download URL for the permit document
// @Tags         permits
// @Produce      json
// @Param        id path string true "Delivery ID" format(uuid)
// @Param        permit_id path string true "Permit ID" format(uuid)
// @Success      200 {object} APIResponse[document.PresignedURL]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /deliveries/{id}/permits/{permit_id}/download-url [get]
func (h *DeliveryHandler) PermitDownloadURL(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	deliveryID, permitID, ok := h.permitIDs(c)
	if !ok {
		return
	}
	u, err := h.deliveries.PermitDownloadURL(c.Request.Context(), deliveryID, permitID, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, u)
}
