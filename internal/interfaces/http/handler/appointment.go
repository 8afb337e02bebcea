package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
)

// AppointmentService books appointments and manages calendar links
type AppointmentService interface {
	Create(ctx context.Context, in scheduling.CreateInput, a scheduling.Actor) (*scheduling.DTO, error)
	Get(ctx context.Context, id uuid.UUID, a scheduling.Actor) (*scheduling.DTO, error)
	List(ctx context.Context, in scheduling.ListInput, a scheduling.Actor) (shared.Paginated[scheduling.DTO], error)
	Reschedule(ctx context.Context, id uuid.UUID, in scheduling.RescheduleInput) (*scheduling.DTO, error)
	Confirm(ctx context.Context, id uuid.UUID, a scheduling.Actor) (*scheduling.DTO, error)
	Complete(ctx context.Context, id uuid.UUID) (*scheduling.DTO, error)
	MarkNoShow(ctx context.Context, id uuid.UUID) (*scheduling.DTO, error)
	Cancel(ctx context.Context, id uuid.UUID, a scheduling.Actor) (*scheduling.DTO, error)

	Connection(ctx context.Context, userID uuid.UUID) (*scheduling.ConnectionDTO, error)
	Disconnect(ctx context.Context, userID uuid.UUID) error
}

// AppointmentHandler handles appointments and the staff calendar connection
type AppointmentHandler struct {
	BaseHandler
	appointments AppointmentService
}

// NewAppointmentHandler creates a new AppointmentHandler
func NewAppointmentHandler(appointments AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

func (h *AppointmentHandler) actor(c *gin.Context) (scheduling.Actor, bool) {
	who, ok := h.requireCaller(c)
	return scheduling.Actor{UserID: who.UserID, Role: who.Role}, ok
}

func (h *AppointmentHandler) respond(c *gin.Context, appt *scheduling.DTO, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, appt)
}

// Create godoc
// @ID           createAppointment
// @Summary      Book an appointment
// @Description  Staff defaults to the caller. Overlapping scheduled or confirmed appointments of the same staff member are rejected.
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        request body scheduling.CreateInput true "Appointment"
// @Success      201 {object} APIResponse[scheduling.DTO]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments [post]
func (h *AppointmentHandler) Create(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	var in scheduling.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	appt, err := h.appointments.Create(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, appt)
}

// List godoc
// @ID           listAppointments
// @Summary      List appointments
// @Description  Customers only see their own
// @Tags         appointments
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status"
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        staff_id query string false "Staff" format(uuid)
// @Param        from query string false "Starts at or after (RFC3339 or YYYY-MM-DD)"
// @Param        to query string false "Starts before (RFC3339 or YYYY-MM-DD)"
// @Success      200 {object} APIResponse[[]scheduling.DTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments [get]
func (h *AppointmentHandler) List(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	in := scheduling.ListInput{Page: req.Page, PageSize: req.PageSize, Status: c.Query("status")}
	if !h.optionalUUIDs(c, map[string]**uuid.UUID{
		"customer_id": &in.CustomerID,
		"staff_id":    &in.StaffID,
	}) {
		return
	}
	if !h.optionalTimes(c, map[string]**time.Time{"from": &in.From, "to": &in.To}) {
		return
	}
	page, err := h.appointments.List(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get godoc
// @ID           getAppointment
// @Summary      Get an appointment
// @Tags         appointments
// @Produce      json
// @Param        id path string true "Appointment ID" format(uuid)
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Get(c.Request.Context(), id, a)
	h.respond(c, appt, err)
}

// Reschedule godoc
// @ID           rescheduleAppointment
// @Summary      Move an appointment
// @Tags         appointments
// @Accept       json
// @Produce      json
// @Param        id path string true "Appointment ID" format(uuid)
// @Param        request body scheduling.RescheduleInput true "New time"
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments/{id}/reschedule [post]
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var in scheduling.RescheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	appt, err := h.appointments.Reschedule(c.Request.Context(), id, in)
	h.respond(c, appt, err)
}

// Confirm godoc
// @ID           confirmAppointment
// @Summary      Confirm an appointment
// @Tags         appointments
// @Produce      json
// @Param        id path string true "Appointment ID" format(uuid)
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Confirm(c.Request.Context(), id, a)
	h.respond(c, appt, err)
}

// Complete godoc
// @ID           completeAppointment
// @Summary      Mark an appointment held
// @Tags         appointments
// @Produce      json
// @Param        id path string true "Appointment ID" format(uuid)
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments/{id}/complete [post]
func (h *AppointmentHandler) Complete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Complete(c.Request.Context(), id)
	h.respond(c, appt, err)
}

// NoShow godoc
// @ID           noShowAppointment
// @Summary      Mark the customer absent
// @Tags         appointments
// @Produce      json
// @Param        id path string true "Appointment ID" format(uuid)
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments/{id}/no-show [post]
func (h *AppointmentHandler) NoShow(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.MarkNoShow(c.Request.Context(), id)
	h.respond(c, appt, err)
}

// Cancel godoc
// @ID           cancelAppointment
// @Summary      Cancel an appointment
// @Description  Customers may cancel their own
// @Tags         appointments
// @Produce      json
// @Param        id path string true "Appointment ID" format(uuid)
// @Success      200 {object} APIResponse[scheduling.DTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	appt, err := h.appointments.Cancel(c.Request.Context(), id, a)
	h.respond(c, appt, err)
}

// Connection godoc
// @ID           getCalendarConnection
// @Summary      Get the caller's Google Calendar link
// @Tags         calendar
// @Produce      json
// @Success      200 {object} APIResponse[scheduling.ConnectionDTO]
// @Security     BearerAuth
// @Router       /calendar/connection [get]
func (h *AppointmentHandler) Connection(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	conn, err := h.appointments.Connection(c.Request.Context(), who.UserID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, conn)
}

// Disconnect godoc
// @ID           disconnectCalendar
// @Summary      Remove the caller's Google Calendar link
// @Tags         calendar
// @Success      204
// @Security     BearerAuth
// @Router       /calendar/connection [delete]
func (h *AppointmentHandler) Disconnect(c *gin.Context) {
	who, ok := h.requireCaller(c)
	if !ok {
		return
	}
	if err := h.appointments.Disconnect(c.Request.Context(), who.UserID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
