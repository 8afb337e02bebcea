package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// AggregateTypeAppointment is the aggregate type for appointments
const AggregateTypeAppointment = "Appointment"

const (
	EventTypeAppointmentScheduled   = "appointment.scheduled"
	EventTypeAppointmentRescheduled = "appointment.rescheduled"
	EventTypeAppointmentConfirmed   = "appointment.confirmed"
	EventTypeAppointmentCompleted   = "appointment.completed"
	EventTypeAppointmentCancelled   = "appointment.cancelled"
	EventTypeAppointmentNoShow      = "appointment.no_show"
	EventTypeAppointmentReminderDue = "appointment.reminder_due"
)

// AppointmentEvent carries an appointment snapshot for every appointment event type
type AppointmentEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID         `json:"customer_id"`
	StaffID    uuid.UUID         `json:"staff_id"`
	Type       AppointmentType   `json:"type"`
	Status     AppointmentStatus `json:"status"`
	StartsAt   time.Time         `json:"starts_at"`
	EndsAt     time.Time         `json:"ends_at"`
	Location   string            `json:"location"`
}

// NewAppointmentEvent creates an AppointmentEvent of eventType
func NewAppointmentEvent(eventType string, a *Appointment) *AppointmentEvent {
	return &AppointmentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeAppointment, a.ID),
		CustomerID:      a.CustomerID,
		StaffID:         a.StaffID,
		Type:            a.Type,
		Status:          a.Status,
		StartsAt:        a.StartsAt,
		EndsAt:          a.EndsAt,
		Location:        a.Location,
	}
}

// NotificationEvent maps appointment events to notification events
func (e *AppointmentEvent) NotificationEvent() string {
	switch e.EventType() {
	case EventTypeAppointmentScheduled, EventTypeAppointmentRescheduled:
		return "appointment_scheduled"
	case EventTypeAppointmentCancelled:
		return "appointment_cancelled"
	case EventTypeAppointmentReminderDue:
		return "appointment_reminder"
	}
	return ""
}
