package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// AppointmentType is the purpose of a meeting
type AppointmentType string

const (
	TypeConsultation        AppointmentType = "consultation"
	TypeSiteVisit           AppointmentType = "site_visit"
	TypeDeliveryWalkthrough AppointmentType = "delivery_walkthrough"
	TypeClosing             AppointmentType = "closing"
)

// IsValid reports whether t is a known appointment type
func (t AppointmentType) IsValid() bool {
	switch t {
	case TypeConsultation, TypeSiteVisit, TypeDeliveryWalkthrough, TypeClosing:
		return true
	}
	return false
}

// AppointmentStatus is the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no_show"
)

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentScheduled: {AppointmentConfirmed, AppointmentCancelled, AppointmentCompleted, AppointmentNoShow},
	AppointmentConfirmed: {AppointmentCompleted, AppointmentCancelled, AppointmentNoShow},
}

// IsValid reports whether s is a known status
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentScheduled, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentNoShow:
		return true
	}
	return false
}

// CanTransitionTo reports whether s -> to is allowed
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	for _, next := range appointmentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether the appointment still occupies the staff calendar
func (s AppointmentStatus) IsOpen() bool {
	return s == AppointmentScheduled || s == AppointmentConfirmed
}

// Appointment is a meeting between a customer and a staff member
type Appointment struct {
	shared.BaseAggregateRoot
	CustomerID      uuid.UUID
	StaffID         uuid.UUID
	Type            AppointmentType
	Status          AppointmentStatus
	StartsAt        time.Time
	EndsAt          time.Time
	Location        string
	Notes           string
	CalendarEventID string
	ReminderSentAt  *time.Time
}

// NewAppointment creates a scheduled appointment
func NewAppointment(customerID, staffID uuid.UUID, typ AppointmentType, startsAt, endsAt time.Time, location, notes string) (*Appointment, error) {
	if customerID == uuid.Nil || staffID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PARTICIPANTS", "Appointment requires a customer and a staff member")
	}
	if !typ.IsValid() {
		return nil, shared.NewDomainError("INVALID_TYPE", "Unknown appointment type: "+string(typ))
	}
	if err := validateWindow(startsAt, endsAt); err != nil {
		return nil, err
	}
	a := &Appointment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		StaffID:           staffID,
		Type:              typ,
		Status:            AppointmentScheduled,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		Location:          strings.TrimSpace(location),
		Notes:             notes,
	}
	a.AddDomainEvent(NewAppointmentEvent(EventTypeAppointmentScheduled, a))
	return a, nil
}

// Overlaps reports whether a and the window [start, end) intersect
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartsAt.Before(end) && start.Before(a.EndsAt)
}

// Reschedule moves an open appointment to a new window
func (a *Appointment) Reschedule(startsAt, endsAt time.Time) error {
	if !a.Status.IsOpen() {
		return shared.NewDomainError("INVALID_STATE", "Only scheduled or confirmed appointments can be rescheduled")
	}
	if err := validateWindow(startsAt, endsAt); err != nil {
		return err
	}
	a.StartsAt = startsAt
	a.EndsAt = endsAt
	a.ReminderSentAt = nil
	a.Touch()
	a.AddDomainEvent(NewAppointmentEvent(EventTypeAppointmentRescheduled, a))
	return nil
}

// Confirm marks the customer as confirmed
func (a *Appointment) Confirm() error {
	return a.transition(AppointmentConfirmed, EventTypeAppointmentConfirmed)
}

// Complete marks the meeting as held
func (a *Appointment) Complete() error {
	return a.transition(AppointmentCompleted, EventTypeAppointmentCompleted)
}

// Cancel cancels the meeting
func (a *Appointment) Cancel() error {
	return a.transition(AppointmentCancelled, EventTypeAppointmentCancelled)
}

// MarkNoShow records that the customer did not attend
func (a *Appointment) MarkNoShow() error {
	return a.transition(AppointmentNoShow, EventTypeAppointmentNoShow)
}

// NeedsReminder reports whether a reminder should go out before cutoff
func (a *Appointment) NeedsReminder(now, cutoff time.Time) bool {
	return a.Status.IsOpen() && a.ReminderSentAt == nil && a.StartsAt.After(now) && !a.StartsAt.After(cutoff)
}

// MarkReminderSent stamps the reminder time and raises the reminder event
func (a *Appointment) MarkReminderSent(at time.Time) {
	a.ReminderSentAt = &at
	a.Touch()
	a.AddDomainEvent(NewAppointmentEvent(EventTypeAppointmentReminderDue, a))
}

// SetCalendarEventID links the appointment to a calendar event
func (a *Appointment) SetCalendarEventID(id string) {
	a.CalendarEventID = id
	a.Touch()
}

func (a *Appointment) transition(to AppointmentStatus, eventType string) error {
	if !a.Status.CanTransitionTo(to) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move appointment from %s to %s", a.Status, to))
	}
	a.Status = to
	a.Touch()
	a.AddDomainEvent(NewAppointmentEvent(eventType, a))
	return nil
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return shared.NewDomainError("INVALID_TIME", "Start and end times are required")
	}
	if !end.After(start) {
		return shared.NewDomainError("INVALID_TIME", "Appointment must end after it starts")
	}
	return nil
}

// AppointmentFilter narrows appointment listings
type AppointmentFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	StaffID    *uuid.UUID
	Status     *AppointmentStatus
	From       *time.Time
	To         *time.Time
}

// AppointmentRepository persists appointments
type AppointmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	FindAll(ctx context.Context, filter AppointmentFilter) ([]*Appointment, int64, error)
	// FindOverlapping returns open appointments of staffID intersecting [start, end), excluding excludeID
	FindOverlapping(ctx context.Context, staffID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]*Appointment, error)
	// FindNeedingReminder returns open appointments starting in (now, cutoff] with no reminder sent
	FindNeedingReminder(ctx context.Context, now, cutoff time.Time) ([]*Appointment, error)
	Save(ctx context.Context, a *Appointment) error
}
