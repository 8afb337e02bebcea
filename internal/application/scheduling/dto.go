package scheduling

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
)

// Actor is the authenticated caller
type Actor struct {
	UserID uuid.UUID
	Role   identity.Role
}

func (a Actor) isCustomer() bool { return a.Role == identity.RoleCustomer }
func (a Actor) isDriver() bool   { return a.Role == identity.RoleDriver }

// CreateInput books an appointment. StaffID defaults to the caller.
type CreateInput struct {
	CustomerID uuid.UUID  `json:"customer_id" binding:"required"`
	StaffID    *uuid.UUID `json:"staff_id"`
	Type       string     `json:"type" binding:"required,oneof=consultation site_visit delivery_walkthrough closing"`
	StartsAt   time.Time  `json:"starts_at" binding:"required"`
	EndsAt     time.Time  `json:"ends_at" binding:"required"`
	Location   string     `json:"location" binding:"max=500"`
	Notes      string     `json:"notes" binding:"max=2000"`
}

// RescheduleInput moves an appointment
type RescheduleInput struct {
	StartsAt time.Time `json:"starts_at" binding:"required"`
	EndsAt   time.Time `json:"ends_at" binding:"required"`
}

// ListInput filters the appointment listing
type ListInput struct {
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	Status     string     `form:"status"`
	CustomerID *uuid.UUID `form:"customer_id"`
	StaffID    *uuid.UUID `form:"staff_id"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

func (in ListInput) filter(a Actor) (scheduling.AppointmentFilter, error) {
	f := scheduling.AppointmentFilter{Filter: shared.DefaultFilter()}
	f.OrderBy, f.OrderDir = "starts_at", "asc"
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = min(in.PageSize, 100)
	}
	if in.Status != "" {
		st := scheduling.AppointmentStatus(in.Status)
		if !st.IsValid() {
			return f, shared.NewDomainError("INVALID_STATUS", "Unknown appointment status: "+in.Status)
		}
		f.Status = &st
	}
	f.CustomerID = in.CustomerID
	f.StaffID = in.StaffID
	f.From = in.From
	f.To = in.To
	if a.isCustomer() {
		id := a.UserID
		f.CustomerID = &id
	}
	return f, nil
}

// DTO is the appointment view
type DTO struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	StaffID         uuid.UUID  `json:"staff_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          time.Time  `json:"ends_at"`
	Location        string     `json:"location,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CalendarEventID string     `json:"calendar_event_id,omitempty"`
	ReminderSentAt  *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
}

func toDTO(a *scheduling.Appointment) *DTO {
	return &DTO{
		ID:              a.ID,
		CustomerID:      a.CustomerID,
		StaffID:         a.StaffID,
		Type:            string(a.Type),
		Status:          string(a.Status),
		StartsAt:        a.StartsAt,
		EndsAt:          a.EndsAt,
		Location:        a.Location,
		Notes:           a.Notes,
		CalendarEventID: a.CalendarEventID,
		ReminderSentAt:  a.ReminderSentAt,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
		Version:         a.Version,
	}
}

// AuthURLDTO carries the Google consent URL
type AuthURLDTO struct {
	URL string `json:"url"`
}

// CallbackInput is the OAuth redirect query
type CallbackInput struct {
	Code  string `form:"code" json:"code" binding:"required"`
	State string `form:"state" json:"state" binding:"required"`
}

// ConnectionDTO describes a staff member's calendar link
type ConnectionDTO struct {
	Connected  bool       `json:"connected"`
	CalendarID string     `json:"calendar_id,omitempty"`
	Expiry     *time.Time `json:"expiry,omitempty"`
}

// SyncInput requests a manual calendar sync
type SyncInput struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
}
