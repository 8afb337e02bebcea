package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/scheduling"
)

// AppointmentModel is the persistence model for appointments.
type AppointmentModel struct {
	AggregateModel
	CustomerID      uuid.UUID                    `gorm:"type:uuid;not null;index"`
	StaffID         uuid.UUID                    `gorm:"type:uuid;not null;index:idx_appointments_staff_window"`
	Type            scheduling.AppointmentType   `gorm:"type:varchar(30);not null"`
	Status          scheduling.AppointmentStatus `gorm:"type:varchar(20);not null;index"`
	StartsAt        time.Time                    `gorm:"not null;index:idx_appointments_staff_window"`
	EndsAt          time.Time                    `gorm:"not null"`
	Location        string                       `gorm:"type:varchar(500)"`
	Notes           string                       `gorm:"type:text"`
	CalendarEventID string                       `gorm:"type:varchar(200)"`
	ReminderSentAt  *time.Time
}

// TableName returns the table name for GORM
func (AppointmentModel) TableName() string {
	return "appointments"
}

// ToDomain converts the persistence model to a domain Appointment.
func (m *AppointmentModel) ToDomain() *scheduling.Appointment {
	return &scheduling.Appointment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		CustomerID:        m.CustomerID,
		StaffID:           m.StaffID,
		Type:              m.Type,
		Status:            m.Status,
		StartsAt:          m.StartsAt,
		EndsAt:            m.EndsAt,
		Location:          m.Location,
		Notes:             m.Notes,
		CalendarEventID:   m.CalendarEventID,
		ReminderSentAt:    m.ReminderSentAt,
	}
}

// FromDomain populates the persistence model from a domain Appointment.
func (m *AppointmentModel) FromDomain(a *scheduling.Appointment) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.CustomerID = a.CustomerID
	m.StaffID = a.StaffID
	m.Type = a.Type
	m.Status = a.Status
	m.StartsAt = a.StartsAt
	m.EndsAt = a.EndsAt
	m.Location = a.Location
	m.Notes = a.Notes
	m.CalendarEventID = a.CalendarEventID
	m.ReminderSentAt = a.ReminderSentAt
}

// CalendarConnectionModel stores a staff member's calendar tokens.
type CalendarConnectionModel struct {
	BaseModel
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CalendarID   string    `gorm:"type:varchar(200);not null;default:'primary'"`
	AccessToken  string    `gorm:"type:text;not null"`
	RefreshToken string    `gorm:"type:text"`
	Expiry       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CalendarConnectionModel) TableName() string {
	return "calendar_connections"
}

// ToDomain converts the persistence model to a domain CalendarConnection.
func (m *CalendarConnectionModel) ToDomain() *scheduling.CalendarConnection {
	return &scheduling.CalendarConnection{
		BaseEntity:   m.BaseModel.ToDomain(),
		UserID:       m.UserID,
		CalendarID:   m.CalendarID,
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		Expiry:       m.Expiry,
	}
}

// FromDomain populates the persistence model from a domain CalendarConnection.
func (m *CalendarConnectionModel) FromDomain(c *scheduling.CalendarConnection) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.UserID = c.UserID
	m.CalendarID = c.CalendarID
	m.AccessToken = c.AccessToken
	m.RefreshToken = c.RefreshToken
	m.Expiry = c.Expiry
}
