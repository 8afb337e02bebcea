package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/shared"
)

// Actor is the authenticated caller
type Actor struct {
	UserID uuid.UUID
	Role   identity.Role
}

func (a Actor) isCustomer() bool { return a.Role == identity.RoleCustomer }
func (a Actor) isDriver() bool   { return a.Role == identity.RoleDriver }

// CreateInput opens a delivery for a signed transaction. The destination
// defaults to the transaction's delivery address; coordinates are geocoded
// unless given.
type CreateInput struct {
	TransactionID      uuid.UUID  `json:"transaction_id" binding:"required"`
	DriverID           *uuid.UUID `json:"driver_id"`
	ScheduledFor       *time.Time `json:"scheduled_for"`
	DestinationAddress string     `json:"destination_address" binding:"max=500"`
	DestinationLat     *float64   `json:"destination_lat" binding:"omitempty,min=-90,max=90"`
	DestinationLng     *float64   `json:"destination_lng" binding:"omitempty,min=-180,max=180"`
}

// ScheduleInput sets the departure time
type ScheduleInput struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

// AssignDriverInput picks the driver
type AssignDriverInput struct {
	DriverID uuid.UUID `json:"driver_id" binding:"required"`
}

// ReasonInput carries a delay or cancellation reason
type ReasonInput struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// LocationInput is one GPS reading from the truck. RecordedAt defaults to now.
type LocationInput struct {
	Latitude   float64    `json:"latitude" binding:"min=-90,max=90"`
	Longitude  float64    `json:"longitude" binding:"min=-180,max=180"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// ListInput filters the delivery listing
type ListInput struct {
	Page          int        `form:"page"`
	PageSize      int        `form:"page_size"`
	Status        string     `form:"status"`
	DriverID      *uuid.UUID `form:"driver_id"`
	CustomerID    *uuid.UUID `form:"customer_id"`
	TransactionID *uuid.UUID `form:"transaction_id"`
}

func (in ListInput) filter(a Actor) (delivery.Filter, error) {
	f := delivery.Filter{Filter: shared.DefaultFilter()}
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = min(in.PageSize, 100)
	}
	if in.Status != "" {
		st := delivery.Status(in.Status)
		if !st.IsValid() {
			return f, shared.NewDomainError("INVALID_STATUS", "Unknown delivery status: "+in.Status)
		}
		f.Status = &st
	}
	f.DriverID = in.DriverID
	f.CustomerID = in.CustomerID
	f.TransactionID = in.TransactionID
	switch {
	case a.isCustomer():
		id := a.UserID
		f.CustomerID = &id
	case a.isDriver():
		id := a.UserID
		f.DriverID = &id
	}
	return f, nil
}

// DTO is the outward view of a delivery
type DTO struct {
	ID                 uuid.UUID        `json:"id"`
	TransactionID      uuid.UUID        `json:"transaction_id"`
	HomeID             uuid.UUID        `json:"home_id"`
	FactoryID          *uuid.UUID       `json:"factory_id,omitempty"`
	CustomerID         uuid.UUID        `json:"customer_id"`
	DriverID           *uuid.UUID       `json:"driver_id,omitempty"`
	Status             delivery.Status  `json:"status"`
	Origin             shared.GeoPoint  `json:"origin"`
	DestinationAddress string           `json:"destination_address"`
	Destination        shared.GeoPoint  `json:"destination"`
	ScheduledFor       *time.Time       `json:"scheduled_for,omitempty"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	ArrivedAt          *time.Time       `json:"arrived_at,omitempty"`
	DeliveredAt        *time.Time       `json:"delivered_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	LastLocation       *shared.GeoPoint `json:"last_location,omitempty"`
	LastLocationAt     *time.Time       `json:"last_location_at,omitempty"`
	RemainingMiles     *float64         `json:"remaining_miles,omitempty"`
	ETA                *time.Time       `json:"eta,omitempty"`
	DelayReason        string           `json:"delay_reason,omitempty"`
	CancelReason       string           `json:"cancel_reason,omitempty"`
	ArrivalNotifiedAt  *time.Time       `json:"arrival_notified_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	Version            int              `json:"version"`
}

func toDTO(d *delivery.Delivery) *DTO {
	return &DTO{
		ID:                 d.ID,
		TransactionID:      d.TransactionID,
		HomeID:             d.HomeID,
		FactoryID:          d.FactoryID,
		CustomerID:         d.CustomerID,
		DriverID:           d.DriverID,
		Status:             d.Status,
		Origin:             d.Origin,
		DestinationAddress: d.DestinationAddress,
		Destination:        d.Destination,
		ScheduledFor:       d.ScheduledFor,
		StartedAt:          d.StartedAt,
		ArrivedAt:          d.ArrivedAt,
		DeliveredAt:        d.DeliveredAt,
		CompletedAt:        d.CompletedAt,
		CancelledAt:        d.CancelledAt,
		LastLocation:       d.LastLocation,
		LastLocationAt:     d.LastLocationAt,
		RemainingMiles:     d.RemainingMiles,
		ETA:                d.ETA,
		DelayReason:        d.DelayReason,
		CancelReason:       d.CancelReason,
		ArrivalNotifiedAt:  d.ArrivalNotifiedAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		Version:            d.Version,
	}
}

// LocationResult is returned to the driver app after a reading
type LocationResult struct {
	Accepted       bool       `json:"accepted"`
	Started        bool       `json:"started"`
	Arriving       bool       `json:"arriving"`
	StartBlocked   string     `json:"start_blocked,omitempty"`
	RemainingMiles float64    `json:"remaining_miles"`
	ETA            *time.Time `json:"eta,omitempty"`
	Delivery       *DTO       `json:"delivery"`
}

// LocationUpdate is pushed on the delivery's realtime topic
type LocationUpdate struct {
	DeliveryID     uuid.UUID       `json:"delivery_id"`
	Status         delivery.Status `json:"status"`
	Location       shared.GeoPoint `json:"location"`
	RecordedAt     time.Time       `json:"recorded_at"`
	RemainingMiles float64         `json:"remaining_miles"`
	ETA            *time.Time      `json:"eta,omitempty"`
}

// PermitInput opens a permit application
type PermitInput struct {
	Jurisdiction string `json:"jurisdiction" binding:"required,max=200"`
	Notes        string `json:"notes" binding:"max=2000"`
}

// ApprovePermitInput records an issued permit
type ApprovePermitInput struct {
	PermitNumber string    `json:"permit_number" binding:"required,max=100"`
	IssuedAt     time.Time `json:"issued_at" binding:"required"`
	ExpiresAt    time.Time `json:"expires_at" binding:"required"`
}

// UploadInput requests a presigned upload for a permit scan
type UploadInput struct {
	FileName    string `json:"file_name" binding:"required,max=255"`
	ContentType string `json:"content_type" binding:"required"`
}

// PermitDTO is the outward view of a permit
type PermitDTO struct {
	ID           uuid.UUID             `json:"id"`
	DeliveryID   uuid.UUID             `json:"delivery_id"`
	Jurisdiction string                `json:"jurisdiction"`
	PermitNumber string                `json:"permit_number,omitempty"`
	Status       delivery.PermitStatus `json:"status"`
	IssuedAt     *time.Time            `json:"issued_at,omitempty"`
	ExpiresAt    *time.Time            `json:"expires_at,omitempty"`
	HasDocument  bool                  `json:"has_document"`
	Notes        string                `json:"notes,omitempty"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

func toPermitDTO(p *delivery.Permit) PermitDTO {
	return PermitDTO{
		ID:           p.ID,
		DeliveryID:   p.DeliveryID,
		Jurisdiction: p.Jurisdiction,
		PermitNumber: p.PermitNumber,
		Status:       p.Status,
		IssuedAt:     p.IssuedAt,
		ExpiresAt:    p.ExpiresAt,
		HasDocument:  p.DocumentKey != "",
		Notes:        p.Notes,
		UpdatedAt:    p.UpdatedAt,
	}
}
