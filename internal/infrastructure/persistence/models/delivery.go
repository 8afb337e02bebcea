package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/shared"
)

// DeliveryModel is the persistence model for deliveries.
type DeliveryModel struct {
	AggregateModel
	TransactionID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	HomeID             uuid.UUID       `gorm:"type:uuid;not null"`
	FactoryID          *uuid.UUID      `gorm:"type:uuid"`
	CustomerID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	DriverID           *uuid.UUID      `gorm:"type:uuid;index"`
	Status             delivery.Status `gorm:"type:varchar(20);not null;index"`
	OriginLat          float64         `gorm:"not null"`
	OriginLng          float64         `gorm:"not null"`
	DestinationAddress string          `gorm:"type:varchar(500);not null"`
	DestinationLat     float64         `gorm:"not null"`
	DestinationLng     float64         `gorm:"not null"`
	ScheduledFor       *time.Time
	StartedAt          *time.Time
	ArrivedAt          *time.Time
	DeliveredAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	LastLat            *float64
	LastLng            *float64
	LastLocationAt     *time.Time `gorm:"index"`
	RemainingMiles     *float64
	ETA                *time.Time `gorm:"column:eta"`
	DelayReason        string     `gorm:"type:varchar(500)"`
	CancelReason       string     `gorm:"type:varchar(500)"`
	ArrivalNotifiedAt  *time.Time
}

// TableName returns the table name for GORM
func (DeliveryModel) TableName() string {
	return "deliveries"
}

// ToDomain converts the persistence model to a domain Delivery.
func (m *DeliveryModel) ToDomain() *delivery.Delivery {
	d := &delivery.Delivery{
		BaseAggregateRoot:  m.ToAggregateRoot(),
		TransactionID:      m.TransactionID,
		HomeID:             m.HomeID,
		FactoryID:          m.FactoryID,
		CustomerID:         m.CustomerID,
		DriverID:           m.DriverID,
		Status:             m.Status,
		Origin:             shared.GeoPoint{Lat: m.OriginLat, Lng: m.OriginLng},
		DestinationAddress: m.DestinationAddress,
		Destination:        shared.GeoPoint{Lat: m.DestinationLat, Lng: m.DestinationLng},
		ScheduledFor:       m.ScheduledFor,
		StartedAt:          m.StartedAt,
		ArrivedAt:          m.ArrivedAt,
		DeliveredAt:        m.DeliveredAt,
		CompletedAt:        m.CompletedAt,
		CancelledAt:        m.CancelledAt,
		LastLocationAt:     m.LastLocationAt,
		RemainingMiles:     m.RemainingMiles,
		ETA:                m.ETA,
		DelayReason:        m.DelayReason,
		CancelReason:       m.CancelReason,
		ArrivalNotifiedAt:  m.ArrivalNotifiedAt,
	}
	if m.LastLat != nil && m.LastLng != nil {
		d.LastLocation = &shared.GeoPoint{Lat: *m.LastLat, Lng: *m.LastLng}
	}
	return d
}

// FromDomain populates the persistence model from a domain Delivery.
func (m *DeliveryModel) FromDomain(d *delivery.Delivery) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.TransactionID = d.TransactionID
	m.HomeID = d.HomeID
	m.FactoryID = d.FactoryID
	m.CustomerID = d.CustomerID
	m.DriverID = d.DriverID
	m.Status = d.Status
	m.OriginLat = d.Origin.Lat
	m.OriginLng = d.Origin.Lng
	m.DestinationAddress = d.DestinationAddress
	m.DestinationLat = d.Destination.Lat
	m.DestinationLng = d.Destination.Lng
	m.ScheduledFor = d.ScheduledFor
	m.StartedAt = d.StartedAt
	m.ArrivedAt = d.ArrivedAt
	m.DeliveredAt = d.DeliveredAt
	m.CompletedAt = d.CompletedAt
	m.CancelledAt = d.CancelledAt
	m.LastLat, m.LastLng = nil, nil
	if d.LastLocation != nil {
		lat, lng := d.LastLocation.Lat, d.LastLocation.Lng
		m.LastLat, m.LastLng = &lat, &lng
	}
	m.LastLocationAt = d.LastLocationAt
	m.RemainingMiles = d.RemainingMiles
	m.ETA = d.ETA
	m.DelayReason = d.DelayReason
	m.CancelReason = d.CancelReason
	m.ArrivalNotifiedAt = d.ArrivalNotifiedAt
}

// PermitModel is the persistence model for permits.
type PermitModel struct {
	AggregateModel
	DeliveryID   uuid.UUID             `gorm:"type:uuid;not null;index"`
	Jurisdiction string                `gorm:"type:varchar(200);not null"`
	PermitNumber string                `gorm:"type:varchar(100)"`
	Status       delivery.PermitStatus `gorm:"type:varchar(20);not null;index"`
	IssuedAt     *time.Time
	ExpiresAt    *time.Time `gorm:"index"`
	DocumentKey  string     `gorm:"type:varchar(500)"`
	Notes        string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PermitModel) TableName() string {
	return "permits"
}

// ToDomain converts the persistence model to a domain Permit.
func (m *PermitModel) ToDomain() *delivery.Permit {
	return &delivery.Permit{
		BaseAggregateRoot: m.ToAggregateRoot(),
		DeliveryID:        m.DeliveryID,
		Jurisdiction:      m.Jurisdiction,
		PermitNumber:      m.PermitNumber,
		Status:            m.Status,
		IssuedAt:          m.IssuedAt,
		ExpiresAt:         m.ExpiresAt,
		DocumentKey:       m.DocumentKey,
		Notes:             m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Permit.
func (m *PermitModel) FromDomain(p *delivery.Permit) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.DeliveryID = p.DeliveryID
	m.Jurisdiction = p.Jurisdiction
	m.PermitNumber = p.PermitNumber
	m.Status = p.Status
	m.IssuedAt = p.IssuedAt
	m.ExpiresAt = p.ExpiresAt
	m.DocumentKey = p.DocumentKey
	m.Notes = p.Notes
}
