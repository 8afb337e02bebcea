package delivery

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// AggregateTypeDelivery is the aggregate type for deliveries
const AggregateTypeDelivery = "Delivery"

// EventTypeDeliveryCreated is published when a delivery is created
const EventTypeDeliveryCreated = "delivery.created"

// EventTypeFor returns the event type published on entering s
func EventTypeFor(s Status) string {
	return "delivery." + string(s)
}

// DeliveryCreatedEvent is published when a delivery is created
type DeliveryCreatedEvent struct {
	shared.BaseDomainEvent
	TransactionID uuid.UUID `json:"transaction_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
}

// NewDeliveryCreatedEvent creates a new DeliveryCreatedEvent
func NewDeliveryCreatedEvent(d *Delivery) *DeliveryCreatedEvent {
	return &DeliveryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDeliveryCreated, AggregateTypeDelivery, d.ID),
		TransactionID:   d.TransactionID,
		CustomerID:      d.CustomerID,
	}
}

// DeliveryStatusChangedEvent is published on every status transition.
// NotificationEvent is empty when the transition must not notify the customer again.
type DeliveryStatusChangedEvent struct {
	shared.BaseDomainEvent
	TransactionID      uuid.UUID  `json:"transaction_id"`
	CustomerID         uuid.UUID  `json:"customer_id"`
	DriverID           *uuid.UUID `json:"driver_id,omitempty"`
	FromStatus         Status     `json:"from_status"`
	ToStatus           Status     `json:"to_status"`
	ChangedAt          time.Time  `json:"changed_at"`
	ScheduledFor       *time.Time `json:"scheduled_for,omitempty"`
	ETA                *time.Time `json:"eta,omitempty"`
	RemainingMiles     *float64   `json:"remaining_miles,omitempty"`
	DestinationAddress string     `json:"destination_address"`
	DelayReason        string     `json:"delay_reason,omitempty"`
	NotificationEvent  string     `json:"notification_event,omitempty"`
}

// NewDeliveryStatusChangedEvent creates a new DeliveryStatusChangedEvent
func NewDeliveryStatusChangedEvent(d *Delivery, from Status, at time.Time, announce bool) *DeliveryStatusChangedEvent {
	e := &DeliveryStatusChangedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeFor(d.Status), AggregateTypeDelivery, d.ID),
		TransactionID:      d.TransactionID,
		CustomerID:         d.CustomerID,
		DriverID:           d.DriverID,
		FromStatus:         from,
		ToStatus:           d.Status,
		ChangedAt:          at,
		ScheduledFor:       d.ScheduledFor,
		ETA:                d.ETA,
		RemainingMiles:     d.RemainingMiles,
		DestinationAddress: d.DestinationAddress,
		DelayReason:        d.DelayReason,
	}
	if announce {
		e.NotificationEvent = d.Status.NotificationEvent()
	}
	return e
}
