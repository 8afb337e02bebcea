package delivery

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// Status is the stage of a home delivery
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusInTransit Status = "in_transit"
	StatusArriving  Status = "arriving"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusDelayed   Status = "delayed"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusScheduled, StatusCancelled},
	StatusScheduled: {StatusInTransit, StatusDelayed, StatusCancelled},
	StatusDelayed:   {StatusScheduled, StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusArriving, StatusDelivered, StatusDelayed},
	StatusArriving:  {StatusDelivered, StatusDelayed},
	StatusDelivered: {StatusCompleted},
}

// AllStatuses lists every delivery status
var AllStatuses = []Status{
	StatusPending, StatusScheduled, StatusInTransit, StatusArriving,
	StatusDelivered, StatusCompleted, StatusDelayed, StatusCancelled,
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether the status machine allows s -> to
func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AcceptsLocation reports whether GPS readings are processed in s
func (s Status) AcceptsLocation() bool {
	return s == StatusScheduled || s == StatusDelayed || s == StatusInTransit || s == StatusArriving
}

// NotificationEvent returns the notification event name for entering s
func (s Status) NotificationEvent() string {
	switch s {
	case StatusScheduled:
		return "delivery_scheduled"
	case StatusInTransit:
		return "delivery_in_progress"
	case StatusArriving:
		return "delivery_arriving"
	case StatusDelayed:
		return "delivery_delayed"
	case StatusDelivered:
		return "delivery_delivered"
	case StatusCompleted:
		return "delivery_completed"
	case StatusCancelled:
		return "delivery_cancelled"
	}
	return ""
}

// AutomationRules configures GPS-driven transitions
type AutomationRules struct {
	DepartureRadiusMiles float64
	ArrivalRadiusMiles   float64
	AverageSpeedMPH      float64
}

// DefaultAutomationRules are the stock radii and speed
func DefaultAutomationRules() AutomationRules {
	return AutomationRules{DepartureRadiusMiles: 0.5, ArrivalRadiusMiles: 2, AverageSpeedMPH: 45}
}

// Delivery moves a sold home from its factory to the customer's site
type Delivery struct {
	shared.BaseAggregateRoot
	TransactionID      uuid.UUID
	HomeID             uuid.UUID
	FactoryID          *uuid.UUID
	CustomerID         uuid.UUID
	DriverID           *uuid.UUID
	Status             Status
	Origin             shared.GeoPoint
	DestinationAddress string
	Destination        shared.GeoPoint
	ScheduledFor       *time.Time
	StartedAt          *time.Time
	ArrivedAt          *time.Time
	DeliveredAt        *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	LastLocation       *shared.GeoPoint
	LastLocationAt     *time.Time
	RemainingMiles     *float64
	ETA                *time.Time
	DelayReason        string
	CancelReason       string
	ArrivalNotifiedAt  *time.Time
}

// NewDelivery creates a pending delivery
func NewDelivery(transactionID, homeID, customerID uuid.UUID, factoryID *uuid.UUID, origin shared.GeoPoint, destAddress string, dest shared.GeoPoint) (*Delivery, error) {
	if transactionID == uuid.Nil || homeID == uuid.Nil || customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DELIVERY", "Delivery requires a transaction, home and customer")
	}
	if err := origin.Validate(); err != nil {
		return nil, err
	}
	if err := dest.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(destAddress) == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Destination address cannot be empty")
	}
	d := &Delivery{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		TransactionID:      transactionID,
		HomeID:             homeID,
		FactoryID:          factoryID,
		CustomerID:         customerID,
		Status:             StatusPending,
		Origin:             origin,
		DestinationAddress: strings.TrimSpace(destAddress),
		Destination:        dest,
	}
	d.AddDomainEvent(NewDeliveryCreatedEvent(d))
	return d, nil
}

// AssignDriver sets the driver; allowed until the truck departs
func (d *Delivery) AssignDriver(driverID uuid.UUID) error {
	if driverID == uuid.Nil {
		return shared.NewDomainError("INVALID_DRIVER", "Driver id cannot be empty")
	}
	if d.Status != StatusPending && d.Status != StatusScheduled && d.Status != StatusDelayed {
		return shared.NewDomainError("INVALID_STATE", "Driver can only be changed before departure")
	}
	d.DriverID = &driverID
	d.Touch()
	return nil
}

// Schedule sets the departure time; pending or delayed -> scheduled
func (d *Delivery) Schedule(at time.Time) error {
	if at.IsZero() {
		return shared.NewDomainError("INVALID_SCHEDULE", "Scheduled time is required")
	}
	if !d.Status.CanTransitionTo(StatusScheduled) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move delivery from %s to %s", d.Status, StatusScheduled))
	}
	d.ScheduledFor = &at
	d.DelayReason = ""
	return d.transition(StatusScheduled, time.Now(), true)
}

// Start moves the delivery in_transit. A driver must be assigned and every permit
// must be approved and unexpired at the start time.
func (d *Delivery) Start(permits []*Permit, at time.Time) error {
	if err := d.CheckStartGuards(permits, at); err != nil {
		return err
	}
	if err := d.transition(StatusInTransit, at, true); err != nil {
		return err
	}
	if d.StartedAt == nil {
		d.StartedAt = &at
	}
	return nil
}

// CheckStartGuards validates the preconditions for departure
func (d *Delivery) CheckStartGuards(permits []*Permit, at time.Time) error {
	if !d.Status.CanTransitionTo(StatusInTransit) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start delivery in status %s", d.Status))
	}
	if d.DriverID == nil {
		return shared.NewDomainError("DRIVER_REQUIRED", "A driver must be assigned before departure")
	}
	for _, p := range permits {
		if !p.IsValidAt(at) {
			return shared.NewDomainError("PERMIT_NOT_VALID",
				fmt.Sprintf("Permit for %s is %s or expired", p.Jurisdiction, p.Status))
		}
	}
	return nil
}

// MarkArriving moves in_transit -> arriving. The arriving notification is only
// announced the first time.
func (d *Delivery) MarkArriving(at time.Time) error {
	announce := d.ArrivalNotifiedAt == nil
	if err := d.transition(StatusArriving, at, announce); err != nil {
		return err
	}
	if d.ArrivalNotifiedAt == nil {
		d.ArrivalNotifiedAt = &at
	}
	return nil
}

// MarkDelivered records the home on site
func (d *Delivery) MarkDelivered(at time.Time) error {
	if err := d.transition(StatusDelivered, at, true); err != nil {
		return err
	}
	d.ArrivedAt = &at
	d.DeliveredAt = &at
	zero := 0.0
	d.RemainingMiles = &zero
	d.ETA = nil
	return nil
}

// Complete closes out a delivered home (setup finished, walkthrough done)
func (d *Delivery) Complete(at time.Time) error {
	if err := d.transition(StatusCompleted, at, true); err != nil {
		return err
	}
	d.CompletedAt = &at
	return nil
}

// Delay flags the delivery as held up
func (d *Delivery) Delay(reason string, at time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Delay reason is required")
	}
	d.DelayReason = reason
	if err := d.transition(StatusDelayed, at, true); err != nil {
		d.DelayReason = ""
		return err
	}
	return nil
}

// Cancel abandons the delivery before departure
func (d *Delivery) Cancel(reason string, at time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason is required")
	}
	if err := d.transition(StatusCancelled, at, true); err != nil {
		return err
	}
	d.CancelReason = reason
	d.CancelledAt = &at
	return nil
}

// LocationResult describes what a GPS reading did
type LocationResult struct {
	Accepted       bool
	Started        bool
	Arriving       bool
	StartBlocked   string
	RemainingMiles float64
	ETA            *time.Time
}

// MaxReadingSkew is how far ahead of the server clock a device timestamp may run
const MaxReadingSkew = 2 * time.Minute

// RecordLocation applies a GPS reading taken at `at` and received at `now`.
// Readings older than the last accepted one are ignored; readings dated beyond
// now+MaxReadingSkew are rejected. Status changes (auto-start, arriving) and
// their permit checks run at server time, never at the device timestamp.
func (d *Delivery) RecordLocation(p shared.GeoPoint, at, now time.Time, rules AutomationRules, permits []*Permit) (LocationResult, error) {
	if !d.Status.AcceptsLocation() {
		return LocationResult{}, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Location updates are not accepted in status %s", d.Status))
	}
	if err := p.Validate(); err != nil {
		return LocationResult{}, err
	}
	if at.After(now.Add(MaxReadingSkew)) {
		return LocationResult{}, shared.NewDomainError("INVALID_INPUT", "Reading timestamp is in the future")
	}
	if d.LastLocationAt != nil && at.Before(*d.LastLocationAt) {
		return LocationResult{}, nil
	}

	remaining := p.DistanceMiles(d.Destination)
	d.LastLocation = &p
	d.LastLocationAt = &at
	d.RemainingMiles = &remaining
	if rules.AverageSpeedMPH > 0 {
		eta := now.Add(time.Duration(remaining / rules.AverageSpeedMPH * float64(time.Hour)))
		d.ETA = &eta
	}
	d.Touch()

	res := LocationResult{Accepted: true, RemainingMiles: remaining, ETA: d.ETA}

	if d.Status == StatusScheduled || d.Status == StatusDelayed {
		if p.DistanceMiles(d.Origin) > rules.DepartureRadiusMiles {
			if err := d.Start(permits, now); err != nil {
				res.StartBlocked = err.Error()
			} else {
				res.Started = true
			}
		}
	}

	if d.Status == StatusInTransit && remaining <= rules.ArrivalRadiusMiles {
		if err := d.MarkArriving(now); err == nil {
			res.Arriving = true
		}
	}
	return res, nil
}

// IsStale reports whether an in-transit delivery has gone quiet since before cutoff
func (d *Delivery) IsStale(cutoff time.Time) bool {
	if d.Status != StatusInTransit && d.Status != StatusArriving {
		return false
	}
	last := d.LastLocationAt
	if last == nil {
		last = d.StartedAt
	}
	return last != nil && last.Before(cutoff)
}

func (d *Delivery) transition(to Status, at time.Time, announce bool) error {
	if !d.Status.CanTransitionTo(to) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move delivery from %s to %s", d.Status, to))
	}
	from := d.Status
	d.Status = to
	d.Touch()
	d.AddDomainEvent(NewDeliveryStatusChangedEvent(d, from, at, announce))
	return nil
}
