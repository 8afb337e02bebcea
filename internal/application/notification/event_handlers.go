package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Dispatch is the narrow dispatcher API the event handlers need
type Dispatch interface {
	Dispatch(ctx context.Context, req Request) (*Result, error)
}

// UserDirectory resolves notification recipients
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Branding fills the dealership-wide template fields
type Branding struct {
	Dealership string
	PublicURL  string
	Location   *time.Location
}

func (b Branding) zone() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

func (b Branding) url(path string) string {
	return strings.TrimRight(b.PublicURL, "/") + path
}

func (b Branding) when(t time.Time) string {
	return t.In(b.zone()).Format("Mon Jan 2, 3:04 PM MST")
}

func recipientOf(u *identity.User) notification.Recipient {
	id := u.ID
	return notification.Recipient{UserID: &id, Name: u.FullName, Phone: u.Phone, Email: u.Email}
}

// EventHandler turns domain events carrying a notification event name into
// dispatch requests. The event id is the dedupe key.
type EventHandler struct {
	dispatcher Dispatch
	users      UserDirectory
	branding   Branding
	logger     *zap.Logger
}

// NewEventHandler creates the notification event handler
func NewEventHandler(dispatcher Dispatch, users UserDirectory, branding Branding, logger *zap.Logger) *EventHandler {
	return &EventHandler{dispatcher: dispatcher, users: users, branding: branding, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *EventHandler) EventTypes() []string {
	types := []string{identity.EventTypeUserCreated}
	for _, s := range sales.AllTransactionStatuses {
		if s.NotificationEvent() != "" {
			types = append(types, sales.EventTypeFor(s))
		}
	}
	for _, s := range delivery.AllStatuses {
		if s.NotificationEvent() != "" {
			types = append(types, delivery.EventTypeFor(s))
		}
	}
	return append(types,
		scheduling.EventTypeAppointmentScheduled,
		scheduling.EventTypeAppointmentRescheduled,
		scheduling.EventTypeAppointmentCancelled,
		scheduling.EventTypeAppointmentReminderDue,
	)
}

// Handle builds and dispatches the request for event
func (h *EventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	req, ok, err := h.request(ctx, event)
	if err != nil {
		h.logger.Error("failed to build notification",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Error(err))
		return err
	}
	if !ok {
		return nil
	}
	req.DedupeKey = event.EventID().String()
	if _, err := h.dispatcher.Dispatch(ctx, req); err != nil {
		return fmt.Errorf("dispatch %s: %w", req.EventName, err)
	}
	return nil
}

func (h *EventHandler) request(ctx context.Context, event shared.DomainEvent) (Request, bool, error) {
	switch e := event.(type) {
	case *sales.TransactionStatusChangedEvent:
		return h.transaction(ctx, e)
	case *delivery.DeliveryStatusChangedEvent:
		return h.delivery(ctx, e)
	case *scheduling.AppointmentEvent:
		return h.appointment(ctx, e)
	case *identity.UserCreatedEvent:
		return h.welcome(e), true, nil
	}
	return Request{}, false, fmt.Errorf("unexpected event type %s", event.EventType())
}

func (h *EventHandler) transaction(ctx context.Context, e *sales.TransactionStatusChangedEvent) (Request, bool, error) {
	if e.NotificationEvent == "" {
		return Request{}, false, nil
	}
	customer, err := h.users.FindByID(ctx, e.CustomerID)
	if err != nil {
		return Request{}, false, err
	}
	id := e.AggregateID()
	return Request{
		EventName:     e.NotificationEvent,
		Recipient:     recipientOf(customer),
		ReferenceType: "transaction",
		ReferenceID:   &id,
		Fields: map[string]string{
			"customer_name": customer.FullName,
			"number":        e.Number,
			"total":         shared.FormatUSD(e.Total),
			"status":        string(e.ToStatus),
			"reason":        e.Reason,
			"dealership":    h.branding.Dealership,
			"portal_url":    h.branding.url("/transactions/" + id.String()),
		},
	}, true, nil
}

func (h *EventHandler) delivery(ctx context.Context, e *delivery.DeliveryStatusChangedEvent) (Request, bool, error) {
	if e.NotificationEvent == "" {
		return Request{}, false, nil
	}
	customer, err := h.users.FindByID(ctx, e.CustomerID)
	if err != nil {
		return Request{}, false, err
	}
	id := e.AggregateID()
	fields := map[string]string{
		"customer_name":   customer.FullName,
		"address":         e.DestinationAddress,
		"status":          string(e.ToStatus),
		"delay_reason":    e.DelayReason,
		"scheduled_for":   "to be confirmed",
		"eta":             "to be confirmed",
		"remaining_miles": "",
		"dealership":      h.branding.Dealership,
		"tracking_url":    h.branding.url("/deliveries/" + id.String()),
	}
	if e.ScheduledFor != nil {
		fields["scheduled_for"] = h.branding.when(*e.ScheduledFor)
	}
	if e.ETA != nil {
		fields["eta"] = h.branding.when(*e.ETA)
	}
	if e.RemainingMiles != nil {
		fields["remaining_miles"] = fmt.Sprintf("%.1f", *e.RemainingMiles)
	}
	return Request{
		EventName:     e.NotificationEvent,
		Recipient:     recipientOf(customer),
		ReferenceType: "delivery",
		ReferenceID:   &id,
		Fields:        fields,
	}, true, nil
}

func (h *EventHandler) appointment(ctx context.Context, e *scheduling.AppointmentEvent) (Request, bool, error) {
	name := e.NotificationEvent()
	if name == "" {
		return Request{}, false, nil
	}
	customer, err := h.users.FindByID(ctx, e.CustomerID)
	if err != nil {
		return Request{}, false, err
	}
	staffName := "our team"
	if staff, err := h.users.FindByID(ctx, e.StaffID); err == nil {
		staffName = staff.FullName
	}
	location := e.Location
	if location == "" {
		location = h.branding.Dealership
	}
	id := e.AggregateID()
	return Request{
		EventName:     name,
		Recipient:     recipientOf(customer),
		ReferenceType: "appointment",
		ReferenceID:   &id,
		Fields: map[string]string{
			"customer_name":    customer.FullName,
			"appointment_type": strings.ReplaceAll(string(e.Type), "_", " "),
			"starts_at":        h.branding.when(e.StartsAt),
			"location":         location,
			"staff_name":       staffName,
			"dealership":       h.branding.Dealership,
		},
	}, true, nil
}

func (h *EventHandler) welcome(e *identity.UserCreatedEvent) Request {
	id := e.AggregateID()
	return Request{
		EventName:     notification.EventWelcome,
		Recipient:     notification.Recipient{UserID: &id, Name: e.FullName, Phone: e.Phone, Email: e.Email},
		ReferenceType: "user",
		ReferenceID:   &id,
		Fields: map[string]string{
			"customer_name": e.FullName,
			"dealership":    h.branding.Dealership,
			"login_url":     h.branding.url("/login"),
		},
	}
}
