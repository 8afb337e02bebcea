package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestService_Automations(t *testing.T) {
	f := newDispatchFixture(t)
	svc := NewService(f.repo, f.automations, f.d, zap.NewNop())
	admin := uuid.New()

	list, err := svc.ListAutomations(context.Background())
	require.NoError(t, err)
	require.Len(t, list, len(notification.AllEvents))
	for _, a := range list {
		assert.True(t, a.Enabled && a.SMSEnabled && a.EmailEnabled, a.EventName)
	}

	off := false
	updated, err := svc.UpdateAutomation(context.Background(), notification.EventWelcome, UpdateAutomationInput{SMSEnabled: &off}, admin)
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.False(t, updated.SMSEnabled)
	assert.True(t, updated.EmailEnabled)
	assert.Equal(t, &admin, updated.UpdatedBy)
	require.NotNil(t, updated.UpdatedAt)

	list, err = svc.ListAutomations(context.Background())
	require.NoError(t, err)
	for _, a := range list {
		if a.EventName == notification.EventWelcome {
			assert.False(t, a.SMSEnabled)
		}
	}

	_, err = svc.UpdateAutomation(context.Background(), "fireworks", UpdateAutomationInput{}, admin)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_Resend_UsesFreshDedupeKey(t *testing.T) {
	f := newDispatchFixture(t)
	svc := NewService(f.repo, f.automations, f.d, zap.NewNop())
	req := arrivingRequest("evt-r")
	original := notification.NewNotification(req.EventName, req.DedupeKey, req.Recipient, req.ReferenceType, req.ReferenceID, req.Fields)
	f.repo.On("FindByID", mock.Anything, original.ID).Return(original, nil)

	var saved []*notification.Notification
	f.repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = append(saved, args.Get(1).(*notification.Notification)) }).
		Return(nil)

	first, err := svc.Resend(context.Background(), original.ID)
	require.NoError(t, err)
	second, err := svc.Resend(context.Background(), original.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusSent, first.Status)
	assert.Equal(t, StatusSent, second.Status)
	require.Len(t, saved, 2)
	assert.True(t, strings.HasPrefix(saved[0].DedupeKey, "resend:"+original.ID.String()))
	assert.NotEqual(t, saved[0].DedupeKey, saved[1].DedupeKey)
	assert.Equal(t, 2, f.sms.calls)
}

func TestService_Preview(t *testing.T) {
	f := newDispatchFixture(t)
	svc := NewService(f.repo, f.automations, f.d, zap.NewNop())

	p, err := svc.Preview(PreviewInput{EventName: notification.EventWelcome, Fields: map[string]string{"customer_name": "Dana"}})
	require.NoError(t, err)
	assert.Contains(t, p.SMS, "Dana")
	assert.Equal(t, []string{"dealership", "login_url"}, p.Missing)
	assert.Equal(t, []string{"customer_name", "dealership", "login_url"}, p.Placeholders)
	assert.Zero(t, f.sms.calls)
}

func TestService_AdHocSends(t *testing.T) {
	f := newDispatchFixture(t)
	svc := NewService(f.repo, f.automations, f.d, zap.NewNop())

	id, err := svc.SendSMS(context.Background(), SendInput{To: "+14785550100", Body: "Crew at 9"})
	require.NoError(t, err)
	assert.Equal(t, "SM123", id)

	_, err = svc.SendEmail(context.Background(), SendInput{To: "a@b.co", Body: "hello"})
	var code string
	if de, ok := err.(*shared.DomainError); ok {
		code = de.Code
	}
	assert.Equal(t, "INVALID_SUBJECT", code)

	f.sms.errs = []error{badRequest()}
	_, err = svc.SendSMS(context.Background(), SendInput{To: "+1", Body: "x"})
	assert.ErrorIs(t, err, shared.ErrIntegration)

	f.d.SetSenders(nil, nil)
	_, err = svc.SendSMS(context.Background(), SendInput{To: "+14785550100", Body: "x"})
	assert.ErrorIs(t, err, ErrChannelNotConfigured)
}

func TestEventHandler(t *testing.T) {
	customer, err := identity.NewUser("dana@example.com", "Dana Buyer", "+14785550100", identity.RoleCustomer, "Password123")
	require.NoError(t, err)
	staff, err := identity.NewUser("sam@homestead.test", "Sam Seller", "", identity.RoleSales, "Password123")
	require.NoError(t, err)
	users := userMap{customer.ID: customer, staff.ID: staff}
	branding := Branding{Dealership: "Homestead Homes", PublicURL: "https://homes.test/"}

	t.Run("transaction status", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		line, err := sales.NewLine(sales.KindHome, uuid.New(), "Cedar", 1, decimal.NewFromInt(84500), decimal.Zero)
		require.NoError(t, err)
		tx, err := sales.NewTransaction("EST-2026-00012", customer.ID, nil, []sales.Line{line}, "12 Oak Ln")
		require.NoError(t, err)
		tx.ClearDomainEvents()
		require.NoError(t, tx.SendEstimate())
		event := tx.GetDomainEvents()[0]

		require.NoError(t, h.Handle(context.Background(), event))
		require.Len(t, d.reqs, 1)
		req := d.reqs[0]
		assert.Equal(t, notification.EventEstimateSent, req.EventName)
		assert.Equal(t, event.EventID().String(), req.DedupeKey)
		assert.Equal(t, "$84,500.00", req.Fields["total"])
		assert.Equal(t, "https://homes.test/transactions/"+tx.ID.String(), req.Fields["portal_url"])
		assert.Equal(t, customer.Email, req.Recipient.Email)
		assert.Equal(t, "transaction", req.ReferenceType)
	})

	t.Run("return to draft is silent", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		line, err := sales.NewLine(sales.KindHome, uuid.New(), "Cedar", 1, decimal.NewFromInt(84500), decimal.Zero)
		require.NoError(t, err)
		tx, err := sales.NewTransaction("EST-2026-00013", customer.ID, nil, []sales.Line{line}, "")
		require.NoError(t, err)
		require.NoError(t, tx.SendEstimate())
		tx.ClearDomainEvents()
		require.NoError(t, tx.Revise())

		require.NoError(t, h.Handle(context.Background(), tx.GetDomainEvents()[0]))
		assert.Empty(t, d.reqs)
	})

	t.Run("delivery arriving", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		del, err := delivery.NewDelivery(uuid.New(), uuid.New(), customer.ID, nil,
			shared.GeoPoint{Lat: 34.77, Lng: -84.97}, "12 Oak Ln, Macon GA", shared.GeoPoint{Lat: 32.84, Lng: -83.63})
		require.NoError(t, err)
		require.NoError(t, del.AssignDriver(staff.ID))
		require.NoError(t, del.Schedule(time.Now()))
		require.NoError(t, del.Start(nil, time.Now()))
		del.ClearDomainEvents()
		_, err = del.RecordLocation(shared.GeoPoint{Lat: 32.85, Lng: -83.64}, time.Now().Add(time.Minute), time.Now(), delivery.DefaultAutomationRules(), nil)
		require.NoError(t, err)
		events := del.GetDomainEvents()
		require.Len(t, events, 1)

		require.NoError(t, h.Handle(context.Background(), events[0]))
		require.Len(t, d.reqs, 1)
		assert.Equal(t, notification.EventDeliveryArriving, d.reqs[0].EventName)
		assert.NotEmpty(t, d.reqs[0].Fields["remaining_miles"])
		assert.NotEqual(t, "to be confirmed", d.reqs[0].Fields["eta"])
	})

	t.Run("appointment reminder names the staff member", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		start := time.Date(2026, 6, 3, 15, 0, 0, 0, time.UTC)
		a, err := scheduling.NewAppointment(customer.ID, staff.ID, scheduling.TypeSiteVisit, start, start.Add(time.Hour), "", "")
		require.NoError(t, err)
		a.ClearDomainEvents()
		a.MarkReminderSent(start.Add(-12 * time.Hour))

		require.NoError(t, h.Handle(context.Background(), a.GetDomainEvents()[0]))
		require.Len(t, d.reqs, 1)
		f := d.reqs[0].Fields
		assert.Equal(t, notification.EventAppointmentReminder, d.reqs[0].EventName)
		assert.Equal(t, "Sam Seller", f["staff_name"])
		assert.Equal(t, "site visit", f["appointment_type"])
		assert.Equal(t, "Homestead Homes", f["location"])
		assert.Equal(t, "Wed Jun 3, 3:00 PM UTC", f["starts_at"])
	})

	t.Run("welcome", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		require.NoError(t, h.Handle(context.Background(), identity.NewUserCreatedEvent(customer)))
		require.Len(t, d.reqs, 1)
		assert.Equal(t, notification.EventWelcome, d.reqs[0].EventName)
		assert.Equal(t, "https://homes.test/login", d.reqs[0].Fields["login_url"])
	})

	t.Run("unknown customer fails the handler", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, userMap{}, branding, zap.NewNop())
		line, err := sales.NewLine(sales.KindHome, uuid.New(), "Cedar", 1, decimal.NewFromInt(84500), decimal.Zero)
		require.NoError(t, err)
		tx, err := sales.NewTransaction("EST-2026-00014", customer.ID, nil, []sales.Line{line}, "")
		require.NoError(t, err)
		tx.ClearDomainEvents()
		require.NoError(t, tx.SendEstimate())

		err = h.Handle(context.Background(), tx.GetDomainEvents()[0])
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Empty(t, d.reqs)
	})

	t.Run("unexpected event type", func(t *testing.T) {
		d := &recordingDispatch{}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		err := h.Handle(context.Background(), identity.NewUserRoleChangedEvent(customer, identity.RoleSales))
		assert.ErrorContains(t, err, "unexpected event type")
	})

	t.Run("dispatch failure is returned", func(t *testing.T) {
		d := &recordingDispatch{err: shared.ErrIntegration}
		h := NewEventHandler(d, users, branding, zap.NewNop())
		err := h.Handle(context.Background(), identity.NewUserCreatedEvent(customer))
		assert.ErrorIs(t, err, shared.ErrIntegration)
	})

	t.Run("subscribes to every notifying status", func(t *testing.T) {
		h := NewEventHandler(&recordingDispatch{}, users, branding, zap.NewNop())
		types := h.EventTypes()
		assert.Contains(t, types, "transaction.estimate_sent")
		assert.Contains(t, types, "delivery.arriving")
		assert.Contains(t, types, scheduling.EventTypeAppointmentReminderDue)
		assert.NotContains(t, types, "transaction.draft")
		assert.NotContains(t, types, "delivery.pending")
	})
}
