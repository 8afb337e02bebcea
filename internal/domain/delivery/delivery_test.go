package delivery

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	factory  = shared.GeoPoint{Lat: 33.5800, Lng: -96.1800}
	siteNear = shared.GeoPoint{Lat: 32.7767, Lng: -96.7970}
)

func newScheduled(t *testing.T) *Delivery {
	t.Helper()
	d, err := NewDelivery(uuid.New(), uuid.New(), uuid.New(), nil, factory, "12 Ranch Rd, Dallas TX", siteNear)
	require.NoError(t, err)
	require.NoError(t, d.AssignDriver(uuid.New()))
	require.NoError(t, d.Schedule(time.Now().Add(time.Hour)))
	d.ClearDomainEvents()
	return d
}

func approvedPermit(t *testing.T, deliveryID uuid.UUID, expires time.Time) *Permit {
	t.Helper()
	p, err := NewPermit(deliveryID, "TxDMV", "")
	require.NoError(t, err)
	require.NoError(t, p.Approve("OS-100", expires.Add(-30*24*time.Hour), expires))
	return p
}

func notificationEvents(d *Delivery) []string {
	var names []string
	for _, e := range d.GetDomainEvents() {
		if sc, ok := e.(*DeliveryStatusChangedEvent); ok && sc.NotificationEvent != "" {
			names = append(names, sc.NotificationEvent)
		}
	}
	return names
}

func TestNewDelivery(t *testing.T) {
	_, err := NewDelivery(uuid.Nil, uuid.New(), uuid.New(), nil, factory, "x", siteNear)
	assert.Error(t, err)
	_, err = NewDelivery(uuid.New(), uuid.New(), uuid.New(), nil, factory, " ", siteNear)
	assert.Error(t, err)

	d, err := NewDelivery(uuid.New(), uuid.New(), uuid.New(), nil, factory, "addr", siteNear)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, d.Status)
	require.Len(t, d.GetDomainEvents(), 1)
}

func TestDelivery_StartGuards(t *testing.T) {
	now := time.Now()

	t.Run("requires a driver", func(t *testing.T) {
		d, err := NewDelivery(uuid.New(), uuid.New(), uuid.New(), nil, factory, "addr", siteNear)
		require.NoError(t, err)
		require.NoError(t, d.Schedule(now))
		err = d.Start(nil, now)
		assert.ErrorContains(t, err, "driver must be assigned")
	})

	t.Run("requires approved permits", func(t *testing.T) {
		d := newScheduled(t)
		pending, err := NewPermit(d.ID, "OK DOT", "")
		require.NoError(t, err)
		assert.ErrorContains(t, d.Start([]*Permit{pending}, now), "Permit for OK DOT")
	})

	t.Run("rejects permits expired at start time", func(t *testing.T) {
		d := newScheduled(t)
		p := approvedPermit(t, d.ID, now.Add(-time.Minute))
		assert.Error(t, d.Start([]*Permit{p}, now))
	})

	t.Run("starts with valid permits", func(t *testing.T) {
		d := newScheduled(t)
		p := approvedPermit(t, d.ID, now.Add(24*time.Hour))
		require.NoError(t, d.Start([]*Permit{p}, now))
		assert.Equal(t, StatusInTransit, d.Status)
		assert.Equal(t, []string{"delivery_in_progress"}, notificationEvents(d))
	})
}

func TestDelivery_RecordLocation(t *testing.T) {
	rules := DefaultAutomationRules()
	t0 := time.Now()

	t.Run("rejected outside active statuses", func(t *testing.T) {
		d, err := NewDelivery(uuid.New(), uuid.New(), uuid.New(), nil, factory, "addr", siteNear)
		require.NoError(t, err)
		_, err = d.RecordLocation(factory, t0, t0, rules, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("stays scheduled inside the departure radius", func(t *testing.T) {
		d := newScheduled(t)
		res, err := d.RecordLocation(shared.GeoPoint{Lat: 33.5801, Lng: -96.1801}, t0, t0, rules, nil)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, res.Started)
		assert.Equal(t, StatusScheduled, d.Status)
		require.NotNil(t, d.ETA)
	})

	t.Run("auto-starts, ignores stale readings and announces arrival once", func(t *testing.T) {
		d := newScheduled(t)

		res, err := d.RecordLocation(shared.GeoPoint{Lat: 33.50, Lng: -96.25}, t0, t0, rules, nil)
		require.NoError(t, err)
		assert.True(t, res.Started)
		assert.Equal(t, StatusInTransit, d.Status)

		res, err = d.RecordLocation(shared.GeoPoint{Lat: 32.78, Lng: -96.80}, t0.Add(-time.Minute), t0.Add(-time.Minute), rules, nil)
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, StatusInTransit, d.Status)

		res, err = d.RecordLocation(shared.GeoPoint{Lat: 32.78, Lng: -96.80}, t0.Add(2*time.Hour), t0.Add(2*time.Hour), rules, nil)
		require.NoError(t, err)
		assert.True(t, res.Arriving)
		assert.Equal(t, StatusArriving, d.Status)
		assert.Less(t, res.RemainingMiles, 2.0)
		require.NotNil(t, d.ArrivalNotifiedAt)

		require.NoError(t, d.Delay("flat tire", t0.Add(3*time.Hour)))
		require.NoError(t, d.Start(nil, t0.Add(4*time.Hour)))
		_, err = d.RecordLocation(shared.GeoPoint{Lat: 32.777, Lng: -96.798}, t0.Add(5*time.Hour), t0.Add(5*time.Hour), rules, nil)
		require.NoError(t, err)
		assert.Equal(t, StatusArriving, d.Status)

		assert.Equal(t, []string{
			"delivery_in_progress", "delivery_arriving", "delivery_delayed", "delivery_in_progress",
		}, notificationEvents(d))
	})

	t.Run("blocked auto-start still records the reading", func(t *testing.T) {
		d := newScheduled(t)
		pending, err := NewPermit(d.ID, "TxDMV", "")
		require.NoError(t, err)
		res, err := d.RecordLocation(shared.GeoPoint{Lat: 33.40, Lng: -96.40}, t0, t0, rules, []*Permit{pending})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, res.Started)
		assert.NotEmpty(t, res.StartBlocked)
		assert.Equal(t, StatusScheduled, d.Status)
	})

	t.Run("backdated reading cannot start past an expired permit", func(t *testing.T) {
		d := newScheduled(t)
		expired := approvedPermit(t, d.ID, t0.Add(-24*time.Hour))

		res, err := d.RecordLocation(shared.GeoPoint{Lat: 33.40, Lng: -96.40}, t0.Add(-48*time.Hour), t0, rules, []*Permit{expired})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, res.Started)
		assert.NotEmpty(t, res.StartBlocked)
		assert.Equal(t, StatusScheduled, d.Status)
		assert.Nil(t, d.StartedAt)
	})

	t.Run("auto-start is stamped at server time", func(t *testing.T) {
		d := newScheduled(t)
		res, err := d.RecordLocation(shared.GeoPoint{Lat: 33.40, Lng: -96.40}, t0.Add(-10*time.Minute), t0, rules, nil)
		require.NoError(t, err)
		require.True(t, res.Started)
		require.NotNil(t, d.StartedAt)
		assert.True(t, d.StartedAt.Equal(t0))
	})

	t.Run("future-dated reading is rejected and does not block later ones", func(t *testing.T) {
		d := newScheduled(t)
		require.NoError(t, d.Start(nil, t0))

		_, err := d.RecordLocation(shared.GeoPoint{Lat: 33.0, Lng: -96.5}, t0.AddDate(100, 0, 0), t0, rules, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		assert.Nil(t, d.LastLocationAt)

		_, err = d.RecordLocation(shared.GeoPoint{Lat: 33.0, Lng: -96.5}, t0.Add(MaxReadingSkew-time.Second), t0, rules, nil)
		require.NoError(t, err)

		res, err := d.RecordLocation(siteNear, t0.Add(time.Hour), t0.Add(time.Hour), rules, nil)
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.Equal(t, StatusArriving, d.Status)
	})
}

func TestDelivery_Lifecycle(t *testing.T) {
	now := time.Now()
	d := newScheduled(t)
	require.NoError(t, d.Start(nil, now))
	assert.Error(t, d.Cancel("nope", now))
	require.NoError(t, d.MarkDelivered(now.Add(time.Hour)))
	require.NotNil(t, d.DeliveredAt)
	require.NoError(t, d.Complete(now.Add(2*time.Hour)))
	assert.Equal(t, StatusCompleted, d.Status)
	assert.Error(t, d.Delay("late", now))
}

func TestDelivery_IsStale(t *testing.T) {
	now := time.Now()
	d := newScheduled(t)
	assert.False(t, d.IsStale(now))

	require.NoError(t, d.Start(nil, now.Add(-3*time.Hour)))
	assert.True(t, d.IsStale(now.Add(-2*time.Hour)))

	_, err := d.RecordLocation(shared.GeoPoint{Lat: 33.0, Lng: -96.5}, now, now, DefaultAutomationRules(), nil)
	require.NoError(t, err)
	assert.False(t, d.IsStale(now.Add(-2*time.Hour)))
}

func TestPermit(t *testing.T) {
	now := time.Now()
	p, err := NewPermit(uuid.New(), "TxDMV", "")
	require.NoError(t, err)
	assert.False(t, p.IsValidAt(now))

	assert.Error(t, p.Approve("X", now, now.Add(-time.Hour)))
	require.NoError(t, p.Approve("OS-1", now.Add(-time.Hour), now.Add(time.Hour)))
	assert.True(t, p.IsValidAt(now))
	assert.False(t, p.ExpireIfDue(now))
	assert.True(t, p.ExpireIfDue(now.Add(2*time.Hour)))
	assert.Equal(t, PermitExpired, p.Status)
	assert.Error(t, p.Reject("late"))

	p.AttachDocument("permits/x/y/scan.pdf")
	assert.Equal(t, "permits/x/y/scan.pdf", p.DocumentKey)
}
