package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	dalton = shared.GeoPoint{Lat: 34.7698, Lng: -84.9702}
	macon  = shared.GeoPoint{Lat: 32.8407, Lng: -83.6324}
)

type fixture struct {
	repo     *MockRepository
	permits  *MockPermitRepository
	txs      transactionMap
	homes    homeMap
	events   *recordingPublisher
	realtime *recordingRealtime
	metrics  *countingMetrics
	svc      *Service
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     new(MockRepository),
		permits:  new(MockPermitRepository),
		txs:      transactionMap{},
		homes:    homeMap{},
		events:   &recordingPublisher{},
		realtime: &recordingRealtime{},
		metrics:  newCountingMetrics(),
		now:      time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC),
	}
	factories := factoryMap{}
	fac, err := catalog.NewFactory(catalog.FactorySpec{Name: "Dalton Plant", Address: "1 Factory Rd, Dalton GA", Location: dalton})
	require.NoError(t, err)
	factories[fac.ID] = fac
	home, err := catalog.NewMobileHome(catalog.HomeSpec{
		ModelName:   "Cedar 3068",
		SectionType: catalog.SectionDouble,
		Bedrooms:    3,
		Bathrooms:   decimal.NewFromInt(2),
		SquareFeet:  1600,
		LengthFt:    68,
		WidthFt:     30,
		BasePrice:   decimal.NewFromInt(90000),
		FactoryID:   &fac.ID,
	})
	require.NoError(t, err)
	f.homes[home.ID] = home

	f.svc = NewService(f.repo, f.permits, f.txs, f.homes, factories, Options{}, zap.NewNop())
	f.svc.now = func() time.Time { return f.now }
	f.svc.SetEventPublisher(f.events)
	f.svc.SetRealtime(f.realtime)
	f.svc.SetMetrics(f.metrics)
	return f
}

func (f *fixture) homeID() uuid.UUID {
	for id := range f.homes {
		return id
	}
	return uuid.Nil
}

// signedTransaction walks a transaction through to contract_signed
func (f *fixture) signedTransaction(t *testing.T) *sales.Transaction {
	t.Helper()
	line, err := sales.NewLine(sales.KindHome, f.homeID(), "Cedar 3068", 1, decimal.NewFromInt(90000), decimal.NewFromInt(10))
	require.NoError(t, err)
	tx, err := sales.NewTransaction("EST-2026-00003", uuid.New(), nil, []sales.Line{line}, "12 Oak Ln, Macon GA")
	require.NoError(t, err)
	require.NoError(t, tx.SendEstimate())
	require.NoError(t, tx.ApproveEstimate())
	require.NoError(t, tx.SendContract("env-1"))
	require.NoError(t, tx.MarkContractSigned())
	tx.ClearDomainEvents()
	f.txs[tx.ID] = tx
	return tx
}

// scheduled returns a scheduled delivery with a driver from Dalton to Macon
func scheduled(t *testing.T, driver uuid.UUID) *delivery.Delivery {
	t.Helper()
	d, err := delivery.NewDelivery(uuid.New(), uuid.New(), uuid.New(), nil, dalton, "12 Oak Ln, Macon GA", macon)
	require.NoError(t, err)
	require.NoError(t, d.AssignDriver(driver))
	require.NoError(t, d.Schedule(time.Date(2026, 6, 2, 13, 0, 0, 0, time.UTC)))
	d.ClearDomainEvents()
	return d
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	if assert.True(t, errors.As(err, &de), "expected a domain error, got %v", err) {
		assert.Equal(t, code, de.Code)
	}
}

func TestService_Create(t *testing.T) {
	t.Run("uses the factory as origin and explicit coordinates", func(t *testing.T) {
		f := newFixture(t)
		tx := f.signedTransaction(t)
		f.repo.On("FindActiveByTransaction", mock.Anything, tx.ID).Return(nil, shared.ErrNotFound)
		f.repo.On("Save", mock.Anything, mock.AnythingOfType("*delivery.Delivery")).Return(nil)
		lat, lng := macon.Lat, macon.Lng
		driver := uuid.New()
		when := f.now.Add(48 * time.Hour)

		dto, err := f.svc.Create(context.Background(), CreateInput{
			TransactionID:  tx.ID,
			DriverID:       &driver,
			ScheduledFor:   &when,
			DestinationLat: &lat,
			DestinationLng: &lng,
		})
		require.NoError(t, err)
		assert.Equal(t, delivery.StatusScheduled, dto.Status)
		assert.Equal(t, dalton, dto.Origin)
		assert.Equal(t, macon, dto.Destination)
		assert.Equal(t, "12 Oak Ln, Macon GA", dto.DestinationAddress)
		assert.Equal(t, tx.CustomerID, dto.CustomerID)
		assert.Equal(t, &driver, dto.DriverID)
		assert.Equal(t, []string{delivery.EventTypeDeliveryCreated, delivery.EventTypeFor(delivery.StatusScheduled)}, f.events.types())
	})

	t.Run("geocodes the address when no coordinates are given", func(t *testing.T) {
		f := newFixture(t)
		tx := f.signedTransaction(t)
		geo := &stubGeocoder{result: integration.GeocodeResult{Location: macon, FormattedAddress: "12 Oak Ln, Macon, GA 31201"}}
		f.svc.SetGeocoder(geo)
		f.repo.On("FindActiveByTransaction", mock.Anything, tx.ID).Return(nil, shared.ErrNotFound)
		f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		dto, err := f.svc.Create(context.Background(), CreateInput{TransactionID: tx.ID})
		require.NoError(t, err)
		assert.Equal(t, 1, geo.calls)
		assert.Equal(t, macon, dto.Destination)
		assert.Equal(t, delivery.StatusPending, dto.Status)
	})

	t.Run("requires coordinates without a geocoder", func(t *testing.T) {
		f := newFixture(t)
		tx := f.signedTransaction(t)
		f.repo.On("FindActiveByTransaction", mock.Anything, tx.ID).Return(nil, shared.ErrNotFound)

		_, err := f.svc.Create(context.Background(), CreateInput{TransactionID: tx.ID})
		assertCode(t, err, "COORDINATES_REQUIRED")
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects an unsigned transaction", func(t *testing.T) {
		f := newFixture(t)
		line, err := sales.NewLine(sales.KindHome, f.homeID(), "Cedar 3068", 1, decimal.NewFromInt(90000), decimal.Zero)
		require.NoError(t, err)
		tx, err := sales.NewTransaction("EST-2026-00004", uuid.New(), nil, []sales.Line{line}, "x")
		require.NoError(t, err)
		f.txs[tx.ID] = tx

		_, err = f.svc.Create(context.Background(), CreateInput{TransactionID: tx.ID})
		assertCode(t, err, "INVALID_STATE")
	})

	t.Run("rejects a second active delivery", func(t *testing.T) {
		f := newFixture(t)
		tx := f.signedTransaction(t)
		f.repo.On("FindActiveByTransaction", mock.Anything, tx.ID).Return(scheduled(t, uuid.New()), nil)

		_, err := f.svc.Create(context.Background(), CreateInput{TransactionID: tx.ID})
		assertCode(t, err, "ALREADY_EXISTS")
	})
}

func TestService_RecordLocation(t *testing.T) {
	t.Run("leaving the yard starts the delivery", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{}, nil)
		f.repo.On("Save", mock.Anything, d).Return(nil)

		res, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 34.40, Longitude: -84.60},
			Actor{UserID: driver, Role: identity.RoleDriver})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.True(t, res.Started)
		assert.False(t, res.Arriving)
		assert.Equal(t, delivery.StatusInTransit, res.Delivery.Status)
		require.NotNil(t, res.ETA)
		assert.True(t, res.ETA.After(f.now))

		assert.Equal(t, 1, f.metrics.readings["accepted"])
		assert.Equal(t, []string{"in_transit"}, f.metrics.automations)
		assert.Contains(t, f.events.types(), delivery.EventTypeFor(delivery.StatusInTransit))
		require.Len(t, f.realtime.messages, 1)
		assert.Equal(t, shared.DeliveryTopic(d.ID.String()), f.realtime.messages[0].topic)
		assert.Equal(t, "delivery.location", f.realtime.messages[0].event)
		update, ok := f.realtime.messages[0].payload.(LocationUpdate)
		require.True(t, ok)
		assert.Equal(t, delivery.StatusInTransit, update.Status)
	})

	t.Run("an unapproved permit blocks the automatic start", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		permit, err := delivery.NewPermit(d.ID, "Georgia DOT", "")
		require.NoError(t, err)
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{permit}, nil)
		f.repo.On("Save", mock.Anything, d).Return(nil)

		res, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 34.40, Longitude: -84.60},
			Actor{UserID: driver, Role: identity.RoleDriver})
		require.NoError(t, err)
		assert.True(t, res.Accepted)
		assert.False(t, res.Started)
		assert.Contains(t, res.StartBlocked, "Georgia DOT")
		assert.Equal(t, delivery.StatusScheduled, res.Delivery.Status)
		assert.Empty(t, f.metrics.automations)
	})

	t.Run("nearing the destination marks arriving", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		require.NoError(t, d.Start(nil, f.now.Add(-3*time.Hour)))
		d.ClearDomainEvents()
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{}, nil)
		f.repo.On("Save", mock.Anything, d).Return(nil)

		res, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 32.85, Longitude: -83.64},
			Actor{Role: identity.RoleAdmin})
		require.NoError(t, err)
		assert.True(t, res.Arriving)
		assert.Less(t, res.RemainingMiles, 2.0)
		assert.Equal(t, delivery.StatusArriving, res.Delivery.Status)
		assert.Equal(t, []string{"arriving"}, f.metrics.automations)
	})

	t.Run("out-of-order readings change nothing", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		require.NoError(t, d.Start(nil, f.now.Add(-time.Hour)))
		_, err := d.RecordLocation(shared.GeoPoint{Lat: 33.5, Lng: -84.2}, f.now, f.now, delivery.DefaultAutomationRules(), nil)
		require.NoError(t, err)
		d.ClearDomainEvents()
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{}, nil)

		earlier := f.now.Add(-10 * time.Minute)
		res, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 33.9, Longitude: -84.5, RecordedAt: &earlier},
			Actor{UserID: driver, Role: identity.RoleDriver})
		require.NoError(t, err)
		assert.False(t, res.Accepted)
		assert.Equal(t, 33.5, res.Delivery.LastLocation.Lat)
		assert.Equal(t, 1, f.metrics.readings["out_of_order"])
		assert.Empty(t, f.realtime.messages)
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("only the assigned driver may report", func(t *testing.T) {
		f := newFixture(t)
		d := scheduled(t, uuid.New())
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)

		_, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 34.4, Longitude: -84.6},
			Actor{UserID: uuid.New(), Role: identity.RoleDriver})
		assert.ErrorIs(t, err, shared.ErrForbidden)

		_, err = f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 34.4, Longitude: -84.6},
			Actor{UserID: d.CustomerID, Role: identity.RoleCustomer})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("invalid coordinates are counted as rejected", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{}, nil)

		_, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 95, Longitude: -84.6},
			Actor{UserID: driver, Role: identity.RoleDriver})
		require.Error(t, err)
		assert.Equal(t, 1, f.metrics.readings["rejected"])
	})

	t.Run("a reading dated far ahead of the server clock is rejected", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		require.NoError(t, d.Start(nil, f.now.Add(-time.Hour)))
		d.ClearDomainEvents()
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{}, nil)

		future := f.now.AddDate(100, 0, 0)
		_, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 33.5, Longitude: -84.2, RecordedAt: &future},
			Actor{UserID: driver, Role: identity.RoleDriver})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
		assert.Nil(t, d.LastLocationAt)
		assert.True(t, d.IsStale(f.now.Add(-30*time.Minute)))
		f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("a backdated reading cannot start past an expired permit", func(t *testing.T) {
		f := newFixture(t)
		driver := uuid.New()
		d := scheduled(t, driver)
		permit, err := delivery.NewPermit(d.ID, "Bibb County", "")
		require.NoError(t, err)
		require.NoError(t, permit.Approve("BC-882", f.now.Add(-30*24*time.Hour), f.now.Add(-24*time.Hour)))
		f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
		f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{permit}, nil)
		f.repo.On("Save", mock.Anything, d).Return(nil)

		backdated := f.now.Add(-48 * time.Hour)
		res, err := f.svc.RecordLocation(context.Background(), d.ID,
			LocationInput{Latitude: 34.40, Longitude: -84.60, RecordedAt: &backdated},
			Actor{UserID: driver, Role: identity.RoleDriver})
		require.NoError(t, err)
		assert.False(t, res.Started)
		assert.Contains(t, res.StartBlocked, "Bibb County")
		assert.Equal(t, delivery.StatusScheduled, res.Delivery.Status)
	})
}

func TestService_Start_RequiresValidPermits(t *testing.T) {
	f := newFixture(t)
	d := scheduled(t, uuid.New())
	permit, err := delivery.NewPermit(d.ID, "Bibb County", "")
	require.NoError(t, err)
	require.NoError(t, permit.Approve("BC-881", f.now.Add(-48*time.Hour), f.now.Add(-time.Hour)))
	f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
	f.permits.On("FindByDeliveryID", mock.Anything, d.ID).Return([]*delivery.Permit{permit}, nil)

	_, err = f.svc.Start(context.Background(), d.ID)
	assertCode(t, err, "PERMIT_NOT_VALID")
	f.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestService_VisibilityByRole(t *testing.T) {
	f := newFixture(t)
	driver := uuid.New()
	d := scheduled(t, driver)
	f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
	ctx := context.Background()

	assert.True(t, f.svc.CanWatch(ctx, d.ID, Actor{UserID: d.CustomerID, Role: identity.RoleCustomer}))
	assert.True(t, f.svc.CanWatch(ctx, d.ID, Actor{UserID: driver, Role: identity.RoleDriver}))
	assert.True(t, f.svc.CanWatch(ctx, d.ID, Actor{UserID: uuid.New(), Role: identity.RoleSales}))
	assert.False(t, f.svc.CanWatch(ctx, d.ID, Actor{UserID: uuid.New(), Role: identity.RoleCustomer}))
	assert.False(t, f.svc.CanWatch(ctx, d.ID, Actor{UserID: uuid.New(), Role: identity.RoleDriver}))

	_, err := f.svc.Get(ctx, d.ID, Actor{UserID: uuid.New(), Role: identity.RoleCustomer})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_List_ScopesDrivers(t *testing.T) {
	f := newFixture(t)
	driver := uuid.New()
	other := uuid.New()
	f.repo.On("FindAll", mock.Anything, mock.MatchedBy(func(fl delivery.Filter) bool {
		return fl.DriverID != nil && *fl.DriverID == driver && fl.PageSize == 100
	})).Return([]*delivery.Delivery{scheduled(t, driver)}, int64(1), nil)

	page, err := f.svc.List(context.Background(), ListInput{DriverID: &other, PageSize: 500}, Actor{UserID: driver, Role: identity.RoleDriver})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)

	_, err = f.svc.List(context.Background(), ListInput{Status: "lost"}, Actor{Role: identity.RoleAdmin})
	assertCode(t, err, "INVALID_STATUS")
}

func TestService_Complete_PublishesCompletion(t *testing.T) {
	f := newFixture(t)
	d := scheduled(t, uuid.New())
	require.NoError(t, d.Start(nil, f.now.Add(-5*time.Hour)))
	require.NoError(t, d.MarkDelivered(f.now.Add(-time.Hour)))
	d.ClearDomainEvents()
	f.repo.On("FindByID", mock.Anything, d.ID).Return(d, nil)
	f.repo.On("Save", mock.Anything, d).Return(nil)

	dto, err := f.svc.Complete(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.StatusCompleted, dto.Status)
	assert.Equal(t, []string{delivery.EventTypeFor(delivery.StatusCompleted)}, f.events.types())
}
