package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type cartFixture struct {
	catalog *catalogFake
	carts   *MockCartRepository
	txRepo  *MockTransactionRepository
	quoter  *stubQuoter
	events  *recordingPublisher
	tx      *TransactionService
	svc     *CartService
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	if assert.True(t, errors.As(err, &de), "expected a domain error, got %v", err) {
		assert.Equal(t, code, de.Code)
	}
}

func newCartFixture(t *testing.T) *cartFixture {
	f := &cartFixture{
		catalog: newCatalogFake(),
		carts:   new(MockCartRepository),
		txRepo:  new(MockTransactionRepository),
		quoter:  &stubQuoter{},
		events:  &recordingPublisher{},
	}
	markup := fixedMarkup(decimal.NewFromInt(10))
	f.tx = NewTransactionService(f.txRepo, f.catalog.repos(), markup, userMap{}, zap.NewNop())
	f.tx.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	f.tx.SetEventPublisher(f.events)
	f.tx.SetShipping(NewShippingService(f.catalog.repos().Homes, f.catalog.repos().Factories, f.quoter))
	f.svc = NewCartService(f.carts, f.catalog.repos(), markup, f.tx, zap.NewNop())
	return f
}

func (f *cartFixture) factory(t *testing.T) *uuid.UUID {
	fac, err := catalog.NewFactory(catalog.FactorySpec{
		Name:     "Dalton Plant",
		Address:  "1 Factory Rd, Dalton GA",
		Location: shared.GeoPoint{Lat: 34.77, Lng: -84.97},
	})
	require.NoError(t, err)
	f.catalog.factories[fac.ID] = fac
	return &fac.ID
}

func TestCartService_GetCart_EmptyWhenMissing(t *testing.T) {
	f := newCartFixture(t)
	customer := uuid.New()
	f.carts.On("FindByCustomerID", mock.Anything, customer).Return(nil, shared.ErrNotFound)

	view, err := f.svc.GetCart(context.Background(), customer)
	require.NoError(t, err)
	assert.Equal(t, customer, view.CustomerID)
	assert.Empty(t, view.Items)
	assert.True(t, view.Subtotal.IsZero())
}

func TestCartService_AddItem_PricesWithMarkup(t *testing.T) {
	f := newCartFixture(t)
	customer := uuid.New()
	home := f.catalog.addHome(t, 100000, nil)
	opt := f.catalog.addOption(t, 5000, home.ID)

	cart, err := sales.NewCart(customer)
	require.NoError(t, err)
	f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)
	f.carts.On("Save", mock.Anything, cart).Return(nil)

	_, err = f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindHome, RefID: home.ID})
	require.NoError(t, err)
	view, err := f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindOption, RefID: opt.ID, Quantity: 2})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, "110000", view.Items[0].UnitPrice.String())
	assert.Equal(t, "5500", view.Items[1].UnitPrice.String())
	assert.Equal(t, "11000", view.Items[1].LineTotal.String())
	assert.Equal(t, "121000", view.Subtotal.String())
	f.carts.AssertNumberOfCalls(t, "Save", 2)
}

func TestCartService_AddItem_Rejections(t *testing.T) {
	f := newCartFixture(t)
	customer := uuid.New()
	home := f.catalog.addHome(t, 100000, nil)
	other := f.catalog.addHome(t, 90000, nil)
	opt := f.catalog.addOption(t, 5000, other.ID)

	cart, err := sales.NewCart(customer)
	require.NoError(t, err)
	f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)
	f.carts.On("Save", mock.Anything, cart).Return(nil)

	_, err = f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindOption, RefID: opt.ID})
	assertCode(t, err, "HOME_REQUIRED")

	_, err = f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindHome, RefID: home.ID})
	require.NoError(t, err)

	_, err = f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindOption, RefID: opt.ID})
	assertCode(t, err, "OPTION_INCOMPATIBLE")

	_, err = f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindHome, RefID: other.ID})
	assertCode(t, err, "HOME_ALREADY_IN_CART")

	_, err = f.svc.AddItem(context.Background(), customer, AddItemInput{Kind: sales.KindService, RefID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCartService_GetCart_MarksUnavailableItems(t *testing.T) {
	f := newCartFixture(t)
	customer := uuid.New()
	home := f.catalog.addHome(t, 100000, nil)
	svc := f.catalog.addService(t, 2000)

	cart, err := sales.NewCart(customer)
	require.NoError(t, err)
	require.NoError(t, cart.AddHome(home))
	require.NoError(t, cart.AddService(svc, 1))
	svc.SetActive(false)
	f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)

	view, err := f.svc.GetCart(context.Background(), customer)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.True(t, view.Items[0].Available)
	assert.False(t, view.Items[1].Available)
	assert.Equal(t, "110000", view.Subtotal.String())
}

func TestCartService_Checkout(t *testing.T) {
	t.Run("creates a quoted draft and clears the cart", func(t *testing.T) {
		f := newCartFixture(t)
		customer := uuid.New()
		home := f.catalog.addHome(t, 100000, f.factory(t))
		svc := f.catalog.addService(t, 2000)
		f.quoter.quote = integration.ShippingQuote{Fee: decimal.RequireFromString("4120.50"), Miles: decimal.RequireFromString("310.4")}

		cart, err := sales.NewCart(customer)
		require.NoError(t, err)
		require.NoError(t, cart.AddHome(home))
		require.NoError(t, cart.AddService(svc, 2))
		require.NoError(t, cart.SetDeliveryAddress("12 Oak Ln, Macon GA"))

		f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)
		f.carts.On("Save", mock.Anything, cart).Return(nil)
		f.txRepo.On("NextSequence", mock.Anything, 2026).Return(7, nil)
		f.txRepo.On("Save", mock.Anything, mock.AnythingOfType("*sales.Transaction")).Return(nil)

		dto, err := f.svc.Checkout(context.Background(), customer, CheckoutInput{Notes: "Call before delivery"})
		require.NoError(t, err)

		assert.Equal(t, "EST-2026-00007", dto.Number)
		assert.Equal(t, sales.StatusDraft, dto.Status)
		assert.Equal(t, "114400", dto.Subtotal.String())
		assert.Equal(t, "4120.5", dto.DeliveryFee.String())
		assert.Equal(t, "118520.5", dto.Total.String())
		assert.Equal(t, "Call before delivery", dto.Notes)
		assert.Nil(t, dto.Lines[0].BaseUnitPrice)
		assert.True(t, cart.IsEmpty())
		assert.Equal(t, "12 Oak Ln, Macon GA", cart.DeliveryAddress)
		assert.Equal(t, []string{sales.EventTypeTransactionCreated}, f.events.types())
		assert.Equal(t, 1, f.quoter.calls)
	})

	t.Run("failed quote leaves fee zero and notes it", func(t *testing.T) {
		f := newCartFixture(t)
		customer := uuid.New()
		home := f.catalog.addHome(t, 100000, f.factory(t))
		f.quoter.err = integration.ErrAddressNotFound

		cart, err := sales.NewCart(customer)
		require.NoError(t, err)
		require.NoError(t, cart.AddHome(home))

		f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)
		f.carts.On("Save", mock.Anything, cart).Return(nil)
		f.txRepo.On("NextSequence", mock.Anything, 2026).Return(1, nil)
		f.txRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		dto, err := f.svc.Checkout(context.Background(), customer, CheckoutInput{DeliveryAddress: "nowhere"})
		require.NoError(t, err)
		assert.True(t, dto.DeliveryFee.IsZero())
		assert.Equal(t, "110000", dto.Total.String())
		assert.Contains(t, dto.Notes, "Delivery fee could not be quoted")
	})

	t.Run("requires a home", func(t *testing.T) {
		f := newCartFixture(t)
		customer := uuid.New()
		cart, err := sales.NewCart(customer)
		require.NoError(t, err)
		require.NoError(t, cart.AddService(f.catalog.addService(t, 500), 1))
		f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)

		_, err = f.svc.Checkout(context.Background(), customer, CheckoutInput{})
		assertCode(t, err, "HOME_REQUIRED")
		f.txRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects unavailable items", func(t *testing.T) {
		f := newCartFixture(t)
		customer := uuid.New()
		home := f.catalog.addHome(t, 100000, nil)
		cart, err := sales.NewCart(customer)
		require.NoError(t, err)
		require.NoError(t, cart.AddHome(home))
		home.Deactivate()
		f.carts.On("FindByCustomerID", mock.Anything, customer).Return(cart, nil)

		_, err = f.svc.Checkout(context.Background(), customer, CheckoutInput{})
		assertCode(t, err, "ITEM_UNAVAILABLE")
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newCartFixture(t)
		customer := uuid.New()
		f.carts.On("FindByCustomerID", mock.Anything, customer).Return(nil, shared.ErrNotFound)

		_, err := f.svc.Checkout(context.Background(), customer, CheckoutInput{})
		assertCode(t, err, "CART_EMPTY")
	})
}
