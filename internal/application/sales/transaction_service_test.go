package sales

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
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

type txFixture struct {
	catalog  *catalogFake
	repo     *MockTransactionRepository
	users    userMap
	events   *recordingPublisher
	svc      *TransactionService
	customer *identity.User
	staff    Actor
}

func newTxFixture(t *testing.T) *txFixture {
	customer, err := identity.NewUser("buyer@example.com", "Dana Buyer", "+14785550100", identity.RoleCustomer, "Sup3r-secret!")
	require.NoError(t, err)
	f := &txFixture{
		catalog:  newCatalogFake(),
		repo:     new(MockTransactionRepository),
		users:    userMap{customer.ID: customer},
		events:   &recordingPublisher{},
		customer: customer,
		staff:    Actor{UserID: uuid.New(), Role: identity.RoleSales},
	}
	f.svc = NewTransactionService(f.repo, f.catalog.repos(), fixedMarkup(decimal.Zero), f.users, zap.NewNop())
	f.svc.SetEventPublisher(f.events)
	return f
}

// draft stores a draft in the mock repository and returns it
func (f *txFixture) draft(t *testing.T) *sales.Transaction {
	home := f.catalog.addHome(t, 80000, nil)
	line, err := sales.NewLine(sales.KindHome, home.ID, home.ModelName, 1, home.BasePrice, decimal.Zero)
	require.NoError(t, err)
	tx, err := sales.NewTransaction("EST-2026-00001", f.customer.ID, &f.staff.UserID, []sales.Line{line}, "12 Oak Ln")
	require.NoError(t, err)
	tx.ClearDomainEvents()
	f.repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
	return tx
}

func TestTransactionService_Create(t *testing.T) {
	f := newTxFixture(t)
	home := f.catalog.addHome(t, 80000, nil)
	opt := f.catalog.addOption(t, 3000)
	f.repo.On("NextSequence", mock.Anything, mock.Anything).Return(42, nil)
	f.repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	dto, err := f.svc.Create(context.Background(), CreateTransactionInput{
		CustomerID: f.customer.ID,
		Lines: []LineInput{
			{Kind: sales.KindHome, RefID: home.ID, Quantity: 1},
			{Kind: sales.KindOption, RefID: opt.ID, Quantity: 2},
		},
	}, f.staff)
	require.NoError(t, err)

	assert.Contains(t, dto.Number, "-00042")
	assert.Equal(t, &f.staff.UserID, dto.SalesRepID)
	assert.Equal(t, "86000", dto.Total.String())
	require.NotNil(t, dto.Lines[1].BaseUnitPrice)
	assert.Equal(t, "3000", dto.Lines[1].BaseUnitPrice.String())

	_, err = f.svc.Create(context.Background(), CreateTransactionInput{CustomerID: f.customer.ID}, Actor{UserID: f.customer.ID, Role: identity.RoleCustomer})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestTransactionService_Get_CustomerScope(t *testing.T) {
	f := newTxFixture(t)
	tx := f.draft(t)

	_, err := f.svc.Get(context.Background(), tx.ID, Actor{UserID: f.customer.ID, Role: identity.RoleCustomer})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), tx.ID, Actor{UserID: uuid.New(), Role: identity.RoleCustomer})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTransactionService_List_ForcesCustomerFilter(t *testing.T) {
	f := newTxFixture(t)
	customer := Actor{UserID: f.customer.ID, Role: identity.RoleCustomer}
	other := uuid.New()

	f.repo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter sales.TransactionFilter) bool {
		return filter.CustomerID != nil && *filter.CustomerID == f.customer.ID && filter.PageSize == 100
	})).Return([]*sales.Transaction{}, int64(0), nil)

	page, err := f.svc.List(context.Background(), ListTransactionsInput{CustomerID: &other, PageSize: 500}, customer)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Total)

	_, err = f.svc.List(context.Background(), ListTransactionsInput{Status: "bogus"}, f.staff)
	assertCode(t, err, "INVALID_STATUS")
}

func TestTransactionService_SendEstimate(t *testing.T) {
	t.Run("stores the rendered PDF", func(t *testing.T) {
		f := newTxFixture(t)
		printer := &stubPrinter{pdf: []byte("%PDF-1.7")}
		storage := &memoryStorage{}
		f.svc.SetEstimatePrinter(printer, storage, "Homestead Homes")
		tx := f.draft(t)
		f.repo.On("Save", mock.Anything, tx).Return(nil)

		dto, err := f.svc.SendEstimate(context.Background(), tx.ID, f.staff)
		require.NoError(t, err)
		assert.Equal(t, sales.StatusEstimateSent, dto.Status)
		assert.Equal(t, "estimates/EST-2026-00001.pdf", dto.EstimatePDFKey)
		assert.Equal(t, []byte("%PDF-1.7"), storage.objects[dto.EstimatePDFKey])
		assert.Equal(t, "Dana Buyer", printer.got.CustomerName)
		assert.Equal(t, []string{"transaction.estimate_sent"}, f.events.types())
	})

	t.Run("render failure does not block", func(t *testing.T) {
		f := newTxFixture(t)
		f.svc.SetEstimatePrinter(&stubPrinter{err: errors.New("chrome gone")}, &memoryStorage{}, "")
		tx := f.draft(t)
		f.repo.On("Save", mock.Anything, tx).Return(nil)

		dto, err := f.svc.SendEstimate(context.Background(), tx.ID, f.staff)
		require.NoError(t, err)
		assert.Equal(t, sales.StatusEstimateSent, dto.Status)
		assert.Empty(t, dto.EstimatePDFKey)
	})
}

func TestTransactionService_CustomerMayOnlyApprove(t *testing.T) {
	f := newTxFixture(t)
	tx := f.draft(t)
	require.NoError(t, tx.SendEstimate())
	tx.ClearDomainEvents()
	f.repo.On("Save", mock.Anything, tx).Return(nil)
	customer := Actor{UserID: f.customer.ID, Role: identity.RoleCustomer}

	_, err := f.svc.Revise(context.Background(), tx.ID, customer)
	assert.ErrorIs(t, err, shared.ErrForbidden)
	assert.Equal(t, sales.StatusEstimateSent, tx.Status)

	dto, err := f.svc.ApproveEstimate(context.Background(), tx.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusEstimateApproved, dto.Status)
	assert.Nil(t, dto.Lines[0].MarkupPercent)
}

func TestTransactionService_SendContract(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newTxFixture(t)
		_, err := f.svc.SendContract(context.Background(), uuid.New(), SendContractInput{}, f.staff)
		assert.ErrorIs(t, err, ErrContractsNotConfigured)
	})

	t.Run("sends envelope to the customer", func(t *testing.T) {
		f := newTxFixture(t)
		contracts := &stubContracts{envelopeID: "env-123"}
		f.svc.SetContractSender(contracts, "tmpl-default")
		tx := f.draft(t)
		require.NoError(t, tx.SendEstimate())
		require.NoError(t, tx.ApproveEstimate())
		tx.ClearDomainEvents()
		f.repo.On("Save", mock.Anything, tx).Return(nil)

		dto, err := f.svc.SendContract(context.Background(), tx.ID, SendContractInput{}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, sales.StatusContractSent, dto.Status)
		assert.Equal(t, "env-123", dto.EnvelopeID)
		assert.Equal(t, "tmpl-default", contracts.got.TemplateID)
		require.Len(t, contracts.got.Signers, 1)
		assert.Equal(t, "buyer@example.com", contracts.got.Signers[0].Email)
		assert.Equal(t, tx.ID.String(), contracts.got.CustomFields[CustomFieldTransactionID])
	})

	t.Run("requires an approved estimate", func(t *testing.T) {
		f := newTxFixture(t)
		contracts := &stubContracts{envelopeID: "env-123"}
		f.svc.SetContractSender(contracts, "tmpl")
		tx := f.draft(t)

		_, err := f.svc.SendContract(context.Background(), tx.ID, SendContractInput{}, f.staff)
		assertCode(t, err, "INVALID_STATE")
		assert.Empty(t, contracts.got.TemplateID)
	})

	t.Run("provider failure", func(t *testing.T) {
		f := newTxFixture(t)
		f.svc.SetContractSender(&stubContracts{err: &integration.APIError{Provider: "docusign", StatusCode: 500}}, "tmpl")
		tx := f.draft(t)
		require.NoError(t, tx.SendEstimate())
		require.NoError(t, tx.ApproveEstimate())

		_, err := f.svc.SendContract(context.Background(), tx.ID, SendContractInput{}, f.staff)
		assert.ErrorIs(t, err, shared.ErrIntegration)
		assert.Equal(t, sales.StatusEstimateApproved, tx.Status)
	})
}

func TestTransactionService_HandleConnectEvent(t *testing.T) {
	contractSent := func(t *testing.T, f *txFixture) *sales.Transaction {
		tx := f.draft(t)
		require.NoError(t, tx.SendEstimate())
		require.NoError(t, tx.ApproveEstimate())
		require.NoError(t, tx.SendContract("env-9"))
		tx.ClearDomainEvents()
		return tx
	}

	t.Run("completed envelope marks signed once", func(t *testing.T) {
		f := newTxFixture(t)
		tx := contractSent(t, f)
		f.repo.On("FindByEnvelopeID", mock.Anything, "env-9").Return(tx, nil)
		f.repo.On("Save", mock.Anything, tx).Return(nil).Once()

		ev := integration.ConnectEvent{EnvelopeID: "env-9", Status: "Completed"}
		require.NoError(t, f.svc.HandleConnectEvent(context.Background(), ev))
		assert.Equal(t, sales.StatusContractSigned, tx.Status)

		require.NoError(t, f.svc.HandleConnectEvent(context.Background(), ev))
		f.repo.AssertNumberOfCalls(t, "Save", 1)
		assert.Equal(t, []string{"transaction.contract_signed"}, f.events.types())
	})

	t.Run("other statuses are ignored", func(t *testing.T) {
		f := newTxFixture(t)
		require.NoError(t, f.svc.HandleConnectEvent(context.Background(), integration.ConnectEvent{EnvelopeID: "env-9", Status: "sent"}))
		f.repo.AssertNotCalled(t, "FindByEnvelopeID", mock.Anything, mock.Anything)
	})

	t.Run("falls back to the custom field", func(t *testing.T) {
		f := newTxFixture(t)
		tx := contractSent(t, f)
		f.repo.On("FindByEnvelopeID", mock.Anything, "unknown").Return(nil, shared.ErrNotFound)
		f.repo.On("Save", mock.Anything, tx).Return(nil)

		err := f.svc.HandleConnectEvent(context.Background(), integration.ConnectEvent{
			EnvelopeID:   "unknown",
			Status:       "completed",
			CustomFields: map[string]string{CustomFieldTransactionID: tx.ID.String()},
		})
		require.NoError(t, err)
		assert.Equal(t, sales.StatusContractSigned, tx.Status)
	})
}

func TestTransactionService_ConcurrencyConflict(t *testing.T) {
	f := newTxFixture(t)
	tx := f.draft(t)
	f.repo.On("Save", mock.Anything, tx).Return(shared.ErrConcurrencyConflict)

	_, err := f.svc.Cancel(context.Background(), tx.ID, CancelInput{Reason: "changed mind"}, f.staff)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.Empty(t, f.events.types())
}

func TestTransactionService_CompleteForDelivery(t *testing.T) {
	f := newTxFixture(t)
	tx := f.draft(t)
	for _, step := range []func() error{
		tx.SendEstimate, tx.ApproveEstimate, func() error { return tx.SendContract("env") },
		tx.MarkContractSigned, tx.StartProduction, tx.MarkReadyForDelivery,
	} {
		require.NoError(t, step())
	}
	tx.ClearDomainEvents()
	f.repo.On("Save", mock.Anything, tx).Return(nil).Once()

	require.NoError(t, f.svc.CompleteForDelivery(context.Background(), tx.ID))
	assert.Equal(t, sales.StatusCompleted, tx.Status)

	require.NoError(t, f.svc.CompleteForDelivery(context.Background(), tx.ID))
	f.repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestTransactionService_UpdateLines_Requotes(t *testing.T) {
	// quotedDraft returns a draft whose home ships from a factory, already quoted at $5000 / 200 mi
	quotedDraft := func(t *testing.T) (*txFixture, *stubQuoter, *sales.Transaction, *uuid.UUID) {
		f := newTxFixture(t)
		fac, err := catalog.NewFactory(catalog.FactorySpec{
			Name:     "Dalton Plant",
			Address:  "1 Factory Rd, Dalton GA",
			Location: shared.GeoPoint{Lat: 34.77, Lng: -84.97},
		})
		require.NoError(t, err)
		f.catalog.factories[fac.ID] = fac
		quoter := &stubQuoter{}
		f.svc.SetShipping(NewShippingService(f.catalog.repos().Homes, f.catalog.repos().Factories, quoter))

		home := f.catalog.addHome(t, 80000, &fac.ID)
		line, err := sales.NewLine(sales.KindHome, home.ID, home.ModelName, 1, home.BasePrice, decimal.Zero)
		require.NoError(t, err)
		tx, err := sales.NewTransaction("EST-2026-00007", f.customer.ID, &f.staff.UserID, []sales.Line{line}, "12 Oak Ln, Macon GA")
		require.NoError(t, err)
		require.NoError(t, tx.ApplyDeliveryQuote(decimal.NewFromInt(5000), decimal.NewFromInt(200)))
		tx.ClearDomainEvents()
		f.repo.On("FindByID", mock.Anything, tx.ID).Return(tx, nil)
		f.repo.On("Save", mock.Anything, tx).Return(nil)
		return f, quoter, tx, &fac.ID
	}

	t.Run("removing the home drops the delivery fee", func(t *testing.T) {
		f, quoter, tx, _ := quotedDraft(t)
		svc := f.catalog.addService(t, 900)

		dto, err := f.svc.UpdateLines(context.Background(), tx.ID,
			[]LineInput{{Kind: sales.KindService, RefID: svc.ID, Quantity: 1}}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, "900", dto.Subtotal.String())
		assert.True(t, dto.DeliveryFee.IsZero())
		assert.True(t, dto.DeliveryMiles.IsZero())
		assert.Equal(t, "900", dto.Total.String())
		assert.Zero(t, quoter.calls)
	})

	t.Run("swapping the home requotes", func(t *testing.T) {
		f, quoter, tx, factoryID := quotedDraft(t)
		quoter.quote = integration.ShippingQuote{Fee: decimal.NewFromInt(3200), Miles: decimal.NewFromInt(140)}
		other := f.catalog.addHome(t, 70000, factoryID)

		dto, err := f.svc.UpdateLines(context.Background(), tx.ID,
			[]LineInput{{Kind: sales.KindHome, RefID: other.ID, Quantity: 1}}, f.staff)
		require.NoError(t, err)
		assert.Equal(t, 1, quoter.calls)
		assert.Equal(t, "3200", dto.DeliveryFee.String())
		assert.Equal(t, "140", dto.DeliveryMiles.String())
		assert.Equal(t, "73200", dto.Total.String())
	})

	t.Run("a failed requote leaves the fee at zero", func(t *testing.T) {
		f, quoter, tx, factoryID := quotedDraft(t)
		quoter.err = &integration.APIError{Provider: "google-geocoding", StatusCode: 503}
		other := f.catalog.addHome(t, 70000, factoryID)

		dto, err := f.svc.UpdateLines(context.Background(), tx.ID,
			[]LineInput{{Kind: sales.KindHome, RefID: other.ID, Quantity: 1}}, f.staff)
		require.NoError(t, err)
		assert.True(t, dto.DeliveryFee.IsZero())
		assert.True(t, dto.DeliveryMiles.IsZero())
		assert.Equal(t, "70000", dto.Total.String())
		assert.Contains(t, dto.Notes, "google-geocoding unavailable")
	})
}
