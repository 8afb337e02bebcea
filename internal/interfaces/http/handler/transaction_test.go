package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/sales"
	"github.com/homestead/backend/internal/domain/identity"
	domainsales "github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubTransactions struct {
	TransactionService
	mock.Mock
}

func (m *stubTransactions) result(args mock.Arguments) (*sales.TransactionDTO, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.TransactionDTO), args.Error(1)
}

func (m *stubTransactions) Create(ctx context.Context, in sales.CreateTransactionInput, a sales.Actor) (*sales.TransactionDTO, error) {
	return m.result(m.Called(ctx, in, a))
}

func (m *stubTransactions) List(ctx context.Context, in sales.ListTransactionsInput, a sales.Actor) (shared.Paginated[sales.TransactionDTO], error) {
	args := m.Called(ctx, in, a)
	return args.Get(0).(shared.Paginated[sales.TransactionDTO]), args.Error(1)
}

func (m *stubTransactions) SendEstimate(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error) {
	return m.result(m.Called(ctx, id, a))
}

func (m *stubTransactions) SendContract(ctx context.Context, id uuid.UUID, in sales.SendContractInput, a sales.Actor) (*sales.TransactionDTO, error) {
	return m.result(m.Called(ctx, id, in, a))
}

func (m *stubTransactions) Cancel(ctx context.Context, id uuid.UUID, in sales.CancelInput, a sales.Actor) (*sales.TransactionDTO, error) {
	return m.result(m.Called(ctx, id, in, a))
}

func transactionRouter(svc *stubTransactions, u *testUser) http.Handler {
	h := NewTransactionHandler(svc)
	r := newEngine(u)
	r.POST("/transactions", h.Create)
	r.GET("/transactions", h.List)
	r.POST("/transactions/:id/send-estimate", h.SendEstimate)
	r.POST("/transactions/:id/send-contract", h.SendContract)
	r.POST("/transactions/:id/cancel", h.Cancel)
	return r
}

func TestTransactionHandler_Create(t *testing.T) {
	u := newUser(identity.RoleSales)
	customerID := uuid.New()
	homeID := uuid.New()
	svc := new(stubTransactions)
	svc.On("Create", mock.Anything, mock.MatchedBy(func(in sales.CreateTransactionInput) bool {
		return in.CustomerID == customerID && len(in.Lines) == 1 && in.Lines[0].RefID == homeID
	}), sales.Actor{UserID: u.ID, Role: u.Role}).
		Return(&sales.TransactionDTO{ID: uuid.New(), Number: "HS-2026-00042", Status: domainsales.StatusDraft}, nil)

	w := doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions", map[string]any{
		"customer_id": customerID,
		"lines":       []map[string]any{{"kind": "home", "ref_id": homeID}},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := dataMap(t, w)
	assert.Equal(t, "HS-2026-00042", data["number"])
	assert.Equal(t, "draft", data["status"])
}

func TestTransactionHandler_Create_Validation(t *testing.T) {
	u := newUser(identity.RoleSales)
	svc := new(stubTransactions)

	t.Run("no lines", func(t *testing.T) {
		w := doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions", map[string]any{
			"customer_id": uuid.New(),
			"lines":       []any{},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown line kind", func(t *testing.T) {
		w := doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions", map[string]any{
			"customer_id": uuid.New(),
			"lines":       []map[string]any{{"kind": "warranty", "ref_id": uuid.New()}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransactionHandler_List_Filters(t *testing.T) {
	u := newUser(identity.RoleAdmin)
	customerID := uuid.New()
	svc := new(stubTransactions)
	svc.On("List", mock.Anything, mock.MatchedBy(func(in sales.ListTransactionsInput) bool {
		return in.Status == "contract_sent" &&
			in.CustomerID != nil && *in.CustomerID == customerID &&
			in.From != nil && in.From.Format("2006-01-02") == "2026-03-01" &&
			in.To == nil
	}), mock.Anything).Return(shared.NewPaginated([]sales.TransactionDTO(nil), 0, 1, 20), nil)

	path := "/transactions?status=contract_sent&customer_id=" + customerID.String() + "&from=2026-03-01"
	w := doRequest(t, transactionRouter(svc, &u), http.MethodGet, path, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)

	w = doRequest(t, transactionRouter(svc, &u), http.MethodGet, "/transactions?from=last-week", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionHandler_SendEstimate_WrongState(t *testing.T) {
	u := newUser(identity.RoleSales)
	id := uuid.New()
	svc := new(stubTransactions)
	svc.On("SendEstimate", mock.Anything, id, mock.Anything).
		Return(nil, shared.NewDomainError("INVALID_STATE", "Estimate already sent"))

	w := doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions/"+id.String()+"/send-estimate", nil)

	assert.Equal(t, dto.GetHTTPStatus("INVALID_STATE"), w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))
}

func TestTransactionHandler_SendContract(t *testing.T) {
	u := newUser(identity.RoleSales)
	id := uuid.New()
	svc := new(stubTransactions)
	sent := &sales.TransactionDTO{ID: id, Status: domainsales.StatusContractSent, EnvelopeID: "env-1"}
	svc.On("SendContract", mock.Anything, id, sales.SendContractInput{}, mock.Anything).Return(sent, nil).Once()
	svc.On("SendContract", mock.Anything, id, sales.SendContractInput{TemplateID: "tpl-9"}, mock.Anything).Return(sent, nil).Once()

	w := doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions/"+id.String()+"/send-contract", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions/"+id.String()+"/send-contract", map[string]string{"template_id": "tpl-9"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "env-1", dataMap(t, w)["envelope_id"])
	svc.AssertExpectations(t)
}

func TestTransactionHandler_Cancel(t *testing.T) {
	u := newUser(identity.RoleAdmin)
	id := uuid.New()
	svc := new(stubTransactions)
	svc.On("Cancel", mock.Anything, id, sales.CancelInput{Reason: "Financing fell through"}, mock.Anything).
		Return(&sales.TransactionDTO{ID: id, Status: domainsales.StatusCancelled, CancelReason: "Financing fell through"}, nil)

	w := doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions/"+id.String()+"/cancel", map[string]string{"reason": "Financing fell through"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doRequest(t, transactionRouter(svc, &u), http.MethodPost, "/transactions/"+id.String()+"/cancel", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, transactionRouter(svc, nil), http.MethodPost, "/transactions/"+id.String()+"/cancel", map[string]string{"reason": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
