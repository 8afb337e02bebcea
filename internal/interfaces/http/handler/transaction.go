package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/sales"
	"github.com/homestead/backend/internal/domain/shared"
)

// TransactionService is the estimate and contract pipeline used over HTTP
type TransactionService interface {
	Create(ctx context.Context, in sales.CreateTransactionInput, a sales.Actor) (*sales.TransactionDTO, error)
	Get(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	GetByNumber(ctx context.Context, number string, a sales.Actor) (*sales.TransactionDTO, error)
	List(ctx context.Context, in sales.ListTransactionsInput, a sales.Actor) (shared.Paginated[sales.TransactionDTO], error)
	UpdateLines(ctx context.Context, id uuid.UUID, in []sales.LineInput, a sales.Actor) (*sales.TransactionDTO, error)
	SendEstimate(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	ApproveEstimate(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	Revise(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	SendContract(ctx context.Context, id uuid.UUID, in sales.SendContractInput, a sales.Actor) (*sales.TransactionDTO, error)
	MarkContractSigned(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	StartProduction(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	MarkReadyForDelivery(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	Complete(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error)
	Cancel(ctx context.Context, id uuid.UUID, in sales.CancelInput, a sales.Actor) (*sales.TransactionDTO, error)
}

// TransactionHandler handles estimates, contracts and their status machine
type TransactionHandler struct {
	BaseHandler
	transactions TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactions TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// UpdateLinesRequest replaces the lines of a draft
type UpdateLinesRequest struct {
	Lines []sales.LineInput `json:"lines" binding:"required,min=1,dive"`
}

func (h *TransactionHandler) actor(c *gin.Context) (sales.Actor, bool) {
	who, ok := h.requireCaller(c)
	return sales.Actor{UserID: who.UserID, Role: who.Role}, ok
}

// transition runs one status change on the transaction at :id
func (h *TransactionHandler) transition(c *gin.Context, fn func(context.Context, uuid.UUID, sales.Actor) (*sales.TransactionDTO, error)) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	t, err := fn(c.Request.Context(), id, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

// Create godoc
// @ID           createTransaction
// @Summary      Create a draft estimate with explicit lines
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request body sales.CreateTransactionInput true "Estimate"
// @Success      201 {object} APIResponse[sales.TransactionDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	var in sales.CreateTransactionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	t, err := h.transactions.Create(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, t)
}

// List godoc
// @ID           listTransactions
// @Summary      List transactions
// @Description  Customers only see their own
// @Tags         transactions
// @Produce      json
// @Param        page query int false "Page" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Status"
// @Param        customer_id query string false "Customer" format(uuid)
// @Param        sales_rep_id query string false "Sales rep" format(uuid)
// @Param        from query string false "Created from (RFC 3339 or date)"
// @Param        to query string false "Created before (RFC 3339 or date)"
// @Param        search query string false "Estimate number"
// @Success      200 {object} APIResponse[[]sales.TransactionDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	req, ok := h.listRequest(c)
	if !ok {
		return
	}
	in := sales.ListTransactionsInput{
		Page:     req.Page,
		PageSize: req.PageSize,
		Status:   c.Query("status"),
		Search:   req.Search,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
	}
	if !h.optionalUUIDs(c, map[string]**uuid.UUID{"customer_id": &in.CustomerID, "sales_rep_id": &in.SalesRepID}) {
		return
	}
	if !h.optionalTimes(c, map[string]**time.Time{"from": &in.From, "to": &in.To}) {
		return
	}

	page, err := h.transactions.List(c.Request.Context(), in, a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	respondPage(c, page)
}

// Get godoc
// @ID           getTransaction
// @Summary      Get a transaction
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	h.transition(c, h.transactions.Get)
}

// GetByNumber godoc
// @ID           getTransactionByNumber
// @Summary      Get a transaction by estimate number
// @Tags         transactions
// @Produce      json
// @Param        number path string true "Estimate number" example(EST-2026-00042)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/number/{number} [get]
func (h *TransactionHandler) GetByNumber(c *gin.Context) {
	a, ok := h.actor(c)
	if !ok {
		return
	}
	t, err := h.transactions.GetByNumber(c.Request.Context(), c.Param("number"), a)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, t)
}

// UpdateLines godoc
// @ID           updateTransactionLines
// @Summary      Replace the lines of a draft
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body UpdateLinesRequest true "Lines"
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id}/lines [put]
func (h *TransactionHandler) UpdateLines(c *gin.Context) {
	var req UpdateLinesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}
	h.transition(c, func(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error) {
		return h.transactions.UpdateLines(ctx, id, req.Lines, a)
	})
}

// SendEstimate godoc
// @ID           sendEstimate
// @Summary      Send the estimate to the customer
// @Description  Renders and stores the estimate PDF; a rendering failure does not block the send
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id}/send-estimate [post]
func (h *TransactionHandler) SendEstimate(c *gin.Context) {
	h.transition(c, h.transactions.SendEstimate)
}

// ApproveEstimate godoc
// @ID           approveEstimate
// @Summary      Approve a sent estimate
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id}/approve [post]
func (h *TransactionHandler) ApproveEstimate(c *gin.Context) {
	h.transition(c, h.transactions.ApproveEstimate)
}

// Revise godoc
// @ID           reviseEstimate
// @Summary      Return a sent estimate to draft
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id}/revise [post]
func (h *TransactionHandler) Revise(c *gin.Context) {
	h.transition(c, h.transactions.Revise)
}

// SendContract godoc
// @ID           sendContract
// @Summary      Send the contract through DocuSign
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body sales.SendContractInput false "Template override"
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      422 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id}/send-contract [post]
func (h *TransactionHandler) SendContract(c *gin.Context) {
	var in sales.SendContractInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			h.BindError(c, err)
			return
		}
	}
	h.transition(c, func(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error) {
		return h.transactions.SendContract(ctx, id, in, a)
	})
}

// MarkContractSigned godoc
// @ID           markContractSigned
// @Summary      Record a signed contract
// @Description  Staff override for when the DocuSign webhook is not delivered
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Security     BearerAuth
// @Router       /transactions/{id}/mark-signed [post]
func (h *TransactionHandler) MarkContractSigned(c *gin.Context) {
	h.transition(c, h.transactions.MarkContractSigned)
}

// StartProduction godoc
// @ID           startProduction
// @Summary      Mark the home as in production
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Security     BearerAuth
// @Router       /transactions/{id}/start-production [post]
func (h *TransactionHandler) StartProduction(c *gin.Context) {
	h.transition(c, h.transactions.StartProduction)
}

// MarkReady godoc
// @ID           markReadyForDelivery
// @Summary      Mark the home ready for delivery
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Security     BearerAuth
// @Router       /transactions/{id}/ready [post]
func (h *TransactionHandler) MarkReady(c *gin.Context) {
	h.transition(c, h.transactions.MarkReadyForDelivery)
}

// Complete godoc
// @ID           completeTransaction
// @Summary      Complete a delivered transaction
// @Tags         transactions
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Security     BearerAuth
// @Router       /transactions/{id}/complete [post]
func (h *TransactionHandler) Complete(c *gin.Context) {
	h.transition(c, h.transactions.Complete)
}

// Cancel godoc
// @ID           cancelTransaction
// @Summary      Cancel a transaction
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        id path string true "Transaction ID" format(uuid)
// @Param        request body sales.CancelInput true "Reason"
// @Success      200 {object} APIResponse[sales.TransactionDTO]
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /transactions/{id}/cancel [post]
func (h *TransactionHandler) Cancel(c *gin.Context) {
	var in sales.CancelInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.BindError(c, err)
		return
	}
	h.transition(c, func(ctx context.Context, id uuid.UUID, a sales.Actor) (*sales.TransactionDTO, error) {
		return h.transactions.Cancel(ctx, id, in, a)
	})
}
