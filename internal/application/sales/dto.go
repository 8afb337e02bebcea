package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Actor is the authenticated caller of a sales operation
type Actor struct {
	UserID uuid.UUID
	Role   identity.Role
}

// SystemActor is used by event handlers and webhooks
func SystemActor() Actor {
	return Actor{Role: identity.RoleAdmin}
}

func (a Actor) isCustomer() bool {
	return a.Role == identity.RoleCustomer
}

// CartItemView is a priced cart line. Unavailable items are excluded from the subtotal.
type CartItemView struct {
	ID        uuid.UUID       `json:"id"`
	Kind      sales.ItemKind  `json:"kind"`
	RefID     uuid.UUID       `json:"ref_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Available bool            `json:"available"`
}

// CartView is the priced cart returned to the storefront
type CartView struct {
	CustomerID      uuid.UUID       `json:"customer_id"`
	Items           []CartItemView  `json:"items"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
}

// AddItemInput adds a catalog entry to the cart
type AddItemInput struct {
	Kind     sales.ItemKind `json:"kind" binding:"required,oneof=home option service"`
	RefID    uuid.UUID      `json:"ref_id" binding:"required"`
	Quantity int            `json:"quantity" binding:"omitempty,min=1,max=99"`
}

// CheckoutInput turns the cart into a draft estimate
type CheckoutInput struct {
	DeliveryAddress string `json:"delivery_address" binding:"max=500"`
	Notes           string `json:"notes" binding:"max=2000"`
}

// LineInput is a staff-entered line; name and price come from the catalog
type LineInput struct {
	Kind     sales.ItemKind `json:"kind" binding:"required,oneof=home option service"`
	RefID    uuid.UUID      `json:"ref_id" binding:"required"`
	Quantity int            `json:"quantity" binding:"required,min=1,max=99"`
}

// CreateTransactionInput is a staff-created estimate
type CreateTransactionInput struct {
	CustomerID      uuid.UUID   `json:"customer_id" binding:"required"`
	Lines           []LineInput `json:"lines" binding:"required,min=1,dive"`
	DeliveryAddress string      `json:"delivery_address" binding:"max=500"`
	Notes           string      `json:"notes" binding:"max=2000"`
}

// SendContractInput picks the DocuSign template; empty uses the configured default
type SendContractInput struct {
	TemplateID string `json:"template_id"`
}

// CancelInput carries the cancellation reason
type CancelInput struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListTransactionsInput filters the transaction listing
type ListTransactionsInput struct {
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	Status     string     `form:"status"`
	CustomerID *uuid.UUID `form:"customer_id"`
	SalesRepID *uuid.UUID `form:"sales_rep_id"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	Search     string     `form:"search"`
	OrderBy    string     `form:"order_by"`
	OrderDir   string     `form:"order_dir"`
}

var transactionOrderColumns = map[string]bool{
	"created_at": true, "updated_at": true, "number": true, "total": true, "status": true,
}

func (in ListTransactionsInput) filter(a Actor) (sales.TransactionFilter, error) {
	f := sales.TransactionFilter{Filter: shared.DefaultFilter()}
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = min(in.PageSize, 100)
	}
	if transactionOrderColumns[in.OrderBy] {
		f.OrderBy = in.OrderBy
	}
	if in.OrderDir == "asc" {
		f.OrderDir = "asc"
	}
	f.Search = in.Search
	if in.Status != "" {
		st := sales.TransactionStatus(in.Status)
		if !st.IsValid() {
			return f, shared.NewDomainError("INVALID_STATUS", "Unknown transaction status: "+in.Status)
		}
		f.Status = &st
	}
	f.CustomerID = in.CustomerID
	f.SalesRepID = in.SalesRepID
	f.From = in.From
	f.To = in.To
	if a.isCustomer() {
		id := a.UserID
		f.CustomerID = &id
		f.SalesRepID = nil
	}
	return f, nil
}

// LineDTO is a priced line. Base price and markup are shown to staff only.
type LineDTO struct {
	ID            uuid.UUID        `json:"id"`
	Kind          sales.ItemKind   `json:"kind"`
	RefID         uuid.UUID        `json:"ref_id"`
	Name          string           `json:"name"`
	Quantity      int              `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	LineTotal     decimal.Decimal  `json:"line_total"`
	BaseUnitPrice *decimal.Decimal `json:"base_unit_price,omitempty"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
}

// TransactionDTO is the outward view of a transaction
type TransactionDTO struct {
	ID                  uuid.UUID               `json:"id"`
	Number              string                  `json:"number"`
	CustomerID          uuid.UUID               `json:"customer_id"`
	SalesRepID          *uuid.UUID              `json:"sales_rep_id,omitempty"`
	Status              sales.TransactionStatus `json:"status"`
	Lines               []LineDTO               `json:"lines"`
	Subtotal            decimal.Decimal         `json:"subtotal"`
	DeliveryFee         decimal.Decimal         `json:"delivery_fee"`
	Total               decimal.Decimal         `json:"total"`
	DeliveryAddress     string                  `json:"delivery_address,omitempty"`
	DeliveryMiles       decimal.Decimal         `json:"delivery_miles"`
	Notes               string                  `json:"notes,omitempty"`
	EnvelopeID          string                  `json:"envelope_id,omitempty"`
	EstimatePDFKey      string                  `json:"estimate_pdf_key,omitempty"`
	CancelReason        string                  `json:"cancel_reason,omitempty"`
	EstimateSentAt      *time.Time              `json:"estimate_sent_at,omitempty"`
	EstimateApprovedAt  *time.Time              `json:"estimate_approved_at,omitempty"`
	ContractSentAt      *time.Time              `json:"contract_sent_at,omitempty"`
	ContractSignedAt    *time.Time              `json:"contract_signed_at,omitempty"`
	ProductionStartedAt *time.Time              `json:"production_started_at,omitempty"`
	ReadyAt             *time.Time              `json:"ready_at,omitempty"`
	CompletedAt         *time.Time              `json:"completed_at,omitempty"`
	CancelledAt         *time.Time              `json:"cancelled_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	Version             int                     `json:"version"`
}

func toTransactionDTO(t *sales.Transaction, a Actor) *TransactionDTO {
	lines := make([]LineDTO, len(t.Lines))
	for i, l := range t.Lines {
		lines[i] = LineDTO{
			ID:        l.ID,
			Kind:      l.Kind,
			RefID:     l.RefID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		}
		if !a.isCustomer() {
			base, pct := l.BaseUnitPrice, l.MarkupPercent
			lines[i].BaseUnitPrice = &base
			lines[i].MarkupPercent = &pct
		}
	}
	return &TransactionDTO{
		ID:                  t.ID,
		Number:              t.Number,
		CustomerID:          t.CustomerID,
		SalesRepID:          t.SalesRepID,
		Status:              t.Status,
		Lines:               lines,
		Subtotal:            t.Subtotal,
		DeliveryFee:         t.DeliveryFee,
		Total:               t.Total,
		DeliveryAddress:     t.DeliveryAddress,
		DeliveryMiles:       t.DeliveryMiles,
		Notes:               t.Notes,
		EnvelopeID:          t.EnvelopeID,
		EstimatePDFKey:      t.EstimatePDFKey,
		CancelReason:        t.CancelReason,
		EstimateSentAt:      t.EstimateSentAt,
		EstimateApprovedAt:  t.EstimateApprovedAt,
		ContractSentAt:      t.ContractSentAt,
		ContractSignedAt:    t.ContractSignedAt,
		ProductionStartedAt: t.ProductionStartedAt,
		ReadyAt:             t.ReadyAt,
		CompletedAt:         t.CompletedAt,
		CancelledAt:         t.CancelledAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		Version:             t.Version,
	}
}
