package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// CartModel is the persistence model for carts. Items are stored inline as JSON.
type CartModel struct {
	AggregateModel
	CustomerID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ItemsJSON       string    `gorm:"column:items;type:jsonb;default:'[]'"`
	DeliveryAddress string    `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

type cartItemJSON struct {
	ID       uuid.UUID      `json:"id"`
	Kind     sales.ItemKind `json:"kind"`
	RefID    uuid.UUID      `json:"ref_id"`
	Quantity int            `json:"quantity"`
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() *sales.Cart {
	var items []cartItemJSON
	unmarshalJSON(m.ItemsJSON, &items)
	c := &sales.Cart{
		BaseAggregateRoot: m.ToAggregateRoot(),
		CustomerID:        m.CustomerID,
		Items:             make([]sales.CartItem, 0, len(items)),
		DeliveryAddress:   m.DeliveryAddress,
	}
	for _, it := range items {
		c.Items = append(c.Items, sales.CartItem(it))
	}
	return c
}

// FromDomain populates the persistence model from a domain Cart.
func (m *CartModel) FromDomain(c *sales.Cart) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.CustomerID = c.CustomerID
	items := make([]cartItemJSON, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemJSON(it))
	}
	m.ItemsJSON = marshalJSON(items, "[]")
	m.DeliveryAddress = c.DeliveryAddress
}

// TransactionModel is the persistence model for transactions.
type TransactionModel struct {
	AggregateModel
	Number              string                  `gorm:"type:varchar(20);not null;uniqueIndex"`
	CustomerID          uuid.UUID               `gorm:"type:uuid;not null;index"`
	SalesRepID          *uuid.UUID              `gorm:"type:uuid;index"`
	Status              sales.TransactionStatus `gorm:"type:varchar(30);not null;index"`
	Subtotal            decimal.Decimal         `gorm:"type:decimal(14,2);not null"`
	DeliveryFee         decimal.Decimal         `gorm:"type:decimal(12,2);not null;default:0"`
	Total               decimal.Decimal         `gorm:"type:decimal(14,2);not null"`
	DeliveryAddress     string                  `gorm:"type:varchar(500)"`
	DeliveryMiles       decimal.Decimal         `gorm:"type:decimal(8,1);not null;default:0"`
	Notes               string                  `gorm:"type:text"`
	EnvelopeID          string                  `gorm:"type:varchar(100);index"`
	EstimatePDFKey      string                  `gorm:"column:estimate_pdf_key;type:varchar(500)"`
	CancelReason        string                  `gorm:"type:varchar(500)"`
	EstimateSentAt      *time.Time
	EstimateApprovedAt  *time.Time
	ContractSentAt      *time.Time
	ContractSignedAt    *time.Time
	ProductionStartedAt *time.Time
	ReadyAt             *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
	Lines               []TransactionLineModel `gorm:"foreignKey:TransactionID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// TransactionLineModel is the persistence model for transaction lines.
type TransactionLineModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TransactionID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position      int             `gorm:"not null"`
	Kind          sales.ItemKind  `gorm:"type:varchar(10);not null"`
	RefID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name          string          `gorm:"type:varchar(200);not null"`
	Quantity      int             `gorm:"not null"`
	BaseUnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MarkupPercent decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
}

// TableName returns the table name for GORM
func (TransactionLineModel) TableName() string {
	return "transaction_lines"
}

// ToDomain converts the persistence model to a domain Transaction.
func (m *TransactionModel) ToDomain() *sales.Transaction {
	t := &sales.Transaction{
		BaseAggregateRoot:   m.ToAggregateRoot(),
		Number:              m.Number,
		CustomerID:          m.CustomerID,
		SalesRepID:          m.SalesRepID,
		Status:              m.Status,
		Lines:               make([]sales.Line, 0, len(m.Lines)),
		Subtotal:            m.Subtotal,
		DeliveryFee:         m.DeliveryFee,
		Total:               m.Total,
		DeliveryAddress:     m.DeliveryAddress,
		DeliveryMiles:       m.DeliveryMiles,
		Notes:               m.Notes,
		EnvelopeID:          m.EnvelopeID,
		EstimatePDFKey:      m.EstimatePDFKey,
		CancelReason:        m.CancelReason,
		EstimateSentAt:      m.EstimateSentAt,
		EstimateApprovedAt:  m.EstimateApprovedAt,
		ContractSentAt:      m.ContractSentAt,
		ContractSignedAt:    m.ContractSignedAt,
		ProductionStartedAt: m.ProductionStartedAt,
		ReadyAt:             m.ReadyAt,
		CompletedAt:         m.CompletedAt,
		CancelledAt:         m.CancelledAt,
	}
	for _, l := range m.Lines {
		t.Lines = append(t.Lines, sales.Line{
			ID:            l.ID,
			Kind:          l.Kind,
			RefID:         l.RefID,
			Name:          l.Name,
			Quantity:      l.Quantity,
			BaseUnitPrice: l.BaseUnitPrice,
			MarkupPercent: l.MarkupPercent,
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
		})
	}
	return t
}

// FromDomain populates the persistence model from a domain Transaction.
func (m *TransactionModel) FromDomain(t *sales.Transaction) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Number = t.Number
	m.CustomerID = t.CustomerID
	m.SalesRepID = t.SalesRepID
	m.Status = t.Status
	m.Subtotal = t.Subtotal
	m.DeliveryFee = t.DeliveryFee
	m.Total = t.Total
	m.DeliveryAddress = t.DeliveryAddress
	m.DeliveryMiles = t.DeliveryMiles
	m.Notes = t.Notes
	m.EnvelopeID = t.EnvelopeID
	m.EstimatePDFKey = t.EstimatePDFKey
	m.CancelReason = t.CancelReason
	m.EstimateSentAt = t.EstimateSentAt
	m.EstimateApprovedAt = t.EstimateApprovedAt
	m.ContractSentAt = t.ContractSentAt
	m.ContractSignedAt = t.ContractSignedAt
	m.ProductionStartedAt = t.ProductionStartedAt
	m.ReadyAt = t.ReadyAt
	m.CompletedAt = t.CompletedAt
	m.CancelledAt = t.CancelledAt
	m.Lines = make([]TransactionLineModel, 0, len(t.Lines))
	for i, l := range t.Lines {
		m.Lines = append(m.Lines, TransactionLineModel{
			ID:            l.ID,
			TransactionID: t.ID,
			Position:      i,
			Kind:          l.Kind,
			RefID:         l.RefID,
			Name:          l.Name,
			Quantity:      l.Quantity,
			BaseUnitPrice: l.BaseUnitPrice,
			MarkupPercent: l.MarkupPercent,
			UnitPrice:     l.UnitPrice,
			LineTotal:     l.LineTotal,
		})
	}
}

// TransactionSequenceModel tracks the last issued estimate number per year.
type TransactionSequenceModel struct {
	Year    int `gorm:"primaryKey;autoIncrement:false"`
	LastSeq int `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TransactionSequenceModel) TableName() string {
	return "transaction_sequences"
}
