package sales

import (
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeTransaction is the aggregate type for transactions
const AggregateTypeTransaction = "Transaction"

// EventTypeTransactionCreated is published when a draft is created
const EventTypeTransactionCreated = "transaction.created"

// EventTypeFor returns the event type published on entering status s
func EventTypeFor(s TransactionStatus) string {
	return "transaction." + string(s)
}

// TransactionCreatedEvent is published when a transaction is created
type TransactionCreatedEvent struct {
	shared.BaseDomainEvent
	Number     string          `json:"number"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Total      decimal.Decimal `json:"total"`
}

// NewTransactionCreatedEvent creates a new TransactionCreatedEvent
func NewTransactionCreatedEvent(t *Transaction) *TransactionCreatedEvent {
	return &TransactionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransactionCreated, AggregateTypeTransaction, t.ID),
		Number:          t.Number,
		CustomerID:      t.CustomerID,
		Total:           t.Total,
	}
}

// TransactionStatusChangedEvent is published on every status transition.
// Its event type is transaction.<new status>.
type TransactionStatusChangedEvent struct {
	shared.BaseDomainEvent
	Number            string            `json:"number"`
	CustomerID        uuid.UUID         `json:"customer_id"`
	SalesRepID        *uuid.UUID        `json:"sales_rep_id,omitempty"`
	FromStatus        TransactionStatus `json:"from_status"`
	ToStatus          TransactionStatus `json:"to_status"`
	Total             decimal.Decimal   `json:"total"`
	Reason            string            `json:"reason,omitempty"`
	NotificationEvent string            `json:"notification_event,omitempty"`
}

// NewTransactionStatusChangedEvent creates a new TransactionStatusChangedEvent
func NewTransactionStatusChangedEvent(t *Transaction, from TransactionStatus, reason string) *TransactionStatusChangedEvent {
	return &TransactionStatusChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeFor(t.Status), AggregateTypeTransaction, t.ID),
		Number:            t.Number,
		CustomerID:        t.CustomerID,
		SalesRepID:        t.SalesRepID,
		FromStatus:        from,
		ToStatus:          t.Status,
		Total:             t.Total,
		Reason:            reason,
		NotificationEvent: t.Status.NotificationEvent(),
	}
}
