package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// CartRepository persists carts, keyed by customer
type CartRepository interface {
	FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}

// TransactionFilter narrows transaction listings
type TransactionFilter struct {
	shared.Filter
	Status     *TransactionStatus
	CustomerID *uuid.UUID
	SalesRepID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// TransactionRepository persists transactions
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindByNumber(ctx context.Context, number string) (*Transaction, error)
	FindByEnvelopeID(ctx context.Context, envelopeID string) (*Transaction, error)
	FindAll(ctx context.Context, filter TransactionFilter) ([]*Transaction, int64, error)
	// Save inserts new transactions and updates existing ones under optimistic locking;
	// a stale Version returns shared.ErrConcurrencyConflict.
	Save(ctx context.Context, t *Transaction) error
	// NextSequence returns the next estimate sequence number for year
	NextSequence(ctx context.Context, year int) (int, error)
	// ReferencesCatalogItem reports whether any line points at refID
	ReferencesCatalogItem(ctx context.Context, refID uuid.UUID) (bool, error)
}
