package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// Filter narrows delivery listings
type Filter struct {
	shared.Filter
	Status        *Status
	DriverID      *uuid.UUID
	CustomerID    *uuid.UUID
	TransactionID *uuid.UUID
}

// Repository persists deliveries
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Delivery, error)
	FindAll(ctx context.Context, filter Filter) ([]*Delivery, int64, error)
	// FindActiveByTransaction returns the non-cancelled delivery for a transaction
	FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*Delivery, error)
	// FindInTransit returns deliveries in in_transit or arriving
	FindInTransit(ctx context.Context) ([]*Delivery, error)
	// Save inserts or updates under optimistic locking
	Save(ctx context.Context, d *Delivery) error
}

// PermitRepository persists permits
type PermitRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Permit, error)
	FindByDeliveryID(ctx context.Context, deliveryID uuid.UUID) ([]*Permit, error)
	// FindExpiring returns approved permits whose ExpiresAt is at or before now
	FindExpiring(ctx context.Context, now time.Time) ([]*Permit, error)
	Save(ctx context.Context, p *Permit) error
}
