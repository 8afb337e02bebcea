package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TransactionCompleter closes the sale behind a finished delivery
type TransactionCompleter interface {
	CompleteForDelivery(ctx context.Context, transactionID uuid.UUID) error
}

// DeliveryCompletedHandler completes the transaction when its delivery completes
type DeliveryCompletedHandler struct {
	transactions TransactionCompleter
	logger       *zap.Logger
}

// NewDeliveryCompletedHandler creates a new handler for delivery completed events
func NewDeliveryCompletedHandler(transactions TransactionCompleter, logger *zap.Logger) *DeliveryCompletedHandler {
	return &DeliveryCompletedHandler{transactions: transactions, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *DeliveryCompletedHandler) EventTypes() []string {
	return []string{delivery.EventTypeFor(delivery.StatusCompleted)}
}

// Handle completes the transaction referenced by the event
func (h *DeliveryCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*delivery.DeliveryStatusChangedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			delivery.EventTypeFor(delivery.StatusCompleted), event.EventType())
	}
	if err := h.transactions.CompleteForDelivery(ctx, e.TransactionID); err != nil {
		h.logger.Error("failed to complete transaction after delivery",
			zap.String("delivery_id", e.AggregateID().String()),
			zap.String("transaction_id", e.TransactionID.String()),
			zap.Error(err))
		return fmt.Errorf("complete transaction %s: %w", e.TransactionID, err)
	}
	h.logger.Info("transaction completed by delivery",
		zap.String("delivery_id", e.AggregateID().String()),
		zap.String("transaction_id", e.TransactionID.String()))
	return nil
}
