package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/document"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/homestead/backend/internal/infrastructure/printing"
	"go.uber.org/zap"
)

// UserDirectory looks up customers and sales reps
type UserDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// EstimatePrinter renders an estimate to PDF
type EstimatePrinter interface {
	PrintEstimate(ctx context.Context, e printing.Estimate) ([]byte, error)
}

// ContractSender sends a contract envelope for signature
type ContractSender interface {
	SendEnvelope(ctx context.Context, in integration.EnvelopeRequest) (string, error)
}

// CustomFieldTransactionID links a DocuSign envelope back to its transaction
const CustomFieldTransactionID = "transaction_id"

// ErrContractsNotConfigured is returned when no signing provider is wired
var ErrContractsNotConfigured = shared.NewDomainError("INTEGRATION_NOT_CONFIGURED", "Contract signing is not configured")

// TransactionService handles the estimate to completion pipeline
type TransactionService struct {
	repo   sales.TransactionRepository
	pricer *pricer
	users  UserDirectory

	shipping       *ShippingService
	printer        EstimatePrinter
	storage        document.ObjectStorage
	contracts      ContractSender
	contractTmpl   string
	dealership     string
	eventPublisher shared.EventPublisher
	now            func() time.Time
	logger         *zap.Logger
}

// NewTransactionService creates a transaction service
func NewTransactionService(
	repo sales.TransactionRepository,
	catalogRepos CatalogRepositories,
	markups MarkupResolver,
	users UserDirectory,
	logger *zap.Logger,
) *TransactionService {
	return &TransactionService{
		repo:   repo,
		pricer: &pricer{repos: catalogRepos, markups: markups},
		users:  users,
		now:    time.Now,
		logger: logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *TransactionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetShipping enables delivery quotes on new estimates
func (s *TransactionService) SetShipping(shipping *ShippingService) {
	s.shipping = shipping
}

// SetEstimatePrinter enables PDF estimates stored under document.EstimateKey
func (s *TransactionService) SetEstimatePrinter(printer EstimatePrinter, storage document.ObjectStorage, dealership string) {
	s.printer = printer
	s.storage = storage
	s.dealership = dealership
}

// SetContractSender enables SendContract with a default template
func (s *TransactionService) SetContractSender(sender ContractSender, defaultTemplateID string) {
	s.contracts = sender
	s.contractTmpl = defaultTemplateID
}

// Create builds a staff-entered draft estimate
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput, a Actor) (*TransactionDTO, error) {
	if a.isCustomer() {
		return nil, shared.ErrForbidden
	}
	items := make([]sales.CartItem, len(in.Lines))
	for i, l := range in.Lines {
		items[i] = sales.CartItem{Kind: l.Kind, RefID: l.RefID, Quantity: l.Quantity}
	}
	lines, err := s.pricer.lines(ctx, in.CustomerID, items)
	if err != nil {
		return nil, err
	}
	var rep *uuid.UUID
	if a.UserID != uuid.Nil {
		id := a.UserID
		rep = &id
	}
	t, err := s.createDraft(ctx, in.CustomerID, rep, lines, in.DeliveryAddress, in.Notes)
	if err != nil {
		return nil, err
	}
	return toTransactionDTO(t, a), nil
}

// createDraft numbers, quotes and stores a new draft
func (s *TransactionService) createDraft(ctx context.Context, customerID uuid.UUID, rep *uuid.UUID, lines []sales.Line, address, notes string) (*sales.Transaction, error) {
	year := s.now().Year()
	seq, err := s.repo.NextSequence(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate estimate number: %w", err)
	}
	t, err := sales.NewTransaction(sales.FormatNumber(year, seq), customerID, rep, lines, address)
	if err != nil {
		return nil, err
	}
	t.AppendNote(notes)
	s.quoteDelivery(ctx, t)

	if err := s.repo.Save(ctx, t); err != nil {
		return nil, err
	}
	s.publish(ctx, t)
	s.logger.Info("Estimate created",
		zap.String("number", t.Number),
		zap.String("customer_id", customerID.String()),
		zap.String("total", t.Total.StringFixed(2)))
	return t, nil
}

// quoteDelivery attaches a shipping quote. A failed quote leaves the fee at
// zero and is recorded in the notes.
func (s *TransactionService) quoteDelivery(ctx context.Context, t *sales.Transaction) {
	if s.shipping == nil || t.DeliveryAddress == "" {
		return
	}
	home, ok := t.HomeLine()
	if !ok {
		return
	}
	q, err := s.shipping.QuoteForHome(ctx, home.RefID, t.DeliveryAddress)
	if err != nil {
		s.logger.Warn("Shipping quote failed",
			zap.String("number", t.Number),
			zap.Error(err))
		t.AppendNote("Delivery fee could not be quoted automatically: " + quoteFailure(err))
		return
	}
	if err := t.ApplyDeliveryQuote(q.Fee, q.Miles); err != nil {
		s.logger.Warn("Shipping quote rejected", zap.String("number", t.Number), zap.Error(err))
	}
}

func quoteFailure(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	var api *integration.APIError
	if errors.As(err, &api) {
		return api.Provider + " unavailable"
	}
	if errors.Is(err, integration.ErrNotConfigured) {
		return "geocoding is not configured"
	}
	return "quote service unavailable"
}

// Get returns a transaction. Customers only see their own.
func (s *TransactionService) Get(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	t, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return toTransactionDTO(t, a), nil
}

// GetByNumber returns a transaction by its estimate number
func (s *TransactionService) GetByNumber(ctx context.Context, number string, a Actor) (*TransactionDTO, error) {
	t, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if a.isCustomer() && t.CustomerID != a.UserID {
		return nil, shared.ErrNotFound
	}
	return toTransactionDTO(t, a), nil
}

// List pages transactions. Customers are limited to their own.
func (s *TransactionService) List(ctx context.Context, in ListTransactionsInput, a Actor) (shared.Paginated[TransactionDTO], error) {
	f, err := in.filter(a)
	if err != nil {
		return shared.Paginated[TransactionDTO]{}, err
	}
	rows, total, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[TransactionDTO]{}, err
	}
	items := make([]TransactionDTO, len(rows))
	for i, t := range rows {
		items[i] = *toTransactionDTO(t, a)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// UpdateLines reprices a draft with new lines and requotes delivery
func (s *TransactionService) UpdateLines(ctx context.Context, id uuid.UUID, in []LineInput, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error {
		items := make([]sales.CartItem, len(in))
		for i, l := range in {
			items[i] = sales.CartItem{Kind: l.Kind, RefID: l.RefID, Quantity: l.Quantity}
		}
		lines, err := s.pricer.lines(ctx, t.CustomerID, items)
		if err != nil {
			return err
		}
		if err := t.UpdateLines(lines); err != nil {
			return err
		}
		s.quoteDelivery(ctx, t)
		return nil
	})
}

// SendEstimate marks the estimate sent and stores its PDF
func (s *TransactionService) SendEstimate(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error {
		if err := t.SendEstimate(); err != nil {
			return err
		}
		s.attachEstimatePDF(ctx, t)
		return nil
	})
}

// attachEstimatePDF never fails the transition; errors are logged
func (s *TransactionService) attachEstimatePDF(ctx context.Context, t *sales.Transaction) {
	if s.printer == nil || s.storage == nil {
		return
	}
	pdf, err := s.printer.PrintEstimate(ctx, s.estimateFor(ctx, t))
	if err != nil {
		s.logger.Error("Failed to render estimate PDF", zap.String("number", t.Number), zap.Error(err))
		return
	}
	key := document.EstimateKey(t.Number)
	if err := s.storage.Put(ctx, key, pdf, document.ContentTypePDF); err != nil {
		s.logger.Error("Failed to store estimate PDF", zap.String("number", t.Number), zap.Error(err))
		return
	}
	t.SetEstimatePDF(key)
}

func (s *TransactionService) estimateFor(ctx context.Context, t *sales.Transaction) printing.Estimate {
	e := printing.Estimate{
		Dealership:      s.dealership,
		Number:          t.Number,
		IssuedAt:        s.now(),
		DeliveryAddress: t.DeliveryAddress,
		Subtotal:        t.Subtotal,
		DeliveryFee:     t.DeliveryFee,
		DeliveryMiles:   t.DeliveryMiles,
		Total:           t.Total,
		Notes:           t.Notes,
	}
	for _, l := range t.Lines {
		e.Lines = append(e.Lines, printing.EstimateLine{
			Name:      l.Name,
			Kind:      string(l.Kind),
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.LineTotal,
		})
	}
	if s.users == nil {
		return e
	}
	if c, err := s.users.FindByID(ctx, t.CustomerID); err == nil {
		e.CustomerName, e.CustomerEmail, e.CustomerPhone = c.FullName, c.Email, c.Phone
	}
	if t.SalesRepID != nil {
		if r, err := s.users.FindByID(ctx, *t.SalesRepID); err == nil {
			e.SalesRep = r.FullName
		}
	}
	return e
}

// ApproveEstimate is allowed for staff and the owning customer
func (s *TransactionService) ApproveEstimate(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.apply(ctx, id, a, true, func(t *sales.Transaction) error { return t.ApproveEstimate() })
}

// Revise returns a sent estimate to draft
func (s *TransactionService) Revise(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error { return t.Revise() })
}

// SendContract creates a DocuSign envelope for the customer and moves to contract_sent
func (s *TransactionService) SendContract(ctx context.Context, id uuid.UUID, in SendContractInput, a Actor) (*TransactionDTO, error) {
	if s.contracts == nil {
		return nil, ErrContractsNotConfigured
	}
	templateID := strings.TrimSpace(in.TemplateID)
	if templateID == "" {
		templateID = s.contractTmpl
	}
	if templateID == "" {
		return nil, shared.NewDomainError("TEMPLATE_REQUIRED", "No contract template configured")
	}
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error {
		if !t.Status.CanTransitionTo(sales.StatusContractSent) {
			return shared.NewDomainError("INVALID_STATE", "Estimate must be approved before sending a contract")
		}
		customer, err := s.users.FindByID(ctx, t.CustomerID)
		if err != nil {
			return err
		}
		envelopeID, err := s.contracts.SendEnvelope(ctx, integration.EnvelopeRequest{
			TemplateID:   templateID,
			EmailSubject: "Purchase agreement " + t.Number,
			Signers:      []integration.Signer{{Name: customer.FullName, Email: customer.Email, RoleName: "Buyer"}},
			CustomFields: map[string]string{
				CustomFieldTransactionID: t.ID.String(),
				"transaction_number":     t.Number,
				"total":                  shared.FormatUSD(t.Total),
			},
		})
		if err != nil {
			s.logger.Error("Failed to send contract envelope", zap.String("number", t.Number), zap.Error(err))
			return fmt.Errorf("%w: %v", shared.ErrIntegration, err)
		}
		return t.SendContract(envelopeID)
	})
}

// MarkContractSigned is the staff override of the DocuSign webhook
func (s *TransactionService) MarkContractSigned(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error { return t.MarkContractSigned() })
}

// HandleConnectEvent marks the envelope's transaction signed once DocuSign
// reports it completed. Repeated notifications are ignored.
func (s *TransactionService) HandleConnectEvent(ctx context.Context, ev integration.ConnectEvent) error {
	if !strings.EqualFold(ev.Status, "completed") {
		s.logger.Debug("Ignoring envelope status", zap.String("envelope_id", ev.EnvelopeID), zap.String("status", ev.Status))
		return nil
	}
	t, err := s.repo.FindByEnvelopeID(ctx, ev.EnvelopeID)
	if errors.Is(err, shared.ErrNotFound) {
		raw, ok := ev.CustomFields[CustomFieldTransactionID]
		if !ok {
			return err
		}
		id, perr := uuid.Parse(raw)
		if perr != nil {
			return shared.ErrInvalidInput
		}
		t, err = s.repo.FindByID(ctx, id)
	}
	if err != nil {
		return err
	}
	if t.Status.Rank() >= sales.StatusContractSigned.Rank() || t.Status == sales.StatusCancelled {
		return nil
	}
	if err := t.MarkContractSigned(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return err
	}
	s.publish(ctx, t)
	s.logger.Info("Contract signed", zap.String("number", t.Number), zap.String("envelope_id", ev.EnvelopeID))
	return nil
}

// StartProduction moves a signed contract into production
func (s *TransactionService) StartProduction(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error { return t.StartProduction() })
}

// MarkReadyForDelivery flags the home as ready to ship
func (s *TransactionService) MarkReadyForDelivery(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error { return t.MarkReadyForDelivery() })
}

// Complete closes the sale
func (s *TransactionService) Complete(ctx context.Context, id uuid.UUID, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error { return t.Complete() })
}

// CompleteForDelivery completes the transaction behind a finished delivery.
// A transaction already completed is left alone.
func (s *TransactionService) CompleteForDelivery(ctx context.Context, transactionID uuid.UUID) error {
	_, err := s.mutate(ctx, transactionID, SystemActor(), func(t *sales.Transaction) error {
		if t.Status == sales.StatusCompleted {
			return errAlreadyDone
		}
		return t.Complete()
	})
	if errors.Is(err, errAlreadyDone) {
		return nil
	}
	return err
}

var errAlreadyDone = errors.New("already done")

// Cancel cancels the sale with a reason
func (s *TransactionService) Cancel(ctx context.Context, id uuid.UUID, in CancelInput, a Actor) (*TransactionDTO, error) {
	return s.mutate(ctx, id, a, func(t *sales.Transaction) error { return t.Cancel(in.Reason) })
}

// Load returns the aggregate for other application services
func (s *TransactionService) Load(ctx context.Context, id uuid.UUID) (*sales.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *TransactionService) load(ctx context.Context, id uuid.UUID, a Actor) (*sales.Transaction, error) {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.isCustomer() && t.CustomerID != a.UserID {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

// mutate is a staff-only apply
func (s *TransactionService) mutate(ctx context.Context, id uuid.UUID, a Actor, fn func(*sales.Transaction) error) (*TransactionDTO, error) {
	return s.apply(ctx, id, a, false, fn)
}

// apply loads, runs fn and saves under optimistic locking
func (s *TransactionService) apply(ctx context.Context, id uuid.UUID, a Actor, customerAllowed bool, fn func(*sales.Transaction) error) (*TransactionDTO, error) {
	if a.isCustomer() && !customerAllowed {
		return nil, shared.ErrForbidden
	}
	t, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if err := fn(t); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, t); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Warn("Transaction modified concurrently", zap.String("number", t.Number))
		}
		return nil, err
	}
	s.publish(ctx, t)
	if from != t.Status {
		s.logger.Info("Transaction status changed",
			zap.String("number", t.Number),
			zap.String("from", string(from)),
			zap.String("to", string(t.Status)))
	}
	return toTransactionDTO(t, a), nil
}

func (s *TransactionService) publish(ctx context.Context, t *sales.Transaction) {
	events := t.GetDomainEvents()
	t.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish transaction events", zap.String("number", t.Number), zap.Error(err))
	}
}
