package sales

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionStatus is the stage of a sale
type TransactionStatus string

const (
	StatusDraft            TransactionStatus = "draft"
	StatusEstimateSent     TransactionStatus = "estimate_sent"
	StatusEstimateApproved TransactionStatus = "estimate_approved"
	StatusContractSent     TransactionStatus = "contract_sent"
	StatusContractSigned   TransactionStatus = "contract_signed"
	StatusInProduction     TransactionStatus = "in_production"
	StatusReadyForDelivery TransactionStatus = "ready_for_delivery"
	StatusCompleted        TransactionStatus = "completed"
	StatusCancelled        TransactionStatus = "cancelled"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	StatusDraft:            {StatusEstimateSent, StatusCancelled},
	StatusEstimateSent:     {StatusEstimateApproved, StatusDraft, StatusCancelled},
	StatusEstimateApproved: {StatusContractSent, StatusCancelled},
	StatusContractSent:     {StatusContractSigned, StatusCancelled},
	StatusContractSigned:   {StatusInProduction, StatusCancelled},
	StatusInProduction:     {StatusReadyForDelivery, StatusCancelled},
	StatusReadyForDelivery: {StatusCompleted},
}

// AllTransactionStatuses in pipeline order
var AllTransactionStatuses = []TransactionStatus{
	StatusDraft, StatusEstimateSent, StatusEstimateApproved, StatusContractSent, StatusContractSigned,
	StatusInProduction, StatusReadyForDelivery, StatusCompleted, StatusCancelled,
}

// IsValid reports whether s is a known status
func (s TransactionStatus) IsValid() bool {
	_, ok := transactionTransitions[s]
	return ok || s == StatusCompleted || s == StatusCancelled
}

// CanTransitionTo reports whether the status machine allows s -> to
func (s TransactionStatus) CanTransitionTo(to TransactionStatus) bool {
	for _, next := range transactionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Rank orders the non-cancelled pipeline; cancelled ranks -1
func (s TransactionStatus) Rank() int {
	for i, st := range AllTransactionStatuses[:8] {
		if st == s {
			return i
		}
	}
	return -1
}

// NotificationEvent returns the notification event name for entering s.
// Returning to draft has none.
func (s TransactionStatus) NotificationEvent() string {
	switch s {
	case StatusDraft:
		return ""
	case StatusCompleted:
		return "transaction_completed"
	case StatusCancelled:
		return "transaction_cancelled"
	}
	return string(s)
}

// Line is a priced transaction line. Prices are snapshots taken when the line was built.
type Line struct {
	ID            uuid.UUID
	Kind          ItemKind
	RefID         uuid.UUID
	Name          string
	Quantity      int
	BaseUnitPrice decimal.Decimal
	MarkupPercent decimal.Decimal
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

// NewLine prices a line: unit = base marked up, total = unit * qty
func NewLine(kind ItemKind, refID uuid.UUID, name string, qty int, base, markupPct decimal.Decimal) (Line, error) {
	if !kind.IsValid() {
		return Line{}, shared.NewDomainError("INVALID_KIND", "Unknown line kind: "+string(kind))
	}
	if qty < 1 {
		return Line{}, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if kind == KindHome && qty != 1 {
		return Line{}, shared.NewDomainError("INVALID_QUANTITY", "A home quantity is always 1")
	}
	if base.IsNegative() {
		return Line{}, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	if err := pricing.ValidatePercentage(markupPct); err != nil {
		return Line{}, err
	}
	unit := pricing.Apply(base, markupPct)
	return Line{
		ID:            uuid.New(),
		Kind:          kind,
		RefID:         refID,
		Name:          strings.TrimSpace(name),
		Quantity:      qty,
		BaseUnitPrice: base.Round(2),
		MarkupPercent: markupPct,
		UnitPrice:     unit,
		LineTotal:     unit.Mul(decimal.NewFromInt(int64(qty))).Round(2),
	}, nil
}

// Transaction is a sale from estimate to completion
type Transaction struct {
	shared.BaseAggregateRoot
	Number          string
	CustomerID      uuid.UUID
	SalesRepID      *uuid.UUID
	Status          TransactionStatus
	Lines           []Line
	Subtotal        decimal.Decimal
	DeliveryFee     decimal.Decimal
	Total           decimal.Decimal
	DeliveryAddress string
	DeliveryMiles   decimal.Decimal
	Notes           string
	EnvelopeID      string
	EstimatePDFKey  string
	CancelReason    string

	EstimateSentAt      *time.Time
	EstimateApprovedAt  *time.Time
	ContractSentAt      *time.Time
	ContractSignedAt    *time.Time
	ProductionStartedAt *time.Time
	ReadyAt             *time.Time
	CompletedAt         *time.Time
	CancelledAt         *time.Time
}

// FormatNumber renders the estimate number EST-YYYY-NNNNN
func FormatNumber(year, seq int) string {
	return fmt.Sprintf("EST-%04d-%05d", year, seq)
}

// NewTransaction creates a draft transaction
func NewTransaction(number string, customerID uuid.UUID, salesRepID *uuid.UUID, lines []Line, deliveryAddress string) (*Transaction, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewDomainError("INVALID_NUMBER", "Transaction number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Transaction requires a customer")
	}
	t := &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		CustomerID:        customerID,
		SalesRepID:        salesRepID,
		Status:            StatusDraft,
		DeliveryAddress:   strings.TrimSpace(deliveryAddress),
		DeliveryFee:       decimal.Zero,
		DeliveryMiles:     decimal.Zero,
	}
	if err := t.setLines(lines); err != nil {
		return nil, err
	}
	t.AddDomainEvent(NewTransactionCreatedEvent(t))
	return t, nil
}

// HomeLine returns the home line, if any
func (t *Transaction) HomeLine() (Line, bool) {
	for _, l := range t.Lines {
		if l.Kind == KindHome {
			return l, true
		}
	}
	return Line{}, false
}

// UpdateLines replaces the lines of a draft and recomputes totals. The delivery
// quote belonged to the old lines, so fee and miles drop to zero until requoted.
func (t *Transaction) UpdateLines(lines []Line) error {
	if t.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be edited while the transaction is a draft")
	}
	if err := t.setLines(lines); err != nil {
		return err
	}
	t.DeliveryFee = decimal.Zero
	t.DeliveryMiles = decimal.Zero
	t.recalculate()
	t.Touch()
	return nil
}

func (t *Transaction) setLines(lines []Line) error {
	if len(lines) == 0 {
		return shared.NewDomainError("NO_LINES", "Transaction requires at least one line")
	}
	homes := 0
	for _, l := range lines {
		if l.Kind == KindHome {
			homes++
		}
	}
	if homes > 1 {
		return shared.NewDomainError("MULTIPLE_HOMES", "A transaction can contain at most one home")
	}
	t.Lines = append([]Line(nil), lines...)
	t.recalculate()
	return nil
}

// ApplyDeliveryQuote records the shipping fee and distance; draft only
func (t *Transaction) ApplyDeliveryQuote(fee, miles decimal.Decimal) error {
	if t.Status != StatusDraft {
		return shared.NewDomainError("INVALID_STATE", "Delivery fee can only be changed on a draft")
	}
	if fee.IsNegative() || miles.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Delivery fee and miles cannot be negative")
	}
	t.DeliveryFee = fee.Round(2)
	t.DeliveryMiles = miles.Round(1)
	t.recalculate()
	t.Touch()
	return nil
}

// AppendNote adds a line to the estimate notes
func (t *Transaction) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if t.Notes != "" {
		t.Notes += "\n"
	}
	t.Notes += note
	t.Touch()
}

func (t *Transaction) recalculate() {
	sub := decimal.Zero
	for _, l := range t.Lines {
		sub = sub.Add(l.LineTotal)
	}
	t.Subtotal = sub.Round(2)
	t.Total = t.Subtotal.Add(t.DeliveryFee).Round(2)
}

// SendEstimate moves draft -> estimate_sent
func (t *Transaction) SendEstimate() error {
	return t.transition(StatusEstimateSent, "")
}

// SetEstimatePDF records where the rendered estimate is stored
func (t *Transaction) SetEstimatePDF(key string) {
	t.EstimatePDFKey = key
	t.Touch()
}

// ApproveEstimate moves estimate_sent -> estimate_approved
func (t *Transaction) ApproveEstimate() error {
	return t.transition(StatusEstimateApproved, "")
}

// Revise returns a sent estimate to draft for editing
func (t *Transaction) Revise() error {
	if err := t.transition(StatusDraft, ""); err != nil {
		return err
	}
	t.EstimateSentAt = nil
	return nil
}

// SendContract records the signing envelope and moves to contract_sent
func (t *Transaction) SendContract(envelopeID string) error {
	if strings.TrimSpace(envelopeID) == "" {
		return shared.NewDomainError("INVALID_ENVELOPE", "Envelope id cannot be empty")
	}
	if err := t.transition(StatusContractSent, ""); err != nil {
		return err
	}
	t.EnvelopeID = envelopeID
	return nil
}

// MarkContractSigned moves contract_sent -> contract_signed
func (t *Transaction) MarkContractSigned() error {
	return t.transition(StatusContractSigned, "")
}

// StartProduction moves contract_signed -> in_production
func (t *Transaction) StartProduction() error {
	return t.transition(StatusInProduction, "")
}

// MarkReadyForDelivery moves in_production -> ready_for_delivery
func (t *Transaction) MarkReadyForDelivery() error {
	return t.transition(StatusReadyForDelivery, "")
}

// Complete moves ready_for_delivery -> completed
func (t *Transaction) Complete() error {
	return t.transition(StatusCompleted, "")
}

// Cancel moves any non-terminal, pre-delivery transaction to cancelled
func (t *Transaction) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancellation reason is required")
	}
	if err := t.transition(StatusCancelled, reason); err != nil {
		return err
	}
	t.CancelReason = reason
	return nil
}

// AcceptsDelivery reports whether a delivery can be created for the transaction
func (t *Transaction) AcceptsDelivery() bool {
	return t.Status == StatusContractSigned || t.Status == StatusInProduction || t.Status == StatusReadyForDelivery
}

func (t *Transaction) transition(to TransactionStatus, reason string) error {
	if !t.Status.CanTransitionTo(to) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move transaction from %s to %s", t.Status, to))
	}
	from := t.Status
	now := time.Now()
	t.Status = to
	switch to {
	case StatusEstimateSent:
		t.EstimateSentAt = &now
	case StatusEstimateApproved:
		t.EstimateApprovedAt = &now
	case StatusContractSent:
		t.ContractSentAt = &now
	case StatusContractSigned:
		t.ContractSignedAt = &now
	case StatusInProduction:
		t.ProductionStartedAt = &now
	case StatusReadyForDelivery:
		t.ReadyAt = &now
	case StatusCompleted:
		t.CompletedAt = &now
	case StatusCancelled:
		t.CancelledAt = &now
	}
	t.Touch()
	t.AddDomainEvent(NewTransactionStatusChangedEvent(t, from, reason))
	return nil
}
