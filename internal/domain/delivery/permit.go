package delivery

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// PermitStatus is the approval state of a transport permit
type PermitStatus string

const (
	PermitPending  PermitStatus = "pending"
	PermitApproved PermitStatus = "approved"
	PermitRejected PermitStatus = "rejected"
	PermitExpired  PermitStatus = "expired"
)

// Permit is an oversize-load or site permit required before a delivery departs
type Permit struct {
	shared.BaseAggregateRoot
	DeliveryID   uuid.UUID
	Jurisdiction string
	PermitNumber string
	Status       PermitStatus
	IssuedAt     *time.Time
	ExpiresAt    *time.Time
	DocumentKey  string
	Notes        string
}

// NewPermit creates a pending permit for deliveryID
func NewPermit(deliveryID uuid.UUID, jurisdiction, notes string) (*Permit, error) {
	jurisdiction = strings.TrimSpace(jurisdiction)
	if deliveryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DELIVERY", "Permit requires a delivery")
	}
	if jurisdiction == "" {
		return nil, shared.NewDomainError("INVALID_JURISDICTION", "Jurisdiction cannot be empty")
	}
	return &Permit{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		DeliveryID:        deliveryID,
		Jurisdiction:      jurisdiction,
		Status:            PermitPending,
		Notes:             notes,
	}, nil
}

// Approve records the issued permit
func (p *Permit) Approve(number string, issuedAt, expiresAt time.Time) error {
	number = strings.TrimSpace(number)
	if p.Status != PermitPending && p.Status != PermitExpired {
		return shared.NewDomainError("INVALID_STATE", "Only pending or expired permits can be approved")
	}
	if number == "" {
		return shared.NewDomainError("INVALID_PERMIT_NUMBER", "Permit number cannot be empty")
	}
	if !expiresAt.After(issuedAt) {
		return shared.NewDomainError("INVALID_PERMIT_DATES", "Permit must expire after it is issued")
	}
	p.PermitNumber = number
	p.IssuedAt = &issuedAt
	p.ExpiresAt = &expiresAt
	p.Status = PermitApproved
	p.Touch()
	p.IncrementVersion()
	return nil
}

// Reject records a denied permit application
func (p *Permit) Reject(reason string) error {
	if p.Status != PermitPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending permits can be rejected")
	}
	p.Status = PermitRejected
	if reason = strings.TrimSpace(reason); reason != "" {
		p.Notes = reason
	}
	p.Touch()
	p.IncrementVersion()
	return nil
}

// ExpireIfDue marks an approved permit expired once now passes ExpiresAt.
// It returns true when the status changed.
func (p *Permit) ExpireIfDue(now time.Time) bool {
	if p.Status != PermitApproved || p.ExpiresAt == nil || now.Before(*p.ExpiresAt) {
		return false
	}
	p.Status = PermitExpired
	p.Touch()
	p.IncrementVersion()
	return true
}

// IsValidAt reports whether the permit allows travel at t
func (p *Permit) IsValidAt(t time.Time) bool {
	if p.Status != PermitApproved {
		return false
	}
	return p.ExpiresAt == nil || t.Before(*p.ExpiresAt)
}

// AttachDocument records the object-storage key of the scanned permit
func (p *Permit) AttachDocument(key string) {
	p.DocumentKey = key
	p.Touch()
}
