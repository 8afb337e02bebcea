package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

const maxBodyLength = 4000

// SessionStatus is open or closed
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// Session is a support conversation between a customer and staff
type Session struct {
	shared.BaseAggregateRoot
	CustomerID      uuid.UUID
	AssignedStaffID *uuid.UUID
	Subject         string
	Status          SessionStatus
	LastMessageAt   *time.Time
	ClosedAt        *time.Time
}

// NewSession opens a conversation for customerID
func NewSession(customerID uuid.UUID, subject string) (*Session, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Chat session requires a customer")
	}
	subject = strings.TrimSpace(subject)
	if len(subject) > 200 {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject cannot exceed 200 characters")
	}
	return &Session{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Subject:           subject,
		Status:            SessionOpen,
	}, nil
}

// Assign hands the session to a staff member
func (s *Session) Assign(staffID uuid.UUID) error {
	if s.Status != SessionOpen {
		return shared.NewDomainError("INVALID_STATE", "Closed sessions cannot be assigned")
	}
	if staffID == uuid.Nil {
		return shared.NewDomainError("INVALID_STAFF", "Staff id cannot be empty")
	}
	s.AssignedStaffID = &staffID
	s.Touch()
	s.IncrementVersion()
	return nil
}

// IsParticipant reports whether userID is the customer or the assigned staff member
func (s *Session) IsParticipant(userID uuid.UUID) bool {
	return s.CustomerID == userID || (s.AssignedStaffID != nil && *s.AssignedStaffID == userID)
}

// Post creates a message in the session
func (s *Session) Post(senderID uuid.UUID, body string, at time.Time) (*Message, error) {
	if s.Status != SessionOpen {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot post to a closed session")
	}
	body = strings.TrimSpace(body)
	n := utf8.RuneCountInString(body)
	if n == 0 || n > maxBodyLength {
		return nil, shared.NewDomainError("INVALID_BODY", "Message must be between 1 and 4000 characters")
	}
	s.LastMessageAt = &at
	s.Touch()
	return &Message{
		ID:        uuid.New(),
		SessionID: s.ID,
		SenderID:  senderID,
		Body:      body,
		SentAt:    at,
	}, nil
}

// Close ends the conversation
func (s *Session) Close(at time.Time) error {
	if s.Status == SessionClosed {
		return shared.NewDomainError("INVALID_STATE", "Session is already closed")
	}
	s.Status = SessionClosed
	s.ClosedAt = &at
	s.Touch()
	s.IncrementVersion()
	return nil
}

// Message is one chat line
type Message struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	SenderID  uuid.UUID
	Body      string
	SentAt    time.Time
}

// Filter narrows session listings
type Filter struct {
	shared.Filter
	CustomerID *uuid.UUID
	StaffID    *uuid.UUID
	Status     *SessionStatus
}

// Repository persists chat sessions and their messages
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Session, error)
	FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*Session, error)
	FindAll(ctx context.Context, filter Filter) ([]*Session, int64, error)
	Save(ctx context.Context, s *Session) error
	AddMessage(ctx context.Context, s *Session, m *Message) error
	// ListMessages returns messages oldest first
	ListMessages(ctx context.Context, sessionID uuid.UUID, filter shared.Filter) ([]*Message, int64, error)
}
