package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/chat"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/shared"
)

// Actor is the authenticated caller
type Actor struct {
	UserID uuid.UUID
	Role   identity.Role
}

func (a Actor) isCustomer() bool { return a.Role == identity.RoleCustomer }

// isAgent reports whether the actor answers chats
func (a Actor) isAgent() bool { return a.Role == identity.RoleAdmin || a.Role == identity.RoleSales }

// StartInput opens a conversation. CustomerID is required when staff start it.
type StartInput struct {
	CustomerID *uuid.UUID `json:"customer_id"`
	Subject    string     `json:"subject" binding:"max=200"`
}

// AssignInput hands a session to a staff member; empty means the caller
type AssignInput struct {
	StaffID *uuid.UUID `json:"staff_id"`
}

// PostInput is one message
type PostInput struct {
	Body string `json:"body" binding:"required,max=4000"`
}

// ListInput filters the session listing
type ListInput struct {
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
	Status     string     `form:"status" binding:"omitempty,oneof=open closed"`
	CustomerID *uuid.UUID `form:"customer_id"`
	StaffID    *uuid.UUID `form:"staff_id"`
}

func (in ListInput) filter(a Actor) chat.Filter {
	f := chat.Filter{Filter: shared.DefaultFilter()}
	f.OrderBy = "last_message_at"
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = min(in.PageSize, 100)
	}
	if in.Status != "" {
		st := chat.SessionStatus(in.Status)
		f.Status = &st
	}
	f.CustomerID = in.CustomerID
	f.StaffID = in.StaffID
	if a.isCustomer() {
		id := a.UserID
		f.CustomerID = &id
	}
	return f
}

// PageInput pages messages
type PageInput struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

func (in PageInput) filter() shared.Filter {
	f := shared.DefaultFilter()
	f.PageSize = 50
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = min(in.PageSize, 200)
	}
	return f
}

// SessionDTO is the conversation view
type SessionDTO struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      uuid.UUID  `json:"customer_id"`
	AssignedStaffID *uuid.UUID `json:"assigned_staff_id,omitempty"`
	Subject         string     `json:"subject,omitempty"`
	Status          string     `json:"status"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toSessionDTO(s *chat.Session) *SessionDTO {
	return &SessionDTO{
		ID:              s.ID,
		CustomerID:      s.CustomerID,
		AssignedStaffID: s.AssignedStaffID,
		Subject:         s.Subject,
		Status:          string(s.Status),
		LastMessageAt:   s.LastMessageAt,
		ClosedAt:        s.ClosedAt,
		CreatedAt:       s.CreatedAt,
	}
}

// MessageDTO is one chat line
type MessageDTO struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

func toMessageDTO(m *chat.Message) MessageDTO {
	return MessageDTO{ID: m.ID, SessionID: m.SessionID, SenderID: m.SenderID, Body: m.Body, SentAt: m.SentAt}
}
