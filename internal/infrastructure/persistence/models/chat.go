package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/chat"
)

// ChatSessionModel is the persistence model for chat sessions.
type ChatSessionModel struct {
	AggregateModel
	CustomerID      uuid.UUID          `gorm:"type:uuid;not null;index"`
	AssignedStaffID *uuid.UUID         `gorm:"type:uuid;index"`
	Subject         string             `gorm:"type:varchar(200)"`
	Status          chat.SessionStatus `gorm:"type:varchar(10);not null;index"`
	LastMessageAt   *time.Time
	ClosedAt        *time.Time
}

// TableName returns the table name for GORM
func (ChatSessionModel) TableName() string {
	return "chat_sessions"
}

// ToDomain converts the persistence model to a domain chat Session.
func (m *ChatSessionModel) ToDomain() *chat.Session {
	return &chat.Session{
		BaseAggregateRoot: m.ToAggregateRoot(),
		CustomerID:        m.CustomerID,
		AssignedStaffID:   m.AssignedStaffID,
		Subject:           m.Subject,
		Status:            m.Status,
		LastMessageAt:     m.LastMessageAt,
		ClosedAt:          m.ClosedAt,
	}
}

// FromDomain populates the persistence model from a domain chat Session.
func (m *ChatSessionModel) FromDomain(s *chat.Session) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.CustomerID = s.CustomerID
	m.AssignedStaffID = s.AssignedStaffID
	m.Subject = s.Subject
	m.Status = s.Status
	m.LastMessageAt = s.LastMessageAt
	m.ClosedAt = s.ClosedAt
}

// ChatMessageModel is one persisted chat line.
type ChatMessageModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_session_sent"`
	SenderID  uuid.UUID `gorm:"type:uuid;not null"`
	Body      string    `gorm:"type:text;not null"`
	SentAt    time.Time `gorm:"not null;index:idx_chat_messages_session_sent"`
}

// TableName returns the table name for GORM
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts the persistence model to a domain Message.
func (m *ChatMessageModel) ToDomain() *chat.Message {
	return &chat.Message{
		ID:        m.ID,
		SessionID: m.SessionID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		SentAt:    m.SentAt,
	}
}

// ChatMessageModelFromDomain creates a persistence model from a domain Message.
func ChatMessageModelFromDomain(msg *chat.Message) *ChatMessageModel {
	return &ChatMessageModel{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		SenderID:  msg.SenderID,
		Body:      msg.Body,
		SentAt:    msg.SentAt,
	}
}
