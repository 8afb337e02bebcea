package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// Channel is a delivery medium
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ChannelStatus is the outcome of one channel
type ChannelStatus string

const (
	ChannelSent    ChannelStatus = "sent"
	ChannelFailed  ChannelStatus = "failed"
	ChannelSkipped ChannelStatus = "skipped"
)

// ChannelResult records what happened on one channel
type ChannelResult struct {
	Status    ChannelStatus
	MessageID string
	Error     string
	Attempts  int
}

// Recipient identifies who a notification goes to
type Recipient struct {
	UserID *uuid.UUID
	Name   string
	Phone  string
	Email  string
}

// Notification is the stored record of one dispatch
type Notification struct {
	shared.BaseEntity
	EventName     string
	DedupeKey     string
	Recipient     Recipient
	ReferenceType string
	ReferenceID   *uuid.UUID
	Fields        map[string]string
	SMS           ChannelResult
	Email         ChannelResult
	Processed     bool
	ProcessedAt   *time.Time
}

// NewNotification creates an unprocessed record
func NewNotification(eventName, dedupeKey string, to Recipient, refType string, refID *uuid.UUID, fields map[string]string) *Notification {
	return &Notification{
		BaseEntity:    shared.NewBaseEntity(),
		EventName:     eventName,
		DedupeKey:     dedupeKey,
		Recipient:     to,
		ReferenceType: refType,
		ReferenceID:   refID,
		Fields:        fields,
	}
}

// MarkProcessed stamps the channel results and the processed flag
func (n *Notification) MarkProcessed(sms, email ChannelResult, at time.Time) {
	n.SMS = sms
	n.Email = email
	n.Processed = true
	n.ProcessedAt = &at
	n.Touch()
}

// Outcome summarises both channels: sent if any channel sent, failed if any failed
// and none sent, otherwise skipped
func (n *Notification) Outcome() ChannelStatus {
	if n.SMS.Status == ChannelSent || n.Email.Status == ChannelSent {
		return ChannelSent
	}
	if n.SMS.Status == ChannelFailed || n.Email.Status == ChannelFailed {
		return ChannelFailed
	}
	return ChannelSkipped
}

// AutomationSetting toggles an event and its channels. A missing row means
// everything is enabled.
type AutomationSetting struct {
	EventName    string
	Enabled      bool
	SMSEnabled   bool
	EmailEnabled bool
	UpdatedBy    *uuid.UUID
	UpdatedAt    time.Time
}

// DefaultAutomationSetting is used when no row exists for eventName
func DefaultAutomationSetting(eventName string) AutomationSetting {
	return AutomationSetting{EventName: eventName, Enabled: true, SMSEnabled: true, EmailEnabled: true}
}

// ChannelEnabled reports whether ch may be used
func (s AutomationSetting) ChannelEnabled(ch Channel) bool {
	if !s.Enabled {
		return false
	}
	if ch == ChannelSMS {
		return s.SMSEnabled
	}
	return s.EmailEnabled
}

// Filter narrows notification listings
type Filter struct {
	shared.Filter
	RecipientUserID *uuid.UUID
	EventName       string
	ReferenceType   string
	ReferenceID     *uuid.UUID
}

// ChannelStats counts outcomes on one channel
type ChannelStats struct {
	Sent    int64
	Failed  int64
	Skipped int64
}

// SuccessRate is sent / (sent + failed); zero when nothing was attempted
func (s ChannelStats) SuccessRate() float64 {
	attempted := s.Sent + s.Failed
	if attempted == 0 {
		return 0
	}
	return float64(s.Sent) / float64(attempted)
}

// Repository persists notifications
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	FindAll(ctx context.Context, filter Filter) ([]*Notification, int64, error)
	Save(ctx context.Context, n *Notification) error
	ChannelStats(ctx context.Context, from, to time.Time) (map[Channel]ChannelStats, error)
}

// AutomationRepository persists automation settings
type AutomationRepository interface {
	FindByEvent(ctx context.Context, eventName string) (*AutomationSetting, error)
	FindAll(ctx context.Context) ([]AutomationSetting, error)
	Save(ctx context.Context, s *AutomationSetting) error
}
