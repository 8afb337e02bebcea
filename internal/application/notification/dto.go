package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/shared"
)

// ChannelDTO is one channel's outcome
type ChannelDTO struct {
	Status    notification.ChannelStatus `json:"status"`
	MessageID string                     `json:"message_id,omitempty"`
	Error     string                     `json:"error,omitempty"`
	Attempts  int                        `json:"attempts"`
}

// DTO is the outward view of a stored notification
type DTO struct {
	ID              uuid.UUID         `json:"id"`
	EventName       string            `json:"event_name"`
	RecipientUserID *uuid.UUID        `json:"recipient_user_id,omitempty"`
	RecipientName   string            `json:"recipient_name"`
	RecipientPhone  string            `json:"recipient_phone,omitempty"`
	RecipientEmail  string            `json:"recipient_email,omitempty"`
	ReferenceType   string            `json:"reference_type,omitempty"`
	ReferenceID     *uuid.UUID        `json:"reference_id,omitempty"`
	Fields          map[string]string `json:"fields,omitempty"`
	SMS             ChannelDTO        `json:"sms"`
	Email           ChannelDTO        `json:"email"`
	Outcome         string            `json:"outcome"`
	Processed       bool              `json:"processed"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func channelDTO(r notification.ChannelResult) ChannelDTO {
	return ChannelDTO{Status: r.Status, MessageID: r.MessageID, Error: r.Error, Attempts: r.Attempts}
}

func toDTO(n *notification.Notification) DTO {
	return DTO{
		ID:              n.ID,
		EventName:       n.EventName,
		RecipientUserID: n.Recipient.UserID,
		RecipientName:   n.Recipient.Name,
		RecipientPhone:  n.Recipient.Phone,
		RecipientEmail:  n.Recipient.Email,
		ReferenceType:   n.ReferenceType,
		ReferenceID:     n.ReferenceID,
		Fields:          n.Fields,
		SMS:             channelDTO(n.SMS),
		Email:           channelDTO(n.Email),
		Outcome:         string(n.Outcome()),
		Processed:       n.Processed,
		ProcessedAt:     n.ProcessedAt,
		CreatedAt:       n.CreatedAt,
	}
}

// ListInput filters the notification log
type ListInput struct {
	Page            int        `form:"page"`
	PageSize        int        `form:"page_size"`
	RecipientUserID *uuid.UUID `form:"recipient_user_id"`
	EventName       string     `form:"event_name"`
	ReferenceType   string     `form:"reference_type"`
	ReferenceID     *uuid.UUID `form:"reference_id"`
}

func (in ListInput) filter() notification.Filter {
	f := notification.Filter{Filter: shared.DefaultFilter()}
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 {
		f.PageSize = min(in.PageSize, 100)
	}
	f.RecipientUserID = in.RecipientUserID
	f.EventName = in.EventName
	f.ReferenceType = in.ReferenceType
	f.ReferenceID = in.ReferenceID
	return f
}

// PreviewInput renders an event with sample fields
type PreviewInput struct {
	EventName string            `json:"event_name" binding:"required"`
	Fields    map[string]string `json:"fields"`
}

// PreviewDTO is a rendered template
type PreviewDTO struct {
	EventName    string   `json:"event_name"`
	SMS          string   `json:"sms"`
	EmailSubject string   `json:"email_subject"`
	EmailHTML    string   `json:"email_html"`
	EmailText    string   `json:"email_text"`
	Missing      []string `json:"missing_fields,omitempty"`
	Placeholders []string `json:"placeholders"`
}

// AutomationDTO is the outward view of an automation toggle
type AutomationDTO struct {
	EventName    string     `json:"event_name"`
	Enabled      bool       `json:"enabled"`
	SMSEnabled   bool       `json:"sms_enabled"`
	EmailEnabled bool       `json:"email_enabled"`
	UpdatedBy    *uuid.UUID `json:"updated_by,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func toAutomationDTO(s notification.AutomationSetting) AutomationDTO {
	dto := AutomationDTO{
		EventName:    s.EventName,
		Enabled:      s.Enabled,
		SMSEnabled:   s.SMSEnabled,
		EmailEnabled: s.EmailEnabled,
		UpdatedBy:    s.UpdatedBy,
	}
	if !s.UpdatedAt.IsZero() {
		at := s.UpdatedAt
		dto.UpdatedAt = &at
	}
	return dto
}

// UpdateAutomationInput toggles an event and its channels
type UpdateAutomationInput struct {
	Enabled      *bool `json:"enabled"`
	SMSEnabled   *bool `json:"sms_enabled"`
	EmailEnabled *bool `json:"email_enabled"`
}

// SendInput is an ad-hoc staff message on one channel
type SendInput struct {
	To      string `json:"to" binding:"required,max=320"`
	Body    string `json:"body" binding:"required,max=1600"`
	Subject string `json:"subject" binding:"max=200"`
	HTML    string `json:"html"`
}
