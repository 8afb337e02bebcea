package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/notification"
)

// NotificationModel is the persistence model for dispatched notifications.
// Each channel outcome is flattened into its own column group.
type NotificationModel struct {
	BaseModel
	EventName       string                     `gorm:"type:varchar(50);not null;index"`
	DedupeKey       string                     `gorm:"type:varchar(200);index"`
	RecipientUserID *uuid.UUID                 `gorm:"type:uuid;index"`
	RecipientName   string                     `gorm:"type:varchar(200)"`
	RecipientPhone  string                     `gorm:"type:varchar(20)"`
	RecipientEmail  string                     `gorm:"type:varchar(200)"`
	ReferenceType   string                     `gorm:"type:varchar(30);index:idx_notifications_reference"`
	ReferenceID     *uuid.UUID                 `gorm:"type:uuid;index:idx_notifications_reference"`
	FieldsJSON      string                     `gorm:"column:fields;type:jsonb;default:'{}'"`
	SMSStatus       notification.ChannelStatus `gorm:"column:sms_status;type:varchar(10)"`
	SMSMessageID    string                     `gorm:"column:sms_message_id;type:varchar(100)"`
	SMSError        string                     `gorm:"column:sms_error;type:text"`
	SMSAttempts     int                        `gorm:"column:sms_attempts;not null;default:0"`
	EmailStatus     notification.ChannelStatus `gorm:"type:varchar(10)"`
	EmailMessageID  string                     `gorm:"type:varchar(100)"`
	EmailError      string                     `gorm:"type:text"`
	EmailAttempts   int                        `gorm:"not null;default:0"`
	Processed       bool                       `gorm:"not null;default:false"`
	ProcessedAt     *time.Time                 `gorm:"index"`
}

// TableName returns the table name for GORM
func (NotificationModel) TableName() string {
	return "notifications"
}

// ToDomain converts the persistence model to a domain Notification.
func (m *NotificationModel) ToDomain() *notification.Notification {
	n := &notification.Notification{
		BaseEntity: m.BaseModel.ToDomain(),
		EventName:  m.EventName,
		DedupeKey:  m.DedupeKey,
		Recipient: notification.Recipient{
			UserID: m.RecipientUserID,
			Name:   m.RecipientName,
			Phone:  m.RecipientPhone,
			Email:  m.RecipientEmail,
		},
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		Fields:        make(map[string]string),
		SMS: notification.ChannelResult{
			Status:    m.SMSStatus,
			MessageID: m.SMSMessageID,
			Error:     m.SMSError,
			Attempts:  m.SMSAttempts,
		},
		Email: notification.ChannelResult{
			Status:    m.EmailStatus,
			MessageID: m.EmailMessageID,
			Error:     m.EmailError,
			Attempts:  m.EmailAttempts,
		},
		Processed:   m.Processed,
		ProcessedAt: m.ProcessedAt,
	}
	unmarshalJSON(m.FieldsJSON, &n.Fields)
	return n
}

// FromDomain populates the persistence model from a domain Notification.
func (m *NotificationModel) FromDomain(n *notification.Notification) {
	m.FromDomainBaseEntity(n.BaseEntity)
	m.EventName = n.EventName
	m.DedupeKey = n.DedupeKey
	m.RecipientUserID = n.Recipient.UserID
	m.RecipientName = n.Recipient.Name
	m.RecipientPhone = n.Recipient.Phone
	m.RecipientEmail = n.Recipient.Email
	m.ReferenceType = n.ReferenceType
	m.ReferenceID = n.ReferenceID
	m.FieldsJSON = marshalJSON(n.Fields, "{}")
	m.SMSStatus = n.SMS.Status
	m.SMSMessageID = n.SMS.MessageID
	m.SMSError = n.SMS.Error
	m.SMSAttempts = n.SMS.Attempts
	m.EmailStatus = n.Email.Status
	m.EmailMessageID = n.Email.MessageID
	m.EmailError = n.Email.Error
	m.EmailAttempts = n.Email.Attempts
	m.Processed = n.Processed
	m.ProcessedAt = n.ProcessedAt
}

// AutomationSettingModel toggles notification events per channel.
type AutomationSettingModel struct {
	EventName    string     `gorm:"type:varchar(50);primaryKey"`
	Enabled      bool       `gorm:"not null"`
	SMSEnabled   bool       `gorm:"column:sms_enabled;not null"`
	EmailEnabled bool       `gorm:"not null"`
	UpdatedBy    *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt    time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AutomationSettingModel) TableName() string {
	return "automation_settings"
}

// ToDomain converts the persistence model to a domain AutomationSetting.
func (m *AutomationSettingModel) ToDomain() notification.AutomationSetting {
	return notification.AutomationSetting{
		EventName:    m.EventName,
		Enabled:      m.Enabled,
		SMSEnabled:   m.SMSEnabled,
		EmailEnabled: m.EmailEnabled,
		UpdatedBy:    m.UpdatedBy,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain AutomationSetting.
func (m *AutomationSettingModel) FromDomain(s *notification.AutomationSetting) {
	m.EventName = s.EventName
	m.Enabled = s.Enabled
	m.SMSEnabled = s.SMSEnabled
	m.EmailEnabled = s.EmailEnabled
	m.UpdatedBy = s.UpdatedBy
	m.UpdatedAt = s.UpdatedAt
}
