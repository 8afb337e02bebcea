package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormNotificationRepository implements notification.Repository using GORM
type GormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GormNotificationRepository
func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

// FindByID finds a notification by ID
func (r *GormNotificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var model models.NotificationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists notifications, newest first by default
func (r *GormNotificationRepository) FindAll(ctx context.Context, filter notification.Filter) ([]*notification.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.NotificationModel{})
	if filter.RecipientUserID != nil {
		query = query.Where("recipient_user_id = ?", *filter.RecipientUserID)
	}
	if filter.EventName != "" {
		query = query.Where("event_name = ?", filter.EventName)
	}
	if filter.ReferenceType != "" {
		query = query.Where("reference_type = ?", filter.ReferenceType)
	}
	if filter.ReferenceID != nil {
		query = query.Where("reference_id = ?", *filter.ReferenceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.NotificationModel
	if err := paginate(query, filter.Filter, NotificationSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*notification.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

// Save creates or updates a notification
func (r *GormNotificationRepository) Save(ctx context.Context, n *notification.Notification) error {
	model := &models.NotificationModel{}
	model.FromDomain(n)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

type channelStatusCount struct {
	Status string
	Count  int64
}

// ChannelStats counts outcomes per channel for notifications processed in [from, to)
func (r *GormNotificationRepository) ChannelStats(ctx context.Context, from, to time.Time) (map[notification.Channel]notification.ChannelStats, error) {
	out := map[notification.Channel]notification.ChannelStats{
		notification.ChannelSMS:   {},
		notification.ChannelEmail: {},
	}
	columns := map[notification.Channel]string{
		notification.ChannelSMS:   "sms_status",
		notification.ChannelEmail: "email_status",
	}
	for ch, col := range columns {
		var counts []channelStatusCount
		err := r.db.WithContext(ctx).Model(&models.NotificationModel{}).
			Select(col+" AS status, COUNT(*) AS count").
			Where("processed = ? AND processed_at >= ? AND processed_at < ?", true, from, to).
			Group(col).
			Scan(&counts).Error
		if err != nil {
			return nil, err
		}
		stats := notification.ChannelStats{}
		for _, c := range counts {
			switch notification.ChannelStatus(c.Status) {
			case notification.ChannelSent:
				stats.Sent = c.Count
			case notification.ChannelFailed:
				stats.Failed = c.Count
			case notification.ChannelSkipped:
				stats.Skipped = c.Count
			}
		}
		out[ch] = stats
	}
	return out, nil
}

// GormAutomationRepository implements notification.AutomationRepository using GORM
type GormAutomationRepository struct {
	db *gorm.DB
}

// NewGormAutomationRepository creates a new GormAutomationRepository
func NewGormAutomationRepository(db *gorm.DB) *GormAutomationRepository {
	return &GormAutomationRepository{db: db}
}

// FindByEvent returns the stored setting for eventName
func (r *GormAutomationRepository) FindByEvent(ctx context.Context, eventName string) (*notification.AutomationSetting, error) {
	var model models.AutomationSettingModel
	if err := r.db.WithContext(ctx).Where("event_name = ?", eventName).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	s := model.ToDomain()
	return &s, nil
}

// FindAll returns every stored setting
func (r *GormAutomationRepository) FindAll(ctx context.Context) ([]notification.AutomationSetting, error) {
	var rows []models.AutomationSettingModel
	if err := r.db.WithContext(ctx).Order("event_name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]notification.AutomationSetting, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save upserts a setting keyed by event name
func (r *GormAutomationRepository) Save(ctx context.Context, s *notification.AutomationSetting) error {
	model := &models.AutomationSettingModel{}
	model.FromDomain(s)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "sms_enabled", "email_enabled", "updated_by", "updated_at"}),
	}).Create(model).Error
}

var (
	_ notification.Repository           = (*GormNotificationRepository)(nil)
	_ notification.AutomationRepository = (*GormAutomationRepository)(nil)
)
