package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/chat"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormChatRepository implements chat.Repository using GORM
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a new GormChatRepository
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	return &GormChatRepository{db: db}
}

// FindByID finds a chat session by ID
func (r *GormChatRepository) FindByID(ctx context.Context, id uuid.UUID) (*chat.Session, error) {
	var model models.ChatSessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindOpenByCustomer returns the customer's most recent open session
func (r *GormChatRepository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*chat.Session, error) {
	var model models.ChatSessionModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND status = ?", customerID, string(chat.SessionOpen)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists chat sessions
func (r *GormChatRepository) FindAll(ctx context.Context, filter chat.Filter) ([]*chat.Session, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ChatSessionModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.StaffID != nil {
		query = query.Where("assigned_staff_id = ?", *filter.StaffID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Search != "" {
		query = query.Where("LOWER(subject) LIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ChatSessionModel
	if err := paginate(query, filter.Filter, ChatSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*chat.Session, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

// Save creates or updates a chat session
func (r *GormChatRepository) Save(ctx context.Context, s *chat.Session) error {
	model := &models.ChatSessionModel{}
	model.FromDomain(s)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// AddMessage stores m and the session's new last-message time in one transaction
func (r *GormChatRepository) AddMessage(ctx context.Context, s *chat.Session, m *chat.Message) error {
	session := &models.ChatSessionModel{}
	session.FromDomain(s)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(models.ChatMessageModelFromDomain(m)).Error; err != nil {
			return translateError(err)
		}
		return translateError(tx.Save(session).Error)
	})
}

// ListMessages returns a page of messages in sessionID, oldest first
func (r *GormChatRepository) ListMessages(ctx context.Context, sessionID uuid.UUID, filter shared.Filter) ([]*chat.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ChatMessageModel{}).Where("session_id = ?", sessionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("sent_at ASC")
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	var rows []models.ChatMessageModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*chat.Message, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

var _ chat.Repository = (*GormChatRepository)(nil)
