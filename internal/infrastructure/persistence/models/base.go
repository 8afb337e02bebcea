package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel extends BaseModel with a version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// ToAggregateRoot rebuilds the domain BaseAggregateRoot
func (m *AggregateModel) ToAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.BaseModel.ToDomain(),
		Version:    m.Version,
	}
}

func marshalJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

func unmarshalJSON[T any](s string, into *T) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), into)
}

// AllModels lists every model for AutoMigrate in tests and local development.
func AllModels() []any {
	return []any{
		&UserModel{},
		&MarkupTierModel{},
		&MobileHomeModel{},
		&ServiceOfferingModel{},
		&HomeOptionModel{},
		&FactoryModel{},
		&CartModel{},
		&TransactionModel{},
		&TransactionLineModel{},
		&TransactionSequenceModel{},
		&DeliveryModel{},
		&PermitModel{},
		&AppointmentModel{},
		&CalendarConnectionModel{},
		&NotificationModel{},
		&AutomationSettingModel{},
		&ChatSessionModel{},
		&ChatMessageModel{},
	}
}
