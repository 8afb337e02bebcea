package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// UserModel is the persistence model for the User aggregate.
type UserModel struct {
	AggregateModel
	Email        string        `gorm:"type:varchar(200);not null;uniqueIndex"`
	FullName     string        `gorm:"type:varchar(200);not null"`
	Phone        string        `gorm:"type:varchar(20)"`
	Role         identity.Role `gorm:"type:varchar(20);not null;index"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Active       bool          `gorm:"not null"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Email:             m.Email,
		FullName:          m.FullName,
		Phone:             m.Phone,
		Role:              m.Role,
		PasswordHash:      m.PasswordHash,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
	}
}

// FromDomain populates the persistence model from a domain User.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Email = u.Email
	m.FullName = u.FullName
	m.Phone = u.Phone
	m.Role = u.Role
	m.PasswordHash = u.PasswordHash
	m.Active = u.Active
	m.LastLoginAt = u.LastLoginAt
}

// UserModelFromDomain creates a new persistence model from a domain User.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

// MarkupTierModel is the persistence model for markup tiers.
type MarkupTierModel struct {
	AggregateModel
	UserID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Label      string          `gorm:"type:varchar(100)"`
	UpdatedBy  *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (MarkupTierModel) TableName() string {
	return "markup_tiers"
}

// ToDomain converts the persistence model to a domain MarkupTier.
func (m *MarkupTierModel) ToDomain() *pricing.MarkupTier {
	return &pricing.MarkupTier{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		Percentage:        m.Percentage,
		Label:             m.Label,
		UpdatedBy:         m.UpdatedBy,
	}
}

// FromDomain populates the persistence model from a domain MarkupTier.
func (m *MarkupTierModel) FromDomain(t *pricing.MarkupTier) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.UserID = t.UserID
	m.Percentage = t.Percentage
	m.Label = t.Label
	m.UpdatedBy = t.UpdatedBy
}
