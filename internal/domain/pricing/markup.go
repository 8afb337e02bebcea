package pricing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var (
	hundred    = decimal.NewFromInt(100)
	maxPercent = hundred
)

// MarkupTier is a per-user percentage applied to catalog base costs
type MarkupTier struct {
	shared.BaseAggregateRoot
	UserID     uuid.UUID
	Percentage decimal.Decimal
	Label      string
	UpdatedBy  *uuid.UUID
}

// NewMarkupTier creates a tier for userID
func NewMarkupTier(userID uuid.UUID, pct decimal.Decimal, label string, updatedBy *uuid.UUID) (*MarkupTier, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Markup tier requires a user")
	}
	if err := ValidatePercentage(pct); err != nil {
		return nil, err
	}
	return &MarkupTier{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Percentage:        pct,
		Label:             strings.TrimSpace(label),
		UpdatedBy:         updatedBy,
	}, nil
}

// Change updates the percentage and label
func (m *MarkupTier) Change(pct decimal.Decimal, label string, updatedBy *uuid.UUID) error {
	if err := ValidatePercentage(pct); err != nil {
		return err
	}
	m.Percentage = pct
	m.Label = strings.TrimSpace(label)
	m.UpdatedBy = updatedBy
	m.Touch()
	m.IncrementVersion()
	return nil
}

// ValidatePercentage enforces 0 <= pct <= 100
func ValidatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(maxPercent) {
		return shared.NewDomainError("INVALID_MARKUP", "Markup percentage must be between 0 and 100")
	}
	return nil
}

// Apply returns base marked up by pct percent, rounded to cents
func Apply(base, pct decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(pct.Div(hundred))
	return base.Mul(factor).Round(2)
}

// MarkupRepository persists markup tiers
type MarkupRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*MarkupTier, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*MarkupTier, int64, error)
	Save(ctx context.Context, tier *MarkupTier) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
