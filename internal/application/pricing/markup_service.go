// Package pricing resolves and manages per-user markup tiers.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarkupDTO is the outward view of a markup tier
type MarkupDTO struct {
	UserID     uuid.UUID       `json:"user_id"`
	Percentage decimal.Decimal `json:"percentage"`
	Label      string          `json:"label,omitempty"`
	IsDefault  bool            `json:"is_default"`
	UpdatedBy  *uuid.UUID      `json:"updated_by,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at,omitempty"`
}

// MarkupService resolves the percentage applied to a user's prices
type MarkupService struct {
	repo          pricing.MarkupRepository
	defaultMarkup decimal.Decimal
	logger        *zap.Logger
}

// NewMarkupService creates a markup service. defaultMarkup applies to users
// without a tier.
func NewMarkupService(repo pricing.MarkupRepository, defaultMarkup decimal.Decimal, logger *zap.Logger) *MarkupService {
	if err := pricing.ValidatePercentage(defaultMarkup); err != nil {
		logger.Warn("Default markup out of range, using 0", zap.String("default", defaultMarkup.String()))
		defaultMarkup = decimal.Zero
	}
	return &MarkupService{repo: repo, defaultMarkup: defaultMarkup, logger: logger}
}

// PercentageFor returns the user's tier percentage or the default
func (s *MarkupService) PercentageFor(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return s.defaultMarkup, nil
	}
	tier, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return s.defaultMarkup, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return tier.Percentage, nil
}

// Get returns the effective markup for userID
func (s *MarkupService) Get(ctx context.Context, userID uuid.UUID) (*MarkupDTO, error) {
	tier, err := s.repo.FindByUserID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return &MarkupDTO{UserID: userID, Percentage: s.defaultMarkup, IsDefault: true}, nil
	}
	if err != nil {
		return nil, err
	}
	dto := toDTO(tier)
	return &dto, nil
}

// Upsert creates or replaces the user's tier and returns it
func (s *MarkupService) Upsert(ctx context.Context, userID uuid.UUID, pct decimal.Decimal, label string, updatedBy *uuid.UUID) (*MarkupDTO, error) {
	tier, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		if tier, err = pricing.NewMarkupTier(userID, pct, label, updatedBy); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if err := tier.Change(pct, label, updatedBy); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, tier); err != nil {
		return nil, err
	}
	s.logger.Info("Markup tier saved", zap.String("user_id", userID.String()), zap.String("percentage", pct.String()))
	dto := toDTO(tier)
	return &dto, nil
}

// Delete removes the user's tier so the default applies again
func (s *MarkupService) Delete(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// List pages through every explicit tier
func (s *MarkupService) List(ctx context.Context, page, pageSize int) (shared.Paginated[MarkupDTO], error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 && pageSize <= 100 {
		filter.PageSize = pageSize
	}
	tiers, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[MarkupDTO]{}, err
	}
	items := make([]MarkupDTO, len(tiers))
	for i, t := range tiers {
		items[i] = toDTO(t)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func toDTO(t *pricing.MarkupTier) MarkupDTO {
	return MarkupDTO{
		UserID:     t.UserID,
		Percentage: t.Percentage,
		Label:      t.Label,
		UpdatedBy:  t.UpdatedBy,
		UpdatedAt:  t.UpdatedAt,
	}
}
