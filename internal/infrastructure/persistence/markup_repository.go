package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormMarkupRepository implements pricing.MarkupRepository using GORM
type GormMarkupRepository struct {
	db *gorm.DB
}

// NewGormMarkupRepository creates a new GormMarkupRepository
func NewGormMarkupRepository(db *gorm.DB) *GormMarkupRepository {
	return &GormMarkupRepository{db: db}
}

// FindByUserID returns the tier assigned to userID
func (r *GormMarkupRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*pricing.MarkupTier, error) {
	var model models.MarkupTierModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists markup tiers
func (r *GormMarkupRepository) FindAll(ctx context.Context, filter shared.Filter) ([]*pricing.MarkupTier, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MarkupTierModel{})
	if filter.Search != "" {
		query = query.Where("LOWER(label) LIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MarkupTierModel
	if err := paginate(query, filter, MarkupSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	tiers := make([]*pricing.MarkupTier, 0, len(rows))
	for i := range rows {
		tiers = append(tiers, rows[i].ToDomain())
	}
	return tiers, total, nil
}

// Save creates or updates a markup tier
func (r *GormMarkupRepository) Save(ctx context.Context, tier *pricing.MarkupTier) error {
	model := &models.MarkupTierModel{}
	model.FromDomain(tier)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// DeleteByUserID removes the tier assigned to userID
func (r *GormMarkupRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.MarkupTierModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ pricing.MarkupRepository = (*GormMarkupRepository)(nil)
