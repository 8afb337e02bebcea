package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDeliveryRepository implements delivery.Repository using GORM
type GormDeliveryRepository struct {
	db *gorm.DB
}

// NewGormDeliveryRepository creates a new GormDeliveryRepository
func NewGormDeliveryRepository(db *gorm.DB) *GormDeliveryRepository {
	return &GormDeliveryRepository{db: db}
}

// FindByID finds a delivery by ID
func (r *GormDeliveryRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	var model models.DeliveryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists deliveries
func (r *GormDeliveryRepository) FindAll(ctx context.Context, filter delivery.Filter) ([]*delivery.Delivery, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DeliveryModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.DriverID != nil {
		query = query.Where("driver_id = ?", *filter.DriverID)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.TransactionID != nil {
		query = query.Where("transaction_id = ?", *filter.TransactionID)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(destination_address) LIKE ?", likePattern(filter.Search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DeliveryModel
	if err := paginate(query, filter.Filter, DeliverySortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return deliveriesToDomain(rows), total, nil
}

// FindActiveByTransaction returns the non-cancelled delivery for transactionID
func (r *GormDeliveryRepository) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*delivery.Delivery, error) {
	var model models.DeliveryModel
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND status <> ?", transactionID, string(delivery.StatusCancelled)).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindInTransit returns deliveries that are on the road
func (r *GormDeliveryRepository) FindInTransit(ctx context.Context) ([]*delivery.Delivery, error) {
	var rows []models.DeliveryModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(delivery.StatusInTransit), string(delivery.StatusArriving)}).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return deliveriesToDomain(rows), nil
}

// Save writes d under optimistic locking; a stale version yields
// shared.ErrConcurrencyConflict
func (r *GormDeliveryRepository) Save(ctx context.Context, d *delivery.Delivery) error {
	model := &models.DeliveryModel{}
	model.FromDomain(d)
	expected := d.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model.Version = expected + 1
		result := tx.Model(model).
			Where("version = ?", expected).
			Select("*").
			Omit("ID", "CreatedAt").
			Updates(model)
		if result.Error != nil {
			return translateError(result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}
		var count int64
		if err := tx.Model(&models.DeliveryModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		model.Version = expected
		return translateError(tx.Create(model).Error)
	})
	if err != nil {
		return err
	}
	d.Version = model.Version
	return nil
}

func deliveriesToDomain(rows []models.DeliveryModel) []*delivery.Delivery {
	out := make([]*delivery.Delivery, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// GormPermitRepository implements delivery.PermitRepository using GORM
type GormPermitRepository struct {
	db *gorm.DB
}

// NewGormPermitRepository creates a new GormPermitRepository
func NewGormPermitRepository(db *gorm.DB) *GormPermitRepository {
	return &GormPermitRepository{db: db}
}

// FindByID finds a permit by ID
func (r *GormPermitRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Permit, error) {
	var model models.PermitModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByDeliveryID returns every permit filed for deliveryID
func (r *GormPermitRepository) FindByDeliveryID(ctx context.Context, deliveryID uuid.UUID) ([]*delivery.Permit, error) {
	var rows []models.PermitModel
	if err := r.db.WithContext(ctx).Where("delivery_id = ?", deliveryID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return permitsToDomain(rows), nil
}

// FindExpiring returns approved permits that have expired as of now
func (r *GormPermitRepository) FindExpiring(ctx context.Context, now time.Time) ([]*delivery.Permit, error) {
	var rows []models.PermitModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", string(delivery.PermitApproved), now).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return permitsToDomain(rows), nil
}

// Save creates or updates a permit
func (r *GormPermitRepository) Save(ctx context.Context, p *delivery.Permit) error {
	model := &models.PermitModel{}
	model.FromDomain(p)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

func permitsToDomain(rows []models.PermitModel) []*delivery.Permit {
	out := make([]*delivery.Permit, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

var (
	_ delivery.Repository       = (*GormDeliveryRepository)(nil)
	_ delivery.PermitRepository = (*GormPermitRepository)(nil)
)
