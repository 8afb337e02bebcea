package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// deleteByID removes a row of model by primary key
func deleteByID(ctx context.Context, db *gorm.DB, model any, id uuid.UUID) error {
	result := db.WithContext(ctx).Delete(model, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// catalogQuery applies the shared catalog filter to q
func catalogQuery(q *gorm.DB, filter catalog.Filter, searchColumn string) *gorm.DB {
	if filter.Active != nil {
		q = q.Where("active = ?", *filter.Active)
	}
	if filter.Search != "" {
		q = q.Where("LOWER("+searchColumn+") LIKE ?", likePattern(filter.Search))
	}
	return q
}

// GormHomeRepository implements catalog.HomeRepository using GORM
type GormHomeRepository struct {
	db *gorm.DB
}

// NewGormHomeRepository creates a new GormHomeRepository
func NewGormHomeRepository(db *gorm.DB) *GormHomeRepository {
	return &GormHomeRepository{db: db}
}

// FindByID finds a mobile home by ID
func (r *GormHomeRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.MobileHome, error) {
	var model models.MobileHomeModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs loads every home in ids; missing IDs are silently skipped
func (r *GormHomeRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.MobileHome, error) {
	if len(ids) == 0 {
		return []*catalog.MobileHome{}, nil
	}
	var rows []models.MobileHomeModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	homes := make([]*catalog.MobileHome, 0, len(rows))
	for i := range rows {
		homes = append(homes, rows[i].ToDomain())
	}
	return homes, nil
}

// FindAll lists mobile homes
func (r *GormHomeRepository) FindAll(ctx context.Context, filter catalog.Filter) ([]*catalog.MobileHome, int64, error) {
	query := catalogQuery(r.db.WithContext(ctx).Model(&models.MobileHomeModel{}), filter, "model_name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.MobileHomeModel
	if err := paginate(query, filter.Filter, HomeSortFields, "model_name").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	homes := make([]*catalog.MobileHome, 0, len(rows))
	for i := range rows {
		homes = append(homes, rows[i].ToDomain())
	}
	return homes, total, nil
}

// Save creates or updates a mobile home
func (r *GormHomeRepository) Save(ctx context.Context, home *catalog.MobileHome) error {
	model := &models.MobileHomeModel{}
	model.FromDomain(home)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a mobile home
func (r *GormHomeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.MobileHomeModel{}, id)
}

// GormServiceRepository implements catalog.ServiceRepository using GORM
type GormServiceRepository struct {
	db *gorm.DB
}

// NewGormServiceRepository creates a new GormServiceRepository
func NewGormServiceRepository(db *gorm.DB) *GormServiceRepository {
	return &GormServiceRepository{db: db}
}

// FindByID finds a service offering by ID
func (r *GormServiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ServiceOffering, error) {
	var model models.ServiceOfferingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists service offerings
func (r *GormServiceRepository) FindAll(ctx context.Context, filter catalog.Filter) ([]*catalog.ServiceOffering, int64, error) {
	query := catalogQuery(r.db.WithContext(ctx).Model(&models.ServiceOfferingModel{}), filter, "name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ServiceOfferingModel
	if err := paginate(query, filter.Filter, ServiceSortFields, "name").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	services := make([]*catalog.ServiceOffering, 0, len(rows))
	for i := range rows {
		services = append(services, rows[i].ToDomain())
	}
	return services, total, nil
}

// Save creates or updates a service offering
func (r *GormServiceRepository) Save(ctx context.Context, svc *catalog.ServiceOffering) error {
	model := &models.ServiceOfferingModel{}
	model.FromDomain(svc)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a service offering
func (r *GormServiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.ServiceOfferingModel{}, id)
}

// GormOptionRepository implements catalog.OptionRepository using GORM
type GormOptionRepository struct {
	db *gorm.DB
}

// NewGormOptionRepository creates a new GormOptionRepository
func NewGormOptionRepository(db *gorm.DB) *GormOptionRepository {
	return &GormOptionRepository{db: db}
}

// FindByID finds a home option by ID
func (r *GormOptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.HomeOption, error) {
	var model models.HomeOptionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists home options
func (r *GormOptionRepository) FindAll(ctx context.Context, filter catalog.Filter) ([]*catalog.HomeOption, int64, error) {
	query := catalogQuery(r.db.WithContext(ctx).Model(&models.HomeOptionModel{}), filter, "name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.HomeOptionModel
	if err := paginate(query, filter.Filter, OptionSortFields, "name").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	options := make([]*catalog.HomeOption, 0, len(rows))
	for i := range rows {
		options = append(options, rows[i].ToDomain())
	}
	return options, total, nil
}

// Save creates or updates a home option
func (r *GormOptionRepository) Save(ctx context.Context, opt *catalog.HomeOption) error {
	model := &models.HomeOptionModel{}
	model.FromDomain(opt)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a home option
func (r *GormOptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.HomeOptionModel{}, id)
}

// GormFactoryRepository implements catalog.FactoryRepository using GORM
type GormFactoryRepository struct {
	db *gorm.DB
}

// NewGormFactoryRepository creates a new GormFactoryRepository
func NewGormFactoryRepository(db *gorm.DB) *GormFactoryRepository {
	return &GormFactoryRepository{db: db}
}

// FindByID finds a factory by ID
func (r *GormFactoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Factory, error) {
	var model models.FactoryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists factories
func (r *GormFactoryRepository) FindAll(ctx context.Context, filter catalog.Filter) ([]*catalog.Factory, int64, error) {
	query := catalogQuery(r.db.WithContext(ctx).Model(&models.FactoryModel{}), filter, "name")

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.FactoryModel
	if err := paginate(query, filter.Filter, FactorySortFields, "name").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	factories := make([]*catalog.Factory, 0, len(rows))
	for i := range rows {
		factories = append(factories, rows[i].ToDomain())
	}
	return factories, total, nil
}

// Save creates or updates a factory
func (r *GormFactoryRepository) Save(ctx context.Context, f *catalog.Factory) error {
	model := &models.FactoryModel{}
	model.FromDomain(f)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// Delete removes a factory
func (r *GormFactoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteByID(ctx, r.db, &models.FactoryModel{}, id)
}

var (
	_ catalog.HomeRepository    = (*GormHomeRepository)(nil)
	_ catalog.ServiceRepository = (*GormServiceRepository)(nil)
	_ catalog.OptionRepository  = (*GormOptionRepository)(nil)
	_ catalog.FactoryRepository = (*GormFactoryRepository)(nil)
)
