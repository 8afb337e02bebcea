package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

var openAppointmentStatuses = []string{
	string(scheduling.AppointmentScheduled),
	string(scheduling.AppointmentConfirmed),
}

// GormAppointmentRepository implements scheduling.AppointmentRepository using GORM
type GormAppointmentRepository struct {
	db *gorm.DB
}

// NewGormAppointmentRepository creates a new GormAppointmentRepository
func NewGormAppointmentRepository(db *gorm.DB) *GormAppointmentRepository {
	return &GormAppointmentRepository{db: db}
}

// FindByID finds an appointment by ID
func (r *GormAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	var model models.AppointmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists appointments
func (r *GormAppointmentRepository) FindAll(ctx context.Context, filter scheduling.AppointmentFilter) ([]*scheduling.Appointment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AppointmentModel{})
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.StaffID != nil {
		query = query.Where("staff_id = ?", *filter.StaffID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.From != nil {
		query = query.Where("starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("starts_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	f := filter.Filter
	if f.OrderBy == "" {
		f.OrderBy, f.OrderDir = "starts_at", "asc"
	}
	var rows []models.AppointmentModel
	if err := paginate(query, f, AppointmentSortFields, "starts_at").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return appointmentsToDomain(rows), total, nil
}

// FindOverlapping returns open appointments of staffID intersecting [start, end)
func (r *GormAppointmentRepository) FindOverlapping(ctx context.Context, staffID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]*scheduling.Appointment, error) {
	query := r.db.WithContext(ctx).
		Where("staff_id = ? AND status IN ? AND starts_at < ? AND ends_at > ?", staffID, openAppointmentStatuses, end, start)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	var rows []models.AppointmentModel
	if err := query.Order("starts_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return appointmentsToDomain(rows), nil
}

// FindNeedingReminder returns open appointments starting in (now, cutoff] without a reminder
func (r *GormAppointmentRepository) FindNeedingReminder(ctx context.Context, now, cutoff time.Time) ([]*scheduling.Appointment, error) {
	var rows []models.AppointmentModel
	err := r.db.WithContext(ctx).
		Where("status IN ? AND reminder_sent_at IS NULL AND starts_at > ? AND starts_at <= ?", openAppointmentStatuses, now, cutoff).
		Order("starts_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return appointmentsToDomain(rows), nil
}

// Save writes a under optimistic locking; a stale version yields
// shared.ErrConcurrencyConflict, so two reminder runs cannot both stamp it
func (r *GormAppointmentRepository) Save(ctx context.Context, a *scheduling.Appointment) error {
	model := &models.AppointmentModel{}
	model.FromDomain(a)
	expected := a.Version

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
		if err := tx.Model(&models.AppointmentModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
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
	a.Version = model.Version
	return nil
}

func appointmentsToDomain(rows []models.AppointmentModel) []*scheduling.Appointment {
	out := make([]*scheduling.Appointment, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// GormCalendarConnectionRepository implements scheduling.CalendarConnectionRepository
type GormCalendarConnectionRepository struct {
	db *gorm.DB
}

// NewGormCalendarConnectionRepository creates a new GormCalendarConnectionRepository
func NewGormCalendarConnectionRepository(db *gorm.DB) *GormCalendarConnectionRepository {
	return &GormCalendarConnectionRepository{db: db}
}

// FindByUserID returns the connection of userID
func (r *GormCalendarConnectionRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*scheduling.CalendarConnection, error) {
	var model models.CalendarConnectionModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a connection
func (r *GormCalendarConnectionRepository) Save(ctx context.Context, c *scheduling.CalendarConnection) error {
	model := &models.CalendarConnectionModel{}
	model.FromDomain(c)
	return translateError(r.db.WithContext(ctx).Save(model).Error)
}

// DeleteByUserID removes the connection of userID
func (r *GormCalendarConnectionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CalendarConnectionModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ scheduling.AppointmentRepository        = (*GormAppointmentRepository)(nil)
	_ scheduling.CalendarConnectionRepository = (*GormCalendarConnectionRepository)(nil)
)
