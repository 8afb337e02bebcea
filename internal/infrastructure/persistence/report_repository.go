package persistence

import (
	"context"

	"github.com/homestead/backend/internal/domain/report"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// soldStatuses are the transactions whose homes count as sold
var soldStatuses = []string{
	string(sales.StatusContractSigned),
	string(sales.StatusInProduction),
	string(sales.StatusReadyForDelivery),
	string(sales.StatusCompleted),
}

// GormReportRepository implements report.Repository using GORM aggregates
type GormReportRepository struct {
	db *gorm.DB
}

// NewGormReportRepository creates a new GormReportRepository
func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

// TransactionsByStatus groups transactions created in p by status
func (r *GormReportRepository) TransactionsByStatus(ctx context.Context, p report.Period) ([]report.StatusTotal, error) {
	var rows []report.StatusTotal
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total").
		Where("created_at >= ? AND created_at < ?", p.From, p.To).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// EstimateFunnel counts estimates sent in p and how many went on to approval
func (r *GormReportRepository) EstimateFunnel(ctx context.Context, p report.Period) (report.EstimateFunnel, error) {
	var f report.EstimateFunnel
	sent := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("estimate_sent_at >= ? AND estimate_sent_at < ?", p.From, p.To)
	if err := sent.Count(&f.Sent).Error; err != nil {
		return f, err
	}
	err := r.db.WithContext(ctx).Model(&models.TransactionModel{}).
		Where("estimate_sent_at >= ? AND estimate_sent_at < ? AND estimate_approved_at IS NOT NULL", p.From, p.To).
		Count(&f.Approved).Error
	return f, err
}

// DeliveriesByStatus groups deliveries created in p by status
func (r *GormReportRepository) DeliveriesByStatus(ctx context.Context, p report.Period) ([]report.StatusCount, error) {
	var rows []report.StatusCount
	err := r.db.WithContext(ctx).Model(&models.DeliveryModel{}).
		Select("status, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", p.From, p.To).
		Group("status").
		Scan(&rows).Error
	return rows, err
}

// DeliveryWindows returns start and drop-off times of deliveries dropped off in p
func (r *GormReportRepository) DeliveryWindows(ctx context.Context, p report.Period) ([]report.DeliveryWindow, error) {
	var rows []models.DeliveryModel
	err := r.db.WithContext(ctx).
		Select("id, started_at, delivered_at").
		Where("delivered_at >= ? AND delivered_at < ? AND started_at IS NOT NULL", p.From, p.To).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]report.DeliveryWindow, 0, len(rows))
	for _, m := range rows {
		if m.StartedAt == nil || m.DeliveredAt == nil {
			continue
		}
		out = append(out, report.DeliveryWindow{StartedAt: *m.StartedAt, DeliveredAt: *m.DeliveredAt})
	}
	return out, nil
}

// TopHomes ranks home lines of sold transactions created in p by units, then revenue
func (r *GormReportRepository) TopHomes(ctx context.Context, p report.Period, limit int) ([]report.HomeSales, error) {
	var rows []report.HomeSales
	err := r.db.WithContext(ctx).
		Table("transaction_lines AS l").
		Select("l.ref_id AS home_id, MAX(l.name) AS name, SUM(l.quantity) AS units, COALESCE(SUM(l.line_total), 0) AS revenue").
		Joins("JOIN transactions t ON t.id = l.transaction_id").
		Where("l.kind = ? AND t.status IN ? AND t.created_at >= ? AND t.created_at < ?",
			string(sales.KindHome), soldStatuses, p.From, p.To).
		Group("l.ref_id").
		Order("units DESC, revenue DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

var _ report.Repository = (*GormReportRepository)(nil)
