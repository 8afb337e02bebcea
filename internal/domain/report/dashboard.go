// Package report holds the read models behind the admin dashboard.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is a half-open reporting window [From, To)
type Period struct {
	From time.Time
	To   time.Time
}

// StatusTotal counts transactions in one status and sums their totals
type StatusTotal struct {
	Status string
	Count  int64
	Total  decimal.Decimal
}

// StatusCount counts records in one status
type StatusCount struct {
	Status string
	Count  int64
}

// EstimateFunnel counts estimates sent in the period and how many of those were approved
type EstimateFunnel struct {
	Sent     int64
	Approved int64
}

// ConversionRate is approved / sent; zero when nothing was sent
func (f EstimateFunnel) ConversionRate() float64 {
	if f.Sent == 0 {
		return 0
	}
	return float64(f.Approved) / float64(f.Sent)
}

// DeliveryWindow is one delivery's departure and drop-off time
type DeliveryWindow struct {
	StartedAt   time.Time
	DeliveredAt time.Time
}

// AverageHours returns the mean start-to-delivered duration in hours
func AverageHours(windows []DeliveryWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	var total time.Duration
	for _, w := range windows {
		total += w.DeliveredAt.Sub(w.StartedAt)
	}
	return total.Hours() / float64(len(windows))
}

// HomeSales ranks a home model by units sold
type HomeSales struct {
	HomeID  uuid.UUID
	Name    string
	Units   int64
	Revenue decimal.Decimal
}

// Repository runs the dashboard aggregate queries
type Repository interface {
	// TransactionsByStatus groups transactions created in p by status
	TransactionsByStatus(ctx context.Context, p Period) ([]StatusTotal, error)
	// EstimateFunnel counts estimates sent in p and those later approved
	EstimateFunnel(ctx context.Context, p Period) (EstimateFunnel, error)
	// DeliveriesByStatus groups deliveries created in p by status
	DeliveriesByStatus(ctx context.Context, p Period) ([]StatusCount, error)
	// DeliveryWindows returns deliveries dropped off in p that have a start time
	DeliveryWindows(ctx context.Context, p Period) ([]DeliveryWindow, error)
	// TopHomes ranks home lines on signed or later, non-cancelled transactions created in p
	TopHomes(ctx context.Context, p Period, limit int) ([]HomeSales, error)
}
