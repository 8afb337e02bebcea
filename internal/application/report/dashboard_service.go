// Package report builds the admin dashboard summary.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/report"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWindow = 30 * 24 * time.Hour
	maxWindow     = 366 * 24 * time.Hour
	topHomes      = 5
)

// ChannelStatsSource reports notification outcomes per channel
type ChannelStatsSource interface {
	ChannelStats(ctx context.Context, from, to time.Time) (map[notification.Channel]notification.ChannelStats, error)
}

// SummaryInput selects the reporting window; both ends default to the last 30 days
type SummaryInput struct {
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// HomeRankDTO is one row of the best sellers list
type HomeRankDTO struct {
	Rank    int             `json:"rank"`
	HomeID  uuid.UUID       `json:"home_id"`
	Name    string          `json:"name"`
	Units   int64           `json:"units"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ChannelDTO is one channel's notification outcomes
type ChannelDTO struct {
	Sent        int64   `json:"sent"`
	Failed      int64   `json:"failed"`
	Skipped     int64   `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
}

// SummaryDTO is the dashboard payload
type SummaryDTO struct {
	From                 time.Time             `json:"from"`
	To                   time.Time             `json:"to"`
	TransactionsByStatus map[string]int64      `json:"transactions_by_status"`
	Revenue              decimal.Decimal       `json:"revenue"`
	PipelineValue        decimal.Decimal       `json:"pipeline_value"`
	AverageOrderValue    decimal.Decimal       `json:"average_order_value"`
	EstimatesSent        int64                 `json:"estimates_sent"`
	EstimatesApproved    int64                 `json:"estimates_approved"`
	ConversionRate       float64               `json:"conversion_rate"`
	DeliveriesByStatus   map[string]int64      `json:"deliveries_by_status"`
	AvgDeliveryHours     float64               `json:"avg_delivery_hours"`
	TopHomes             []HomeRankDTO         `json:"top_homes"`
	Notifications        map[string]ChannelDTO `json:"notifications"`
}

// Service computes the dashboard
type Service struct {
	repo          report.Repository
	notifications ChannelStatsSource
	now           func() time.Time
	logger        *zap.Logger
}

// NewService creates a dashboard service
func NewService(repo report.Repository, notifications ChannelStatsSource, logger *zap.Logger) *Service {
	return &Service{repo: repo, notifications: notifications, now: time.Now, logger: logger}
}

func (s *Service) period(in SummaryInput) (report.Period, error) {
	to := s.now()
	if in.To != nil {
		to = *in.To
	}
	from := to.Add(-defaultWindow)
	if in.From != nil {
		from = *in.From
	}
	if !to.After(from) {
		return report.Period{}, shared.NewDomainError("INVALID_PERIOD", "from must be before to")
	}
	if to.Sub(from) > maxWindow {
		return report.Period{}, shared.NewDomainError("INVALID_PERIOD", "Reporting window cannot exceed 366 days")
	}
	return report.Period{From: from, To: to}, nil
}

// Summary runs every dashboard query for the window concurrently
func (s *Service) Summary(ctx context.Context, in SummaryInput) (*SummaryDTO, error) {
	p, err := s.period(in)
	if err != nil {
		return nil, err
	}

	var (
		byStatus   []report.StatusTotal
		funnel     report.EstimateFunnel
		deliveries []report.StatusCount
		windows    []report.DeliveryWindow
		homes      []report.HomeSales
		channels   map[notification.Channel]notification.ChannelStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { byStatus, err = s.repo.TransactionsByStatus(gctx, p); return })
	g.Go(func() (err error) { funnel, err = s.repo.EstimateFunnel(gctx, p); return })
	g.Go(func() (err error) { deliveries, err = s.repo.DeliveriesByStatus(gctx, p); return })
	g.Go(func() (err error) { windows, err = s.repo.DeliveryWindows(gctx, p); return })
	g.Go(func() (err error) { homes, err = s.repo.TopHomes(gctx, p, topHomes); return })
	g.Go(func() (err error) { channels, err = s.notifications.ChannelStats(gctx, p.From, p.To); return })
	if err := g.Wait(); err != nil {
		s.logger.Error("Dashboard query failed", zap.Error(err))
		return nil, err
	}

	out := &SummaryDTO{
		From:                 p.From,
		To:                   p.To,
		TransactionsByStatus: make(map[string]int64, len(sales.AllTransactionStatuses)),
		Revenue:              decimal.Zero,
		PipelineValue:        decimal.Zero,
		AverageOrderValue:    decimal.Zero,
		EstimatesSent:        funnel.Sent,
		EstimatesApproved:    funnel.Approved,
		ConversionRate:       funnel.ConversionRate(),
		DeliveriesByStatus:   make(map[string]int64, len(delivery.AllStatuses)),
		AvgDeliveryHours:     report.AverageHours(windows),
		TopHomes:             make([]HomeRankDTO, len(homes)),
		Notifications:        make(map[string]ChannelDTO, len(channels)),
	}
	for _, st := range sales.AllTransactionStatuses {
		out.TransactionsByStatus[string(st)] = 0
	}
	var signed int64
	for _, row := range byStatus {
		out.TransactionsByStatus[row.Status] = row.Count
		st := sales.TransactionStatus(row.Status)
		switch {
		case st == sales.StatusCompleted:
			out.Revenue = out.Revenue.Add(row.Total)
			signed += row.Count
		case st.Rank() >= sales.StatusContractSigned.Rank():
			out.PipelineValue = out.PipelineValue.Add(row.Total)
			signed += row.Count
		}
	}
	if signed > 0 {
		out.AverageOrderValue = out.Revenue.Add(out.PipelineValue).
			Div(decimal.NewFromInt(signed)).Round(2)
	}

	for _, st := range delivery.AllStatuses {
		out.DeliveriesByStatus[string(st)] = 0
	}
	for _, row := range deliveries {
		out.DeliveriesByStatus[row.Status] = row.Count
	}
	for i, h := range homes {
		out.TopHomes[i] = HomeRankDTO{Rank: i + 1, HomeID: h.HomeID, Name: h.Name, Units: h.Units, Revenue: h.Revenue}
	}
	for ch, st := range channels {
		out.Notifications[string(ch)] = ChannelDTO{
			Sent:        st.Sent,
			Failed:      st.Failed,
			Skipped:     st.Skipped,
			SuccessRate: st.SuccessRate(),
		}
	}
	return out, nil
}
