package delivery

import (
	"context"

	"go.uber.org/zap"
)

// ExpirePermits marks approved permits past their expiry date as expired
func (s *Service) ExpirePermits(ctx context.Context) (int, error) {
	now := s.now()
	rows, err := s.permits.FindExpiring(ctx, now)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, p := range rows {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if !p.ExpireIfDue(now) {
			continue
		}
		if err := s.permits.Save(ctx, p); err != nil {
			s.logger.Warn("Failed to expire permit", zap.String("permit_id", p.ID.String()), zap.Error(err))
			continue
		}
		expired++
		s.logger.Info("Permit expired",
			zap.String("permit_id", p.ID.String()),
			zap.String("delivery_id", p.DeliveryID.String()),
			zap.String("jurisdiction", p.Jurisdiction))
	}
	return expired, nil
}

// CheckStale counts moving deliveries with no GPS reading for StaleAfter and
// reports the figure as a gauge.
func (s *Service) CheckStale(ctx context.Context) (int, error) {
	rows, err := s.repo.FindInTransit(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-s.opts.StaleAfter)
	stale := 0
	for _, d := range rows {
		if !d.IsStale(cutoff) {
			continue
		}
		stale++
		fields := []zap.Field{
			zap.String("delivery_id", d.ID.String()),
			zap.String("status", string(d.Status)),
		}
		if d.DriverID != nil {
			fields = append(fields, zap.String("driver_id", d.DriverID.String()))
		}
		if d.LastLocationAt != nil {
			fields = append(fields, zap.Time("last_location_at", *d.LastLocationAt))
		}
		s.logger.Warn("Delivery has stopped reporting location", fields...)
	}
	s.metrics.SetStaleDeliveries(stale)
	return stale, nil
}
