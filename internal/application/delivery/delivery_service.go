// Package delivery schedules home deliveries, tracks trucks by GPS and
// manages the permits a delivery needs before departure.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/document"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"go.uber.org/zap"
)

// TransactionLoader returns the sale a delivery fulfils
type TransactionLoader interface {
	Load(ctx context.Context, id uuid.UUID) (*sales.Transaction, error)
}

// Geocoder resolves a destination address
type Geocoder interface {
	Geocode(ctx context.Context, address string) (integration.GeocodeResult, error)
}

// Metrics receives GPS and staleness counters
type Metrics interface {
	GPSReading(outcome string)
	AutomationTriggered(toStatus string)
	SetStaleDeliveries(n int)
}

// Options tunes GPS automation and permit document links
type Options struct {
	Rules      delivery.AutomationRules
	StaleAfter time.Duration
	PresignTTL time.Duration
}

// Service handles deliveries and permits
type Service struct {
	repo         delivery.Repository
	permits      delivery.PermitRepository
	transactions TransactionLoader
	homes        catalog.HomeRepository
	factories    catalog.FactoryRepository
	opts         Options

	geocoder       Geocoder
	storage        document.ObjectStorage
	realtime       shared.RealtimePublisher
	metrics        Metrics
	eventPublisher shared.EventPublisher
	now            func() time.Time
	logger         *zap.Logger
}

// NewService creates a delivery service
func NewService(
	repo delivery.Repository,
	permits delivery.PermitRepository,
	transactions TransactionLoader,
	homes catalog.HomeRepository,
	factories catalog.FactoryRepository,
	opts Options,
	logger *zap.Logger,
) *Service {
	def := delivery.DefaultAutomationRules()
	if opts.Rules.DepartureRadiusMiles <= 0 {
		opts.Rules.DepartureRadiusMiles = def.DepartureRadiusMiles
	}
	if opts.Rules.ArrivalRadiusMiles <= 0 {
		opts.Rules.ArrivalRadiusMiles = def.ArrivalRadiusMiles
	}
	if opts.Rules.AverageSpeedMPH <= 0 {
		opts.Rules.AverageSpeedMPH = def.AverageSpeedMPH
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 2 * time.Hour
	}
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = 15 * time.Minute
	}
	return &Service{
		repo:         repo,
		permits:      permits,
		transactions: transactions,
		homes:        homes,
		factories:    factories,
		opts:         opts,
		metrics:      nopMetrics{},
		now:          time.Now,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetRealtime enables location pushes on delivery topics
func (s *Service) SetRealtime(realtime shared.RealtimePublisher) {
	s.realtime = realtime
}

// SetGeocoder enables address geocoding on create
func (s *Service) SetGeocoder(geocoder Geocoder) {
	s.geocoder = geocoder
}

// SetStorage enables permit document upload and download links
func (s *Service) SetStorage(storage document.ObjectStorage) {
	s.storage = storage
}

// SetMetrics sets the GPS metrics sink
func (s *Service) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

type nopMetrics struct{}

func (nopMetrics) GPSReading(string)          {}
func (nopMetrics) AutomationTriggered(string) {}
func (nopMetrics) SetStaleDeliveries(int)     {}

// Create opens a pending delivery for a signed transaction
func (s *Service) Create(ctx context.Context, in CreateInput) (*DTO, error) {
	t, err := s.transactions.Load(ctx, in.TransactionID)
	if err != nil {
		return nil, err
	}
	if !t.AcceptsDelivery() {
		return nil, shared.NewDomainError("INVALID_STATE", "A delivery needs a signed contract")
	}
	if _, err := s.repo.FindActiveByTransaction(ctx, t.ID); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Transaction already has an active delivery")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	line, ok := t.HomeLine()
	if !ok {
		return nil, shared.NewDomainError("HOME_REQUIRED", "Transaction has no home to deliver")
	}
	home, err := s.homes.FindByID(ctx, line.RefID)
	if err != nil {
		return nil, err
	}
	if home.FactoryID == nil {
		return nil, shared.NewDomainError("NO_FACTORY", "Home has no factory to ship from")
	}
	factory, err := s.factories.FindByID(ctx, *home.FactoryID)
	if err != nil {
		return nil, err
	}

	address := in.DestinationAddress
	if address == "" {
		address = t.DeliveryAddress
	}
	dest, err := s.destination(ctx, address, in)
	if err != nil {
		return nil, err
	}

	d, err := delivery.NewDelivery(t.ID, home.ID, t.CustomerID, home.FactoryID, factory.Location, address, dest)
	if err != nil {
		return nil, err
	}
	if in.DriverID != nil {
		if err := d.AssignDriver(*in.DriverID); err != nil {
			return nil, err
		}
	}
	if in.ScheduledFor != nil {
		if err := d.Schedule(*in.ScheduledFor); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	s.publish(ctx, d)
	s.logger.Info("Delivery created",
		zap.String("delivery_id", d.ID.String()),
		zap.String("transaction", t.Number),
		zap.String("status", string(d.Status)))
	return toDTO(d), nil
}

func (s *Service) destination(ctx context.Context, address string, in CreateInput) (shared.GeoPoint, error) {
	if in.DestinationLat != nil && in.DestinationLng != nil {
		p := shared.GeoPoint{Lat: *in.DestinationLat, Lng: *in.DestinationLng}
		return p, p.Validate()
	}
	if address == "" {
		return shared.GeoPoint{}, shared.NewDomainError("INVALID_ADDRESS", "Delivery address is required")
	}
	if s.geocoder == nil {
		return shared.GeoPoint{}, shared.NewDomainError("COORDINATES_REQUIRED", "Geocoding is not configured; supply destination coordinates")
	}
	res, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		return shared.GeoPoint{}, err
	}
	return res.Location, nil
}

// Get returns a delivery the actor may see
func (s *Service) Get(ctx context.Context, id uuid.UUID, a Actor) (*DTO, error) {
	d, err := s.load(ctx, id, a)
	if err != nil {
		return nil, err
	}
	return toDTO(d), nil
}

// List pages deliveries; customers and drivers see only their own
func (s *Service) List(ctx context.Context, in ListInput, a Actor) (shared.Paginated[DTO], error) {
	f, err := in.filter(a)
	if err != nil {
		return shared.Paginated[DTO]{}, err
	}
	rows, total, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[DTO]{}, err
	}
	items := make([]DTO, len(rows))
	for i, d := range rows {
		items[i] = *toDTO(d)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// AssignDriver sets the driver before departure
func (s *Service) AssignDriver(ctx context.Context, id uuid.UUID, in AssignDriverInput) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error { return d.AssignDriver(in.DriverID) })
}

// Schedule sets the departure time
func (s *Service) Schedule(ctx context.Context, id uuid.UUID, in ScheduleInput) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error { return d.Schedule(in.ScheduledFor) })
}

// Start departs manually; permits and driver are checked like the GPS path
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error {
		permits, err := s.permits.FindByDeliveryID(ctx, d.ID)
		if err != nil {
			return err
		}
		return d.Start(permits, s.now())
	})
}

// Delay flags the delivery as held up
func (s *Service) Delay(ctx context.Context, id uuid.UUID, in ReasonInput) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error { return d.Delay(in.Reason, s.now()) })
}

// MarkDelivered records the home on site
func (s *Service) MarkDelivered(ctx context.Context, id uuid.UUID) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error { return d.MarkDelivered(s.now()) })
}

// Complete closes the delivery; the sale completes through the event handler
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error { return d.Complete(s.now()) })
}

// Cancel abandons the delivery before departure
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, in ReasonInput) (*DTO, error) {
	return s.mutate(ctx, id, func(d *delivery.Delivery) error { return d.Cancel(in.Reason, s.now()) })
}

// RecordLocation applies a GPS reading from the assigned driver (or staff).
// Out-of-order readings are acknowledged but change nothing.
func (s *Service) RecordLocation(ctx context.Context, id uuid.UUID, in LocationInput, a Actor) (*LocationResult, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.isCustomer() || (a.isDriver() && (d.DriverID == nil || *d.DriverID != a.UserID)) {
		return nil, shared.ErrForbidden
	}
	now := s.now()
	at := now
	if in.RecordedAt != nil {
		at = *in.RecordedAt
	}
	permits, err := s.permits.FindByDeliveryID(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	point := shared.GeoPoint{Lat: in.Latitude, Lng: in.Longitude}
	res, err := d.RecordLocation(point, at, now, s.opts.Rules, permits)
	if err != nil {
		s.metrics.GPSReading("rejected")
		return nil, err
	}
	out := &LocationResult{
		Accepted:       res.Accepted,
		Started:        res.Started,
		Arriving:       res.Arriving,
		StartBlocked:   res.StartBlocked,
		RemainingMiles: res.RemainingMiles,
		ETA:            res.ETA,
	}
	if !res.Accepted {
		s.metrics.GPSReading("out_of_order")
		out.Delivery = toDTO(d)
		return out, nil
	}

	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	s.metrics.GPSReading("accepted")
	if res.Started {
		s.metrics.AutomationTriggered(string(delivery.StatusInTransit))
		s.logger.Info("Delivery departed", zap.String("delivery_id", d.ID.String()))
	}
	if res.StartBlocked != "" {
		s.logger.Warn("Departure detected but start blocked",
			zap.String("delivery_id", d.ID.String()),
			zap.String("reason", res.StartBlocked))
	}
	if res.Arriving {
		s.metrics.AutomationTriggered(string(delivery.StatusArriving))
		s.logger.Info("Delivery arriving", zap.String("delivery_id", d.ID.String()))
	}
	s.publish(ctx, d)
	s.pushLocation(ctx, d, point, at, res)

	out.Delivery = toDTO(d)
	return out, nil
}

func (s *Service) pushLocation(ctx context.Context, d *delivery.Delivery, p shared.GeoPoint, at time.Time, res delivery.LocationResult) {
	if s.realtime == nil {
		return
	}
	update := LocationUpdate{
		DeliveryID:     d.ID,
		Status:         d.Status,
		Location:       p,
		RecordedAt:     at,
		RemainingMiles: res.RemainingMiles,
		ETA:            res.ETA,
	}
	if err := s.realtime.Publish(ctx, shared.DeliveryTopic(d.ID.String()), "delivery.location", update); err != nil {
		s.logger.Warn("Failed to push delivery location", zap.String("delivery_id", d.ID.String()), zap.Error(err))
	}
}

// CanWatch reports whether the actor may subscribe to the delivery's topic
func (s *Service) CanWatch(ctx context.Context, id uuid.UUID, a Actor) bool {
	_, err := s.load(ctx, id, a)
	return err == nil
}

func (s *Service) load(ctx context.Context, id uuid.UUID, a Actor) (*delivery.Delivery, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case a.isCustomer() && d.CustomerID != a.UserID:
		return nil, shared.ErrNotFound
	case a.isDriver() && (d.DriverID == nil || *d.DriverID != a.UserID):
		return nil, shared.ErrNotFound
	}
	return d, nil
}

func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(*delivery.Delivery) error) (*DTO, error) {
	d, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := d.Status
	if err := fn(d); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, d); err != nil {
		return nil, err
	}
	s.publish(ctx, d)
	if from != d.Status {
		s.logger.Info("Delivery status changed",
			zap.String("delivery_id", d.ID.String()),
			zap.String("from", string(from)),
			zap.String("to", string(d.Status)))
	}
	return toDTO(d), nil
}

func (s *Service) publish(ctx context.Context, d *delivery.Delivery) {
	events := d.GetDomainEvents()
	d.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish delivery events", zap.String("delivery_id", d.ID.String()), zap.Error(err))
	}
}
