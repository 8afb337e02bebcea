package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/document"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of delivery.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context, filter delivery.Filter) ([]*delivery.Delivery, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*delivery.Delivery), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) FindActiveByTransaction(ctx context.Context, transactionID uuid.UUID) (*delivery.Delivery, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Delivery), args.Error(1)
}

func (m *MockRepository) FindInTransit(ctx context.Context) ([]*delivery.Delivery, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*delivery.Delivery), args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, d *delivery.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// MockPermitRepository is a mock implementation of delivery.PermitRepository
type MockPermitRepository struct {
	mock.Mock
}

func (m *MockPermitRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Permit, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*delivery.Permit), args.Error(1)
}

func (m *MockPermitRepository) FindByDeliveryID(ctx context.Context, deliveryID uuid.UUID) ([]*delivery.Permit, error) {
	args := m.Called(ctx, deliveryID)
	return args.Get(0).([]*delivery.Permit), args.Error(1)
}

func (m *MockPermitRepository) FindExpiring(ctx context.Context, now time.Time) ([]*delivery.Permit, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]*delivery.Permit), args.Error(1)
}

func (m *MockPermitRepository) Save(ctx context.Context, p *delivery.Permit) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type transactionMap map[uuid.UUID]*sales.Transaction

func (m transactionMap) Load(_ context.Context, id uuid.UUID) (*sales.Transaction, error) {
	if t, ok := m[id]; ok {
		return t, nil
	}
	return nil, shared.ErrNotFound
}

type homeMap map[uuid.UUID]*catalog.MobileHome

func (m homeMap) FindByID(_ context.Context, id uuid.UUID) (*catalog.MobileHome, error) {
	if h, ok := m[id]; ok {
		return h, nil
	}
	return nil, shared.ErrNotFound
}
func (m homeMap) FindByIDs(context.Context, []uuid.UUID) ([]*catalog.MobileHome, error) {
	return nil, nil
}
func (m homeMap) FindAll(context.Context, catalog.Filter) ([]*catalog.MobileHome, int64, error) {
	return nil, 0, nil
}
func (m homeMap) Save(context.Context, *catalog.MobileHome) error { return nil }
func (m homeMap) Delete(context.Context, uuid.UUID) error         { return nil }

type factoryMap map[uuid.UUID]*catalog.Factory

func (m factoryMap) FindByID(_ context.Context, id uuid.UUID) (*catalog.Factory, error) {
	if f, ok := m[id]; ok {
		return f, nil
	}
	return nil, shared.ErrNotFound
}
func (m factoryMap) FindAll(context.Context, catalog.Filter) ([]*catalog.Factory, int64, error) {
	return nil, 0, nil
}
func (m factoryMap) Save(context.Context, *catalog.Factory) error { return nil }
func (m factoryMap) Delete(context.Context, uuid.UUID) error      { return nil }

type stubGeocoder struct {
	result integration.GeocodeResult
	err    error
	calls  int
}

func (g *stubGeocoder) Geocode(context.Context, string) (integration.GeocodeResult, error) {
	g.calls++
	return g.result, g.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type pushed struct {
	topic   string
	event   string
	payload any
}

type recordingRealtime struct {
	messages []pushed
}

func (r *recordingRealtime) Publish(_ context.Context, topic, event string, payload any) error {
	r.messages = append(r.messages, pushed{topic: topic, event: event, payload: payload})
	return nil
}

type countingMetrics struct {
	readings    map[string]int
	automations []string
	stale       int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{readings: map[string]int{}, stale: -1}
}

func (m *countingMetrics) GPSReading(outcome string)          { m.readings[outcome]++ }
func (m *countingMetrics) AutomationTriggered(status string)  { m.automations = append(m.automations, status) }
func (m *countingMetrics) SetStaleDeliveries(n int)           { m.stale = n }

type presignStorage struct {
	uploads   []string
	downloads []string
}

func (s *presignStorage) PresignUpload(_ context.Context, key, _ string, ttl time.Duration) (document.PresignedURL, error) {
	s.uploads = append(s.uploads, key)
	return document.PresignedURL{URL: "https://bucket.test/" + key + "?X-Amz-Signature=up", Method: "PUT", Key: key, ExpiresAt: time.Now().Add(ttl)}, nil
}
func (s *presignStorage) PresignDownload(_ context.Context, key string, ttl time.Duration) (document.PresignedURL, error) {
	s.downloads = append(s.downloads, key)
	return document.PresignedURL{URL: "https://bucket.test/" + key + "?X-Amz-Signature=down", Key: key, ExpiresAt: time.Now().Add(ttl)}, nil
}
func (s *presignStorage) Put(context.Context, string, []byte, string) error { return nil }
func (s *presignStorage) Delete(context.Context, string) error              { return nil }
func (s *presignStorage) Exists(context.Context, string) (bool, error)      { return false, nil }

type stubCompleter struct {
	got []uuid.UUID
	err error
}

func (c *stubCompleter) CompleteForDelivery(_ context.Context, id uuid.UUID) error {
	c.got = append(c.got, id)
	return c.err
}
