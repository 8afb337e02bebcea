package sales

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/document"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/homestead/backend/internal/infrastructure/printing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockTransactionRepository struct{ mock.Mock }

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByNumber(ctx context.Context, number string) (*sales.Transaction, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByEnvelopeID(ctx context.Context, envelopeID string) (*sales.Transaction, error) {
	args := m.Called(ctx, envelopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter sales.TransactionFilter) ([]*sales.Transaction, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*sales.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionRepository) Save(ctx context.Context, t *sales.Transaction) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockTransactionRepository) NextSequence(ctx context.Context, year int) (int, error) {
	args := m.Called(ctx, year)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) ReferencesCatalogItem(ctx context.Context, refID uuid.UUID) (bool, error) {
	args := m.Called(ctx, refID)
	return args.Bool(0), args.Error(1)
}

type MockCartRepository struct{ mock.Mock }

func (m *MockCartRepository) FindByCustomerID(ctx context.Context, customerID uuid.UUID) (*sales.Cart, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Cart), args.Error(1)
}

func (m *MockCartRepository) Save(ctx context.Context, cart *sales.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

// catalogFake serves every catalog table from maps
type catalogFake struct {
	homes     map[uuid.UUID]*catalog.MobileHome
	options   map[uuid.UUID]*catalog.HomeOption
	services  map[uuid.UUID]*catalog.ServiceOffering
	factories map[uuid.UUID]*catalog.Factory
}

func newCatalogFake() *catalogFake {
	return &catalogFake{
		homes:     map[uuid.UUID]*catalog.MobileHome{},
		options:   map[uuid.UUID]*catalog.HomeOption{},
		services:  map[uuid.UUID]*catalog.ServiceOffering{},
		factories: map[uuid.UUID]*catalog.Factory{},
	}
}

func (c *catalogFake) repos() CatalogRepositories {
	return CatalogRepositories{
		Homes:     homeRepo{c},
		Options:   optionRepo{c},
		Services:  serviceRepo{c},
		Factories: factoryRepo{c},
	}
}

func (c *catalogFake) addHome(t interface{ Fatal(...any) }, price int64, factoryID *uuid.UUID) *catalog.MobileHome {
	h, err := catalog.NewMobileHome(catalog.HomeSpec{
		ModelName:   "Cedar 3068",
		SectionType: catalog.SectionDouble,
		Bedrooms:    3,
		Bathrooms:   decimal.NewFromInt(2),
		SquareFeet:  1600,
		LengthFt:    68,
		WidthFt:     30,
		BasePrice:   decimal.NewFromInt(price),
		FactoryID:   factoryID,
	})
	if err != nil {
		t.Fatal(err)
	}
	c.homes[h.ID] = h
	return h
}

func (c *catalogFake) addOption(t interface{ Fatal(...any) }, price int64, compatible ...uuid.UUID) *catalog.HomeOption {
	o, err := catalog.NewHomeOption("Covered porch", catalog.OptionExterior, "", decimal.NewFromInt(price), compatible)
	if err != nil {
		t.Fatal(err)
	}
	c.options[o.ID] = o
	return o
}

func (c *catalogFake) addService(t interface{ Fatal(...any) }, price int64) *catalog.ServiceOffering {
	s, err := catalog.NewServiceOffering("Skirting", catalog.ServiceSetup, "", decimal.NewFromInt(price))
	if err != nil {
		t.Fatal(err)
	}
	c.services[s.ID] = s
	return s
}

func find[T any](m map[uuid.UUID]*T, id uuid.UUID) (*T, error) {
	if v, ok := m[id]; ok {
		return v, nil
	}
	return nil, shared.ErrNotFound
}

type homeRepo struct{ c *catalogFake }

func (r homeRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.MobileHome, error) {
	return find(r.c.homes, id)
}
func (r homeRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*catalog.MobileHome, error) {
	var out []*catalog.MobileHome
	for _, id := range ids {
		if h, ok := r.c.homes[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}
func (r homeRepo) FindAll(context.Context, catalog.Filter) ([]*catalog.MobileHome, int64, error) {
	return nil, 0, nil
}
func (r homeRepo) Save(context.Context, *catalog.MobileHome) error { return nil }
func (r homeRepo) Delete(context.Context, uuid.UUID) error         { return nil }

type optionRepo struct{ c *catalogFake }

func (r optionRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.HomeOption, error) {
	return find(r.c.options, id)
}
func (r optionRepo) FindAll(context.Context, catalog.Filter) ([]*catalog.HomeOption, int64, error) {
	return nil, 0, nil
}
func (r optionRepo) Save(context.Context, *catalog.HomeOption) error { return nil }
func (r optionRepo) Delete(context.Context, uuid.UUID) error         { return nil }

type serviceRepo struct{ c *catalogFake }

func (r serviceRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.ServiceOffering, error) {
	return find(r.c.services, id)
}
func (r serviceRepo) FindAll(context.Context, catalog.Filter) ([]*catalog.ServiceOffering, int64, error) {
	return nil, 0, nil
}
func (r serviceRepo) Save(context.Context, *catalog.ServiceOffering) error { return nil }
func (r serviceRepo) Delete(context.Context, uuid.UUID) error              { return nil }

type factoryRepo struct{ c *catalogFake }

func (r factoryRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.Factory, error) {
	return find(r.c.factories, id)
}
func (r factoryRepo) FindAll(context.Context, catalog.Filter) ([]*catalog.Factory, int64, error) {
	return nil, 0, nil
}
func (r factoryRepo) Save(context.Context, *catalog.Factory) error { return nil }
func (r factoryRepo) Delete(context.Context, uuid.UUID) error      { return nil }

type fixedMarkup decimal.Decimal

func (f fixedMarkup) PercentageFor(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return decimal.Decimal(f), nil
}

type userMap map[uuid.UUID]*identity.User

func (u userMap) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	return find(u, id)
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

type stubQuoter struct {
	quote integration.ShippingQuote
	err   error
	calls int
}

func (q *stubQuoter) Quote(context.Context, shared.GeoPoint, catalog.SectionType, string) (integration.ShippingQuote, error) {
	q.calls++
	return q.quote, q.err
}

type stubPrinter struct {
	pdf []byte
	err error
	got printing.Estimate
}

func (p *stubPrinter) PrintEstimate(_ context.Context, e printing.Estimate) ([]byte, error) {
	p.got = e
	return p.pdf, p.err
}

type memoryStorage struct {
	objects map[string][]byte
}

func (s *memoryStorage) PresignUpload(context.Context, string, string, time.Duration) (document.PresignedURL, error) {
	return document.PresignedURL{}, nil
}
func (s *memoryStorage) PresignDownload(context.Context, string, time.Duration) (document.PresignedURL, error) {
	return document.PresignedURL{}, nil
}
func (s *memoryStorage) Put(_ context.Context, key string, data []byte, _ string) error {
	if s.objects == nil {
		s.objects = map[string][]byte{}
	}
	s.objects[key] = data
	return nil
}
func (s *memoryStorage) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}
func (s *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.objects[key]
	return ok, nil
}

type stubContracts struct {
	envelopeID string
	err        error
	got        integration.EnvelopeRequest
}

func (c *stubContracts) SendEnvelope(_ context.Context, in integration.EnvelopeRequest) (string, error) {
	c.got = in
	return c.envelopeID, c.err
}
