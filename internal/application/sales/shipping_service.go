package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
)

// ShippingQuoter prices delivery from a factory to an address
type ShippingQuoter interface {
	Quote(ctx context.Context, origin shared.GeoPoint, section catalog.SectionType, address string) (integration.ShippingQuote, error)
}

// ShippingService quotes delivery of a home from its factory
type ShippingService struct {
	homes     catalog.HomeRepository
	factories catalog.FactoryRepository
	quoter    ShippingQuoter
}

// NewShippingService creates a shipping service
func NewShippingService(homes catalog.HomeRepository, factories catalog.FactoryRepository, quoter ShippingQuoter) *ShippingService {
	return &ShippingService{homes: homes, factories: factories, quoter: quoter}
}

// QuoteForHome quotes delivering homeID to address
func (s *ShippingService) QuoteForHome(ctx context.Context, homeID uuid.UUID, address string) (*integration.ShippingQuote, error) {
	if address == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Delivery address is required")
	}
	home, err := s.homes.FindByID(ctx, homeID)
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
	if factory.Location.IsZero() {
		return nil, shared.NewDomainError("NO_FACTORY_LOCATION", "Factory location is not set")
	}
	q, err := s.quoter.Quote(ctx, factory.Location, home.SectionType, address)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
