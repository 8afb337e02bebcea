package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// Filter narrows catalog listings; Search matches names
type Filter struct {
	shared.Filter
	Active *bool
}

// HomeRepository persists mobile homes
type HomeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*MobileHome, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*MobileHome, error)
	FindAll(ctx context.Context, filter Filter) ([]*MobileHome, int64, error)
	Save(ctx context.Context, home *MobileHome) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ServiceRepository persists service offerings
type ServiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ServiceOffering, error)
	FindAll(ctx context.Context, filter Filter) ([]*ServiceOffering, int64, error)
	Save(ctx context.Context, svc *ServiceOffering) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// OptionRepository persists home options
type OptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*HomeOption, error)
	FindAll(ctx context.Context, filter Filter) ([]*HomeOption, int64, error)
	Save(ctx context.Context, opt *HomeOption) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FactoryRepository persists factories
type FactoryRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Factory, error)
	FindAll(ctx context.Context, filter Filter) ([]*Factory, int64, error)
	Save(ctx context.Context, f *Factory) error
	Delete(ctx context.Context, id uuid.UUID) error
}
