// Package catalog manages homes, options, services and factories and prices
// them for the storefront.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarkupResolver returns the markup percentage for a user
type MarkupResolver interface {
	PercentageFor(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// ReferenceChecker reports whether a sale still points at a catalog entry
type ReferenceChecker interface {
	ReferencesCatalogItem(ctx context.Context, refID uuid.UUID) (bool, error)
}

// Service handles catalog operations
type Service struct {
	homes     catalog.HomeRepository
	options   catalog.OptionRepository
	services  catalog.ServiceRepository
	factories catalog.FactoryRepository
	markups   MarkupResolver
	refs      ReferenceChecker
	logger    *zap.Logger
}

// NewService creates a catalog service
func NewService(
	homes catalog.HomeRepository,
	options catalog.OptionRepository,
	services catalog.ServiceRepository,
	factories catalog.FactoryRepository,
	markups MarkupResolver,
	refs ReferenceChecker,
	logger *zap.Logger,
) *Service {
	return &Service{
		homes:     homes,
		options:   options,
		services:  services,
		factories: factories,
		markups:   markups,
		refs:      refs,
		logger:    logger,
	}
}

func (s *Service) markupFor(ctx context.Context, v Viewer) (decimal.Decimal, error) {
	if s.markups == nil {
		return decimal.Zero, nil
	}
	return s.markups.PercentageFor(ctx, v.UserID)
}

func price(base, pct decimal.Decimal, v Viewer) Pricing {
	p := Pricing{Price: pricing.Apply(base, pct)}
	if v.Staff {
		b, m := base, pct
		p.BasePrice = &b
		p.MarkupPercent = &m
	}
	return p
}

// visible hides inactive entries from non-staff
func visible(active bool, v Viewer) error {
	if !active && !v.Staff {
		return shared.ErrNotFound
	}
	return nil
}

// remove deletes an entry unless a transaction references it, in which case it is deactivated
func (s *Service) remove(ctx context.Context, id uuid.UUID, del func() error, deactivate func() error) (RemoveResult, error) {
	if s.refs != nil {
		referenced, err := s.refs.ReferencesCatalogItem(ctx, id)
		if err != nil {
			return RemoveResult{}, err
		}
		if referenced {
			if err := deactivate(); err != nil {
				return RemoveResult{}, err
			}
			s.logger.Info("Catalog entry referenced by a transaction, deactivated instead of deleted", zap.String("id", id.String()))
			return RemoveResult{Deactivated: true}, nil
		}
	}
	if err := del(); err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Deleted: true}, nil
}

// --- homes ---

func toHomeDTO(h *catalog.MobileHome, pct decimal.Decimal, v Viewer) HomeDTO {
	return HomeDTO{
		ID:           h.ID,
		ModelName:    h.ModelName,
		Manufacturer: h.Manufacturer,
		Series:       h.Series,
		SectionType:  string(h.SectionType),
		Bedrooms:     h.Bedrooms,
		Bathrooms:    h.Bathrooms,
		SquareFeet:   h.SquareFeet,
		LengthFt:     h.LengthFt,
		WidthFt:      h.WidthFt,
		FactoryID:    h.FactoryID,
		Description:  h.Description,
		ImageURLs:    h.ImageURLs,
		Active:       h.Active,
		Pricing:      price(h.BasePrice, pct, v),
		UpdatedAt:    h.UpdatedAt,
	}
}

func (s *Service) checkFactory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.factories.FindByID(ctx, *id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("INVALID_FACTORY", "Factory not found")
		}
		return err
	}
	return nil
}

// CreateHome adds a home model
func (s *Service) CreateHome(ctx context.Context, in HomeInput) (*HomeDTO, error) {
	if err := s.checkFactory(ctx, in.FactoryID); err != nil {
		return nil, err
	}
	home, err := catalog.NewMobileHome(in.spec())
	if err != nil {
		return nil, err
	}
	if err := s.homes.Save(ctx, home); err != nil {
		return nil, err
	}
	dto := toHomeDTO(home, decimal.Zero, Viewer{Staff: true})
	return &dto, nil
}

// UpdateHome replaces a home's attributes
func (s *Service) UpdateHome(ctx context.Context, id uuid.UUID, in HomeInput) (*HomeDTO, error) {
	if err := s.checkFactory(ctx, in.FactoryID); err != nil {
		return nil, err
	}
	home, err := s.homes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := home.Update(in.spec()); err != nil {
		return nil, err
	}
	if err := s.homes.Save(ctx, home); err != nil {
		return nil, err
	}
	dto := toHomeDTO(home, decimal.Zero, Viewer{Staff: true})
	return &dto, nil
}

// GetHome returns a home priced for v
func (s *Service) GetHome(ctx context.Context, id uuid.UUID, v Viewer) (*HomeDTO, error) {
	home, err := s.homes.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visible(home.Active, v); err != nil {
		return nil, err
	}
	pct, err := s.markupFor(ctx, v)
	if err != nil {
		return nil, err
	}
	dto := toHomeDTO(home, pct, v)
	return &dto, nil
}

// ListHomes pages through homes priced for v
func (s *Service) ListHomes(ctx context.Context, in ListInput, v Viewer) (shared.Paginated[HomeDTO], error) {
	f := in.filter(v)
	homes, total, err := s.homes.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[HomeDTO]{}, err
	}
	pct, err := s.markupFor(ctx, v)
	if err != nil {
		return shared.Paginated[HomeDTO]{}, err
	}
	items := make([]HomeDTO, len(homes))
	for i, h := range homes {
		items[i] = toHomeDTO(h, pct, v)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// SetHomeActive shows or hides a home
func (s *Service) SetHomeActive(ctx context.Context, id uuid.UUID, active bool) error {
	home, err := s.homes.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if active {
		home.Activate()
	} else {
		home.Deactivate()
	}
	return s.homes.Save(ctx, home)
}

// DeleteHome removes a home, or deactivates it when a transaction references it
func (s *Service) DeleteHome(ctx context.Context, id uuid.UUID) (RemoveResult, error) {
	return s.remove(ctx, id,
		func() error { return s.homes.Delete(ctx, id) },
		func() error { return s.SetHomeActive(ctx, id, false) })
}

// --- options ---

func toOptionDTO(o *catalog.HomeOption, pct decimal.Decimal, v Viewer) OfferingDTO {
	return OfferingDTO{
		ID:                o.ID,
		Name:              o.Name,
		Category:          string(o.Category),
		Description:       o.Description,
		CompatibleHomeIDs: o.CompatibleHomeIDs,
		Active:            o.Active,
		Pricing:           price(o.BasePrice, pct, v),
		UpdatedAt:         o.UpdatedAt,
	}
}

// CreateOption adds a home option
func (s *Service) CreateOption(ctx context.Context, in OfferingInput) (*OfferingDTO, error) {
	opt, err := catalog.NewHomeOption(in.Name, catalog.OptionCategory(in.Category), in.Description, in.BasePrice, in.CompatibleHomeIDs)
	if err != nil {
		return nil, err
	}
	if err := s.options.Save(ctx, opt); err != nil {
		return nil, err
	}
	dto := toOptionDTO(opt, decimal.Zero, Viewer{Staff: true})
	return &dto, nil
}

// UpdateOption replaces an option's attributes
func (s *Service) UpdateOption(ctx context.Context, id uuid.UUID, in OfferingInput) (*OfferingDTO, error) {
	opt, err := s.options.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := opt.Update(in.Name, catalog.OptionCategory(in.Category), in.Description, in.BasePrice, in.CompatibleHomeIDs); err != nil {
		return nil, err
	}
	if err := s.options.Save(ctx, opt); err != nil {
		return nil, err
	}
	dto := toOptionDTO(opt, decimal.Zero, Viewer{Staff: true})
	return &dto, nil
}

// GetOption returns an option priced for v
func (s *Service) GetOption(ctx context.Context, id uuid.UUID, v Viewer) (*OfferingDTO, error) {
	opt, err := s.options.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visible(opt.Active, v); err != nil {
		return nil, err
	}
	pct, err := s.markupFor(ctx, v)
	if err != nil {
		return nil, err
	}
	dto := toOptionDTO(opt, pct, v)
	return &dto, nil
}

// ListOptions pages through options priced for v. A non-nil homeID keeps
// only options compatible with that home.
func (s *Service) ListOptions(ctx context.Context, in ListInput, homeID *uuid.UUID, v Viewer) (shared.Paginated[OfferingDTO], error) {
	f := in.filter(v)
	opts, total, err := s.options.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[OfferingDTO]{}, err
	}
	pct, err := s.markupFor(ctx, v)
	if err != nil {
		return shared.Paginated[OfferingDTO]{}, err
	}
	items := make([]OfferingDTO, 0, len(opts))
	for _, o := range opts {
		if homeID != nil && !o.IsCompatibleWith(*homeID) {
			continue
		}
		items = append(items, toOptionDTO(o, pct, v))
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// SetOptionActive shows or hides an option
func (s *Service) SetOptionActive(ctx context.Context, id uuid.UUID, active bool) error {
	opt, err := s.options.FindByID(ctx, id)
	if err != nil {
		return err
	}
	opt.SetActive(active)
	return s.options.Save(ctx, opt)
}

// DeleteOption removes an option, or deactivates it when referenced
func (s *Service) DeleteOption(ctx context.Context, id uuid.UUID) (RemoveResult, error) {
	return s.remove(ctx, id,
		func() error { return s.options.Delete(ctx, id) },
		func() error { return s.SetOptionActive(ctx, id, false) })
}

// --- services ---

func toServiceDTO(o *catalog.ServiceOffering, pct decimal.Decimal, v Viewer) OfferingDTO {
	return OfferingDTO{
		ID:          o.ID,
		Name:        o.Name,
		Category:    string(o.Category),
		Description: o.Description,
		Active:      o.Active,
		Pricing:     price(o.BasePrice, pct, v),
		UpdatedAt:   o.UpdatedAt,
	}
}

// CreateServiceOffering adds a dealership service
func (s *Service) CreateServiceOffering(ctx context.Context, in OfferingInput) (*OfferingDTO, error) {
	svc, err := catalog.NewServiceOffering(in.Name, catalog.ServiceCategory(in.Category), in.Description, in.BasePrice)
	if err != nil {
		return nil, err
	}
	if err := s.services.Save(ctx, svc); err != nil {
		return nil, err
	}
	dto := toServiceDTO(svc, decimal.Zero, Viewer{Staff: true})
	return &dto, nil
}

// UpdateServiceOffering replaces a service's attributes
func (s *Service) UpdateServiceOffering(ctx context.Context, id uuid.UUID, in OfferingInput) (*OfferingDTO, error) {
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := svc.Update(in.Name, catalog.ServiceCategory(in.Category), in.Description, in.BasePrice); err != nil {
		return nil, err
	}
	if err := s.services.Save(ctx, svc); err != nil {
		return nil, err
	}
	dto := toServiceDTO(svc, decimal.Zero, Viewer{Staff: true})
	return &dto, nil
}

// GetServiceOffering returns a service priced for v
func (s *Service) GetServiceOffering(ctx context.Context, id uuid.UUID, v Viewer) (*OfferingDTO, error) {
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visible(svc.Active, v); err != nil {
		return nil, err
	}
	pct, err := s.markupFor(ctx, v)
	if err != nil {
		return nil, err
	}
	dto := toServiceDTO(svc, pct, v)
	return &dto, nil
}

// ListServiceOfferings pages through services priced for v
func (s *Service) ListServiceOfferings(ctx context.Context, in ListInput, v Viewer) (shared.Paginated[OfferingDTO], error) {
	f := in.filter(v)
	svcs, total, err := s.services.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[OfferingDTO]{}, err
	}
	pct, err := s.markupFor(ctx, v)
	if err != nil {
		return shared.Paginated[OfferingDTO]{}, err
	}
	items := make([]OfferingDTO, len(svcs))
	for i, o := range svcs {
		items[i] = toServiceDTO(o, pct, v)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// SetServiceOfferingActive shows or hides a service
func (s *Service) SetServiceOfferingActive(ctx context.Context, id uuid.UUID, active bool) error {
	svc, err := s.services.FindByID(ctx, id)
	if err != nil {
		return err
	}
	svc.SetActive(active)
	return s.services.Save(ctx, svc)
}

// DeleteServiceOffering removes a service, or deactivates it when referenced
func (s *Service) DeleteServiceOffering(ctx context.Context, id uuid.UUID) (RemoveResult, error) {
	return s.remove(ctx, id,
		func() error { return s.services.Delete(ctx, id) },
		func() error { return s.SetServiceOfferingActive(ctx, id, false) })
}

// --- factories ---

// CreateFactory adds a factory
func (s *Service) CreateFactory(ctx context.Context, in FactoryInput) (*FactoryDTO, error) {
	f, err := catalog.NewFactory(in.spec())
	if err != nil {
		return nil, err
	}
	if err := s.factories.Save(ctx, f); err != nil {
		return nil, err
	}
	dto := toFactoryDTO(f)
	return &dto, nil
}

// UpdateFactory replaces a factory's attributes
func (s *Service) UpdateFactory(ctx context.Context, id uuid.UUID, in FactoryInput) (*FactoryDTO, error) {
	f, err := s.factories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Update(in.spec()); err != nil {
		return nil, err
	}
	if err := s.factories.Save(ctx, f); err != nil {
		return nil, err
	}
	dto := toFactoryDTO(f)
	return &dto, nil
}

// GetFactory returns one factory
func (s *Service) GetFactory(ctx context.Context, id uuid.UUID) (*FactoryDTO, error) {
	f, err := s.factories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toFactoryDTO(f)
	return &dto, nil
}

// ListFactories pages through factories
func (s *Service) ListFactories(ctx context.Context, in ListInput) (shared.Paginated[FactoryDTO], error) {
	f := in.filter(Viewer{Staff: true})
	rows, total, err := s.factories.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[FactoryDTO]{}, err
	}
	items := make([]FactoryDTO, len(rows))
	for i, r := range rows {
		items[i] = toFactoryDTO(r)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// SetFactoryActive toggles a factory
func (s *Service) SetFactoryActive(ctx context.Context, id uuid.UUID, active bool) error {
	f, err := s.factories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	f.SetActive(active)
	return s.factories.Save(ctx, f)
}

// DeleteFactory removes a factory. Factories homes still point at are
// deactivated instead.
func (s *Service) DeleteFactory(ctx context.Context, id uuid.UUID) (RemoveResult, error) {
	active := true
	homes, _, err := s.homes.FindAll(ctx, catalog.Filter{Filter: shared.Filter{Page: 1, PageSize: 1000}, Active: &active})
	if err != nil {
		return RemoveResult{}, err
	}
	for _, h := range homes {
		if h.FactoryID != nil && *h.FactoryID == id {
			if err := s.SetFactoryActive(ctx, id, false); err != nil {
				return RemoveResult{}, err
			}
			return RemoveResult{Deactivated: true}, nil
		}
	}
	if err := s.factories.Delete(ctx, id); err != nil {
		return RemoveResult{}, err
	}
	return RemoveResult{Deleted: true}, nil
}
