// Package sales runs carts, checkout and the transaction pipeline from draft
// estimate to completed sale.
package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MarkupResolver returns the markup percentage for a customer
type MarkupResolver interface {
	PercentageFor(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

// CatalogRepositories groups the catalog lookups pricing needs
type CatalogRepositories struct {
	Homes     catalog.HomeRepository
	Options   catalog.OptionRepository
	Services  catalog.ServiceRepository
	Factories catalog.FactoryRepository
}

// catalogEntry is what pricing needs to know about any catalog row
type catalogEntry struct {
	name   string
	base   decimal.Decimal
	active bool
	home   *catalog.MobileHome
	option *catalog.HomeOption
	svc    *catalog.ServiceOffering
}

type pricer struct {
	repos   CatalogRepositories
	markups MarkupResolver
}

func (p *pricer) markupFor(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	if p.markups == nil {
		return decimal.Zero, nil
	}
	return p.markups.PercentageFor(ctx, customerID)
}

// lookup returns nil with no error when the entry no longer exists
func (p *pricer) lookup(ctx context.Context, kind sales.ItemKind, refID uuid.UUID) (*catalogEntry, error) {
	var (
		e   *catalogEntry
		err error
	)
	switch kind {
	case sales.KindHome:
		var h *catalog.MobileHome
		if h, err = p.repos.Homes.FindByID(ctx, refID); err == nil {
			e = &catalogEntry{name: h.ModelName, base: h.BasePrice, active: h.Active, home: h}
		}
	case sales.KindOption:
		var o *catalog.HomeOption
		if o, err = p.repos.Options.FindByID(ctx, refID); err == nil {
			e = &catalogEntry{name: o.Name, base: o.BasePrice, active: o.Active, option: o}
		}
	case sales.KindService:
		var s *catalog.ServiceOffering
		if s, err = p.repos.Services.FindByID(ctx, refID); err == nil {
			e = &catalogEntry{name: s.Name, base: s.BasePrice, active: s.Active, svc: s}
		}
	default:
		return nil, shared.NewDomainError("INVALID_KIND", "Unknown item kind: "+string(kind))
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// lines prices items for customerID. Every item must still be available and
// options must fit the home among the items.
func (p *pricer) lines(ctx context.Context, customerID uuid.UUID, items []sales.CartItem) ([]sales.Line, error) {
	pct, err := p.markupFor(ctx, customerID)
	if err != nil {
		return nil, err
	}
	homeID := uuid.Nil
	for _, it := range items {
		if it.Kind == sales.KindHome {
			homeID = it.RefID
		}
	}
	out := make([]sales.Line, 0, len(items))
	for _, it := range items {
		e, err := p.lookup(ctx, it.Kind, it.RefID)
		if err != nil {
			return nil, err
		}
		if e == nil || !e.active {
			return nil, shared.NewDomainError("ITEM_UNAVAILABLE", "An item is no longer available: "+it.RefID.String())
		}
		if e.option != nil && homeID != uuid.Nil && !e.option.IsCompatibleWith(homeID) {
			return nil, shared.NewDomainError("OPTION_INCOMPATIBLE", e.name+" is not available for the selected home")
		}
		line, err := sales.NewLine(it.Kind, it.RefID, e.name, it.Quantity, e.base, pct)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}
