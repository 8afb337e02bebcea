package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/sales"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService manages a customer's cart and turns it into an estimate
type CartService struct {
	carts        sales.CartRepository
	pricer       *pricer
	transactions *TransactionService
	logger       *zap.Logger
}

// NewCartService creates a cart service. Checkout goes through transactions.
func NewCartService(
	carts sales.CartRepository,
	catalogRepos CatalogRepositories,
	markups MarkupResolver,
	transactions *TransactionService,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		carts:        carts,
		pricer:       &pricer{repos: catalogRepos, markups: markups},
		transactions: transactions,
		logger:       logger,
	}
}

func (s *CartService) loadOrNew(ctx context.Context, customerID uuid.UUID) (*sales.Cart, error) {
	cart, err := s.carts.FindByCustomerID(ctx, customerID)
	if errors.Is(err, shared.ErrNotFound) {
		return sales.NewCart(customerID)
	}
	return cart, err
}

// GetCart returns the priced cart; a customer without one gets an empty cart
func (s *CartService) GetCart(ctx context.Context, customerID uuid.UUID) (*CartView, error) {
	cart, err := s.loadOrNew(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

func (s *CartService) view(ctx context.Context, cart *sales.Cart) (*CartView, error) {
	pct, err := s.pricer.markupFor(ctx, cart.CustomerID)
	if err != nil {
		return nil, err
	}
	v := &CartView{
		CustomerID:      cart.CustomerID,
		Items:           make([]CartItemView, 0, len(cart.Items)),
		DeliveryAddress: cart.DeliveryAddress,
		Subtotal:        decimal.Zero,
		UpdatedAt:       cart.UpdatedAt,
	}
	for _, it := range cart.Items {
		item := CartItemView{ID: it.ID, Kind: it.Kind, RefID: it.RefID, Quantity: it.Quantity}
		e, err := s.pricer.lookup(ctx, it.Kind, it.RefID)
		if err != nil {
			return nil, err
		}
		if e != nil {
			item.Name = e.name
			item.Available = e.active
			if line, lerr := sales.NewLine(it.Kind, it.RefID, e.name, it.Quantity, e.base, pct); lerr == nil {
				item.UnitPrice = line.UnitPrice
				item.LineTotal = line.LineTotal
			}
		}
		if item.Available {
			v.Subtotal = v.Subtotal.Add(item.LineTotal)
		}
		v.Items = append(v.Items, item)
	}
	v.Subtotal = v.Subtotal.Round(2)
	return v, nil
}

// AddItem adds a home, option or service to the cart
func (s *CartService) AddItem(ctx context.Context, customerID uuid.UUID, in AddItemInput) (*CartView, error) {
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	cart, err := s.loadOrNew(ctx, customerID)
	if err != nil {
		return nil, err
	}
	e, err := s.pricer.lookup(ctx, in.Kind, in.RefID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, shared.ErrNotFound
	}
	switch {
	case e.home != nil:
		err = cart.AddHome(e.home)
	case e.option != nil:
		err = cart.AddOption(e.option, in.Quantity)
	case e.svc != nil:
		err = cart.AddService(e.svc, in.Quantity)
	}
	if err != nil {
		return nil, err
	}
	return s.save(ctx, cart)
}

// UpdateQuantity sets the quantity of a cart item
func (s *CartService) UpdateQuantity(ctx context.Context, customerID, refID uuid.UUID, qty int) (*CartView, error) {
	return s.change(ctx, customerID, func(c *sales.Cart) error { return c.UpdateQuantity(refID, qty) })
}

// RemoveItem drops an item; removing the home also drops its options
func (s *CartService) RemoveItem(ctx context.Context, customerID, refID uuid.UUID) (*CartView, error) {
	return s.change(ctx, customerID, func(c *sales.Cart) error { return c.RemoveItem(refID) })
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, customerID uuid.UUID) (*CartView, error) {
	return s.change(ctx, customerID, func(c *sales.Cart) error {
		c.Clear()
		return nil
	})
}

// SetDeliveryAddress records where the home should go
func (s *CartService) SetDeliveryAddress(ctx context.Context, customerID uuid.UUID, address string) (*CartView, error) {
	return s.change(ctx, customerID, func(c *sales.Cart) error { return c.SetDeliveryAddress(address) })
}

func (s *CartService) change(ctx context.Context, customerID uuid.UUID, fn func(*sales.Cart) error) (*CartView, error) {
	cart, err := s.loadOrNew(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	return s.save(ctx, cart)
}

func (s *CartService) save(ctx context.Context, cart *sales.Cart) (*CartView, error) {
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart)
}

// Checkout creates a draft estimate from the cart and empties it. The input
// address overrides the one stored on the cart.
func (s *CartService) Checkout(ctx context.Context, customerID uuid.UUID, in CheckoutInput) (*TransactionDTO, error) {
	cart, err := s.carts.FindByCustomerID(ctx, customerID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError("CART_EMPTY", "Cart is empty")
	}
	if err != nil {
		return nil, err
	}
	if _, ok := cart.HomeID(); !ok {
		return nil, shared.NewDomainError("HOME_REQUIRED", "Checkout requires a home in the cart")
	}
	if in.DeliveryAddress != "" {
		if err := cart.SetDeliveryAddress(in.DeliveryAddress); err != nil {
			return nil, err
		}
	}
	lines, err := s.pricer.lines(ctx, customerID, cart.Items)
	if err != nil {
		return nil, err
	}
	t, err := s.transactions.createDraft(ctx, customerID, nil, lines, cart.DeliveryAddress, in.Notes)
	if err != nil {
		return nil, err
	}

	cart.Clear()
	if err := s.carts.Save(ctx, cart); err != nil {
		// estimate already stored
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("customer_id", customerID.String()),
			zap.String("number", t.Number),
			zap.Error(err))
	}
	return toTransactionDTO(t, Actor{UserID: customerID, Role: identity.RoleCustomer}), nil
}
