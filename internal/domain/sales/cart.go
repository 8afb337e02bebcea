package sales

import (
	"strings"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/shared"
)

// ItemKind identifies which catalog table a cart item or line refers to
type ItemKind string

const (
	KindHome    ItemKind = "home"
	KindOption  ItemKind = "option"
	KindService ItemKind = "service"
)

// IsValid reports whether k is a known item kind
func (k ItemKind) IsValid() bool {
	return k == KindHome || k == KindOption || k == KindService
}

// CartItem is a catalog reference with a quantity
type CartItem struct {
	ID       uuid.UUID
	Kind     ItemKind
	RefID    uuid.UUID
	Quantity int
}

// Cart is a customer's in-progress selection; one per customer
type Cart struct {
	shared.BaseAggregateRoot
	CustomerID      uuid.UUID
	Items           []CartItem
	DeliveryAddress string
}

// NewCart creates an empty cart for customerID
func NewCart(customerID uuid.UUID) (*Cart, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Cart requires a customer")
	}
	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Items:             make([]CartItem, 0),
	}, nil
}

// HomeID returns the home in the cart, if any
func (c *Cart) HomeID() (uuid.UUID, bool) {
	for _, it := range c.Items {
		if it.Kind == KindHome {
			return it.RefID, true
		}
	}
	return uuid.Nil, false
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddHome puts home into the cart. A cart holds at most one home.
func (c *Cart) AddHome(home *catalog.MobileHome) error {
	if !home.Active {
		return shared.NewDomainError("ITEM_INACTIVE", "Home is no longer available")
	}
	if existing, ok := c.HomeID(); ok {
		if existing == home.ID {
			return nil
		}
		return shared.NewDomainError("HOME_ALREADY_IN_CART", "Cart already contains a home; remove it first")
	}
	c.Items = append(c.Items, CartItem{ID: uuid.New(), Kind: KindHome, RefID: home.ID, Quantity: 1})
	c.Touch()
	return nil
}

// AddOption adds an option compatible with the home in the cart
func (c *Cart) AddOption(opt *catalog.HomeOption, qty int) error {
	if !opt.Active {
		return shared.NewDomainError("ITEM_INACTIVE", "Option is no longer available")
	}
	homeID, ok := c.HomeID()
	if !ok {
		return shared.NewDomainError("HOME_REQUIRED", "Add a home before adding options")
	}
	if !opt.IsCompatibleWith(homeID) {
		return shared.NewDomainError("OPTION_INCOMPATIBLE", "Option is not available for the selected home")
	}
	return c.addOrMerge(KindOption, opt.ID, qty)
}

// AddService adds a service offering
func (c *Cart) AddService(svc *catalog.ServiceOffering, qty int) error {
	if !svc.Active {
		return shared.NewDomainError("ITEM_INACTIVE", "Service is no longer available")
	}
	return c.addOrMerge(KindService, svc.ID, qty)
}

func (c *Cart) addOrMerge(kind ItemKind, refID uuid.UUID, qty int) error {
	if qty < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	for i := range c.Items {
		if c.Items[i].Kind == kind && c.Items[i].RefID == refID {
			c.Items[i].Quantity += qty
			c.Touch()
			return nil
		}
	}
	c.Items = append(c.Items, CartItem{ID: uuid.New(), Kind: kind, RefID: refID, Quantity: qty})
	c.Touch()
	return nil
}

// UpdateQuantity sets the quantity of the item referring to refID
func (c *Cart) UpdateQuantity(refID uuid.UUID, qty int) error {
	if qty < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	for i := range c.Items {
		if c.Items[i].RefID != refID {
			continue
		}
		if c.Items[i].Kind == KindHome && qty != 1 {
			return shared.NewDomainError("INVALID_QUANTITY", "A home quantity is always 1")
		}
		c.Items[i].Quantity = qty
		c.Touch()
		return nil
	}
	return shared.NewDomainError("ITEM_NOT_IN_CART", "Item is not in the cart")
}

// RemoveItem drops the item referring to refID. Removing the home drops its options too.
func (c *Cart) RemoveItem(refID uuid.UUID) error {
	idx := -1
	for i, it := range c.Items {
		if it.RefID == refID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.NewDomainError("ITEM_NOT_IN_CART", "Item is not in the cart")
	}
	removed := c.Items[idx]
	items := make([]CartItem, 0, len(c.Items))
	for i, it := range c.Items {
		if i == idx || (removed.Kind == KindHome && it.Kind == KindOption) {
			continue
		}
		items = append(items, it)
	}
	c.Items = items
	c.Touch()
	return nil
}

// Clear empties the cart but keeps the delivery address
func (c *Cart) Clear() {
	c.Items = make([]CartItem, 0)
	c.Touch()
}

// SetDeliveryAddress records where the home will be delivered
func (c *Cart) SetDeliveryAddress(address string) error {
	address = strings.TrimSpace(address)
	if len(address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	c.DeliveryAddress = address
	c.Touch()
	return nil
}
