package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ServiceCategory groups dealership services
type ServiceCategory string

const (
	ServiceSetup      ServiceCategory = "setup"
	ServiceFoundation ServiceCategory = "foundation"
	ServiceUtility    ServiceCategory = "utility"
	ServiceTransport  ServiceCategory = "transport"
	ServicePermit     ServiceCategory = "permit"
	ServiceOther      ServiceCategory = "other"
)

// IsValid reports whether c is a known service category
func (c ServiceCategory) IsValid() bool {
	switch c {
	case ServiceSetup, ServiceFoundation, ServiceUtility, ServiceTransport, ServicePermit, ServiceOther:
		return true
	}
	return false
}

// ServiceOffering is a service sold alongside a home (setup, foundation, permits...)
type ServiceOffering struct {
	shared.BaseAggregateRoot
	Name        string
	Category    ServiceCategory
	Description string
	BasePrice   decimal.Decimal
	Active      bool
}

// NewServiceOffering creates an active service
func NewServiceOffering(name string, category ServiceCategory, description string, price decimal.Decimal) (*ServiceOffering, error) {
	s := &ServiceOffering{BaseAggregateRoot: shared.NewBaseAggregateRoot(), Active: true}
	if err := s.apply(name, category, description, price); err != nil {
		return nil, err
	}
	return s, nil
}

// Update replaces the service's attributes
func (s *ServiceOffering) Update(name string, category ServiceCategory, description string, price decimal.Decimal) error {
	if err := s.apply(name, category, description, price); err != nil {
		return err
	}
	s.Touch()
	s.IncrementVersion()
	return nil
}

func (s *ServiceOffering) apply(name string, category ServiceCategory, description string, price decimal.Decimal) error {
	name = strings.TrimSpace(name)
	if err := validateName(name, "service name"); err != nil {
		return err
	}
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", "Unknown service category: "+string(category))
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	s.Name = name
	s.Category = category
	s.Description = description
	s.BasePrice = price.Round(2)
	return nil
}

// SetActive toggles storefront visibility
func (s *ServiceOffering) SetActive(active bool) {
	if s.Active == active {
		return
	}
	s.Active = active
	s.Touch()
	s.IncrementVersion()
}

// OptionCategory groups home options
type OptionCategory string

const (
	OptionExterior   OptionCategory = "exterior"
	OptionInterior   OptionCategory = "interior"
	OptionAppliance  OptionCategory = "appliance"
	OptionStructural OptionCategory = "structural"
	OptionOther      OptionCategory = "other"
)

// IsValid reports whether c is a known option category
func (c OptionCategory) IsValid() bool {
	switch c {
	case OptionExterior, OptionInterior, OptionAppliance, OptionStructural, OptionOther:
		return true
	}
	return false
}

// HomeOption is an upgrade that can be added to a home
type HomeOption struct {
	shared.BaseAggregateRoot
	Name        string
	Category    OptionCategory
	Description string
	BasePrice   decimal.Decimal
	// CompatibleHomeIDs restricts the option to specific homes; empty means every home.
	CompatibleHomeIDs []uuid.UUID
	Active            bool
}

// NewHomeOption creates an active option
func NewHomeOption(name string, category OptionCategory, description string, price decimal.Decimal, compatible []uuid.UUID) (*HomeOption, error) {
	o := &HomeOption{BaseAggregateRoot: shared.NewBaseAggregateRoot(), Active: true}
	if err := o.apply(name, category, description, price, compatible); err != nil {
		return nil, err
	}
	return o, nil
}

// Update replaces the option's attributes
func (o *HomeOption) Update(name string, category OptionCategory, description string, price decimal.Decimal, compatible []uuid.UUID) error {
	if err := o.apply(name, category, description, price, compatible); err != nil {
		return err
	}
	o.Touch()
	o.IncrementVersion()
	return nil
}

func (o *HomeOption) apply(name string, category OptionCategory, description string, price decimal.Decimal, compatible []uuid.UUID) error {
	name = strings.TrimSpace(name)
	if err := validateName(name, "option name"); err != nil {
		return err
	}
	if !category.IsValid() {
		return shared.NewDomainError("INVALID_CATEGORY", "Unknown option category: "+string(category))
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(compatible))
	ids := make([]uuid.UUID, 0, len(compatible))
	for _, id := range compatible {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	o.Name = name
	o.Category = category
	o.Description = description
	o.BasePrice = price.Round(2)
	o.CompatibleHomeIDs = ids
	return nil
}

// IsCompatibleWith reports whether the option can be added to homeID
func (o *HomeOption) IsCompatibleWith(homeID uuid.UUID) bool {
	if len(o.CompatibleHomeIDs) == 0 {
		return true
	}
	for _, id := range o.CompatibleHomeIDs {
		if id == homeID {
			return true
		}
	}
	return false
}

// SetActive toggles storefront visibility
func (o *HomeOption) SetActive(active bool) {
	if o.Active == active {
		return
	}
	o.Active = active
	o.Touch()
	o.IncrementVersion()
}
