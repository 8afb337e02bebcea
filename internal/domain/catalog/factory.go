package catalog

import (
	"strings"

	"github.com/homestead/backend/internal/domain/shared"
)

// Factory is a manufacturing plant homes ship from
type Factory struct {
	shared.BaseAggregateRoot
	Name         string
	Address      string
	Location     shared.GeoPoint
	ContactName  string
	ContactPhone string
	ContactEmail string
	Active       bool
}

// FactorySpec carries the editable attributes of a factory
type FactorySpec struct {
	Name         string
	Address      string
	Location     shared.GeoPoint
	ContactName  string
	ContactPhone string
	ContactEmail string
}

// NewFactory creates an active factory
func NewFactory(spec FactorySpec) (*Factory, error) {
	f := &Factory{BaseAggregateRoot: shared.NewBaseAggregateRoot(), Active: true}
	if err := f.apply(spec); err != nil {
		return nil, err
	}
	return f, nil
}

// Update replaces the factory's attributes
func (f *Factory) Update(spec FactorySpec) error {
	if err := f.apply(spec); err != nil {
		return err
	}
	f.Touch()
	f.IncrementVersion()
	return nil
}

func (f *Factory) apply(spec FactorySpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if err := validateName(spec.Name, "factory name"); err != nil {
		return err
	}
	if strings.TrimSpace(spec.Address) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Factory address cannot be empty")
	}
	if err := spec.Location.Validate(); err != nil {
		return err
	}
	f.Name = spec.Name
	f.Address = strings.TrimSpace(spec.Address)
	f.Location = spec.Location
	f.ContactName = strings.TrimSpace(spec.ContactName)
	f.ContactPhone = strings.TrimSpace(spec.ContactPhone)
	f.ContactEmail = strings.ToLower(strings.TrimSpace(spec.ContactEmail))
	return nil
}

// SetActive toggles whether new deliveries can originate here
func (f *Factory) SetActive(active bool) {
	if f.Active == active {
		return
	}
	f.Active = active
	f.Touch()
	f.IncrementVersion()
}
