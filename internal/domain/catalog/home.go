package catalog

import (
	"strings"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SectionType is the number of transportable sections a home ships in
type SectionType string

const (
	SectionSingle SectionType = "single"
	SectionDouble SectionType = "double"
	SectionTriple SectionType = "triple"
)

// IsValid reports whether s is a known section type
func (s SectionType) IsValid() bool {
	return s == SectionSingle || s == SectionDouble || s == SectionTriple
}

// MobileHome is a home model offered in the storefront
type MobileHome struct {
	shared.BaseAggregateRoot
	ModelName    string
	Manufacturer string
	Series       string
	SectionType  SectionType
	Bedrooms     int
	Bathrooms    decimal.Decimal
	SquareFeet   int
	LengthFt     int
	WidthFt      int
	BasePrice    decimal.Decimal
	FactoryID    *uuid.UUID
	Description  string
	ImageURLs    []string
	Active       bool
}

// HomeSpec carries the editable attributes of a home
type HomeSpec struct {
	ModelName    string
	Manufacturer string
	Series       string
	SectionType  SectionType
	Bedrooms     int
	Bathrooms    decimal.Decimal
	SquareFeet   int
	LengthFt     int
	WidthFt      int
	BasePrice    decimal.Decimal
	FactoryID    *uuid.UUID
	Description  string
	ImageURLs    []string
}

// NewMobileHome creates an active home from spec
func NewMobileHome(spec HomeSpec) (*MobileHome, error) {
	h := &MobileHome{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Active:            true,
	}
	if err := h.apply(spec); err != nil {
		return nil, err
	}
	return h, nil
}

// Update replaces the home's attributes
func (h *MobileHome) Update(spec HomeSpec) error {
	if err := h.apply(spec); err != nil {
		return err
	}
	h.Touch()
	h.IncrementVersion()
	return nil
}

func (h *MobileHome) apply(spec HomeSpec) error {
	spec.ModelName = strings.TrimSpace(spec.ModelName)
	if err := validateName(spec.ModelName, "model name"); err != nil {
		return err
	}
	if !spec.SectionType.IsValid() {
		return shared.NewDomainError("INVALID_SECTION_TYPE", "Section type must be single, double or triple")
	}
	if spec.Bedrooms < 0 || spec.SquareFeet < 0 || spec.LengthFt < 0 || spec.WidthFt < 0 {
		return shared.NewDomainError("INVALID_DIMENSIONS", "Home dimensions cannot be negative")
	}
	if spec.Bathrooms.IsNegative() {
		return shared.NewDomainError("INVALID_DIMENSIONS", "Bathrooms cannot be negative")
	}
	if err := validatePrice(spec.BasePrice); err != nil {
		return err
	}

	h.ModelName = spec.ModelName
	h.Manufacturer = strings.TrimSpace(spec.Manufacturer)
	h.Series = strings.TrimSpace(spec.Series)
	h.SectionType = spec.SectionType
	h.Bedrooms = spec.Bedrooms
	h.Bathrooms = spec.Bathrooms
	h.SquareFeet = spec.SquareFeet
	h.LengthFt = spec.LengthFt
	h.WidthFt = spec.WidthFt
	h.BasePrice = spec.BasePrice.Round(2)
	h.FactoryID = spec.FactoryID
	h.Description = spec.Description
	h.ImageURLs = append([]string(nil), spec.ImageURLs...)
	return nil
}

// Deactivate hides the home from the storefront
func (h *MobileHome) Deactivate() {
	if !h.Active {
		return
	}
	h.Active = false
	h.Touch()
	h.IncrementVersion()
}

// Activate shows the home in the storefront
func (h *MobileHome) Activate() {
	if h.Active {
		return
	}
	h.Active = true
	h.Touch()
	h.IncrementVersion()
}

func validateName(name, field string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", strings.ToUpper(field[:1])+field[1:]+" cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", strings.ToUpper(field[:1])+field[1:]+" cannot exceed 200 characters")
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	return nil
}
