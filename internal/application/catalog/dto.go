package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Viewer is who is looking at the catalog. Staff see base costs and
// inactive entries; everyone else sees marked-up prices of active entries.
type Viewer struct {
	UserID uuid.UUID
	Staff  bool
}

// ListInput pages and filters a catalog listing
type ListInput struct {
	Page     int
	PageSize int
	Search   string
	Active   *bool
	OrderBy  string
	OrderDir string
}

func (in ListInput) filter(v Viewer) catalog.Filter {
	f := catalog.Filter{Filter: shared.DefaultFilter(), Active: in.Active}
	if in.Page > 0 {
		f.Page = in.Page
	}
	if in.PageSize > 0 && in.PageSize <= 100 {
		f.PageSize = in.PageSize
	}
	if in.OrderBy != "" {
		f.OrderBy = in.OrderBy
	}
	if in.OrderDir != "" {
		f.OrderDir = in.OrderDir
	}
	f.Search = in.Search
	if !v.Staff {
		active := true
		f.Active = &active
	}
	return f
}

// Pricing is the price block of every sellable catalog entry
type Pricing struct {
	Price         decimal.Decimal  `json:"price"`
	BasePrice     *decimal.Decimal `json:"base_price,omitempty"`
	MarkupPercent *decimal.Decimal `json:"markup_percent,omitempty"`
}

// HomeInput creates or updates a home
type HomeInput struct {
	ModelName    string          `json:"model_name" binding:"required,max=200"`
	Manufacturer string          `json:"manufacturer" binding:"max=200"`
	Series       string          `json:"series" binding:"max=200"`
	SectionType  string          `json:"section_type" binding:"required,oneof=single double triple"`
	Bedrooms     int             `json:"bedrooms" binding:"min=0"`
	Bathrooms    decimal.Decimal `json:"bathrooms"`
	SquareFeet   int             `json:"square_feet" binding:"min=0"`
	LengthFt     int             `json:"length_ft" binding:"min=0"`
	WidthFt      int             `json:"width_ft" binding:"min=0"`
	BasePrice    decimal.Decimal `json:"base_price"`
	FactoryID    *uuid.UUID      `json:"factory_id"`
	Description  string          `json:"description"`
	ImageURLs    []string        `json:"image_urls"`
}

func (in HomeInput) spec() catalog.HomeSpec {
	return catalog.HomeSpec{
		ModelName:    in.ModelName,
		Manufacturer: in.Manufacturer,
		Series:       in.Series,
		SectionType:  catalog.SectionType(in.SectionType),
		Bedrooms:     in.Bedrooms,
		Bathrooms:    in.Bathrooms,
		SquareFeet:   in.SquareFeet,
		LengthFt:     in.LengthFt,
		WidthFt:      in.WidthFt,
		BasePrice:    in.BasePrice,
		FactoryID:    in.FactoryID,
		Description:  in.Description,
		ImageURLs:    in.ImageURLs,
	}
}

// HomeDTO is a priced home
type HomeDTO struct {
	ID           uuid.UUID       `json:"id"`
	ModelName    string          `json:"model_name"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Series       string          `json:"series,omitempty"`
	SectionType  string          `json:"section_type"`
	Bedrooms     int             `json:"bedrooms"`
	Bathrooms    decimal.Decimal `json:"bathrooms"`
	SquareFeet   int             `json:"square_feet"`
	LengthFt     int             `json:"length_ft"`
	WidthFt      int             `json:"width_ft"`
	FactoryID    *uuid.UUID      `json:"factory_id,omitempty"`
	Description  string          `json:"description,omitempty"`
	ImageURLs    []string        `json:"image_urls"`
	Active       bool            `json:"active"`
	Pricing
	UpdatedAt time.Time `json:"updated_at"`
}

// OfferingInput creates or updates a service or option
type OfferingInput struct {
	Name              string          `json:"name" binding:"required,max=200"`
	Category          string          `json:"category" binding:"required"`
	Description       string          `json:"description"`
	BasePrice         decimal.Decimal `json:"base_price"`
	CompatibleHomeIDs []uuid.UUID     `json:"compatible_home_ids"`
}

// OfferingDTO is a priced service or home option
type OfferingDTO struct {
	ID                uuid.UUID   `json:"id"`
	Name              string      `json:"name"`
	Category          string      `json:"category"`
	Description       string      `json:"description,omitempty"`
	CompatibleHomeIDs []uuid.UUID `json:"compatible_home_ids,omitempty"`
	Active            bool        `json:"active"`
	Pricing
	UpdatedAt time.Time `json:"updated_at"`
}

// FactoryInput creates or updates a factory
type FactoryInput struct {
	Name         string  `json:"name" binding:"required,max=200"`
	Address      string  `json:"address" binding:"required"`
	Latitude     float64 `json:"latitude" binding:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" binding:"min=-180,max=180"`
	ContactName  string  `json:"contact_name"`
	ContactPhone string  `json:"contact_phone"`
	ContactEmail string  `json:"contact_email" binding:"omitempty,email"`
}

func (in FactoryInput) spec() catalog.FactorySpec {
	return catalog.FactorySpec{
		Name:         in.Name,
		Address:      in.Address,
		Location:     shared.GeoPoint{Lat: in.Latitude, Lng: in.Longitude},
		ContactName:  in.ContactName,
		ContactPhone: in.ContactPhone,
		ContactEmail: in.ContactEmail,
	}
}

// FactoryDTO is the outward view of a factory
type FactoryDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Address      string    `json:"address"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RemoveResult tells the caller whether a delete fell back to deactivation
type RemoveResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

func toFactoryDTO(f *catalog.Factory) FactoryDTO {
	return FactoryDTO{
		ID:           f.ID,
		Name:         f.Name,
		Address:      f.Address,
		Latitude:     f.Location.Lat,
		Longitude:    f.Location.Lng,
		ContactName:  f.ContactName,
		ContactPhone: f.ContactPhone,
		ContactEmail: f.ContactEmail,
		Active:       f.Active,
		UpdatedAt:    f.UpdatedAt,
	}
}
