package models

import (
	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MobileHomeModel is the persistence model for mobile homes.
type MobileHomeModel struct {
	AggregateModel
	ModelName     string              `gorm:"type:varchar(200);not null;index"`
	Manufacturer  string              `gorm:"type:varchar(200)"`
	Series        string              `gorm:"type:varchar(100)"`
	SectionType   catalog.SectionType `gorm:"type:varchar(10);not null"`
	Bedrooms      int                 `gorm:"not null;default:0"`
	Bathrooms     decimal.Decimal     `gorm:"type:decimal(3,1);not null;default:0"`
	SquareFeet    int                 `gorm:"not null;default:0"`
	LengthFt      int                 `gorm:"not null;default:0"`
	WidthFt       int                 `gorm:"not null;default:0"`
	BasePrice     decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	FactoryID     *uuid.UUID          `gorm:"type:uuid;index"`
	Description   string              `gorm:"type:text"`
	ImageURLsJSON string              `gorm:"column:image_urls;type:jsonb;default:'[]'"`
	Active        bool                `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (MobileHomeModel) TableName() string {
	return "mobile_homes"
}

// ToDomain converts the persistence model to a domain MobileHome.
func (m *MobileHomeModel) ToDomain() *catalog.MobileHome {
	h := &catalog.MobileHome{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ModelName:         m.ModelName,
		Manufacturer:      m.Manufacturer,
		Series:            m.Series,
		SectionType:       m.SectionType,
		Bedrooms:          m.Bedrooms,
		Bathrooms:         m.Bathrooms,
		SquareFeet:        m.SquareFeet,
		LengthFt:          m.LengthFt,
		WidthFt:           m.WidthFt,
		BasePrice:         m.BasePrice,
		FactoryID:         m.FactoryID,
		Description:       m.Description,
		ImageURLs:         make([]string, 0),
		Active:            m.Active,
	}
	unmarshalJSON(m.ImageURLsJSON, &h.ImageURLs)
	return h
}

// FromDomain populates the persistence model from a domain MobileHome.
func (m *MobileHomeModel) FromDomain(h *catalog.MobileHome) {
	m.FromDomainAggregateRoot(h.BaseAggregateRoot)
	m.ModelName = h.ModelName
	m.Manufacturer = h.Manufacturer
	m.Series = h.Series
	m.SectionType = h.SectionType
	m.Bedrooms = h.Bedrooms
	m.Bathrooms = h.Bathrooms
	m.SquareFeet = h.SquareFeet
	m.LengthFt = h.LengthFt
	m.WidthFt = h.WidthFt
	m.BasePrice = h.BasePrice
	m.FactoryID = h.FactoryID
	m.Description = h.Description
	m.ImageURLsJSON = marshalJSON(h.ImageURLs, "[]")
	m.Active = h.Active
}

// ServiceOfferingModel is the persistence model for services.
type ServiceOfferingModel struct {
	AggregateModel
	Name        string                  `gorm:"type:varchar(200);not null;index"`
	Category    catalog.ServiceCategory `gorm:"type:varchar(20);not null"`
	Description string                  `gorm:"type:text"`
	BasePrice   decimal.Decimal         `gorm:"type:decimal(12,2);not null"`
	Active      bool                    `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ServiceOfferingModel) TableName() string {
	return "service_offerings"
}

// ToDomain converts the persistence model to a domain ServiceOffering.
func (m *ServiceOfferingModel) ToDomain() *catalog.ServiceOffering {
	return &catalog.ServiceOffering{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Category:          m.Category,
		Description:       m.Description,
		BasePrice:         m.BasePrice,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain ServiceOffering.
func (m *ServiceOfferingModel) FromDomain(s *catalog.ServiceOffering) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.Name = s.Name
	m.Category = s.Category
	m.Description = s.Description
	m.BasePrice = s.BasePrice
	m.Active = s.Active
}

// HomeOptionModel is the persistence model for home options.
type HomeOptionModel struct {
	AggregateModel
	Name                  string                 `gorm:"type:varchar(200);not null;index"`
	Category              catalog.OptionCategory `gorm:"type:varchar(20);not null"`
	Description           string                 `gorm:"type:text"`
	BasePrice             decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	CompatibleHomeIDsJSON string                 `gorm:"column:compatible_home_ids;type:jsonb;default:'[]'"`
	Active                bool                   `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (HomeOptionModel) TableName() string {
	return "home_options"
}

// ToDomain converts the persistence model to a domain HomeOption.
func (m *HomeOptionModel) ToDomain() *catalog.HomeOption {
	o := &catalog.HomeOption{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Category:          m.Category,
		Description:       m.Description,
		BasePrice:         m.BasePrice,
		CompatibleHomeIDs: make([]uuid.UUID, 0),
		Active:            m.Active,
	}
	unmarshalJSON(m.CompatibleHomeIDsJSON, &o.CompatibleHomeIDs)
	return o
}

// FromDomain populates the persistence model from a domain HomeOption.
func (m *HomeOptionModel) FromDomain(o *catalog.HomeOption) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.Name = o.Name
	m.Category = o.Category
	m.Description = o.Description
	m.BasePrice = o.BasePrice
	m.CompatibleHomeIDsJSON = marshalJSON(o.CompatibleHomeIDs, "[]")
	m.Active = o.Active
}

// FactoryModel is the persistence model for factories.
type FactoryModel struct {
	AggregateModel
	Name         string  `gorm:"type:varchar(200);not null"`
	Address      string  `gorm:"type:varchar(500);not null"`
	Latitude     float64 `gorm:"not null"`
	Longitude    float64 `gorm:"not null"`
	ContactName  string  `gorm:"type:varchar(200)"`
	ContactPhone string  `gorm:"type:varchar(20)"`
	ContactEmail string  `gorm:"type:varchar(200)"`
	Active       bool    `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FactoryModel) TableName() string {
	return "factories"
}

// ToDomain converts the persistence model to a domain Factory.
func (m *FactoryModel) ToDomain() *catalog.Factory {
	return &catalog.Factory{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		Address:           m.Address,
		Location:          shared.GeoPoint{Lat: m.Latitude, Lng: m.Longitude},
		ContactName:       m.ContactName,
		ContactPhone:      m.ContactPhone,
		ContactEmail:      m.ContactEmail,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Factory.
func (m *FactoryModel) FromDomain(f *catalog.Factory) {
	m.FromDomainAggregateRoot(f.BaseAggregateRoot)
	m.Name = f.Name
	m.Address = f.Address
	m.Latitude = f.Location.Lat
	m.Longitude = f.Location.Lng
	m.ContactName = f.ContactName
	m.ContactPhone = f.ContactPhone
	m.ContactEmail = f.ContactEmail
	m.Active = f.Active
}
