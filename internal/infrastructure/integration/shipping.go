package integration

import (
	"context"
	"math"

	"github.com/homestead/backend/internal/domain/catalog"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ShippingRates prices home transport
type ShippingRates struct {
	BaseFee              decimal.Decimal
	SingleRatePerMile    decimal.Decimal
	DoubleRatePerMile    decimal.Decimal
	TripleRatePerMile    decimal.Decimal
	RoadFactor           float64
	EscortThresholdMiles float64
	EscortFee            decimal.Decimal
}

// RatePerMile returns the per-mile rate for a section type
func (r ShippingRates) RatePerMile(section catalog.SectionType) decimal.Decimal {
	switch section {
	case catalog.SectionDouble:
		return r.DoubleRatePerMile
	case catalog.SectionTriple:
		return r.TripleRatePerMile
	default:
		return r.SingleRatePerMile
	}
}

// ShippingQuote is a priced delivery from a factory to an address
type ShippingQuote struct {
	Origin           shared.GeoPoint `json:"origin"`
	Destination      shared.GeoPoint `json:"destination"`
	FormattedAddress string          `json:"formatted_address"`
	StraightMiles    decimal.Decimal `json:"straight_miles"`
	Miles            decimal.Decimal `json:"miles"`
	RatePerMile      decimal.Decimal `json:"rate_per_mile"`
	EscortFee        decimal.Decimal `json:"escort_fee"`
	Fee              decimal.Decimal `json:"fee"`
}

// AddressGeocoder resolves a destination address
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (GeocodeResult, error)
}

// ShippingQuoter estimates road miles from straight-line distance and prices them
type ShippingQuoter struct {
	rates    ShippingRates
	geocoder AddressGeocoder
}

// NewShippingQuoter creates a quoter. A road factor below 1 is treated as 1.
func NewShippingQuoter(rates ShippingRates, geocoder AddressGeocoder) *ShippingQuoter {
	if rates.RoadFactor < 1 {
		rates.RoadFactor = 1
	}
	return &ShippingQuoter{rates: rates, geocoder: geocoder}
}

// Quote geocodes address and prices transport of a home with the given section type from origin
func (q *ShippingQuoter) Quote(ctx context.Context, origin shared.GeoPoint, section catalog.SectionType, address string) (ShippingQuote, error) {
	if q.geocoder == nil {
		return ShippingQuote{}, ErrNotConfigured
	}
	dest, err := q.geocoder.Geocode(ctx, address)
	if err != nil {
		return ShippingQuote{}, err
	}
	quote := q.Price(origin, dest.Location, section)
	quote.FormattedAddress = dest.FormattedAddress
	return quote, nil
}

// Price computes the fee between two known points
func (q *ShippingQuoter) Price(origin, dest shared.GeoPoint, section catalog.SectionType) ShippingQuote {
	straight := origin.DistanceMiles(dest)
	road := straight * q.rates.RoadFactor
	miles := decimal.NewFromFloat(math.Round(road*10) / 10)
	rate := q.rates.RatePerMile(section)

	fee := q.rates.BaseFee.Add(miles.Mul(rate))
	escort := decimal.Zero
	if q.rates.EscortThresholdMiles > 0 && road > q.rates.EscortThresholdMiles {
		escort = q.rates.EscortFee
		fee = fee.Add(escort)
	}
	return ShippingQuote{
		Origin:        origin,
		Destination:   dest,
		StraightMiles: decimal.NewFromFloat(math.Round(straight*10) / 10),
		Miles:         miles,
		RatePerMile:   rate,
		EscortFee:     escort,
		Fee:           fee.Round(2),
	}
}
