package integration

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/homestead/backend/internal/domain/shared"
	"github.com/tidwall/gjson"
)

// GoogleGeocodingURL is the Geocoding API endpoint
const GoogleGeocodingURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrAddressNotFound is returned when the address has no match
var ErrAddressNotFound = shared.NewDomainError("ADDRESS_NOT_FOUND", "Address could not be geocoded")

// GeocoderConfig holds the Geocoding API key
type GeocoderConfig struct {
	APIKey  string
	URL     string
	Timeout time.Duration
}

// Validate validates the configuration and fills the default URL
func (c *GeocoderConfig) Validate() error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	if c.URL == "" {
		c.URL = GoogleGeocodingURL
	}
	return nil
}

// GeocodeResult is the best match for an address
type GeocodeResult struct {
	Location         shared.GeoPoint `json:"location"`
	FormattedAddress string          `json:"formatted_address"`
	PlaceID          string          `json:"place_id,omitempty"`
}

// Geocoder resolves addresses to coordinates
type Geocoder struct {
	config GeocoderConfig
	caller
}

// NewGeocoder creates the adapter
func NewGeocoder(cfg GeocoderConfig, observer CallObserver) (*Geocoder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Geocoder{config: cfg, caller: newCaller("geocoding", cfg.Timeout, observer)}, nil
}

// Geocode returns the first result for address
func (g *Geocoder) Geocode(ctx context.Context, address string) (GeocodeResult, error) {
	if address == "" {
		return GeocodeResult{}, ErrAddressNotFound
	}
	q := url.Values{}
	q.Set("address", address)
	q.Set("key", g.config.APIKey)
	req, err := g.newRequest(ctx, http.MethodGet, g.config.URL+"?"+q.Encode(), nil)
	if err != nil {
		return GeocodeResult{}, err
	}
	body, err := g.do(req)
	if err != nil {
		return GeocodeResult{}, err
	}

	res := gjson.ParseBytes(body)
	switch status := res.Get("status").String(); status {
	case "OK":
	case "ZERO_RESULTS":
		return GeocodeResult{}, ErrAddressNotFound
	case "OVER_QUERY_LIMIT":
		return GeocodeResult{}, &APIError{Provider: g.provider, StatusCode: http.StatusTooManyRequests, Body: string(body)}
	default:
		return GeocodeResult{}, &APIError{Provider: g.provider, StatusCode: http.StatusBadGateway, Body: string(body), Err: errors.New(status)}
	}

	first := res.Get("results.0")
	out := GeocodeResult{
		Location: shared.GeoPoint{
			Lat: first.Get("geometry.location.lat").Float(),
			Lng: first.Get("geometry.location.lng").Float(),
		},
		FormattedAddress: first.Get("formatted_address").String(),
		PlaceID:          first.Get("place_id").String(),
	}
	if err := out.Location.Validate(); err != nil {
		return GeocodeResult{}, ErrAddressNotFound
	}
	return out, nil
}
