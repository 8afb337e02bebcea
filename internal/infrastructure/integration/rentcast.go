package integration

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// RentcastProductionURL is the Rentcast API root
const RentcastProductionURL = "https://api.rentcast.io/v1"

// RentcastConfig holds the Rentcast API key
type RentcastConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Validate validates the configuration and fills the default base URL
func (c *RentcastConfig) Validate() error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	if c.BaseURL == "" {
		c.BaseURL = RentcastProductionURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// Comparable is one comparable sale
type Comparable struct {
	Address      string          `json:"address"`
	Price        decimal.Decimal `json:"price"`
	SquareFeet   int             `json:"sqft"`
	Bedrooms     int             `json:"bedrooms"`
	Bathrooms    decimal.Decimal `json:"bathrooms"`
	Distance     float64         `json:"distance"`
	DaysOnMarket int             `json:"days_on_market"`
}

// ValueEstimate is an automated valuation with its comparables
type ValueEstimate struct {
	Price       decimal.Decimal `json:"price"`
	RangeLow    decimal.Decimal `json:"range_low"`
	RangeHigh   decimal.Decimal `json:"range_high"`
	Comparables []Comparable    `json:"comparables"`
}

// Rentcast looks up property valuations for trade-ins and land
type Rentcast struct {
	config RentcastConfig
	caller
}

// NewRentcast creates the adapter
func NewRentcast(cfg RentcastConfig, observer CallObserver) (*Rentcast, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Rentcast{config: cfg, caller: newCaller("rentcast", cfg.Timeout, observer)}, nil
}

// ValueEstimate returns the value estimate for a manufactured home at address
func (r *Rentcast) ValueEstimate(ctx context.Context, address string, compCount int) (ValueEstimate, error) {
	if compCount <= 0 || compCount > 25 {
		compCount = 10
	}
	q := url.Values{}
	q.Set("address", address)
	q.Set("propertyType", "Manufactured")
	q.Set("compCount", strconv.Itoa(compCount))
	req, err := r.newRequest(ctx, http.MethodGet, r.config.BaseURL+"/avm/value?"+q.Encode(), nil)
	if err != nil {
		return ValueEstimate{}, err
	}
	req.Header.Set("X-Api-Key", r.config.APIKey)
	req.Header.Set("Accept", "application/json")

	body, err := r.do(req)
	if err != nil {
		return ValueEstimate{}, err
	}
	res := gjson.ParseBytes(body)
	out := ValueEstimate{
		Price:       decimalOf(res.Get("price")),
		RangeLow:    decimalOf(res.Get("priceRangeLow")),
		RangeHigh:   decimalOf(res.Get("priceRangeHigh")),
		Comparables: []Comparable{},
	}
	res.Get("comparables").ForEach(func(_, c gjson.Result) bool {
		out.Comparables = append(out.Comparables, Comparable{
			Address:      c.Get("formattedAddress").String(),
			Price:        decimalOf(c.Get("price")),
			SquareFeet:   int(c.Get("squareFootage").Int()),
			Bedrooms:     int(c.Get("bedrooms").Int()),
			Bathrooms:    decimalOf(c.Get("bathrooms")),
			Distance:     c.Get("distance").Float(),
			DaysOnMarket: int(c.Get("daysOnMarket").Int()),
		})
		return true
	})
	return out, nil
}

func decimalOf(r gjson.Result) decimal.Decimal {
	if !r.Exists() {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(r.Raw)
	if err != nil {
		return decimal.NewFromFloat(r.Float())
	}
	return d
}
