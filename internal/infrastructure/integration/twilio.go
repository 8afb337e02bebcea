package integration

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TwilioProductionURL is the Twilio REST API root
const TwilioProductionURL = "https://api.twilio.com"

// TwilioConfig holds Twilio credentials
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

// Errors for Twilio configuration
var (
	ErrTwilioMissingAccountSID = errors.New("twilio: account sid is required")
	ErrTwilioMissingAuthToken  = errors.New("twilio: auth token is required")
	ErrTwilioMissingFrom       = errors.New("twilio: from number is required")
)

// Validate validates the configuration and fills the default base URL
func (c *TwilioConfig) Validate() error {
	if c.AccountSID == "" && c.AuthToken == "" {
		return ErrNotConfigured
	}
	if c.AccountSID == "" {
		return ErrTwilioMissingAccountSID
	}
	if c.AuthToken == "" {
		return ErrTwilioMissingAuthToken
	}
	if c.FromNumber == "" {
		return ErrTwilioMissingFrom
	}
	if c.BaseURL == "" {
		c.BaseURL = TwilioProductionURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// Twilio sends SMS through the Messages API
type Twilio struct {
	config TwilioConfig
	caller
}

// NewTwilio creates a Twilio adapter
func NewTwilio(cfg TwilioConfig, observer CallObserver) (*Twilio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Twilio{config: cfg, caller: newCaller("twilio", cfg.Timeout, observer)}, nil
}

// SendSMS sends body to the E.164 number to and returns the message sid
func (t *Twilio) SendSMS(ctx context.Context, to, body string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.config.FromNumber)
	form.Set("Body", body)

	endpoint := t.config.BaseURL + "/2010-04-01/Accounts/" + url.PathEscape(t.config.AccountSID) + "/Messages.json"
	req, err := t.newRequest(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.do(req)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(resp, "sid").String(), nil
}
