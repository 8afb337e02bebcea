package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ResendProductionURL is the Resend API root
const ResendProductionURL = "https://api.resend.com"

// ResendConfig holds Resend credentials
type ResendConfig struct {
	APIKey  string
	From    string
	BaseURL string
	Timeout time.Duration
}

// ErrResendMissingFrom is returned when no sender address is configured
var ErrResendMissingFrom = errors.New("resend: from address is required")

// Validate validates the configuration and fills the default base URL
func (c *ResendConfig) Validate() error {
	if c.APIKey == "" {
		return ErrNotConfigured
	}
	if c.From == "" {
		return ErrResendMissingFrom
	}
	if c.BaseURL == "" {
		c.BaseURL = ResendProductionURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

// Email is one outgoing message
type Email struct {
	To      string
	Subject string
	HTML    string
	Text    string
	ReplyTo string
}

// Resend sends transactional email
type Resend struct {
	config ResendConfig
	caller
}

// NewResend creates a Resend adapter
func NewResend(cfg ResendConfig, observer CallObserver) (*Resend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resend{config: cfg, caller: newCaller("resend", cfg.Timeout, observer)}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

// SendEmail sends e and returns the Resend email id
func (r *Resend) SendEmail(ctx context.Context, e Email) (string, error) {
	payload, err := json.Marshal(resendRequest{
		From:    r.config.From,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
		Text:    e.Text,
		ReplyTo: e.ReplyTo,
	})
	if err != nil {
		return "", err
	}
	req, err := r.newRequest(ctx, http.MethodPost, r.config.BaseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.do(req)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(resp, "id").String(), nil
}
