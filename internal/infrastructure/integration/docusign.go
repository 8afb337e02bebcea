package integration

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"
)

// DocuSign defaults (developer sandbox)
const (
	DocuSignDemoAuthURL = "https://account-d.docusign.com"
	DocuSignDemoAPIURL  = "https://demo.docusign.net/restapi"

	// SignatureHeader carries the first Connect HMAC signature
	DocuSignSignatureHeader = "X-DocuSign-Signature-1"

	docuSignScope     = "signature impersonation"
	docuSignTokenLife = time.Hour
	// tokens are refreshed this long before DocuSign expires them
	docuSignTokenSkew = time.Minute
)

// DocuSignConfig holds JWT-grant credentials
type DocuSignConfig struct {
	IntegrationKey string
	UserID         string
	AccountID      string
	PrivateKeyPEM  string
	AuthBaseURL    string
	APIBaseURL     string
	ConnectSecret  string
	Timeout        time.Duration
}

// Errors for DocuSign configuration and webhooks
var (
	ErrDocuSignMissingUserID    = errors.New("docusign: user id is required")
	ErrDocuSignMissingAccountID = errors.New("docusign: account id is required")
	ErrDocuSignInvalidKey       = errors.New("docusign: private key is not a valid RSA PEM")
	ErrDocuSignBadSignature     = errors.New("docusign: connect signature mismatch")
	ErrDocuSignNoSigners        = errors.New("docusign: at least one signer is required")
)

// Validate validates the configuration and fills default URLs
func (c *DocuSignConfig) Validate() error {
	if c.IntegrationKey == "" || c.PrivateKeyPEM == "" {
		return ErrNotConfigured
	}
	if c.UserID == "" {
		return ErrDocuSignMissingUserID
	}
	if c.AccountID == "" {
		return ErrDocuSignMissingAccountID
	}
	if c.AuthBaseURL == "" {
		c.AuthBaseURL = DocuSignDemoAuthURL
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = DocuSignDemoAPIURL
	}
	c.AuthBaseURL = strings.TrimRight(c.AuthBaseURL, "/")
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return nil
}

// Template is a DocuSign envelope template
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Signer fills one template role
type Signer struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	RoleName string `json:"role_name"`
}

// EnvelopeRequest creates and sends an envelope from a template
type EnvelopeRequest struct {
	TemplateID   string
	Signers      []Signer
	EmailSubject string
	CustomFields map[string]string
}

// ConnectEvent is the part of a Connect notification the service acts on
type ConnectEvent struct {
	Event        string
	EnvelopeID   string
	Status       string
	CustomFields map[string]string
}

// DocuSign sends contracts for signature
type DocuSign struct {
	config DocuSignConfig
	key    *rsa.PrivateKey
	now    func() time.Time
	caller

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewDocuSign parses the private key and creates the adapter
func NewDocuSign(cfg DocuSignConfig, observer CallObserver) (*DocuSign, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDocuSignInvalidKey, err)
	}
	return &DocuSign{
		config: cfg,
		key:    key,
		now:    time.Now,
		caller: newCaller("docusign", cfg.Timeout, observer),
	}, nil
}

// accessToken returns the cached token or runs the JWT grant
func (d *DocuSign) accessToken(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.token != "" && now.Before(d.tokenExpiry.Add(-docuSignTokenSkew)) {
		return d.token, nil
	}

	aud := d.config.AuthBaseURL
	if u, err := url.Parse(aud); err == nil && u.Host != "" {
		aud = u.Host
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   d.config.IntegrationKey,
		"sub":   d.config.UserID,
		"aud":   aud,
		"iat":   now.Unix(),
		"exp":   now.Add(docuSignTokenLife).Unix(),
		"scope": docuSignScope,
	}).SignedString(d.key)
	if err != nil {
		return "", fmt.Errorf("docusign: failed to sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)
	req, err := d.newRequest(ctx, http.MethodPost, d.config.AuthBaseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := d.do(req)
	if err != nil {
		return "", err
	}
	token := gjson.GetBytes(body, "access_token").String()
	if token == "" {
		return "", &APIError{Provider: d.provider, StatusCode: http.StatusOK, Body: string(body), Err: errors.New("no access_token in response")}
	}
	expiresIn := gjson.GetBytes(body, "expires_in").Int()
	if expiresIn <= 0 {
		expiresIn = int64(docuSignTokenLife.Seconds())
	}
	d.token = token
	d.tokenExpiry = now.Add(time.Duration(expiresIn) * time.Second)
	return token, nil
}

func (d *DocuSign) authorized(ctx context.Context, method, path string, payload any) ([]byte, error) {
	token, err := d.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	endpoint := d.config.APIBaseURL + "/v2.1/accounts/" + url.PathEscape(d.config.AccountID) + path
	req, err := d.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return d.do(req)
}

// ListTemplates returns the account's envelope templates
func (d *DocuSign) ListTemplates(ctx context.Context) ([]Template, error) {
	body, err := d.authorized(ctx, http.MethodGet, "/templates", nil)
	if err != nil {
		return nil, err
	}
	var out []Template
	gjson.GetBytes(body, "envelopeTemplates").ForEach(func(_, t gjson.Result) bool {
		out = append(out, Template{
			ID:          t.Get("templateId").String(),
			Name:        t.Get("name").String(),
			Description: t.Get("description").String(),
		})
		return true
	})
	return out, nil
}

type templateRole struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	RoleName string `json:"roleName"`
}

type textCustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Show  string `json:"show"`
}

type envelopeDefinition struct {
	TemplateID    string         `json:"templateId"`
	TemplateRoles []templateRole `json:"templateRoles"`
	EmailSubject  string         `json:"emailSubject,omitempty"`
	Status        string         `json:"status"`
	CustomFields  *struct {
		TextCustomFields []textCustomField `json:"textCustomFields"`
	} `json:"customFields,omitempty"`
}

// SendEnvelope creates an envelope from a template, sends it and returns its id
func (d *DocuSign) SendEnvelope(ctx context.Context, in EnvelopeRequest) (string, error) {
	if len(in.Signers) == 0 {
		return "", ErrDocuSignNoSigners
	}
	def := envelopeDefinition{
		TemplateID:   in.TemplateID,
		EmailSubject: in.EmailSubject,
		Status:       "sent",
	}
	for _, s := range in.Signers {
		def.TemplateRoles = append(def.TemplateRoles, templateRole{Email: s.Email, Name: s.Name, RoleName: s.RoleName})
	}
	if len(in.CustomFields) > 0 {
		def.CustomFields = &struct {
			TextCustomFields []textCustomField `json:"textCustomFields"`
		}{}
		for name, value := range in.CustomFields {
			def.CustomFields.TextCustomFields = append(def.CustomFields.TextCustomFields, textCustomField{Name: name, Value: value, Show: "false"})
		}
	}

	body, err := d.authorized(ctx, http.MethodPost, "/envelopes", def)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "envelopeId").String(), nil
}

// VerifyConnectSignature checks the Connect HMAC of a raw webhook body
func (d *DocuSign) VerifyConnectSignature(body []byte, signature string) error {
	return VerifyHMACSignature(d.config.ConnectSecret, body, signature)
}

// VerifyHMACSignature compares base64(HMAC-SHA256(secret, body)) with signature
func VerifyHMACSignature(secret string, body []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrDocuSignBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrDocuSignBadSignature
	}
	return nil
}

// ParseConnectEvent reads a Connect JSON notification (SIM or legacy shape)
func ParseConnectEvent(body []byte) (ConnectEvent, error) {
	if !gjson.ValidBytes(body) {
		return ConnectEvent{}, errors.New("docusign: connect payload is not JSON")
	}
	root := gjson.ParseBytes(body)
	first := func(paths ...string) string {
		for _, p := range paths {
			if r := root.Get(p); r.Exists() && r.String() != "" {
				return r.String()
			}
		}
		return ""
	}
	ev := ConnectEvent{
		Event:        first("event"),
		EnvelopeID:   first("data.envelopeId", "envelopeId"),
		Status:       strings.ToLower(first("data.envelopeSummary.status", "status")),
		CustomFields: make(map[string]string),
	}
	for _, path := range []string{"data.envelopeSummary.customFields.textCustomFields", "customFields.textCustomFields"} {
		root.Get(path).ForEach(func(_, f gjson.Result) bool {
			ev.CustomFields[f.Get("name").String()] = f.Get("value").String()
			return true
		})
	}
	if ev.Status == "" && ev.Event == "envelope-completed" {
		ev.Status = "completed"
	}
	if ev.EnvelopeID == "" {
		return ConnectEvent{}, errors.New("docusign: connect payload has no envelope id")
	}
	return ev, nil
}
