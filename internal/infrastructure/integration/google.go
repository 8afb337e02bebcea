package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Google endpoints
const (
	GoogleTokenURL        = "https://oauth2.googleapis.com/token"
	GoogleAuthURL         = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleCalendarBaseURL = "https://www.googleapis.com/calendar/v3"

	googleCalendarScope = "https://www.googleapis.com/auth/calendar.events"
)

// GoogleConfig holds OAuth client credentials
type GoogleConfig struct {
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	TokenURL        string
	AuthURL         string
	CalendarBaseURL string
	Timeout         time.Duration
}

// ErrGoogleMissingRedirect is returned when no OAuth redirect URL is configured
var ErrGoogleMissingRedirect = errors.New("google: redirect url is required")

// Validate validates the configuration and fills default URLs
func (c *GoogleConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrNotConfigured
	}
	if c.RedirectURL == "" {
		return ErrGoogleMissingRedirect
	}
	if c.TokenURL == "" {
		c.TokenURL = GoogleTokenURL
	}
	if c.AuthURL == "" {
		c.AuthURL = GoogleAuthURL
	}
	if c.CalendarBaseURL == "" {
		c.CalendarBaseURL = GoogleCalendarBaseURL
	}
	c.CalendarBaseURL = strings.TrimRight(c.CalendarBaseURL, "/")
	return nil
}

// OAuthToken is the result of a code exchange or refresh
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// CalendarEvent is the subset of a Google Calendar event the service writes
type CalendarEvent struct {
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
}

// GoogleCalendar handles the OAuth flow and calendar event sync
type GoogleCalendar struct {
	config GoogleConfig
	now    func() time.Time
	caller
}

// NewGoogleCalendar creates the adapter
func NewGoogleCalendar(cfg GoogleConfig, observer CallObserver) (*GoogleCalendar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &GoogleCalendar{config: cfg, now: time.Now, caller: newCaller("google", cfg.Timeout, observer)}, nil
}

// AuthCodeURL builds the consent URL carrying state
func (g *GoogleCalendar) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", g.config.ClientID)
	q.Set("redirect_uri", g.config.RedirectURL)
	q.Set("response_type", "code")
	q.Set("scope", googleCalendarScope)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("include_granted_scopes", "true")
	q.Set("state", state)
	return g.config.AuthURL + "?" + q.Encode()
}

// Exchange trades an authorization code for tokens
func (g *GoogleCalendar) Exchange(ctx context.Context, code string) (OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", g.config.RedirectURL)
	return g.token(ctx, form)
}

// Refresh obtains a new access token. Google usually omits a new refresh token.
func (g *GoogleCalendar) Refresh(ctx context.Context, refreshToken string) (OAuthToken, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return g.token(ctx, form)
}

func (g *GoogleCalendar) token(ctx context.Context, form url.Values) (OAuthToken, error) {
	form.Set("client_id", g.config.ClientID)
	form.Set("client_secret", g.config.ClientSecret)
	req, err := g.newRequest(ctx, http.MethodPost, g.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return OAuthToken{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := g.do(req)
	if err != nil {
		return OAuthToken{}, err
	}
	res := gjson.ParseBytes(body)
	tok := OAuthToken{
		AccessToken:  res.Get("access_token").String(),
		RefreshToken: res.Get("refresh_token").String(),
		Expiry:       g.now().Add(time.Duration(res.Get("expires_in").Int()) * time.Second),
	}
	if tok.AccessToken == "" {
		return OAuthToken{}, &APIError{Provider: g.provider, StatusCode: http.StatusOK, Body: string(body), Err: errors.New("no access_token in response")}
	}
	return tok, nil
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

type eventBody struct {
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       eventTime `json:"start"`
	End         eventTime `json:"end"`
}

func toEventBody(e CalendarEvent) eventBody {
	return eventBody{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       eventTime{DateTime: e.Start.UTC().Format(time.RFC3339)},
		End:         eventTime{DateTime: e.End.UTC().Format(time.RFC3339)},
	}
}

func (g *GoogleCalendar) eventsURL(calendarID string) string {
	if calendarID == "" {
		calendarID = "primary"
	}
	return g.config.CalendarBaseURL + "/calendars/" + url.PathEscape(calendarID) + "/events"
}

func (g *GoogleCalendar) calendarCall(ctx context.Context, accessToken, method, endpoint string, payload any) ([]byte, error) {
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
	req, err := g.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.do(req)
}

// InsertEvent creates an event and returns its id
func (g *GoogleCalendar) InsertEvent(ctx context.Context, accessToken, calendarID string, e CalendarEvent) (string, error) {
	body, err := g.calendarCall(ctx, accessToken, http.MethodPost, g.eventsURL(calendarID), toEventBody(e))
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "id").String(), nil
}

// PatchEvent updates an existing event
func (g *GoogleCalendar) PatchEvent(ctx context.Context, accessToken, calendarID, eventID string, e CalendarEvent) error {
	_, err := g.calendarCall(ctx, accessToken, http.MethodPatch, g.eventsURL(calendarID)+"/"+url.PathEscape(eventID), toEventBody(e))
	return err
}

// DeleteEvent removes an event; an event already gone counts as deleted
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error {
	_, err := g.calendarCall(ctx, accessToken, http.MethodDelete, g.eventsURL(calendarID)+"/"+url.PathEscape(eventID), nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusNotFound || apiErr.StatusCode == http.StatusGone) {
		return nil
	}
	return err
}
