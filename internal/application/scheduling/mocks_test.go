package scheduling

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
)

// memoryAppointments is an in-memory scheduling.AppointmentRepository
type memoryAppointments struct {
	rows    map[uuid.UUID]*scheduling.Appointment
	saves   int
	saveErr error
}

func newMemoryAppointments() *memoryAppointments {
	return &memoryAppointments{rows: map[uuid.UUID]*scheduling.Appointment{}}
}

func (m *memoryAppointments) FindByID(_ context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	if a, ok := m.rows[id]; ok {
		return a, nil
	}
	return nil, shared.ErrNotFound
}

func (m *memoryAppointments) FindAll(_ context.Context, f scheduling.AppointmentFilter) ([]*scheduling.Appointment, int64, error) {
	var out []*scheduling.Appointment
	for _, a := range m.rows {
		if f.CustomerID != nil && a.CustomerID != *f.CustomerID {
			continue
		}
		if f.StaffID != nil && a.StaffID != *f.StaffID {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (m *memoryAppointments) FindOverlapping(_ context.Context, staffID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]*scheduling.Appointment, error) {
	var out []*scheduling.Appointment
	for _, a := range m.rows {
		if a.StaffID == staffID && a.ID != excludeID && a.Status.IsOpen() && a.Overlaps(start, end) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAppointments) FindNeedingReminder(_ context.Context, now, cutoff time.Time) ([]*scheduling.Appointment, error) {
	var out []*scheduling.Appointment
	for _, a := range m.rows {
		if a.NeedsReminder(now, cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memoryAppointments) Save(_ context.Context, a *scheduling.Appointment) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.rows[a.ID] = a
	return nil
}

// memoryConnections stores copies so concurrent readers never share a struct
type memoryConnections struct {
	mu   sync.Mutex
	rows map[uuid.UUID]scheduling.CalendarConnection
}

func newMemoryConnections() *memoryConnections {
	return &memoryConnections{rows: map[uuid.UUID]scheduling.CalendarConnection{}}
}

func (m *memoryConnections) FindByUserID(_ context.Context, userID uuid.UUID) (*scheduling.CalendarConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (m *memoryConnections) Save(_ context.Context, c *scheduling.CalendarConnection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[c.UserID] = *c
	return nil
}

func (m *memoryConnections) DeleteByUserID(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[userID]; !ok {
		return shared.ErrNotFound
	}
	delete(m.rows, userID)
	return nil
}

type userMap map[uuid.UUID]*identity.User

func (m userMap) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

// fakeCalendar records calls against a pretend Google Calendar
type fakeCalendar struct {
	mu        sync.Mutex
	refreshes atomic.Int32
	inserted  []integration.CalendarEvent
	patched   []string
	deleted   []string
	tokens    []string
	insertErr error
	expiry    time.Time
}

func (c *fakeCalendar) AuthCodeURL(state string) string {
	return "https://accounts.test/auth?state=" + state
}

func (c *fakeCalendar) Exchange(_ context.Context, code string) (integration.OAuthToken, error) {
	if code == "bad" {
		return integration.OAuthToken{}, &integration.APIError{Provider: "google", StatusCode: 400, Body: `{"error":"invalid_grant"}`}
	}
	return integration.OAuthToken{AccessToken: "ya29.first", RefreshToken: "1//refresh", Expiry: c.expiry}, nil
}

func (c *fakeCalendar) Refresh(_ context.Context, refreshToken string) (integration.OAuthToken, error) {
	c.refreshes.Add(1)
	time.Sleep(10 * time.Millisecond)
	return integration.OAuthToken{AccessToken: "ya29.refreshed", Expiry: c.expiry}, nil
}

func (c *fakeCalendar) InsertEvent(_ context.Context, token, _ string, e integration.CalendarEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.insertErr != nil {
		return "", c.insertErr
	}
	c.tokens = append(c.tokens, token)
	c.inserted = append(c.inserted, e)
	return "evt_1", nil
}

func (c *fakeCalendar) PatchEvent(_ context.Context, token, _, eventID string, _ integration.CalendarEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
	c.patched = append(c.patched, eventID)
	return nil
}

func (c *fakeCalendar) DeleteEvent(_ context.Context, token, _, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, token)
	c.deleted = append(c.deleted, eventID)
	return nil
}

// prefixStates signs state as "<purpose>:<user id>"
type prefixStates struct{}

func (prefixStates) SignState(userID uuid.UUID, purpose string) (string, error) {
	return purpose + ":" + userID.String(), nil
}

func (prefixStates) VerifyState(state, purpose string) (uuid.UUID, error) {
	rest, ok := strings.CutPrefix(state, purpose+":")
	if !ok {
		return uuid.Nil, errors.New("bad state")
	}
	return uuid.Parse(rest)
}

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
