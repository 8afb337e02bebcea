package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/identity"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"github.com/stretchr/testify/mock"
)

// MockRepository is a mock implementation of notification.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context, filter notification.Filter) ([]*notification.Notification, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*notification.Notification), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Save(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockRepository) ChannelStats(ctx context.Context, from, to time.Time) (map[notification.Channel]notification.ChannelStats, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(map[notification.Channel]notification.ChannelStats), args.Error(1)
}

// memoryAutomations keeps automation settings in a map
type memoryAutomations struct {
	rows map[string]notification.AutomationSetting
}

func newMemoryAutomations() *memoryAutomations {
	return &memoryAutomations{rows: map[string]notification.AutomationSetting{}}
}

func (m *memoryAutomations) FindByEvent(_ context.Context, name string) (*notification.AutomationSetting, error) {
	s, ok := m.rows[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &s, nil
}

func (m *memoryAutomations) FindAll(context.Context) ([]notification.AutomationSetting, error) {
	out := make([]notification.AutomationSetting, 0, len(m.rows))
	for _, s := range m.rows {
		out = append(out, s)
	}
	return out, nil
}

func (m *memoryAutomations) Save(_ context.Context, s *notification.AutomationSetting) error {
	m.rows[s.EventName] = *s
	return nil
}

// scriptedSMS returns errs in order, then succeeds
type scriptedSMS struct {
	mu    sync.Mutex
	errs  []error
	calls int
	to    []string
	body  string
}

func (s *scriptedSMS) SendSMS(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.to = append(s.to, to)
	s.body = body
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "SM123", nil
}

type scriptedEmail struct {
	mu    sync.Mutex
	errs  []error
	calls int
	last  integration.Email
}

func (s *scriptedEmail) SendEmail(_ context.Context, e integration.Email) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = e
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return "re_abc", nil
}

type recordingRealtime struct {
	mu     sync.Mutex
	topics []string
	events []string
}

func (r *recordingRealtime) Publish(_ context.Context, topic, event string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
	return nil
}

type channelCounter struct {
	mu   sync.Mutex
	seen map[string]int
}

func (c *channelCounter) NotificationChannel(event, channel, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seen == nil {
		c.seen = map[string]int{}
	}
	c.seen[event+"/"+channel+"/"+outcome]++
}

type userMap map[uuid.UUID]*identity.User

func (m userMap) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

type recordingDispatch struct {
	reqs []Request
	err  error
}

func (d *recordingDispatch) Dispatch(_ context.Context, req Request) (*Result, error) {
	d.reqs = append(d.reqs, req)
	if d.err != nil {
		return nil, d.err
	}
	return &Result{Status: StatusSent}, nil
}

func serverError() error {
	return &integration.APIError{Provider: "twilio", StatusCode: 503, Body: "unavailable"}
}

func badRequest() error {
	return &integration.APIError{Provider: "twilio", StatusCode: 400, Body: `{"message":"invalid To number","code":21211}`}
}
