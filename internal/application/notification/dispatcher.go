package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SMSSender delivers a text message and returns the provider message id
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// EmailSender delivers an email and returns the provider message id
type EmailSender interface {
	SendEmail(ctx context.Context, e integration.Email) (string, error)
}

// Metrics counts channel outcomes
type Metrics interface {
	NotificationChannel(event, channel, outcome string)
}

// Status is the overall outcome of a dispatch
type Status string

const (
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusDuplicate Status = "duplicate"
)

// Request asks for one event to be sent to one recipient
type Request struct {
	EventName     string
	DedupeKey     string
	Recipient     notification.Recipient
	ReferenceType string
	ReferenceID   *uuid.UUID
	Fields        map[string]string
}

// Result describes a dispatch
type Result struct {
	NotificationID *uuid.UUID                 `json:"notification_id,omitempty"`
	Status         Status                     `json:"status"`
	SMS            notification.ChannelResult `json:"sms"`
	Email          notification.ChannelResult `json:"email"`
	Missing        []string                   `json:"missing_fields,omitempty"`
}

// DispatchOptions tunes retries and deduplication
type DispatchOptions struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	DedupeTTL      time.Duration
}

// Dispatcher renders templates and sends both channels
type Dispatcher struct {
	repo        notification.Repository
	automations notification.AutomationRepository
	templates   map[string]notification.Template
	dedupe      shared.IdempotencyStore
	opts        DispatchOptions

	sms      SMSSender
	email    EmailSender
	realtime shared.RealtimePublisher
	metrics  Metrics
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. A nil sender skips its channel.
func NewDispatcher(
	repo notification.Repository,
	automations notification.AutomationRepository,
	templates map[string]notification.Template,
	dedupe shared.IdempotencyStore,
	opts DispatchOptions,
	logger *zap.Logger,
) *Dispatcher {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 200 * time.Millisecond
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = 7 * 24 * time.Hour
	}
	return &Dispatcher{
		repo:        repo,
		automations: automations,
		templates:   templates,
		dedupe:      dedupe,
		opts:        opts,
		metrics:     nopMetrics{},
		now:         time.Now,
		sleep:       sleepContext,
		logger:      logger,
	}
}

// SetSenders wires the SMS and email providers
func (d *Dispatcher) SetSenders(sms SMSSender, email EmailSender) {
	d.sms = sms
	d.email = email
}

// SetRealtime enables notification.created pushes
func (d *Dispatcher) SetRealtime(realtime shared.RealtimePublisher) {
	d.realtime = realtime
}

// SetMetrics sets the channel outcome counter
func (d *Dispatcher) SetMetrics(m Metrics) {
	if m != nil {
		d.metrics = m
	}
}

type nopMetrics struct{}

func (nopMetrics) NotificationChannel(string, string, string) {}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dispatch sends req on both channels and records the outcome
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	tpl, ok := d.templates[req.EventName]
	if !ok {
		return nil, unknownEvent(req.EventName)
	}
	setting, err := d.setting(ctx, req.EventName)
	if err != nil {
		return nil, err
	}
	if !setting.Enabled {
		d.logger.Debug("Notification automation disabled", zap.String("event", req.EventName))
		return &Result{Status: StatusSkipped}, nil
	}

	if req.DedupeKey != "" && d.dedupe != nil {
		fresh, err := d.dedupe.MarkProcessed(ctx, dedupeKey(req.DedupeKey), d.opts.DedupeTTL)
		if err != nil {
			d.logger.Warn("Dedupe check failed, sending anyway", zap.String("key", req.DedupeKey), zap.Error(err))
		} else if !fresh {
			d.logger.Info("Duplicate notification suppressed",
				zap.String("event", req.EventName),
				zap.String("key", req.DedupeKey))
			return &Result{Status: StatusDuplicate}, nil
		}
	}

	composed := tpl.Compose(req.Fields)
	if len(composed.Missing) > 0 {
		d.logger.Warn("Notification template fields missing",
			zap.String("event", req.EventName),
			zap.Strings("missing", composed.Missing))
	}

	var smsRes, emailRes notification.ChannelResult
	var g errgroup.Group
	g.Go(func() error {
		smsRes = d.sendSMS(ctx, setting, req.Recipient.Phone, composed.SMS)
		return nil
	})
	g.Go(func() error {
		emailRes = d.sendEmail(ctx, setting, req.Recipient.Email, composed.Email)
		return nil
	})
	_ = g.Wait()

	d.metrics.NotificationChannel(req.EventName, string(notification.ChannelSMS), string(smsRes.Status))
	d.metrics.NotificationChannel(req.EventName, string(notification.ChannelEmail), string(emailRes.Status))

	n := notification.NewNotification(req.EventName, req.DedupeKey, req.Recipient, req.ReferenceType, req.ReferenceID, req.Fields)
	n.MarkProcessed(smsRes, emailRes, d.now())
	if err := d.repo.Save(ctx, n); err != nil {
		d.logger.Error("Failed to store notification",
			zap.String("event", req.EventName),
			zap.Error(err))
		return nil, err
	}
	d.push(ctx, n)

	d.logger.Info("Notification dispatched",
		zap.String("notification_id", n.ID.String()),
		zap.String("event", req.EventName),
		zap.String("sms", string(smsRes.Status)),
		zap.String("email", string(emailRes.Status)))

	id := n.ID
	return &Result{
		NotificationID: &id,
		Status:         Status(n.Outcome()),
		SMS:            smsRes,
		Email:          emailRes,
		Missing:        composed.Missing,
	}, nil
}

// Preview renders an event's templates without sending
func (d *Dispatcher) Preview(eventName string, fields map[string]string) (notification.Composed, error) {
	tpl, ok := d.templates[eventName]
	if !ok {
		return notification.Composed{}, unknownEvent(eventName)
	}
	return tpl.Compose(fields), nil
}

func unknownEvent(name string) error {
	return shared.NewDomainError(shared.ErrInvalidInput.Code, fmt.Sprintf("Unknown notification event %q", name))
}

func dedupeKey(key string) string {
	return "notification:" + key
}

func (d *Dispatcher) setting(ctx context.Context, eventName string) (notification.AutomationSetting, error) {
	if d.automations == nil {
		return notification.DefaultAutomationSetting(eventName), nil
	}
	s, err := d.automations.FindByEvent(ctx, eventName)
	if errors.Is(err, shared.ErrNotFound) {
		return notification.DefaultAutomationSetting(eventName), nil
	}
	if err != nil {
		return notification.AutomationSetting{}, err
	}
	return *s, nil
}

func (d *Dispatcher) sendSMS(ctx context.Context, setting notification.AutomationSetting, to, body string) notification.ChannelResult {
	if d.sms == nil || !setting.ChannelEnabled(notification.ChannelSMS) || strings.TrimSpace(to) == "" {
		return notification.ChannelResult{Status: notification.ChannelSkipped}
	}
	return d.withRetry(ctx, notification.ChannelSMS, func() (string, error) {
		return d.sms.SendSMS(ctx, to, body)
	})
}

func (d *Dispatcher) sendEmail(ctx context.Context, setting notification.AutomationSetting, to string, msg notification.EmailTemplate) notification.ChannelResult {
	if d.email == nil || !setting.ChannelEnabled(notification.ChannelEmail) || strings.TrimSpace(to) == "" {
		return notification.ChannelResult{Status: notification.ChannelSkipped}
	}
	return d.withRetry(ctx, notification.ChannelEmail, func() (string, error) {
		return d.email.SendEmail(ctx, integration.Email{To: to, Subject: msg.Subject, HTML: msg.HTML, Text: msg.Text})
	})
}

// withRetry retries retryable provider errors with exponential backoff
func (d *Dispatcher) withRetry(ctx context.Context, ch notification.Channel, send func() (string, error)) notification.ChannelResult {
	var lastErr error
	attempts := 0
	for attempts < d.opts.MaxAttempts {
		attempts++
		id, err := send()
		if err == nil {
			return notification.ChannelResult{Status: notification.ChannelSent, MessageID: id, Attempts: attempts}
		}
		lastErr = err
		if !integration.IsRetryable(err) || attempts == d.opts.MaxAttempts {
			break
		}
		delay := d.opts.RetryBaseDelay * time.Duration(1<<(attempts-1))
		d.logger.Debug("Retrying notification channel",
			zap.String("channel", string(ch)),
			zap.Int("attempt", attempts),
			zap.Duration("delay", delay),
			zap.Error(err))
		if err := d.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}
	d.logger.Warn("Notification channel failed",
		zap.String("channel", string(ch)),
		zap.Int("attempts", attempts),
		zap.Error(lastErr))
	return notification.ChannelResult{Status: notification.ChannelFailed, Error: errorText(lastErr), Attempts: attempts}
}

func errorText(err error) string {
	var apiErr *integration.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s %d: %s", apiErr.Provider, apiErr.StatusCode, apiErr.Message())
	}
	return err.Error()
}

func (d *Dispatcher) push(ctx context.Context, n *notification.Notification) {
	if d.realtime == nil {
		return
	}
	if err := d.realtime.Publish(ctx, shared.TopicNotifications, "notification.created", toDTO(n)); err != nil {
		d.logger.Warn("Failed to push notification", zap.String("notification_id", n.ID.String()), zap.Error(err))
	}
}
