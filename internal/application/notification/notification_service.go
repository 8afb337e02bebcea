package notification

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/notification"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"go.uber.org/zap"
)

// ErrChannelNotConfigured is returned by ad-hoc sends when the provider is not wired
var ErrChannelNotConfigured = shared.NewDomainError("INTEGRATION_NOT_CONFIGURED", "Messaging provider is not configured")

// Service exposes the notification log, previews and automation toggles
type Service struct {
	repo        notification.Repository
	automations notification.AutomationRepository
	dispatcher  *Dispatcher
	logger      *zap.Logger
}

// NewService creates a notification service
func NewService(repo notification.Repository, automations notification.AutomationRepository, dispatcher *Dispatcher, logger *zap.Logger) *Service {
	return &Service{repo: repo, automations: automations, dispatcher: dispatcher, logger: logger}
}

// Dispatch forwards to the dispatcher
func (s *Service) Dispatch(ctx context.Context, req Request) (*Result, error) {
	return s.dispatcher.Dispatch(ctx, req)
}

// List pages the notification log
func (s *Service) List(ctx context.Context, in ListInput) (shared.Paginated[DTO], error) {
	f := in.filter()
	rows, total, err := s.repo.FindAll(ctx, f)
	if err != nil {
		return shared.Paginated[DTO]{}, err
	}
	items := make([]DTO, len(rows))
	for i, n := range rows {
		items[i] = toDTO(n)
	}
	return shared.NewPaginated(items, total, f.Page, f.PageSize), nil
}

// Get returns one notification
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*DTO, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(n)
	return &dto, nil
}

// Resend dispatches a stored notification's event again under a fresh dedupe key
func (s *Service) Resend(ctx context.Context, id uuid.UUID) (*Result, error) {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.dispatcher.Dispatch(ctx, Request{
		EventName:     n.EventName,
		DedupeKey:     "resend:" + n.ID.String() + ":" + uuid.NewString(),
		Recipient:     n.Recipient,
		ReferenceType: n.ReferenceType,
		ReferenceID:   n.ReferenceID,
		Fields:        n.Fields,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Notification resent",
		zap.String("original_id", id.String()),
		zap.String("event", n.EventName),
		zap.String("status", string(res.Status)))
	return res, nil
}

// Preview renders an event without sending
func (s *Service) Preview(in PreviewInput) (*PreviewDTO, error) {
	c, err := s.dispatcher.Preview(in.EventName, in.Fields)
	if err != nil {
		return nil, err
	}
	return &PreviewDTO{
		EventName:    in.EventName,
		SMS:          c.SMS,
		EmailSubject: c.Email.Subject,
		EmailHTML:    c.Email.HTML,
		EmailText:    c.Email.Text,
		Missing:      c.Missing,
		Placeholders: s.dispatcher.templates[in.EventName].Placeholders(),
	}, nil
}

// ListAutomations returns a toggle for every event, defaulting missing rows to enabled
func (s *Service) ListAutomations(ctx context.Context) ([]AutomationDTO, error) {
	rows, err := s.automations.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	stored := make(map[string]notification.AutomationSetting, len(rows))
	for _, r := range rows {
		stored[r.EventName] = r
	}
	out := make([]AutomationDTO, 0, len(notification.AllEvents))
	for _, name := range notification.AllEvents {
		setting, ok := stored[name]
		if !ok {
			setting = notification.DefaultAutomationSetting(name)
		}
		out = append(out, toAutomationDTO(setting))
	}
	return out, nil
}

// UpdateAutomation changes the toggles for one event; unset fields keep their value
func (s *Service) UpdateAutomation(ctx context.Context, eventName string, in UpdateAutomationInput, by uuid.UUID) (*AutomationDTO, error) {
	if !notification.IsKnownEvent(eventName) {
		return nil, unknownEvent(eventName)
	}
	current, err := s.automations.FindByEvent(ctx, eventName)
	if errors.Is(err, shared.ErrNotFound) {
		def := notification.DefaultAutomationSetting(eventName)
		current = &def
	} else if err != nil {
		return nil, err
	}
	if in.Enabled != nil {
		current.Enabled = *in.Enabled
	}
	if in.SMSEnabled != nil {
		current.SMSEnabled = *in.SMSEnabled
	}
	if in.EmailEnabled != nil {
		current.EmailEnabled = *in.EmailEnabled
	}
	current.UpdatedBy = &by
	current.UpdatedAt = time.Now()
	if err := s.automations.Save(ctx, current); err != nil {
		return nil, err
	}
	s.logger.Info("Notification automation updated",
		zap.String("event", eventName),
		zap.Bool("enabled", current.Enabled),
		zap.Bool("sms", current.SMSEnabled),
		zap.Bool("email", current.EmailEnabled),
		zap.String("updated_by", by.String()))
	dto := toAutomationDTO(*current)
	return &dto, nil
}

// SendSMS sends an ad-hoc text through the SMS provider
func (s *Service) SendSMS(ctx context.Context, in SendInput) (string, error) {
	if s.dispatcher.sms == nil {
		return "", ErrChannelNotConfigured
	}
	id, err := s.dispatcher.sms.SendSMS(ctx, strings.TrimSpace(in.To), in.Body)
	if err != nil {
		return "", providerError(err)
	}
	return id, nil
}

// SendEmail sends an ad-hoc email through the email provider
func (s *Service) SendEmail(ctx context.Context, in SendInput) (string, error) {
	if s.dispatcher.email == nil {
		return "", ErrChannelNotConfigured
	}
	if strings.TrimSpace(in.Subject) == "" {
		return "", shared.NewDomainError("INVALID_SUBJECT", "Email subject is required")
	}
	id, err := s.dispatcher.email.SendEmail(ctx, integration.Email{
		To:      strings.TrimSpace(in.To),
		Subject: in.Subject,
		HTML:    in.HTML,
		Text:    in.Body,
	})
	if err != nil {
		return "", providerError(err)
	}
	return id, nil
}

func providerError(err error) error {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.NewDomainError(shared.ErrIntegration.Code, errorText(err))
}
