package scheduling

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/scheduling"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/integration"
	"go.uber.org/zap"
)

const statePurpose = "google_calendar"

var (
	// ErrCalendarNotConfigured is returned when Google OAuth credentials are missing
	ErrCalendarNotConfigured = shared.NewDomainError("INTEGRATION_NOT_CONFIGURED", "Google Calendar is not configured")
	// ErrCalendarNotConnected is returned when the staff member never linked a calendar
	ErrCalendarNotConnected = shared.NewDomainError("CALENDAR_NOT_CONNECTED", "Staff member has not connected a Google Calendar")
	// ErrInvalidState is returned when the OAuth state does not verify
	ErrInvalidState = shared.NewDomainError("INVALID_OAUTH_STATE", "OAuth state is invalid or expired")
)

// CalendarClient is the Google Calendar adapter
type CalendarClient interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (integration.OAuthToken, error)
	Refresh(ctx context.Context, refreshToken string) (integration.OAuthToken, error)
	InsertEvent(ctx context.Context, accessToken, calendarID string, e integration.CalendarEvent) (string, error)
	PatchEvent(ctx context.Context, accessToken, calendarID, eventID string, e integration.CalendarEvent) error
	DeleteEvent(ctx context.Context, accessToken, calendarID, eventID string) error
}

// StateSigner binds an OAuth round trip to the user who started it
type StateSigner interface {
	SignState(userID uuid.UUID, purpose string) (string, error)
	VerifyState(state, purpose string) (uuid.UUID, error)
}

// AuthURL returns the consent URL for userID
func (s *Service) AuthURL(userID uuid.UUID) (*AuthURLDTO, error) {
	if s.calendar == nil || s.states == nil {
		return nil, ErrCalendarNotConfigured
	}
	state, err := s.states.SignState(userID, statePurpose)
	if err != nil {
		return nil, err
	}
	return &AuthURLDTO{URL: s.calendar.AuthCodeURL(state)}, nil
}

// Callback verifies the state, exchanges the code and stores the connection
func (s *Service) Callback(ctx context.Context, in CallbackInput) (*ConnectionDTO, error) {
	if s.calendar == nil || s.states == nil {
		return nil, ErrCalendarNotConfigured
	}
	userID, err := s.states.VerifyState(in.State, statePurpose)
	if err != nil {
		return nil, ErrInvalidState
	}
	tok, err := s.calendar.Exchange(ctx, in.Code)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		conn.UpdateTokens(tok.AccessToken, tok.RefreshToken, tok.Expiry)
	case errors.Is(err, shared.ErrNotFound):
		conn, err = scheduling.NewCalendarConnection(userID, "primary", tok.AccessToken, tok.RefreshToken, tok.Expiry)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	if err := s.connections.Save(ctx, conn); err != nil {
		return nil, err
	}
	s.logger.Info("Google Calendar connected", zap.String("user_id", userID.String()))
	return connectionDTO(conn), nil
}

// Connection reports whether userID has linked a calendar
func (s *Service) Connection(ctx context.Context, userID uuid.UUID) (*ConnectionDTO, error) {
	conn, err := s.connections.FindByUserID(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return &ConnectionDTO{}, nil
	}
	if err != nil {
		return nil, err
	}
	return connectionDTO(conn), nil
}

// Disconnect forgets userID's calendar tokens
func (s *Service) Disconnect(ctx context.Context, userID uuid.UUID) error {
	if err := s.connections.DeleteByUserID(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("Google Calendar disconnected", zap.String("user_id", userID.String()))
	return nil
}

func connectionDTO(c *scheduling.CalendarConnection) *ConnectionDTO {
	expiry := c.Expiry
	return &ConnectionDTO{Connected: true, CalendarID: c.CalendarID, Expiry: &expiry}
}

// Sync pushes the appointment to the staff calendar now and reports failures
func (s *Service) Sync(ctx context.Context, appointmentID uuid.UUID) (*DTO, error) {
	appt, err := s.repo.FindByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.sync(ctx, appt); err != nil {
		return nil, err
	}
	return toDTO(appt), nil
}

// syncQuietly mirrors the appointment and only logs failures; booking never
// depends on Google being reachable.
func (s *Service) syncQuietly(ctx context.Context, appt *scheduling.Appointment) {
	if s.calendar == nil {
		return
	}
	err := s.sync(ctx, appt)
	switch {
	case err == nil:
	case errors.Is(err, ErrCalendarNotConnected):
		s.logger.Debug("Calendar sync skipped, staff not connected",
			zap.String("appointment_id", appt.ID.String()),
			zap.String("staff_id", appt.StaffID.String()))
	default:
		s.logger.Warn("Calendar sync failed",
			zap.String("appointment_id", appt.ID.String()),
			zap.Error(err))
	}
}

func (s *Service) sync(ctx context.Context, appt *scheduling.Appointment) error {
	if s.calendar == nil {
		return ErrCalendarNotConfigured
	}
	conn, err := s.accessToken(ctx, appt.StaffID)
	if err != nil {
		return err
	}

	if !appt.Status.IsOpen() {
		if appt.CalendarEventID == "" {
			return nil
		}
		if err := s.calendar.DeleteEvent(ctx, conn.AccessToken, conn.CalendarID, appt.CalendarEventID); err != nil {
			return err
		}
		appt.SetCalendarEventID("")
		return s.repo.Save(ctx, appt)
	}

	event := s.calendarEvent(ctx, appt)
	if appt.CalendarEventID != "" {
		return s.calendar.PatchEvent(ctx, conn.AccessToken, conn.CalendarID, appt.CalendarEventID, event)
	}
	id, err := s.calendar.InsertEvent(ctx, conn.AccessToken, conn.CalendarID, event)
	if err != nil {
		return err
	}
	appt.SetCalendarEventID(id)
	return s.repo.Save(ctx, appt)
}

func (s *Service) calendarEvent(ctx context.Context, appt *scheduling.Appointment) integration.CalendarEvent {
	title := strings.ReplaceAll(string(appt.Type), "_", " ")
	title = strings.ToUpper(title[:1]) + title[1:]
	if customer, err := s.users.FindByID(ctx, appt.CustomerID); err == nil {
		title += " with " + customer.FullName
	}
	return integration.CalendarEvent{
		Summary:     title,
		Description: appt.Notes,
		Location:    appt.Location,
		Start:       appt.StartsAt,
		End:         appt.EndsAt,
	}
}

// accessToken returns a usable connection for userID, refreshing an expired
// token once even when several syncs race for it.
func (s *Service) accessToken(ctx context.Context, userID uuid.UUID) (*scheduling.CalendarConnection, error) {
	v, err, _ := s.refreshes.Do(userID.String(), func() (any, error) {
		conn, err := s.connections.FindByUserID(ctx, userID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrCalendarNotConnected
		}
		if err != nil {
			return nil, err
		}
		if !conn.Expired(s.now()) {
			return conn, nil
		}
		if conn.RefreshToken == "" {
			return nil, ErrCalendarNotConnected
		}
		tok, err := s.calendar.Refresh(ctx, conn.RefreshToken)
		if err != nil {
			return nil, err
		}
		conn.UpdateTokens(tok.AccessToken, tok.RefreshToken, tok.Expiry)
		if err := s.connections.Save(ctx, conn); err != nil {
			return nil, err
		}
		s.logger.Debug("Google Calendar token refreshed", zap.String("user_id", userID.String()))
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*scheduling.CalendarConnection), nil
}
