package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// CalendarConnection holds a staff member's Google Calendar OAuth tokens
type CalendarConnection struct {
	shared.BaseEntity
	UserID       uuid.UUID
	CalendarID   string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// NewCalendarConnection creates a connection for userID
func NewCalendarConnection(userID uuid.UUID, calendarID, access, refresh string, expiry time.Time) (*CalendarConnection, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "Calendar connection requires a user")
	}
	if access == "" {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Access token cannot be empty")
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &CalendarConnection{
		BaseEntity:   shared.NewBaseEntity(),
		UserID:       userID,
		CalendarID:   calendarID,
		AccessToken:  access,
		RefreshToken: refresh,
		Expiry:       expiry,
	}, nil
}

// Expired reports whether the access token needs refreshing, with a one minute margin
func (c *CalendarConnection) Expired(now time.Time) bool {
	return !c.Expiry.After(now.Add(time.Minute))
}

// UpdateTokens stores refreshed tokens; an empty refresh token keeps the old one
func (c *CalendarConnection) UpdateTokens(access, refresh string, expiry time.Time) {
	c.AccessToken = access
	if refresh != "" {
		c.RefreshToken = refresh
	}
	c.Expiry = expiry
	c.Touch()
}

// CalendarConnectionRepository persists calendar connections
type CalendarConnectionRepository interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) (*CalendarConnection, error)
	Save(ctx context.Context, c *CalendarConnection) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}
