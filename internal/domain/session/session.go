package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/shared"
)

// EnvelopeVersion is the only persisted layout this build understands
const EnvelopeVersion = 1

var (
	// ErrSessionNotFound is returned when a client has no usable session
	ErrSessionNotFound = shared.NewDomainError("SESSION_NOT_FOUND", "No active session for this client")
	// ErrCorrupted marks an envelope that failed integrity checks
	ErrCorrupted = errors.New("session envelope corrupted")
	// ErrStale marks an envelope past its max age or refresh expiry
	ErrStale = errors.New("session envelope stale")
)

// Session is the single token pair held by one client (browser or app install)
type Session struct {
	ClientID         string    `json:"client_id"`
	UserID           uuid.UUID `json:"user_id"`
	Role             string    `json:"role"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the fields every stored session must carry
func (s *Session) Validate() error {
	if strings.TrimSpace(s.ClientID) == "" {
		return shared.NewDomainError("INVALID_CLIENT_ID", "Client id cannot be empty")
	}
	if s.UserID == uuid.Nil {
		return shared.NewDomainError("INVALID_USER", "Session requires a user")
	}
	if s.RefreshToken == "" || s.AccessToken == "" {
		return shared.NewDomainError("INVALID_TOKEN", "Session requires both tokens")
	}
	return nil
}

// RefreshExpired reports whether the refresh token can no longer be used
func (s *Session) RefreshExpired(now time.Time) bool {
	return !s.RefreshExpiresAt.IsZero() && !now.Before(s.RefreshExpiresAt)
}

// AccessExpired reports whether the access token has lapsed
func (s *Session) AccessExpired(now time.Time) bool {
	return !now.Before(s.AccessExpiresAt)
}

// Envelope is the persisted form of a session
type Envelope struct {
	Version  int             `json:"version"`
	SavedAt  time.Time       `json:"saved_at"`
	Checksum string          `json:"checksum"`
	Session  json.RawMessage `json:"session"`
}

// Seal encodes s into envelope bytes stamped with now
func Seal(s *Session, now time.Time) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return json.Marshal(Envelope{
		Version:  EnvelopeVersion,
		SavedAt:  now.UTC(),
		Checksum: checksum(raw),
		Session:  raw,
	})
}

// Open decodes and validates envelope bytes. Integrity failures wrap ErrCorrupted;
// envelopes older than maxAge or with an expired refresh token wrap ErrStale.
func Open(data []byte, now time.Time, maxAge time.Duration) (*Session, *Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if env.Version != EnvelopeVersion {
		return nil, &env, fmt.Errorf("%w: version %d", ErrCorrupted, env.Version)
	}
	if len(env.Session) == 0 || checksum(env.Session) != env.Checksum {
		return nil, &env, fmt.Errorf("%w: checksum mismatch", ErrCorrupted)
	}
	var s Session
	if err := json.Unmarshal(env.Session, &s); err != nil {
		return nil, &env, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if strings.TrimSpace(s.ClientID) == "" {
		return nil, &env, fmt.Errorf("%w: missing client id", ErrCorrupted)
	}
	if maxAge > 0 && now.Sub(env.SavedAt) > maxAge {
		return nil, &env, fmt.Errorf("%w: saved %s ago", ErrStale, now.Sub(env.SavedAt).Round(time.Second))
	}
	if s.RefreshExpired(now) {
		return nil, &env, fmt.Errorf("%w: refresh token expired", ErrStale)
	}
	return &s, &env, nil
}

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Store persists envelopes by client id
type Store interface {
	// Load returns ErrSessionNotFound when the key is absent
	Load(ctx context.Context, clientID string) ([]byte, error)
	Save(ctx context.Context, clientID string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, clientID string) error
	// ClientIDs lists every stored client id
	ClientIDs(ctx context.Context) ([]string, error)
}

// Sync event types
const (
	SyncUpdated = "session.updated"
	SyncCleared = "session.cleared"
)

// SyncEvent is broadcast to other instances whenever a session changes
type SyncEvent struct {
	Type      string    `json:"type"`
	ClientID  string    `json:"client_id"`
	Origin    string    `json:"origin"`
	UpdatedAt time.Time `json:"updated_at"`
	Session   *Session  `json:"session,omitempty"`
}

// Broadcaster fans sync events out across instances
type Broadcaster interface {
	Publish(ctx context.Context, evt SyncEvent) error
	// Subscribe delivers events until ctx is cancelled or the returned close func is called
	Subscribe(ctx context.Context, handler func(SyncEvent)) (func() error, error)
}
