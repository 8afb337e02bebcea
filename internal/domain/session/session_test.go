package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(now time.Time) *Session {
	return &Session{
		ClientID:         "tab-1",
		UserID:           uuid.New(),
		Role:             "customer",
		AccessToken:      "access",
		RefreshToken:     "refresh",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestSealOpen(t *testing.T) {
	now := time.Now()
	s := sample(now)

	data, err := Seal(s, now)
	require.NoError(t, err)

	got, env, err := Open(data, now.Add(time.Minute), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, s.ClientID, got.ClientID)
	assert.Equal(t, s.UserID, got.UserID)
	assert.True(t, s.RefreshExpiresAt.Equal(got.RefreshExpiresAt))
}

func TestOpen_Corrupted(t *testing.T) {
	now := time.Now()
	data, err := Seal(sample(now), now)
	require.NoError(t, err)

	tamper := func(mut func(m map[string]any)) []byte {
		var m map[string]any
		require.NoError(t, json.Unmarshal(data, &m))
		mut(m)
		out, err := json.Marshal(m)
		require.NoError(t, err)
		return out
	}

	cases := map[string][]byte{
		"garbage":          []byte("{not json"),
		"version mismatch": tamper(func(m map[string]any) { m["version"] = 2 }),
		"checksum":         tamper(func(m map[string]any) { m["checksum"] = "deadbeef" }),
		"session edited": tamper(func(m map[string]any) {
			m["session"].(map[string]any)["role"] = "admin"
		}),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Open(b, now, time.Hour)
			assert.True(t, errors.Is(err, ErrCorrupted), "got %v", err)
		})
	}

	t.Run("missing client id", func(t *testing.T) {
		s := sample(now)
		s.ClientID = ""
		b, err := Seal(s, now)
		require.NoError(t, err)
		_, _, err = Open(b, now, time.Hour)
		assert.True(t, errors.Is(err, ErrCorrupted))
	})
}

func TestOpen_Stale(t *testing.T) {
	now := time.Now()
	data, err := Seal(sample(now), now)
	require.NoError(t, err)

	_, _, err = Open(data, now.Add(8*24*time.Hour), 7*24*time.Hour)
	assert.True(t, errors.Is(err, ErrStale))

	s := sample(now)
	s.RefreshExpiresAt = now.Add(-time.Second)
	data, err = Seal(s, now)
	require.NoError(t, err)
	_, _, err = Open(data, now, 7*24*time.Hour)
	assert.True(t, errors.Is(err, ErrStale))
}

func TestSession_Validate(t *testing.T) {
	now := time.Now()
	assert.NoError(t, sample(now).Validate())

	s := sample(now)
	s.UserID = uuid.Nil
	assert.Error(t, s.Validate())

	s = sample(now)
	s.ClientID = " "
	assert.Error(t, s.Validate())
}
