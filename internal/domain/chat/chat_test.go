package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession(t *testing.T) {
	customer, staff := uuid.New(), uuid.New()
	s, err := NewSession(customer, "Financing question")
	require.NoError(t, err)
	assert.True(t, s.IsParticipant(customer))
	assert.False(t, s.IsParticipant(staff))

	require.NoError(t, s.Assign(staff))
	assert.True(t, s.IsParticipant(staff))

	now := time.Now()
	msg, err := s.Post(customer, "  Do you offer land-home packages? ", now)
	require.NoError(t, err)
	assert.Equal(t, "Do you offer land-home packages?", msg.Body)
	assert.Equal(t, s.ID, msg.SessionID)
	assert.Equal(t, now, *s.LastMessageAt)

	_, err = s.Post(customer, "   ", now)
	assert.ErrorContains(t, err, "between 1 and 4000")
	_, err = s.Post(customer, strings.Repeat("a", 4001), now)
	assert.Error(t, err)
	_, err = s.Post(customer, strings.Repeat("é", 4000), now)
	assert.NoError(t, err)

	require.NoError(t, s.Close(now))
	assert.Error(t, s.Close(now))
	_, err = s.Post(staff, "hello", now)
	assert.Error(t, err)
	assert.Error(t, s.Assign(staff))
}
