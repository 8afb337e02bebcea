package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/homestead/backend/internal/domain/session"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix     = "session:client:"
	defaultScanBatchSize = 100
)

// RedisSessionStore keeps session envelopes under session:client:<id>
type RedisSessionStore struct {
	client redis.UniversalClient
}

// NewRedisSessionStore wraps a shared client
func NewRedisSessionStore(client redis.UniversalClient) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Load returns the raw envelope for clientID
func (s *RedisSessionStore) Load(ctx context.Context, clientID string) ([]byte, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+clientID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", clientID, err)
	}
	return data, nil
}

// Save writes the envelope. A non-positive ttl stores without expiry.
func (s *RedisSessionStore) Save(ctx context.Context, clientID string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+clientID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", clientID, err)
	}
	return nil
}

// Delete removes the envelope; deleting a missing key is not an error
func (s *RedisSessionStore) Delete(ctx context.Context, clientID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+clientID).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", clientID, err)
	}
	return nil
}

// ClientIDs scans every stored session key
func (s *RedisSessionStore) ClientIDs(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, sessionKeyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan session keys: %w", err)
		}
		for _, k := range keys {
			ids = append(ids, strings.TrimPrefix(k, sessionKeyPrefix))
		}
		if next == 0 {
			return ids, nil
		}
		cursor = next
	}
}

var _ session.Store = (*RedisSessionStore)(nil)

type memoryEnvelope struct {
	data      []byte
	expiresAt time.Time
}

// MemorySessionStore is the single-process session store used in tests and
// when Redis is disabled
type MemorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEnvelope
	now     func() time.Time
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{entries: make(map[string]memoryEnvelope), now: time.Now}
}

// Load returns a copy of the stored bytes
func (s *MemorySessionStore) Load(_ context.Context, clientID string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[clientID]
	if !ok || s.expired(e) {
		delete(s.entries, clientID)
		return nil, session.ErrSessionNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// Save stores a copy of data
func (s *MemorySessionStore) Save(_ context.Context, clientID string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEnvelope{data: append([]byte(nil), data...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[clientID] = e
	return nil
}

// Delete removes clientID
func (s *MemorySessionStore) Delete(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, clientID)
	return nil
}

// ClientIDs lists live keys in sorted order
func (s *MemorySessionStore) ClientIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.entries))
	for id, e := range s.entries {
		if !s.expired(e) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// Raw exposes a stored envelope for tests that corrupt storage
func (s *MemorySessionStore) Raw(clientID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[clientID]
	return e.data, ok
}

func (s *MemorySessionStore) expired(e memoryEnvelope) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

var _ session.Store = (*MemorySessionStore)(nil)
