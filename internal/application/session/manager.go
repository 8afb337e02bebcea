// Package session keeps one token pair per client and mirrors it across
// instances and browser tabs.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/session"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultDebounce = 250 * time.Millisecond
	defaultMaxAge   = 7 * 24 * time.Hour
	writeTimeout    = 5 * time.Second
)

// Refresher exchanges a session's refresh token for a new pair
type Refresher interface {
	RefreshSession(ctx context.Context, current *session.Session) (*session.Session, error)
}

// PersistenceObserver records store outcomes
type PersistenceObserver interface {
	SessionPersistence(operation string, err error)
}

// Config tunes debounce and staleness
type Config struct {
	Debounce time.Duration
	MaxAge   time.Duration
}

// ConfigFrom maps service configuration, keeping defaults for zero values
func ConfigFrom(c config.SessionConfig) Config {
	cfg := Config{Debounce: c.Debounce, MaxAge: c.MaxAge}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	return cfg
}

// SweepResult reports one integrity sweep
type SweepResult struct {
	Checked int `json:"checked"`
	Wiped   int `json:"wiped"`
}

// Manager holds the in-memory mirror and coalesces writes to the store
type Manager struct {
	store       session.Store
	broadcaster session.Broadcaster
	realtime    shared.RealtimePublisher
	observer    PersistenceObserver
	refresher   Refresher
	config      Config
	origin      string
	logger      *zap.Logger
	now         func() time.Time

	mu      sync.Mutex
	mirror  map[string]*session.Session
	pending map[string]*pendingWrite
	writes  sync.WaitGroup
	group   singleflight.Group

	unsubscribe func() error
}

// NewManager creates a manager. realtime and observer may be nil.
func NewManager(
	store session.Store,
	broadcaster session.Broadcaster,
	realtime shared.RealtimePublisher,
	observer PersistenceObserver,
	cfg Config,
	logger *zap.Logger,
) *Manager {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	return &Manager{
		store:       store,
		broadcaster: broadcaster,
		realtime:    realtime,
		observer:    observer,
		config:      cfg,
		origin:      uuid.NewString(),
		logger:      logger.Named("session"),
		now:         time.Now,
		mirror:      make(map[string]*session.Session),
		pending:     make(map[string]*pendingWrite),
	}
}

// SetRefresher wires the token service after construction
func (m *Manager) SetRefresher(r Refresher) {
	m.refresher = r
}

// Origin identifies this instance on the broadcast channel
func (m *Manager) Origin() string {
	return m.origin
}

// Start subscribes to broadcasts from other instances
func (m *Manager) Start(ctx context.Context) error {
	if m.broadcaster == nil {
		return nil
	}
	unsubscribe, err := m.broadcaster.Subscribe(ctx, m.apply)
	if err != nil {
		return fmt.Errorf("subscribe to session sync: %w", err)
	}
	m.unsubscribe = unsubscribe
	return nil
}

// Stop unsubscribes and flushes pending writes
func (m *Manager) Stop(ctx context.Context) error {
	if m.unsubscribe != nil {
		if err := m.unsubscribe(); err != nil {
			m.logger.Warn("Failed to unsubscribe from session sync", zap.Error(err))
		}
	}
	err := m.Flush(ctx)

	done := make(chan struct{})
	go func() {
		m.writes.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

// Set replaces the client's session. The mirror changes at once; the store
// write happens after the debounce window with the latest value.
func (m *Manager) Set(ctx context.Context, s *session.Session) error {
	if s == nil {
		return shared.NewDomainError("INVALID_SESSION", "Session cannot be nil")
	}
	if err := s.Validate(); err != nil {
		return err
	}
	now := m.now()
	cp := *s
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now

	m.mu.Lock()
	m.mirror[cp.ClientID] = &cp
	m.schedule(cp.ClientID)
	m.mu.Unlock()

	m.announce(ctx, session.SyncEvent{
		Type:      session.SyncUpdated,
		ClientID:  cp.ClientID,
		Origin:    m.origin,
		UpdatedAt: now,
		Session:   &cp,
	})
	return nil
}

type pendingWrite struct {
	timer *time.Timer
}

// schedule must be called with mu held
func (m *Manager) schedule(clientID string) {
	if pw, ok := m.pending[clientID]; ok && pw.timer.Stop() {
		m.writes.Done()
	}
	m.writes.Add(1)
	pw := &pendingWrite{}
	pw.timer = time.AfterFunc(m.config.Debounce, func() {
		defer m.writes.Done()
		m.fire(clientID, pw)
	})
	m.pending[clientID] = pw
}

func (m *Manager) fire(clientID string, pw *pendingWrite) {
	m.mu.Lock()
	if m.pending[clientID] == pw {
		delete(m.pending, clientID)
	}
	s := m.mirror[clientID]
	var snapshot *session.Session
	if s != nil {
		cp := *s
		snapshot = &cp
	}
	m.mu.Unlock()

	if snapshot == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := m.persist(ctx, snapshot); err != nil {
		m.logger.Error("Failed to persist session", zap.String("client_id", clientID), zap.Error(err))
		return
	}

	// a Clear that ran during the write must not be undone
	m.mu.Lock()
	_, live := m.mirror[clientID]
	m.mu.Unlock()
	if !live {
		_ = m.store.Delete(ctx, clientID)
	}
}

func (m *Manager) persist(ctx context.Context, s *session.Session) error {
	data, err := session.Seal(s, m.now())
	if err == nil {
		ttl := s.RefreshExpiresAt.Sub(m.now())
		if ttl <= 0 {
			ttl = m.config.MaxAge
		}
		err = m.store.Save(ctx, s.ClientID, data, ttl)
	}
	m.observe("save", err)
	return err
}

// Flush writes every pending session now
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	batch := make([]*session.Session, 0, len(m.pending))
	for id, pw := range m.pending {
		if pw.timer.Stop() {
			m.writes.Done()
		}
		delete(m.pending, id)
		if s := m.mirror[id]; s != nil {
			cp := *s
			batch = append(batch, &cp)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range batch {
		if err := m.persist(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", s.ClientID, err))
		}
	}
	return errors.Join(errs...)
}

// Clear cancels any pending write and deletes the session immediately
func (m *Manager) Clear(ctx context.Context, clientID string) error {
	m.mu.Lock()
	m.dropLocked(clientID)
	m.mu.Unlock()

	err := m.store.Delete(ctx, clientID)
	m.observe("delete", err)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.announce(ctx, session.SyncEvent{
		Type:      session.SyncCleared,
		ClientID:  clientID,
		Origin:    m.origin,
		UpdatedAt: m.now(),
	})
	return nil
}

// dropLocked must be called with mu held
func (m *Manager) dropLocked(clientID string) {
	if pw, ok := m.pending[clientID]; ok {
		if pw.timer.Stop() {
			m.writes.Done()
		}
		delete(m.pending, clientID)
	}
	delete(m.mirror, clientID)
}

// Get returns the client's session, restoring it from the store on a mirror
// miss. Corrupted and stale envelopes are wiped and reported as not found.
func (m *Manager) Get(ctx context.Context, clientID string) (*session.Session, error) {
	now := m.now()
	m.mu.Lock()
	if s, ok := m.mirror[clientID]; ok {
		if !s.RefreshExpired(now) {
			cp := *s
			m.mu.Unlock()
			return &cp, nil
		}
		m.dropLocked(clientID)
		m.mu.Unlock()
		m.wipe(ctx, clientID, session.ErrStale)
		return nil, session.ErrSessionNotFound
	}
	m.mu.Unlock()

	data, err := m.store.Load(ctx, clientID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil, session.ErrSessionNotFound
		}
		m.observe("load", err)
		return nil, fmt.Errorf("load session: %w", err)
	}
	s, _, err := session.Open(data, now, m.config.MaxAge)
	if err != nil {
		m.wipe(ctx, clientID, err)
		return nil, session.ErrSessionNotFound
	}
	m.observe("load", nil)

	m.mu.Lock()
	if cur, ok := m.mirror[clientID]; ok {
		// a concurrent Set won
		cp := *cur
		m.mu.Unlock()
		return &cp, nil
	}
	m.mirror[clientID] = s
	cp := *s
	m.mu.Unlock()
	return &cp, nil
}

func (m *Manager) wipe(ctx context.Context, clientID string, reason error) {
	op := "stale"
	if errors.Is(reason, session.ErrCorrupted) {
		op = "corrupted"
	}
	m.logger.Warn("Wiping unusable session", zap.String("client_id", clientID), zap.String("reason", op), zap.Error(reason))
	m.observe(op, reason)
	if err := m.store.Delete(ctx, clientID); err != nil {
		m.logger.Error("Failed to wipe session", zap.String("client_id", clientID), zap.Error(err))
	}
}

// Refresh rotates the client's token pair. Concurrent calls for one client
// share a single exchange.
func (m *Manager) Refresh(ctx context.Context, clientID string) (*session.Session, error) {
	if m.refresher == nil {
		return nil, shared.NewDomainError("REFRESH_UNAVAILABLE", "Session refresh is not configured")
	}
	v, err, _ := m.group.Do(clientID, func() (any, error) {
		cur, err := m.Get(ctx, clientID)
		if err != nil {
			return nil, err
		}
		next, err := m.refresher.RefreshSession(ctx, cur)
		if err != nil {
			return nil, err
		}
		next.ClientID = clientID
		next.CreatedAt = cur.CreatedAt
		if err := m.Set(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	cp := *v.(*session.Session)
	return &cp, nil
}

// Sweep wipes corrupted or stale envelopes from the store
func (m *Manager) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	ids, err := m.store.ClientIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list sessions: %w", err)
	}
	now := m.now()
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		m.mu.Lock()
		_, writing := m.pending[id]
		m.mu.Unlock()
		if writing {
			continue
		}
		res.Checked++

		data, err := m.store.Load(ctx, id)
		if errors.Is(err, session.ErrSessionNotFound) {
			continue
		}
		if err != nil {
			return res, fmt.Errorf("load session %s: %w", id, err)
		}
		if _, _, err := session.Open(data, now, m.config.MaxAge); err != nil {
			m.mu.Lock()
			delete(m.mirror, id)
			m.mu.Unlock()
			m.wipe(ctx, id, err)
			res.Wiped++
		}
	}
	if res.Wiped > 0 {
		m.logger.Info("Session sweep wiped envelopes", zap.Int("checked", res.Checked), zap.Int("wiped", res.Wiped))
	}
	return res, nil
}

// apply handles a broadcast from another instance
func (m *Manager) apply(evt session.SyncEvent) {
	if evt.Origin == m.origin || evt.ClientID == "" {
		return
	}
	m.mu.Lock()
	switch evt.Type {
	case session.SyncUpdated:
		if evt.Session == nil {
			m.mu.Unlock()
			return
		}
		if cur, ok := m.mirror[evt.ClientID]; ok && !evt.UpdatedAt.After(cur.UpdatedAt) {
			m.mu.Unlock()
			return
		}
		cp := *evt.Session
		m.mirror[evt.ClientID] = &cp
	case session.SyncCleared:
		m.dropLocked(evt.ClientID)
	default:
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.fanOut(context.Background(), evt)
}

// announce tells other instances and this instance's open tabs
func (m *Manager) announce(ctx context.Context, evt session.SyncEvent) {
	if m.broadcaster != nil {
		if err := m.broadcaster.Publish(ctx, evt); err != nil {
			m.logger.Warn("Failed to broadcast session change", zap.String("client_id", evt.ClientID), zap.Error(err))
		}
	}
	m.fanOut(ctx, evt)
}

func (m *Manager) fanOut(ctx context.Context, evt session.SyncEvent) {
	if m.realtime == nil {
		return
	}
	if err := m.realtime.Publish(ctx, shared.SessionTopic(evt.ClientID), evt.Type, evt); err != nil {
		m.logger.Warn("Failed to push session change to tabs", zap.String("client_id", evt.ClientID), zap.Error(err))
	}
}

func (m *Manager) observe(op string, err error) {
	if m.observer != nil {
		m.observer.SessionPersistence(op, err)
	}
}
