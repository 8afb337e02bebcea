// Package realtime fans messages out to websocket clients subscribed to topics.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrHubClosed is returned when serving after Close
var ErrHubClosed = errors.New("realtime hub closed")

// Message is the frame every client receives
type Message struct {
	Topic   string    `json:"topic"`
	Event   string    `json:"event"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

// Config tunes connection keep-alive and buffering
type Config struct {
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	SendBuffer     int
	MaxMessageSize int64
	CheckOrigin    func(r *http.Request) bool
}

// DefaultConfig pings every 30s, waits 60s for pongs and drops clients 64 frames behind
func DefaultConfig() Config {
	return Config{
		PingPeriod:     30 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		SendBuffer:     64,
		MaxMessageSize: 4096,
	}
}

// Hub tracks clients per topic
type Hub struct {
	config   Config
	upgrader websocket.Upgrader
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	topics  map[string]map[*client]struct{}
	clients map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

// NewHub creates a hub. metrics may be nil.
func NewHub(cfg Config, metrics *telemetry.Metrics, logger *zap.Logger) *Hub {
	def := DefaultConfig()
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = def.PingPeriod
	}
	if cfg.PongWait <= cfg.PingPeriod {
		cfg.PongWait = 2 * cfg.PingPeriod
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     cfg.CheckOrigin,
		},
		metrics: metrics,
		logger:  logger.Named("realtime"),
		now:     time.Now,
		topics:  make(map[string]map[*client]struct{}),
		clients: make(map[*client]struct{}),
	}
}

// Publish sends one message to every subscriber of topic. Subscribers whose
// buffer is full are disconnected.
func (h *Hub) Publish(_ context.Context, topic, event string, payload any) error {
	data, err := json.Marshal(Message{Topic: topic, Event: event, Payload: payload, SentAt: h.now().UTC()})
	if err != nil {
		return fmt.Errorf("encode realtime message: %w", err)
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.topics[topic] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow realtime client", zap.String("topic", topic), zap.String("user_id", c.userID))
		h.unregister(c)
	}
	return nil
}

// Serve upgrades the request and subscribes the connection to topics.
// It returns once the connection is handed to its pumps.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string, topics []string) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrHubClosed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	c := newClient(conn, userID, topics, h.config.SendBuffer)
	if !h.register(c) {
		_ = conn.Close()
		return ErrHubClosed
	}

	h.wg.Add(2)
	go h.writePump(c)
	go h.readPump(c)
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns the number of clients on topic
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Close disconnects every client and waits for their goroutines, bounded by ctx
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	all := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.mu.Unlock()

	for _, c := range all {
		h.unregister(c)
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	for _, t := range c.topics {
		subs, ok := h.topics[t]
		if !ok {
			subs = make(map[*client]struct{})
			h.topics[t] = subs
		}
		subs[c] = struct{}{}
	}
	h.metrics.SetRealtimeClients(len(h.clients))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for _, t := range c.topics {
		if subs := h.topics[t]; subs != nil {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, t)
			}
		}
	}
	n := len(h.clients)
	h.mu.Unlock()

	c.closeSend()
	h.metrics.SetRealtimeClients(n)
}

var _ shared.RealtimePublisher = (*Hub)(nil)
