package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/homestead/backend/internal/domain/session"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SessionSyncChannel is the pub/sub channel shared by all instances
const SessionSyncChannel = "session:sync"

const defaultCloseTimeout = 5 * time.Second

// RedisSessionBroadcaster fans session sync events out over Redis pub/sub
type RedisSessionBroadcaster struct {
	client  redis.UniversalClient
	channel string
	logger  *zap.Logger
}

// NewRedisSessionBroadcaster wraps a shared client
func NewRedisSessionBroadcaster(client redis.UniversalClient, logger *zap.Logger) *RedisSessionBroadcaster {
	return &RedisSessionBroadcaster{client: client, channel: SessionSyncChannel, logger: logger}
}

// Publish sends evt to every subscribed instance
func (b *RedisSessionBroadcaster) Publish(ctx context.Context, evt session.SyncEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish sync event: %w", err)
	}
	return nil
}

// Subscribe confirms the subscription, then delivers events on a background
// goroutine until ctx ends or the returned func is called.
func (b *RedisSessionBroadcaster) Subscribe(ctx context.Context, handler func(session.SyncEvent)) (func() error, error) {
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := b.client.Subscribe(subCtx, b.channel)
	if _, err := pubsub.Receive(subCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info("Subscribed to session sync channel", zap.String("channel", b.channel))

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					b.logger.Warn("Session sync channel closed")
					return
				}
				var evt session.SyncEvent
				if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
					b.logger.Error("Dropping malformed session sync event", zap.Error(err))
					continue
				}
				b.deliver(handler, evt)
			}
		}
	}()

	var once sync.Once
	return func() error {
		once.Do(func() {
			cancel()
			select {
			case <-done:
			case <-time.After(defaultCloseTimeout):
				b.logger.Warn("Timeout waiting for session sync subscription to stop")
			}
		})
		return nil
	}, nil
}

func (b *RedisSessionBroadcaster) deliver(handler func(session.SyncEvent), evt session.SyncEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic in session sync handler", zap.Any("panic", r))
		}
	}()
	handler(evt)
}

var _ session.Broadcaster = (*RedisSessionBroadcaster)(nil)

// MemoryBroadcaster delivers events synchronously to in-process subscribers.
// Several managers sharing one MemoryBroadcaster behave like instances on a
// shared Redis channel.
type MemoryBroadcaster struct {
	mu       sync.RWMutex
	handlers map[int]func(session.SyncEvent)
	next     int
}

// NewMemoryBroadcaster creates a broadcaster with no subscribers
func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{handlers: make(map[int]func(session.SyncEvent))}
}

// Publish calls every handler in turn
func (b *MemoryBroadcaster) Publish(_ context.Context, evt session.SyncEvent) error {
	b.mu.RLock()
	handlers := make([]func(session.SyncEvent), 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(evt)
	}
	return nil
}

// Subscribe registers handler until ctx ends or the close func is called
func (b *MemoryBroadcaster) Subscribe(ctx context.Context, handler func(session.SyncEvent)) (func() error, error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.handlers[id] = handler
	b.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { b.remove(id) })
	return func() error {
		stop()
		b.remove(id)
		return nil
	}, nil
}

func (b *MemoryBroadcaster) remove(id int) {
	b.mu.Lock()
	delete(b.handlers, id)
	b.mu.Unlock()
}

var _ session.Broadcaster = (*MemoryBroadcaster)(nil)
