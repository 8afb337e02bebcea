package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/homestead/backend/internal/domain/shared"
	"github.com/homestead/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockIdempotencyStore) Close() error { return nil }

func TestIdempotentHandler_SkipsDuplicates(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(0)
	defer store.Close()
	inner := &recordingHandler{types: []string{"delivery.arriving"}}
	h := NewIdempotentHandler("notify", inner, store, time.Hour, zap.NewNop())

	evt := newTestEvent("delivery.arriving")
	require.NoError(t, h.Handle(context.Background(), evt))
	require.NoError(t, h.Handle(context.Background(), evt))

	assert.Equal(t, 1, inner.count())
	assert.Equal(t, IdempotencyStats{Processed: 1, Duplicate: 1}, h.Stats())
	assert.Equal(t, []string{"delivery.arriving"}, h.EventTypes())
}

func TestIdempotentHandler_NamesAreIndependent(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(0)
	defer store.Close()
	a := &recordingHandler{}
	b := &recordingHandler{}
	evt := newTestEvent("x")

	require.NoError(t, NewIdempotentHandler("a", a, store, 0, zap.NewNop()).Handle(context.Background(), evt))
	require.NoError(t, NewIdempotentHandler("b", b, store, 0, zap.NewNop()).Handle(context.Background(), evt))
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestIdempotentHandler_FailureReleasesKey(t *testing.T) {
	store := cache.NewInMemoryIdempotencyStore(0)
	defer store.Close()
	inner := &recordingHandler{err: errors.New("provider down")}
	h := NewIdempotentHandler("notify", inner, store, time.Hour, zap.NewNop())
	evt := newTestEvent("x")

	assert.Error(t, h.Handle(context.Background(), evt))
	inner.err = nil
	require.NoError(t, h.Handle(context.Background(), evt))
	assert.Equal(t, 2, inner.count())
	assert.Equal(t, int64(1), h.Stats().Failed)
}

func TestIdempotentHandler_StoreErrorStillHandles(t *testing.T) {
	store := new(mockIdempotencyStore)
	store.On("MarkProcessed", mock.Anything, mock.Anything, time.Hour).Return(false, errors.New("redis down"))
	inner := &recordingHandler{}
	h := NewIdempotentHandler("notify", inner, store, time.Hour, zap.NewNop())

	require.NoError(t, h.Handle(context.Background(), newTestEvent("x")))
	assert.Equal(t, 1, inner.count())
	store.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
}

var _ shared.IdempotencyStore = (*mockIdempotencyStore)(nil)
