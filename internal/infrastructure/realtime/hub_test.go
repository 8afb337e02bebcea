package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		topics := strings.Split(r.URL.Query().Get("topics"), ",")
		if err := hub.Serve(w, r, "user-1", topics); err != nil {
			t.Logf("serve: %v", err)
		}
	}))
}

func dial(t *testing.T, srv *httptest.Server, topics string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?topics=" + topics
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_PublishReachesSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub := NewHub(Config{}, nil, zap.NewNop())
	srv := newTestServer(t, hub)
	defer srv.Close()

	delivery := dial(t, srv, "delivery:42,notifications")
	defer delivery.Close()
	chat := dial(t, srv, "chat:7")
	defer chat.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.Subscribers("delivery:42"))

	require.NoError(t, hub.Publish(context.Background(), "delivery:42", "location", map[string]float64{"lat": 35.1}))

	_ = delivery.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := delivery.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Topic   string             `json:"topic"`
		Event   string             `json:"event"`
		Payload map[string]float64 `json:"payload"`
		SentAt  time.Time          `json:"sent_at"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "delivery:42", msg.Topic)
	assert.Equal(t, "location", msg.Event)
	assert.Equal(t, 35.1, msg.Payload["lat"])
	assert.False(t, msg.SentAt.IsZero())

	_ = chat.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err = chat.ReadMessage()
	assert.Error(t, err, "chat subscriber must not receive delivery updates")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, hub.Close(ctx))
	assert.Zero(t, hub.ClientCount())
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	defer goleak.VerifyNone(t)
	hub := NewHub(Config{}, nil, zap.NewNop())
	srv := newTestServer(t, hub)
	defer srv.Close()

	conn := dial(t, srv, "notifications")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, hub.Subscribers("notifications"))
	require.NoError(t, hub.Close(context.Background()))
}

func TestHub_DropsSlowClients(t *testing.T) {
	hub := NewHub(Config{SendBuffer: 1}, nil, zap.NewNop())
	slow := newClient(nil, "user-2", []string{"chat:1"}, 1)
	require.True(t, hub.register(slow))

	require.NoError(t, hub.Publish(context.Background(), "chat:1", "message", "first"))
	assert.Equal(t, 1, hub.ClientCount())

	require.NoError(t, hub.Publish(context.Background(), "chat:1", "message", "second"))
	assert.Zero(t, hub.ClientCount())

	_, open := <-slow.send
	assert.True(t, open, "buffered frame still readable")
	_, open = <-slow.send
	assert.False(t, open, "send channel closed after drop")
}

func TestHub_ServeAfterClose(t *testing.T) {
	hub := NewHub(Config{}, nil, zap.NewNop())
	require.NoError(t, hub.Close(context.Background()))
	rec := httptest.NewRecorder()
	err := hub.Serve(rec, httptest.NewRequest(http.MethodGet, "/", nil), "u", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
}
