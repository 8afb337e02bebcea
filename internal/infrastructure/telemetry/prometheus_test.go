package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/homestead/backend/internal/infrastructure/scheduler"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()

	m.ObserveHTTP(http.MethodGet, "/api/v1/deliveries/:id", 200, 20*time.Millisecond)
	m.ObserveHTTP(http.MethodGet, "", 404, time.Millisecond)
	m.NotificationChannel("delivery_arriving", "sms", "sent")
	m.NotificationChannel("delivery_arriving", "sms", "sent")
	m.GPSReading("out_of_order")
	m.AutomationTriggered("arriving")
	m.SessionPersistence("save", errors.New("redis down"))
	m.ProviderCall("twilio", nil, 300*time.Millisecond)
	m.ObserveJob("session_sweep", scheduler.JobStatusSuccess, time.Second)
	m.SetRealtimeClients(3)
	m.SetStaleDeliveries(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/v1/deliveries/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.notifications.WithLabelValues("delivery_arriving", "sms", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gpsReadings.WithLabelValues("out_of_order")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.automations.WithLabelValues("arriving")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionWrites.WithLabelValues("save", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobRuns.WithLabelValues("session_sweep", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.realtimeClients))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.staleDeliveries))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", 200, time.Millisecond)
		m.NotificationChannel("welcome", "email", "sent")
		m.ProviderCall("resend", nil, time.Millisecond)
		m.ObserveJob("x", scheduler.JobStatusFailed, time.Millisecond)
		m.SetRealtimeClients(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.GPSReading("accepted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `homestead_delivery_gps_readings_total{outcome="accepted"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
