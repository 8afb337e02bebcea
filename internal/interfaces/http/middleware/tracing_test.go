package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
		otel.SetTracerProvider(prev)
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := okRouter(TracingWithConfig(TracingConfig{Enabled: false, ServiceName: "test"}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_AttributesAndErrors(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "test"}),
		SpanErrorMarker(),
		func(c *gin.Context) {
			c.Set(RequestIDKey, "req-1")
			c.Set(JWTUserIDKey, "user-1")
			c.Set(JWTRoleKey, "sales")
			c.Next()
		},
		TracingAttributeInjector(),
	)
	router.GET("/deliveries/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/deliveries/7", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

	spans := sr.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Contains(t, ok.Name(), "/deliveries/:id")
	attrs := attrMap(ok.Attributes())
	assert.Equal(t, "req-1", attrs["request_id"].AsString())
	assert.Equal(t, "user-1", attrs["user_id"].AsString())
	assert.Equal(t, "sales", attrs["user_role"].AsString())
	assert.NotEqual(t, codes.Error, ok.Status().Code)

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, int64(http.StatusBadGateway), attrMap(failed.Attributes())["http.status_code"].AsInt64())
}
