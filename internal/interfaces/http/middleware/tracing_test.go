package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer returns a provider recording into the returned recorder.
func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})
	return tp, sr
}

func tracedRouter(tp *sdktrace.TracerProvider, status int) *gin.Engine {
	router := gin.New()
	router.Use(
		RequestID(),
		Tracing(TracingConfig{ServiceName: "batch-ledger-test", Enabled: true, TracerProvider: tp}),
		OutletScope(),
		SpanAttributes(),
	)
	router.GET("/batches/:id", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func spanNamed(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Fail(t, "span not found", name)
	return nil
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	tp, sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false, TracerProvider: tp}), SpanAttributes())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanCarriesRequestAndOutlet(t *testing.T) {
	tp, sr := setupTestTracer(t)
	router := tracedRouter(tp, http.StatusOK)
	outlet := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/batches/"+uuid.NewString(), nil)
	req.Header.Set(RequestIDHeader, "req-42")
	req.Header.Set(OutletIDHeader, outlet.String())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	span := spanNamed(t, sr, "GET /batches/:id")
	attrs := spanAttrs(span)
	assert.Equal(t, "req-42", attrs["request_id"].AsString())
	assert.Equal(t, outlet.String(), attrs["outlet_id"].AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanAttributes_MarksErrors(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusConflict, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			tp, sr := setupTestTracer(t)
			router := tracedRouter(tp, status)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/batches/b-1", nil))

			span := spanNamed(t, sr, "GET /batches/:id")
			assert.Equal(t, codes.Error, span.Status().Code)
			assert.Equal(t, int64(status), spanAttrs(span)["http.status_code"].AsInt64())
		})
	}
}

func TestSpanAttributes_NoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanAttributes())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
