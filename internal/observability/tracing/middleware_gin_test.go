package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/flyroom/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{SkipPaths: []string{"/health"}}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/backup/import", func(c *gin.Context) {
		ctx := obscontext.WithTenantID(c.Request.Context(), c.GetHeader(TenantHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Run-ID", "01JRUN")
		c.Status(http.StatusOK)
	})
	r.GET("/api/backup/export", func(c *gin.Context) { c.Status(http.StatusTooManyRequests) })
	return r, recorder
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestGinMiddlewareTagsTenantAndRun(t *testing.T) {
	r, recorder := newTracedEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/api/backup/import", nil)
	req.Header.Set(TenantHeader, "lab-a")
	r.ServeHTTP(httptest.NewRecorder(), req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP POST /api/backup/import", spans[0].Name())
	attrs := spanAttrs(spans[0])
	assert.Equal(t, "lab-a", attrs["flyroom.tenant_id"].AsString())
	assert.Equal(t, "01JRUN", attrs["backup.run_id"].AsString())
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"].AsInt64())
}

func TestGinMiddlewareSkipsProbesAndMarksThrottling(t *testing.T) {
	r, recorder := newTracedEngine(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, recorder.Ended())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/backup/export", nil))
	spans := recorder.Ended()
	require.Len(t, spans, 1)
	_, hasTenant := spanAttrs(spans[0])["flyroom.tenant_id"]
	assert.False(t, hasTenant)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "rate_limited", spans[0].Events()[0].Name)
}
