package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/flyroom/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TenantHeader names the tenant a backup request acts on.
const TenantHeader = "X-Tenant-ID"

type MiddlewareConfig struct {
	// SkipPaths are served without a span, such as health checks.
	SkipPaths []string
}

// GinMiddleware starts a server span per request and tags it with the tenant
// and the import run the request produced.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	tracer := otel.Tracer("flyroom/http")
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		method := strings.ToUpper(c.Request.Method)
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withBaggage(ctx,
			"request_id", obscontext.RequestIDFromContext(ctx),
			"tenant_id", strings.TrimSpace(c.GetHeader(TenantHeader)),
		)
		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		reqCtx := c.Request.Context()
		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		if id := obscontext.RequestIDFromContext(reqCtx); id != "" {
			attrs = append(attrs, attribute.String("request_id", id))
		}
		if tenantID := firstNonEmpty(obscontext.TenantIDFromContext(reqCtx), c.GetHeader(TenantHeader)); tenantID != "" {
			attrs = append(attrs, attribute.String("flyroom.tenant_id", tenantID))
		}
		if runID := c.Writer.Header().Get("X-Run-ID"); runID != "" {
			attrs = append(attrs, attribute.String("backup.run_id", runID))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		switch {
		case status == http.StatusTooManyRequests:
			span.AddEvent("rate_limited")
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		}
	}
}

// withBaggage propagates non-empty key/value pairs to downstream calls.
func withBaggage(ctx context.Context, kv ...string) context.Context {
	bag := baggage.FromContext(ctx)
	for i := 0; i+1 < len(kv); i += 2 {
		value := strings.TrimSpace(kv[i+1])
		if value == "" {
			continue
		}
		member, err := baggage.NewMember(kv[i], value)
		if err != nil {
			continue
		}
		if next, err := bag.SetMember(member); err == nil {
			bag = next
		}
	}
	return baggage.ContextWithBaggage(ctx, bag)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
