// Package context carries correlation identifiers through request and job
// contexts so logs and spans can be joined.
package context

import (
	stdcontext "context"
	"strings"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	tenantIDKey
	runIDKey
)

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	return withValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	return valueFrom(ctx, requestIDKey)
}

func WithTenantID(ctx stdcontext.Context, tenantID string) stdcontext.Context {
	return withValue(ctx, tenantIDKey, tenantID)
}

func TenantIDFromContext(ctx stdcontext.Context) string {
	return valueFrom(ctx, tenantIDKey)
}

// WithRunID tags ctx with the id of the import or archive run it belongs to.
func WithRunID(ctx stdcontext.Context, runID string) stdcontext.Context {
	return withValue(ctx, runIDKey, runID)
}

func RunIDFromContext(ctx stdcontext.Context) string {
	return valueFrom(ctx, runIDKey)
}

func withValue(ctx stdcontext.Context, key ctxKey, value string) stdcontext.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, key, value)
}

func valueFrom(ctx stdcontext.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(key).(string)
	return value
}
