package context

import (
	stdcontext "context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDs(t *testing.T) {
	ctx := stdcontext.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithTenantID(ctx, "tenant-a")
	ctx = WithRunID(ctx, "01HZX")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "tenant-a", TenantIDFromContext(ctx))
	assert.Equal(t, "01HZX", RunIDFromContext(ctx))
}

func TestBlankValuesAreIgnored(t *testing.T) {
	ctx := WithTenantID(stdcontext.Background(), "tenant-a")
	ctx = WithTenantID(ctx, "  ")
	assert.Equal(t, "tenant-a", TenantIDFromContext(ctx))
}
