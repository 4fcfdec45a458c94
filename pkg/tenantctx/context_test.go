package tenantctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTenantID(t *testing.T) {
	_, ok := TenantID(context.Background())
	assert.False(t, ok)

	ctx := WithTenantID(context.Background(), "  ")
	_, ok = TenantID(ctx)
	assert.False(t, ok)

	id, ok := TenantID(WithTenantID(context.Background(), " lab-a "))
	assert.True(t, ok)
	assert.Equal(t, "lab-a", id)
}
