package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/flyroom/internal/observability/context"
	obstracing "github.com/smallbiznis/flyroom/internal/observability/tracing"
	"github.com/smallbiznis/flyroom/pkg/tenantctx"
)

const HeaderTenant = obstracing.TenantHeader

// TenantContext scopes the request to the tenant named by X-Tenant-ID.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := strings.TrimSpace(c.GetHeader(HeaderTenant))
		if tenantID == "" {
			AbortWithError(c, ErrTenantRequired)
			return
		}

		ctx := tenantctx.WithTenantID(c.Request.Context(), tenantID)
		ctx = obscontext.WithTenantID(ctx, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func tenantIDFrom(c *gin.Context) string {
	tenantID, _ := tenantctx.TenantID(c.Request.Context())
	return tenantID
}

// TenantRateLimit throttles endpoint per tenant when a limiter is wired.
func (s *Server) TenantRateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		res := s.limiter.Allow(c.Request.Context(), tenantIDFrom(c), endpoint)
		if !res.Allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}
