package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/flyroom/internal/backup/domain"
	"github.com/smallbiznis/flyroom/internal/clock"
	inv "github.com/smallbiznis/flyroom/internal/inventory/domain"
	"github.com/smallbiznis/flyroom/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Repo    domain.Repository
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics   `optional:"true"`
	Guard   domain.ImportGuard `optional:"true"`
}

type Service struct {
	repo    domain.Repository
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	guard   domain.ImportGuard
	tracer  trace.Tracer
}

func NewService(p Params) *Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		repo:    p.Repo,
		log:     p.Log.Named("backup.service"),
		clock:   c,
		metrics: p.Metrics,
		guard:   p.Guard,
		tracer:  otel.Tracer("flyroom/backup"),
	}
}

// NewDomainService exposes the service through its domain interface.
func NewDomainService(s *Service) domain.Service {
	return s
}

func (s *Service) GetTenant(ctx context.Context, tenantID string) (*inv.Tenant, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, domain.ErrInvalidTenant
	}
	tenant, err := s.repo.FindTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, domain.ErrTenantNotFound
	}
	return tenant, nil
}

// ListTenants returns every active tenant, used by scheduled archiving.
func (s *Service) ListTenants(ctx context.Context) ([]inv.Tenant, error) {
	return s.repo.ListTenants(ctx)
}
