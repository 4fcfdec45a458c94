package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	archivedomain "github.com/smallbiznis/flyroom/internal/archive/domain"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	obsmetrics "github.com/smallbiznis/flyroom/internal/observability/metrics"
	"github.com/smallbiznis/flyroom/internal/scheduler/guard"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	ArchiveSvc archivedomain.Service
	Policy     *config.BackupPolicyHolder
	Config     Config `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	archiveSvc archivedomain.Service
	policy     *config.BackupPolicyHolder
	metrics    *obsmetrics.SchedulerMetrics

	mu      sync.Mutex
	lastRun map[string]time.Time
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.ArchiveSvc == nil || p.Policy == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		archiveSvc: p.ArchiveSvc,
		policy:     p.Policy,
		metrics:    obsmetrics.Scheduler(),
		lastRun:    make(map[string]time.Time),
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: obsmetrics.JobArchiveTenants, run: s.ArchiveTenantsJob},
		{name: obsmetrics.JobPruneArchives, run: s.PruneArchivesJob},
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		s.metrics.MarkJobSuccess(name, s.clock.Now())
		return nil
	}

	// deadline is a soft timeout; the next due tick retries
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		s.logger(ctx).Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every job that is enabled and due under the current backup
// policy.
func (s *Scheduler) RunOnce(parent context.Context) error {
	policy := s.policy.Get()
	now := s.clock.Now()

	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		if gErr := guard.EnsurePolicyEnabled(policy); gErr != nil {
			s.metrics.IncJobSkipped(j.name, obsmetrics.SchedulerSkipReasonDisabled)
			continue
		}
		if gErr := guard.EnsureJobDue(s.lastRunOf(j.name), now, policy.Interval); gErr != nil {
			continue
		}
		s.markRun(j.name, now)
		err = errors.Join(err, s.runJob(parent, j.name, policy.JobTimeout, j.run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		runLag := s.clock.Now().Sub(nextRun)
		if runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

func (s *Scheduler) lastRunOf(jobName string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[jobName]
}

func (s *Scheduler) markRun(jobName string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[jobName] = at
}

// ArchiveTenantsJob writes an encrypted archive for every tenant the policy
// allows. One tenant failing does not stop the others.
func (s *Scheduler) ArchiveTenantsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, obsmetrics.JobArchiveTenants)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	result, err := s.archiveSvc.ArchiveAll(ctx)
	if result == nil {
		return err
	}

	run.AddProcessed(len(result.Archived))
	s.metrics.AddProcessed(obsmetrics.JobArchiveTenants, "tenant", len(result.Archived))
	for range result.Skipped {
		s.metrics.IncJobSkipped(obsmetrics.JobArchiveTenants, obsmetrics.SchedulerSkipReasonNotAllowlisted)
	}
	for _, tenantID := range result.Failed {
		s.logSchedulerError(ctx, run, "scheduler.archive.failed", obsmetrics.JobArchiveTenants, tenantID, err)
	}
	return err
}

// PruneArchivesJob removes archives older than the retention window.
func (s *Scheduler) PruneArchivesJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, obsmetrics.JobPruneArchives)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	result, err := s.archiveSvc.Prune(ctx, s.clock.Now())
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.prune.failed", obsmetrics.JobPruneArchives, "", err)
		return err
	}

	run.AddProcessed(result.Removed)
	s.metrics.AddProcessed(obsmetrics.JobPruneArchives, "archive", result.Removed)
	if result.BlobsRetained > 0 {
		s.logger(ctx).Warn("scheduler.prune.blobs_retained",
			zap.Int("removed", result.Removed),
			zap.Int("blobs_retained", result.BlobsRetained),
		)
	}
	return nil
}
