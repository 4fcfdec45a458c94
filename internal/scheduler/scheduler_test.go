package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	archivedomain "github.com/smallbiznis/flyroom/internal/archive/domain"
	"github.com/smallbiznis/flyroom/internal/clock"
	"github.com/smallbiznis/flyroom/internal/config"
	obsmetrics "github.com/smallbiznis/flyroom/internal/observability/metrics"
	"github.com/smallbiznis/flyroom/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockArchiveSvc struct {
	mock.Mock
}

func (m *mockArchiveSvc) Archive(ctx context.Context, tenantID string) (*archivedomain.ArchiveLog, error) {
	args := m.Called(ctx, tenantID)
	log, _ := args.Get(0).(*archivedomain.ArchiveLog)
	return log, args.Error(1)
}

func (m *mockArchiveSvc) ArchiveAll(ctx context.Context) (*archivedomain.ArchiveAllResult, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*archivedomain.ArchiveAllResult)
	return res, args.Error(1)
}

func (m *mockArchiveSvc) List(ctx context.Context, tenantID string, page pagination.Pagination) (*archivedomain.ListResponse, error) {
	args := m.Called(ctx, tenantID, page)
	res, _ := args.Get(0).(*archivedomain.ListResponse)
	return res, args.Error(1)
}

func (m *mockArchiveSvc) Download(ctx context.Context, tenantID string, id snowflake.ID) (*archivedomain.Download, error) {
	args := m.Called(ctx, tenantID, id)
	res, _ := args.Get(0).(*archivedomain.Download)
	return res, args.Error(1)
}

func (m *mockArchiveSvc) Prune(ctx context.Context, now time.Time) (*archivedomain.PruneResult, error) {
	args := m.Called(ctx, now)
	res, _ := args.Get(0).(*archivedomain.PruneResult)
	return res, args.Error(1)
}

var epoch = time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC)

func enabledPolicy() config.BackupPolicy {
	return config.BackupPolicy{Enabled: true, Interval: time.Hour, JobTimeout: time.Minute, RetentionDays: 30}
}

func newTestScheduler(t *testing.T, svc archivedomain.Service, policy config.BackupPolicy, cfg Config) (*Scheduler, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(epoch)

	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		ArchiveSvc: svc,
		Policy:     config.NewStaticBackupPolicyHolder(policy),
		Config:     cfg,
	})
	require.NoError(t, err)
	s.metrics = obsmetrics.NewSchedulerMetricsForTest(prometheus.NewRegistry())
	return s, fake
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceSkipsWhenPolicyDisabled(t *testing.T) {
	svc := &mockArchiveSvc{}
	s, _ := newTestScheduler(t, svc, config.BackupPolicy{Enabled: false, Interval: time.Hour, JobTimeout: time.Minute, RetentionDays: 1}, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	svc.AssertNotCalled(t, "ArchiveAll", mock.Anything)
	svc.AssertNotCalled(t, "Prune", mock.Anything, mock.Anything)
}

func TestRunOnceRunsDueJobsOncePerInterval(t *testing.T) {
	svc := &mockArchiveSvc{}
	svc.On("ArchiveAll", mock.Anything).Return(&archivedomain.ArchiveAllResult{
		Archived: []string{"lab-a", "lab-b"},
		Skipped:  []string{"lab-c"},
	}, nil)
	svc.On("Prune", mock.Anything, mock.Anything).Return(&archivedomain.PruneResult{Removed: 3}, nil)

	s, fake := newTestScheduler(t, svc, enabledPolicy(), Config{})
	ctx := context.Background()

	require.NoError(t, s.RunOnce(ctx))
	fake.Advance(30 * time.Minute)
	require.NoError(t, s.RunOnce(ctx))
	svc.AssertNumberOfCalls(t, "ArchiveAll", 1)
	svc.AssertNumberOfCalls(t, "Prune", 1)

	fake.Advance(30 * time.Minute)
	require.NoError(t, s.RunOnce(ctx))
	svc.AssertNumberOfCalls(t, "ArchiveAll", 2)
	svc.AssertNumberOfCalls(t, "Prune", 2)
}

func TestRunOnceHonoursEnabledJobs(t *testing.T) {
	svc := &mockArchiveSvc{}
	svc.On("Prune", mock.Anything, mock.Anything).Return(&archivedomain.PruneResult{}, nil)

	s, _ := newTestScheduler(t, svc, enabledPolicy(), Config{EnabledJobs: []string{"PRUNE_ARCHIVES"}})

	require.NoError(t, s.RunOnce(context.Background()))
	svc.AssertNotCalled(t, "ArchiveAll", mock.Anything)
	svc.AssertNumberOfCalls(t, "Prune", 1)
}

func TestArchiveFailureIsReturnedAndClassified(t *testing.T) {
	svc := &mockArchiveSvc{}
	failure := errors.Join(errors.New("archive lab-b: put"), archivedomain.ErrBlobStore)
	svc.On("ArchiveAll", mock.Anything).Return(&archivedomain.ArchiveAllResult{
		Archived: []string{"lab-a"},
		Failed:   []string{"lab-b"},
	}, failure)
	svc.On("Prune", mock.Anything, mock.Anything).Return(&archivedomain.PruneResult{}, nil)

	s, _ := newTestScheduler(t, svc, enabledPolicy(), Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, archivedomain.ErrBlobStore)
	assert.Contains(t, err.Error(), obsmetrics.JobArchiveTenants)
	svc.AssertNumberOfCalls(t, "Prune", 1)
}

func TestRunJobTimeoutDoesNotReturnError(t *testing.T) {
	registry := prometheus.NewRegistry()
	s, _ := newTestScheduler(t, &mockArchiveSvc{}, enabledPolicy(), Config{})
	s.metrics = obsmetrics.NewSchedulerMetricsForTest(registry)

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	for name, want := range map[string]int{
		"flyroom_scheduler_job_timeouts_total":                 1,
		"flyroom_scheduler_job_errors_total":                   1,
		"flyroom_scheduler_job_last_success_timestamp_seconds": 0,
	} {
		got, err := testutil.GatherAndCount(registry, name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
}
