package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	archivedomain "github.com/smallbiznis/flyroom/internal/archive/domain"
	backupdomain "github.com/smallbiznis/flyroom/internal/backup/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: SchedulerJobReasonDeadlineExceeded},
		{name: "wrapped_deadline", err: fmt.Errorf("archive lab: %w", context.Canceled), want: SchedulerJobReasonDeadlineExceeded},
		{name: "encryption_key", err: archivedomain.ErrEncryptionKeyInvalid, want: SchedulerJobReasonEncryptionKey},
		{name: "blob_store", err: fmt.Errorf("%w: timeout", archivedomain.ErrBlobStore), want: SchedulerJobReasonBlobStore},
		{name: "tenant_busy", err: backupdomain.ErrImportInProgress, want: SchedulerJobReasonTenantBusy},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: SchedulerJobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: SchedulerJobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: SchedulerJobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: SchedulerJobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifySchedulerJobReason(tc.err))
		})
	}
}

func TestRetryableReasons(t *testing.T) {
	assert.True(t, IsSchedulerErrorRetryable(context.DeadlineExceeded))
	assert.True(t, IsSchedulerErrorRetryable(backupdomain.ErrImportInProgress))
	assert.False(t, IsSchedulerErrorRetryable(archivedomain.ErrEncryptionKeyInvalid))
	assert.False(t, IsSchedulerErrorRetryable(nil))
}

func TestSchedulerCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetricsForTest(registry)

	m.IncJobRun(JobArchiveTenants)
	m.IncJobRun(JobArchiveTenants)
	m.AddProcessed(JobArchiveTenants, "tenants", 3)
	m.AddProcessed(JobArchiveTenants, "tenants", 0)
	m.IncJobError(JobPruneArchives, &pgconn.PgError{Code: "40001"})
	m.IncJobSkipped(JobArchiveTenants, SchedulerSkipReasonDisabled)
	m.MarkJobSuccess(JobPruneArchives, time.Unix(1700000000, 0))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.jobRuns.WithLabelValues(JobArchiveTenants)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.itemsProcessed.WithLabelValues(JobArchiveTenants, "tenants")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobErrors.WithLabelValues(JobPruneArchives, SchedulerJobReasonSerializationFailure)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobSkipped.WithLabelValues(JobArchiveTenants, SchedulerSkipReasonDisabled)))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(m.lastSuccess.WithLabelValues(JobPruneArchives)))
}

func TestNilSchedulerMetricsAreSafe(t *testing.T) {
	var m *SchedulerMetrics
	assert.NotPanics(t, func() {
		m.IncJobRun("x")
		m.ObserveJobDuration("x", time.Second)
		m.IncJobTimeout("x")
		m.IncJobError("x", errors.New("boom"))
		m.AddProcessed("x", "y", 1)
		m.IncJobSkipped("x", "y")
		m.ObserveRunLoopLag(time.Second)
		m.MarkJobSuccess("x", time.Now())
	})
}
