package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/flyroom/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func observeGlobal(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestDescribeStatement(t *testing.T) {
	cases := []struct {
		sql, op, table string
	}{
		{"SELECT id, email AS secondary FROM `users` WHERE tenant_id = ?", "SELECT", "users"},
		{`INSERT INTO "stocks" ("id","tenant_id") VALUES ($1,$2)`, "INSERT", "stocks"},
		{"UPDATE `flip_events` SET `stock_id`=? WHERE stock_id = ?", "UPDATE", "flip_events"},
		{"DELETE FROM stock_tags WHERE stock_id = ?", "DELETE", "stock_tags"},
		{"PRAGMA foreign_keys", "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeStatement(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestGormLoggerCarriesRunFields(t *testing.T) {
	logs := observeGlobal(t)
	l := NewGormLogger(GormLoggerConfig{Level: gormlogger.Warn, SlowThreshold: 500 * time.Millisecond})

	ctx := obscontext.WithRunID(obscontext.WithTenantID(context.Background(), "lab-a"), "01JRUN")
	stmt := func() (string, int64) { return "INSERT INTO `users` (`id`) VALUES (?)", 1 }

	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	l.Trace(ctx, time.Now(), stmt, errors.New("UNIQUE constraint failed"))
	l.Trace(ctx, time.Now(), stmt, gormlogger.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), stmt, nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "gorm.slow_query", entries[0].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	for _, entry := range entries {
		fields := entry.ContextMap()
		assert.Equal(t, "gorm", entry.LoggerName)
		assert.Equal(t, "lab-a", fields["tenant_id"])
		assert.Equal(t, "01JRUN", fields["run_id"])
		assert.Equal(t, "users", fields["table"])
		assert.Equal(t, "INSERT", fields["operation"])
	}
}

func TestGormLoggerLevels(t *testing.T) {
	logs := observeGlobal(t)
	stmt := func() (string, int64) { return "SELECT * FROM tags", 3 }

	NewGormLogger(GormLoggerConfig{Level: ParseGormLevel("off")}).Trace(context.Background(), time.Now(), stmt, errors.New("boom"))
	assert.Zero(t, logs.Len())

	NewGormLogger(GormLoggerConfig{Level: ParseGormLevel("info")}).Trace(context.Background(), time.Now(), stmt, nil)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.DebugLevel, logs.All()[0].Level)

	assert.Equal(t, gormlogger.Warn, ParseGormLevel("verbose"))
	assert.Equal(t, gormlogger.Error, ParseGormLevel(" ERROR "))
}
