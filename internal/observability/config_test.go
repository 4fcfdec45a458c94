package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"LOG_LEVEL", "DEPLOYMENT_ENV", "OTEL_SERVICE_NAME", "LOG_SQL_LEVEL", "LOG_SQL_SLOW_THRESHOLD", "OTEL_SAMPLING_RATIO", "OTEL_EXPORTER_OTLP_PROTOCOL", "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL"} {
		t.Setenv(key, "")
	}

	local := LoadConfig(config.Config{AppName: "flyroom", Mode: config.ModeLocal, Environment: "development"})
	assert.Equal(t, "flyroom", local.ServiceName)
	assert.Equal(t, 1.0, local.OtelSamplingRatio)
	assert.Equal(t, "grpc", local.OtelExporterProtocol)
	assert.Equal(t, 200*time.Millisecond, local.SlowQuery)
	assert.Equal(t, []string{"/health", "/metrics"}, local.UntracedPaths)
	assert.True(t, local.Debug())
	assert.Equal(t, gormlogger.Warn, local.gormLoggerConfig().Level)

	cloud := LoadConfig(config.Config{Mode: config.ModeCloud, Environment: "production"})
	assert.Equal(t, "flyroom", cloud.ServiceName)
	assert.Equal(t, 0.1, cloud.OtelSamplingRatio)
	assert.False(t, cloud.Debug())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("LOG_SQL_LEVEL", "INFO")
	t.Setenv("LOG_SQL_SLOW_THRESHOLD", "1s")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "")
	t.Setenv("OTEL_ENABLED", "false")

	cfg := LoadConfig(config.Config{AppName: "flyroom", Mode: config.ModeCloud})
	assert.Equal(t, time.Second, cfg.SlowQuery)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.False(t, cfg.OtelEnabled)
	assert.Equal(t, gormlogger.Info, cfg.gormLoggerConfig().Level)
	assert.Equal(t, time.Second, cfg.gormLoggerConfig().SlowThreshold)

	t.Setenv("LOG_SQL_SLOW_THRESHOLD", "soon")
	assert.Equal(t, 200*time.Millisecond, LoadConfig(config.Config{}).SlowQuery)
}
