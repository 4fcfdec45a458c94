package observability

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/flyroom/internal/config"
)

// Config is the observability view of the service configuration. OTEL_* and
// LOG_* variables override what config.Config carries.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	// SQLLogLevel and SlowQuery tune the gorm bridge.
	SQLLogLevel string
	SlowQuery   time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	// UntracedPaths never get a server span.
	UntracedPaths []string
}

func LoadConfig(cfg config.Config) Config {
	// Local installs keep every trace.
	sampling := 1.0
	if cfg.IsCloud() {
		sampling = 0.1
	}

	return Config{
		ServiceName:          env("OTEL_SERVICE_NAME", firstNonEmpty(cfg.AppName, "flyroom")),
		Environment:          env("DEPLOYMENT_ENV", cfg.Environment),
		Version:              env("SERVICE_VERSION", cfg.AppVersion),
		LogLevel:             strings.ToLower(env("LOG_LEVEL", "info")),
		LogFormat:            strings.ToLower(env("LOG_FORMAT", "json")),
		SQLLogLevel:          strings.ToLower(env("LOG_SQL_LEVEL", "warn")),
		SlowQuery:            envDuration("LOG_SQL_SLOW_THRESHOLD", 200*time.Millisecond),
		OtelEnabled:          envBool("OTEL_ENABLED", true),
		OtelExporterEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(env("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", env("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
		OtelSamplingRatio:    envFloat("OTEL_SAMPLING_RATIO", sampling),
		UntracedPaths:        []string{"/health", "/metrics"},
	}
}

// Debug turns on verbose logging for debug level or a development environment.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func env(key, def string) string {
	return firstNonEmpty(os.Getenv(key), def)
}

func envBool(key string, def bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return v
}

func envFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return def
	}
	return v
}
