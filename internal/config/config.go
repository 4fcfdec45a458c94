package config

import (
	"encoding/base64"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewBackupPolicyHolder),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string
	HTTPAddr    string

	// DefaultTenantName seeds a tenant on startup in local mode.
	DefaultTenantName string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Blob      BlobConfig
	Backup    BackupConfig
	Scheduler SchedulerConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a redis server is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type RateLimitConfig struct {
	Enabled bool
	// Requests per second and burst for export and archive endpoints, per tenant.
	TenantRate  float64
	TenantBurst int
	// ImportLockTTLSeconds bounds how long a crashed import can block its tenant.
	ImportLockTTLSeconds int
}

type BlobConfig struct {
	Driver          string
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	Prefix          string
}

type BackupConfig struct {
	// EncryptionKey is the raw base64 value of BACKUP_ENCRYPTION_KEY.
	EncryptionKey string
	// PolicyPaths are searched for backup.yml.
	PolicyPaths []string
	NodeID      int64
}

type SchedulerConfig struct {
	TickSeconds int
	// EnabledJobs limits which jobs run. Empty runs all of them.
	EnabledJobs []string
}

// ErrEncryptionKeyMissing is returned by DecodeEncryptionKey when no key is set.
var ErrEncryptionKeyMissing = errors.New("backup_encryption_key_missing")

// DecodeEncryptionKey returns the 32-byte archive key.
func (c BackupConfig) DecodeEncryptionKey() ([]byte, error) {
	raw := strings.TrimSpace(c.EncryptionKey)
	if raw == "" {
		return nil, ErrEncryptionKeyMissing
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, errors.New("backup encryption key must decode to 32 bytes")
	}
	return key, nil
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	mode := normalizeMode(getenv("APP_MODE", ModeLocal))

	return Config{
		AppName:           getenv("APP_SERVICE", "flyroom"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Mode:              mode,
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DefaultTenantName: strings.TrimSpace(getenv("DEFAULT_TENANT_NAME", "Default Lab")),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "flyroom"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "flyroom.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:              getenvBool("RATE_LIMIT_ENABLED", true),
			TenantRate:           getenvFloat("RATE_LIMIT_TENANT_RATE", 0.2),
			TenantBurst:          getenvInt("RATE_LIMIT_TENANT_BURST", 5),
			ImportLockTTLSeconds: getenvInt("IMPORT_LOCK_TTL_SECONDS", 900),
		},
		Blob: BlobConfig{
			Driver:          strings.ToLower(getenv("BLOB_DRIVER", "memory")),
			Bucket:          strings.TrimSpace(getenv("BLOB_BUCKET", "")),
			Region:          strings.TrimSpace(getenv("BLOB_REGION", "auto")),
			Endpoint:        strings.TrimSpace(getenv("BLOB_ENDPOINT", "")),
			AccessKeyID:     strings.TrimSpace(getenv("BLOB_ACCESS_KEY_ID", "")),
			SecretAccessKey: strings.TrimSpace(getenv("BLOB_SECRET_ACCESS_KEY", "")),
			PathStyle:       getenvBool("BLOB_PATH_STYLE", true),
			Prefix:          strings.Trim(getenv("BLOB_PREFIX", "backups"), "/"),
		},
		Backup: BackupConfig{
			EncryptionKey: getenv("BACKUP_ENCRYPTION_KEY", ""),
			PolicyPaths:   splitList(getenv("BACKUP_POLICY_PATHS", "/etc/flyroom,.")),
			NodeID:        int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		},
		Scheduler: SchedulerConfig{
			TickSeconds: getenvInt("SCHEDULER_TICK_SECONDS", 60),
			EnabledJobs: splitList(getenv("SCHEDULER_JOBS", "")),
		},
	}
}

const (
	ModeLocal = "local"
	ModeCloud = "cloud"
)

func (c Config) IsCloud() bool {
	return c.Mode == ModeCloud
}

func normalizeMode(raw string) string {
	if strings.ToLower(strings.TrimSpace(raw)) == ModeCloud {
		return ModeCloud
	}
	return ModeLocal
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
