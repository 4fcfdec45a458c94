package config

import (
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BackupPolicy controls scheduled archiving. It is read from backup.yml and
// reloaded when the file changes.
type BackupPolicy struct {
	Enabled       bool          `mapstructure:"enabled"`
	Interval      time.Duration `mapstructure:"interval"`
	JobTimeout    time.Duration `mapstructure:"jobTimeout"`
	RetentionDays int           `mapstructure:"retentionDays"`
	// Tenants restricts scheduled archiving to these tenant ids. Empty means all.
	Tenants []string `mapstructure:"tenants"`
}

func DefaultBackupPolicy() BackupPolicy {
	return BackupPolicy{
		Enabled:       false,
		Interval:      24 * time.Hour,
		JobTimeout:    30 * time.Minute,
		RetentionDays: 30,
	}
}

// AllowsTenant reports whether scheduled archiving covers tenantID.
func (p BackupPolicy) AllowsTenant(tenantID string) bool {
	if len(p.Tenants) == 0 {
		return true
	}
	for _, id := range p.Tenants {
		if strings.TrimSpace(id) == tenantID {
			return true
		}
	}
	return false
}

// RetentionCutoff is the instant before which archives are pruned.
func (p BackupPolicy) RetentionCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}

type BackupPolicyHolder struct {
	current atomic.Value // holds BackupPolicy
	v       *viper.Viper
	log     *zap.Logger
}

func NewBackupPolicyHolder(cfg Config, log *zap.Logger) (*BackupPolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v := viper.New()

	v.SetConfigName("backup")
	v.SetConfigType("yml")
	for _, path := range cfg.Backup.PolicyPaths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("FLYROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBackupPolicy()
	v.SetDefault("backup.enabled", defaults.Enabled)
	v.SetDefault("backup.interval", defaults.Interval)
	v.SetDefault("backup.jobTimeout", defaults.JobTimeout)
	v.SetDefault("backup.retentionDays", defaults.RetentionDays)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}

	holder := &BackupPolicyHolder{v: v, log: log.Named("config.backup_policy")}
	if err := holder.reload(); err != nil {
		return nil, err
	}

	if found {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := holder.reload(); err != nil {
				holder.log.Warn("backup policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.log.Info("backup policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

// NewStaticBackupPolicyHolder wraps a fixed policy.
func NewStaticBackupPolicyHolder(p BackupPolicy) *BackupPolicyHolder {
	holder := &BackupPolicyHolder{log: zap.NewNop()}
	holder.current.Store(p)
	return holder
}

func (h *BackupPolicyHolder) Get() BackupPolicy {
	return h.current.Load().(BackupPolicy)
}

// Set replaces the current policy.
func (h *BackupPolicyHolder) Set(p BackupPolicy) error {
	if err := validateBackupPolicy(p); err != nil {
		return err
	}
	h.current.Store(p)
	return nil
}

func (h *BackupPolicyHolder) reload() error {
	var updated BackupPolicy
	if err := h.v.UnmarshalKey("backup", &updated); err != nil {
		return err
	}
	return h.Set(updated)
}

func validateBackupPolicy(p BackupPolicy) error {
	if p.Interval < time.Minute {
		return errors.New("backup.interval must be at least 1m")
	}
	if p.JobTimeout <= 0 {
		return errors.New("backup.jobTimeout must be positive")
	}
	if p.RetentionDays < 1 {
		return errors.New("backup.retentionDays must be at least 1")
	}
	return nil
}
