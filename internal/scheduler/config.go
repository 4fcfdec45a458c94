package scheduler

import (
	"time"

	"github.com/smallbiznis/flyroom/internal/config"
)

// Config controls how often the scheduler wakes up. Job cadence and
// timeouts come from the backup policy.
type Config struct {
	RunInterval time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: time.Duration(cfg.Scheduler.TickSeconds) * time.Second,
		EnabledJobs: cfg.Scheduler.EnabledJobs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	return c
}
