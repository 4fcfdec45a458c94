package guard

import (
	"errors"
	"time"

	"github.com/smallbiznis/flyroom/internal/config"
)

var (
	ErrPolicyDisabled = errors.New("backup_policy_disabled")
	ErrJobNotDue      = errors.New("job_not_due")
)

func EnsurePolicyEnabled(policy config.BackupPolicy) error {
	if !policy.Enabled {
		return ErrPolicyDisabled
	}
	return nil
}

// EnsureJobDue allows a run when the job never ran or a full interval has
// passed since lastRun.
func EnsureJobDue(lastRun time.Time, now time.Time, interval time.Duration) error {
	if lastRun.IsZero() {
		return nil
	}
	if now.Before(lastRun.Add(interval)) {
		return ErrJobNotDue
	}
	return nil
}
