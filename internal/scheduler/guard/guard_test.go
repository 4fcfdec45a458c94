package guard

import (
	"testing"
	"time"

	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestEnsurePolicyEnabled(t *testing.T) {
	assert.ErrorIs(t, EnsurePolicyEnabled(config.BackupPolicy{}), ErrPolicyDisabled)
	assert.NoError(t, EnsurePolicyEnabled(config.BackupPolicy{Enabled: true}))
}

func TestEnsureJobDue(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, EnsureJobDue(time.Time{}, now, time.Hour))
	assert.ErrorIs(t, EnsureJobDue(now.Add(-59*time.Minute), now, time.Hour), ErrJobNotDue)
	assert.NoError(t, EnsureJobDue(now.Add(-time.Hour), now, time.Hour))
}
