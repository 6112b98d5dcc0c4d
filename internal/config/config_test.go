package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "FEEDBACK_DWELL", "INACTIVITY_THRESHOLD", "ADMIN_IDS", "RATE_LIMIT_PER_MIN"} {
		t.Setenv(k, "")
	}
	cfg := Load()

	assert.Equal(t, "dev", cfg.Env)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, 2*time.Hour, cfg.FeedbackDwell)
	assert.Equal(t, 15*time.Minute, cfg.InactivityThreshold)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.Empty(t, cfg.AdminIDs)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("FEEDBACK_DWELL", "3h")
	t.Setenv("INACTIVITY_THRESHOLD", "not-a-duration")
	t.Setenv("SWEEP_INTERVAL", "-1m")
	t.Setenv("ADMIN_IDS", " alice, ,bob ")
	t.Setenv("RATE_LIMIT_PER_MIN", "abc")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 3*time.Hour, cfg.FeedbackDwell)
	assert.Equal(t, 15*time.Minute, cfg.InactivityThreshold)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, []string{"alice", "bob"}, cfg.AdminIDs)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trust.yaml")
	require.NoError(t, os.WriteFile(path, []byte("feedback_dwell: 4h\nqueue_backend: memory\nadmin_ids: root\n"), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FEEDBACK_DWELL", "")
	t.Setenv("QUEUE_BACKEND", "")
	t.Setenv("ADMIN_IDS", "ops")

	cfg := Load()

	assert.Equal(t, 4*time.Hour, cfg.FeedbackDwell)
	assert.Equal(t, "memory", cfg.QueueBackend)
	assert.Equal(t, []string{"ops"}, cfg.AdminIDs, "environment wins over the file")
}
