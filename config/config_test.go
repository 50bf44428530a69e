package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("venue:\n  utc_offset_minutes: 420\npayments:\n  url: http://pay\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 420, cfg.Venue.UTCOffsetMinutes)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.Equal(t, 15*time.Second, cfg.Payments.Timeout)
	assert.Equal(t, 900*time.Second, cfg.Sweeper.Interval)
	assert.Equal(t, "venue.bookings", cfg.MQ.Exchange)
	assert.Equal(t, "http://pay", cfg.Payments.URL)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  dsn: file:from-yaml.db\n"), 0o600))
	t.Setenv("DATABASE_DSN", "postgres://override")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://override", cfg.Database.DSN)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
