package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultSyncEngineConfig().CallsPerSecond, cfg.Sync.CallsPerSecond)
	assert.Equal(t, 3, cfg.Sync.MaxRetryCount)
	assert.Equal(t, 200*time.Millisecond, cfg.Sync.RetryBackoff)
	assert.Equal(t, 180, cfg.Sync.HistogramCap)
	assert.Equal(t, 180*time.Second, cfg.Sync.TimesCacheExpiry)
	assert.Equal(t, 60*time.Second, cfg.Sync.TimesCacheRefresh)
	assert.Equal(t, 5*time.Minute, cfg.Sync.ClassesCacheExpiry)
	assert.Equal(t, time.Minute, cfg.Sync.ClassesCacheRefresh)
	assert.Equal(t, 50, cfg.Sync.LookaheadDays)
	assert.Equal(t, 30*time.Second, cfg.Sync.AvailabilityInitialDelay)
	assert.Equal(t, 10*time.Minute, cfg.Sync.AvailabilityDelay)
	assert.Equal(t, 10*time.Second, cfg.Sync.AppointmentTypeInitialDelay)
	assert.Equal(t, 5*time.Minute, cfg.Sync.AppointmentTypeDelay)
	assert.False(t, cfg.Acuity.Enabled())
}

func TestLoad_AcuityOverrides(t *testing.T) {
	t.Setenv("ACUITY_USER_ID", "12345")
	t.Setenv("ACUITY_API_KEY", "secret")
	t.Setenv("ACUITY_CALLS_PER_SECOND", "2.5")
	t.Setenv("ACUITY_RETRY_BACKOFF", "1s")
	t.Setenv("SYNC_LOOKAHEAD_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Acuity.Enabled())
	assert.Equal(t, 2.5, cfg.Sync.CallsPerSecond)
	assert.Equal(t, time.Second, cfg.Sync.RetryBackoff)
	assert.Equal(t, 7, cfg.Sync.LookaheadDays)
}

func TestLoad_MalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("ACUITY_MAX_RETRY_COUNT", "three")
	t.Setenv("CACHE_TIMES_EXPIRY", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Sync.MaxRetryCount)
	assert.Equal(t, 180*time.Second, cfg.Sync.TimesCacheExpiry)
}

func TestLoad_RejectsRefreshLongerThanExpiry(t *testing.T) {
	t.Setenv("CACHE_TIMES_REFRESH", "10m")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownTimeZone(t *testing.T) {
	t.Setenv("SYNC_TIME_ZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "sync", Password: "pw", Database: "cobalt", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=sync password=pw dbname=cobalt sslmode=require", db.DatabaseDSN())
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://admin.example.org, ,https://ops.example.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://admin.example.org", "https://ops.example.org"}, cfg.Server.AllowedOrigins)
}
