package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/emergency")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.Port)
	assert.Equal(t, "/api/v0", cfg.API.BasePath)
	assert.Equal(t, "device_sos", cfg.Kafka.Topic)
	assert.Equal(t, "emergency-service", cfg.Kafka.GroupID)
	assert.Equal(t, 28.7041, cfg.Emergency.FallbackLatitude)
	assert.Equal(t, 77.1025, cfg.Emergency.FallbackLongitude)
	assert.Equal(t, 5*time.Second, cfg.Emergency.OpTimeout)
	assert.Equal(t, 500, cfg.Outbox.QueueSize)
	assert.Equal(t, 4, cfg.Outbox.MaxWorkers)
	assert.Equal(t, 5, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Outbox.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.Outbox.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/emergency")
	t.Setenv("API_PORT", ":9090")
	t.Setenv("OP_TIMEOUT_SECONDS", "12")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "2")
	t.Setenv("FALLBACK_LATITUDE", "10.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.API.Port)
	assert.Equal(t, 12*time.Second, cfg.Emergency.OpTimeout)
	assert.Equal(t, 2, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 10.5, cfg.Emergency.FallbackLatitude)
}
