package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ACTIVE_PROVIDER", "GEMINI_BASE_URL", "QUEUE_BASE_URL", "QUEUE_MODEL",
		"RESOLUTION", "WEB_ADDR", "POLL_INTERVAL_SECONDS", "MAX_POLL_ATTEMPTS",
		"PACE_DELAY_MS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "direct", cfg.ActiveProvider)
	assert.Equal(t, "https://generativelanguage.googleapis.com", cfg.GeminiBaseURL)
	assert.Equal(t, "https://api.302.ai", cfg.QueueBaseURL)
	assert.Equal(t, "nano-banana", cfg.QueueModel)
	assert.Equal(t, "2K", cfg.Resolution)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 60, cfg.MaxPollAttempts)
	assert.Equal(t, time.Second, cfg.PaceDelay)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ACTIVE_PROVIDER", " Queue ")
	t.Setenv("QUEUE_API_KEY", "sk-queue")
	t.Setenv("IMAGE_PROXY_URL", "https://proxy.local/fetch?src=")
	t.Setenv("POLL_INTERVAL_SECONDS", "5")
	t.Setenv("MAX_POLL_ATTEMPTS", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "queue", cfg.ActiveProvider)
	assert.Equal(t, "sk-queue", cfg.QueueAPIKey)
	assert.Equal(t, "https://proxy.local/fetch?src=", cfg.ImageProxyURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 12, cfg.MaxPollAttempts)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("ACTIVE_PROVIDER", "dalle")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ACTIVE_PROVIDER")
}

func TestLoadClampsBadValues(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "0")
	t.Setenv("MAX_POLL_ATTEMPTS", "-3")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.MaxConcurrent)
	assert.Equal(t, 60, cfg.MaxPollAttempts)
	assert.Equal(t, 180*time.Second, cfg.HTTPTimeout)
}
