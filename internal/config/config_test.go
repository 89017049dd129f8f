package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("SLACK_SIGNING_SECRET", "secret")
	t.Setenv("RELAY_BACKEND_URL", "ws://backend.example.com/stream")
}

func TestFromEnv(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "xoxb-test", cfg.SlackBotToken)
	assert.Equal(t, "xapp-test", cfg.SlackAppToken)
	assert.Equal(t, "ws://backend.example.com/stream", cfg.BackendBaseURL)
	assert.Equal(t, time.Second, cfg.UpdateInterval)
	assert.Equal(t, 30*time.Second, cfg.SessionTimeout)
	assert.Equal(t, "connected", cfg.AckMarker)
}

func TestFromEnvMissingCredentials(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"bot token", "SLACK_BOT_TOKEN"},
		{"app token", "SLACK_APP_TOKEN"},
		{"backend url", "RELAY_BACKEND_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.unset, "")

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestFromEnvSigningSecretIsOptional(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SLACK_SIGNING_SECRET", "")

	// The signing secret is opaque and only validated downstream.
	_, err := FromEnv()
	assert.NoError(t, err)
}
