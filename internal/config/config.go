package config

import (
	"fmt"
	"os"
	"time"
)

// Defaults for the relay tunables.
const (
	DefaultUpdateInterval = time.Second
	DefaultSessionTimeout = 30 * time.Second
	DefaultAckMarker      = "connected"
)

// Config holds application configuration. Credentials and the backend URL
// come from the environment; tunables come from flags.
type Config struct {
	SlackBotToken      string // xoxb- token for the Web API
	SlackAppToken      string // xapp- token for Socket Mode
	SlackSigningSecret string // opaque, validated downstream by Slack itself
	BackendBaseURL     string // websocket base URL; a session id is appended per request

	Debug          bool
	UpdateInterval time.Duration // minimum spacing between updates to one message
	SessionTimeout time.Duration // force-close deadline per backend connection
	AckMarker      string        // substring marking the backend as ready for the request
	LedgerPath     string        // sqlite file for the session ledger, empty disables
}

// FromEnv reads credentials and the backend URL from the environment and
// fills in default tunables.
func FromEnv() (Config, error) {
	cfg := Config{
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackAppToken:      os.Getenv("SLACK_APP_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		BackendBaseURL:     os.Getenv("RELAY_BACKEND_URL"),
		UpdateInterval:     DefaultUpdateInterval,
		SessionTimeout:     DefaultSessionTimeout,
		AckMarker:          DefaultAckMarker,
	}

	if cfg.SlackBotToken == "" {
		return cfg, fmt.Errorf("SLACK_BOT_TOKEN not set")
	}
	if cfg.SlackAppToken == "" {
		return cfg, fmt.Errorf("SLACK_APP_TOKEN not set")
	}
	if cfg.BackendBaseURL == "" {
		return cfg, fmt.Errorf("RELAY_BACKEND_URL not set")
	}

	return cfg, nil
}
