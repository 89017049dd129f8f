package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/slack-go/slack"

	"RelayBot/internal/config"
	"RelayBot/internal/projector"
	"RelayBot/internal/relay"
	"RelayBot/internal/slackbot"
	"RelayBot/internal/store"
	"RelayBot/internal/telemetry"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	updateInterval := flag.Duration("update-interval", config.DefaultUpdateInterval, "Minimum spacing between updates to one message")
	sessionTimeout := flag.Duration("session-timeout", config.DefaultSessionTimeout, "Force-close deadline per backend connection")
	ackMarker := flag.String("ack-marker", config.DefaultAckMarker, "Substring marking the backend as ready")
	ledgerPath := flag.String("ledger", "relaybot.db", "SQLite session ledger path (empty to disable)")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = *debug
	cfg.UpdateInterval = *updateInterval
	cfg.SessionTimeout = *sessionTimeout
	cfg.AckMarker = *ackMarker
	cfg.LedgerPath = *ledgerPath

	logger, err := telemetry.InitLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx)
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var ledger *store.Ledger
	if cfg.LedgerPath != "" {
		ledger, err = store.Open(cfg.LedgerPath, logger)
		if err != nil {
			logger.Warn("failed to open session ledger, continuing without it", "error", err)
		} else {
			defer ledger.Close()
		}
	}

	api := slack.New(cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
		slack.OptionDebug(cfg.Debug),
	)

	sink := projector.New(slackbot.NewSink(api), cfg.UpdateInterval, logger)
	rel := relay.New(cfg.BackendBaseURL, sink, logger, relay.Options{
		AckMarker: cfg.AckMarker,
		Timeout:   cfg.SessionTimeout,
		Ledger:    ledger,
		Tracer:    tracer,
		Meter:     meter,
	})

	bot := slackbot.New(api, rel, logger)

	logger.Info("starting relay bot", "backend", cfg.BackendBaseURL)
	if err := bot.Run(ctx); err != nil {
		// Single attempt; structural startup failures are logged, not retried.
		logger.Error("bot stopped", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
