// Package slackbot runs the Socket Mode event loop and routes inbound events
// to canned replies or the streaming relay.
package slackbot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"RelayBot/internal/relay"
)

// Bot wires the Socket Mode connection to the dispatcher and relay.
type Bot struct {
	api       *slack.Client
	socket    *socketmode.Client
	relay     *relay.Relay
	logger    *slog.Logger
	botUserID string
}

// New creates a Bot over an app-level-token Slack client.
func New(api *slack.Client, rel *relay.Relay, logger *slog.Logger) *Bot {
	return &Bot{
		api:    api,
		socket: socketmode.New(api),
		relay:  rel,
		logger: logger,
	}
}

// Run authenticates, then consumes Socket Mode events until ctx is cancelled
// or the connection fails structurally. Startup is a single attempt; the
// caller logs the failure and exits.
func (b *Bot) Run(ctx context.Context) error {
	auth, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to authenticate with Slack: %w", err)
	}
	b.botUserID = auth.UserID
	b.logger.Info("authenticated", "bot_user_id", auth.UserID, "team", auth.Team)

	go b.consumeEvents(ctx)

	return b.socket.RunContext(ctx)
}

func (b *Bot) consumeEvents(ctx context.Context) {
	for evt := range b.socket.Events {
		switch evt.Type {
		case socketmode.EventTypeConnecting:
			b.logger.Info("connecting to Slack")
		case socketmode.EventTypeConnected:
			b.logger.Info("connected to Slack")
		case socketmode.EventTypeConnectionError:
			// Includes whatever structured payload Slack attached.
			b.logger.Error("socket mode connection error", "data", fmt.Sprintf("%+v", evt.Data))
		case socketmode.EventTypeEventsAPI:
			payload, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				b.logger.Warn("unexpected events API payload", "data", fmt.Sprintf("%T", evt.Data))
				continue
			}
			if evt.Request != nil {
				b.socket.Ack(*evt.Request)
			}
			go b.handleEvent(ctx, payload)
		}
	}
}

// handleEvent dispatches one inbound event. It is the containment boundary: a
// panic in one session's handling is logged and answered with an apology
// rather than taking down unrelated sessions.
func (b *Bot) handleEvent(ctx context.Context, payload slackevents.EventsAPIEvent) {
	var channel string
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("recovered from handler panic", "panic", fmt.Sprintf("%v", r))
			if channel != "" {
				if _, _, err := b.api.PostMessageContext(ctx, channel, msgOptions(apologyText)...); err != nil {
					b.logger.Warn("failed to post apology", "error", err)
				}
			}
		}
	}()

	var act action
	switch ev := payload.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		channel = ev.Channel
		act = dispatchMessage(ev, b.botUserID)
	case *slackevents.AppMentionEvent:
		channel = ev.Channel
		act = dispatchMention(ev, b.botUserID)
	default:
		return
	}

	switch act.kind {
	case actionReply:
		opts := msgOptions(act.text)
		if act.thread != "" {
			opts = append(opts, slack.MsgOptionTS(act.thread))
		}
		if _, _, err := b.api.PostMessageContext(ctx, act.channel, opts...); err != nil {
			b.logger.Warn("failed to post canned reply", "channel", act.channel, "error", err)
		}
	case actionRelay:
		if err := b.relay.Run(ctx, act.channel, act.text); err != nil {
			// The relay already rendered a failure message best-effort.
			b.logger.Error("relay session failed", "channel", act.channel, "error", err)
		}
	}
}
