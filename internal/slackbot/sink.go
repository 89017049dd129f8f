package slackbot

import (
	"context"
	"errors"

	"github.com/slack-go/slack"

	"RelayBot/internal/projector"
)

// Sink implements projector.ChatClient on the Slack Web API.
type Sink struct {
	api *slack.Client
}

// NewSink wraps a Slack client as the projector's output surface.
func NewSink(api *slack.Client) *Sink {
	return &Sink{api: api}
}

// PostMessage creates a new message in channel and returns its handle.
func (s *Sink) PostMessage(ctx context.Context, channel, text string) (projector.MessageHandle, error) {
	ch, ts, err := s.api.PostMessageContext(ctx, channel, msgOptions(text)...)
	if err != nil {
		return projector.MessageHandle{}, translateRateLimit(err)
	}
	return projector.MessageHandle{Channel: ch, Timestamp: ts}, nil
}

// UpdateMessage replaces the displayed content of an existing message.
func (s *Sink) UpdateMessage(ctx context.Context, handle projector.MessageHandle, text string) error {
	_, _, _, err := s.api.UpdateMessageContext(ctx, handle.Channel, handle.Timestamp, msgOptions(text)...)
	return translateRateLimit(err)
}

// msgOptions renders both the plain text and a mirrored markdown block.
func msgOptions(text string) []slack.MsgOption {
	section := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil)
	return []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionBlocks(section),
	}
}

// translateRateLimit maps Slack's rate-limit error onto the projector's so
// the projector stays free of platform types.
func translateRateLimit(err error) error {
	if err == nil {
		return nil
	}
	var limited *slack.RateLimitedError
	if errors.As(err, &limited) {
		return &projector.RateLimitedError{RetryAfter: limited.RetryAfter}
	}
	return err
}
