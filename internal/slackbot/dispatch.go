package slackbot

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack/slackevents"
)

// greetingToken is matched exactly, case-insensitive, after trimming.
const greetingToken = "hello"

// Canned replies.
func greetingText(user string) string {
	return fmt.Sprintf("Hey there, <@%s>!", user)
}

func promptTextFor(user string) string {
	return fmt.Sprintf("Hi <@%s>! Mention me with a question and I'll ask the backend.", user)
}

const apologyText = "Sorry, something went wrong handling that request."

// actionKind classifies an inbound event.
type actionKind int

const (
	actionIgnore actionKind = iota
	actionReply
	actionRelay
)

// action is what the dispatcher decided to do with one inbound event.
type action struct {
	kind    actionKind
	channel string
	text    string
	thread  string // only set for threaded canned replies
}

// dispatchMessage classifies a plain channel message: self-authored and bot
// traffic is ignored, the bare greeting gets a canned reply, anything else is
// relayed in full. Messages carrying the bot mention are ignored here because
// they arrive again as app_mention events.
func dispatchMessage(ev *slackevents.MessageEvent, botUserID string) action {
	if ev.BotID != "" || ev.SubType == "bot_message" || ev.User == botUserID {
		return action{kind: actionIgnore}
	}
	if botUserID != "" && strings.Contains(ev.Text, mentionToken(botUserID)) {
		return action{kind: actionIgnore}
	}

	trimmed := strings.TrimSpace(ev.Text)
	if trimmed == "" {
		return action{kind: actionIgnore}
	}
	if strings.EqualFold(trimmed, greetingToken) {
		return action{kind: actionReply, channel: ev.Channel, text: greetingText(ev.User)}
	}

	return action{kind: actionRelay, channel: ev.Channel, text: ev.Text}
}

// dispatchMention classifies a mention: with nothing left after stripping the
// mention token the user gets a threaded prompt, otherwise the remaining text
// is relayed.
func dispatchMention(ev *slackevents.AppMentionEvent, botUserID string) action {
	if ev.BotID != "" {
		return action{kind: actionIgnore}
	}

	text := stripMention(ev.Text, botUserID)
	if text == "" {
		return action{
			kind:    actionReply,
			channel: ev.Channel,
			text:    promptTextFor(ev.User),
			thread:  threadRoot(ev.ThreadTimeStamp, ev.TimeStamp),
		}
	}

	return action{kind: actionRelay, channel: ev.Channel, text: text}
}

func mentionToken(botUserID string) string {
	return "<@" + botUserID + ">"
}

// stripMention removes the bot mention token and surrounding whitespace.
func stripMention(text, botUserID string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, mentionToken(botUserID), ""))
}

// threadRoot picks the thread for a canned mention reply: the existing thread
// if the mention is already in one, otherwise the mention itself becomes the
// thread root.
func threadRoot(threadTS, ts string) string {
	if threadTS != "" {
		return threadTS
	}
	return ts
}
