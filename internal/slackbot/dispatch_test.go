package slackbot

import (
	"testing"

	"github.com/slack-go/slack/slackevents"
	"github.com/stretchr/testify/assert"
)

const botUserID = "UBOT"

func TestDispatchMessageGreeting(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"exact", "hello"},
		{"upper case", "HELLO"},
		{"mixed case", "HeLLo"},
		{"surrounding whitespace", "  hello\t"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := dispatchMessage(&slackevents.MessageEvent{
				Channel: "C123", User: "U456", Text: tt.text,
			}, botUserID)

			assert.Equal(t, actionReply, act.kind, "greeting never reaches the relay")
			assert.Equal(t, "C123", act.channel)
			assert.Contains(t, act.text, "<@U456>", "reply references the sender")
		})
	}
}

func TestDispatchMessageSubstantiveTextIsRelayed(t *testing.T) {
	act := dispatchMessage(&slackevents.MessageEvent{
		Channel: "C123", User: "U456", Text: "hello there, can you summarize this?",
	}, botUserID)

	assert.Equal(t, actionRelay, act.kind, "greeting match is exact, not a prefix")
	assert.Equal(t, "hello there, can you summarize this?", act.text)
}

func TestDispatchMessageIgnores(t *testing.T) {
	tests := []struct {
		name string
		ev   slackevents.MessageEvent
	}{
		{"bot message subtype", slackevents.MessageEvent{Text: "hi", SubType: "bot_message"}},
		{"bot id set", slackevents.MessageEvent{Text: "hi", BotID: "B789"}},
		{"own message", slackevents.MessageEvent{Text: "hi", User: botUserID}},
		{"empty text", slackevents.MessageEvent{User: "U456"}},
		{"whitespace only", slackevents.MessageEvent{User: "U456", Text: "   "}},
		{"carries bot mention", slackevents.MessageEvent{User: "U456", Text: "<@UBOT> do a thing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := dispatchMessage(&tt.ev, botUserID)
			assert.Equal(t, actionIgnore, act.kind)
		})
	}
}

func TestDispatchMentionEmptyPromptsInThread(t *testing.T) {
	act := dispatchMention(&slackevents.AppMentionEvent{
		Channel: "C123", User: "U456", Text: "<@UBOT>  ",
		TimeStamp: "111.222",
	}, botUserID)

	assert.Equal(t, actionReply, act.kind)
	assert.Contains(t, act.text, "<@U456>")
	assert.Equal(t, "111.222", act.thread, "mention ts becomes the thread root")
}

func TestDispatchMentionPrefersExistingThread(t *testing.T) {
	act := dispatchMention(&slackevents.AppMentionEvent{
		Channel: "C123", User: "U456", Text: "<@UBOT>",
		TimeStamp: "111.222", ThreadTimeStamp: "100.000",
	}, botUserID)

	assert.Equal(t, actionReply, act.kind)
	assert.Equal(t, "100.000", act.thread, "thread_ts wins over ts when present")
}

func TestDispatchMentionWithContentIsRelayed(t *testing.T) {
	act := dispatchMention(&slackevents.AppMentionEvent{
		Channel: "C123", User: "U456", Text: " <@UBOT> summarize the incident ",
		TimeStamp: "111.222",
	}, botUserID)

	assert.Equal(t, actionRelay, act.kind)
	assert.Equal(t, "summarize the incident", act.text, "mention token is stripped")
}

func TestDispatchMentionFromBotIsIgnored(t *testing.T) {
	act := dispatchMention(&slackevents.AppMentionEvent{
		Channel: "C123", Text: "<@UBOT> hi", BotID: "B789",
	}, botUserID)

	assert.Equal(t, actionIgnore, act.kind)
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, "question", stripMention("<@UBOT> question", botUserID))
	assert.Equal(t, "question", stripMention("question <@UBOT>", botUserID))
	assert.Equal(t, "", stripMention(" <@UBOT> ", botUserID))
}
