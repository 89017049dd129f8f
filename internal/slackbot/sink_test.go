package slackbot

import (
	"errors"
	"testing"
	"time"

	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"

	"RelayBot/internal/projector"
)

func TestTranslateRateLimit(t *testing.T) {
	err := translateRateLimit(&slack.RateLimitedError{RetryAfter: 4 * time.Second})

	var limited *projector.RateLimitedError
	assert.True(t, errors.As(err, &limited))
	assert.Equal(t, 4*time.Second, limited.RetryAfter)
}

func TestTranslateRateLimitPassesOtherErrorsThrough(t *testing.T) {
	boom := errors.New("boom")
	assert.Equal(t, boom, translateRateLimit(boom))
	assert.NoError(t, translateRateLimit(nil))
}

func TestMsgOptionsRendersTextAndBlock(t *testing.T) {
	opts := msgOptions("some *markdown* text")
	assert.Len(t, opts, 2, "plain text plus a mirrored section block")
}
