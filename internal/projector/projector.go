// Package projector wraps the outbound chat surface. Each relay session posts
// exactly one message and then repeatedly rewrites it; the projector enforces
// the minimum spacing between rewrites and absorbs platform rate limiting.
package projector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MessageHandle identifies a chat message by channel and timestamp.
type MessageHandle struct {
	Channel   string
	Timestamp string
}

// RateLimitedError signals the platform asked us to slow down. RetryAfter of
// zero means the platform gave no duration; callers wait one second.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// ChatClient is the outbound chat platform surface.
type ChatClient interface {
	// PostMessage creates a new message and returns its handle.
	PostMessage(ctx context.Context, channel, text string) (MessageHandle, error)

	// UpdateMessage replaces the displayed content of an existing message.
	UpdateMessage(ctx context.Context, handle MessageHandle, text string) error
}

// Projector throttles updates per message handle. Calls arriving sooner than
// the interval since the last successful update are skipped; callers always
// send the full accumulated text, so a skipped fragment is carried by the
// next allowed update.
type Projector struct {
	client   ChatClient
	interval time.Duration
	logger   *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)

	mu   sync.Mutex
	last map[MessageHandle]time.Time
}

// New creates a Projector enforcing the given minimum update interval.
func New(client ChatClient, interval time.Duration, logger *slog.Logger) *Projector {
	return &Projector{
		client:   client,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    time.Sleep,
		last:     make(map[MessageHandle]time.Time),
	}
}

// Post creates the single message a session will keep updating.
func (p *Projector) Post(ctx context.Context, channel, text string) (MessageHandle, error) {
	handle, err := p.client.PostMessage(ctx, channel, text)
	if err != nil {
		return MessageHandle{}, fmt.Errorf("failed to post message: %w", err)
	}
	return handle, nil
}

// Update replaces the message content unless the previous successful update
// was less than the configured interval ago.
func (p *Projector) Update(ctx context.Context, handle MessageHandle, text string) {
	p.update(ctx, handle, text, false)
}

// Flush updates immediately, bypassing the interval check. Used for terminal
// renderings: the final accumulated text and error messages.
func (p *Projector) Flush(ctx context.Context, handle MessageHandle, text string) {
	p.update(ctx, handle, text, true)
}

func (p *Projector) update(ctx context.Context, handle MessageHandle, text string, force bool) {
	p.mu.Lock()
	if !force && p.now().Sub(p.last[handle]) < p.interval {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	err := p.client.UpdateMessage(ctx, handle, text)

	var limited *RateLimitedError
	if errors.As(err, &limited) {
		// One bounded wait-and-retry; no exponential series on top.
		wait := limited.RetryAfter
		if wait <= 0 {
			wait = time.Second
		}
		p.logger.Warn("chat platform rate limited, retrying once",
			"channel", handle.Channel, "ts", handle.Timestamp, "wait", wait)
		p.sleep(wait)
		err = p.client.UpdateMessage(ctx, handle, text)
	}

	if err != nil {
		p.logger.Warn("failed to update message",
			"channel", handle.Channel, "ts", handle.Timestamp, "error", err)
		return
	}

	p.mu.Lock()
	p.last[handle] = p.now()
	p.mu.Unlock()
}

// WithClock overrides the time source and sleeper. Tests use this to drive
// the throttle with a fake clock.
func (p *Projector) WithClock(now func() time.Time, sleep func(time.Duration)) *Projector {
	p.now = now
	p.sleep = sleep
	return p
}

// Forget drops throttle state for a finished session's message.
func (p *Projector) Forget(handle MessageHandle) {
	p.mu.Lock()
	delete(p.last, handle)
	p.mu.Unlock()
}
