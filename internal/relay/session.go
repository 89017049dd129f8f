package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"RelayBot/internal/projector"
)

// User-visible renderings.
const (
	placeholderText    = "_thinking..._"
	transportErrorText = ":warning: Something went wrong talking to the backend."
)

func errorText(desc string) string {
	return ":warning: " + desc
}

// sender delivers an outbound payload to the backend.
type sender func(v any) error

// Session is one end-to-end request lifecycle: a single backend connection
// projected onto a single chat message. It is an event-sourced state machine;
// the transport feeds it raw frames and close/failure notifications, and its
// transitions are monotonic: unacknowledged, acknowledged, then terminal.
// Once terminal no further state changes occur.
type Session struct {
	id        string
	request   string
	ackMarker string

	sink   *projector.Projector
	handle projector.MessageHandle
	posted bool

	text      strings.Builder
	connected bool
	errored   bool
	done      bool

	chunks int
	bytes  int

	send   sender
	logger *slog.Logger
}

func newSession(id, request, ackMarker string, sink *projector.Projector, send sender, logger *slog.Logger) *Session {
	return &Session{
		id:        id,
		request:   request,
		ackMarker: ackMarker,
		sink:      sink,
		send:      send,
		logger:    logger,
	}
}

// begin posts the placeholder message the session will keep updating.
func (s *Session) begin(ctx context.Context, channel string) error {
	handle, err := s.sink.Post(ctx, channel, placeholderText)
	if err != nil {
		return err
	}
	s.handle = handle
	s.posted = true
	return nil
}

// handleFrame applies one inbound frame. Unparseable frames are logged and
// dropped. No-op once the session is terminal.
func (s *Session) handleFrame(ctx context.Context, data []byte) {
	if s.done {
		return
	}

	var ev BackendEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		s.logger.Warn("dropping unparseable frame", "session_id", s.id, "error", err)
		return
	}

	// Readiness is signalled by content, not by a dedicated tag. A chunk that
	// happens to contain the marker before the real acknowledgment is
	// indistinguishable from it; that matches the backend contract as
	// deployed.
	if !s.connected && strings.Contains(ev.Content, s.ackMarker) {
		s.connected = true
		if err := s.send(chatRequest{Type: "chat", Content: s.request}); err != nil {
			s.logger.Warn("failed to send chat request", "session_id", s.id, "error", err)
		}
	}

	switch ev.Type {
	case EventError:
		// Terminal for display purposes only; the backend is expected to
		// close the connection itself.
		s.errored = true
		s.sink.Flush(ctx, s.handle, errorText(ev.Error))
	case EventStreamChunk:
		s.chunks++
		s.bytes += len(ev.Content)
		s.text.WriteString(ev.Content)
		if !s.errored {
			s.sink.Update(ctx, s.handle, s.text.String())
		}
	case EventStreamComplete:
		// No payload; the close event follows from the backend side.
	}
}

// finish marks the session terminal on a normal close. If any chunks arrived
// the full accumulated text is rendered, so fragments skipped by the throttle
// are never lost; with no chunks the placeholder stays as posted.
func (s *Session) finish(ctx context.Context) {
	if s.done {
		return
	}
	s.done = true

	if s.posted && s.chunks > 0 && !s.errored {
		s.sink.Flush(ctx, s.handle, s.text.String())
	}
	s.sink.Forget(s.handle)
}

// fail marks the session terminal on a transport error, rendering a generic
// failure message best-effort.
func (s *Session) fail(ctx context.Context) {
	if s.done {
		return
	}
	s.done = true

	if s.posted {
		s.sink.Flush(ctx, s.handle, transportErrorText)
	}
	s.sink.Forget(s.handle)
}
