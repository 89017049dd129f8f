// Package relay owns one backend websocket connection per user request and
// projects the backend's incremental output onto a single chat message.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"RelayBot/internal/config"
	"RelayBot/internal/projector"
	"RelayBot/internal/store"
)

// Options tune a Relay. Zero values fall back to the config defaults and the
// global otel providers.
type Options struct {
	AckMarker string
	Timeout   time.Duration
	Ledger    *store.Ledger
	Tracer    trace.Tracer
	Meter     metric.Meter
}

// Relay opens one ephemeral backend connection per request. It is safe for
// concurrent use; every Run call owns its session exclusively.
type Relay struct {
	baseURL   string
	ackMarker string
	timeout   time.Duration
	sink      *projector.Projector
	ledger    *store.Ledger
	logger    *slog.Logger
	tracer    trace.Tracer
	meter     metric.Meter
	dialer    *websocket.Dialer
	newID     func() string
}

// New creates a Relay dialing baseURL/<session-id> per request.
func New(baseURL string, sink *projector.Projector, logger *slog.Logger, opts Options) *Relay {
	if opts.AckMarker == "" {
		opts.AckMarker = config.DefaultAckMarker
	}
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultSessionTimeout
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("relaybot")
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter("relaybot")
	}

	return &Relay{
		baseURL:   baseURL,
		ackMarker: opts.AckMarker,
		timeout:   opts.Timeout,
		sink:      sink,
		ledger:    opts.Ledger,
		logger:    logger,
		tracer:    opts.Tracer,
		meter:     opts.Meter,
		dialer:    websocket.DefaultDialer,
		newID:     uuid.NewString,
	}
}

// Run relays one request end to end: dial the backend, post the placeholder,
// consume frames until the connection closes. A close from either side (the
// force-close timer included) returns nil; only transport failures return an
// error, after a best-effort failure rendering.
func (r *Relay) Run(ctx context.Context, channel, requestText string) error {
	id := r.newID()
	logger := r.logger.With("session_id", id)

	ctx, span := r.tracer.Start(ctx, "relay_session")
	defer span.End()
	start := time.Now()

	url := r.baseURL + "/" + id
	conn, _, err := r.dialer.DialContext(ctx, url, nil)
	if err != nil {
		r.record(ctx, id, start, store.OutcomeTransportError, nil)
		return fmt.Errorf("failed to connect to backend: %w", err)
	}
	defer conn.Close()

	logger.Info("backend connection opened", "url", url)

	// Gorilla allows one concurrent writer; the force-close timer and the
	// session both write.
	var writeMu sync.Mutex
	send := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(v)
	}

	sess := newSession(id, requestText, r.ackMarker, r.sink, send, logger)
	if err := sess.begin(ctx, channel); err != nil {
		r.record(ctx, id, start, store.OutcomeTransportError, sess)
		return fmt.Errorf("failed to post placeholder: %w", err)
	}

	var timedOut atomic.Bool
	timer := time.AfterFunc(r.timeout, func() {
		timedOut.Store(true)
		logger.Warn("session deadline reached, closing connection")
		writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "timeout"))
		writeMu.Unlock()
		conn.Close()
	})
	defer timer.Stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return r.resolve(ctx, id, start, sess, err, timedOut.Load(), logger)
		}
		sess.handleFrame(ctx, data)
	}
}

// resolve maps the read-loop exit onto the session's terminal state. The
// forced timeout and any close frame are the success path; everything else is
// a transport error.
func (r *Relay) resolve(ctx context.Context, id string, start time.Time, sess *Session, err error, timedOut bool, logger *slog.Logger) error {
	if timedOut {
		sess.finish(ctx)
		// A backend error the user already saw outranks the forced close in
		// the ledger.
		outcome := store.OutcomeTimedOut
		if sess.errored {
			outcome = store.OutcomeErrored
		}
		logger.Info("session timed out", "outcome", outcome, "chunks", sess.chunks)
		r.record(ctx, id, start, outcome, sess)
		return nil
	}

	// Any close frame resolves normally, whatever its code. Gorilla reports a
	// connection dropped without a close handshake as CloseAbnormalClosure
	// (1006), a code peers never actually send, so that one stays a transport
	// error.
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code != websocket.CloseAbnormalClosure {
		sess.finish(ctx)
		outcome := store.OutcomeCompleted
		if sess.errored {
			outcome = store.OutcomeErrored
		}
		logger.Info("session closed", "outcome", outcome, "close_code", closeErr.Code,
			"chunks", sess.chunks, "bytes", sess.bytes)
		r.record(ctx, id, start, outcome, sess)
		return nil
	}

	sess.fail(ctx)
	logger.Error("backend connection failed", "error", err)
	r.record(ctx, id, start, store.OutcomeTransportError, sess)
	return fmt.Errorf("backend connection failed: %w", err)
}

// record writes the ledger row and observes the session metrics.
func (r *Relay) record(ctx context.Context, id string, start time.Time, outcome string, sess *Session) {
	rec := store.Record{
		ID:         id,
		StartedAt:  start,
		FinishedAt: time.Now(),
		Outcome:    outcome,
	}
	if sess != nil {
		rec.Chunks = sess.chunks
		rec.Bytes = sess.bytes
	}
	r.ledger.Save(rec)

	if counter, err := r.meter.Int64Counter("relay.sessions.total",
		metric.WithDescription("Relay sessions by outcome")); err == nil {
		counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
	if sess != nil {
		if counter, err := r.meter.Int64Counter("relay.chunks.received",
			metric.WithDescription("Stream chunks received from the backend")); err == nil {
			counter.Add(ctx, int64(sess.chunks))
		}
		if counter, err := r.meter.Int64Counter("relay.bytes.received",
			metric.WithDescription("Stream bytes received from the backend")); err == nil {
			counter.Add(ctx, int64(sess.bytes))
		}
	}
	if hist, err := r.meter.Float64Histogram("relay.session.duration",
		metric.WithDescription("Relay session duration in milliseconds")); err == nil {
		hist.Record(ctx, float64(time.Since(start).Milliseconds()))
	}
}
