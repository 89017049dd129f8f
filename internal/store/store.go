package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Outcome values recorded for a finished session.
const (
	OutcomeCompleted      = "completed"
	OutcomeErrored        = "errored"
	OutcomeTimedOut       = "timed_out"
	OutcomeTransportError = "transport_error"
)

// Record is the operational summary of one relay session. Message content is
// never stored here.
type Record struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	Chunks     int
	Bytes      int
}

// Ledger persists session outcomes to SQLite. A nil Ledger is a no-op, so
// callers never have to branch on whether persistence is enabled.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if necessary) the ledger database at path.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createSessionsTable := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		outcome TEXT,
		chunks INTEGER,
		bytes INTEGER
	);`

	if _, err := db.Exec(createSessionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	return &Ledger{db: db, logger: logger}, nil
}

// Save writes one session record. Failures are logged and swallowed; the
// ledger must never fail a session.
func (l *Ledger) Save(rec Record) {
	if l == nil {
		return
	}

	_, err := l.db.Exec(
		"INSERT OR REPLACE INTO sessions (id, started_at, finished_at, outcome, chunks, bytes) VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.StartedAt, rec.FinishedAt, rec.Outcome, rec.Chunks, rec.Bytes,
	)
	if err != nil {
		l.logger.Warn("failed to save session record", "session_id", rec.ID, "error", err)
		return
	}

	l.logger.Info("session recorded", "session_id", rec.ID, "outcome", rec.Outcome, "chunks", rec.Chunks)
}

// Load fetches one session record by id.
func (l *Ledger) Load(id string) (Record, error) {
	if l == nil {
		return Record{}, fmt.Errorf("ledger is disabled")
	}

	var rec Record
	err := l.db.QueryRow(
		"SELECT id, started_at, finished_at, outcome, chunks, bytes FROM sessions WHERE id = ?", id,
	).Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &rec.Outcome, &rec.Chunks, &rec.Bytes)
	if err != nil {
		return Record{}, fmt.Errorf("session not found: %w", err)
	}

	return rec, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}
