// Package audit persists login and administration events to an embedded
// SQLite database so they survive process restarts and can be tailed from
// the admin menu.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/termgate/termgate/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL,
	event_type  TEXT NOT NULL,
	username    TEXT NOT NULL,
	status      TEXT NOT NULL,
	detail      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_audit_events_created ON audit_events(created_at);
`

// Event is one recorded audit entry.
type Event struct {
	ID        string    `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	EventType string    `json:"event_type" db:"event_type"`
	Username  string    `json:"username" db:"username"`
	Status    string    `json:"status" db:"status"`
	Detail    string    `json:"detail,omitempty" db:"detail"`
}

// String renders the event in the legacy access-log line format.
func (e Event) String() string {
	line := fmt.Sprintf("[%s] %s | User: %s | Status: %s",
		e.CreatedAt.Local().Format(model.TimeFormat), e.EventType, e.Username, e.Status)
	if e.Detail != "" {
		line += " | " + e.Detail
	}
	return line
}

// Store appends and tails audit events in SQLite.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore opens the audit database under dataDir. Pass empty string for
// in-memory (tests).
func NewStore(dataDir string, logger *slog.Logger) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "audit.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Log records one event. It satisfies the session's AuditLogger contract:
// callers fire and forget, so an insert failure is logged here and never
// propagated.
func (s *Store) Log(eventType, username, status, detail string) {
	ev := Event{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		EventType: eventType,
		Username:  username,
		Status:    status,
		Detail:    detail,
	}

	const q = `INSERT INTO audit_events (id, created_at, event_type, username, status, detail)
		VALUES (:id, :created_at, :event_type, :username, :status, :detail)`
	if _, err := s.db.NamedExec(q, ev); err != nil {
		s.logger.Error("failed to record audit event",
			"event_type", eventType, "username", username, "error", err)
	}
}

// Tail returns the most recent n events in chronological order.
func (s *Store) Tail(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = 10
	}

	var events []Event
	const q = `SELECT * FROM audit_events ORDER BY created_at DESC, rowid DESC LIMIT ?`
	if err := s.db.SelectContext(ctx, &events, q, n); err != nil {
		return nil, fmt.Errorf("tail audit events: %w", err)
	}

	// Reverse into oldest-first for display.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}
