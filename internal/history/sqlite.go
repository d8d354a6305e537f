package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/support-agent/internal/logger"
	"github.com/comigor/support-agent/internal/ticket"
)

// SQLite keeps the history of every session in one in-memory database,
// partitioned by session id.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens a private in-memory database and creates the schema.
func OpenSQLite() (*SQLite, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite history: %w", err)
	}
	// every pooled connection to :memory: would see its own empty database
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS ticket_records (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        source TEXT NOT NULL,
        excerpt TEXT NOT NULL,
        summary TEXT NOT NULL,
        reply TEXT NOT NULL
    );`,
		`CREATE INDEX IF NOT EXISTS ticket_records_session ON ticket_records (session_id, id);`,
	} {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create history schema: %w", err)
		}
	}
	logger.L.Info("sqlite history DB initialized")
	return &SQLite{db: db}, nil
}

// Open returns the store of one session.
func (s *SQLite) Open(sessionID string) (Store, error) {
	return &SQLiteStore{db: s.db, sessionID: sessionID}, nil
}

// Close drops the database and every session's history with it.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SQLiteStore is the Store of one session inside a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	sessionID string
}

func (s *SQLiteStore) Append(rec ticket.Record) error {
	_, err := s.db.Exec(`INSERT INTO ticket_records (session_id, created_at, source, excerpt, summary, reply) VALUES (?,?,?,?,?,?);`,
		s.sessionID, rec.Timestamp.UnixNano(), string(rec.Source), rec.Excerpt, rec.Summary, rec.Reply)
	if err != nil {
		logger.L.Error("failed to store ticket record", "session", s.sessionID, "error", err)
		return fmt.Errorf("append ticket record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(n int) ([]ticket.Record, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`SELECT created_at, source, excerpt, summary, reply FROM (
        SELECT id, created_at, source, excerpt, summary, reply FROM ticket_records
        WHERE session_id = ? ORDER BY id DESC LIMIT ?
    ) ORDER BY id ASC;`, s.sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("query ticket records: %w", err)
	}
	defer rows.Close()

	var out []ticket.Record
	for rows.Next() {
		var (
			r      ticket.Record
			nanos  int64
			source string
		)
		if err := rows.Scan(&nanos, &source, &r.Excerpt, &r.Summary, &r.Reply); err != nil {
			return nil, fmt.Errorf("scan ticket record: %w", err)
		}
		r.Timestamp = time.Unix(0, nanos)
		r.Source = ticket.Source(source)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM ticket_records WHERE session_id = ?;`, s.sessionID); err != nil {
		return fmt.Errorf("clear ticket records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Len() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM ticket_records WHERE session_id = ?;`, s.sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count ticket records: %w", err)
	}
	return n, nil
}
