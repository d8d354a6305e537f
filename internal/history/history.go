// Package history keeps the processed tickets of a session, oldest first.
// Stores only grow or are cleared wholesale; records are never edited.
// Nothing is written to disk: the SQLite backend uses an in-memory database.
package history

import (
	"fmt"

	"github.com/comigor/support-agent/internal/ticket"
)

// Store is the ticket history of a single session.
// Errors are backend failures only; asking for more records than exist is not one.
type Store interface {
	// Append adds a record after all existing ones.
	Append(rec ticket.Record) error
	// Recent returns the last n records, most recent last.
	Recent(n int) ([]ticket.Record, error)
	// Clear removes every record. Clearing an empty store is a no-op.
	Clear() error
	// Len returns the number of records.
	Len() (int, error)
}

// Backend opens per-session stores.
type Backend interface {
	Open(sessionID string) (Store, error)
	Close() error
}

// NewBackend returns the backend for driver ("memory" or "sqlite").
func NewBackend(driver string) (Backend, error) {
	switch driver {
	case "", "memory":
		return MemoryBackend{}, nil
	case "sqlite":
		return OpenSQLite()
	default:
		return nil, fmt.Errorf("unknown history driver %q", driver)
	}
}

// All returns every record in the store, oldest first.
func All(s Store) ([]ticket.Record, error) {
	n, err := s.Len()
	if err != nil {
		return nil, err
	}
	return s.Recent(n)
}
