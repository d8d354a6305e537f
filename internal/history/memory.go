package history

import (
	"sync"

	"github.com/comigor/support-agent/internal/ticket"
)

// MemoryStore is a slice-backed Store.
type MemoryStore struct {
	mu      sync.Mutex
	records []ticket.Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(rec ticket.Record) error {
	s.mu.Lock()
	s.records = append(s.records, rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Recent(n int) ([]ticket.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 {
		return nil, nil
	}
	start := max(len(s.records)-n, 0)
	out := make([]ticket.Record, len(s.records)-start)
	copy(out, s.records[start:])
	return out, nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

// MemoryBackend hands every session its own MemoryStore.
type MemoryBackend struct{}

func (MemoryBackend) Open(string) (Store, error) { return NewMemoryStore(), nil }

func (MemoryBackend) Close() error { return nil }
