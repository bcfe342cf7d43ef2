package journal

import (
	"sync"
	"time"
)

// MemoryStore keeps records in memory.
// It is suitable for tests and short-lived processes.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]Record),
	}
}

// Append implements Store.
func (s *MemoryStore) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	s.records[rec.ChainID] = append(s.records[rec.ChainID], rec)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(chainID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return append([]Record(nil), s.records[chainID]...), nil
}

// Prune implements Store.
func (s *MemoryStore) Prune(before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	for chainID, recs := range s.records {
		kept := recs[:0]
		for _, rec := range recs {
			if !rec.Timestamp.Before(before) {
				kept = append(kept, rec)
			}
		}
		if len(kept) == 0 {
			delete(s.records, chainID)
			continue
		}
		s.records[chainID] = kept
	}
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
