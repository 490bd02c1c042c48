package vault

import (
	"context"
	"sync"
)

// MemoryStore keeps sealed records in memory. Append-only; safe for
// concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	byID      map[string]SealedRecord
	bySession map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return newMemoryStore()
}

func newMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]SealedRecord),
		bySession: make(map[string]string),
	}
}

// Put appends the record unless one already exists for its id or session.
// The stored record is returned, with created reporting whether this call
// inserted it.
func (s *MemoryStore) Put(ctx context.Context, rec SealedRecord) (SealedRecord, bool, error) {
	if err := ctx.Err(); err != nil {
		return SealedRecord{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.bySession[rec.SessionID]; ok {
		return s.byID[id], false, nil
	}
	if existing, ok := s.byID[rec.RecordID]; ok {
		return existing, false, nil
	}
	s.byID[rec.RecordID] = rec
	s.bySession[rec.SessionID] = rec.RecordID
	return rec, true, nil
}

// Get returns a record by id.
func (s *MemoryStore) Get(ctx context.Context, recordID string) (SealedRecord, error) {
	if err := ctx.Err(); err != nil {
		return SealedRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[recordID]
	if !ok {
		return SealedRecord{}, ErrNotFound
	}
	return rec, nil
}

// GetBySession returns the record sealed for a session.
func (s *MemoryStore) GetBySession(ctx context.Context, sessionID string) (SealedRecord, error) {
	if err := ctx.Err(); err != nil {
		return SealedRecord{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySession[sessionID]
	if !ok {
		return SealedRecord{}, ErrNotFound
	}
	return s.byID[id], nil
}

// Len reports how many records the store holds.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
