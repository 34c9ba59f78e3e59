package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is an in-process Store used in tests and when running
// without Redis.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key, attemptID string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snapshotKey(key, attemptID)] = data
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key, attemptID string, out interface{}) (bool, error) {
	s.mu.RLock()
	data, ok := s.data[snapshotKey(key, attemptID)]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, snapshotKey(key, attemptID))
	return nil
}

// Len reports how many snapshots are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
