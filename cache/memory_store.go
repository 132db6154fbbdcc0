package cache

import "sync"

// MemoryStore implements Store with in-process maps. Safe for concurrent
// use; contents are lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	hashes map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes: make(map[string]map[string]string),
	}
}

func (s *MemoryStore) GetField(hash, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.hashes[hash][field]
	return value, ok, nil
}

func (s *MemoryStore) SetField(hash, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hashes[hash] == nil {
		s.hashes[hash] = make(map[string]string)
	}
	s.hashes[hash][field] = value
	return nil
}

func (s *MemoryStore) DeleteField(hash, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes[hash], field)
	return nil
}

func (s *MemoryStore) Ping() error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) GetType() string {
	return string(StoreTypeMemory)
}
