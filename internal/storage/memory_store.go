package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	fileInfo  string
	expiresAt time.Time
}

type MemoryStore struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	order      []string
	maxEntries int
	now        func() time.Time
}

// ------------------------------------------------------------------------------------------------------
// NewMemoryStore creates a new in-memory media cache holding at most maxEntries references
func NewMemoryStore(maxEntries int) *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		order:      make([]string, 0),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// ------------------------------------------------------------------------------------------------------
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", false, nil
	}
	return entry.fileInfo, true, nil
}

// ------------------------------------------------------------------------------------------------------
func (s *MemoryStore) Set(_ context.Context, key, fileInfo string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		s.order = append(s.order, key)
	}
	s.entries[key] = memoryEntry{
		fileInfo:  fileInfo,
		expiresAt: s.now().Add(ttl),
	}
	s.trimToMaxEntries()
	return nil
}

// ------------------------------------------------------------------------------------------------------
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ------------------------------------------------------------------------------------------------------
// trimToMaxEntries drops expired entries first, then the oldest ones
func (s *MemoryStore) trimToMaxEntries() {
	if s.maxEntries <= 0 || len(s.entries) <= s.maxEntries {
		return
	}

	now := s.now()
	kept := s.order[:0]
	for _, key := range s.order {
		if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
			kept = append(kept, key)
			continue
		}
		delete(s.entries, key)
	}
	s.order = kept

	if excess := len(s.order) - s.maxEntries; excess > 0 {
		for _, key := range s.order[:excess] {
			delete(s.entries, key)
		}
		s.order = append(s.order[:0:0], s.order[excess:]...)
	}
}

// ------------------------------------------------------------------------------------------------------
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]memoryEntry)
	s.order = make([]string, 0)
	return nil
}
