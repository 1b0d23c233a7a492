package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local QuotaStore. It is correct for a single
// instance and for tests; multi-instance deployments need the SQL or Redis
// stores.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*QuotaEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory quota store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*QuotaEntry), now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*QuotaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !e.Live(s.now()) {
		return nil, nil
	}
	out := *e
	return &out, nil
}

func (s *MemoryStore) UpsertIncrement(_ context.Context, key string, now time.Time, window time.Duration) (*QuotaEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.ExpiresAt) {
		e = &QuotaEntry{
			Key:         key,
			Count:       0,
			WindowStart: now,
			ExpiresAt:   now.Add(window),
		}
		s.entries[key] = e
	}
	e.Count++

	out := *e
	return &out, nil
}

func (s *MemoryStore) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
