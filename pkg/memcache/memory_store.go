package mem

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrEmptyKey = errors.New("memcache: empty key")

// Store is a byte-level key/value store with per-key expiry.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns found=false for missing or expired keys.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	Delete(ctx context.Context, key string) error
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// DefaultSweepInterval bounds how long expired entries that are never read
// again stay in memory.
const DefaultSweepInterval = time.Minute

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time

	sweepEvery time.Duration
	lastSweep  time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:       make(map[string]entry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
		lastSweep:  time.Now(),
	}
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// entries written once and never read again only leave through a sweep
	if now.Sub(s.lastSweep) >= s.sweepEvery {
		s.sweepLocked(now)
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	s.data[key] = entry{
		value:     cp,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		// re-check, a concurrent Set may have refreshed it
		if cur, ok := s.data[key]; ok && !s.now().Before(cur.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Sweep drops every expired entry and reports how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	s.lastSweep = now
	removed := 0
	for k, e := range s.data {
		if !now.Before(e.expiresAt) {
			delete(s.data, k)
			removed++
		}
	}
	return removed
}
