package session

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps session values in process memory. Entries expire
// after ttl of inactivity; a zero ttl keeps them forever.
type MemoryBackend struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	values  map[string]string
	touched time.Time
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	return &MemoryBackend{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memorySession),
	}
}

// Scope returns storage for sessionID.
func (b *MemoryBackend) Scope(sessionID string) Storage {
	return &memoryStorage{backend: b, id: sessionID}
}

// Sweep drops expired sessions and reports how many were removed.
func (b *MemoryBackend) Sweep() int {
	if b.ttl <= 0 {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := b.now().Add(-b.ttl)
	removed := 0
	for id, s := range b.sessions {
		if s.touched.Before(cutoff) {
			delete(b.sessions, id)
			removed++
		}
	}
	return removed
}

// Len is the number of sessions currently held.
func (b *MemoryBackend) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// live returns the session for id, dropping it first if it expired.
func (b *MemoryBackend) live(id string) *memorySession {
	s, ok := b.sessions[id]
	if !ok {
		return nil
	}
	if b.ttl > 0 && s.touched.Before(b.now().Add(-b.ttl)) {
		delete(b.sessions, id)
		return nil
	}
	return s
}

type memoryStorage struct {
	backend *MemoryBackend
	id      string
}

func (m *memoryStorage) Get(_ context.Context, key string) (string, error) {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.live(m.id)
	if s == nil {
		return "", ErrNotFound
	}
	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memoryStorage) Set(_ context.Context, key, value string) error {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.live(m.id)
	if s == nil {
		s = &memorySession{values: make(map[string]string)}
		b.sessions[m.id] = s
	}
	s.values[key] = value
	s.touched = b.now()
	return nil
}

func (m *memoryStorage) Delete(_ context.Context, keys ...string) error {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.live(m.id)
	if s == nil {
		return nil
	}
	for _, k := range keys {
		delete(s.values, k)
	}
	if len(s.values) == 0 {
		delete(b.sessions, m.id)
	}
	return nil
}
