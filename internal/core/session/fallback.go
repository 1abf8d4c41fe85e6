package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FallbackBackend writes through to a primary backend and mirrors every
// write into a secondary one. Reads prefer the primary and use the
// secondary only when the primary fails, so a session keeps working in
// memory while the durable store is unreachable.
//
// A key whose primary write or delete failed is marked stale. Until the
// primary accepts the pending change, reads of that key are served from the
// secondary and each read retries the change on the primary, so a logout
// made during an outage stays in effect when the primary comes back.
type FallbackBackend struct {
	primary   Backend
	secondary Backend
	ttl       time.Duration
	now       func() time.Time

	mu    sync.Mutex
	stale map[string]map[string]time.Time // session id -> key -> marked at
}

// NewFallbackBackend combines primary and secondary. Stale marks are
// forgotten after ttl, which should match the primary's own expiry; a zero
// ttl keeps them until repaired.
func NewFallbackBackend(primary, secondary Backend, ttl time.Duration) *FallbackBackend {
	return &FallbackBackend{
		primary:   primary,
		secondary: secondary,
		ttl:       ttl,
		now:       time.Now,
		stale:     make(map[string]map[string]time.Time),
	}
}

// Scope returns storage for sessionID.
func (f *FallbackBackend) Scope(sessionID string) Storage {
	return &fallbackStorage{
		backend:   f,
		id:        sessionID,
		primary:   f.primary.Scope(sessionID),
		secondary: f.secondary.Scope(sessionID),
	}
}

// Stale is the number of keys whose primary copy is known to be out of date.
func (f *FallbackBackend) Stale() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, keys := range f.stale {
		n += len(keys)
	}
	return n
}

// Sweep forgets stale marks older than ttl and reports how many were
// dropped.
func (f *FallbackBackend) Sweep() int {
	if f.ttl <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := f.now().Add(-f.ttl)
	dropped := 0
	for id, keys := range f.stale {
		for k, at := range keys {
			if at.Before(cutoff) {
				delete(keys, k)
				dropped++
			}
		}
		if len(keys) == 0 {
			delete(f.stale, id)
		}
	}
	return dropped
}

func (f *FallbackBackend) mark(id string, keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.stale[id]
	if !ok {
		m = make(map[string]time.Time, len(keys))
		f.stale[id] = m
	}
	now := f.now()
	for _, k := range keys {
		m[k] = now
	}
}

func (f *FallbackBackend) clear(id string, keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.stale[id]
	if !ok {
		return
	}
	for _, k := range keys {
		delete(m, k)
	}
	if len(m) == 0 {
		delete(f.stale, id)
	}
}

func (f *FallbackBackend) isStale(id, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.stale[id][key]
	if !ok {
		return false
	}
	if f.ttl > 0 && at.Before(f.now().Add(-f.ttl)) {
		delete(f.stale[id], key)
		if len(f.stale[id]) == 0 {
			delete(f.stale, id)
		}
		return false
	}
	return true
}

type fallbackStorage struct {
	backend   *FallbackBackend
	id        string
	primary   Storage
	secondary Storage
}

func (f *fallbackStorage) Get(ctx context.Context, key string) (string, error) {
	if f.backend.isStale(f.id, key) {
		return f.repair(ctx, key)
	}

	v, err := f.primary.Get(ctx, key)
	if err == nil || errors.Is(err, ErrNotFound) {
		return v, err
	}
	if sv, serr := f.secondary.Get(ctx, key); serr == nil {
		return sv, nil
	}
	return "", err
}

// repair answers from the secondary and replays its state onto the primary.
func (f *fallbackStorage) repair(ctx context.Context, key string) (string, error) {
	v, err := f.secondary.Get(ctx, key)
	if err != nil {
		if f.primary.Delete(ctx, key) == nil {
			f.backend.clear(f.id, key)
		}
		return "", ErrNotFound
	}
	if f.primary.Set(ctx, key, v) == nil {
		f.backend.clear(f.id, key)
	}
	return v, nil
}

// Set reports the primary's error so the caller can observe degradation,
// but the secondary copy is always written.
func (f *fallbackStorage) Set(ctx context.Context, key, value string) error {
	_ = f.secondary.Set(ctx, key, value)
	if err := f.primary.Set(ctx, key, value); err != nil {
		f.backend.mark(f.id, key)
		return err
	}
	f.backend.clear(f.id, key)
	return nil
}

func (f *fallbackStorage) Delete(ctx context.Context, keys ...string) error {
	_ = f.secondary.Delete(ctx, keys...)
	if err := f.primary.Delete(ctx, keys...); err != nil {
		f.backend.mark(f.id, keys...)
		return err
	}
	f.backend.clear(f.id, keys...)
	return nil
}
