package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager opens Stores for session ids against a Backend.
type Manager struct {
	backend  Backend
	log      zerolog.Logger
	observer ErrorObserver
}

// NewManager returns a Manager. observer may be nil.
func NewManager(backend Backend, log zerolog.Logger, observer ErrorObserver) *Manager {
	return &Manager{backend: backend, log: log, observer: observer}
}

// Open loads the Store for id. An empty or malformed id, or one with
// nothing stored under it, starts a brand-new session with a server-minted
// id.
func (m *Manager) Open(ctx context.Context, id string) (store *Store, isNew bool) {
	if id != "" && uuid.Validate(id) == nil {
		store = Open(ctx, id, m.backend.Scope(id), m.options()...)
		if !store.empty() {
			return store, false
		}
	}
	return m.fresh(), true
}

// Rotate moves the session held by store to a new id and deletes the keys
// under the old one. Callers must use the returned Store from then on.
func (m *Manager) Rotate(ctx context.Context, store *Store) *Store {
	next := m.fresh()
	next.adopt(ctx, store)
	store.Logout(ctx)
	return next
}

func (m *Manager) fresh() *Store {
	id := NewID()
	return newStore(id, m.backend.Scope(id), m.options()...)
}

func (m *Manager) options() []Option {
	return []Option{WithLogger(m.log), WithErrorObserver(m.observer)}
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}
