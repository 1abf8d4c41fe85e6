// Package session keeps the authenticated identity and credentials of one
// browser session. A Store is opened per request from durable storage and
// passed explicitly to whatever needs it; there is no package-level state.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/futurefundi/portal/internal/core/domain"
)

// Snapshot is a consistent copy of a session. Empty strings and a nil User
// mean "absent".
type Snapshot struct {
	AccessToken     string
	RefreshToken    string
	User            *domain.User
	IsAuthenticated bool
}

// Authenticator is the mutator/query surface handlers depend on.
type Authenticator interface {
	Login(ctx context.Context, accessToken, refreshToken string, user domain.User)
	Logout(ctx context.Context)
	SetUser(ctx context.Context, user domain.User)
	IsAuthenticated() bool
}

// state is replaced wholesale on every mutation.
type state struct {
	accessToken    string
	refreshToken   string
	user           *domain.User
	selectedSchool string
}

// Store is the session of one browser. Storage failures are logged and
// reported to the observer but never returned: the in-memory state always
// reflects the last mutation.
type Store struct {
	id       string
	storage  Storage
	log      zerolog.Logger
	observer ErrorObserver

	mu sync.RWMutex
	st state
}

var _ Authenticator = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger for swallowed storage errors.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithErrorObserver registers a callback for swallowed storage errors.
func WithErrorObserver(fn ErrorObserver) Option {
	return func(s *Store) { s.observer = fn }
}

// Open builds a Store for id, reading whatever durable storage already
// holds. It never fails: unreadable storage yields an empty session.
func Open(ctx context.Context, id string, storage Storage, opts ...Option) *Store {
	s := newStore(id, storage, opts...)
	s.st = s.load(ctx)
	return s
}

func newStore(id string, storage Storage, opts ...Option) *Store {
	s := &Store{id: id, storage: storage, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load(ctx context.Context) state {
	var st state
	st.accessToken = s.read(ctx, KeyAccessToken)
	st.refreshToken = s.read(ctx, KeyRefreshToken)
	st.selectedSchool = s.read(ctx, KeySelectedSchool)

	if raw := s.read(ctx, KeyUser); raw != "" {
		var u domain.User
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			s.fail("decode_user", err)
		} else {
			st.user = &u
		}
	}
	return st
}

func (s *Store) read(ctx context.Context, key string) string {
	v, err := s.storage.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.fail("get", err)
		}
		return ""
	}
	return v
}

// ID is the session identifier the store is scoped to.
func (s *Store) ID() string { return s.id }

// Login records a freshly obtained credential pair and identity. Tokens are
// not validated here. A school selection survives only when the same user
// signs in again.
func (s *Store) Login(ctx context.Context, accessToken, refreshToken string, user domain.User) {
	s.mu.RLock()
	prev := s.st
	s.mu.RUnlock()

	school := prev.selectedSchool
	if prev.user == nil || prev.user.ID != user.ID {
		school = ""
	}

	s.write(ctx, KeyAccessToken, accessToken)
	s.write(ctx, KeyRefreshToken, refreshToken)
	s.writeUser(ctx, user)
	if school == "" && prev.selectedSchool != "" {
		s.write(ctx, KeySelectedSchool, "")
	}

	u := user
	s.mu.Lock()
	s.st = state{
		accessToken:    accessToken,
		refreshToken:   refreshToken,
		user:           &u,
		selectedSchool: school,
	}
	s.mu.Unlock()
}

// Logout forgets the credentials and identity. Calling it on an empty
// session is a no-op.
func (s *Store) Logout(ctx context.Context) {
	if err := s.storage.Delete(ctx, Keys()...); err != nil {
		s.fail("delete", err)
	}

	s.mu.Lock()
	s.st = state{}
	s.mu.Unlock()
}

// SetUser replaces the identity snapshot, leaving tokens untouched.
func (s *Store) SetUser(ctx context.Context, user domain.User) {
	s.writeUser(ctx, user)

	u := user
	s.mu.Lock()
	next := s.st
	next.user = &u
	s.st = next
	s.mu.Unlock()
}

// SelectSchool records which of a teacher's schools is active.
func (s *Store) SelectSchool(ctx context.Context, schoolID string) {
	s.write(ctx, KeySelectedSchool, schoolID)

	s.mu.Lock()
	next := s.st
	next.selectedSchool = schoolID
	s.st = next
	s.mu.Unlock()
}

// IsAuthenticated reports whether an access token is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.accessToken != ""
}

// SelectedSchool is the teacher's active school, if any.
func (s *Store) SelectedSchool() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.selectedSchool
}

// Snapshot returns a copy of the session safe to hold after the lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	st := s.st
	s.mu.RUnlock()

	snap := Snapshot{
		AccessToken:     st.accessToken,
		RefreshToken:    st.refreshToken,
		IsAuthenticated: st.accessToken != "",
	}
	if st.user != nil {
		u := *st.user
		snap.User = &u
	}
	return snap
}

func (s *Store) empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st == (state{})
}

// adopt copies from's state into s and persists it under s's id.
func (s *Store) adopt(ctx context.Context, from *Store) {
	from.mu.RLock()
	st := from.st
	from.mu.RUnlock()

	if st.accessToken != "" {
		s.write(ctx, KeyAccessToken, st.accessToken)
	}
	if st.refreshToken != "" {
		s.write(ctx, KeyRefreshToken, st.refreshToken)
	}
	if st.selectedSchool != "" {
		s.write(ctx, KeySelectedSchool, st.selectedSchool)
	}
	if st.user != nil {
		u := *st.user
		st.user = &u
		s.writeUser(ctx, u)
	}

	s.mu.Lock()
	s.st = st
	s.mu.Unlock()
}

func (s *Store) write(ctx context.Context, key, value string) {
	var err error
	if value == "" {
		err = s.storage.Delete(ctx, key)
	} else {
		err = s.storage.Set(ctx, key, value)
	}
	if err != nil {
		s.fail("set", err)
	}
}

func (s *Store) writeUser(ctx context.Context, user domain.User) {
	data, err := json.Marshal(user)
	if err != nil {
		s.fail("encode_user", err)
		return
	}
	s.write(ctx, KeyUser, string(data))
}

func (s *Store) fail(op string, err error) {
	s.log.Warn().Err(err).Str("session_id", s.id).Str("op", op).Msg("session storage degraded")
	if s.observer != nil {
		s.observer(op, err)
	}
}
