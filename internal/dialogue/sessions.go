package dialogue

import (
	"context"
	"sync"

	"github.com/claude/setlog/internal/training"
)

// MemorySessionStore keeps drafts in process memory. Drafts are lost on restart.
type MemorySessionStore struct {
	mu     sync.RWMutex
	drafts map[string]training.Draft
}

// Compile-time check: *MemorySessionStore satisfies SessionStore.
var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{drafts: make(map[string]training.Draft)}
}

// Load returns a copy of the session's draft, or nil when there is none.
func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (*training.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.drafts[sessionID]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

// Save stores a copy of the draft.
func (s *MemorySessionStore) Save(_ context.Context, sessionID, _ string, d *training.Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[sessionID] = *d
	return nil
}

// Delete forgets the session's draft. Deleting a missing draft is a no-op.
func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.drafts, sessionID)
	return nil
}

// Len returns the number of open dialogues.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}

// sessionLocks serialises handling per session id. Entries are dropped once
// no caller holds or waits for them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// lock blocks until the session is free and returns its unlock func.
func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	sl, ok := l.locks[sessionID]
	if !ok {
		sl = &sessionLock{}
		l.locks[sessionID] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.locks, sessionID)
		}
		l.mu.Unlock()
	}
}
