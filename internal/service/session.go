package service

import (
	"context"
	"sync"
	"time"

	"carmatch/internal/model"
)

// SessionStore keeps conversation state between turns. Load returns
// (nil, nil) for an unknown or expired session. Concurrent saves for the
// same session are last-write-wins.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*model.Preferences, error)
	Save(ctx context.Context, sessionID string, prefs *model.Preferences) error
	Clear(ctx context.Context, sessionID string) error
}

// TurnLogger records processed turns. Implementations must not block the
// caller for long.
type TurnLogger interface {
	LogTurn(ctx context.Context, turn model.TurnLog)
}

type memorySession struct {
	prefs   *model.Preferences
	touched time.Time
}

// MemorySessionStore is a process-local SessionStore. Stored state is deep
// copied in both directions so callers never share a Preferences value.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore creates a store whose sessions expire after ttl of
// inactivity. A zero ttl never expires.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Load(_ context.Context, sessionID string) (*model.Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if s.expired(sess) {
		delete(s.sessions, sessionID)
		return nil, nil
	}
	return sess.prefs.Clone(), nil
}

func (s *MemorySessionStore) Save(_ context.Context, sessionID string, prefs *model.Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = memorySession{prefs: prefs.Clone(), touched: s.now()}
	s.sweep()
	return nil
}

func (s *MemorySessionStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, sessionID)
	return nil
}

// Len returns the number of live sessions.
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemorySessionStore) expired(sess memorySession) bool {
	return s.ttl > 0 && s.now().Sub(sess.touched) > s.ttl
}

// sweep drops expired sessions. Caller holds mu.
func (s *MemorySessionStore) sweep() {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
		}
	}
}
