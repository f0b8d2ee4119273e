package memory

import (
	"sync"
	"time"

	"clinical-quiz-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions untouched for longer than idle are dropped on access, and Put
// sweeps all idle sessions at most once per idle period.
type SessionStore struct {
	idle  time.Duration
	clock func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*storedSession
	lastSweep time.Time
}

type storedSession struct {
	session *app.Session
	touched time.Time
}

func NewSessionStore(idle time.Duration) *SessionStore {
	return &SessionStore{
		idle:     idle,
		clock:    time.Now,
		sessions: make(map[string]*storedSession),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock()
	s.sweepLocked(now)
	s.sessions[session.ID()] = &storedSession{session: session, touched: now}
}

func (s *SessionStore) sweepLocked(now time.Time) {
	if s.idle <= 0 || now.Sub(s.lastSweep) < s.idle {
		return
	}
	s.lastSweep = now
	for id, entry := range s.sessions {
		if now.Sub(entry.touched) > s.idle {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	now := s.clock()
	if s.idle > 0 && now.Sub(entry.touched) > s.idle {
		delete(s.sessions, sessionID)
		return nil, false
	}
	entry.touched = now
	return entry.session, true
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports the number of tracked sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
