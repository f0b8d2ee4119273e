package redis

import (
	"context"
	"sync"
	"time"

	"clinical-quiz-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Session state stays in a local map; answers are mutated in process.
//   - Redis holds a liveness key per session whose TTL is refreshed on every
//     access, so idle sessions expire and every instance can see which
//     sessions are alive.
//   - Put drops local sessions whose liveness key is gone, at most once per ttl.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	sessions  map[string]*app.Session
	lastSweep time.Time
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.sweep(context.Background())

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(session.ID()), session.UserID(), s.ttl).Err()
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	alive, err := s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Result()
	if err == nil && !alive {
		// liveness key expired: the session idled out
		s.Delete(sessionID)
		return nil, false
	}
	return session, true
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

// Len reports the number of locally tracked sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) sweep(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	s.mu.Lock()
	if now.Sub(s.lastSweep) < s.ttl || len(s.sessions) == 0 {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	pipe := s.client.Pipeline()
	checks := make(map[string]*redis.IntCmd, len(ids))
	for _, id := range ids {
		checks[id] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// redis unreachable: keep everything, Get decides later
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, cmd := range checks {
		if cmd.Val() == 0 {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
