package memory

import (
	"testing"
	"fmt"
	"time"

	"clinical-quiz-service/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)

	session, err := app.NewSession("s-1", "u1", sampleCase())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Put(session)
	if got, ok := store.Get("s-1"); !ok || got != session {
		t.Fatalf("expected session present")
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestSessionStoreDropsIdleSessions(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	session, _ := app.NewSession("s-1", "u1", sampleCase())
	store.Put(session)

	now = now.Add(30 * time.Second)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session within idle window")
	}
	now = now.Add(2 * time.Minute)
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected idle session to be dropped")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestSessionStorePutSweepsAbandonedSessions(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		session, err := app.NewSession(fmt.Sprintf("s-%d", i), "u1", sampleCase())
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		store.Put(session)
	}
	if store.Len() != 1000 {
		t.Fatalf("expected 1000 sessions, got %d", store.Len())
	}

	now = now.Add(24 * time.Hour)
	fresh, _ := app.NewSession("fresh", "u2", sampleCase())
	store.Put(fresh)
	if store.Len() != 1 {
		t.Fatalf("expected idle sessions swept, %d still tracked", store.Len())
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatalf("expected fresh session kept")
	}
}

func TestSessionStoreSweepKeepsActiveSessions(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	stale, _ := app.NewSession("stale", "u1", sampleCase())
	active, _ := app.NewSession("active", "u1", sampleCase())
	store.Put(stale)
	store.Put(active)

	now = now.Add(50 * time.Second)
	store.Get("active")
	now = now.Add(50 * time.Second)
	next, _ := app.NewSession("next", "u1", sampleCase())
	store.Put(next)

	if store.Len() != 2 {
		t.Fatalf("expected stale session swept only, got %d", store.Len())
	}
	if _, ok := store.Get("active"); !ok {
		t.Fatalf("expected active session kept")
	}
}
