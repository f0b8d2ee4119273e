package redis

import (
	"fmt"
	"testing"
	"time"

	"clinical-quiz-service/internal/app"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session, err := app.NewSession("s-1", "u1", sampleCase())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	store.Put(session)
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("quiz:session:s-1"); got != "u1" {
		t.Fatalf("expected owner stored, got %q", got)
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestSessionStoreExpiresIdleSessions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	session, _ := app.NewSession("s-1", "u1", sampleCase())
	store.Put(session)

	mr.FastForward(30 * time.Second)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected live session")
	}
	// access refreshed the ttl
	mr.FastForward(45 * time.Second)
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected ttl refreshed by access")
	}
	mr.FastForward(2 * time.Minute)
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected idle session expired")
	}
}

func TestSessionStorePutSweepsExpiredSessions(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		session, err := app.NewSession(fmt.Sprintf("s-%d", i), "u1", sampleCase())
		if err != nil {
			t.Fatalf("new session: %v", err)
		}
		store.Put(session)
	}
	if store.Len() != 50 {
		t.Fatalf("expected 50 sessions, got %d", store.Len())
	}

	mr.FastForward(2 * time.Minute)
	now = now.Add(2 * time.Minute)
	fresh, _ := app.NewSession("fresh", "u2", sampleCase())
	store.Put(fresh)

	if store.Len() != 1 {
		t.Fatalf("expected expired sessions dropped locally, %d still tracked", store.Len())
	}
	if _, ok := store.Get("fresh"); !ok {
		t.Fatalf("expected fresh session kept")
	}
}
