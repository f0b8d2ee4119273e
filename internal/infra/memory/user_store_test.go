package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/domain"
)

func TestUserStoreRejectsDuplicateEmail(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	account := auth.Account{User: domain.User{ID: "u1", Email: "ana@example.com"}}

	if err := store.CreateUser(ctx, account); err != nil {
		t.Fatalf("create: %v", err)
	}
	account.ID = "u2"
	if err := store.CreateUser(ctx, account); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestUserStoreResetTokenIsSingleUse(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	_ = store.SaveResetToken(ctx, auth.ResetToken{TokenHash: "h1", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	userID, err := store.ConsumeResetToken(ctx, "h1", now)
	if err != nil || userID != "u1" {
		t.Fatalf("expected u1, got %q (%v)", userID, err)
	}
	if _, err := store.ConsumeResetToken(ctx, "h1", now); err == nil {
		t.Fatalf("expected second use to fail")
	}

	_ = store.SaveResetToken(ctx, auth.ResetToken{TokenHash: "h2", UserID: "u1", ExpiresAt: now.Add(-time.Minute)})
	if _, err := store.ConsumeResetToken(ctx, "h2", now); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestRevocationStore(t *testing.T) {
	store := NewRevocationStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	_ = store.Revoke(ctx, "jti-1", now.Add(time.Hour))
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatalf("expected token revoked")
	}
	if revoked, _ := store.IsRevoked(ctx, "jti-2"); revoked {
		t.Fatalf("expected unknown token not revoked")
	}
	now = now.Add(2 * time.Hour)
	if revoked, _ := store.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("expected revocation to lapse after expiry")
	}
}
