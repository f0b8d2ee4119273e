package memory

import (
	"context"
	"testing"
	"time"

	"clinical-quiz-service/internal/domain"
)

func TestAttemptStoreListsNewestFirstWithCaseDetails(t *testing.T) {
	store := NewAttemptStore(NewStaticCatalog(nil, []domain.ClinicalCase{sampleCase()}))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	answers := domain.AnswerMap{1: 0, 2: 1}
	_ = store.SaveAttempt(ctx, domain.Attempt{ID: "a1", UserID: "u1", CaseID: "case-1", Answers: answers, Score: 50, CompletedAt: base})
	_ = store.SaveAttempt(ctx, domain.Attempt{ID: "a2", UserID: "u1", CaseID: "case-1", Score: 100, CompletedAt: base.Add(time.Hour)})
	_ = store.SaveAttempt(ctx, domain.Attempt{ID: "a3", UserID: "u2", CaseID: "case-1", Score: 0, CompletedAt: base})
	answers[1] = 2

	records, err := store.ListAttempts(ctx, "u1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 attempts for u1, got %d", len(records))
	}
	if records[0].ID != "a2" {
		t.Fatalf("expected newest first, got %s", records[0].ID)
	}
	if records[1].CaseTitle != "Chest pain in the ER" || records[1].CaseDiscipline != "Cardiology" {
		t.Fatalf("expected case details joined, got %+v", records[1])
	}
	if records[1].Answers[1] != 0 {
		t.Fatalf("stored answers must not alias caller map")
	}
}
