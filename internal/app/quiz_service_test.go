package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/domain"
	"clinical-quiz-service/internal/infra/memory"
	"go.uber.org/zap"
)

type failingAttempts struct{}

func (failingAttempts) SaveAttempt(context.Context, domain.Attempt) error {
	return &domain.StorageError{Op: "save attempt", Err: errors.New("connection refused")}
}

type countingMetrics struct {
	started, passed, failed, saveFailed int
}

func (m *countingMetrics) SessionStarted() { m.started++ }
func (m *countingMetrics) AttemptFinished(passed bool) {
	if passed {
		m.passed++
	} else {
		m.failed++
	}
}
func (m *countingMetrics) AttemptSaveFailed() { m.saveFailed++ }

func TestFinishRecordsAttempt(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore(nil)
	m := &countingMetrics{}
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	service := newTestService(attempts, app.WithMetrics(m), app.WithClock(func() time.Time { return now }))

	state, err := service.Start(ctx, "u1", "case-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for id, idx := range map[int]int{1: 0, 2: 1, 3: 0} {
		if _, err := service.SelectAnswer(ctx, state.SessionID, "u1", id, idx); err != nil {
			t.Fatalf("select %d: %v", id, err)
		}
	}

	outcome, err := service.Finish(ctx, state.SessionID, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !outcome.Saved || outcome.Result.CorrectCount != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	history, _ := attempts.ListAttempts(ctx, "u1")
	if len(history) != 1 {
		t.Fatalf("expected 1 stored attempt, got %d", len(history))
	}
	a := history[0]
	if a.CaseID != "case-1" || a.Score != outcome.Result.Percentage || !a.CompletedAt.Equal(now) {
		t.Fatalf("unexpected stored attempt: %+v", a)
	}
	if len(a.Answers) != 3 || a.Answers[3] != 0 {
		t.Fatalf("stored answers mismatch: %v", a.Answers)
	}
	if m.started != 1 || m.failed != 1 || m.saveFailed != 0 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestFinishSurvivesStorageFailure(t *testing.T) {
	ctx := context.Background()
	m := &countingMetrics{}
	service := newTestService(failingAttempts{}, app.WithMetrics(m))

	state, _ := service.Start(ctx, "u1", "case-1")
	for id, idx := range map[int]int{1: 0, 2: 1, 3: 1} {
		_, _ = service.SelectAnswer(ctx, state.SessionID, "u1", id, idx)
	}

	outcome, err := service.Finish(ctx, state.SessionID, "u1")
	if err != nil {
		t.Fatalf("storage failure must not fail finish: %v", err)
	}
	if outcome.Saved {
		t.Fatalf("expected Saved=false")
	}
	if !outcome.Result.Passed || outcome.Result.Percentage != 100 {
		t.Fatalf("result must still be shown: %+v", outcome.Result)
	}
	if m.saveFailed != 1 {
		t.Fatalf("expected save failure metric")
	}
}

func TestSecondFinishReplaysFirstOutcome(t *testing.T) {
	ctx := context.Background()
	attempts := memory.NewAttemptStore(nil)
	service := newTestService(attempts)

	state, _ := service.Start(ctx, "u1", "case-1")
	for id, idx := range map[int]int{1: 0, 2: 1, 3: 1} {
		_, _ = service.SelectAnswer(ctx, state.SessionID, "u1", id, idx)
	}
	first, err := service.Finish(ctx, state.SessionID, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	again, err := service.Finish(ctx, state.SessionID, "u1")
	if !errors.Is(err, domain.ErrQuizFinished) {
		t.Fatalf("expected ErrQuizFinished, got %v", err)
	}
	if !again.Saved || again.Attempt.ID != first.Attempt.ID || again.Result.Percentage != first.Result.Percentage {
		t.Fatalf("expected first outcome replayed, got %+v", again)
	}
	history, _ := attempts.ListAttempts(ctx, "u1")
	if len(history) != 1 {
		t.Fatalf("expected a single stored attempt, got %d", len(history))
	}
}

func TestFinishIncompleteKeepsSessionOpen(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewAttemptStore(nil))

	state, _ := service.Start(ctx, "u1", "case-1")
	_, _ = service.SelectAnswer(ctx, state.SessionID, "u1", 1, 0)

	_, err := service.Finish(ctx, state.SessionID, "u1")
	if !errors.Is(err, domain.ErrIncompleteQuiz) {
		t.Fatalf("expected ErrIncompleteQuiz, got %v", err)
	}
	if _, err := service.SelectAnswer(ctx, state.SessionID, "u1", 2, 1); err != nil {
		t.Fatalf("session must stay editable: %v", err)
	}
}

func TestStartErrors(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewAttemptStore(nil))

	if _, err := service.Start(ctx, "u1", "missing"); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}
	if _, err := service.Start(ctx, "u1", "case-empty"); !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected ErrNoQuestionsAvailable, got %v", err)
	}
}

func TestSessionsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	service := newTestService(memory.NewAttemptStore(nil))

	state, _ := service.Start(ctx, "u1", "case-1")
	if _, err := service.State(ctx, state.SessionID, "u2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound for other user, got %v", err)
	}
	if err := service.Abandon(ctx, state.SessionID, "u1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if _, err := service.Next(ctx, state.SessionID, "u1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected abandoned session to be gone, got %v", err)
	}
}

func newTestService(attempts app.AttemptRepository, opts ...app.QuizOption) *app.QuizService {
	catalog := memory.NewStaticCatalog(nil, []domain.ClinicalCase{
		{ID: "case-1", Code: "CARD-001", Title: "Chest pain", Questions: threeQuestions()},
		{ID: "case-empty", Code: "GEN-000", Title: "Draft"},
	})
	return app.NewQuizService(
		memory.NewSessionStore(time.Hour),
		memory.NewCaseRepository(catalog, time.Minute),
		attempts,
		zap.NewNop(),
		opts...,
	)
}
