package memory

import (
	"context"
	"sort"
	"sync"

	"clinical-quiz-service/internal/domain"
)

// AttemptStore keeps attempts in process; used when Postgres is not configured.
type AttemptStore struct {
	cases CaseLoader

	mu       sync.RWMutex
	attempts []domain.Attempt
}

// NewAttemptStore uses cases to join titles into history rows; it may be nil.
func NewAttemptStore(cases CaseLoader) *AttemptStore {
	return &AttemptStore{cases: cases}
}

func (s *AttemptStore) SaveAttempt(_ context.Context, attempt domain.Attempt) error {
	attempt.Answers = attempt.Answers.Clone()
	s.mu.Lock()
	s.attempts = append(s.attempts, attempt)
	s.mu.Unlock()
	return nil
}

func (s *AttemptStore) ListAttempts(ctx context.Context, userID string) ([]domain.AttemptRecord, error) {
	s.mu.RLock()
	var records []domain.AttemptRecord
	for _, a := range s.attempts {
		if a.UserID == userID {
			records = append(records, domain.AttemptRecord{Attempt: a})
		}
	}
	s.mu.RUnlock()

	for i := range records {
		if s.cases == nil {
			break
		}
		if c, err := s.cases.LoadCase(ctx, records[i].CaseID); err == nil {
			records[i].CaseTitle = c.Title
			records[i].CaseDiscipline = c.Discipline
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CompletedAt.After(records[j].CompletedAt)
	})
	return records, nil
}
