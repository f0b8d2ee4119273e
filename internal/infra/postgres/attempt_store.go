package postgres

import (
	"context"
	"time"

	"clinical-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type attemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:qa"`

	ID          string           `bun:"id,pk"`
	UserID      string           `bun:"user_id,notnull"`
	CaseID      string           `bun:"case_id,notnull"`
	Answers     domain.AnswerMap `bun:"answers,type:jsonb,notnull"`
	Score       float64          `bun:"score,notnull"`
	CompletedAt time.Time        `bun:"completed_at,notnull"`
}

type attemptRecordRow struct {
	attemptRow `bun:",extend"`

	CaseTitle      string `bun:"case_title"`
	CaseDiscipline string `bun:"case_discipline"`
}

// AttemptStore persists finished attempts in quiz_attempts.
type AttemptStore struct {
	db *bun.DB
}

func NewAttemptStore(db *bun.DB) *AttemptStore {
	return &AttemptStore{db: db}
}

func (s *AttemptStore) SaveAttempt(ctx context.Context, attempt domain.Attempt) error {
	row := attemptRow{
		ID:          attempt.ID,
		UserID:      attempt.UserID,
		CaseID:      attempt.CaseID,
		Answers:     attempt.Answers,
		Score:       attempt.Score,
		CompletedAt: attempt.CompletedAt,
	}
	if row.Answers == nil {
		row.Answers = domain.AnswerMap{}
	}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return &domain.StorageError{Op: "save attempt", Err: err}
	}
	return nil
}

// ListAttempts returns the user's attempts newest first, joined with the case title.
func (s *AttemptStore) ListAttempts(ctx context.Context, userID string) ([]domain.AttemptRecord, error) {
	var rows []attemptRecordRow
	err := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("qa.*").
		ColumnExpr("COALESCE(c.title, '') AS case_title").
		ColumnExpr("COALESCE(c.discipline, '') AS case_discipline").
		Join("LEFT JOIN clinical_cases AS c ON c.id = qa.case_id").
		Where("qa.user_id = ?", userID).
		OrderExpr("qa.completed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, &domain.StorageError{Op: "list attempts", Err: err}
	}

	out := make([]domain.AttemptRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.AttemptRecord{
			Attempt: domain.Attempt{
				ID:          r.ID,
				UserID:      r.UserID,
				CaseID:      r.CaseID,
				Answers:     r.Answers,
				Score:       r.Score,
				CompletedAt: r.CompletedAt,
			},
			CaseTitle:      r.CaseTitle,
			CaseDiscipline: r.CaseDiscipline,
		})
	}
	return out, nil
}
