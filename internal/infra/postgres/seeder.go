package postgres

import (
	"context"
	"fmt"
	"time"

	"clinical-quiz-service/internal/domain"
	"clinical-quiz-service/internal/seed"
	"github.com/uptrace/bun"
)

type institutionRow struct {
	bun.BaseModel `bun:"table:institutions"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type caseRow struct {
	bun.BaseModel `bun:"table:clinical_cases"`

	ID               string            `bun:"id,pk"`
	Code             string            `bun:"code,notnull"`
	Title            string            `bun:"title,notnull"`
	Specialty        string            `bun:"specialty"`
	Discipline       string            `bun:"discipline,notnull"`
	Difficulty       string            `bun:"difficulty"`
	ChiefComplaint   string            `bun:"chief_complaint"`
	ClinicalHistory  string            `bun:"clinical_history"`
	ClinicalExam     string            `bun:"clinical_exam"`
	LabResults       string            `bun:"lab_results"`
	CorrectDiagnosis string            `bun:"correct_diagnosis"`
	Explanation      string            `bun:"explanation"`
	AudioURL         string            `bun:"audio_url"`
	Images           []string          `bun:"images,type:jsonb"`
	InstitutionID    *string           `bun:"institution_id"`
	Questions        []domain.Question `bun:"questions,type:jsonb"`
	CreatedAt        time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Seeder upserts a seed bundle; rows are matched by id.
type Seeder struct {
	db *bun.DB
}

func NewSeeder(db *bun.DB) *Seeder {
	return &Seeder{db: db}
}

func (s *Seeder) Seed(ctx context.Context, b seed.Bundle) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(b.Institutions) > 0 {
			rows := make([]institutionRow, 0, len(b.Institutions))
			for _, inst := range b.Institutions {
				rows = append(rows, institutionRow{ID: inst.ID, Name: inst.Name, CreatedAt: inst.CreatedAt})
			}
			_, err := tx.NewInsert().
				Model(&rows).
				On("CONFLICT (id) DO UPDATE").
				Set("name = EXCLUDED.name").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed institutions: %w", err)
			}
		}

		if len(b.Cases) == 0 {
			return nil
		}
		rows := make([]caseRow, 0, len(b.Cases))
		for _, c := range b.Cases {
			rows = append(rows, newCaseRow(c))
		}
		q := tx.NewInsert().Model(&rows).On("CONFLICT (id) DO UPDATE")
		for _, col := range []string{
			"code", "title", "specialty", "discipline", "difficulty",
			"chief_complaint", "clinical_history", "clinical_exam", "lab_results",
			"correct_diagnosis", "explanation", "audio_url", "images",
			"institution_id", "questions",
		} {
			q = q.Set(col + " = EXCLUDED." + col)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("seed cases: %w", err)
		}
		return nil
	})
}

func newCaseRow(c domain.ClinicalCase) caseRow {
	row := caseRow{
		ID:               c.ID,
		Code:             c.Code,
		Title:            c.Title,
		Specialty:        c.Specialty,
		Discipline:       c.Discipline,
		Difficulty:       string(c.Difficulty),
		ChiefComplaint:   c.ChiefComplaint,
		ClinicalHistory:  c.ClinicalHistory,
		ClinicalExam:     c.ClinicalExam,
		LabResults:       c.LabResults,
		CorrectDiagnosis: c.CorrectDiagnosis,
		Explanation:      c.Explanation,
		AudioURL:         c.AudioRef,
		Images:           c.ImageRefs,
		Questions:        c.Questions,
		CreatedAt:        c.CreatedAt,
	}
	if row.Images == nil {
		row.Images = []string{}
	}
	if c.InstitutionID != "" {
		id := c.InstitutionID
		row.InstitutionID = &id
	}
	return row
}
