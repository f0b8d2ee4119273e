package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"clinical-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const caseSelect = `
SELECT c.id, c.code, c.title,
       COALESCE(c.specialty, ''), c.discipline, COALESCE(c.difficulty, ''),
       COALESCE(c.chief_complaint, ''), COALESCE(c.clinical_history, ''),
       COALESCE(c.clinical_exam, ''), COALESCE(c.lab_results, ''),
       COALESCE(c.correct_diagnosis, ''), COALESCE(c.explanation, ''),
       COALESCE(c.audio_url, ''), COALESCE(c.images, '[]'::jsonb),
       COALESCE(c.institution_id, ''), COALESCE(i.name, ''),
       COALESCE(c.questions, '[]'::jsonb), c.created_at
FROM clinical_cases c
LEFT JOIN institutions i ON i.id = c.institution_id`

// CatalogLoader reads institutions and cases from Postgres. Questions and
// image references are stored as JSONB.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCase(ctx context.Context, caseID string) (domain.ClinicalCase, error) {
	row := l.pool.QueryRow(ctx, caseSelect+` WHERE c.id = $1`, caseID)
	c, err := scanCase(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ClinicalCase{}, domain.ErrCaseNotFound
	}
	if err != nil {
		return domain.ClinicalCase{}, &domain.StorageError{Op: "load case", Err: err}
	}
	return c, nil
}

func (l *CatalogLoader) ListCases(ctx context.Context, institutionID string) ([]domain.ClinicalCase, error) {
	query := caseSelect + ` ORDER BY c.code`
	args := []interface{}{}
	if institutionID != "" {
		query = caseSelect + ` WHERE c.institution_id = $1 ORDER BY c.code`
		args = append(args, institutionID)
	}

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageError{Op: "list cases", Err: err}
	}
	defer rows.Close()

	var cases []domain.ClinicalCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, &domain.StorageError{Op: "list cases", Err: err}
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list cases", Err: err}
	}
	return cases, nil
}

func (l *CatalogLoader) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, created_at FROM institutions ORDER BY name`)
	if err != nil {
		return nil, &domain.StorageError{Op: "list institutions", Err: err}
	}
	defer rows.Close()

	var out []domain.Institution
	for rows.Next() {
		var inst domain.Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.CreatedAt); err != nil {
			return nil, &domain.StorageError{Op: "list institutions", Err: err}
		}
		out = append(out, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageError{Op: "list institutions", Err: err}
	}
	return out, nil
}

func scanCase(row pgx.Row) (domain.ClinicalCase, error) {
	var (
		c          domain.ClinicalCase
		difficulty string
		images     []byte
		questions  []byte
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Title,
		&c.Specialty, &c.Discipline, &difficulty,
		&c.ChiefComplaint, &c.ClinicalHistory,
		&c.ClinicalExam, &c.LabResults,
		&c.CorrectDiagnosis, &c.Explanation,
		&c.AudioRef, &images,
		&c.InstitutionID, &c.InstitutionName,
		&questions, &c.CreatedAt,
	)
	if err != nil {
		return domain.ClinicalCase{}, err
	}

	if d, err := domain.ParseDifficulty(difficulty); err == nil {
		c.Difficulty = d
	} else {
		c.Difficulty = domain.Difficulty(difficulty)
	}
	if err := json.Unmarshal(images, &c.ImageRefs); err != nil {
		return domain.ClinicalCase{}, fmt.Errorf("unmarshal images of case %s: %w", c.ID, err)
	}
	if err := json.Unmarshal(questions, &c.Questions); err != nil {
		return domain.ClinicalCase{}, fmt.Errorf("unmarshal questions of case %s: %w", c.ID, err)
	}
	return c, nil
}
