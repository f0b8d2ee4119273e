package app

import (
	"context"
	"time"

	"clinical-quiz-service/internal/domain"
	"go.uber.org/zap"
)

// CatalogRepository lists institutions and cases from the backing store.
type CatalogRepository interface {
	ListInstitutions(ctx context.Context) ([]domain.Institution, error)
	// ListCases returns every case when institutionID is empty.
	ListCases(ctx context.Context, institutionID string) ([]domain.ClinicalCase, error)
}

// MediaResolver turns a stored media reference into a URL a browser can fetch.
type MediaResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// CaseSummary is a case list row.
type CaseSummary struct {
	ID              string            `json:"id"`
	Code            string            `json:"code"`
	Title           string            `json:"title"`
	Specialty       string            `json:"specialty"`
	Discipline      string            `json:"discipline"`
	Difficulty      domain.Difficulty `json:"difficulty,omitempty"`
	ChiefComplaint  string            `json:"chiefComplaint"`
	InstitutionID   string            `json:"institutionId,omitempty"`
	InstitutionName string            `json:"institutionName,omitempty"`
	QuestionCount   int               `json:"questionCount"`
}

// CaseView is a case detail without the answer key.
type CaseView struct {
	CaseSummary
	ClinicalHistory string         `json:"clinicalHistory"`
	ClinicalExam    string         `json:"clinicalExam,omitempty"`
	LabResults      string         `json:"labResults,omitempty"`
	AudioURL        string         `json:"audioUrl,omitempty"`
	ImageURLs       []string       `json:"imageUrls,omitempty"`
	Questions       []QuestionView `json:"questions"`
	CreatedAt       time.Time      `json:"createdAt"`
}

// CatalogService serves the case selection screens.
type CatalogService struct {
	catalog CatalogRepository
	cases   CaseRepository
	media   MediaResolver
	log     *zap.Logger
}

func NewCatalogService(catalog CatalogRepository, cases CaseRepository, media MediaResolver, log *zap.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, cases: cases, media: media, log: log}
}

func (s *CatalogService) ListInstitutions(ctx context.Context) ([]domain.Institution, error) {
	return s.catalog.ListInstitutions(ctx)
}

func (s *CatalogService) ListCases(ctx context.Context, institutionID string) ([]CaseSummary, error) {
	cases, err := s.catalog.ListCases(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	out := make([]CaseSummary, 0, len(cases))
	for _, c := range cases {
		out = append(out, summarize(c))
	}
	return out, nil
}

// GetCase returns the case detail with media references resolved.
// Unresolvable media is logged and omitted.
func (s *CatalogService) GetCase(ctx context.Context, caseID string) (CaseView, error) {
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return CaseView{}, err
	}

	view := CaseView{
		CaseSummary:     summarize(c),
		ClinicalHistory: c.ClinicalHistory,
		ClinicalExam:    c.ClinicalExam,
		LabResults:      c.LabResults,
		Questions:       make([]QuestionView, 0, len(c.Questions)),
		CreatedAt:       c.CreatedAt,
	}
	for _, q := range c.Questions {
		view.Questions = append(view.Questions, QuestionView{ID: q.ID, Text: q.Text, Options: q.Options})
	}

	if c.AudioRef != "" {
		view.AudioURL = s.resolve(ctx, c.ID, c.AudioRef)
	}
	for _, ref := range c.ImageRefs {
		if u := s.resolve(ctx, c.ID, ref); u != "" {
			view.ImageURLs = append(view.ImageURLs, u)
		}
	}
	return view, nil
}

func (s *CatalogService) resolve(ctx context.Context, caseID, ref string) string {
	if s.media == nil {
		return ref
	}
	u, err := s.media.Resolve(ctx, ref)
	if err != nil {
		s.log.Warn("resolving case media failed", zap.String("caseId", caseID), zap.String("ref", ref), zap.Error(err))
		return ""
	}
	return u
}

func summarize(c domain.ClinicalCase) CaseSummary {
	return CaseSummary{
		ID:              c.ID,
		Code:            c.Code,
		Title:           c.Title,
		Specialty:       c.Specialty,
		Discipline:      c.Discipline,
		Difficulty:      c.Difficulty,
		ChiefComplaint:  c.ChiefComplaint,
		InstitutionID:   c.InstitutionID,
		InstitutionName: c.InstitutionName,
		QuestionCount:   len(c.Questions),
	}
}
