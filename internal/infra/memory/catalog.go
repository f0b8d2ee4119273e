package memory

import (
	"context"
	"sort"
	"strings"

	"clinical-quiz-service/internal/domain"
)

// StaticCatalog is a catalog backed by in-memory slices (useful for tests/demos).
type StaticCatalog struct {
	institutions []domain.Institution
	cases        []domain.ClinicalCase
}

func NewStaticCatalog(institutions []domain.Institution, cases []domain.ClinicalCase) *StaticCatalog {
	names := make(map[string]string, len(institutions))
	for _, inst := range institutions {
		names[inst.ID] = inst.Name
	}
	filled := make([]domain.ClinicalCase, len(cases))
	for i, c := range cases {
		if c.InstitutionName == "" {
			c.InstitutionName = names[c.InstitutionID]
		}
		filled[i] = c
	}
	return &StaticCatalog{institutions: institutions, cases: filled}
}

func (c *StaticCatalog) LoadCase(_ context.Context, caseID string) (domain.ClinicalCase, error) {
	for _, cc := range c.cases {
		if cc.ID == caseID {
			return cc, nil
		}
	}
	return domain.ClinicalCase{}, domain.ErrCaseNotFound
}

func (c *StaticCatalog) ListInstitutions(_ context.Context) ([]domain.Institution, error) {
	out := append([]domain.Institution(nil), c.institutions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *StaticCatalog) ListCases(_ context.Context, institutionID string) ([]domain.ClinicalCase, error) {
	out := make([]domain.ClinicalCase, 0, len(c.cases))
	for _, cc := range c.cases {
		if institutionID == "" || cc.InstitutionID == institutionID {
			out = append(out, cc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return strings.Compare(out[i].Code, out[j].Code) < 0 })
	return out, nil
}
