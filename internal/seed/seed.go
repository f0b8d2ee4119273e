// Package seed reads the YAML catalog file used to populate institutions and
// clinical cases.
package seed

import (
	"bytes"
	"fmt"
	"os"

	"clinical-quiz-service/internal/domain"
	"gopkg.in/yaml.v3"
)

// Bundle is a validated catalog.
type Bundle struct {
	Institutions []domain.Institution
	Cases        []domain.ClinicalCase
}

type file struct {
	Institutions []institution `yaml:"institutions"`
	Cases        []clinicalCase `yaml:"cases"`
}

type institution struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type clinicalCase struct {
	ID               string            `yaml:"id"`
	Code             string            `yaml:"code"`
	Title            string            `yaml:"title"`
	Specialty        string            `yaml:"specialty"`
	Discipline       string            `yaml:"discipline"`
	Difficulty       string            `yaml:"difficulty"`
	ChiefComplaint   string            `yaml:"chief_complaint"`
	ClinicalHistory  string            `yaml:"clinical_history"`
	ClinicalExam     string            `yaml:"clinical_exam"`
	LabResults       string            `yaml:"lab_results"`
	CorrectDiagnosis string            `yaml:"correct_diagnosis"`
	Explanation      string            `yaml:"explanation"`
	AudioURL         string            `yaml:"audio_url"`
	Images           []string          `yaml:"images"`
	InstitutionID    string            `yaml:"institution_id"`
	Questions        []domain.Question `yaml:"questions"`
}

// Load reads and validates the seed file at path.
func Load(path string) (Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bundle{}, err
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected.
func Parse(data []byte) (Bundle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f file
	if err := dec.Decode(&f); err != nil {
		return Bundle{}, fmt.Errorf("decode seed: %w", err)
	}

	var b Bundle
	known := make(map[string]string, len(f.Institutions))
	for _, inst := range f.Institutions {
		if inst.ID == "" || inst.Name == "" {
			return Bundle{}, fmt.Errorf("institution needs id and name: %+v", inst)
		}
		if _, dup := known[inst.ID]; dup {
			return Bundle{}, fmt.Errorf("duplicate institution %q", inst.ID)
		}
		known[inst.ID] = inst.Name
		b.Institutions = append(b.Institutions, domain.Institution{ID: inst.ID, Name: inst.Name})
	}

	ids := make(map[string]struct{}, len(f.Cases))
	for _, c := range f.Cases {
		cc, err := c.toDomain()
		if err != nil {
			return Bundle{}, err
		}
		if _, dup := ids[cc.ID]; dup {
			return Bundle{}, fmt.Errorf("duplicate case %q", cc.ID)
		}
		ids[cc.ID] = struct{}{}
		if cc.InstitutionID != "" {
			name, ok := known[cc.InstitutionID]
			if !ok {
				return Bundle{}, fmt.Errorf("case %s: unknown institution %q", cc.ID, cc.InstitutionID)
			}
			cc.InstitutionName = name
		}
		b.Cases = append(b.Cases, cc)
	}
	return b, nil
}

func (c clinicalCase) toDomain() (domain.ClinicalCase, error) {
	if c.ID == "" || c.Code == "" || c.Title == "" {
		return domain.ClinicalCase{}, fmt.Errorf("case needs id, code and title: %q", c.ID)
	}
	difficulty, err := domain.ParseDifficulty(c.Difficulty)
	if err != nil {
		return domain.ClinicalCase{}, fmt.Errorf("case %s: %w", c.ID, err)
	}
	cc := domain.ClinicalCase{
		ID:               c.ID,
		Code:             c.Code,
		Title:            c.Title,
		Specialty:        c.Specialty,
		Discipline:       c.Discipline,
		Difficulty:       difficulty,
		ChiefComplaint:   c.ChiefComplaint,
		ClinicalHistory:  c.ClinicalHistory,
		ClinicalExam:     c.ClinicalExam,
		LabResults:       c.LabResults,
		CorrectDiagnosis: c.CorrectDiagnosis,
		Explanation:      c.Explanation,
		AudioRef:         c.AudioURL,
		ImageRefs:        c.Images,
		InstitutionID:    c.InstitutionID,
		Questions:        c.Questions,
	}
	if err := cc.Validate(); err != nil {
		return domain.ClinicalCase{}, fmt.Errorf("case %s: %w", c.ID, err)
	}
	return cc, nil
}
