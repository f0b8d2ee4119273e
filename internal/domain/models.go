package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// PassThreshold is the minimum percentage that counts as a passing attempt.
const PassThreshold = 70.0

// UnknownAnswerText replaces option text that cannot be looked up.
const UnknownAnswerText = "unknown answer"

// Difficulty grades a clinical case.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty accepts the canonical labels and the legacy Portuguese ones.
func ParseDifficulty(raw string) (Difficulty, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "easy", "fácil", "facil":
		return DifficultyEasy, nil
	case "medium", "médio", "medio":
		return DifficultyMedium, nil
	case "hard", "difícil", "dificil":
		return DifficultyHard, nil
	}
	return "", fmt.Errorf("unknown difficulty %q", raw)
}

// Institution groups clinical cases (a school or hospital).
type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Question is a multiple-choice question embedded in a case.
// JSON field names follow the stored questions column.
type Question struct {
	ID      int      `json:"id" yaml:"id"`
	Text    string   `json:"question" yaml:"question"`
	Options []string `json:"options" yaml:"options"`
	Correct int      `json:"correct" yaml:"correct"` // zero-based
}

// Validate checks the option count and that the correct index is in bounds.
func (q Question) Validate() error {
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question %d has %d options", ErrInvalidQuestion, q.ID, len(q.Options))
	}
	if q.Correct < 0 || q.Correct >= len(q.Options) {
		return fmt.Errorf("%w: question %d correct index %d out of range", ErrInvalidQuestion, q.ID, q.Correct)
	}
	return nil
}

// OptionText returns the text of option idx.
func (q Question) OptionText(idx int) (string, error) {
	if idx < 0 || idx >= len(q.Options) {
		return "", fmt.Errorf("%w: question %d option %d", ErrInvalidAnswerIndex, q.ID, idx)
	}
	return q.Options[idx], nil
}

// ClinicalCase is a simulated patient encounter with its question set.
type ClinicalCase struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	Title            string     `json:"title"`
	Specialty        string     `json:"specialty"`
	Discipline       string     `json:"discipline"`
	Difficulty       Difficulty `json:"difficulty,omitempty"`
	ChiefComplaint   string     `json:"chiefComplaint"`
	ClinicalHistory  string     `json:"clinicalHistory"`
	ClinicalExam     string     `json:"clinicalExam,omitempty"`
	LabResults       string     `json:"labResults,omitempty"`
	CorrectDiagnosis string     `json:"correctDiagnosis,omitempty"`
	Explanation      string     `json:"explanation,omitempty"`
	AudioRef         string     `json:"audioRef,omitempty"`
	ImageRefs        []string   `json:"imageRefs,omitempty"`
	InstitutionID    string     `json:"institutionId,omitempty"`
	InstitutionName  string     `json:"institutionName,omitempty"`
	Questions        []Question `json:"questions"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Validate checks every question and the uniqueness of question ids.
func (c ClinicalCase) Validate() error {
	seen := make(map[int]struct{}, len(c.Questions))
	for _, q := range c.Questions {
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}

// AnswerMap maps question id to the selected zero-based option index.
type AnswerMap map[int]int

// Clone returns an independent copy.
func (a AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Attempt is the recorded outcome of one finished quiz session.
type Attempt struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CaseID      string    `json:"caseId"`
	Answers     AnswerMap `json:"answers"`
	Score       float64   `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// AttemptRecord is an attempt joined with the case it belongs to.
type AttemptRecord struct {
	Attempt
	CaseTitle      string `json:"caseTitle"`
	CaseDiscipline string `json:"caseDiscipline"`
}

// ReviewEntry describes the outcome of one question after finishing.
type ReviewEntry struct {
	QuestionID         int    `json:"questionId"`
	Question           string `json:"question"`
	Answered           bool   `json:"answered"`
	SelectedIndex      int    `json:"selectedIndex"`
	IsCorrect          bool   `json:"isCorrect"`
	SelectedOptionText string `json:"selectedOptionText"`
	CorrectOptionText  string `json:"correctOptionText"`
}

// ScoreResult is the scorer output. Percentage is not rounded.
type ScoreResult struct {
	Total          int           `json:"total"`
	CorrectCount   int           `json:"correctCount"`
	IncorrectCount int           `json:"incorrectCount"`
	Percentage     float64       `json:"percentage"`
	Passed         bool          `json:"passed"`
	Review         []ReviewEntry `json:"review"`
}

// DisplayPercentage rounds the percentage to a whole number for presentation.
func (r ScoreResult) DisplayPercentage() int {
	return int(math.Round(r.Percentage))
}

// User is an authenticated student.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"createdAt"`
}

// PerformanceSummary aggregates a user's attempts for the dashboard.
type PerformanceSummary struct {
	Attempts     []AttemptRecord `json:"attempts"`
	Total        int             `json:"total"`
	AverageScore float64         `json:"averageScore"`
	BestScore    float64         `json:"bestScore"`
	PassRate     float64         `json:"passRate"`
}
