package app

import (
	"sort"
	"sync"
	"time"

	"clinical-quiz-service/internal/domain"
)

// Session walks one user through the questions of one clinical case.
// Selections are mutable until Finish; Finish is one-way.
type Session struct {
	id        string
	userID    string
	caseID    string
	caseTitle string
	questions []domain.Question
	startedAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	current    int
	answers    domain.AnswerMap
	finished   bool
	finishedAt time.Time
	result     domain.ScoreResult
	attempt    domain.Attempt
	saved      bool
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID      int      `json:"id"`
	Text    string   `json:"question"`
	Options []string `json:"options"`
}

// State is a snapshot of a session for rendering.
type State struct {
	SessionID     string           `json:"sessionId"`
	CaseID        string           `json:"caseId"`
	CaseTitle     string           `json:"caseTitle"`
	CurrentIndex  int              `json:"currentIndex"`
	Total         int              `json:"total"`
	AnsweredCount int              `json:"answeredCount"`
	Progress      float64          `json:"progress"`
	Question      QuestionView     `json:"question"`
	Answers       domain.AnswerMap `json:"answers"`
	CanFinish     bool             `json:"canFinish"`
	Finished      bool             `json:"finished"`
	StartedAt     time.Time        `json:"startedAt"`
}

// NewSession builds a session over the case's ordered question set.
func NewSession(id, userID string, c domain.ClinicalCase) (*Session, error) {
	return NewSessionWithClock(id, userID, c, time.Now)
}

// NewSessionWithClock is NewSession with an injectable clock for tests.
func NewSessionWithClock(id, userID string, c domain.ClinicalCase, now func() time.Time) (*Session, error) {
	if len(c.Questions) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(c.Questions))
	copy(questions, c.Questions)

	return &Session{
		id:        id,
		userID:    userID,
		caseID:    c.ID,
		caseTitle: c.Title,
		questions: questions,
		startedAt: now(),
		now:       now,
		answers:   make(domain.AnswerMap, len(questions)),
	}, nil
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) CaseID() string { return s.caseID }

// SelectAnswer records optionIndex for questionID, replacing any earlier choice.
// After Finish the answers are frozen and ErrQuizFinished is returned.
func (s *Session) SelectAnswer(questionID, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return domain.ErrQuizFinished
	}
	q, ok := s.questionLocked(questionID)
	if !ok {
		return domain.ErrQuestionNotFound
	}
	if _, err := q.OptionText(optionIndex); err != nil {
		return err
	}
	s.answers[questionID] = optionIndex
	return nil
}

// Next moves to the following question; it stays put on the last one.
func (s *Session) Next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < len(s.questions)-1 {
		s.current++
	}
	return s.current
}

// Previous moves to the preceding question; it stays put on the first one.
func (s *Session) Previous() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// CanFinish reports whether every question has an answer.
func (s *Session) CanFinish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.missingLocked()) == 0
}

// Finish scores the session. It fails with an *domain.IncompleteQuizError
// until all questions are answered. Once finished, further calls return the
// same result with ErrQuizFinished.
func (s *Session) Finish() (domain.ScoreResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return s.result, domain.ErrQuizFinished
	}
	if missing := s.missingLocked(); len(missing) > 0 {
		return domain.ScoreResult{}, &domain.IncompleteQuizError{Missing: missing}
	}

	result, err := Score(s.questions, s.answers)
	s.finished = true
	s.finishedAt = s.now()
	s.result = result
	return result, err
}

// Answers returns a copy of the current selections.
func (s *Session) Answers() domain.AnswerMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

// FinishedAt is zero until Finish succeeds.
func (s *Session) FinishedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finishedAt
}

func (s *Session) recordAttempt(attempt domain.Attempt, saved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempt = attempt
	s.saved = saved
}

func (s *Session) recordedAttempt() (domain.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt, s.saved
}

// State returns a snapshot positioned at the current question.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.questions[s.current]
	total := len(s.questions)
	return State{
		SessionID:     s.id,
		CaseID:        s.caseID,
		CaseTitle:     s.caseTitle,
		CurrentIndex:  s.current,
		Total:         total,
		AnsweredCount: len(s.answers),
		Progress:      float64(s.current+1) / float64(total) * 100,
		Question:      QuestionView{ID: q.ID, Text: q.Text, Options: append([]string(nil), q.Options...)},
		Answers:       s.answers.Clone(),
		CanFinish:     len(s.missingLocked()) == 0,
		Finished:      s.finished,
		StartedAt:     s.startedAt,
	}
}

func (s *Session) questionLocked(id int) (domain.Question, bool) {
	for _, q := range s.questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (s *Session) missingLocked() []int {
	var missing []int
	for _, q := range s.questions {
		if _, ok := s.answers[q.ID]; !ok {
			missing = append(missing, q.ID)
		}
	}
	sort.Ints(missing)
	return missing
}
