package app

import (
	"context"
	"errors"
	"time"

	"clinical-quiz-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionRepository abstracts how quiz sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// CaseRepository loads clinical cases (from cache/backing store).
type CaseRepository interface {
	GetCase(ctx context.Context, caseID string) (domain.ClinicalCase, error)
}

// AttemptRepository persists finished attempts.
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, attempt domain.Attempt) error
}

// Metrics receives quiz lifecycle signals.
type Metrics interface {
	SessionStarted()
	AttemptFinished(passed bool)
	AttemptSaveFailed()
}

type nopMetrics struct{}

func (nopMetrics) SessionStarted()      {}
func (nopMetrics) AttemptFinished(bool) {}
func (nopMetrics) AttemptSaveFailed()   {}

// FinishOutcome is what a finished session hands to the review view.
// Saved is false when the attempt could not be persisted.
type FinishOutcome struct {
	Result  domain.ScoreResult `json:"result"`
	Attempt domain.Attempt     `json:"attempt"`
	Saved   bool               `json:"saved"`
}

// QuizService contains the quiz use cases.
type QuizService struct {
	sessions SessionRepository
	cases    CaseRepository
	attempts AttemptRepository
	metrics  Metrics
	log      *zap.Logger
	now      func() time.Time
	newID    func() string
}

// QuizOption customizes a QuizService.
type QuizOption func(*QuizService)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) QuizOption {
	return func(s *QuizService) { s.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) QuizOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(sessions SessionRepository, cases CaseRepository, attempts AttemptRepository, log *zap.Logger, opts ...QuizOption) *QuizService {
	s := &QuizService{
		sessions: sessions,
		cases:    cases,
		attempts: attempts,
		metrics:  nopMetrics{},
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a quiz session for userID over the questions of caseID.
func (s *QuizService) Start(ctx context.Context, userID, caseID string) (State, error) {
	c, err := s.cases.GetCase(ctx, caseID)
	if err != nil {
		return State{}, err
	}

	session, err := NewSessionWithClock(s.newID(), userID, c, s.now)
	if err != nil {
		if !errors.Is(err, domain.ErrNoQuestionsAvailable) {
			s.log.Error("case has malformed questions", zap.String("caseId", caseID), zap.Error(err))
		}
		return State{}, err
	}
	s.sessions.Put(session)
	s.metrics.SessionStarted()
	s.log.Debug("quiz session started",
		zap.String("sessionId", session.ID()),
		zap.String("userId", userID),
		zap.String("caseId", caseID))
	return session.State(), nil
}

// State returns the current snapshot of a session.
func (s *QuizService) State(_ context.Context, sessionID, userID string) (State, error) {
	session, err := s.session(sessionID, userID)
	if err != nil {
		return State{}, err
	}
	return session.State(), nil
}

// SelectAnswer records a selection and returns the updated snapshot.
func (s *QuizService) SelectAnswer(_ context.Context, sessionID, userID string, questionID, optionIndex int) (State, error) {
	session, err := s.session(sessionID, userID)
	if err != nil {
		return State{}, err
	}
	if err := session.SelectAnswer(questionID, optionIndex); err != nil {
		return session.State(), err
	}
	return session.State(), nil
}

// Next advances to the following question.
func (s *QuizService) Next(_ context.Context, sessionID, userID string) (State, error) {
	session, err := s.session(sessionID, userID)
	if err != nil {
		return State{}, err
	}
	session.Next()
	return session.State(), nil
}

// Previous goes back to the preceding question.
func (s *QuizService) Previous(_ context.Context, sessionID, userID string) (State, error) {
	session, err := s.session(sessionID, userID)
	if err != nil {
		return State{}, err
	}
	session.Previous()
	return session.State(), nil
}

// Finish scores the session and stores the attempt. A storage failure is
// logged and reported through Saved; it never hides the result.
func (s *QuizService) Finish(ctx context.Context, sessionID, userID string) (FinishOutcome, error) {
	session, err := s.session(sessionID, userID)
	if err != nil {
		return FinishOutcome{}, err
	}

	result, err := session.Finish()
	switch {
	case errors.Is(err, domain.ErrIncompleteQuiz):
		return FinishOutcome{Result: result}, err
	case errors.Is(err, domain.ErrQuizFinished):
		// replay the first outcome; nothing is stored twice
		attempt, saved := session.recordedAttempt()
		return FinishOutcome{Result: result, Attempt: attempt, Saved: saved}, err
	case err != nil:
		// Review entries already carry the unknown-answer placeholder.
		s.log.Error("answer lookup failed while scoring",
			zap.String("sessionId", sessionID),
			zap.String("caseId", session.CaseID()),
			zap.Error(err))
	}

	attempt := domain.Attempt{
		ID:          s.newID(),
		UserID:      userID,
		CaseID:      session.CaseID(),
		Answers:     session.Answers(),
		Score:       result.Percentage,
		CompletedAt: session.FinishedAt(),
	}
	s.metrics.AttemptFinished(result.Passed)

	outcome := FinishOutcome{Result: result, Attempt: attempt, Saved: true}
	if err := s.attempts.SaveAttempt(ctx, attempt); err != nil {
		outcome.Saved = false
		s.metrics.AttemptSaveFailed()
		s.log.Warn("saving attempt failed",
			zap.String("attemptId", attempt.ID),
			zap.String("userId", userID),
			zap.String("caseId", attempt.CaseID),
			zap.Error(err))
	}
	session.recordAttempt(attempt, outcome.Saved)
	return outcome, nil
}

// Abandon drops a session without recording an attempt.
func (s *QuizService) Abandon(_ context.Context, sessionID, userID string) error {
	if _, err := s.session(sessionID, userID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

func (s *QuizService) session(sessionID, userID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok || session.UserID() != userID {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
