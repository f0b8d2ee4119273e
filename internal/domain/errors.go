package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a quiz session does not exist or belongs to another user.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrCaseNotFound indicates the clinical case could not be loaded.
	ErrCaseNotFound = errors.New("clinical case not found")
	// ErrQuestionNotFound indicates a question id is not part of the case.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion marks malformed question content.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrNoQuestionsAvailable is returned when a case has no questions.
	ErrNoQuestionsAvailable = errors.New("no questions available for this case")
	// ErrIncompleteQuiz is returned when finishing before every question is answered.
	ErrIncompleteQuiz = errors.New("answer all questions before finishing")
	// ErrInvalidAnswerIndex marks an option index outside the question's options.
	ErrInvalidAnswerIndex = errors.New("invalid answer index")
	// ErrQuizFinished is returned for mutations after finish.
	ErrQuizFinished = errors.New("quiz already finished")
	// ErrStorage is the sentinel wrapped by StorageError.
	ErrStorage = errors.New("storage error")
	// ErrAuthFailed is the only authentication failure surfaced to clients.
	ErrAuthFailed = errors.New("invalid credentials")
	// ErrEmailTaken is returned on sign-up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned by user stores.
	ErrUserNotFound = errors.New("user not found")
)

// IncompleteQuizError lists the questions still unanswered.
type IncompleteQuizError struct {
	Missing []int
}

func (e *IncompleteQuizError) Error() string {
	return fmt.Sprintf("%s: %d unanswered", ErrIncompleteQuiz, len(e.Missing))
}

func (e *IncompleteQuizError) Unwrap() error { return ErrIncompleteQuiz }

// StorageError wraps a failure of an external store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }
