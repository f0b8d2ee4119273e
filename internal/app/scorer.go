package app

import (
	"errors"

	"clinical-quiz-service/internal/domain"
)

// Score compares answers with the answer key of questions.
// Entries whose selected option cannot be looked up are rendered with
// domain.UnknownAnswerText; the lookup failures are returned joined alongside
// the complete result so callers can report them.
func Score(questions []domain.Question, answers domain.AnswerMap) (domain.ScoreResult, error) {
	if len(questions) == 0 {
		return domain.ScoreResult{}, domain.ErrNoQuestionsAvailable
	}

	result := domain.ScoreResult{
		Total:  len(questions),
		Review: make([]domain.ReviewEntry, 0, len(questions)),
	}
	var lookupErrs []error

	for _, q := range questions {
		entry := domain.ReviewEntry{
			QuestionID:    q.ID,
			Question:      q.Text,
			SelectedIndex: -1,
		}

		correctText, err := q.OptionText(q.Correct)
		if err != nil {
			lookupErrs = append(lookupErrs, err)
			correctText = domain.UnknownAnswerText
		}
		entry.CorrectOptionText = correctText

		if selected, ok := answers[q.ID]; ok {
			entry.Answered = true
			entry.SelectedIndex = selected
			entry.IsCorrect = selected == q.Correct

			text, err := q.OptionText(selected)
			if err != nil {
				lookupErrs = append(lookupErrs, err)
				text = domain.UnknownAnswerText
			}
			entry.SelectedOptionText = text
		}

		if entry.IsCorrect {
			result.CorrectCount++
		}
		result.Review = append(result.Review, entry)
	}

	result.IncorrectCount = result.Total - result.CorrectCount
	result.Percentage = float64(result.CorrectCount) / float64(result.Total) * 100
	result.Passed = result.Percentage >= domain.PassThreshold

	return result, errors.Join(lookupErrs...)
}
