package app

import (
	"context"

	"clinical-quiz-service/internal/domain"
)

// AttemptHistory lists a user's attempts, newest first.
type AttemptHistory interface {
	ListAttempts(ctx context.Context, userID string) ([]domain.AttemptRecord, error)
}

// Score bands used by the dashboard badges.
const (
	BandGood = "good"
	BandFair = "fair"
	BandPoor = "poor"
)

// Band classifies a score for display.
func Band(score float64) string {
	switch {
	case score >= 80:
		return BandGood
	case score >= 60:
		return BandFair
	default:
		return BandPoor
	}
}

// PerformanceService computes the dashboard summary.
type PerformanceService struct {
	history AttemptHistory
}

func NewPerformanceService(history AttemptHistory) *PerformanceService {
	return &PerformanceService{history: history}
}

// Summary aggregates every attempt of userID. All figures are zero without attempts.
func (s *PerformanceService) Summary(ctx context.Context, userID string) (domain.PerformanceSummary, error) {
	attempts, err := s.history.ListAttempts(ctx, userID)
	if err != nil {
		return domain.PerformanceSummary{}, err
	}
	return Summarize(attempts), nil
}

// Summarize is the pure aggregation behind Summary.
func Summarize(attempts []domain.AttemptRecord) domain.PerformanceSummary {
	summary := domain.PerformanceSummary{
		Attempts: attempts,
		Total:    len(attempts),
	}
	if len(attempts) == 0 {
		summary.Attempts = []domain.AttemptRecord{}
		return summary
	}

	var sum float64
	passed := 0
	for i, a := range attempts {
		sum += a.Score
		if i == 0 || a.Score > summary.BestScore {
			summary.BestScore = a.Score
		}
		if a.Score >= domain.PassThreshold {
			passed++
		}
	}
	summary.AverageScore = sum / float64(len(attempts))
	summary.PassRate = float64(passed) / float64(len(attempts)) * 100
	return summary
}
