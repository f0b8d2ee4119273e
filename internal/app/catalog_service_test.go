package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/domain"
	"clinical-quiz-service/internal/infra/memory"
	"go.uber.org/zap"
)

type stubResolver struct{}

func (stubResolver) Resolve(_ context.Context, ref string) (string, error) {
	if ref == "broken.png" {
		return "", errors.New("no such object")
	}
	return "https://media.test/" + ref, nil
}

func TestCatalogGetCaseResolvesMedia(t *testing.T) {
	catalog := memory.NewStaticCatalog(
		[]domain.Institution{{ID: "inst-1", Name: "Hospital Escola"}},
		[]domain.ClinicalCase{{
			ID: "case-1", Code: "CARD-001", Title: "Chest pain", InstitutionID: "inst-1",
			AudioRef:  "heart.mp3",
			ImageRefs: []string{"ecg.png", "broken.png"},
			Questions: threeQuestions(),
		}},
	)
	service := app.NewCatalogService(catalog, memory.NewCaseRepository(catalog, time.Minute), stubResolver{}, zap.NewNop())

	view, err := service.GetCase(context.Background(), "case-1")
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if view.AudioURL != "https://media.test/heart.mp3" {
		t.Fatalf("unexpected audio url %q", view.AudioURL)
	}
	if len(view.ImageURLs) != 1 || view.ImageURLs[0] != "https://media.test/ecg.png" {
		t.Fatalf("broken media must be omitted: %v", view.ImageURLs)
	}
	if view.InstitutionName != "Hospital Escola" || view.QuestionCount != 3 {
		t.Fatalf("unexpected summary: %+v", view.CaseSummary)
	}

	cases, err := service.ListCases(context.Background(), "inst-2")
	if err != nil || len(cases) != 0 {
		t.Fatalf("expected no cases for other institution, got %v, %v", cases, err)
	}
}
