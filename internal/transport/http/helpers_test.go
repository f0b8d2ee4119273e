package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/domain"
	"clinical-quiz-service/internal/infra/memory"
	"clinical-quiz-service/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	server   *httptest.Server
	token    string
	attempts *memory.AttemptStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()

	catalog := memory.NewStaticCatalog(
		[]domain.Institution{{ID: "inst-1", Name: "Hospital Escola"}},
		[]domain.ClinicalCase{sampleCase(), emptyCase()},
	)
	cases := memory.NewCaseRepository(catalog, time.Minute)
	attempts := memory.NewAttemptStore(catalog)
	sessions := memory.NewSessionStore(time.Hour)

	users := memory.NewUserStore()
	identity := auth.NewLocalProvider(users, auth.NewLogMailer(log), time.Hour, log, auth.WithBcryptCost(bcrypt.MinCost))
	authSvc := auth.NewService(identity, auth.NewTokenIssuer("test-secret", time.Hour), memory.NewRevocationStore(), log)

	session, err := authSvc.SignUp(context.Background(), "ana@example.com", "correct-horse", "Ana Souza")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	router := NewRouter(Services{
		Quiz:        app.NewQuizService(sessions, cases, attempts, log),
		Catalog:     app.NewCatalogService(catalog, cases, nil, log),
		Performance: app.NewPerformanceService(attempts),
		Auth:        authSvc,
		Metrics:     metrics.NewRecorder(),
	}, RouterOptions{AuthRatePerMinute: 600, AuthRateBurst: 100}, log)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &fixture{server: server, token: session.AccessToken, attempts: attempts}
}

func (f *fixture) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func sampleCase() domain.ClinicalCase {
	return domain.ClinicalCase{
		ID:            "case-1",
		Code:          "CARD-001",
		Title:         "Chest pain in the ER",
		Discipline:    "Cardiology",
		InstitutionID: "inst-1",
		Questions: []domain.Question{
			{ID: 1, Text: "Most likely diagnosis?", Options: []string{"STEMI", "Pericarditis"}, Correct: 0},
			{ID: 2, Text: "First exam?", Options: []string{"Chest X-ray", "ECG"}, Correct: 1},
			{ID: 3, Text: "Initial therapy?", Options: []string{"Observation", "Aspirin"}, Correct: 1},
		},
	}
}

func emptyCase() domain.ClinicalCase {
	return domain.ClinicalCase{ID: "case-empty", Code: "GEN-000", Title: "Draft case", InstitutionID: "inst-1"}
}
