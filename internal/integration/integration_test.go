package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/cli"
	"clinical-quiz-service/internal/domain"
	"clinical-quiz-service/internal/infra/postgres"
	infraredis "clinical-quiz-service/internal/infra/redis"
	"clinical-quiz-service/internal/seed"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.uber.org/zap"
)

const seedYAML = `
institutions:
  - id: inst-1
    name: Hospital Escola
cases:
  - id: case-1
    code: CARD-001
    title: Chest pain in the ER
    discipline: Cardiology
    difficulty: hard
    institution_id: inst-1
    images: [ecg.png]
    questions:
      - {id: 1, question: Most likely diagnosis?, options: [STEMI, Pericarditis], correct: 0}
      - {id: 2, question: First exam?, options: [Chest X-ray, ECG], correct: 1}
      - {id: 3, question: Initial therapy?, options: [Observation, Aspirin], correct: 1}
`

// legacyAttempts is the attempts table as older deployments created it.
const legacyAttempts = `CREATE TABLE quiz_attempts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	clinical_case_id TEXT NOT NULL,
	answers JSONB NOT NULL,
	score DOUBLE PRECISION NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

func TestFinishPersistsAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(pgURL)
	defer db.Close()
	if _, err := db.ExecContext(ctx, legacyAttempts); err != nil {
		t.Fatalf("create legacy table: %v", err)
	}
	if err := cli.Migrate(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	bundle, err := seed.Parse([]byte(seedYAML))
	if err != nil {
		t.Fatalf("parse seed: %v", err)
	}
	if err := postgres.NewSeeder(db).Seed(ctx, bundle); err != nil {
		t.Fatalf("seed: %v", err)
	}

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	loader := postgres.NewCatalogLoader(pool)

	c, err := loader.LoadCase(ctx, "case-1")
	if err != nil {
		t.Fatalf("load case: %v", err)
	}
	if c.InstitutionName != "Hospital Escola" || len(c.Questions) != 3 || c.Difficulty != domain.DifficultyHard {
		t.Fatalf("unexpected case: %+v", c)
	}
	if _, err := loader.LoadCase(ctx, "missing"); !errors.Is(err, domain.ErrCaseNotFound) {
		t.Fatalf("expected ErrCaseNotFound, got %v", err)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	attempts := postgres.NewAttemptStore(db)
	service := app.NewQuizService(
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		infraredis.NewCaseRepository(redisClient, loader, 5*time.Minute),
		attempts,
		zap.NewNop(),
	)

	state, err := service.Start(ctx, "u1", "case-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for id, idx := range map[int]int{1: 0, 2: 1, 3: 0} {
		if _, err := service.SelectAnswer(ctx, state.SessionID, "u1", id, idx); err != nil {
			t.Fatalf("select %d: %v", id, err)
		}
	}
	outcome, err := service.Finish(ctx, state.SessionID, "u1")
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if !outcome.Saved {
		t.Fatalf("expected attempt to be saved")
	}

	history, err := attempts.ListAttempts(ctx, "u1")
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(history) != 1 || history[0].CaseTitle != "Chest pain in the ER" || history[0].Answers[3] != 0 {
		t.Fatalf("unexpected history: %+v", history)
	}
	summary := app.Summarize(history)
	if summary.PassRate != 0 || summary.BestScore != outcome.Result.Percentage {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestUserStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	db := openDB(pgURL)
	defer db.Close()
	if err := cli.Migrate(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	users := postgres.NewUserStore(db)

	account := auth.Account{
		User:         domain.User{ID: "u1", Email: "ana@example.com", FullName: "Ana", Provider: "password"},
		PasswordHash: []byte("hash"),
	}
	if err := users.CreateUser(ctx, account); err != nil {
		t.Fatalf("create user: %v", err)
	}
	account.ID = "u2"
	if err := users.CreateUser(ctx, account); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	got, err := users.UserByEmail(ctx, "ana@example.com")
	if err != nil || got.ID != "u1" || string(got.PasswordHash) != "hash" {
		t.Fatalf("user by email: %+v, %v", got, err)
	}
	if _, err := users.UserByID(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	now := time.Now()
	if err := users.SaveResetToken(ctx, auth.ResetToken{TokenHash: "h1", UserID: "u1", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatalf("save reset token: %v", err)
	}
	userID, err := users.ConsumeResetToken(ctx, "h1", now)
	if err != nil || userID != "u1" {
		t.Fatalf("consume: %q, %v", userID, err)
	}
	if _, err := users.ConsumeResetToken(ctx, "h1", now); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected consumed token to be gone, got %v", err)
	}
}

func openDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
