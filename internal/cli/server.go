package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/config"
	"clinical-quiz-service/internal/domain"
	"clinical-quiz-service/internal/infra/memory"
	"clinical-quiz-service/internal/infra/objectstore"
	"clinical-quiz-service/internal/infra/postgres"
	redisinfra "clinical-quiz-service/internal/infra/redis"
	"clinical-quiz-service/internal/metrics"
	"clinical-quiz-service/internal/seed"
	transport "clinical-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// catalogSource serves both case loading and catalog listings.
type catalogSource interface {
	app.CatalogRepository
	LoadCase(ctx context.Context, caseID string) (domain.ClinicalCase, error)
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) is required")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	caseTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	sessionIdle := config.TTLDuration(cfg.Quiz.SessionIdle, config.TTLDuration(cfg.Redis.TTL, 2*time.Hour))

	var (
		catalog  catalogSource
		attempts interface {
			app.AttemptRepository
			app.AttemptHistory
		}
		users auth.UserStore
	)
	if cfg.Postgres.URL != "" {
		db, err := openBun(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := Migrate(ctx, db, log); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		catalog = postgres.NewCatalogLoader(pool)
		attempts = postgres.NewAttemptStore(db)
		users = postgres.NewUserStore(db)
	} else {
		static, err := staticCatalog(cfg.Quiz.SeedFile)
		if err != nil {
			return err
		}
		log.Warn("postgres not configured; attempts and accounts are kept in memory")
		catalog = static
		attempts = memory.NewAttemptStore(static)
		users = memory.NewUserStore()
	}

	var (
		cases    app.CaseRepository
		sessions app.SessionRepository
		revoked  auth.RevocationStore
	)
	if redisClient != nil {
		cases = redisinfra.NewCaseRepository(redisClient, catalog, caseTTL)
		sessions = redisinfra.NewSessionStore(redisClient, sessionIdle)
		revoked = redisinfra.NewRevocationStore(redisClient)
	} else {
		cases = memory.NewCaseRepository(catalog, caseTTL)
		sessions = memory.NewSessionStore(sessionIdle)
		revoked = memory.NewRevocationStore()
	}

	media, err := mediaResolver(cfg)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	identity := auth.NewLocalProvider(users, auth.NewLogMailer(log), config.TTLDuration(cfg.Auth.ResetTTL, time.Hour), log)
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	var providers []*auth.OAuthProvider
	if g := cfg.Auth.Google; g.Enabled() {
		providers = append(providers, auth.NewGoogleProvider(g.ClientID, g.ClientSecret, g.RedirectURL))
	}
	if gh := cfg.Auth.GitHub; gh.Enabled() {
		providers = append(providers, auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.RedirectURL))
	}

	router := transport.NewRouter(transport.Services{
		Quiz:        app.NewQuizService(sessions, cases, attempts, log, app.WithMetrics(recorder)),
		Catalog:     app.NewCatalogService(catalog, cases, media, log),
		Performance: app.NewPerformanceService(attempts),
		Auth:        auth.NewService(identity, tokens, revoked, log, providers...),
		Metrics:     recorder,
	}, transport.RouterOptions{
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		AuthRatePerMinute: cfg.Auth.RateLimit.PerMinute,
		AuthRateBurst:     cfg.Auth.RateLimit.Burst,
	}, log)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	return serve(ctx, server, stop, config.TTLDuration(cfg.Server.ShutdownTimeout, 5*time.Second), log)
}

// serve runs server until stop fires, ctx is canceled or the listener fails.
func serve(ctx context.Context, server *http.Server, stop <-chan os.Signal, shutdownTimeout time.Duration, log *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		log.Error("server stopped", zap.Error(err))
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func staticCatalog(seedFile string) (*memory.StaticCatalog, error) {
	if seedFile == "" {
		return memory.NewStaticCatalog(nil, nil), nil
	}
	bundle, err := seed.Load(seedFile)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", seedFile, err)
	}
	return memory.NewStaticCatalog(bundle.Institutions, bundle.Cases), nil
}

func mediaResolver(cfg config.Config) (app.MediaResolver, error) {
	m := cfg.Storage.Minio
	if m.Endpoint == "" {
		return objectstore.NewPublicResolver(cfg.Storage.PublicBaseURL), nil
	}
	return objectstore.NewMinioResolver(objectstore.Config{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Bucket:    m.Bucket,
		Region:    m.Region,
		UseSSL:    m.UseSSL,
		URLExpiry: config.TTLDuration(m.URLExpiry, 15*time.Minute),
	})
}
