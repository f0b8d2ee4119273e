package http

import (
	"net/http"
	"time"

	"clinical-quiz-service/internal/app"
	"clinical-quiz-service/internal/auth"
	"clinical-quiz-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Services are the use cases mounted by the router.
type Services struct {
	Quiz        *app.QuizService
	Catalog     *app.CatalogService
	Performance *app.PerformanceService
	Auth        *auth.Service
	// Metrics is optional; /metrics is not mounted without it.
	Metrics *metrics.Recorder
}

type RouterOptions struct {
	AllowedOrigins    []string
	AuthRatePerMinute int
	AuthRateBurst     int
}

func NewRouter(s Services, opts RouterOptions, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(RequestLogger(log))
	if s.Metrics != nil {
		r.Use(s.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	authHandler := NewAuthHandler(s.Auth, log)
	catalogHandler := NewCatalogHandler(s.Catalog, s.Performance, log)
	quizHandler := NewQuizHandler(s.Quiz, log)
	wsHandler := NewWSHandler(s.Quiz, s.Auth, log, origins)
	requireUser := RequireUser(s.Auth, log)

	perMinute := opts.AuthRatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	limiter := NewRateLimiter(perMinute, opts.AuthRateBurst)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))

		api.Route("/auth", func(ar chi.Router) {
			ar.Group(func(pub chi.Router) {
				pub.Use(limiter.Middleware)
				pub.Post("/signin", authHandler.SignIn)
				pub.Post("/signup", authHandler.SignUp)
				pub.Post("/password/reset", authHandler.RequestPasswordReset)
				pub.Post("/password/reset/confirm", authHandler.ConfirmPasswordReset)
				pub.Get("/oauth", authHandler.Providers)
				pub.Get("/oauth/{provider}", authHandler.OAuthStart)
				pub.Get("/oauth/{provider}/callback", authHandler.OAuthCallback)
			})
			ar.With(requireUser).Post("/signout", authHandler.SignOut)
			ar.With(requireUser).Get("/me", authHandler.Me)
		})

		api.Get("/institutions", catalogHandler.Institutions)
		api.Get("/cases", catalogHandler.Cases)
		api.Get("/cases/{caseID}", catalogHandler.Case)

		api.Group(func(pr chi.Router) {
			pr.Use(requireUser)
			pr.Post("/cases/{caseID}/quiz", quizHandler.Start)
			pr.Route("/quiz/{sessionID}", func(qr chi.Router) {
				qr.Get("/", quizHandler.State)
				qr.Delete("/", quizHandler.Abandon)
				qr.Post("/answers", quizHandler.Select)
				qr.Post("/next", quizHandler.Next)
				qr.Post("/previous", quizHandler.Previous)
				qr.Post("/finish", quizHandler.Finish)
			})
			pr.Get("/performance", catalogHandler.Performance)
		})
	})

	r.Get("/ws", wsHandler.ServeWS)
	return r
}
