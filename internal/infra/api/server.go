package api

import (
	"context"
	"net/http"
	"time"

	"svmedia/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Limiter throttles redemption attempts per client.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Server struct {
	codes    usecase.CodeUseCase
	archives usecase.ArchiveUseCase
	auth     usecase.AuthUseCase
	limiter  Limiter
	keyFn    func(clientIP string) string
	health   map[string]HealthCheck
	timeout  time.Duration
	log      *zerolog.Logger
}

type Option func(*Server)

// WithLimiter enables throttling of POST /api/codes/{code}/use. keyFn maps a
// client address to the counter key.
func WithLimiter(l Limiter, keyFn func(clientIP string) string) Option {
	return func(s *Server) {
		s.limiter = l
		s.keyFn = keyFn
	}
}

func WithHealthCheck(name string, fn HealthCheck) Option {
	return func(s *Server) { s.health[name] = fn }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.timeout = d }
}

func NewServer(
	codes usecase.CodeUseCase,
	archives usecase.ArchiveUseCase,
	auth usecase.AuthUseCase,
	logger *zerolog.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		codes:    codes,
		archives: archives,
		auth:     auth,
		health:   map[string]HealthCheck{},
		timeout:  2 * time.Minute,
		log:      logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Routes builds the full HTTP surface.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log))

	r.Get("/health", healthHandler(s.health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.timeout))
			r.Post("/users/login", loginHandler(s.auth, s.log))

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Get("/users/me", meHandler())
			})
			r.Group(func(r chi.Router) {
				r.Use(s.requireUser, requireAdmin)
				r.Post("/users/create", createUserHandler(s.auth, s.log))
				r.Post("/codes/generate", generateHandler(s.codes, s.log))
				r.Get("/codes", listCodesHandler(s.codes, s.log))
				r.Get("/codes/{code}/usage", usageHandler(s.codes, s.log))
				r.Get("/codes/shift/{shift}", shiftCodesHandler(s.codes, s.log))
				r.Get("/codes/shift/{shift}/print", printShiftHandler(s.codes, s.log))
				r.Get("/media/check-total/{shift}", checkTotalHandler(s.archives, s.log))
			})
		})

		// Archive delivery may outlive the request timeout; per-object
		// fetch timeouts bound it instead.
		r.With(s.throttle).Post("/codes/{code}/use", s.redeemHandler())
	})
	return r
}
