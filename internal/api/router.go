package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"zbx-import/internal/middleware"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Handler        *Handler
	Validator      *middleware.TokenValidator
	RateLimit      middleware.RateLimitConfig
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter builds the HTTP routes. /healthz is public; everything under /v1
// requires a bearer token and is rate limited per operator. The rate limiter
// sweeps idle buckets until ctx is done.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := cfg.Handler

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Validator))
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))

		r.Post("/imports/templates", h.ImportTemplates)
		r.Post("/imports/templates/plan", h.PlanTemplates)
		r.Get("/templates", h.ListTemplates)
		r.Get("/groups", h.ListGroups)
		r.Post("/groups", h.CreateGroup)
	})

	return r
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.RequestIDFromContext(r.Context()),
			)
		})
	}
}
