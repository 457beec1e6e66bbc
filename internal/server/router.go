package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cloo-solutions/docqa/internal/api/handlers"
	"github.com/cloo-solutions/docqa/internal/api/middleware"
	"github.com/cloo-solutions/docqa/internal/metrics"
)

const (
	defaultMaxUploadBytes int64 = 100 << 20
	maxJSONBodyBytes      int64 = 1 << 20
)

type RouterConfig struct {
	QAHandler *handlers.QAHandler
	Logger    *zap.Logger
	// DefaultCredential is used for requests without an Authorization header.
	DefaultCredential string
	MaxUploadBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	metrics.Register()

	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(metrics.Middleware())

	r.Get("/health", cfg.QAHandler.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Credential(cfg.DefaultCredential))

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(cfg.MaxUploadBytes))
			r.Post("/ingest", cfg.QAHandler.Ingest)
			r.Post("/import", cfg.QAHandler.Import)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.MaxBodyBytes(maxJSONBodyBytes))
			r.Post("/ask", cfg.QAHandler.Ask)
			r.Post("/search", cfg.QAHandler.Search)
			r.Post("/archive", cfg.QAHandler.PushArchive)
			r.Post("/archive/restore", cfg.QAHandler.PullArchive)
		})

		r.Get("/export", cfg.QAHandler.Export)
		r.Get("/records", cfg.QAHandler.Records)
	})

	return r
}
