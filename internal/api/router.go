package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/iammorganparry/clive/apps/semcache/internal/memory"
)

// NewRouter creates the Chi router with all routes and middleware.
func NewRouter(svc *memory.Service, apiKey string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(svc)
	fragmentH := NewFragmentHandler(svc)
	entryH := NewEntryHandler(svc)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/fragments", func(r chi.Router) {
			r.Post("/", fragmentH.Ingest)
			r.Post("/bulk", fragmentH.BulkIngest)
		})

		r.Route("/entries", func(r chi.Router) {
			r.Get("/sample", entryH.Sample)
			r.Post("/query/tags", entryH.QueryTags)
			r.Post("/query/vector", entryH.QueryVector)
			r.Get("/{id}", entryH.Get)
		})

		r.Get("/stats", entryH.Stats)
		r.Post("/consolidate", entryH.Consolidate)
	})

	return r
}
