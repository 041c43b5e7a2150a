package hostapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hyrule-sim/pouchsim/internal/obsmetrics"
)

// NewRouter builds the REST/websocket/metrics router (SPEC_FULL.md §5.2).
// Construction is pure — no goroutines started, no listener opened —
// matching the retrieval pack's own chi router, which exists precisely so
// it can be exercised with httptest.NewServer in tests.
func NewRouter(s *Server) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Post("/runs", s.handlePostRuns)
	r.Get("/runs/{id}", s.handleGetRun)
	r.Get("/runs/{id}/ws", s.handleRunWebSocket)

	r.Handle("/metrics", obsmetrics.Handler())

	return r
}
