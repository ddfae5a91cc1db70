// Package api exposes the deal desk over REST. Handlers thread an explicit
// Session from the auth headers through every permission check.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ethansammiq/deal-desk-sub004/internal/assess"
	"github.com/ethansammiq/deal-desk-sub004/internal/config"
	"github.com/ethansammiq/deal-desk-sub004/internal/store"
)

// Server holds the handler dependencies.
type Server struct {
	store               store.Store
	assessor            assess.Assessor
	bottleneckThreshold time.Duration
	cfg                 config.ServerConfig
}

// NewServer creates an API server over the given store and assessor.
func NewServer(st store.Store, assessor assess.Assessor, bottleneckThreshold time.Duration, cfg config.ServerConfig) *Server {
	if bottleneckThreshold <= 0 {
		bottleneckThreshold = 24 * time.Hour
	}
	return &Server{
		store:               st,
		assessor:            assessor,
		bottleneckThreshold: bottleneckThreshold,
		cfg:                 cfg,
	}
}

// Router builds the chi router with the full middleware stack and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(rateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-User-Role"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(sessionMiddleware)

		r.Route("/deals", func(r chi.Router) {
			r.Post("/", s.handleCreateDeal)
			r.Get("/", s.handleListDeals)
			r.Post("/evaluate", s.handleEvaluate)

			r.Route("/{dealID}", func(r chi.Router) {
				r.Get("/", s.handleGetDeal)
				r.Patch("/", s.handleUpdateDeal)
				r.Post("/transition", s.handleTransition)
				r.Post("/submit", s.handleSubmit)
				r.Put("/tiers", s.handlePutTiers)
				r.Get("/tiers", s.handleGetTiers)
				r.Get("/approval-status", s.handleApprovalStatus)
				r.Get("/comments", s.handleListComments)
				r.Post("/comments", s.handleAddComment)
				r.Get("/history", s.handleHistory)
				r.Post("/assess", s.handleAssess)
			})
		})

		r.Post("/approvals/{requirementID}/decision", s.handleDecision)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
