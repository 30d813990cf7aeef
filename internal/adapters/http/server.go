// Package http exposes the orchestrator over HTTP: an SSE chat endpoint
// plus read-only introspection of facts, summaries and the tool audit log.
package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/longregen/argo/internal/adapters/http/handlers"
	"github.com/longregen/argo/internal/adapters/http/middleware"
	"github.com/longregen/argo/internal/application/session"
	"github.com/longregen/argo/internal/config"
)

type Server struct {
	config     *config.Config
	router     *chi.Mux
	httpServer *http.Server
}

func NewServer(cfg *config.Config, runner handlers.TurnRunner, store *session.Store, db *pgxpool.Pool) *Server {
	s := &Server{config: cfg}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.Metrics)

	health := handlers.NewHealthHandler(db)
	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Server.AuthToken))

		chat := handlers.NewChatHandler(runner)
		r.Post("/chat/stream", chat.Stream)

		sessions := handlers.NewSessionsHandler(store)
		r.Get("/facts", sessions.ListFacts)
		r.Get("/sessions/{id}/summary", sessions.GetSummary)
		r.Get("/sessions/{id}/tools", sessions.ListTools)
	})

	s.router = r
	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)

	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// SSE turns can run for minutes; the per-turn deadline bounds them.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting HTTP server on %s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Router() *chi.Mux {
	return s.router
}
