// Package server exposes the rule engine over HTTP: a resolve endpoint
// for evaluating request contexts, rule-set management with atomic
// snapshot replacement, health and Prometheus metrics.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mesh-router/internal/config"
	"mesh-router/internal/engine"
	"mesh-router/internal/middleware"
)

// Server represents the control API HTTP server
type Server struct {
	srv *http.Server
}

// New creates a new server instance wired to the given snapshot store.
func New(cfg *config.Config, store *engine.Store) *Server {
	h := &handlers{
		cfg:      cfg,
		store:    store,
		resolver: engine.NewResolver(store),
	}

	router := newRouter(h)

	return &Server{
		srv: &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

func newRouter(h *handlers) *mux.Router {
	router := mux.NewRouter()

	v1 := router.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/resolve", h.Resolve).Methods("POST")
	v1.HandleFunc("/resolve/tcp", h.ResolveTCP).Methods("POST")
	v1.HandleFunc("/rules", h.GetRules).Methods("GET")
	v1.HandleFunc("/rules", h.PutRules).Methods("PUT")

	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.Use(middleware.LoggingMiddleware)

	return router
}

// Start starts the server in a goroutine
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
