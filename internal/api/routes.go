package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/churro/scheduler/internal/api/handlers"
	apiMiddleware "github.com/churro/scheduler/internal/api/middleware"
	"github.com/churro/scheduler/internal/api/websocket"
	"github.com/churro/scheduler/internal/config"
	"github.com/churro/scheduler/internal/events"
	"github.com/churro/scheduler/internal/store"
)

// Server is the task CRUD + read-only admin + live-feed HTTP surface
// described in SPEC_FULL.md §6 and §4.9, served alongside (not instead of) the
// supervisor/worker processes.
type Server struct {
	router       *chi.Mux
	store        *store.Store
	config       *config.Config
	taskHandler  *handlers.TaskHandler
	adminHandler *handlers.AdminHandler
	wsHub        *websocket.Hub
	wsHandler    *websocket.Handler
	publisher    events.Publisher
}

// NewServer creates a new HTTP server.
func NewServer(cfg *config.Config, s *store.Store, publisher events.Publisher) *Server {
	wsHub := websocket.NewHub(publisher)

	srv := &Server{
		router:       chi.NewRouter(),
		store:        s,
		config:       cfg,
		taskHandler:  handlers.NewTaskHandler(s),
		adminHandler: handlers.NewAdminHandler(s),
		wsHub:        wsHub,
		wsHandler:    websocket.NewHandler(wsHub),
		publisher:    publisher,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(chimw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Heartbeat("/health"))
}

func (s *Server) setupRoutes() {
	authCfg := &apiMiddleware.AuthConfig{
		Enabled:   s.config.Auth.Enabled,
		JWTSecret: s.config.Auth.JWTSecret,
		APIKeys:   toAPIKeySet(s.config.Auth.APIKeys),
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		if s.config.HTTP.RateLimitRPS > 0 {
			r.Use(apiMiddleware.ClientRateLimit(s.config.HTTP.RateLimitRPS))
		}

		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.taskHandler.Create)
			r.Get("/", s.taskHandler.List)
			r.Get("/{taskID}", s.taskHandler.Get)
			r.Delete("/{taskID}", s.taskHandler.Delete)
		})
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(chimw.AllowContentType("application/json"))
		r.Use(apiMiddleware.Auth(authCfg))

		r.Get("/health", s.adminHandler.HealthCheck)
		r.Get("/workers", s.adminHandler.ListWorkers)
		r.Get("/tasks", s.adminHandler.ListTasks)
	})

	s.router.Get("/ws", s.wsHandler.ServeWS)

	if s.config.Metrics.Enabled {
		s.router.Handle(s.config.Metrics.Path, promhttp.Handler())
	}
}

func toAPIKeySet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Start starts the WebSocket hub.
func (s *Server) Start(ctx context.Context) {
	go s.wsHub.Run(ctx)
}

// Stop stops the WebSocket hub.
func (s *Server) Stop() {
	s.wsHub.Stop()
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publisher returns the event publisher.
func (s *Server) Publisher() events.Publisher {
	return s.publisher
}
