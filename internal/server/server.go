// Package server exposes the live session runtime over a JSON HTTP API.
package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/livereps/internal/ingest/alpha"
	"github.com/claude/livereps/internal/mcp"
	"github.com/claude/livereps/internal/metrics"
	"github.com/claude/livereps/internal/service"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	svc     *service.Service
	alpha   *alpha.Provider
	metrics *metrics.Manager
	log     *slog.Logger
	apiKey  string
	router  chi.Router

	whois WhoIser
	users UserStore
}

// New creates a new Server with all routes configured. Requests are
// attributed to the dev user until SetTailscale is called.
func New(svc *service.Service, alphaProvider *alpha.Provider, apiKey string, mm *metrics.Manager, log *slog.Logger) *Server {
	s := &Server{
		svc:     svc,
		alpha:   alphaProvider,
		metrics: mm,
		log:     log,
		apiKey:  apiKey,
		router:  chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches identity to Tailscale WhoIs. It must be called
// before the server starts serving.
func (s *Server) SetTailscale(lc WhoIser, users UserStore) {
	s.whois = lc
	s.users = users
}

// SetMCP mounts the streamable HTTP MCP handler at /mcp. Tool calls run as
// the identified caller.
func (s *Server) SetMCP(h http.Handler) {
	s.router.With(s.identify, mcpUser).Handle("/mcp", h)
}

// SetMetricsHandler exposes Prometheus metrics at /metrics.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.router.Handle("/metrics", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	// History import (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.identify)
		r.Post("/alpha", s.handleAlphaImport)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identify)

		r.Get("/me", s.handleMe)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{id}", s.handleGetSession)

		r.Route("/sessions/active", func(r chi.Router) {
			r.Get("/", s.handleActiveSession)
			r.Post("/pause", s.intent(s.svc.Machine().Pause))
			r.Post("/resume", s.intent(s.svc.Machine().Resume))
			r.Post("/complete", s.handleComplete)
			r.Post("/cancel", s.handleCancel)
			r.Post("/sets", s.handleCompleteSet)
			r.Post("/rest/skip", s.intent(s.svc.Machine().SkipRest))
			r.Post("/rest/extend", s.handleExtendRest)
			r.Post("/exercises/skip", s.handleSkipExercise)
			r.Post("/exercises/previous", s.intent(s.svc.Machine().PreviousExercise))
			r.Post("/exercises/next", s.intent(s.svc.Machine().NextExercise))
		})

		r.Get("/exercises/{id}/history", s.handleExerciseHistory)
		r.Get("/achievements", s.handleAchievements)
		r.Get("/achievements/catalog", s.handleAchievementCatalog)
		r.Get("/readiness", s.handleReadiness)
	})
}

// identify attaches the caller identity to the request context.
func (s *Server) identify(next http.Handler) http.Handler {
	dev := DevIdentity(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.whois == nil {
			dev.ServeHTTP(w, r)
			return
		}
		TailscaleIdentity(s.whois, s.users, s.log)(next).ServeHTTP(w, r)
	})
}

// mcpUser copies the HTTP identity into the context key read by MCP tools.
func mcpUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := mcp.WithUserID(r.Context(), userIDFromContext(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
