package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gridhost/pkg/backend"
	"gridhost/pkg/session"
)

// NewRouter wires the service layer routes.
//
// Routes:
//   - GET  /health                 - liveness probe
//   - GET  /health/ready           - readiness probe (requires a ready backend)
//   - GET  /metrics                - Prometheus metrics
//   - POST /api/v1/sessions        - open a session (returns the token)
//   - GET  /api/v1/sessions        - list open sessions (authenticated)
//   - DELETE /api/v1/sessions/{id} - close a session (authenticated)
//   - GET  /api/v1/backends        - list ready backends (authenticated)
//   - POST /api/v1/dispatch        - pick a dispatch target (authenticated)
//   - POST /api/v1/shutdown        - stop the daemon (authenticated)
func NewRouter(sessions *session.Manager, backends *backend.Manager, shutdown func() bool) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	health := &healthHandler{sessions: sessions, backends: backends}
	r.Route("/health", func(r chi.Router) {
		r.Get("/", health.liveness)
		r.Get("/ready", health.readiness)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	sessionH := &sessionHandler{sessions: sessions}
	backendH := &backendHandler{backends: backends}
	shutdownH := &shutdownHandler{shutdown: shutdown}

	r.Route("/api/v1", func(r chi.Router) {
		// Opening a session is the entry point and needs no token.
		r.Post("/sessions", sessionH.open)

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth(sessions))

			r.Get("/sessions", sessionH.list)
			r.Delete("/sessions/{id}", sessionH.close)

			r.Get("/backends", backendH.list)
			r.Post("/dispatch", backendH.dispatch)

			r.Post("/shutdown", shutdownH.post)
		})
	})

	return r
}
