package rest

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps carries everything the router mounts.
type RouterDeps struct {
	Handler   *Handler
	Auth      *AuthMiddleware
	RateLimit *RateLimitMiddleware
	Registry  *prometheus.Registry
	Logger    *slog.Logger
}

// NewRouter assembles the HTTP surface. Health and metrics are
// unauthenticated; the session API sits behind auth and rate limiting.
func NewRouter(deps RouterDeps) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/v1/sessions", deps.Handler.createSession)
	api.HandleFunc("POST /api/v1/sessions/{id}/start", deps.Handler.startSession)
	api.HandleFunc("GET /api/v1/sessions/{id}", deps.Handler.getStatus)
	api.HandleFunc("GET /api/v1/sessions/{id}/report", deps.Handler.getReport)

	var protected http.Handler = api
	if deps.RateLimit != nil {
		protected = deps.RateLimit.Wrap(protected)
	}
	if deps.Auth != nil {
		protected = deps.Auth.Wrap(protected)
	}

	root := http.NewServeMux()
	root.Handle("/api/v1/", protected)
	root.HandleFunc("GET /healthz", deps.Handler.health)
	if deps.Registry != nil {
		root.Handle("GET /metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	chain := LoggingMiddleware(deps.Logger)(root)
	chain = TracingMiddleware(chain)
	chain = RecoveryMiddleware(deps.Logger)(chain)
	return chain
}
