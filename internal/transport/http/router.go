// Package httptransport is the thin HTTP layer. Handlers decode requests,
// delegate to domain services, and encode responses; business logic stays in
// the services so transport concerns remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gatepass/internal/platform/health"
	"gatepass/internal/platform/middleware"
	"gatepass/pkg/requesttime"
)

// Middleware is a standard net/http middleware constructor.
type Middleware func(http.Handler) http.Handler

// RouterConfig carries the cross-cutting pieces the router mounts around the
// handlers. Auth and rate limiting are injected as plain middleware so the
// router does not depend on the scanner or operator packages directly.
type RouterConfig struct {
	Logger       *slog.Logger
	ScannerAuth  Middleware
	OperatorAuth Middleware
	RateLimit    Middleware
	Health       *health.Handler
	// ObserveLatency receives per-route durations for the endpoint
	// latency histogram. Optional.
	ObserveLatency func(endpoint string, seconds float64)
}

// NewRouter wires all endpoints with the middleware stack.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)
	r.Use(requesttime.Middleware)
	if cfg.ObserveLatency != nil {
		r.Use(middleware.Latency(cfg.ObserveLatency))
	}

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	// Scanner-facing. Authentication runs before rate limiting so the
	// limiter can key on the authenticated scanner ID.
	r.Group(func(r chi.Router) {
		r.Use(middleware.ScannerDevice)
		if cfg.ScannerAuth != nil {
			r.Use(cfg.ScannerAuth)
		}
		if cfg.RateLimit != nil {
			r.Use(cfg.RateLimit)
		}
		r.Post("/verify", h.handleVerify)
	})

	// Operator-facing.
	r.Group(func(r chi.Router) {
		if cfg.OperatorAuth != nil {
			r.Use(cfg.OperatorAuth)
		}

		r.Post("/tokens", h.handleIssueToken)
		r.Delete("/tokens/{id}", h.handleRevokeToken)

		r.Get("/rosters", h.handleListRosters)
		r.Post("/rosters", h.handleCreateRoster)
		r.Get("/rosters/{id}/schema", h.handleGetSchema)
		r.Put("/rosters/{id}/mappings", h.handleRegisterMappings)
		r.Post("/rosters/{id}/subjects", h.handleCreateSubject)

		r.Post("/scanners", h.handleRegisterScanner)
		r.Delete("/scanners/{id}", h.handleDeactivateScanner)

		r.Get("/events", h.handleListEvents)
		r.Get("/subjects/{id}/events", h.handleListSubjectEvents)
	})

	return r
}
