package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/adapter/http/handler"
	"github.com/iho/cashdesk/internal/adapter/http/middleware"
	"github.com/iho/cashdesk/internal/infrastructure/metrics"
	"github.com/iho/cashdesk/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	LedgerHandler        *handler.LedgerHandler
	CashHandler          *handler.CashHandler
	ReplenishmentHandler *handler.ReplenishmentHandler
	HealthHandler        *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	} else {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		r.Route("/ledgers", func(r chi.Router) {
			r.Post("/vaults", cfg.LedgerHandler.OpenVault)
			r.Post("/tellers", cfg.LedgerHandler.OpenTellerLedger)
			r.Get("/{id}", cfg.LedgerHandler.Get)
			r.Get("/{id}/balance", cfg.LedgerHandler.Balance)
			r.Get("/{id}/operations", cfg.LedgerHandler.ListOperations)
			r.Get("/{id}/reconcile", cfg.LedgerHandler.Reconcile)
		})

		r.Get("/branches/{id}/reconcile", cfg.LedgerHandler.BranchReport)

		r.Route("/cash", func(r chi.Router) {
			r.Post("/in", cfg.CashHandler.CashIn)
			r.Post("/out", cfg.CashHandler.CashOut)
			r.Post("/transfer", cfg.CashHandler.Transfer)
			r.Post("/exchange", cfg.CashHandler.Exchange)
			r.Get("/exchange/{id}", cfg.CashHandler.GetChange)
		})

		r.Route("/replenishments/{kind}", func(r chi.Router) {
			r.Post("/", cfg.ReplenishmentHandler.Request)
			r.Get("/", cfg.ReplenishmentHandler.ListPending)
			r.Get("/{id}", cfg.ReplenishmentHandler.Get)
			r.Get("/{id}/events", cfg.ReplenishmentHandler.Events)
			r.Post("/{id}/approve", cfg.ReplenishmentHandler.Approve)
			r.Post("/{id}/reject", cfg.ReplenishmentHandler.Reject)
		})
	})

	return r
}
