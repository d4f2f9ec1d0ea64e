package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskearn/paycore/internal/adapter/http/handler"
	"github.com/taskearn/paycore/internal/adapter/http/middleware"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	PaymentHandler    *handler.PaymentHandler
	WithdrawalHandler *handler.WithdrawalHandler
	CommissionHandler *handler.CommissionHandler
	SettingsHandler   *handler.SettingsHandler
	StatusHandler     *handler.StatusHandler
	CallbackHandler   *handler.CallbackHandler
	StreamHandler     *handler.StreamHandler
	HealthHandler     *handler.HealthHandler
	Logging           *middleware.LoggingMiddleware
	Metrics           *middleware.MetricsMiddleware
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.Logging != nil {
		r.Use(cfg.Logging.Wrap)
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Wrap)
	}
	r.Use(middleware.Recovery)

	// Health and observability
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Gateway callbacks. These live outside /api/v1 because their paths
	// are registered with the provider.
	r.Post("/payments/callback", cfg.CallbackHandler.STKCallback)
	r.Post("/payments/b2c/result", cfg.CallbackHandler.B2CResult)
	r.Post("/payments/b2c/timeout", cfg.CallbackHandler.B2CTimeout)

	// Query-parameter poll shape, same semantics as
	// /api/v1/status/{correlationID}.
	r.Get("/payments/status", cfg.StatusHandler.PollIntent)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.PaymentHandler.RegisterAccount)
			r.Get("/{id}", cfg.PaymentHandler.GetAccount)
			r.Post("/{id}/registration", cfg.PaymentHandler.InitiateRegistration)
			r.Get("/{id}/entries", cfg.PaymentHandler.ListEntries)
			r.Get("/{id}/withdrawals", cfg.WithdrawalHandler.ListByAccount)
			r.Get("/{id}/withdrawals/stats", cfg.WithdrawalHandler.Stats)
			r.Get("/{id}/commissions", cfg.CommissionHandler.ListByReferrer)
			r.Get("/{id}/commissions/stats", cfg.CommissionHandler.Stats)
			r.Get("/{id}/events", cfg.StreamHandler.Stream)
		})

		r.Post("/payouts/task", cfg.PaymentHandler.TaskPayout)

		r.Route("/withdrawals", func(r chi.Router) {
			r.Post("/", cfg.WithdrawalHandler.Create)
			r.Get("/{id}", cfg.WithdrawalHandler.Get)
			r.Get("/{id}/status", cfg.StatusHandler.PollWithdrawal)
			r.Post("/{id}/approve", cfg.WithdrawalHandler.Approve)
			r.Post("/{id}/reject", cfg.WithdrawalHandler.Reject)
			r.Post("/{id}/cancel", cfg.WithdrawalHandler.Cancel)
			r.Post("/{id}/process", cfg.WithdrawalHandler.Process)
		})

		r.Route("/commissions", func(r chi.Router) {
			r.Post("/settle", cfg.CommissionHandler.SettlePending)
			r.Post("/{id}/settle", cfg.CommissionHandler.Settle)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", cfg.SettingsHandler.List)
			r.Get("/{key}", cfg.SettingsHandler.Get)
			r.Put("/{key}", cfg.SettingsHandler.Update)
		})

		r.Get("/status/{correlationID}", cfg.StatusHandler.PollIntent)
	})

	return r
}
