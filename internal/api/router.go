package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhi22github/ledger-console/internal/api/handler"
	mw "github.com/abhi22github/ledger-console/internal/api/middleware"
	"github.com/abhi22github/ledger-console/internal/config"
	"github.com/abhi22github/ledger-console/internal/console"
)

func SetupRouter(controller *console.Controller, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	setupViewRoutes(router, controller, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupViewRoutes(router *chi.Mux, controller *console.Controller, logger *slog.Logger) {
	viewHandler := handler.NewViewHandler(controller, logger)

	router.Route("/view", func(r chi.Router) {
		r.Get("/loans", viewHandler.GetReadModel)
		r.Post("/loans", viewHandler.CreateLoan)
		r.Post("/loans/{loanID}/payments/input", viewHandler.SetPendingInput)
		r.Post("/loans/{loanID}/payments", viewHandler.RecordPayment)
		r.Post("/reload", viewHandler.Reload)
	})
}
