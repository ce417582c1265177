package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/abhi22github/ledger-console/internal/api"
	"github.com/abhi22github/ledger-console/internal/batch"
	"github.com/abhi22github/ledger-console/internal/cache"
	"github.com/abhi22github/ledger-console/internal/config"
	"github.com/abhi22github/ledger-console/internal/console"
	"github.com/abhi22github/ledger-console/internal/event"
	"github.com/abhi22github/ledger-console/internal/infrastructure/logging"
	"github.com/abhi22github/ledger-console/internal/ledger"
	"github.com/abhi22github/ledger-console/internal/payment"
)

func main() {
	cfg, logger := initializeApp()

	controller, amqpConn := initializeConsole(cfg, logger)
	defer closeAMQP(amqpConn, logger)

	loadInitialView(controller, logger)

	reloadJob := batch.NewReloadJob(controller, time.Minute, logger)
	cronScheduler := startBatchJobs(cfg, logger, reloadJob)
	router := api.SetupRouter(controller, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeConsole(cfg *config.Config, logger *slog.Logger) (*console.Controller, *amqp.Connection) {
	logger.Info("Initializing application components...", "ledger", cfg.Ledger.BaseURL)

	publisher, amqpConn := initializePublisher(cfg, logger)

	client := ledger.NewClient(cfg.Ledger, logger)
	store := cache.NewLoanCache()
	protocol := payment.NewProtocol(store, client, publisher, logger)
	return console.NewController(client, store, protocol, publisher, logger), amqpConn
}

func initializePublisher(cfg *config.Config, logger *slog.Logger) (event.EventPublisher, *amqp.Connection) {
	if !cfg.RabbitMQ.Enabled {
		logger.Info("Event publishing disabled.")
		return nil, nil
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d/",
		cfg.RabbitMQ.Username, cfg.RabbitMQ.Password, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port)
	conn, err := amqp.Dial(url)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ, continuing without events", "error", err)
		return nil, nil
	}

	publisher, err := event.NewRabbitMQEventPublisher(conn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Error("Failed to initialize event publisher, continuing without events", "error", err)
		conn.Close()
		return nil, nil
	}
	return publisher, conn
}

func closeAMQP(conn *amqp.Connection, logger *slog.Logger) {
	if conn == nil {
		return
	}
	logger.Info("Closing RabbitMQ connection...")
	conn.Close()
}

// loadInitialView fetches the list once at startup. A failure is not
// fatal: the list-level error is part of the served read model and a
// reload can be triggered at any time.
func loadInitialView(controller *console.Controller, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := controller.Load(ctx); err != nil {
		logger.Warn("Initial loan load failed; serving empty view with list error", "error", err)
	}
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, reloadJob *batch.ReloadJob) *cron.Cron {
	c := cron.New()
	if !cfg.Reload.Enabled {
		logger.Info("Scheduled cache reload disabled.")
		return c
	}

	scheduleSpec := cfg.Reload.Schedule
	if scheduleSpec == "" {
		scheduleSpec = "@every 5m"
		logger.Warn("Reload schedule not configured, using default", "schedule", scheduleSpec)
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "CacheReload")
		jobLogger.Info("Cron triggered: Running cache reload job.")

		if runErr := reloadJob.Run(context.Background()); runErr != nil {
			jobLogger.Error("Cache reload job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Cache reload job finished successfully.")
		}
	}))
	if err != nil {
		logger.Error("Failed to schedule cache reload job", "schedule", scheduleSpec, "error", err)
		os.Exit(1)
	}

	logger.Info("Scheduled cache reload job", "schedule", scheduleSpec, "jobID", jobID)
	c.Start()
	return c
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}
