package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhi22github/ledger-console/internal/console"
)

// ReloadJob periodically refreshes the whole cache from the ledger. A
// full reload is the one invalidation event besides payment
// reconciliation, and it also repairs any unconfirmed-payment staleness
// left by a failed reconcile fetch.
type ReloadJob struct {
	controller *console.Controller
	timeout    time.Duration
	logger     *slog.Logger
}

func NewReloadJob(controller *console.Controller, timeout time.Duration, logger *slog.Logger) *ReloadJob {
	if controller == nil || logger == nil {
		panic("ReloadJob dependencies cannot be nil")
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &ReloadJob{
		controller: controller,
		timeout:    timeout,
		logger:     logger.With("job", "CacheReload"),
	}
}

func (j *ReloadJob) Run(ctx context.Context) error {
	startTime := time.Now()
	j.logger.InfoContext(ctx, "Starting scheduled cache reload.")

	runCtx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if err := j.controller.Load(runCtx); err != nil {
		j.logger.ErrorContext(ctx, "Scheduled cache reload failed.", slog.Any("error", err))
		return fmt.Errorf("cache reload: %w", err)
	}

	j.logger.InfoContext(ctx, "Scheduled cache reload finished.", slog.Duration("duration", time.Since(startTime)))
	return nil
}
