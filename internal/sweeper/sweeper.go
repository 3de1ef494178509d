// Package sweeper periodically repairs the presence directory by deleting
// half-orphaned connection records left behind by crashes between the paired
// writes of connect and disconnect.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chatrelay/pkg/config"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/presence"
)

var sweptRecords = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chatrelay_presence_sweep_removed_total",
	Help: "Orphaned presence records deleted by the sweeper.",
})

// Start starts the sweep scheduler if enabled. Returns a cancel func.
func Start(ctx context.Context, cfg config.SweeperConfig, dir *presence.Directory) (context.CancelFunc, error) {
	if !cfg.Enabled {
		logger.Info("sweeper_disabled")
		return func() {}, nil
	}

	// default: hourly
	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 * * * *"
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweeper_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid sweeper cron expression: %s", cfg.Cron)
	}

	logger.Info("sweeper_enabled", "cron", cronExpr)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, dir, cronExpr)
	return cancel, nil
}

// runScheduler uses gronx to compute the next tick for the configured cron
// expression and sleeps until that time.
func runScheduler(ctx context.Context, dir *presence.Directory, cronExpr string) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweeper_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			RunOnce(dir)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				logger.Info("sweeper_stopping")
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			RunOnce(dir)
		case <-ctx.Done():
			logger.Info("sweeper_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep. Exposed so admin tooling and tests can
// trigger a run on demand.
func RunOnce(dir *presence.Directory) {
	n, err := dir.Sweep()
	if err != nil {
		logger.Error("sweep_run_error", "error", err)
		return
	}
	if n > 0 {
		sweptRecords.Add(float64(n))
	}
	logger.Info("sweep_run_complete", "removed", n)
}
