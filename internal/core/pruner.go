package core

// pruner.go provides background retention for the composition audit
// trail. The pruner is long-running and context-aware for graceful
// shutdown; individual prune failures are logged without taking the
// application down.

import (
	"context"
	"log/slog"
	"time"
)

// PrunerConfig holds retention settings for the audit pruner.
type PrunerConfig struct {
	RetentionDays int           // Days to keep entries (default: 90)
	Interval      time.Duration // How often to run (default: 24h)
}

// StartAuditPruner runs retention immediately, then every Interval, until
// the context is cancelled. Call in a goroutine from startup.
func (a *Auditor) StartAuditPruner(ctx context.Context, cfg PrunerConfig) {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	a.log.Info("audit pruner started",
		"retention_days", cfg.RetentionDays,
		"interval", cfg.Interval,
	)

	a.runPrune(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("audit pruner stopped")
			return
		case <-ticker.C:
			a.runPrune(ctx, cfg)
		}
	}
}

func (a *Auditor) runPrune(ctx context.Context, cfg PrunerConfig) {
	start := time.Now()
	pruned, err := a.Prune(ctx, cfg.RetentionDays)
	if err != nil {
		a.log.Error("audit prune failed", "error", err)
		return
	}
	if pruned > 0 {
		a.log.Info("pruned audit entries",
			"entries_pruned", pruned,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		a.log.Debug("audit prune completed", slog.Int64("entries_pruned", pruned))
	}
}
