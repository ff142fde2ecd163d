package core

// scheduler.go runs periodic maintenance:
//  1. Drop review sessions whose TTL has passed
//  2. Purge archived donations older than the retention window
//
// The job is long-running and stops with its context. Failures are logged
// and retried on the next tick; they never stop the server.

import (
	"context"
	"log/slog"
	"time"
)

// DefaultMaintenanceInterval is used when MaintenanceConfig.CheckInterval
// is zero.
const DefaultMaintenanceInterval = time.Minute

// MaintenanceConfig holds settings for the maintenance job.
type MaintenanceConfig struct {
	// Retention is how long archived donations are kept. Zero disables
	// purging.
	Retention     time.Duration
	CheckInterval time.Duration
}

// MaintenanceResult counts what one run removed.
type MaintenanceResult struct {
	Sessions  int
	Donations int64
}

// StartMaintenance runs maintenance immediately, then every CheckInterval
// until ctx is cancelled.
func (s *Service) StartMaintenance(ctx context.Context, cfg MaintenanceConfig) {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultMaintenanceInterval
	}
	slog.Info("maintenance scheduler started",
		"retention", cfg.Retention,
		"check_interval", cfg.CheckInterval,
	)

	s.RunMaintenance(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("maintenance scheduler stopped")
			return
		case <-ticker.C:
			s.RunMaintenance(ctx, cfg)
		}
	}
}

// RunMaintenance performs one sweep and purge cycle.
func (s *Service) RunMaintenance(ctx context.Context, cfg MaintenanceConfig) MaintenanceResult {
	start := time.Now()
	var res MaintenanceResult

	res.Sessions = s.sessions.Sweep()
	if res.Sessions > 0 {
		slog.Info("expired review sessions removed", "sessions", res.Sessions)
	}

	if s.donations != nil && cfg.Retention > 0 {
		cutoff := s.now().Add(-cfg.Retention)
		purged, err := s.donations.Purge(ctx, cutoff)
		if err != nil {
			slog.Error("donation purge failed", "error", err)
		} else {
			res.Donations = purged
			if purged > 0 {
				slog.Info("purged archived donations",
					"donations", purged,
					"cutoff", cutoff,
				)
			}
		}
	}

	slog.Debug("maintenance completed", "duration_ms", time.Since(start).Milliseconds())
	return res
}
