package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskhub-api/internal/config"
	rcron "github.com/robfig/cron/v3"
)

// pruneTimeout bounds a single pruning run.
const pruneTimeout = time.Minute

// pruneFunc deletes read notifications older than the retention window.
type pruneFunc func(ctx context.Context, retention time.Duration) (int64, error)

// notificationPruner runs notification retention on a cron schedule.
type notificationPruner struct {
	cron      *rcron.Cron
	prune     pruneFunc
	retention time.Duration
	logger    *slog.Logger
}

// newNotificationPruner schedules prune according to cfg.PruneSchedule,
// which accepts standard five-field expressions and descriptors such as
// "@daily".
func newNotificationPruner(prune pruneFunc, cfg config.NotificationsConfig, logger *slog.Logger) (*notificationPruner, error) {
	if cfg.RetentionDays <= 0 {
		return nil, fmt.Errorf("notification retention must be positive, got %d days", cfg.RetentionDays)
	}

	p := &notificationPruner{
		cron:      rcron.New(),
		prune:     prune,
		retention: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		logger:    logger.With(slog.String("component", "notification_pruner")),
	}
	if _, err := p.cron.AddFunc(cfg.PruneSchedule, p.run); err != nil {
		return nil, fmt.Errorf("invalid notification prune schedule %q: %w", cfg.PruneSchedule, err)
	}
	return p, nil
}

// Start begins running scheduled prunes in the background.
func (p *notificationPruner) Start() {
	p.cron.Start()
	p.logger.Info("notification pruner started", slog.Duration("retention", p.retention))
}

// Stop stops the scheduler and waits for a running prune or for ctx.
func (p *notificationPruner) Stop(ctx context.Context) {
	select {
	case <-p.cron.Stop().Done():
	case <-ctx.Done():
		p.logger.Warn("stop timeout waiting for running prune")
	}
	p.logger.Info("notification pruner stopped")
}

func (p *notificationPruner) run() {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	removed, err := p.prune(ctx, p.retention)
	if err != nil {
		p.logger.Error("notification prune failed", slog.String("error", err.Error()))
		return
	}
	p.logger.Info("pruned read notifications", slog.Int64("removed", removed))
}
